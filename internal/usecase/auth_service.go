package usecase

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/amida-tech/amida-auth-microservice/config"
	repo "github.com/amida-tech/amida-auth-microservice/internal/adapters/postgres"
	"github.com/amida-tech/amida-auth-microservice/internal/domain"
	pkglog "github.com/amida-tech/amida-auth-microservice/pkg/log"
)

// LoginResult is the payload returned by login and refresh.
type LoginResult struct {
	Token        string `json:"token"`
	UUID         string `json:"uuid"`
	Username     string `json:"username"`
	RefreshToken string `json:"refreshToken,omitempty"`
	TTL          int    `json:"ttl"`
}

// AuthService composes the credential store, token generator and JWT signer
// into the externally observable auth flows.
type AuthService interface {
	Login(ctx context.Context, username, password string) (*LoginResult, error)
	Refresh(ctx context.Context, username, refreshToken string) (*LoginResult, error)
	RejectRefreshToken(ctx context.Context, refreshToken string) error
	UpdatePassword(ctx context.Context, user *domain.User, oldPassword, newPassword string) error
	RequestPasswordReset(ctx context.Context, email string) (string, error)
	ResetPassword(ctx context.Context, token, newPassword string) error
	DispatchVerification(ctx context.Context, email string) (string, error)
	VerifyingUser(ctx context.Context, token string) (string, error)
	VerifyAccount(ctx context.Context, token string) error
	SecureVerifyAccount(ctx context.Context, token, password string) error
}

type authService struct {
	cfg     *config.Config
	logger  pkglog.Logger
	users   repo.UserRepository
	refresh repo.RefreshTokenRepository
	signer  JWTSigner
}

func NewAuthService(cfg *config.Config, logger pkglog.Logger, users repo.UserRepository, refresh repo.RefreshTokenRepository, signer JWTSigner) AuthService {
	return &authService{cfg: cfg, logger: logger, users: users, refresh: refresh, signer: signer}
}

func (s *authService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrIncorrectUsernameOrPassword
		}
		return nil, err
	}
	if user.IsExternal() || !TestPassword(password, user.Salt, user.Password) {
		return nil, ErrIncorrectUsernameOrPassword
	}
	if (s.cfg.RequireVerification || s.cfg.RequireSecureVerification) && !user.IsVerified() {
		return nil, ErrUserNotVerified
	}

	token, err := s.signer.Sign(user)
	if err != nil {
		return nil, err
	}
	result := &LoginResult{
		Token:    token,
		UUID:     user.UUID,
		Username: user.Username,
		TTL:      s.cfg.JWTTTL,
	}
	if s.cfg.RefreshTokenEnabled {
		rt, err := s.createRefreshToken(ctx, user.ID)
		if err != nil {
			return nil, err
		}
		result.RefreshToken = rt.Token
	}
	s.logger.Info().Str("username", user.Username).Msg("login")
	return result, nil
}

// createRefreshToken rotates in a new opaque token. In single-device mode all
// prior tokens for the user are dropped first, so at most one session can
// refresh at a time.
func (s *authService) createRefreshToken(ctx context.Context, userID uint) (*domain.RefreshToken, error) {
	if !s.cfg.RefreshTokenMultipleDevices {
		if err := s.refresh.DeleteByUserID(ctx, userID); err != nil {
			return nil, err
		}
	}
	token, err := OpaqueToken(RefreshTokenBytes)
	if err != nil {
		return nil, err
	}
	rt := &domain.RefreshToken{Token: token, UserID: userID}
	if err := s.refresh.Create(ctx, rt); err != nil {
		return nil, err
	}
	return rt, nil
}

func (s *authService) Refresh(ctx context.Context, username, refreshToken string) (*LoginResult, error) {
	if !s.cfg.RefreshTokenEnabled {
		return nil, ErrRefreshNotEnabled
	}
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMissingRefreshToken
		}
		return nil, err
	}
	if _, err := s.refresh.FindByTokenAndUser(ctx, refreshToken, user.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMissingRefreshToken
		}
		return nil, err
	}
	token, err := s.signer.Sign(user)
	if err != nil {
		return nil, err
	}
	return &LoginResult{
		Token:    token,
		UUID:     user.UUID,
		Username: user.Username,
		TTL:      s.cfg.JWTTTL,
	}, nil
}

func (s *authService) RejectRefreshToken(ctx context.Context, refreshToken string) error {
	if !s.cfg.RefreshTokenEnabled {
		return ErrRefreshNotEnabled
	}
	rt, err := s.refresh.FindByToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMissingRefreshToken
		}
		return err
	}
	return s.refresh.Delete(ctx, rt)
}

func (s *authService) UpdatePassword(ctx context.Context, user *domain.User, oldPassword, newPassword string) error {
	if user.IsExternal() {
		return ErrExternalAuthUsed
	}
	if !TestPassword(oldPassword, user.Salt, user.Password) {
		return ErrIncorrectPassword
	}
	setPassword(user, newPassword)
	return s.users.Save(ctx, user)
}

// setPassword regenerates the salt and rewrites the stored digest. Every
// plaintext write funnels through here so salt and hash can never diverge.
func setPassword(user *domain.User, plaintext string) {
	user.Salt = NewSalt()
	user.Password = HashPassword(plaintext, user.Salt)
}

func (s *authService) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrInvalidEmail
		}
		return "", err
	}
	if user.IsExternal() {
		return "", ErrExternalAuthUsed
	}
	if (s.cfg.RequireVerification || s.cfg.RequireSecureVerification) && !user.IsVerified() {
		return "", ErrInvalidEmail
	}
	token, err := OpaqueToken(ResetTokenBytes)
	if err != nil {
		return "", err
	}
	expires := time.Now().UTC().Add(time.Duration(s.cfg.ResetTokenTTL) * time.Second)
	user.ResetToken = &token
	user.ResetExpires = &expires
	if err := s.users.Save(ctx, user); err != nil {
		return "", err
	}
	s.logger.Info().Str("username", user.Username).Msg("password reset token issued")
	return token, nil
}

func (s *authService) ResetPassword(ctx context.Context, token, newPassword string) error {
	user, err := s.users.FindByResetToken(ctx, token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrResetTokenInvalid
		}
		return err
	}
	if user.ResetExpires == nil || time.Now().UTC().After(user.ResetExpires.UTC()) {
		return ErrResetTokenInvalid
	}
	setPassword(user, newPassword)
	user.ResetToken = nil
	user.ResetExpires = nil
	return s.users.Save(ctx, user)
}

func (s *authService) DispatchVerification(ctx context.Context, email string) (string, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrInvalidEmail
		}
		return "", err
	}
	token, err := OpaqueToken(ResetTokenBytes)
	if err != nil {
		return "", err
	}
	expires := time.Now().UTC().Add(time.Duration(s.cfg.VerificationTokenTTL) * time.Second)
	user.ContactMethodVerificationToken = &token
	user.ContactMethodVerificationTokenExpires = &expires
	user.ContactMethodToVerify = &user.Email
	if err := s.users.Save(ctx, user); err != nil {
		return "", err
	}
	s.logger.Info().Str("username", user.Username).Msg("verification token issued")
	return token, nil
}

func (s *authService) VerifyingUser(ctx context.Context, token string) (string, error) {
	user, err := s.verifyingUser(ctx, token)
	if err != nil {
		return "", err
	}
	return user.Username, nil
}

func (s *authService) VerifyAccount(ctx context.Context, token string) error {
	user, err := s.verifyingUser(ctx, token)
	if err != nil {
		return err
	}
	return s.addVerifiedContact(ctx, user)
}

func (s *authService) SecureVerifyAccount(ctx context.Context, token, password string) error {
	user, err := s.verifyingUser(ctx, token)
	if err != nil {
		return err
	}
	if !TestPassword(password, user.Salt, user.Password) {
		return ErrPasswordMismatch
	}
	return s.addVerifiedContact(ctx, user)
}

// verifyingUser resolves a verification token, treating an expired token the
// same as a missing one.
func (s *authService) verifyingUser(ctx context.Context, token string) (*domain.User, error) {
	user, err := s.users.FindByVerificationToken(ctx, token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}
	exp := user.ContactMethodVerificationTokenExpires
	if exp == nil || time.Now().UTC().After(exp.UTC()) {
		return nil, ErrTokenNotFound
	}
	return user, nil
}

// addVerifiedContact records the pending contact method as confirmed (no-op
// when already present) and clears the single-use token fields.
func (s *authService) addVerifiedContact(ctx context.Context, user *domain.User) error {
	if user.ContactMethodToVerify != nil {
		pending := *user.ContactMethodToVerify
		present := false
		for _, m := range user.VerifiedContactMethods {
			if m == pending {
				present = true
				break
			}
		}
		if !present {
			user.VerifiedContactMethods = append(user.VerifiedContactMethods, pending)
		}
	}
	user.ContactMethodVerificationToken = nil
	user.ContactMethodVerificationTokenExpires = nil
	user.ContactMethodToVerify = nil
	return s.users.Save(ctx, user)
}
