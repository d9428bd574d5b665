package usecase

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/amida-tech/amida-auth-microservice/config"
	repo "github.com/amida-tech/amida-auth-microservice/internal/adapters/postgres"
	"github.com/amida-tech/amida-auth-microservice/internal/domain"
	pkglog "github.com/amida-tech/amida-auth-microservice/pkg/log"
)

// UserService owns the User entity lifecycle outside of the auth flows.
type UserService interface {
	Create(ctx context.Context, username, email, password string, scopes []string) (*domain.User, error)
	Get(ctx context.Context, id uint) (*domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
	UpdateEmail(ctx context.Context, id uint, email string) (*domain.User, error)
	UpdateScopes(ctx context.Context, id uint, scopes []string) (*domain.User, error)
	Delete(ctx context.Context, id uint) error
	SeedAdmin(ctx context.Context) error
}

type userService struct {
	cfg    *config.Config
	logger pkglog.Logger
	users  repo.UserRepository
}

func NewUserService(cfg *config.Config, logger pkglog.Logger, users repo.UserRepository) UserService {
	return &userService{cfg: cfg, logger: logger, users: users}
}

// Create inserts a local account: fresh uuid, fresh salt, hashed password.
// Duplicate username or email surfaces as a conflict, not a bad request.
func (s *userService) Create(ctx context.Context, username, email, password string, scopes []string) (*domain.User, error) {
	if len(scopes) == 0 {
		scopes = []string{""}
	}
	user := &domain.User{
		UUID:                   uuid.NewString(),
		Username:               username,
		Email:                  email,
		Scopes:                 scopes,
		VerifiedContactMethods: []string{},
	}
	setPassword(user, password)
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrUserConflict
		}
		return nil, err
	}
	s.logger.Info().Str("username", username).Msg("user created")
	return user, nil
}

func (s *userService) Get(ctx context.Context, id uint) (*domain.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *userService) List(ctx context.Context) ([]domain.User, error) {
	return s.users.List(ctx)
}

func (s *userService) UpdateEmail(ctx context.Context, id uint, email string) (*domain.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	user.Email = email
	if err := s.users.Save(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrUserConflict
		}
		return nil, err
	}
	return user, nil
}

// UpdateScopes overwrites the scope list wholesale; there is no merge.
func (s *userService) UpdateScopes(ctx context.Context, id uint, scopes []string) (*domain.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	user.Scopes = scopes
	if err := s.users.Save(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *userService) Delete(ctx context.Context, id uint) error {
	if err := s.users.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	return nil
}

// SeedAdmin makes sure the configured admin account exists. When no seed
// password is configured a random one is generated and logged once, so a
// fresh install is never left with a known credential.
func (s *userService) SeedAdmin(ctx context.Context) error {
	if _, err := s.users.FindByUsername(ctx, s.cfg.SeedAdminUsername); err == nil {
		return nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	password := s.cfg.SeedAdminPassword
	if password == "" {
		generated, err := OpaqueToken(12)
		if err != nil {
			return err
		}
		password = generated
		s.logger.Warn().Str("username", s.cfg.SeedAdminUsername).Str("password", password).Msg("seeded admin with generated password")
	}
	_, err := s.Create(ctx, s.cfg.SeedAdminUsername, s.cfg.SeedAdminEmail, password, []string{domain.ScopeAdmin})
	return err
}
