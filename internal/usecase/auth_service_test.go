package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/amida-tech/amida-auth-microservice/config"
	"github.com/amida-tech/amida-auth-microservice/internal/domain"
	pkglog "github.com/amida-tech/amida-auth-microservice/pkg/log"
)

type mockUserRepo struct {
	users map[uint]domain.User
	next  uint
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: map[uint]domain.User{}}
}

func (r *mockUserRepo) Create(_ context.Context, user *domain.User) error {
	for _, u := range r.users {
		if u.Username == user.Username || u.Email == user.Email {
			return gorm.ErrDuplicatedKey
		}
	}
	r.next++
	user.ID = r.next
	r.users[user.ID] = *user
	return nil
}

func (r *mockUserRepo) find(match func(u domain.User) bool) (*domain.User, error) {
	for _, u := range r.users {
		if match(u) {
			found := u
			return &found, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *mockUserRepo) FindByID(_ context.Context, id uint) (*domain.User, error) {
	return r.find(func(u domain.User) bool { return u.ID == id })
}

func (r *mockUserRepo) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	return r.find(func(u domain.User) bool { return u.Username == username })
}

func (r *mockUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	return r.find(func(u domain.User) bool { return u.Email == email })
}

func (r *mockUserRepo) FindByResetToken(_ context.Context, token string) (*domain.User, error) {
	return r.find(func(u domain.User) bool { return u.ResetToken != nil && *u.ResetToken == token })
}

func (r *mockUserRepo) FindByVerificationToken(_ context.Context, token string) (*domain.User, error) {
	return r.find(func(u domain.User) bool {
		return u.ContactMethodVerificationToken != nil && *u.ContactMethodVerificationToken == token
	})
}

func (r *mockUserRepo) Save(_ context.Context, user *domain.User) error {
	r.users[user.ID] = *user
	return nil
}

func (r *mockUserRepo) Delete(_ context.Context, id uint) error {
	if _, ok := r.users[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.users, id)
	return nil
}

func (r *mockUserRepo) List(_ context.Context) ([]domain.User, error) {
	out := make([]domain.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, u)
	}
	return out, nil
}

type mockRefreshRepo struct {
	tokens map[string]domain.RefreshToken
	next   uint
}

func newMockRefreshRepo() *mockRefreshRepo {
	return &mockRefreshRepo{tokens: map[string]domain.RefreshToken{}}
}

func (r *mockRefreshRepo) Create(_ context.Context, token *domain.RefreshToken) error {
	if _, ok := r.tokens[token.Token]; ok {
		return gorm.ErrDuplicatedKey
	}
	r.next++
	token.ID = r.next
	r.tokens[token.Token] = *token
	return nil
}

func (r *mockRefreshRepo) FindByToken(_ context.Context, token string) (*domain.RefreshToken, error) {
	if rt, ok := r.tokens[token]; ok {
		return &rt, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *mockRefreshRepo) FindByTokenAndUser(_ context.Context, token string, userID uint) (*domain.RefreshToken, error) {
	if rt, ok := r.tokens[token]; ok && rt.UserID == userID {
		return &rt, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *mockRefreshRepo) DeleteByUserID(_ context.Context, userID uint) error {
	for tok, rt := range r.tokens {
		if rt.UserID == userID {
			delete(r.tokens, tok)
		}
	}
	return nil
}

func (r *mockRefreshRepo) Delete(_ context.Context, token *domain.RefreshToken) error {
	delete(r.tokens, token.Token)
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		AppEnv:               "test",
		JWTMode:              "hmac",
		JWTSecret:            "unit-test-secret",
		JWTTTL:               3600,
		ResetTokenTTL:        3600,
		VerificationTokenTTL: 3600,
	}
}

func newTestAuthService(t *testing.T, cfg *config.Config) (AuthService, *mockUserRepo, *mockRefreshRepo) {
	t.Helper()
	users := newMockUserRepo()
	refresh := newMockRefreshRepo()
	signer, err := NewJWTSigner(cfg)
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	return NewAuthService(cfg, pkglog.New("test"), users, refresh, signer), users, refresh
}

func seedUser(t *testing.T, users *mockUserRepo, username, email, password string) *domain.User {
	t.Helper()
	user := &domain.User{
		UUID:                   "uuid-" + username,
		Username:               username,
		Email:                  email,
		Scopes:                 []string{""},
		VerifiedContactMethods: []string{},
	}
	user.Salt = NewSalt()
	user.Password = HashPassword(password, user.Salt)
	if err := users.Create(context.Background(), user); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func TestLoginSuccess(t *testing.T) {
	svc, users, _ := newTestAuthService(t, testConfig())
	seedUser(t, users, "KK123", "test@amida.com", "Testpass123")

	result, err := svc.Login(context.Background(), "KK123", "Testpass123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if result.Token == "" || result.Username != "KK123" || result.UUID != "uuid-KK123" {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.TTL != 3600 {
		t.Fatalf("ttl = %d", result.TTL)
	}
	if result.RefreshToken != "" {
		t.Fatal("refresh token issued while feature disabled")
	}
}

func TestLoginDoesNotDistinguishUnknownUserFromWrongPassword(t *testing.T) {
	svc, users, _ := newTestAuthService(t, testConfig())
	seedUser(t, users, "KK123", "test@amida.com", "Testpass123")

	_, errWrongPassword := svc.Login(context.Background(), "KK123", "wrong")
	_, errUnknownUser := svc.Login(context.Background(), "nobody", "Testpass123")

	if !errors.Is(errWrongPassword, ErrIncorrectUsernameOrPassword) {
		t.Fatalf("wrong password error = %v", errWrongPassword)
	}
	if !errors.Is(errUnknownUser, ErrIncorrectUsernameOrPassword) {
		t.Fatalf("unknown user error = %v", errUnknownUser)
	}
}

func TestLoginRequiresVerificationWhenConfigured(t *testing.T) {
	cfg := testConfig()
	cfg.RequireVerification = true
	svc, users, _ := newTestAuthService(t, cfg)
	user := seedUser(t, users, "KK123", "test@amida.com", "Testpass123")

	if _, err := svc.Login(context.Background(), "KK123", "Testpass123"); !errors.Is(err, ErrUserNotVerified) {
		t.Fatalf("err = %v, want %v", err, ErrUserNotVerified)
	}

	user.VerifiedContactMethods = []string{user.Email}
	_ = users.Save(context.Background(), user)
	if _, err := svc.Login(context.Background(), "KK123", "Testpass123"); err != nil {
		t.Fatalf("verified login: %v", err)
	}
}

func TestLoginRejectsExternalAccount(t *testing.T) {
	svc, users, _ := newTestAuthService(t, testConfig())
	user := seedUser(t, users, "fbuser", "fb@amida.com", "Testpass123")
	provider := "facebook"
	user.Provider = &provider
	_ = users.Save(context.Background(), user)

	if _, err := svc.Login(context.Background(), "fbuser", "Testpass123"); !errors.Is(err, ErrIncorrectUsernameOrPassword) {
		t.Fatalf("err = %v", err)
	}
}

func TestSingleDeviceRefreshRotation(t *testing.T) {
	cfg := testConfig()
	cfg.RefreshTokenEnabled = true
	svc, users, _ := newTestAuthService(t, cfg)
	seedUser(t, users, "KK123", "test@amida.com", "Testpass123")
	ctx := context.Background()

	first, err := svc.Login(ctx, "KK123", "Testpass123")
	if err != nil {
		t.Fatalf("first login: %v", err)
	}
	if len(first.RefreshToken) != 128 {
		t.Fatalf("refresh token length = %d", len(first.RefreshToken))
	}

	second, err := svc.Login(ctx, "KK123", "Testpass123")
	if err != nil {
		t.Fatalf("second login: %v", err)
	}

	if _, err := svc.Refresh(ctx, "KK123", first.RefreshToken); !errors.Is(err, ErrMissingRefreshToken) {
		t.Fatalf("stale token err = %v", err)
	}
	result, err := svc.Refresh(ctx, "KK123", second.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if result.Token == "" || result.RefreshToken != "" {
		t.Fatalf("unexpected refresh result: %+v", result)
	}
}

func TestMultiDeviceRefreshTokensCoexist(t *testing.T) {
	cfg := testConfig()
	cfg.RefreshTokenEnabled = true
	cfg.RefreshTokenMultipleDevices = true
	svc, users, _ := newTestAuthService(t, cfg)
	seedUser(t, users, "KK123", "test@amida.com", "Testpass123")
	ctx := context.Background()

	first, _ := svc.Login(ctx, "KK123", "Testpass123")
	second, _ := svc.Login(ctx, "KK123", "Testpass123")
	if first.RefreshToken == second.RefreshToken {
		t.Fatal("logins produced the same refresh token")
	}
	if _, err := svc.Refresh(ctx, "KK123", first.RefreshToken); err != nil {
		t.Fatalf("first device refresh: %v", err)
	}
	if _, err := svc.Refresh(ctx, "KK123", second.RefreshToken); err != nil {
		t.Fatalf("second device refresh: %v", err)
	}
}

func TestRefreshDisabled(t *testing.T) {
	svc, _, _ := newTestAuthService(t, testConfig())
	if _, err := svc.Refresh(context.Background(), "KK123", "whatever"); !errors.Is(err, ErrRefreshNotEnabled) {
		t.Fatalf("err = %v", err)
	}
	if err := svc.RejectRefreshToken(context.Background(), "whatever"); !errors.Is(err, ErrRefreshNotEnabled) {
		t.Fatalf("err = %v", err)
	}
}

func TestRejectRefreshToken(t *testing.T) {
	cfg := testConfig()
	cfg.RefreshTokenEnabled = true
	svc, users, _ := newTestAuthService(t, cfg)
	seedUser(t, users, "KK123", "test@amida.com", "Testpass123")
	ctx := context.Background()

	result, _ := svc.Login(ctx, "KK123", "Testpass123")
	if err := svc.RejectRefreshToken(ctx, result.RefreshToken); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if err := svc.RejectRefreshToken(ctx, result.RefreshToken); !errors.Is(err, ErrMissingRefreshToken) {
		t.Fatalf("second reject err = %v", err)
	}
	if _, err := svc.Refresh(ctx, "KK123", result.RefreshToken); !errors.Is(err, ErrMissingRefreshToken) {
		t.Fatalf("refresh after reject err = %v", err)
	}
}

func TestUpdatePassword(t *testing.T) {
	svc, users, _ := newTestAuthService(t, testConfig())
	user := seedUser(t, users, "KK123", "test@amida.com", "Testpass123")
	ctx := context.Background()
	oldSalt := user.Salt

	if err := svc.UpdatePassword(ctx, user, "nope", "Newpass456"); !errors.Is(err, ErrIncorrectPassword) {
		t.Fatalf("wrong old password err = %v", err)
	}
	if err := svc.UpdatePassword(ctx, user, "Testpass123", "Newpass456"); err != nil {
		t.Fatalf("update: %v", err)
	}

	saved, _ := users.FindByUsername(ctx, "KK123")
	if saved.Salt == oldSalt {
		t.Fatal("salt was not regenerated")
	}
	if !TestPassword("Newpass456", saved.Salt, saved.Password) {
		t.Fatal("new password does not verify")
	}
	if _, err := svc.Login(ctx, "KK123", "Testpass123"); !errors.Is(err, ErrIncorrectUsernameOrPassword) {
		t.Fatalf("old password still accepted: %v", err)
	}
}

func TestUpdatePasswordRejectsExternalAccount(t *testing.T) {
	svc, users, _ := newTestAuthService(t, testConfig())
	user := seedUser(t, users, "fbuser", "fb@amida.com", "Testpass123")
	provider := "facebook"
	user.Provider = &provider
	_ = users.Save(context.Background(), user)
	user, _ = users.FindByUsername(context.Background(), "fbuser")

	// Rejected regardless of whether the supplied old password matches.
	if err := svc.UpdatePassword(context.Background(), user, "Testpass123", "Newpass456"); !errors.Is(err, ErrExternalAuthUsed) {
		t.Fatalf("err = %v", err)
	}
}

func TestRequestPasswordReset(t *testing.T) {
	svc, users, _ := newTestAuthService(t, testConfig())
	seedUser(t, users, "KK123", "test@amida.com", "Testpass123")
	ctx := context.Background()

	if _, err := svc.RequestPasswordReset(ctx, "missing@amida.com"); !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("unknown email err = %v", err)
	}

	before := time.Now().UTC()
	token, err := svc.RequestPasswordReset(ctx, "test@amida.com")
	if err != nil {
		t.Fatalf("request reset: %v", err)
	}
	if len(token) != 40 {
		t.Fatalf("token length = %d, want 40", len(token))
	}

	saved, _ := users.FindByUsername(ctx, "KK123")
	if saved.ResetToken == nil || *saved.ResetToken != token {
		t.Fatal("reset token not persisted")
	}
	expires := saved.ResetExpires.UTC()
	wantLow := before.Add(time.Hour - time.Minute)
	wantHigh := before.Add(time.Hour + time.Minute)
	if expires.Before(wantLow) || expires.After(wantHigh) {
		t.Fatalf("expiry %v not near now+1h", expires)
	}
}

func TestRequestPasswordResetRejectsExternalAccount(t *testing.T) {
	svc, users, _ := newTestAuthService(t, testConfig())
	user := seedUser(t, users, "fbuser", "fb@amida.com", "Testpass123")
	provider := "facebook"
	user.Provider = &provider
	_ = users.Save(context.Background(), user)

	if _, err := svc.RequestPasswordReset(context.Background(), "fb@amida.com"); !errors.Is(err, ErrExternalAuthUsed) {
		t.Fatalf("err = %v", err)
	}
}

func TestResetPasswordConsumesToken(t *testing.T) {
	svc, users, _ := newTestAuthService(t, testConfig())
	seedUser(t, users, "KK123", "test@amida.com", "Testpass123")
	ctx := context.Background()

	token, _ := svc.RequestPasswordReset(ctx, "test@amida.com")
	if err := svc.ResetPassword(ctx, token, "Newpass456"); err != nil {
		t.Fatalf("reset: %v", err)
	}

	saved, _ := users.FindByUsername(ctx, "KK123")
	if saved.ResetToken != nil || saved.ResetExpires != nil {
		t.Fatal("token fields not cleared after use")
	}
	if _, err := svc.Login(ctx, "KK123", "Newpass456"); err != nil {
		t.Fatalf("login with new password: %v", err)
	}

	// Single use: the consumed token reads as invalid.
	if err := svc.ResetPassword(ctx, token, "Thirdpass789"); !errors.Is(err, ErrResetTokenInvalid) {
		t.Fatalf("reuse err = %v", err)
	}
}

func TestResetPasswordExpiredAndUnknownTokensLookAlike(t *testing.T) {
	svc, users, _ := newTestAuthService(t, testConfig())
	user := seedUser(t, users, "KK123", "test@amida.com", "Testpass123")
	ctx := context.Background()

	token, _ := svc.RequestPasswordReset(ctx, "test@amida.com")
	user, _ = users.FindByUsername(ctx, "KK123")
	expired := time.Now().UTC().Add(-time.Minute)
	user.ResetExpires = &expired
	_ = users.Save(ctx, user)

	errExpired := svc.ResetPassword(ctx, token, "Newpass456")
	errUnknown := svc.ResetPassword(ctx, "deadbeef", "Newpass456")
	if !errors.Is(errExpired, ErrResetTokenInvalid) || !errors.Is(errUnknown, ErrResetTokenInvalid) {
		t.Fatalf("errors differ: expired=%v unknown=%v", errExpired, errUnknown)
	}
}

func TestVerificationFlow(t *testing.T) {
	svc, users, _ := newTestAuthService(t, testConfig())
	seedUser(t, users, "KK123", "test@amida.com", "Testpass123")
	ctx := context.Background()

	token, err := svc.DispatchVerification(ctx, "test@amida.com")
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if len(token) != 40 {
		t.Fatalf("token length = %d", len(token))
	}

	username, err := svc.VerifyingUser(ctx, token)
	if err != nil || username != "KK123" {
		t.Fatalf("verifying user = %q, %v", username, err)
	}

	if err := svc.VerifyAccount(ctx, token); err != nil {
		t.Fatalf("verify: %v", err)
	}
	saved, _ := users.FindByUsername(ctx, "KK123")
	if !saved.IsVerified() {
		t.Fatal("email not marked verified")
	}
	if saved.ContactMethodVerificationToken != nil || saved.ContactMethodToVerify != nil {
		t.Fatal("verification token fields not cleared")
	}

	if err := svc.VerifyAccount(ctx, token); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("reuse err = %v", err)
	}
}

func TestVerifyAccountIdempotentForVerifiedContact(t *testing.T) {
	svc, users, _ := newTestAuthService(t, testConfig())
	seedUser(t, users, "KK123", "test@amida.com", "Testpass123")
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		token, _ := svc.DispatchVerification(ctx, "test@amida.com")
		if err := svc.VerifyAccount(ctx, token); err != nil {
			t.Fatalf("verify round %d: %v", i, err)
		}
	}
	saved, _ := users.FindByUsername(ctx, "KK123")
	if len(saved.VerifiedContactMethods) != 1 {
		t.Fatalf("verified methods = %v", saved.VerifiedContactMethods)
	}
}

func TestSecureVerifyAccount(t *testing.T) {
	svc, users, _ := newTestAuthService(t, testConfig())
	seedUser(t, users, "KK123", "test@amida.com", "Testpass123")
	ctx := context.Background()

	token, _ := svc.DispatchVerification(ctx, "test@amida.com")
	if err := svc.SecureVerifyAccount(ctx, token, "wrong"); !errors.Is(err, ErrPasswordMismatch) {
		t.Fatalf("wrong password err = %v", err)
	}
	if err := svc.SecureVerifyAccount(ctx, token, "Testpass123"); err != nil {
		t.Fatalf("secure verify: %v", err)
	}
	saved, _ := users.FindByUsername(ctx, "KK123")
	if !saved.IsVerified() {
		t.Fatal("email not marked verified")
	}
}

func TestExpiredVerificationTokenTreatedAsAbsent(t *testing.T) {
	svc, users, _ := newTestAuthService(t, testConfig())
	seedUser(t, users, "KK123", "test@amida.com", "Testpass123")
	ctx := context.Background()

	token, _ := svc.DispatchVerification(ctx, "test@amida.com")
	user, _ := users.FindByUsername(ctx, "KK123")
	expired := time.Now().UTC().Add(-time.Minute)
	user.ContactMethodVerificationTokenExpires = &expired
	_ = users.Save(ctx, user)

	if err := svc.VerifyAccount(ctx, token); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("err = %v", err)
	}
}
