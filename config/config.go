package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	AppName      string `env:"AUTH_SERVICE_APP_NAME" envDefault:"amida-auth-microservice"`
	AppEnv       string `env:"NODE_ENV" envDefault:"development"`
	HTTPHost     string `env:"AUTH_SERVICE_HTTP_HOST" envDefault:"0.0.0.0"`
	HTTPPort     string `env:"AUTH_SERVICE_PORT" envDefault:"4000"`
	HTTPBasePath string `env:"AUTH_SERVICE_BASE_PATH" envDefault:"/api"`

	DBHost     string `env:"AUTH_SERVICE_PG_HOST" envDefault:"localhost"`
	DBPort     string `env:"AUTH_SERVICE_PG_PORT" envDefault:"5432"`
	DBUser     string `env:"AUTH_SERVICE_PG_USER" envDefault:"postgres"`
	DBPassword string `env:"AUTH_SERVICE_PG_PASSWORD" envDefault:""`
	DBName     string `env:"AUTH_SERVICE_PG_DB" envDefault:"amida_auth"`
	DBSSLMode  string `env:"AUTH_SERVICE_PG_SSL_MODE" envDefault:"disable"`

	// JWTMode selects the signing algorithm: "hmac" (HS256, shared secret)
	// or "rsa" (RS256, key pair read from the configured file paths at
	// startup and held for the process lifetime).
	JWTMode           string `env:"AUTH_SERVICE_JWT_MODE" envDefault:"hmac"`
	JWTSecret         string `env:"JWT_SECRET"`
	JWTPrivateKeyPath string `env:"AUTH_SERVICE_JWT_PRIVATE_KEY_PATH"`
	JWTPublicKeyPath  string `env:"AUTH_SERVICE_JWT_PUBLIC_KEY_PATH"`
	JWTTTL            int    `env:"AUTH_SERVICE_JWT_TTL" envDefault:"3600"`

	RefreshTokenEnabled         bool `env:"AUTH_SERVICE_REFRESH_TOKEN_ENABLED" envDefault:"false"`
	RefreshTokenMultipleDevices bool `env:"AUTH_SERVICE_REFRESH_TOKEN_MULTIPLE_DEVICES" envDefault:"false"`

	RequireVerification       bool `env:"AUTH_SERVICE_REQUIRE_ACCOUNT_VERIFICATION" envDefault:"false"`
	RequireSecureVerification bool `env:"AUTH_SERVICE_REQUIRE_SECURE_ACCOUNT_VERIFICATION" envDefault:"false"`

	// Reset and verification tokens expire this many seconds after issuance.
	ResetTokenTTL        int `env:"AUTH_SERVICE_RESET_TOKEN_TTL" envDefault:"3600"`
	VerificationTokenTTL int `env:"AUTH_SERVICE_VERIFICATION_TOKEN_TTL" envDefault:"3600"`

	OnlyAdminCanCreateUsers bool     `env:"AUTH_SERVICE_ONLY_ADMIN_CAN_CREATE_USERS" envDefault:"true"`
	RegistrarScopes         []string `env:"AUTH_SERVICE_REGISTRAR_SCOPES" envSeparator:","`

	SeedAdminUsername string `env:"AUTH_SERVICE_SEED_ADMIN_USERNAME" envDefault:"admin"`
	SeedAdminEmail    string `env:"AUTH_SERVICE_SEED_ADMIN_EMAIL" envDefault:"admin@default.com"`
	SeedAdminPassword string `env:"AUTH_SERVICE_SEED_ADMIN_PASSWORD"`

	MailerHost        string `env:"AUTH_SERVICE_MAILER_HOST"`
	MailerPort        string `env:"AUTH_SERVICE_MAILER_PORT" envDefault:"587"`
	MailerUser        string `env:"AUTH_SERVICE_MAILER_EMAIL_ID"`
	MailerPassword    string `env:"AUTH_SERVICE_MAILER_PASSWORD"`
	MailerFromAddress string `env:"AUTH_SERVICE_MAILER_FROM_EMAIL_ADDRESS"`

	// Empty RedisAddr disables rate limiting entirely.
	RedisAddr       string        `env:"AUTH_SERVICE_REDIS_ADDR"`
	RedisPassword   string        `env:"AUTH_SERVICE_REDIS_PASSWORD"`
	RateLimitMax    int           `env:"AUTH_SERVICE_RATE_LIMIT_MAX" envDefault:"10"`
	RateLimitWindow time.Duration `env:"AUTH_SERVICE_RATE_LIMIT_WINDOW" envDefault:"1m"`

	// Empty NATSURL disables the request/reply verification endpoint.
	NATSURL           string `env:"NATS_URL"`
	NATSVerifySubject string `env:"NATS_SUBJECT_VERIFY_JWT" envDefault:"auth.verifyJWT"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}
