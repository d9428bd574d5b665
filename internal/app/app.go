package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	nats "github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/amida-tech/amida-auth-microservice/config"
	httpadapter "github.com/amida-tech/amida-auth-microservice/internal/adapters/http"
	"github.com/amida-tech/amida-auth-microservice/internal/adapters/http/handlers"
	authmw "github.com/amida-tech/amida-auth-microservice/internal/adapters/http/middleware"
	"github.com/amida-tech/amida-auth-microservice/internal/adapters/mailer"
	natsadapter "github.com/amida-tech/amida-auth-microservice/internal/adapters/nats"
	repo "github.com/amida-tech/amida-auth-microservice/internal/adapters/postgres"
	"github.com/amida-tech/amida-auth-microservice/internal/domain"
	"github.com/amida-tech/amida-auth-microservice/internal/usecase"
	pkglog "github.com/amida-tech/amida-auth-microservice/pkg/log"
)

type App struct {
	cfg      *config.Config
	logger   pkglog.Logger
	db       *gorm.DB
	redis    *redis.Client
	natsConn *nats.Conn
	echo     *echo.Echo
}

func New(ctx context.Context) (*App, error) {
	cfg := config.MustLoad()
	log := pkglog.New(cfg.AppEnv)

	db, err := gorm.Open(postgres.Open(buildDSN(cfg)), &gorm.Config{
		Logger:         loggerForGorm(cfg),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&domain.User{}, &domain.RefreshToken{}); err != nil {
		return nil, err
	}

	userRepo := repo.NewUserRepository(db)
	refreshRepo := repo.NewRefreshTokenRepository(db)

	signer, err := usecase.NewJWTSigner(cfg)
	if err != nil {
		return nil, err
	}

	authService := usecase.NewAuthService(cfg, log, userRepo, refreshRepo, signer)
	userService := usecase.NewUserService(cfg, log, userRepo)
	if err := userService.SeedAdmin(ctx); err != nil {
		return nil, err
	}

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	}

	var nc *nats.Conn
	if cfg.NATSURL != "" {
		nc, err = nats.Connect(cfg.NATSURL)
		if err != nil {
			log.Warn().Err(err).Msg("nats connect failed, verification endpoint disabled")
			nc = nil
		}
	}
	if nc != nil {
		verifyHandler := natsadapter.NewVerifyHandler(signer)
		if err := verifyHandler.Subscribe(nc, cfg.NATSVerifySubject, cfg.AppName); err != nil {
			log.Warn().Err(err).Msg("nats subscribe failed")
		}
	}

	authHandler := handlers.NewAuthHandler(cfg, log, authService, mailer.New(cfg))
	userHandler := handlers.NewUserHandler(cfg, log, userService)
	authMW := authmw.NewAuthMiddleware(signer, userRepo)
	router := httpadapter.NewRouter(
		cfg,
		authHandler,
		userHandler,
		authMW.Handler,
		authmw.RequireAdmin(),
		authmw.NewRateLimit(cfg, rdb),
	)

	e := echo.New()
	router.Setup(e)

	return &App{cfg: cfg, logger: log, db: db, redis: rdb, natsConn: nc, echo: e}, nil
}

func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = a.echo.Shutdown(shutdownCtx)
	}()
	go func() {
		errCh <- a.echo.Start(fmt.Sprintf("%s:%s", a.cfg.HTTPHost, a.cfg.HTTPPort))
	}()
	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (a *App) Close() {
	if a.natsConn != nil {
		_ = a.natsConn.Drain()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.db != nil {
		if sqlDB, err := a.db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}

func buildDSN(cfg *config.Config) string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBSSLMode)
}

func loggerForGorm(cfg *config.Config) logger.Interface {
	level := logger.Warn
	if cfg.AppEnv == "development" {
		level = logger.Info
	}
	return logger.Default.LogMode(level)
}
