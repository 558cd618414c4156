package main

import (
	"context"
	"errors"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	_ "github.com/turdes/auth/docs"
	"github.com/turdes/auth/internal/adapters/events"
	"github.com/turdes/auth/internal/adapters/handler/http"
	"github.com/turdes/auth/internal/adapters/oauth/google"
	"github.com/turdes/auth/internal/adapters/password"
	"github.com/turdes/auth/internal/adapters/repository/postgres"
	"github.com/turdes/auth/internal/config"
	"github.com/turdes/auth/internal/core/ports"
	"github.com/turdes/auth/internal/core/services"
	"github.com/turdes/auth/internal/logging"
	"github.com/turdes/auth/internal/telemetry"
)

const serviceName = "turdes-auth"

// @title                       Auth API
// @version                     1.0
// @description                 User registration, login and session token management.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	logger, err := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatal().Err(err).Msg("init logger")
	}
	log.Logger = logger

	cleanup, err := telemetry.Init(ctx, serviceName, cfg.OTLPEndpoint, logger)
	if err != nil {
		log.Fatal().Err(err).Msg("init otel")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := cleanup(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown otel")
		}
	}()

	db, err := postgres.Open(ctx, cfg.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("connect database")
	}
	defer db.Close()

	if cfg.AutoMigrate {
		if err := postgres.Migrate(ctx, db, logger); err != nil {
			log.Fatal().Err(err).Msg("migrate database")
		}
	}

	gormDB, err := postgres.NewGorm(db)
	if err != nil {
		log.Fatal().Err(err).Msg("open gorm session")
	}

	userRepo := postgres.NewUserRepository(gormDB)
	auditRepo := postgres.NewAuditRepository(gormDB)

	sessions, err := services.NewSessionManager(userRepo, services.SessionConfig{
		Secret:              []byte(cfg.JWTSecret),
		Issuer:              cfg.JWTIssuer,
		AccessTTL:           cfg.AccessTokenTTL,
		RefreshTTL:          cfg.RefreshTokenTTL,
		RotateRefreshTokens: cfg.RotateRefreshToken,
	}, logger)
	if err != nil {
		log.Fatal().Err(err).Msg("init session manager")
	}

	hasher, err := password.NewArgon2Hasher(password.DefaultParams)
	if err != nil {
		log.Fatal().Err(err).Msg("init password hasher")
	}

	var publisher ports.EventPublisher = events.NewNoopPublisher()
	if cfg.NATSURL != "" {
		natsPublisher, err := events.NewNATSPublisher(cfg.NATSURL, nats.Name(serviceName))
		if err != nil {
			log.Fatal().Err(err).Msg("connect nats")
		}
		defer natsPublisher.Close()
		publisher = natsPublisher
	}

	authOpts := []services.AuthOption{
		services.WithAuditRepository(auditRepo),
		services.WithEventPublisher(publisher),
		services.WithLogger(logger),
	}
	if cfg.GoogleClientID != "" {
		authOpts = append(authOpts, services.WithGoogle(google.NewVerifier(), cfg.GoogleClientID))
	}

	authService := services.NewAuthService(userRepo, sessions, hasher, authOpts...)
	userService := services.NewUserService(userRepo)

	handler := http.NewHandler(http.RouterOptions{
		AuthHandler:        http.NewAuthHandler(authService),
		UserHandler:        http.NewUserHandler(userService),
		Local:              http.NewLocalVerifier(authService),
		Bearer:             http.NewBearerVerifier(sessions, userService),
		GoogleEnabled:      cfg.GoogleClientID != "",
		AllowedOrigins:     cfg.AllowedOrigins,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		DB:                 db,
		Logger:             logger,
	})

	server := &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           otelhttp.NewHandler(handler, serviceName),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("starting auth server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("gracefully shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown server")
	}
}
