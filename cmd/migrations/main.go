package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/turdes/auth/internal/adapters/repository/postgres"
	"github.com/turdes/auth/internal/config"
)

// Usage: migrations <up|down|status|version|redo|reset> [args...]
func main() {
	if len(os.Args) < 2 {
		log.Fatal().Msg("a goose command is required (up, down, status, ...)")
	}
	command, args := os.Args[1], os.Args[2:]

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	log.Logger = logger

	cfg, err := config.LoadDatabase(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	db, err := postgres.Open(ctx, cfg.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("connect database")
	}
	defer db.Close()

	if err := postgres.RunMigrations(ctx, db, logger, command, args...); err != nil {
		log.Fatal().Err(err).Msg("run migrations")
	}
	log.Info().Str("command", command).Msg("migrations finished")
}
