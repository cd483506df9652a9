package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lts-health/exams-api/internal/config"
	"github.com/lts-health/exams-api/internal/repository/postgres"
	tokenService "github.com/lts-health/exams-api/internal/service/token"
	"github.com/lts-health/exams-api/internal/worker"
	"github.com/lts-health/exams-api/pkg/auth"
	"github.com/lts-health/exams-api/pkg/logger"
	"github.com/lts-health/exams-api/pkg/metrics"
)

const defaultCleanupInterval = time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(&logger.Config{
		Level:      logger.ParseLevel(cfg.Logging.Level),
		TimeFormat: time.RFC3339,
		Output:     os.Stdout,
		Pretty:     cfg.Logging.Pretty,
	})

	jwtSvc, err := auth.NewJWTService(cfg.JWT.Secret)
	if err != nil {
		log.Fatal().Err(err).Msg("refusing to start with a weak JWT secret")
	}

	primaryDB, err := postgres.NewDB(cfg.PrimaryDB)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to primary database")
	}
	defer primaryDB.Close()

	interval := defaultCleanupInterval
	if raw := os.Getenv("CLEANUP_INTERVAL"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			log.Fatal().Str("value", raw).Msg("CLEANUP_INTERVAL must be a duration like 30s or 2m")
		}
		interval = parsed
	}

	m := metrics.New("exams_worker")
	tokenRepo := postgres.NewTokenRepository(primaryDB)
	tokens := tokenService.NewService(tokenRepo, jwtSvc, cfg.Credentials, cfg.JWT.TokenTTL, m, log)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		cancel()
	}()

	worker.NewTokenCleanup(tokens, interval, log).Run(ctx)
}
