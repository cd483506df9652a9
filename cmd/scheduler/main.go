package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lts-health/exams-api/internal/config"
	schedulingHandler "github.com/lts-health/exams-api/internal/handler/scheduling"
	"github.com/lts-health/exams-api/internal/repository/postgres"
	"github.com/lts-health/exams-api/internal/router"
	resolverService "github.com/lts-health/exams-api/internal/service/resolver"
	schedulingService "github.com/lts-health/exams-api/internal/service/scheduling"
	"github.com/lts-health/exams-api/pkg/logger"
	"github.com/lts-health/exams-api/pkg/metrics"
)

const shutdownGrace = 10 * time.Second

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

	primaryDB, err := postgres.NewDB(cfg.PrimaryDB)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to primary database")
	}
	defer primaryDB.Close()

	secondaryDB, err := postgres.NewDB(cfg.SecondaryDB)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to secondary database")
	}
	defer secondaryDB.Close()

	m := metrics.New("scheduler_api")

	directoryRepo := postgres.NewDirectoryRepository(primaryDB)
	schedulingRepo := postgres.NewSchedulingRepository(secondaryDB)

	resolver := resolverService.NewService(directoryRepo, log)
	schedulings := schedulingService.NewService(schedulingRepo, resolver, log)

	engine := router.NewScheduler(router.SchedulerDeps{
		Config:      cfg,
		Logger:      log,
		Metrics:     m,
		SchedulingH: schedulingHandler.NewHandler(schedulings),
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("scheduler API listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
}
