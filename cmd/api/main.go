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
	analysisHandler "github.com/lts-health/exams-api/internal/handler/analysis"
	auditHandler "github.com/lts-health/exams-api/internal/handler/audit"
	authHandler "github.com/lts-health/exams-api/internal/handler/auth"
	examHandler "github.com/lts-health/exams-api/internal/handler/exam"
	healthHandler "github.com/lts-health/exams-api/internal/handler/health"
	orderHandler "github.com/lts-health/exams-api/internal/handler/order"
	"github.com/lts-health/exams-api/internal/repository/postgres"
	"github.com/lts-health/exams-api/internal/router"
	analysisService "github.com/lts-health/exams-api/internal/service/analysis"
	auditService "github.com/lts-health/exams-api/internal/service/audit"
	examService "github.com/lts-health/exams-api/internal/service/exam"
	orderService "github.com/lts-health/exams-api/internal/service/order"
	resolverService "github.com/lts-health/exams-api/internal/service/resolver"
	tokenService "github.com/lts-health/exams-api/internal/service/token"
	"github.com/lts-health/exams-api/pkg/auth"
	"github.com/lts-health/exams-api/pkg/logger"
	"github.com/lts-health/exams-api/pkg/metrics"

	"github.com/jmoiron/sqlx"
)

const (
	applicationName = "exams-api"
	shutdownGrace   = 10 * time.Second
)

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

	secondaryDB, err := postgres.NewDB(cfg.SecondaryDB)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to secondary database")
	}
	defer secondaryDB.Close()

	m := metrics.New("exams_api")

	tokenRepo := postgres.NewTokenRepository(primaryDB)
	directoryRepo := postgres.NewDirectoryRepository(primaryDB)
	examRepo := postgres.NewExamRepository(primaryDB)
	analysisRepo := postgres.NewAnalysisRepository(primaryDB)
	auditRepo := postgres.NewAuditRepository(primaryDB)
	orderRepo := postgres.NewOrderRepository(secondaryDB)

	tokens := tokenService.NewService(tokenRepo, jwtSvc, cfg.Credentials, cfg.JWT.TokenTTL, m, log)
	resolver := resolverService.NewService(directoryRepo, log)
	audits := auditService.NewService(auditRepo, m, applicationName, cfg.PrimaryDB.User, log)
	exams := examService.NewService(examRepo, resolver, log)
	analyses := analysisService.NewService(analysisRepo, resolver, audits, log)
	orders := orderService.NewService(orderRepo, resolver, log)

	engine := router.New(router.Deps{
		Config:    cfg,
		Logger:    log,
		Metrics:   m,
		Tokens:    tokens,
		AuthH:     authHandler.NewHandler(tokens),
		ExamH:     examHandler.NewHandler(exams),
		AnalysisH: analysisHandler.NewHandler(analyses),
		OrderH:    orderHandler.NewHandler(orders),
		AuditH:    auditHandler.NewHandler(audits, resolver),
		HealthH: healthHandler.NewHandler(map[string]*sqlx.DB{
			"primary":   primaryDB,
			"secondary": secondaryDB,
		}),
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("exams API listening")
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
