package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"

	"github.com/sahti/patient-portal/internal/analysis"
	"github.com/sahti/patient-portal/internal/auth"
	"github.com/sahti/patient-portal/internal/cleanup"
	"github.com/sahti/patient-portal/internal/insights"
	"github.com/sahti/patient-portal/internal/profile"
	"github.com/sahti/patient-portal/pkg/config"
	"github.com/sahti/patient-portal/pkg/database"
	"github.com/sahti/patient-portal/pkg/logger"
	"github.com/sahti/patient-portal/pkg/monitoring"
	"github.com/sahti/patient-portal/pkg/repository"
	"github.com/sahti/patient-portal/pkg/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logg := logger.New("insights-service", cfg.LogLevel)

	db, err := database.NewConnection(&cfg.Database, logg)
	if err != nil {
		logg.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})
	defer redisClient.Close()

	// Repositories
	profiles := repository.NewProfileRepository(db.DB, logg)
	medicalTests := repository.NewMedicalTestRepository(db.DB, logg)
	resetCodes := repository.NewResetCodeRepository(db.DB, logg)
	credentials := repository.NewCredentialRepository(db.DB, logg)

	// Monitoring
	metrics := monitoring.NewMetricsCollector("insights-service")
	monitor := monitoring.NewMonitoringMiddleware(metrics, logg)

	// Services
	insightsService := insights.NewService(profiles, medicalTests, metrics, logg)
	profileService := profile.NewService(profiles, logg)

	modelClient := analysis.NewGeminiClient(cfg.Model, logg)
	analysisService := analysis.NewService(modelClient, medicalTests, metrics, logg)

	validator := auth.NewTokenValidator(cfg.JWT)
	mailClient := auth.NewMailClient(cfg.Mail, logg)
	passwords := auth.NewPasswordManager()
	updater := auth.NewPasswordUpdater(cfg.Auth, credentials, passwords, mailClient, logg)
	limiter := auth.NewRedisRateLimiter(redisClient, "password-reset",
		cfg.Auth.ResetRateLimit, time.Duration(cfg.Auth.ResetRateWindow)*time.Second)
	resetService := auth.NewResetService(resetCodes, profiles, mailClient, limiter, updater, validator, metrics, logg)

	objects := storage.NewClient(cfg.Storage, logg)
	cleanupService := cleanup.NewService(objects, medicalTests, cfg.Retention, logg)
	statsHandler := cleanup.NewStatsHandler(cleanupService, redisClient, logg)

	// Auth middleware
	authMiddleware := auth.NewMiddleware(validator, logg)
	health := monitoring.NewHealthManager("insights-service")
	health.RegisterChecker("database", func(ctx context.Context) error {
		return db.PingContext(ctx)
	})
	health.RegisterChecker("redis", func(ctx context.Context) error {
		return redisClient.Ping(ctx).Err()
	})

	// Routing: reset endpoints and health/metrics are public, everything else
	// requires a valid token.
	router := mux.NewRouter()
	router.Use(monitor.HTTPMiddleware)
	router.Handle("/health", health.Handler()).Methods("GET")
	router.Handle("/metrics", metrics.Handler()).Methods("GET")
	resetService.SetupRoutes(router)

	protected := router.PathPrefix("/").Subrouter()
	protected.Use(authMiddleware.Authenticate, authMiddleware.RequirePatient)
	insightsService.SetupRoutes(protected)
	profileService.SetupRoutes(protected)
	analysisService.SetupRoutes(protected)
	statsHandler.SetupRoutes(protected)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	go func() {
		logg.WithField("addr", server.Addr).Info("Starting insights service")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logg.WithError(err).Fatal("Failed to start insights service")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logg.Info("Shutting down insights service...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logg.WithError(err).Error("Error during shutdown")
	}
	logg.Info("Insights service stopped")
}
