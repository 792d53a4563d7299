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

	"github.com/sahti/patient-portal/internal/cleanup"
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

	logg := logger.New("cleanup-worker", cfg.LogLevel)

	db, err := database.NewConnection(&cfg.Database, logg)
	if err != nil {
		logg.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	objects := storage.NewClient(cfg.Storage, logg)
	medicalTests := repository.NewMedicalTestRepository(db.DB, logg)
	resetCodes := repository.NewResetCodeRepository(db.DB, logg)
	metrics := monitoring.NewMetricsCollector("cleanup-worker")

	service := cleanup.NewService(objects, medicalTests, cfg.Retention, logg)

	health := monitoring.NewHealthManager("cleanup-worker")
	health.RegisterChecker("database", func(ctx context.Context) error {
		return db.PingContext(ctx)
	})

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", metrics.Handler())
	metricsMux.Handle("/health", health.Handler())
	metricsServer := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: metricsMux,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logg.WithError(err).Error("Metrics server failed")
		}
	}()

	initialDelay := time.Duration(cfg.Retention.InitialDelayMin) * time.Minute
	interval := time.Duration(cfg.Retention.IntervalHours) * time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sweep := func() {
		runCtx, runCancel := context.WithTimeout(ctx, 10*time.Minute)
		defer runCancel()

		result, err := service.Run(runCtx)
		if err != nil {
			logg.WithError(err).Error("Retention sweep failed")
			return
		}
		metrics.RecordCleanup(result.DeletedCount, result.FreedMB*1024*1024)

		// Stale reset codes ride along with the file sweep.
		expired, err := resetCodes.DeleteExpired(runCtx, time.Now())
		if err != nil {
			logg.WithError(err).Error("Failed to delete expired reset codes")
			return
		}
		if expired > 0 {
			logg.WithField("expired_codes", expired).Info("Deleted expired reset codes")
		}
	}

	go func() {
		logg.WithFields(map[string]interface{}{
			"initial_delay": initialDelay.String(),
			"interval":      interval.String(),
		}).Info("Starting cleanup worker")

		// First sweep is delayed so the worker does not hammer storage
		// right after a deploy.
		select {
		case <-time.After(initialDelay):
		case <-ctx.Done():
			return
		}
		sweep()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				sweep()
			case <-ctx.Done():
				return
			}
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logg.Info("Shutting down cleanup worker...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logg.WithError(err).Error("Error during shutdown")
	}
	logg.Info("Cleanup worker stopped")
}
