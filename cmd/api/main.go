package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"nuge-api/internal/auth"
	"nuge-api/internal/config"
	"nuge-api/internal/database"
	"nuge-api/internal/gateway"
	"nuge-api/internal/repo"
	"nuge-api/internal/server"
	"nuge-api/internal/service"
	"nuge-api/internal/worker"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	db, err := database.NewPostgres(cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := database.Migrate(ctx, db); err != nil {
		logger.Fatal("failed to migrate schema", zap.Error(err))
	}

	paymentRepo := repo.NewPaymentRepo(db)
	userRepo := repo.NewUserRepo(db)
	stripeGateway := gateway.NewStripeGateway(cfg.StripeAPIKey)
	supabase := auth.NewSupabaseClient(cfg.SupabaseURL, cfg.SupabaseKey)

	paymentService := service.NewPaymentService(db, paymentRepo, stripeGateway, logger)
	webhookService := service.NewWebhookService(db, paymentRepo, cfg.StripeWebhookSecret, logger)

	reconciler := worker.NewReconciliationWorker(
		db, paymentRepo, stripeGateway, cfg.ReconcileInterval, cfg.ReconcileAfter, logger,
	)
	go reconciler.Run(ctx)

	srv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: server.New(cfg, logger, db, paymentService, webhookService, supabase, userRepo).Handler(),
	}

	go func() {
		logger.Info("nuge api listening", zap.String("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("server exited")
}
