package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"giveaway_payout_service/internal/app"
	"giveaway_payout_service/internal/infra/config"
	idb "giveaway_payout_service/internal/infra/database"
	"giveaway_payout_service/internal/infra/ethereum"
	"giveaway_payout_service/internal/infra/httpapi"
	"giveaway_payout_service/internal/infra/logger"
	"giveaway_payout_service/internal/infra/scheduler"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Get().Fatalf("FATAL: Could not load application configuration: %v", err)
	}

	logger.Init(cfg)
	log := logger.Get()
	log.Infof("Configuration loaded. LogLevel: %s, Environment: %s", cfg.LogLevel, cfg.Environment)

	// Initialize Database Connection
	db, err := idb.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("FATAL: Could not connect to database: %v", err)
	}
	defer db.Close()
	log.Info("Database connection established successfully.")

	// Initialize Repository
	giveawayRepo := idb.NewPostgresGiveawayRepository(db)
	log.Info("Giveaway repository initialized.")

	// Initialize Transfer Executor
	sender, err := ethereum.NewSender(cfg.EthRPCURL, cfg.EthTestRPCURL, cfg.PayoutPrivateKey, log)
	if err != nil {
		log.Fatalf("FATAL: Could not initialize transfer executor: %v", err)
	}
	defer sender.Close()
	log.Info("Transfer executor initialized.")

	// Initialize Application Services
	enrollmentService := app.NewEnrollmentService(giveawayRepo, log)
	statusService := app.NewStatusService(giveawayRepo, log)
	payoutService := app.NewPayoutService(giveawayRepo, sender, log, cfg.TransferTimeout, cfg.MaxPayoutAttempts)
	adminService := app.NewAdminService(giveawayRepo, log)
	log.Info("Application services initialized.")

	// Initialize Payout Scheduler
	payoutScheduler := scheduler.NewPayoutScheduler(payoutService, log, cfg.CronSpecPayout)
	if err := payoutScheduler.Start(); err != nil {
		log.Fatalf("FATAL: Could not start payout scheduler: %v", err)
	}

	// Initialize HTTP Server
	giveawayHandler := httpapi.NewGiveawayHandler(enrollmentService, statusService, payoutService, adminService, cfg.AdminSecret, log)
	router := httpapi.SetupRouter(giveawayHandler)
	server := &http.Server{
		Addr:    cfg.HTTPListenAddr,
		Handler: router,
	}

	go func() {
		log.Infof("HTTP server listening on %s.", cfg.HTTPListenAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("FATAL: HTTP server failed: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit // Block until a signal is received

	log.Info("Shutting down application...")
	payoutScheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Errorf("HTTP server shutdown error: %v", err)
	}
	// sender.Close() and db.Close() are handled by defer
	log.Info("Application shut down gracefully.")
}
