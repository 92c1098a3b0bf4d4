package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/StephanieCaroll/Sustentech-sub000/internal/config"
	"github.com/StephanieCaroll/Sustentech-sub000/internal/feed"
	"github.com/StephanieCaroll/Sustentech-sub000/internal/httpserver"
	"github.com/StephanieCaroll/Sustentech-sub000/internal/security"
	"github.com/StephanieCaroll/Sustentech-sub000/internal/store/sqlite"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Structured logger
	var logger *zap.Logger
	if cfg.Debug {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	// Initialize database
	db, err := sqlite.Open(cfg.DatabasePath)
	if err != nil {
		sugar.Fatalw("failed to open database", "err", err)
	}
	defer db.Close()

	if err := sqlite.Migrate(db); err != nil {
		sugar.Fatalw("failed to run migrations", "err", err)
	}

	// Identity accessor
	tokenSvc := security.NewTokenService(cfg.JWTSecret, time.Duration(cfg.AccessTokenMinutes)*time.Minute)

	// Realtime change feed
	events := feed.New()

	// Build HTTP router
	router := httpserver.NewRouter(cfg, db, events, tokenSvc, sugar)

	srv := &http.Server{
		Addr:         cfg.HTTPAddr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	go func() {
		sugar.Infow("starting server", "addr", cfg.HTTPAddr(), "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sugar.Fatalw("server error", "err", err)
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	sugar.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		sugar.Warnw("graceful shutdown failed", "err", err)
	}
}
