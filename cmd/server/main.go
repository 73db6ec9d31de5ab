package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"voice-campaign/internal/app"
	"voice-campaign/internal/config"
	"voice-campaign/internal/logger"

	"go.uber.org/zap"
)

func main() {
	cfg := config.LoadConfig()
	if err := logger.Init(cfg.LogMode); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()

	a, err := app.New(cfg)
	if err != nil {
		logger.L().Fatal("Failed to start", zap.Error(err))
	}
	defer a.Close()

	go a.Hub.Run()

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: a.Router(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("Server starting",
			zap.String("port", cfg.Port),
			zap.String("telephony", cfg.TelephonyMode),
			zap.String("base_url", cfg.BaseURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.L().Fatal("Failed to run server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	if err := a.Scheduler.Stop(); err == nil {
		a.Scheduler.Wait()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Server shutdown", zap.Error(err))
	}
}
