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

	"github.com/safar/inventory-store/internal/api"
	"github.com/safar/inventory-store/internal/config"
	"github.com/safar/inventory-store/internal/database"
	"github.com/safar/inventory-store/internal/inventory"
	"github.com/safar/inventory-store/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Load config: %v", err)
	}

	lg, err := logger.Init(cfg.Env)
	if err != nil {
		log.Fatalf("Init logger: %v", err)
	}
	defer logger.Sync()

	bootCtx, bootCancel := context.WithTimeout(context.Background(), 30*time.Second)
	db, created, err := database.Bootstrap(bootCtx, &cfg.Database)
	bootCancel()
	if err != nil {
		lg.Fatal("Bootstrap database", zap.Error(err))
	}
	defer db.Close()

	lg.Info("Connected to database",
		zap.String("database", cfg.Database.DatabaseName()),
		zap.Bool("created", created))

	repo := inventory.NewRepository(db, lg)
	handler := api.NewHandler(repo, lg)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		lg.Info("Server starting", zap.String("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Fatal("Server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	lg.Info("Shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		lg.Warn("Server forced to shutdown", zap.Error(err))
	}
}
