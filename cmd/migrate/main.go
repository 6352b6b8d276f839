package main

import (
	"context"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/safar/inventory-store/internal/config"
	"github.com/safar/inventory-store/internal/database"
	"github.com/safar/inventory-store/internal/logger"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: migrate [up|down]")
	}

	direction := os.Args[1]
	if direction != "up" && direction != "down" {
		log.Fatal("Direction must be 'up' or 'down'")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Load config: %v", err)
	}

	lg, err := logger.Init(cfg.Env)
	if err != nil {
		log.Fatalf("Init logger: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if direction == "up" {
		db, created, err := database.Bootstrap(ctx, &cfg.Database)
		if err != nil {
			lg.Fatal("Bootstrap database", zap.Error(err))
		}
		db.Close()

		lg.Info("Schema is up to date",
			zap.String("database", cfg.Database.DatabaseName()),
			zap.Bool("database_created", created))
		return
	}

	db, err := database.NewConnection(&cfg.Database)
	if err != nil {
		lg.Fatal("Connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := database.DropTables(ctx, db); err != nil {
		lg.Fatal("Drop tables", zap.Error(err))
	}

	lg.Info("Dropped inventory tables", zap.String("database", cfg.Database.DatabaseName()))
}
