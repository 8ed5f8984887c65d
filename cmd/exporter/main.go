package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/exporter3/internal/exporter"
	"github.com/dmitrijs2005/exporter3/internal/exporter/config"
	"github.com/dmitrijs2005/exporter3/internal/logging"
)

func main() {
	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.NewJSONLogger(os.Stdout, cfg.LogLevel)

	app, err := exporter.NewApp(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer app.Close()

	if err := app.Run(ctx); err != nil {
		logger.Error(ctx, "exporter failed", "error", err)
		app.Close()
		os.Exit(1)
	}
}
