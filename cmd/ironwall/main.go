package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"ironwall/internal/app"
	"ironwall/pkg/config"
	"ironwall/pkg/logger"
)

func main() {
	_ = godotenv.Load(".env")
	cfgPath := flag.String("config", "", "path to yaml config file")
	dbPath := flag.String("db", "", "override storage db path")
	apiURL := flag.String("api", "", "override collaborator base url")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		logger.Init()
		logger.Error("config_load_failed", "error", err)
		os.Exit(1)
	}
	if *dbPath != "" {
		cfg.Storage.DBPath = *dbPath
	}
	if *apiURL != "" {
		cfg.API.BaseURL = *apiURL
	}
	logger.InitWithLevel(cfg.Logging.Level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		logger.Error("startup_failed", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	console := app.NewConsole(a, os.Stdin, os.Stdout)
	if err := console.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("console_failed", "error", err)
		os.Exit(1)
	}
	logger.Info("shutdown_complete")
}
