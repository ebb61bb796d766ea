package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/dropDatabas3/weasl/internal/config"
	"github.com/dropDatabas3/weasl/internal/http/server"
	"github.com/dropDatabas3/weasl/internal/observability/logger"
)

func main() {
	configPath := flag.String("config", os.Getenv("WEASL_CONFIG"), "Path to YAML config (optional, env overrides it)")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("could not load .env: %v", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger.Init(logger.Config{
		Env:         cfg.App.Env,
		Level:       cfg.App.LogLevel,
		ServiceName: "weasl",
		Version:     cfg.App.Version,
	})
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Run(ctx, cfg); err != nil {
		logger.L().Error("server exited", logger.Err(err))
		logger.Sync()
		os.Exit(1)
	}
}
