package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	_ "go.uber.org/automaxprocs"
	"go.uber.org/zap"

	"github.com/Ashenafi-pixel/gamecrafter-rtp-simulator/config"
	"github.com/Ashenafi-pixel/gamecrafter-rtp-simulator/logging"
	"github.com/Ashenafi-pixel/gamecrafter-rtp-simulator/server"
)

func main() {
	// Load .env so DATABASE_URL is set: cwd .env or project root .env/.env.local
	_ = godotenv.Load(".env")
	_ = godotenv.Load("../.env")
	_ = godotenv.Load("../.env.local")
	cfg := config.Load()

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Fatal("init server", zap.Error(err))
	}
	if err := srv.Run(ctx); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
	logger.Info("server stopped")
}
