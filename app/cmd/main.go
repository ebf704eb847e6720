package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"docqa/app/server"
	"docqa/config"

	"github.com/joho/godotenv"
)

func init() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Fatal("Error loading .env file")
	}
}

func main() {
	cfg, err := config.Load(configPath())
	if err != nil {
		log.Fatal("error loading config: ", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	s := server.NewServer(cfg)
	if err := s.Run(ctx); err != nil {
		log.Fatal("server error: ", err)
	}
	slog.Info("shutdown complete")
}

func configPath() string {
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		return path
	}
	return "config.yaml"
}
