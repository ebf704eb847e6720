package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"docqa/config"
	"docqa/loader"
	"docqa/model"
	"docqa/store"

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

	backends, err := store.Open(ctx, cfg)
	if err != nil {
		log.Fatal("error opening stores: ", err)
	}
	defer backends.Close()

	embedder := model.NewOllamaEmbedder(
		cfg.Ollama.URL,
		cfg.Ollama.EmbeddingModel,
		time.Duration(cfg.Ollama.TimeoutSecs)*time.Second,
		cfg.Ollama.RetryAttempts,
	)

	pipeline := loader.NewPipeline(embedder, backends.Index, backends.Registry, cfg.Chunking)
	daemon, err := loader.NewDaemon(pipeline, cfg.Loader)
	if err != nil {
		log.Fatal("error creating daemon: ", err)
	}

	if err := daemon.Run(ctx); err != nil {
		log.Fatal("daemon error: ", err)
	}
	slog.Info("shutdown complete")
}

func configPath() string {
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		return path
	}
	return "config.yaml"
}
