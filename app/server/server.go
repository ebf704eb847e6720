package server

import (
	"context"
	"log/slog"
	"time"

	"docqa/agent"
	"docqa/app/api"
	"docqa/app/middleware"
	"docqa/config"
	"docqa/loader"
	"docqa/model"
	"docqa/retrieval"
	"docqa/store"

	"github.com/gofiber/fiber/v2"
)

var fiberConfig = fiber.Config{
	ErrorHandler: api.ErrorHandler,
	BodyLimit:    50 * 1024 * 1024,
}

// Server wires the stores, models and handlers together and runs the
// HTTP API.
type Server struct {
	cfg    *config.Config
	app    *fiber.App
	logger *slog.Logger
}

func NewServer(cfg *config.Config) *Server {
	return &Server{
		cfg:    cfg,
		logger: slog.Default().With("component", "server"),
	}
}

func (s *Server) Run(ctx context.Context) error {
	backends, err := store.Open(ctx, s.cfg)
	if err != nil {
		return err
	}
	defer backends.Close()

	embedder := model.NewOllamaEmbedder(
		s.cfg.Ollama.URL,
		s.cfg.Ollama.EmbeddingModel,
		time.Duration(s.cfg.Ollama.TimeoutSecs)*time.Second,
		s.cfg.Ollama.RetryAttempts,
	)
	chat := model.NewOllamaChat(
		s.cfg.Ollama.URL,
		s.cfg.Ollama.ChatModel,
		s.cfg.Ollama.Temperature,
		time.Duration(s.cfg.Ollama.TimeoutSecs)*time.Second,
	)

	engine := retrieval.NewEngine(embedder, backends.Index, s.cfg.Retrieval)
	summarizer := agent.NewSummarizer(chat)
	orchestrator := agent.NewOrchestrator(chat, engine, backends.Registry, summarizer, s.cfg.Agent)
	pipeline := loader.NewPipeline(embedder, backends.Index, backends.Registry, s.cfg.Chunking)
	sessions := agent.NewSessions(s.cfg.Agent.MemoryWindow)

	var (
		app            = fiber.New(fiberConfig)
		checkHandler   = api.NewCheckHandler()
		requestHandler = api.NewRequestHandler(orchestrator, pipeline, backends.Index, backends.Registry, sessions)
		check          = app.Group("/check")
		apiv1          = app.Group("/api/v1", middleware.RequireUser())
	)
	s.app = app

	check.Get("/healthy", checkHandler.HandleHealthy)
	apiv1.Post("/ask", requestHandler.HandleAsk)
	apiv1.Post("/documents", requestHandler.HandleUpload)
	apiv1.Get("/documents", requestHandler.HandleListDocuments)
	apiv1.Delete("/documents/:filename", requestHandler.HandleDeleteDocument)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			s.logger.Error("shutdown error", "error", err)
		}
	}()

	s.logger.Info("server listening", "addr", s.cfg.Server.Addr, "backend", s.cfg.Index.Backend)
	return app.Listen(s.cfg.Server.Addr)
}
