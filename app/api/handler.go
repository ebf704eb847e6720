package api

import (
	"io"
	"log/slog"
	"time"

	"docqa/agent"
	"docqa/loader"
	"docqa/store"
	"docqa/types"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// RequestHandler serves the question-answering and document routes. The
// user namespace is resolved by middleware before any handler runs.
type RequestHandler struct {
	orchestrator *agent.Orchestrator
	pipeline     *loader.Pipeline
	index        store.VectorIndex
	registry     store.DocumentRegistry
	sessions     *agent.Sessions
	logger       *slog.Logger
}

func NewRequestHandler(orchestrator *agent.Orchestrator, pipeline *loader.Pipeline, index store.VectorIndex, registry store.DocumentRegistry, sessions *agent.Sessions) *RequestHandler {
	return &RequestHandler{
		orchestrator: orchestrator,
		pipeline:     pipeline,
		index:        index,
		registry:     registry,
		sessions:     sessions,
		logger:       slog.Default().With("component", "api"),
	}
}

// HandleAsk answers one question within the caller's session. A missing
// X-Session-ID starts a fresh conversation and returns its id.
func (h *RequestHandler) HandleAsk(c *fiber.Ctx) error {
	userID := userID(c)

	var params types.AskParams
	if c.BodyParser(&params) != nil {
		return ErrBadRequest()
	}
	if errors := types.Validate(&params); len(errors) > 0 {
		return NewValidationError(errors)
	}

	sessionID := c.Get("X-Session-ID")
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	memory := h.sessions.Get(userID, sessionID)

	answer, err := h.orchestrator.Answer(c.Context(), userID, params.Question, memory)
	if err != nil {
		return err
	}

	return c.JSON(&types.AskResponse{
		Answer:    answer.Text,
		Citations: answer.Citations,
		SessionID: sessionID,
		Timestamp: time.Now().UTC(),
	})
}

// HandleUpload ingests one multipart file into the caller's namespace.
func (h *RequestHandler) HandleUpload(c *fiber.Ctx) error {
	userID := userID(c)

	file, err := c.FormFile("file")
	if err != nil {
		return ErrBadRequest()
	}
	f, err := file.Open()
	if err != nil {
		return err
	}
	defer f.Close()
	raw, err := io.ReadAll(f)
	if err != nil {
		return err
	}

	result, err := h.pipeline.Ingest(c.Context(), userID, file.Filename, raw)
	if err != nil {
		return err
	}

	status := fiber.StatusCreated
	if result.Status == types.IngestDuplicate {
		status = fiber.StatusOK
	}
	return c.Status(status).JSON(&types.UploadResponse{
		Status:          result.Status,
		Filename:        result.Filename,
		ContentHash:     result.ContentHash,
		ChunksCommitted: result.ChunksCommitted,
	})
}

// HandleListDocuments lists the caller's stored documents, newest first.
func (h *RequestHandler) HandleListDocuments(c *fiber.Ctx) error {
	docs, err := h.registry.ListDocuments(c.Context(), userID(c))
	if err != nil {
		return err
	}

	infos := make([]types.DocumentInfo, len(docs))
	for i, d := range docs {
		infos[i] = types.DocumentInfo{
			Filename:   d.Filename,
			UploadedAt: d.UploadedAt,
			ChunkCount: d.ChunkCount,
		}
	}
	return c.JSON(infos)
}

// HandleDeleteDocument removes a document and all of its indexed chunks
// from the caller's namespace.
func (h *RequestHandler) HandleDeleteDocument(c *fiber.Ctx) error {
	userID := userID(c)
	filename := c.Params("filename")
	if filename == "" {
		return ErrBadRequest()
	}

	if err := h.index.Delete(c.Context(), userID, store.Filter{Filename: filename}); err != nil {
		return err
	}
	if err := h.registry.DeleteDocument(c.Context(), userID, filename); err != nil {
		return err
	}

	h.logger.Info("deleted document", "user", userID, "filename", filename)
	return c.SendStatus(fiber.StatusNoContent)
}

func userID(c *fiber.Ctx) string {
	id, _ := c.Locals("userID").(string)
	return id
}
