package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"docqa/config"
	"docqa/model"
	"docqa/store"
)

// NoContextMessage is returned to the caller when retrieval finds
// nothing above the similarity floor.
const NoContextMessage = "No relevant passages found."

// RankedChunk is one retrieved passage with its 1-based rank.
type RankedChunk struct {
	Rank       int     `json:"rank"`
	Filename   string  `json:"filename"`
	Text       string  `json:"text"`
	Similarity float64 `json:"similarity"`
}

// Engine answers similarity queries over a user's namespace. It
// overfetches from the index, drops weak and duplicate matches, and
// ranks what is left.
type Engine struct {
	embedder model.Embedder
	index    store.VectorIndex
	cfg      config.RetrievalConfig
	logger   *slog.Logger
}

func NewEngine(embedder model.Embedder, index store.VectorIndex, cfg config.RetrievalConfig) *Engine {
	return &Engine{
		embedder: embedder,
		index:    index,
		cfg:      cfg,
		logger:   slog.Default().With("component", "retrieval"),
	}
}

// Retrieve returns up to limit chunks relevant to query from the user's
// namespace, best first. A limit of zero falls back to the configured
// default. An empty result is not an error.
func (e *Engine) Retrieve(ctx context.Context, userID, query string, limit int) ([]RankedChunk, error) {
	return e.RetrieveFrom(ctx, userID, query, "", limit)
}

// RetrieveFrom is Retrieve scoped to a single document when filename is
// non-empty.
func (e *Engine) RetrieveFrom(ctx context.Context, userID, query, filename string, limit int) ([]RankedChunk, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("empty query")
	}
	if limit <= 0 {
		limit = e.cfg.DefaultLimit
	}

	vector, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	matches, err := e.index.Query(ctx, userID, vector, e.cfg.Overfetch, store.Filter{Filename: filename})
	if err != nil {
		return nil, err
	}

	// The index may hold the same chunk more than once across backends
	// or after re-ingestion; keep the best-scoring copy.
	seen := make(map[string]bool)
	var ranked []RankedChunk
	for _, m := range matches {
		if m.Similarity < e.cfg.MinSimilarity {
			continue
		}
		key := fmt.Sprintf("%s:%d", m.ContentHash, m.ChunkIndex)
		if seen[key] {
			continue
		}
		seen[key] = true
		ranked = append(ranked, RankedChunk{
			Rank:       len(ranked) + 1,
			Filename:   m.Filename,
			Text:       m.Text,
			Similarity: m.Similarity,
		})
		if len(ranked) == limit {
			break
		}
	}

	e.logger.Debug("retrieval pass",
		"user", userID, "candidates", len(matches), "kept", len(ranked))
	return ranked, nil
}

// FormatContext renders chunks into the numbered block the answering
// model cites from, one "[rank] (filename) text" entry per chunk.
func FormatContext(chunks []RankedChunk) string {
	if len(chunks) == 0 {
		return NoContextMessage
	}
	var sb strings.Builder
	for i, c := range chunks {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "[%d] (%s) %s", c.Rank, c.Filename, c.Text)
	}
	return sb.String()
}
