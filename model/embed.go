package model

import (
	"context"
)

// Embedder converts text into a fixed-length vector. Ingestion and
// query-time embedding must go through the same implementation so both
// live in the same vector space.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}
