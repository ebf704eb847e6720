package store

import (
	"context"
	"time"

	"docqa/types"
)

// Point is one embedded chunk as stored in a vector index.
type Point struct {
	ContentHash string
	ChunkIndex  int
	Filename    string
	Text        string
	Vector      []float32
	UploadedAt  time.Time
}

// Match is one similarity hit returned by a query.
type Match struct {
	ContentHash string
	ChunkIndex  int
	Filename    string
	Text        string
	Similarity  float64
}

// Filter narrows index operations within a namespace. The namespace
// itself (one per user) is a separate argument on every call: user
// isolation is enforced by construction, not by filter discipline.
type Filter struct {
	Filename    string
	ContentHash string
}

// VectorIndex is the vector database boundary. Implementations must be
// safe for concurrent use and must never let a query cross namespaces.
type VectorIndex interface {
	Upsert(ctx context.Context, namespace string, points []Point) error
	// Query returns up to topK matches ordered by descending similarity.
	Query(ctx context.Context, namespace string, vector []float32, topK int, f Filter) ([]Match, error)
	Delete(ctx context.Context, namespace string, f Filter) error
	Count(ctx context.Context, namespace string, f Filter) (int, error)
}

// DocumentRegistry is the relational metadata boundary for uploaded
// documents.
type DocumentRegistry interface {
	RegisterDocument(ctx context.Context, doc types.Document) error
	ListDocuments(ctx context.Context, userID string) ([]types.Document, error)
	DeleteDocument(ctx context.Context, userID, filename string) error
	GetDocumentByHash(ctx context.Context, userID, contentHash string) (*types.Document, error)
}
