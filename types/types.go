package types

import (
	"time"
)

// Document describes one uploaded file. A document is identified by
// (user_id, content_hash) and is immutable once stored.
type Document struct {
	UserID      string    `json:"user_id"`
	Filename    string    `json:"filename"`
	ContentHash string    `json:"content_hash"`
	PageCount   int       `json:"page_count"`
	CharCount   int       `json:"char_count"`
	ChunkCount  int       `json:"chunk_count"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

// Chunk is a contiguous text span of a document, the unit of embedding
// and retrieval. Chunks are created during ingestion and never mutated.
type Chunk struct {
	UserID      string
	Filename    string
	ContentHash string
	Index       int
	Start       int
	End         int
	Text        string
	Embedding   []float32
	UploadedAt  time.Time
}

// Citation references one ranked passage by its position in the result
// list of the retrieval call that produced it.
type Citation struct {
	Rank     int    `json:"rank"`
	Filename string `json:"filename"`
}

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ToolTrace records one tool invocation made while producing a turn.
type ToolTrace struct {
	Tool   string         `json:"tool"`
	Args   map[string]any `json:"args,omitempty"`
	Result string         `json:"result"`
	Failed bool           `json:"failed,omitempty"`
}

// ConversationTurn is one entry of the sliding conversation window.
type ConversationTurn struct {
	Role    Role        `json:"role"`
	Content string      `json:"content"`
	Trace   []ToolTrace `json:"trace,omitempty"`
}

// IngestStatus is the logic-level outcome of an ingestion call.
// Duplicate is a normal outcome, not an error.
type IngestStatus string

const (
	IngestCreated   IngestStatus = "created"
	IngestDuplicate IngestStatus = "duplicate"
)

// IngestResult reports what an ingestion call did.
type IngestResult struct {
	Status          IngestStatus `json:"status"`
	Filename        string       `json:"filename"`
	ContentHash     string       `json:"content_hash"`
	ChunksCommitted int          `json:"chunks_committed"`
	PageCount       int          `json:"page_count,omitempty"`
	CharCount       int          `json:"char_count,omitempty"`
}
