package loader

import (
	"context"
	"strings"
	"testing"

	"docqa/config"
	"docqa/store"
	"docqa/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEmbedder struct {
	batchCalls int
	failAtCall int // 0 means never fail
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0}, nil
}

func (s *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	s.batchCalls++
	if s.failAtCall > 0 && s.batchCalls >= s.failAtCall {
		return nil, types.ErrEmbeddingService
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

func newTestPipeline(embedder *stubEmbedder) (*Pipeline, *store.MemoryIndex, *store.MemoryRegistry) {
	idx := store.NewMemoryIndex()
	reg := store.NewMemoryRegistry()
	cfg := config.ChunkingConfig{Size: 100, Overlap: 20, BatchSize: 2}
	return NewPipeline(embedder, idx, reg, cfg), idx, reg
}

func TestIngestNewDocument(t *testing.T) {
	ctx := context.Background()
	embedder := &stubEmbedder{}
	pipeline, idx, reg := newTestPipeline(embedder)

	raw := []byte(strings.Repeat("abcdefghij", 30)) // 300 chars -> 4 fragments
	result, err := pipeline.Ingest(ctx, "alice", "notes.txt", raw)
	require.NoError(t, err)

	assert.Equal(t, types.IngestCreated, result.Status)
	assert.Equal(t, "notes.txt", result.Filename)
	assert.Equal(t, Fingerprint(raw), result.ContentHash)
	assert.Equal(t, 4, result.ChunksCommitted)
	assert.Equal(t, 2, embedder.batchCalls)

	count, err := idx.Count(ctx, "alice", store.Filter{ContentHash: result.ContentHash})
	require.NoError(t, err)
	assert.Equal(t, 4, count)

	doc, err := reg.GetDocumentByHash(ctx, "alice", result.ContentHash)
	require.NoError(t, err)
	assert.Equal(t, 4, doc.ChunkCount)
	assert.Equal(t, 300, doc.CharCount)
}

func TestIngestDuplicateIsNoOp(t *testing.T) {
	ctx := context.Background()
	embedder := &stubEmbedder{}
	pipeline, _, _ := newTestPipeline(embedder)

	raw := []byte(strings.Repeat("content ", 40))
	first, err := pipeline.Ingest(ctx, "alice", "notes.txt", raw)
	require.NoError(t, err)
	require.Equal(t, types.IngestCreated, first.Status)

	callsAfterFirst := embedder.batchCalls
	second, err := pipeline.Ingest(ctx, "alice", "renamed.txt", raw)
	require.NoError(t, err)

	assert.Equal(t, types.IngestDuplicate, second.Status)
	assert.Equal(t, first.ContentHash, second.ContentHash)
	assert.Zero(t, second.ChunksCommitted)
	assert.Equal(t, callsAfterFirst, embedder.batchCalls, "duplicate must not re-embed")
}

func TestIngestSameContentDifferentUsers(t *testing.T) {
	ctx := context.Background()
	embedder := &stubEmbedder{}
	pipeline, idx, _ := newTestPipeline(embedder)

	raw := []byte(strings.Repeat("shared ", 30))
	first, err := pipeline.Ingest(ctx, "alice", "doc.txt", raw)
	require.NoError(t, err)
	require.Equal(t, types.IngestCreated, first.Status)

	second, err := pipeline.Ingest(ctx, "bob", "doc.txt", raw)
	require.NoError(t, err)
	assert.Equal(t, types.IngestCreated, second.Status, "dedup is per user")

	count, err := idx.Count(ctx, "bob", store.Filter{})
	require.NoError(t, err)
	assert.Equal(t, second.ChunksCommitted, count)
}

func TestIngestPartialFailureReportsCommitted(t *testing.T) {
	ctx := context.Background()
	embedder := &stubEmbedder{failAtCall: 2}
	pipeline, idx, reg := newTestPipeline(embedder)

	raw := []byte(strings.Repeat("abcdefghij", 30)) // 4 fragments, 2 batches
	_, err := pipeline.Ingest(ctx, "alice", "notes.txt", raw)
	require.Error(t, err)

	var procErr *types.ProcessingError
	require.ErrorAs(t, err, &procErr)
	assert.Equal(t, 2, procErr.Committed)
	assert.ErrorIs(t, err, types.ErrEmbeddingService)

	// The first batch stays indexed.
	count, err := idx.Count(ctx, "alice", store.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// The document is not registered.
	_, err = reg.GetDocumentByHash(ctx, "alice", Fingerprint(raw))
	assert.ErrorIs(t, err, types.ErrDocumentNotFound)

	// A retry of the same bytes sees the leftover chunks and reports a
	// duplicate; recovery is delete then re-upload.
	embedder.failAtCall = 0
	result, err := pipeline.Ingest(ctx, "alice", "notes.txt", raw)
	require.NoError(t, err)
	assert.Equal(t, types.IngestDuplicate, result.Status)
}

func TestIngestRejectsBinaryGarbage(t *testing.T) {
	ctx := context.Background()
	pipeline, _, _ := newTestPipeline(&stubEmbedder{})

	_, err := pipeline.Ingest(ctx, "alice", "blob.bin", []byte{0xff, 0xfe, 0x00, 0x81})
	assert.ErrorIs(t, err, types.ErrExtractionFailed)

	_, err = pipeline.Ingest(ctx, "alice", "empty.txt", nil)
	assert.ErrorIs(t, err, types.ErrExtractionFailed)
}
