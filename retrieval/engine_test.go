package retrieval

import (
	"context"
	"testing"

	"docqa/config"
	"docqa/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEmbedder struct {
	vector []float32
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return s.vector, nil
}

func (s *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = s.vector
	}
	return out, nil
}

type stubIndex struct {
	matches   []store.Match
	gotTopK   int
	gotFilter store.Filter
}

func (s *stubIndex) Upsert(ctx context.Context, namespace string, points []store.Point) error {
	return nil
}

func (s *stubIndex) Query(ctx context.Context, namespace string, vector []float32, topK int, f store.Filter) ([]store.Match, error) {
	s.gotTopK = topK
	s.gotFilter = f
	return s.matches, nil
}

func (s *stubIndex) Delete(ctx context.Context, namespace string, f store.Filter) error {
	return nil
}

func (s *stubIndex) Count(ctx context.Context, namespace string, f store.Filter) (int, error) {
	return len(s.matches), nil
}

func testConfig() config.RetrievalConfig {
	return config.RetrievalConfig{Overfetch: 200, MinSimilarity: 0.6, DefaultLimit: 10}
}

func match(hash string, index int, filename, text string, sim float64) store.Match {
	return store.Match{ContentHash: hash, ChunkIndex: index, Filename: filename, Text: text, Similarity: sim}
}

func TestRetrieveFiltersWeakMatches(t *testing.T) {
	idx := &stubIndex{matches: []store.Match{
		match("h1", 0, "a.txt", "strong", 0.92),
		match("h1", 1, "a.txt", "ok", 0.71),
		match("h2", 0, "b.txt", "weak", 0.42),
	}}
	engine := NewEngine(&stubEmbedder{vector: []float32{1, 0}}, idx, testConfig())

	chunks, err := engine.Retrieve(context.Background(), "alice", "question", 0)
	require.NoError(t, err)

	require.Len(t, chunks, 2)
	assert.Equal(t, 1, chunks[0].Rank)
	assert.Equal(t, "strong", chunks[0].Text)
	assert.Equal(t, 2, chunks[1].Rank)
	assert.Equal(t, "ok", chunks[1].Text)
}

func TestRetrieveDropsDuplicateChunks(t *testing.T) {
	idx := &stubIndex{matches: []store.Match{
		match("h1", 0, "a.txt", "best copy", 0.95),
		match("h1", 0, "a.txt", "worse copy", 0.80),
		match("h1", 1, "a.txt", "other chunk", 0.75),
	}}
	engine := NewEngine(&stubEmbedder{vector: []float32{1, 0}}, idx, testConfig())

	chunks, err := engine.Retrieve(context.Background(), "alice", "question", 0)
	require.NoError(t, err)

	require.Len(t, chunks, 2)
	assert.Equal(t, "best copy", chunks[0].Text)
	assert.Equal(t, "other chunk", chunks[1].Text)
}

func TestRetrieveHonorsLimitAndOverfetch(t *testing.T) {
	var matches []store.Match
	for i := 0; i < 30; i++ {
		matches = append(matches, match("h1", i, "a.txt", "text", 0.9))
	}
	idx := &stubIndex{matches: matches}
	engine := NewEngine(&stubEmbedder{vector: []float32{1, 0}}, idx, testConfig())

	chunks, err := engine.Retrieve(context.Background(), "alice", "question", 0)
	require.NoError(t, err)
	assert.Len(t, chunks, 10, "default limit applies")
	assert.Equal(t, 200, idx.gotTopK, "index sees the overfetch size")

	chunks, err = engine.Retrieve(context.Background(), "alice", "question", 3)
	require.NoError(t, err)
	assert.Len(t, chunks, 3)
}

func TestRetrieveFromScopesToDocument(t *testing.T) {
	idx := &stubIndex{}
	engine := NewEngine(&stubEmbedder{vector: []float32{1, 0}}, idx, testConfig())

	_, err := engine.RetrieveFrom(context.Background(), "alice", "question", "a.txt", 0)
	require.NoError(t, err)
	assert.Equal(t, "a.txt", idx.gotFilter.Filename)
}

func TestRetrieveEmptyQuery(t *testing.T) {
	engine := NewEngine(&stubEmbedder{vector: []float32{1, 0}}, &stubIndex{}, testConfig())
	_, err := engine.Retrieve(context.Background(), "alice", "   ", 0)
	assert.Error(t, err)
}

func TestRetrieveNamespaceIsolation(t *testing.T) {
	ctx := context.Background()
	idx := store.NewMemoryIndex()
	require.NoError(t, idx.Upsert(ctx, "alice", []store.Point{{
		ContentHash: "h1", ChunkIndex: 0, Filename: "a.txt",
		Text: "private", Vector: []float32{1, 0},
	}}))
	engine := NewEngine(&stubEmbedder{vector: []float32{1, 0}}, idx, testConfig())

	chunks, err := engine.Retrieve(ctx, "bob", "anything", 0)
	require.NoError(t, err)
	assert.Empty(t, chunks, "empty result is not an error")
}

func TestFormatContext(t *testing.T) {
	assert.Equal(t, NoContextMessage, FormatContext(nil))

	out := FormatContext([]RankedChunk{
		{Rank: 1, Filename: "a.txt", Text: "first passage"},
		{Rank: 2, Filename: "b.txt", Text: "second passage"},
	})
	assert.Contains(t, out, "[1] (a.txt) first passage")
	assert.Contains(t, out, "[2] (b.txt) second passage")
}
