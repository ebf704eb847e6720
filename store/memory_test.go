package store

import (
	"context"
	"testing"
	"time"

	"docqa/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedPoint(hash string, index int, filename, text string, vector []float32) Point {
	return Point{
		ContentHash: hash,
		ChunkIndex:  index,
		Filename:    filename,
		Text:        text,
		Vector:      vector,
		UploadedAt:  time.Now(),
	}
}

func TestMemoryIndexQueryRanksBySimilarity(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex()

	require.NoError(t, idx.Upsert(ctx, "alice", []Point{
		seedPoint("h1", 0, "a.txt", "close", []float32{1, 0}),
		seedPoint("h1", 1, "a.txt", "far", []float32{0, 1}),
		seedPoint("h2", 0, "b.txt", "middle", []float32{1, 1}),
	}))

	matches, err := idx.Query(ctx, "alice", []float32{1, 0}, 10, Filter{})
	require.NoError(t, err)
	require.Len(t, matches, 3)
	assert.Equal(t, "close", matches[0].Text)
	assert.Equal(t, "middle", matches[1].Text)
	assert.Equal(t, "far", matches[2].Text)
	assert.InDelta(t, 1.0, matches[0].Similarity, 1e-9)
}

func TestMemoryIndexTopKAndFilter(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex()

	require.NoError(t, idx.Upsert(ctx, "alice", []Point{
		seedPoint("h1", 0, "a.txt", "one", []float32{1, 0}),
		seedPoint("h1", 1, "a.txt", "two", []float32{1, 0.1}),
		seedPoint("h2", 0, "b.txt", "three", []float32{1, 0.2}),
	}))

	matches, err := idx.Query(ctx, "alice", []float32{1, 0}, 2, Filter{})
	require.NoError(t, err)
	assert.Len(t, matches, 2)

	matches, err = idx.Query(ctx, "alice", []float32{1, 0}, 10, Filter{Filename: "b.txt"})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "three", matches[0].Text)
}

func TestMemoryIndexNamespaceIsolation(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex()

	require.NoError(t, idx.Upsert(ctx, "alice", []Point{
		seedPoint("h1", 0, "a.txt", "private", []float32{1, 0}),
	}))

	matches, err := idx.Query(ctx, "bob", []float32{1, 0}, 10, Filter{})
	require.NoError(t, err)
	assert.Empty(t, matches)

	count, err := idx.Count(ctx, "bob", Filter{})
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestMemoryIndexUpsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex()

	p := seedPoint("h1", 0, "a.txt", "text", []float32{1, 0})
	require.NoError(t, idx.Upsert(ctx, "alice", []Point{p}))
	require.NoError(t, idx.Upsert(ctx, "alice", []Point{p}))

	count, err := idx.Count(ctx, "alice", Filter{ContentHash: "h1"})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMemoryIndexDelete(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex()

	require.NoError(t, idx.Upsert(ctx, "alice", []Point{
		seedPoint("h1", 0, "a.txt", "one", []float32{1, 0}),
		seedPoint("h1", 1, "a.txt", "two", []float32{1, 0}),
		seedPoint("h2", 0, "b.txt", "three", []float32{1, 0}),
	}))

	require.NoError(t, idx.Delete(ctx, "alice", Filter{Filename: "a.txt"}))

	count, err := idx.Count(ctx, "alice", Filter{})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMemoryRegistry(t *testing.T) {
	ctx := context.Background()
	reg := NewMemoryRegistry()

	older := types.Document{
		UserID: "alice", Filename: "old.txt", ContentHash: "h1",
		ChunkCount: 2, UploadedAt: time.Now().Add(-time.Hour),
	}
	newer := types.Document{
		UserID: "alice", Filename: "new.txt", ContentHash: "h2",
		ChunkCount: 3, UploadedAt: time.Now(),
	}
	require.NoError(t, reg.RegisterDocument(ctx, older))
	require.NoError(t, reg.RegisterDocument(ctx, newer))

	docs, err := reg.ListDocuments(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "new.txt", docs[0].Filename)

	doc, err := reg.GetDocumentByHash(ctx, "alice", "h1")
	require.NoError(t, err)
	assert.Equal(t, "old.txt", doc.Filename)

	_, err = reg.GetDocumentByHash(ctx, "bob", "h1")
	assert.ErrorIs(t, err, types.ErrDocumentNotFound)

	require.NoError(t, reg.DeleteDocument(ctx, "alice", "old.txt"))
	assert.ErrorIs(t, reg.DeleteDocument(ctx, "alice", "old.txt"), types.ErrDocumentNotFound)

	docs, err = reg.ListDocuments(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}
