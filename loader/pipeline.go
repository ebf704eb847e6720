package loader

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"docqa/config"
	"docqa/model"
	"docqa/store"
	"docqa/types"
)

// Pipeline runs the full ingestion path for one upload: hash, dedup
// probe, extract, fragment, embed in batches and index, then register
// the document.
type Pipeline struct {
	embedder model.Embedder
	index    store.VectorIndex
	registry store.DocumentRegistry
	cfg      config.ChunkingConfig
	logger   *slog.Logger
}

func NewPipeline(embedder model.Embedder, index store.VectorIndex, registry store.DocumentRegistry, cfg config.ChunkingConfig) *Pipeline {
	return &Pipeline{
		embedder: embedder,
		index:    index,
		registry: registry,
		cfg:      cfg,
		logger:   slog.Default().With("component", "pipeline"),
	}
}

// Ingest processes one upload into the user's namespace. Re-uploading
// byte-identical content is a no-op reported as IngestDuplicate. The
// duplicate probe checks for any indexed chunk of the hash, so a file
// that previously failed mid-ingest is also reported as a duplicate;
// recovery is DeleteDocument followed by a fresh upload.
func (p *Pipeline) Ingest(ctx context.Context, userID, filename string, raw []byte) (types.IngestResult, error) {
	hash := Fingerprint(raw)

	existing, err := p.index.Count(ctx, userID, store.Filter{ContentHash: hash})
	if err != nil {
		return types.IngestResult{}, fmt.Errorf("duplicate probe: %w", err)
	}
	if existing > 0 {
		p.logger.Info("skipping duplicate upload", "user", userID, "filename", filename, "hash", hash)
		return types.IngestResult{
			Status:      types.IngestDuplicate,
			Filename:    filename,
			ContentHash: hash,
		}, nil
	}

	ext, err := Extract(filename, raw)
	if err != nil {
		return types.IngestResult{}, err
	}

	fragments := FragmentText(ext.Text, p.cfg.Size, p.cfg.Overlap)
	if len(fragments) == 0 {
		return types.IngestResult{}, fmt.Errorf("%w: %s produced no indexable text", types.ErrExtractionFailed, filename)
	}

	now := time.Now().UTC()
	committed := 0
	for start := 0; start < len(fragments); start += p.cfg.BatchSize {
		if err := ctx.Err(); err != nil {
			return types.IngestResult{}, &types.ProcessingError{Committed: committed, Err: err}
		}

		end := start + p.cfg.BatchSize
		if end > len(fragments) {
			end = len(fragments)
		}
		batch := fragments[start:end]

		texts := make([]string, len(batch))
		for i, f := range batch {
			texts[i] = f.Text
		}
		vectors, err := p.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return types.IngestResult{}, &types.ProcessingError{Committed: committed, Err: err}
		}

		points := make([]store.Point, len(batch))
		for i, f := range batch {
			points[i] = store.Point{
				ContentHash: hash,
				ChunkIndex:  f.Index,
				Filename:    filename,
				Text:        f.Text,
				Vector:      vectors[i],
				UploadedAt:  now,
			}
		}
		if err := p.index.Upsert(ctx, userID, points); err != nil {
			return types.IngestResult{}, &types.ProcessingError{Committed: committed, Err: err}
		}
		committed += len(batch)
	}

	doc := types.Document{
		UserID:      userID,
		Filename:    filename,
		ContentHash: hash,
		PageCount:   ext.Pages,
		CharCount:   ext.Chars,
		ChunkCount:  committed,
		UploadedAt:  now,
	}
	if err := p.registry.RegisterDocument(ctx, doc); err != nil {
		return types.IngestResult{}, &types.ProcessingError{Committed: committed, Err: err}
	}

	p.logger.Info("ingested document",
		"user", userID, "filename", filename, "hash", hash,
		"chunks", committed, "pages", ext.Pages, "chars", ext.Chars)

	return types.IngestResult{
		Status:          types.IngestCreated,
		Filename:        filename,
		ContentHash:     hash,
		ChunksCommitted: committed,
		PageCount:       ext.Pages,
		CharCount:       ext.Chars,
	}, nil
}
