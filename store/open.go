package store

import (
	"context"
	"fmt"

	"docqa/config"
)

// Backends bundles the vector index and document registry selected by
// configuration.
type Backends struct {
	Index    VectorIndex
	Registry DocumentRegistry

	closers []func() error
}

// Open connects the backend named by cfg.Index.Backend and runs its
// schema setup. The qdrant backend keeps the document registry in
// Postgres since qdrant only stores points.
func Open(ctx context.Context, cfg *config.Config) (*Backends, error) {
	switch cfg.Index.Backend {
	case "pgvector":
		pg, err := NewPostgresStore(ctx, cfg.Postgres.ConnString(), cfg.Index.Dimension)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := pg.Init(ctx); err != nil {
			pg.Close()
			return nil, fmt.Errorf("init postgres schema: %w", err)
		}
		return &Backends{Index: pg, Registry: pg, closers: []func() error{pg.Close}}, nil

	case "qdrant":
		qd, err := NewQdrantStore(cfg.Qdrant.Host, cfg.Qdrant.Port, cfg.Qdrant.Collection, cfg.Index.Dimension)
		if err != nil {
			return nil, fmt.Errorf("connect qdrant: %w", err)
		}
		if err := qd.Init(ctx); err != nil {
			qd.Close()
			return nil, fmt.Errorf("init qdrant collection: %w", err)
		}
		pg, err := NewPostgresStore(ctx, cfg.Postgres.ConnString(), cfg.Index.Dimension)
		if err != nil {
			qd.Close()
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := pg.Init(ctx); err != nil {
			qd.Close()
			pg.Close()
			return nil, fmt.Errorf("init postgres schema: %w", err)
		}
		return &Backends{Index: qd, Registry: pg, closers: []func() error{qd.Close, pg.Close}}, nil

	case "memory":
		return &Backends{Index: NewMemoryIndex(), Registry: NewMemoryRegistry()}, nil

	default:
		return nil, fmt.Errorf("unknown index backend %q", cfg.Index.Backend)
	}
}

func (b *Backends) Close() error {
	var first error
	for _, close := range b.closers {
		if err := close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
