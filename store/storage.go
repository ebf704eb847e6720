package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"docqa/types"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// PostgresStore backs both the vector index and the document registry
// with a single pgvector-enabled database.
type PostgresStore struct {
	pool      *pgxpool.Pool
	dimension int
	logger    *slog.Logger
}

func NewPostgresStore(ctx context.Context, connStr string, dimension int) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{
		pool:      pool,
		dimension: dimension,
		logger:    slog.Default().With("component", "pgstore"),
	}, nil
}

// Init creates the schema. Safe to call on every start.
func (s *PostgresStore) Init(ctx context.Context) error {
	query := fmt.Sprintf(`
	CREATE EXTENSION IF NOT EXISTS vector;

	CREATE TABLE IF NOT EXISTS documents (
		user_id TEXT NOT NULL,
		filename TEXT NOT NULL,
		content_hash TEXT NOT NULL,
		page_count INT NOT NULL DEFAULT 0,
		char_count INT NOT NULL DEFAULT 0,
		chunk_count INT NOT NULL DEFAULT 0,
		uploaded_at TIMESTAMP WITH TIME ZONE NOT NULL,
		PRIMARY KEY (user_id, content_hash)
	);

	CREATE TABLE IF NOT EXISTS chunks (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		content_hash TEXT NOT NULL,
		filename TEXT NOT NULL,
		chunk_index INT NOT NULL,
		content TEXT NOT NULL,
		uploaded_at TIMESTAMP WITH TIME ZONE NOT NULL,
		embedding vector(%d)
	);

	CREATE INDEX IF NOT EXISTS idx_chunks_embedding ON chunks USING ivfflat (embedding vector_cosine_ops)
	WITH (lists = 100);

	CREATE INDEX IF NOT EXISTS idx_chunks_user ON chunks(user_id);
	CREATE INDEX IF NOT EXISTS idx_chunks_hash ON chunks(user_id, content_hash);
	CREATE INDEX IF NOT EXISTS idx_chunks_filename ON chunks(user_id, filename);
	`, s.dimension)
	_, err := s.pool.Exec(ctx, query)
	return err
}

// pointID builds the deterministic chunk key. Concurrent uploads of the
// same bytes race in the dedup probe; deterministic IDs make the losing
// writer an idempotent overwrite instead of a duplicate row.
func pointID(namespace string, p Point) string {
	return fmt.Sprintf("%s:%s:%d", namespace, p.ContentHash, p.ChunkIndex)
}

func (s *PostgresStore) Upsert(ctx context.Context, namespace string, points []Point) error {
	query := `
	INSERT INTO chunks (id, user_id, content_hash, filename, chunk_index, content, uploaded_at, embedding)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (id) DO UPDATE SET
		content = EXCLUDED.content,
		uploaded_at = EXCLUDED.uploaded_at,
		embedding = EXCLUDED.embedding
	`
	for _, p := range points {
		_, err := s.pool.Exec(ctx, query,
			pointID(namespace, p), namespace, p.ContentHash, p.Filename,
			p.ChunkIndex, p.Text, p.UploadedAt, pgvector.NewVector(p.Vector),
		)
		if err != nil {
			return fmt.Errorf("%w: %v", types.ErrIndexService, err)
		}
	}
	return nil
}

func (s *PostgresStore) Query(ctx context.Context, namespace string, vector []float32, topK int, f Filter) ([]Match, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("empty query vector")
	}

	var sb strings.Builder
	sb.WriteString(`
	SELECT filename, content_hash, chunk_index, content, 1 - (embedding <=> $1) AS similarity
	FROM chunks
	WHERE user_id = $2`)
	args := []any{pgvector.NewVector(vector), namespace}
	args = appendFilter(&sb, args, f)
	sb.WriteString(fmt.Sprintf(" ORDER BY embedding <=> $1 LIMIT %d", topK))

	rows, err := s.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrIndexService, err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var m Match
		if err := rows.Scan(&m.Filename, &m.ContentHash, &m.ChunkIndex, &m.Text, &m.Similarity); err != nil {
			return nil, fmt.Errorf("%w: %v", types.ErrIndexService, err)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func (s *PostgresStore) Delete(ctx context.Context, namespace string, f Filter) error {
	var sb strings.Builder
	sb.WriteString("DELETE FROM chunks WHERE user_id = $1")
	args := []any{namespace}
	args = appendFilter(&sb, args, f)
	if _, err := s.pool.Exec(ctx, sb.String(), args...); err != nil {
		return fmt.Errorf("%w: %v", types.ErrIndexService, err)
	}
	return nil
}

func (s *PostgresStore) Count(ctx context.Context, namespace string, f Filter) (int, error) {
	var sb strings.Builder
	sb.WriteString("SELECT count(*) FROM chunks WHERE user_id = $1")
	args := []any{namespace}
	args = appendFilter(&sb, args, f)

	var count int
	if err := s.pool.QueryRow(ctx, sb.String(), args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: %v", types.ErrIndexService, err)
	}
	return count, nil
}

func appendFilter(sb *strings.Builder, args []any, f Filter) []any {
	if f.Filename != "" {
		args = append(args, f.Filename)
		fmt.Fprintf(sb, " AND filename = $%d", len(args))
	}
	if f.ContentHash != "" {
		args = append(args, f.ContentHash)
		fmt.Fprintf(sb, " AND content_hash = $%d", len(args))
	}
	return args
}

func (s *PostgresStore) RegisterDocument(ctx context.Context, doc types.Document) error {
	query := `
	INSERT INTO documents (user_id, filename, content_hash, page_count, char_count, chunk_count, uploaded_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (user_id, content_hash) DO UPDATE SET
		filename = EXCLUDED.filename,
		chunk_count = EXCLUDED.chunk_count,
		uploaded_at = EXCLUDED.uploaded_at
	`
	_, err := s.pool.Exec(ctx, query,
		doc.UserID, doc.Filename, doc.ContentHash,
		doc.PageCount, doc.CharCount, doc.ChunkCount, doc.UploadedAt,
	)
	return err
}

func (s *PostgresStore) ListDocuments(ctx context.Context, userID string) ([]types.Document, error) {
	rows, err := s.pool.Query(ctx, `
	SELECT user_id, filename, content_hash, page_count, char_count, chunk_count, uploaded_at
	FROM documents WHERE user_id = $1 ORDER BY uploaded_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []types.Document
	for rows.Next() {
		var d types.Document
		if err := rows.Scan(&d.UserID, &d.Filename, &d.ContentHash,
			&d.PageCount, &d.CharCount, &d.ChunkCount, &d.UploadedAt); err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (s *PostgresStore) DeleteDocument(ctx context.Context, userID, filename string) error {
	tag, err := s.pool.Exec(ctx,
		"DELETE FROM documents WHERE user_id = $1 AND filename = $2", userID, filename)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return types.ErrDocumentNotFound
	}
	return nil
}

func (s *PostgresStore) GetDocumentByHash(ctx context.Context, userID, contentHash string) (*types.Document, error) {
	var d types.Document
	err := s.pool.QueryRow(ctx, `
	SELECT user_id, filename, content_hash, page_count, char_count, chunk_count, uploaded_at
	FROM documents WHERE user_id = $1 AND content_hash = $2`, userID, contentHash).
		Scan(&d.UserID, &d.Filename, &d.ContentHash, &d.PageCount, &d.CharCount, &d.ChunkCount, &d.UploadedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrDocumentNotFound
		}
		return nil, err
	}
	return &d, nil
}

// Close closes the connection pool.
func (s *PostgresStore) Close() error {
	if s.pool != nil {
		s.pool.Close()
		s.logger.Info("postgres connection pool closed")
	}
	return nil
}
