package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 2000, cfg.Chunking.Size)
	assert.Equal(t, 500, cfg.Chunking.Overlap)
	assert.Equal(t, 10, cfg.Chunking.BatchSize)
	assert.Equal(t, 200, cfg.Retrieval.Overfetch)
	assert.Equal(t, 0.6, cfg.Retrieval.MinSimilarity)
	assert.Equal(t, 10, cfg.Retrieval.DefaultLimit)
	assert.Equal(t, 10, cfg.Agent.LoopBudget)
	assert.Equal(t, 6, cfg.Agent.MemoryWindow)
	assert.Equal(t, "pgvector", cfg.Index.Backend)
	assert.Equal(t, 2*time.Second, cfg.Loader.SettleDelay)
}

func TestLoadReadsYamlAndFillsGaps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  addr: ":9000"
index:
  backend: memory
chunking:
  size: 1000
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, "memory", cfg.Index.Backend)
	assert.Equal(t, 1000, cfg.Chunking.Size)
	// Unset values still default.
	assert.Equal(t, 10, cfg.Chunking.BatchSize)
	assert.Equal(t, 10, cfg.Agent.LoopBudget)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PG_HOST", "db.internal")
	t.Setenv("PG_PORT", "6432")
	t.Setenv("INDEX_BACKEND", "qdrant")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Postgres.Host)
	assert.Equal(t, 6432, cfg.Postgres.Port)
	assert.Equal(t, "qdrant", cfg.Index.Backend)
	assert.Contains(t, cfg.Postgres.ConnString(), "host=db.internal port=6432")
}

func TestLoadRejectsBadYaml(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [not: a map"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}
