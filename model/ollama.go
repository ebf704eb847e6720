package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"time"

	"docqa/types"
)

// OllamaEmbedder implements Embedder against the ollama embeddings API.
type OllamaEmbedder struct {
	apiURL   string
	model    string
	client   *http.Client
	attempts int
	logger   *slog.Logger
}

type ollamaEmbeddingRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbeddingResponse struct {
	Embedding []float64 `json:"embedding"`
}

// NewOllamaEmbedder creates an embedder talking to the ollama server at
// apiURL using the given model. attempts bounds retries per call.
func NewOllamaEmbedder(apiURL, model string, timeout time.Duration, attempts int) *OllamaEmbedder {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	if attempts <= 0 {
		attempts = 3
	}
	return &OllamaEmbedder{
		apiURL:   apiURL,
		model:    model,
		client:   &http.Client{Timeout: timeout},
		attempts: attempts,
		logger:   slog.Default().With("component", "embedder"),
	}
}

// Embed requests a single embedding, retrying transient failures with
// exponential backoff before surfacing ErrEmbeddingService.
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	var lastErr error
	backoff := 500 * time.Millisecond
	for attempt := 0; attempt < e.attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
		vec, err := e.embedOnce(ctx, text)
		if err == nil {
			return vec, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		e.logger.Warn("embedding attempt failed", "attempt", attempt+1, "error", err)
	}
	return nil, fmt.Errorf("%w: %v", types.ErrEmbeddingService, lastErr)
}

// EmbedBatch embeds texts one by one; the embeddings endpoint accepts a
// single prompt per call, so batching here only bounds caller memory.
func (e *OllamaEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors[i] = vec
	}
	return vectors, nil
}

func (e *OllamaEmbedder) embedOnce(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(ollamaEmbeddingRequest{Model: e.model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.apiURL+"/api/embeddings", bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ollama API error: status %d, body: %s", resp.StatusCode, string(respBody))
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var embResp ollamaEmbeddingResponse
	if err := json.Unmarshal(respBody, &embResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if len(embResp.Embedding) == 0 {
		return nil, fmt.Errorf("empty embedding for %d chars of input", len(text))
	}

	norm := normalize(embResp.Embedding)
	embedding := make([]float32, len(norm))
	for i, v := range norm {
		embedding[i] = float32(v)
	}
	return embedding, nil
}

// normalize scales the vector to unit length so cosine similarity can be
// computed as a plain dot product by every index backend.
func normalize(vec []float64) []float64 {
	var sum float64
	for _, v := range vec {
		sum += v * v
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		return vec
	}
	out := make([]float64, len(vec))
	for i, v := range vec {
		out[i] = v / norm
	}
	return out
}
