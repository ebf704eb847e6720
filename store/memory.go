package store

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"docqa/types"
)

// MemoryIndex is an in-process VectorIndex used by tests and the dev
// profile. Exact cosine scoring over everything in the namespace.
type MemoryIndex struct {
	mu         sync.RWMutex
	namespaces map[string]map[string]Point
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{namespaces: make(map[string]map[string]Point)}
}

func (m *MemoryIndex) Upsert(ctx context.Context, namespace string, points []Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ns, ok := m.namespaces[namespace]
	if !ok {
		ns = make(map[string]Point)
		m.namespaces[namespace] = ns
	}
	for _, p := range points {
		ns[pointID(namespace, p)] = p
	}
	return nil
}

func (m *MemoryIndex) Query(ctx context.Context, namespace string, vector []float32, topK int, f Filter) ([]Match, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("empty query vector")
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matches []Match
	for _, p := range m.namespaces[namespace] {
		if !matchesFilter(p, f) {
			continue
		}
		matches = append(matches, Match{
			ContentHash: p.ContentHash,
			ChunkIndex:  p.ChunkIndex,
			Filename:    p.Filename,
			Text:        p.Text,
			Similarity:  cosine(vector, p.Vector),
		})
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Similarity > matches[j].Similarity })
	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func (m *MemoryIndex) Delete(ctx context.Context, namespace string, f Filter) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ns := m.namespaces[namespace]
	for id, p := range ns {
		if matchesFilter(p, f) {
			delete(ns, id)
		}
	}
	return nil
}

func (m *MemoryIndex) Count(ctx context.Context, namespace string, f Filter) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, p := range m.namespaces[namespace] {
		if matchesFilter(p, f) {
			count++
		}
	}
	return count, nil
}

func matchesFilter(p Point, f Filter) bool {
	if f.Filename != "" && p.Filename != f.Filename {
		return false
	}
	if f.ContentHash != "" && p.ContentHash != f.ContentHash {
		return false
	}
	return true
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// MemoryRegistry is the in-process DocumentRegistry twin of MemoryIndex.
type MemoryRegistry struct {
	mu   sync.RWMutex
	docs map[string]map[string]types.Document // user -> content hash -> doc
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{docs: make(map[string]map[string]types.Document)}
}

func (r *MemoryRegistry) RegisterDocument(ctx context.Context, doc types.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	byHash, ok := r.docs[doc.UserID]
	if !ok {
		byHash = make(map[string]types.Document)
		r.docs[doc.UserID] = byHash
	}
	byHash[doc.ContentHash] = doc
	return nil
}

func (r *MemoryRegistry) ListDocuments(ctx context.Context, userID string) ([]types.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var docs []types.Document
	for _, d := range r.docs[userID] {
		docs = append(docs, d)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].UploadedAt.After(docs[j].UploadedAt) })
	return docs, nil
}

func (r *MemoryRegistry) DeleteDocument(ctx context.Context, userID, filename string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	deleted := false
	for hash, d := range r.docs[userID] {
		if d.Filename == filename {
			delete(r.docs[userID], hash)
			deleted = true
		}
	}
	if !deleted {
		return types.ErrDocumentNotFound
	}
	return nil
}

func (r *MemoryRegistry) GetDocumentByHash(ctx context.Context, userID, contentHash string) (*types.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if d, ok := r.docs[userID][contentHash]; ok {
		return &d, nil
	}
	return nil, types.ErrDocumentNotFound
}
