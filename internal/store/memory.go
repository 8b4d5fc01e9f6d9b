package store

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"inboxai/internal/models"
)

// MemoryStore keeps records and embeddings in process memory and scans
// them with cosine similarity. It backs tests and single-user dev runs;
// the qdrant and pgvector adapters are the deployable backends.
type MemoryStore struct {
	mu       sync.RWMutex
	records  []models.EmailRecord
	byID     map[string]int
	embedder Embedder
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(embedder Embedder) *MemoryStore {
	return &MemoryStore{
		byID:     make(map[string]int),
		embedder: embedder,
	}
}

// Add inserts records whose ids are not yet present. Records without an
// embedding are embedded from their document text first.
func (m *MemoryStore) Add(ctx context.Context, records []models.EmailRecord) (int, error) {
	var missing []int
	var texts []string

	m.mu.Lock()
	defer m.mu.Unlock()

	added := 0
	for i, r := range records {
		if _, exists := m.byID[r.ID]; exists {
			continue
		}
		if len(r.Embedding) == 0 {
			missing = append(missing, i)
			texts = append(texts, r.Document())
			continue
		}
		m.byID[r.ID] = len(m.records)
		m.records = append(m.records, r)
		added++
	}

	if len(missing) > 0 {
		if m.embedder == nil {
			return added, fmt.Errorf("no embedder configured for %d records without embeddings", len(missing))
		}
		embeddings, err := m.embedder.Embed(ctx, texts)
		if err != nil {
			return added, fmt.Errorf("embedding %d records: %w", len(missing), err)
		}
		for j, i := range missing {
			r := records[i]
			if _, exists := m.byID[r.ID]; exists {
				continue
			}
			r.Embedding = embeddings[j]
			m.byID[r.ID] = len(m.records)
			m.records = append(m.records, r)
			added++
		}
	}

	return added, nil
}

// Search embeds the query and scans all matching records, returning the
// top hits by cosine similarity.
func (m *MemoryStore) Search(ctx context.Context, query string, limit int, filter Filter) ([]models.SearchHit, error) {
	if m.embedder == nil {
		return nil, fmt.Errorf("no embedder configured")
	}
	embeddings, err := m.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	queryVec := embeddings[0]

	m.mu.RLock()
	defer m.mu.RUnlock()

	var hits []models.SearchHit
	for _, r := range m.records {
		if !filter.Matches(r) {
			continue
		}
		sim := cosineSimilarity(queryVec, r.Embedding)
		hits = append(hits, models.SearchHit{
			ID:        r.ID,
			Document:  r.Document(),
			Record:    r,
			Distance:  1 - sim,
			Relevance: sim,
		})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Relevance > hits[j].Relevance
	})

	if limit > 0 && limit < len(hits) {
		hits = hits[:limit]
	}
	return hits, nil
}

// FetchByAttribute returns every record whose attribute equals value.
func (m *MemoryStore) FetchByAttribute(ctx context.Context, field string, value any) ([]models.EmailRecord, error) {
	filter := Eq(field, value)

	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.EmailRecord
	for _, r := range m.records {
		if filter.Matches(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

// FetchAll returns up to limit records in insertion order.
func (m *MemoryStore) FetchAll(ctx context.Context, limit int) ([]models.EmailRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := len(m.records)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]models.EmailRecord, n)
	copy(out, m.records[:n])
	return out, nil
}

// Count returns the number of stored records.
func (m *MemoryStore) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records), nil
}

// Clear removes everything.
func (m *MemoryStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = nil
	m.byID = make(map[string]int)
	return nil
}

// cosineSimilarity computes cosine similarity between two vectors.
// Mismatched or zero-norm vectors score 0.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
