package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/qdrant/go-client/qdrant"

	"inboxai/internal/models"
)

// QdrantStore is the primary vector store adapter, backed by a qdrant
// collection over gRPC.
type QdrantStore struct {
	client     *qdrant.Client
	collection string
	embedder   Embedder
	dimensions int
}

// QdrantConfig carries connection settings for the qdrant backend.
type QdrantConfig struct {
	Host       string
	Port       int
	APIKey     string
	UseTLS     bool
	Collection string
	Dimensions int
}

// NewQdrantStore connects to qdrant and ensures the email collection
// exists with cosine distance.
func NewQdrantStore(ctx context.Context, cfg QdrantConfig, embedder Embedder) (*QdrantStore, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	s := &QdrantStore{
		client:     client,
		collection: cfg.Collection,
		embedder:   embedder,
		dimensions: cfg.Dimensions,
	}

	if err := s.ensureCollection(ctx); err != nil {
		return nil, err
	}

	if count, err := s.Count(ctx); err == nil {
		fmt.Printf("[QDRANT] Collection '%s' ready with %d documents\n", cfg.Collection, count)
	}

	return s, nil
}

// Close releases the gRPC connection.
func (s *QdrantStore) Close() error {
	return s.client.Close()
}

func (s *QdrantStore) ensureCollection(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if exists {
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(s.dimensions),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}
	fmt.Printf("[QDRANT] Created collection '%s' (dims=%d, cosine)\n", s.collection, s.dimensions)
	return nil
}

// Add upserts records whose ids are not already present. Records
// without embeddings are embedded from their document text in one batch.
func (s *QdrantStore) Add(ctx context.Context, records []models.EmailRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	// Look up which ids already exist.
	ids := make([]*qdrant.PointId, 0, len(records))
	for _, r := range records {
		ids = append(ids, qdrant.NewID(pointUUID(r.ID)))
	}
	existing, err := s.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: s.collection,
		Ids:            ids,
		WithPayload:    qdrant.NewWithPayload(false),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to check existing points: %w", err)
	}
	seen := make(map[string]struct{}, len(existing))
	for _, p := range existing {
		seen[p.Id.GetUuid()] = struct{}{}
	}

	var fresh []models.EmailRecord
	for _, r := range records {
		if _, ok := seen[pointUUID(r.ID)]; ok {
			continue
		}
		seen[pointUUID(r.ID)] = struct{}{}
		fresh = append(fresh, r)
	}
	if len(fresh) == 0 {
		return 0, nil
	}

	// Embed whatever arrived without a vector.
	var texts []string
	var missing []int
	for i, r := range fresh {
		if len(r.Embedding) == 0 {
			missing = append(missing, i)
			texts = append(texts, r.Document())
		}
	}
	if len(missing) > 0 {
		if s.embedder == nil {
			return 0, fmt.Errorf("no embedder configured for %d records without embeddings", len(missing))
		}
		embeddings, err := s.embedder.Embed(ctx, texts)
		if err != nil {
			return 0, fmt.Errorf("failed to embed batch: %w", err)
		}
		for j, i := range missing {
			fresh[i].Embedding = embeddings[j]
		}
	}

	points := make([]*qdrant.PointStruct, 0, len(fresh))
	for _, r := range fresh {
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewID(pointUUID(r.ID)),
			Vectors: qdrant.NewVectors(r.Embedding...),
			Payload: qdrant.NewValueMap(recordPayload(r)),
		})
	}

	if _, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Points:         points,
	}); err != nil {
		return 0, fmt.Errorf("failed to upsert %d points: %w", len(points), err)
	}

	return len(points), nil
}

// Search embeds the query and runs a filtered nearest-neighbor query.
// With cosine distance the qdrant score is already the similarity.
func (s *QdrantStore) Search(ctx context.Context, query string, limit int, filter Filter) ([]models.SearchHit, error) {
	if s.embedder == nil {
		return nil, fmt.Errorf("no embedder configured")
	}
	embeddings, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	limitU := uint64(limit)
	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(embeddings[0]...),
		Filter:         qdrantFilter(filter),
		Limit:          &limitU,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query collection: %w", err)
	}

	hits := make([]models.SearchHit, 0, len(results))
	for _, p := range results {
		r := recordFromPayload(p.Payload)
		sim := float64(p.Score)
		hits = append(hits, models.SearchHit{
			ID:        r.ID,
			Document:  r.Document(),
			Record:    r,
			Distance:  1 - sim,
			Relevance: sim,
		})
	}
	return hits, nil
}

// FetchByAttribute scrolls every record whose attribute equals value.
func (s *QdrantStore) FetchByAttribute(ctx context.Context, field string, value any) ([]models.EmailRecord, error) {
	return s.scroll(ctx, qdrantFilter(Eq(field, value)), 5000)
}

// FetchAll scrolls up to limit records.
func (s *QdrantStore) FetchAll(ctx context.Context, limit int) ([]models.EmailRecord, error) {
	return s.scroll(ctx, nil, limit)
}

func (s *QdrantStore) scroll(ctx context.Context, filter *qdrant.Filter, limit int) ([]models.EmailRecord, error) {
	limitU := uint32(limit)
	points, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: s.collection,
		Filter:         filter,
		Limit:          &limitU,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scroll collection: %w", err)
	}

	records := make([]models.EmailRecord, 0, len(points))
	for _, p := range points {
		records = append(records, recordFromPayload(p.Payload))
	}
	return records, nil
}

// Count returns the exact number of stored points.
func (s *QdrantStore) Count(ctx context.Context) (int, error) {
	count, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: s.collection,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count points: %w", err)
	}
	return int(count), nil
}

// Clear drops and recreates the collection.
func (s *QdrantStore) Clear(ctx context.Context) error {
	if err := s.client.DeleteCollection(ctx, s.collection); err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}
	return s.ensureCollection(ctx)
}

// qdrantFilter translates the flat clause list into qdrant conditions.
// Date bounds ride on the numeric date_ts payload field because qdrant
// ranges are numeric.
func qdrantFilter(f Filter) *qdrant.Filter {
	if f.IsEmpty() {
		return nil
	}

	must := make([]*qdrant.Condition, 0, len(f.Clauses))
	for _, c := range f.Clauses {
		switch c.Op {
		case OpEq:
			switch v := c.Value.(type) {
			case bool:
				must = append(must, qdrant.NewMatchBool(c.Field, v))
			case string:
				must = append(must, qdrant.NewMatch(c.Field, v))
			default:
				must = append(must, qdrant.NewMatch(c.Field, fmt.Sprintf("%v", v)))
			}
		case OpGte:
			must = append(must, qdrant.NewRange("date_ts", &qdrant.Range{
				Gte: qdrant.PtrOf(float64(dateToUnix(c.Value))),
			}))
		case OpLte:
			must = append(must, qdrant.NewRange("date_ts", &qdrant.Range{
				Lte: qdrant.PtrOf(float64(dateToUnix(c.Value))),
			}))
		}
	}
	return &qdrant.Filter{Must: must}
}

func recordPayload(r models.EmailRecord) map[string]any {
	return map[string]any{
		"id":           r.ID,
		FieldThreadID:  r.ThreadID,
		"sender":       r.Sender,
		"sender_name":  r.SenderName,
		"recipients":   strings.Join(r.Recipients, ","),
		"subject":      r.Subject,
		FieldDate:      r.Date,
		"date_ts":      dateToUnix(r.Date),
		FieldDirection: r.Direction,
		FieldIsRead:    r.IsRead,
		FieldIsReplied: r.IsReplied,
		FieldIsFlagged: r.IsFlagged,
		"body":         r.Body,
	}
}

func recordFromPayload(payload map[string]*qdrant.Value) models.EmailRecord {
	str := func(key string) string {
		if v, ok := payload[key]; ok {
			return v.GetStringValue()
		}
		return ""
	}
	boolean := func(key string) bool {
		if v, ok := payload[key]; ok {
			return v.GetBoolValue()
		}
		return false
	}

	var recipients []string
	if joined := str("recipients"); joined != "" {
		recipients = strings.Split(joined, ",")
	}

	return models.EmailRecord{
		ID:         str("id"),
		ThreadID:   str(FieldThreadID),
		Sender:     str("sender"),
		SenderName: str("sender_name"),
		Recipients: recipients,
		Subject:    str("subject"),
		Date:       str(FieldDate),
		Direction:  str(FieldDirection),
		IsRead:     boolean(FieldIsRead),
		IsReplied:  boolean(FieldIsReplied),
		IsFlagged:  boolean(FieldIsFlagged),
		Body:       str("body"),
	}
}

// pointUUID formats a 32-hex content hash as a UUID, which qdrant
// requires for string point ids. Other id shapes are re-hashed first.
func pointUUID(id string) string {
	hexID := id
	if len(hexID) != 32 || !isHex(hexID) {
		sum := sha256.Sum256([]byte(id))
		hexID = hex.EncodeToString(sum[:])[:32]
	}
	return fmt.Sprintf("%s-%s-%s-%s-%s",
		hexID[0:8], hexID[8:12], hexID[12:16], hexID[16:20], hexID[20:32])
}

func isHex(s string) bool {
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') && (c < 'A' || c > 'F') {
			return false
		}
	}
	return true
}

func dateToUnix(v any) int64 {
	s, ok := v.(string)
	if !ok || s == "" {
		return 0
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return 0
	}
	return t.Unix()
}
