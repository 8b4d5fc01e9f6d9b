package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"inboxai/internal/models"
)

// PgvectorStore keeps records and embeddings in a single PostgreSQL
// table and lets pgvector compute cosine similarity on the server.
type PgvectorStore struct {
	db         *sqlx.DB
	embedder   Embedder
	dimensions int
}

// pgRow is the scan target shared by search and fetch queries. The
// similarity column is only present on search results.
type pgRow struct {
	ID         string  `db:"id"`
	ThreadID   string  `db:"conversation_id"`
	Sender     string  `db:"sender"`
	SenderName string  `db:"sender_name"`
	Recipients string  `db:"recipients"`
	Subject    string  `db:"subject"`
	Date       string  `db:"date"`
	Direction  string  `db:"direction"`
	IsRead     bool    `db:"is_read"`
	IsReplied  bool    `db:"is_replied"`
	IsFlagged  bool    `db:"is_flagged"`
	Body       string  `db:"body"`
	Similarity float64 `db:"similarity"`
}

func (r pgRow) record() models.EmailRecord {
	var recipients []string
	if r.Recipients != "" {
		recipients = strings.Split(r.Recipients, ",")
	}
	return models.EmailRecord{
		ID:         r.ID,
		ThreadID:   r.ThreadID,
		Sender:     r.Sender,
		SenderName: r.SenderName,
		Recipients: recipients,
		Subject:    r.Subject,
		Date:       r.Date,
		Direction:  r.Direction,
		IsRead:     r.IsRead,
		IsReplied:  r.IsReplied,
		IsFlagged:  r.IsFlagged,
		Body:       r.Body,
	}
}

const pgRecordColumns = `id, conversation_id, sender, sender_name, recipients, subject, date, direction, is_read, is_replied, is_flagged, body`

// pgColumns whitelists filterable attributes against their columns.
var pgColumns = map[string]string{
	FieldThreadID:  "conversation_id",
	FieldDirection: "direction",
	FieldIsRead:    "is_read",
	FieldIsReplied: "is_replied",
	FieldIsFlagged: "is_flagged",
	FieldDate:      "date",
	"id":           "id",
	"sender":       "sender",
	"subject":      "subject",
}

// NewPgvectorStore prepares the email_records table, the pgvector
// extension and the HNSW index.
func NewPgvectorStore(ctx context.Context, db *sqlx.DB, embedder Embedder, dimensions int) (*PgvectorStore, error) {
	s := &PgvectorStore{
		db:         db,
		embedder:   embedder,
		dimensions: dimensions,
	}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}

	if count, err := s.Count(ctx); err == nil {
		fmt.Printf("[PGVECTOR] Table email_records ready with %d documents\n", count)
	}

	return s, nil
}

func (s *PgvectorStore) ensureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		fmt.Printf("[PGVECTOR] Warning: Failed to create vector extension (may already exist): %v\n", err)
	}

	table := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS email_records (
			id VARCHAR(64) PRIMARY KEY,
			conversation_id VARCHAR(64) NOT NULL DEFAULT '',
			sender TEXT NOT NULL DEFAULT '',
			sender_name TEXT NOT NULL DEFAULT '',
			recipients TEXT NOT NULL DEFAULT '',
			subject TEXT NOT NULL DEFAULT '',
			date VARCHAR(40) NOT NULL DEFAULT '',
			direction VARCHAR(16) NOT NULL DEFAULT '',
			is_read BOOLEAN NOT NULL DEFAULT FALSE,
			is_replied BOOLEAN NOT NULL DEFAULT FALSE,
			is_flagged BOOLEAN NOT NULL DEFAULT FALSE,
			body TEXT NOT NULL DEFAULT '',
			embedding vector(%d) NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`, s.dimensions)
	if _, err := s.db.ExecContext(ctx, table); err != nil {
		return fmt.Errorf("failed to create email_records table: %w", err)
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_email_records_conversation_id ON email_records(conversation_id)`,
		`CREATE INDEX IF NOT EXISTS idx_email_records_direction ON email_records(direction)`,
		`CREATE INDEX IF NOT EXISTS idx_email_records_date ON email_records(date)`,
		// HNSW index for fast cosine similarity search with pgvector
		`CREATE INDEX IF NOT EXISTS idx_email_records_hnsw ON email_records USING hnsw (embedding vector_cosine_ops)`,
	}
	for _, query := range indexes {
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			fmt.Printf("[PGVECTOR] Warning: Failed to create index: %v\n", err)
		}
	}

	return nil
}

// Add inserts records whose ids are not already present. Conflicting
// ids are left untouched so re-ingesting the same mailbox is cheap.
func (s *PgvectorStore) Add(ctx context.Context, records []models.EmailRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	ids := make([]string, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.ID)
	}
	var existing []string
	if err := s.db.SelectContext(ctx, &existing, `SELECT id FROM email_records WHERE id = ANY($1)`, pq.Array(ids)); err != nil {
		return 0, fmt.Errorf("failed to check existing records: %w", err)
	}
	seen := make(map[string]struct{}, len(existing))
	for _, id := range existing {
		seen[id] = struct{}{}
	}

	var fresh []models.EmailRecord
	for _, r := range records {
		if _, ok := seen[r.ID]; ok {
			continue
		}
		seen[r.ID] = struct{}{}
		fresh = append(fresh, r)
	}
	if len(fresh) == 0 {
		return 0, nil
	}

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

	insert := `
		INSERT INTO email_records
			(id, conversation_id, sender, sender_name, recipients, subject, date,
			 direction, is_read, is_replied, is_flagged, body, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13::vector)
		ON CONFLICT (id) DO NOTHING`

	stored := 0
	for _, r := range fresh {
		res, err := s.db.ExecContext(ctx, insert,
			r.ID,
			r.ThreadID,
			r.Sender,
			r.SenderName,
			strings.Join(r.Recipients, ","),
			r.Subject,
			r.Date,
			r.Direction,
			r.IsRead,
			r.IsReplied,
			r.IsFlagged,
			r.Body,
			formatVector(r.Embedding),
		)
		if err != nil {
			return stored, fmt.Errorf("failed to insert record %s: %w", r.ID, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			stored += int(n)
		}
	}

	return stored, nil
}

// Search embeds the query and lets pgvector rank by cosine distance.
func (s *PgvectorStore) Search(ctx context.Context, query string, limit int, filter Filter) ([]models.SearchHit, error) {
	if s.embedder == nil {
		return nil, fmt.Errorf("no embedder configured")
	}
	embeddings, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	where, args, next := pgWhere(filter, 2)
	dbQuery := fmt.Sprintf(`
		SELECT %s,
		       1 - (embedding <=> $1::vector) AS similarity
		FROM email_records%s
		ORDER BY embedding <=> $1::vector
		LIMIT $%d`, pgRecordColumns, where, next)

	queryArgs := append([]any{formatVector(embeddings[0])}, args...)
	queryArgs = append(queryArgs, limit)

	var rows []pgRow
	if err := s.db.SelectContext(ctx, &rows, dbQuery, queryArgs...); err != nil {
		return nil, fmt.Errorf("failed to search email_records: %w", err)
	}

	hits := make([]models.SearchHit, 0, len(rows))
	for _, row := range rows {
		r := row.record()
		hits = append(hits, models.SearchHit{
			ID:        r.ID,
			Document:  r.Document(),
			Record:    r,
			Distance:  1 - row.Similarity,
			Relevance: row.Similarity,
		})
	}
	return hits, nil
}

// FetchByAttribute returns every record whose attribute equals value.
func (s *PgvectorStore) FetchByAttribute(ctx context.Context, field string, value any) ([]models.EmailRecord, error) {
	col, ok := pgColumns[field]
	if !ok {
		return nil, fmt.Errorf("unknown attribute %q", field)
	}

	var rows []pgRow
	dbQuery := fmt.Sprintf(`SELECT %s FROM email_records WHERE %s = $1`, pgRecordColumns, col)
	if err := s.db.SelectContext(ctx, &rows, dbQuery, value); err != nil {
		return nil, fmt.Errorf("failed to fetch by %s: %w", col, err)
	}

	records := make([]models.EmailRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.record())
	}
	return records, nil
}

// FetchAll returns up to limit records in insertion order.
func (s *PgvectorStore) FetchAll(ctx context.Context, limit int) ([]models.EmailRecord, error) {
	var rows []pgRow
	dbQuery := fmt.Sprintf(`SELECT %s FROM email_records ORDER BY created_at LIMIT $1`, pgRecordColumns)
	if err := s.db.SelectContext(ctx, &rows, dbQuery, limit); err != nil {
		return nil, fmt.Errorf("failed to fetch records: %w", err)
	}

	records := make([]models.EmailRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.record())
	}
	return records, nil
}

// Count returns the number of stored records.
func (s *PgvectorStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM email_records`); err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return count, nil
}

// Clear removes every stored record.
func (s *PgvectorStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `TRUNCATE TABLE email_records`); err != nil {
		return fmt.Errorf("failed to clear email_records: %w", err)
	}
	return nil
}

// pgWhere renders the flat clause list as a WHERE fragment with
// placeholders numbered from startArg. RFC3339 strings in UTC compare
// lexicographically in date order, so date bounds stay plain string
// comparisons.
func pgWhere(f Filter, startArg int) (string, []any, int) {
	if f.IsEmpty() {
		return "", nil, startArg
	}

	var conds []string
	var args []any
	n := startArg
	for _, c := range f.Clauses {
		col, ok := pgColumns[c.Field]
		if !ok {
			continue
		}
		switch c.Op {
		case OpEq:
			conds = append(conds, fmt.Sprintf("%s = $%d", col, n))
		case OpGte:
			conds = append(conds, fmt.Sprintf("%s >= $%d", col, n))
		case OpLte:
			conds = append(conds, fmt.Sprintf("%s <= $%d", col, n))
		default:
			continue
		}
		args = append(args, c.Value)
		n++
	}
	if len(conds) == 0 {
		return "", nil, startArg
	}
	return " WHERE " + strings.Join(conds, " AND "), args, n
}

// formatVector converts a float32 slice to pgvector text format, for
// example "[0.1,0.2,0.3]".
func formatVector(embedding []float32) string {
	parts := make([]string, len(embedding))
	for i, v := range embedding {
		parts[i] = fmt.Sprintf("%g", v)
	}
	return "[" + strings.Join(parts, ",") + "]"
}
