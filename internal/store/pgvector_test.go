package store

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inboxai/internal/models"
)

func newPgvectorMock(t *testing.T, embedder Embedder) (*PgvectorStore, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	s := &PgvectorStore{
		db:         sqlx.NewDb(mockDB, "sqlmock"),
		embedder:   embedder,
		dimensions: 3,
	}
	return s, mock
}

func pgMockRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "conversation_id", "sender", "sender_name", "recipients",
		"subject", "date", "direction", "is_read", "is_replied",
		"is_flagged", "body", "similarity",
	})
}

func TestPgvectorStoreSearch(t *testing.T) {
	embedder := &stubEmbedder{vectors: map[string][]float32{
		"invoice": {0.5, 0.25, 0.25},
	}}
	s, mock := newPgvectorMock(t, embedder)

	mock.ExpectQuery(`1 - \(embedding <=> \$1::vector\) AS similarity`).
		WithArgs("[0.5,0.25,0.25]", 20).
		WillReturnRows(pgMockRows().
			AddRow("a1", "thread-1", "kim@vendor.example", "Kim Lee", "me@corp.example",
				"Invoice overdue", "2026-03-10T09:00:00Z", "received", true, false,
				false, "Please pay invoice 42.", 0.91).
			AddRow("b2", "", "me@corp.example", "", "kim@vendor.example,ops@corp.example",
				"Re: Invoice", "2026-03-11T09:00:00Z", "sent", true, true,
				false, "Paid.", 0.62))

	hits, err := s.Search(context.Background(), "invoice status", 20, Filter{})
	require.NoError(t, err)
	require.Len(t, hits, 2)

	assert.Equal(t, "a1", hits[0].ID)
	assert.Equal(t, "thread-1", hits[0].Record.ThreadID)
	assert.Equal(t, "Kim Lee", hits[0].Record.SenderName)
	assert.InDelta(t, 0.91, hits[0].Relevance, 1e-9)
	assert.InDelta(t, 0.09, hits[0].Distance, 1e-9)
	assert.Contains(t, hits[0].Document, "Subject: Invoice overdue")

	assert.Equal(t, []string{"kim@vendor.example", "ops@corp.example"}, hits[1].Record.Recipients)
	assert.Equal(t, "sent", hits[1].Record.Direction)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgvectorStoreSearchWithFilter(t *testing.T) {
	embedder := &stubEmbedder{vectors: map[string][]float32{}}
	s, mock := newPgvectorMock(t, embedder)

	filter := And(
		Eq(FieldDirection, "received"),
		Eq(FieldIsReplied, false),
		Gte(FieldDate, "2026-03-01T00:00:00Z"),
	)

	mock.ExpectQuery(`WHERE direction = \$2 AND is_replied = \$3 AND date >= \$4`).
		WithArgs("[0,0,1]", "received", false, "2026-03-01T00:00:00Z", 5).
		WillReturnRows(pgMockRows())

	hits, err := s.Search(context.Background(), "anything", 5, filter)
	require.NoError(t, err)
	assert.Empty(t, hits)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgvectorStoreAddSkipsExistingIDs(t *testing.T) {
	s, mock := newPgvectorMock(t, nil)

	mock.ExpectQuery(`SELECT id FROM email_records WHERE id = ANY\(\$1\)`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("a"))
	mock.ExpectExec(`INSERT INTO email_records`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	stored, err := s.Add(context.Background(), []models.EmailRecord{
		{ID: "a", Subject: "Old", Embedding: []float32{1, 0, 0}},
		{ID: "b", Subject: "New", Embedding: []float32{0, 1, 0}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, stored)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgvectorStoreAddWithoutEmbedderFails(t *testing.T) {
	s, mock := newPgvectorMock(t, nil)

	mock.ExpectQuery(`SELECT id FROM email_records WHERE id = ANY\(\$1\)`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := s.Add(context.Background(), []models.EmailRecord{
		{ID: "a", Subject: "No vector"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no embedder configured")
}

func TestPgvectorStoreCount(t *testing.T) {
	s, mock := newPgvectorMock(t, nil)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM email_records`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(42))

	count, err := s.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, count)
}

func TestPgvectorStoreClear(t *testing.T) {
	s, mock := newPgvectorMock(t, nil)

	mock.ExpectExec(`TRUNCATE TABLE email_records`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.Clear(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgvectorStoreFetchByAttribute(t *testing.T) {
	s, mock := newPgvectorMock(t, nil)

	mock.ExpectQuery(`FROM email_records WHERE conversation_id = \$1`).
		WithArgs("thread-1").
		WillReturnRows(pgMockRows().
			AddRow("a1", "thread-1", "kim@vendor.example", "", "",
				"Invoice overdue", "2026-03-10T09:00:00Z", "received", false, false,
				false, "", 0))

	records, err := s.FetchByAttribute(context.Background(), FieldThreadID, "thread-1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "a1", records[0].ID)
	assert.Nil(t, records[0].Recipients)

	_, err = s.FetchByAttribute(context.Background(), "importance", "high")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown attribute")
}

func TestPgWhere(t *testing.T) {
	tests := []struct {
		name     string
		filter   Filter
		startArg int
		want     string
		wantArgs []any
		wantNext int
	}{
		{
			name:     "empty filter",
			filter:   Filter{},
			startArg: 2,
			want:     "",
			wantArgs: nil,
			wantNext: 2,
		},
		{
			name:     "single equality",
			filter:   Eq(FieldDirection, "sent"),
			startArg: 2,
			want:     " WHERE direction = $2",
			wantArgs: []any{"sent"},
			wantNext: 3,
		},
		{
			name: "conjunction keeps clause order",
			filter: And(
				Eq(FieldDirection, "received"),
				Eq(FieldIsReplied, false),
				Lte(FieldDate, "2026-03-31T23:59:59Z"),
			),
			startArg: 2,
			want:     " WHERE direction = $2 AND is_replied = $3 AND date <= $4",
			wantArgs: []any{"received", false, "2026-03-31T23:59:59Z"},
			wantNext: 5,
		},
		{
			name:     "unknown attribute is skipped",
			filter:   And(Eq("importance", "high"), Eq(FieldDirection, "sent")),
			startArg: 1,
			want:     " WHERE direction = $1",
			wantArgs: []any{"sent"},
			wantNext: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, args, next := pgWhere(tt.filter, tt.startArg)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantArgs, args)
			assert.Equal(t, tt.wantNext, next)
		})
	}
}

func TestFormatVector(t *testing.T) {
	assert.Equal(t, "[0.1,0.2,0.3]", formatVector([]float32{0.1, 0.2, 0.3}))
	assert.Equal(t, "[1,-2,0]", formatVector([]float32{1, -2, 0}))
	assert.Equal(t, "[]", formatVector(nil))
}
