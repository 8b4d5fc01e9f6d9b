package handlers

import (
	"context"
	"fmt"
	"io"
	"sync"

	"inboxai/internal/llm"
	"inboxai/internal/models"
	"inboxai/internal/store"
)

// fakeStore is an in-memory store.Store shared by the handler tests.
// Seed it through the records field; the error fields force failures
// on the matching method.
type fakeStore struct {
	mu        sync.Mutex
	records   []models.EmailRecord
	searchErr error
	countErr  error
	clearErr  error
	cleared   bool
}

func (f *fakeStore) Add(ctx context.Context, records []models.EmailRecord) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, records...)
	return len(records), nil
}

func (f *fakeStore) Search(ctx context.Context, query string, limit int, filter store.Filter) ([]models.SearchHit, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	hits := make([]models.SearchHit, 0, limit)
	for i, r := range f.records {
		if !filter.Matches(r) {
			continue
		}
		if len(hits) == limit {
			break
		}
		hits = append(hits, models.SearchHit{
			ID:        r.ID,
			Document:  fmt.Sprintf("Subject: %s\nFrom: %s\n\n%s", r.Subject, r.Sender, r.Body),
			Record:    r,
			Relevance: 1 - float64(i)*0.05,
		})
	}
	return hits, nil
}

func (f *fakeStore) FetchByAttribute(ctx context.Context, field string, value any) ([]models.EmailRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	match := store.Eq(field, value)
	var out []models.EmailRecord
	for _, r := range f.records {
		if match.Matches(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) FetchAll(ctx context.Context, limit int) ([]models.EmailRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if limit <= 0 || limit > len(f.records) {
		limit = len(f.records)
	}
	out := make([]models.EmailRecord, limit)
	copy(out, f.records[:limit])
	return out, nil
}

func (f *fakeStore) Count(ctx context.Context) (int, error) {
	if f.countErr != nil {
		return 0, f.countErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records), nil
}

func (f *fakeStore) Clear(ctx context.Context) error {
	if f.clearErr != nil {
		return f.clearErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = nil
	f.cleared = true
	return nil
}

// fakeGenerator scripts the model side of the engine: Generate returns
// answer, GenerateStream replays chunks.
type fakeGenerator struct {
	answer string
	chunks []string
	err    error
}

func (g *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if g.err != nil {
		return "", g.err
	}
	return g.answer, nil
}

func (g *fakeGenerator) GenerateStream(ctx context.Context, prompt string) (llm.TokenStream, error) {
	if g.err != nil {
		return nil, g.err
	}
	return &scriptedStream{chunks: g.chunks}, nil
}

type scriptedStream struct {
	chunks []string
	pos    int
}

func (s *scriptedStream) Recv() (string, error) {
	if s.pos >= len(s.chunks) {
		return "", io.EOF
	}
	chunk := s.chunks[s.pos]
	s.pos++
	return chunk, nil
}

func (s *scriptedStream) Close() error { return nil }

// fakeCalendar returns canned meeting listings.
type fakeCalendar struct {
	upcoming *models.MeetingsResult
	nextDay  *models.MeetingsResult
}

func (c *fakeCalendar) UpcomingMeetings(ctx context.Context) *models.MeetingsResult {
	return c.upcoming
}

func (c *fakeCalendar) NextBusinessDayMeetings(ctx context.Context) *models.MeetingsResult {
	return c.nextDay
}

func seedRecord(id, threadID, subject, sender, date, direction string) models.EmailRecord {
	return models.EmailRecord{
		ID:        id,
		ThreadID:  threadID,
		Subject:   subject,
		Sender:    sender,
		Date:      date,
		Direction: direction,
		IsRead:    true,
		IsReplied: direction == "sent",
		Body:      "Body of " + subject,
	}
}
