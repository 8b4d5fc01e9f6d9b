package ingest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"inboxai/internal/models"
	"inboxai/internal/store"
)

// fakeStore records Add calls and emulates insert-if-absent dedup.
type fakeStore struct {
	addBatches  [][]models.EmailRecord
	seen        map[string]bool
	failOnBatch int // 1-based batch index that returns addErr, 0 = never
	addErr      error
	countErr    error
}

func newFakeStore() *fakeStore {
	return &fakeStore{seen: map[string]bool{}}
}

func (f *fakeStore) Add(ctx context.Context, records []models.EmailRecord) (int, error) {
	if f.failOnBatch > 0 && len(f.addBatches)+1 == f.failOnBatch {
		return 0, f.addErr
	}
	f.addBatches = append(f.addBatches, append([]models.EmailRecord(nil), records...))
	added := 0
	for _, r := range records {
		if !f.seen[r.ID] {
			f.seen[r.ID] = true
			added++
		}
	}
	return added, nil
}

func (f *fakeStore) Search(ctx context.Context, query string, limit int, filter store.Filter) ([]models.SearchHit, error) {
	return nil, nil
}

func (f *fakeStore) FetchByAttribute(ctx context.Context, field string, value any) ([]models.EmailRecord, error) {
	return nil, nil
}

func (f *fakeStore) FetchAll(ctx context.Context, limit int) ([]models.EmailRecord, error) {
	return nil, nil
}

func (f *fakeStore) Count(ctx context.Context) (int, error) {
	return len(f.seen), f.countErr
}

func (f *fakeStore) Clear(ctx context.Context) error { return nil }

// stored flattens all Add batches into one slice.
func (f *fakeStore) stored() []models.EmailRecord {
	var all []models.EmailRecord
	for _, batch := range f.addBatches {
		all = append(all, batch...)
	}
	return all
}

func threadedMBOXMessage(id, threadRoot, date string) string {
	return "From dana@corp.example Mon Mar  2 08:30:00 2026\n" +
		"Message-ID: <" + id + "@corp.example>\n" +
		"References: <" + threadRoot + "@corp.example>\n" +
		"From: dana@corp.example\n" +
		"To: me@corp.example\n" +
		"Subject: Thread " + threadRoot + "\n" +
		"Date: " + date + "\n" +
		"\n" +
		"Body of " + id + ".\n"
}

func TestIngestPaths_StoresInBatches(t *testing.T) {
	dir := t.TempDir()
	var content string
	for _, id := range []string{"m1", "m2", "m3", "m4", "m5", "m6", "m7"} {
		content += mboxMessage(id, "Subject "+id)
	}
	writeFile(t, dir, "archive.mbox", content)

	st := newFakeStore()
	ing := NewIngestor(st, nil)
	ing.batchSize = 3

	stored, err := ing.IngestPaths(context.Background(), []string{dir})
	assert.NoError(t, err)

	assert.Equal(t, 7, stored)
	assert.Len(t, st.addBatches, 3)
	assert.Len(t, st.addBatches[0], 3)
	assert.Len(t, st.addBatches[1], 3)
	assert.Len(t, st.addBatches[2], 1)
}

func TestIngestPaths_InfersRepliesAcrossFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "inbox.mbox",
		threadedMBOXMessage("q1", "root", "Mon, 02 Mar 2026 09:00:00 +0000"))
	writeFile(t, dir, "sent.mbox",
		threadedMBOXMessage("a1", "root", "Mon, 02 Mar 2026 10:00:00 +0000"))

	st := newFakeStore()
	ing := NewIngestor(st, nil)

	stored, err := ing.IngestPaths(context.Background(), []string{dir})
	assert.NoError(t, err)
	assert.Equal(t, 2, stored)

	byThread := map[string]map[string]models.EmailRecord{}
	for _, r := range st.stored() {
		if byThread[r.ThreadID] == nil {
			byThread[r.ThreadID] = map[string]models.EmailRecord{}
		}
		byThread[r.ThreadID][r.Direction] = r
	}

	thread := byThread["root@corp.example"]
	assert.Len(t, thread, 2)
	assert.True(t, thread[models.DirectionReceived].IsReplied, "a later sent message answers it")
	assert.False(t, thread[models.DirectionSent].IsReplied)
}

func TestIngestPaths_SkipsBadPaths(t *testing.T) {
	dir := t.TempDir()
	eml := writeFile(t, dir, "one.eml", sampleEML)

	st := newFakeStore()
	ing := NewIngestor(st, nil)

	stored, err := ing.IngestPaths(context.Background(), []string{
		"/nonexistent/archive.mbox",
		eml,
	})
	assert.NoError(t, err)
	assert.Equal(t, 1, stored)
}

func TestIngestPaths_Empty(t *testing.T) {
	st := newFakeStore()
	ing := NewIngestor(st, nil)

	stored, err := ing.IngestPaths(context.Background(), nil)
	assert.NoError(t, err)
	assert.Zero(t, stored)
	assert.Empty(t, st.addBatches)
}

func TestIngestPaths_StoreErrorReturnsPartial(t *testing.T) {
	dir := t.TempDir()
	var content string
	for _, id := range []string{"m1", "m2", "m3", "m4"} {
		content += mboxMessage(id, "Subject "+id)
	}
	writeFile(t, dir, "archive.mbox", content)

	st := newFakeStore()
	st.failOnBatch = 2
	st.addErr = errors.New("embedding backend down")

	ing := NewIngestor(st, nil)
	ing.batchSize = 3

	stored, err := ing.IngestPaths(context.Background(), []string{dir})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "embedding backend down")
	assert.Equal(t, 3, stored)
}

func TestRun_FilesOnly(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "one.eml", sampleEML)

	st := newFakeStore()
	ing := NewIngestor(st, nil)

	result, err := ing.Run(context.Background(), models.IngestRequest{Paths: []string{dir}})
	assert.NoError(t, err)

	assert.Equal(t, 1, result.FileEmails)
	assert.Zero(t, result.GmailEmails)
	assert.Equal(t, 1, result.TotalStored)
}

func TestRun_RerunAddsNothing(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "one.eml", sampleEML)

	st := newFakeStore()
	ing := NewIngestor(st, nil)

	_, err := ing.Run(context.Background(), models.IngestRequest{Paths: []string{dir}})
	assert.NoError(t, err)

	result, err := ing.Run(context.Background(), models.IngestRequest{Paths: []string{dir}})
	assert.NoError(t, err)

	assert.Zero(t, result.FileEmails, "dedup by content hash on re-import")
	assert.Equal(t, 1, result.TotalStored)
}

func TestIngestGmail_NotConfigured(t *testing.T) {
	ing := NewIngestor(newFakeStore(), nil)

	_, err := ing.IngestGmail(context.Background(), 30)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "gmail source not configured")
}

func TestInferReplies(t *testing.T) {
	records := []models.EmailRecord{
		{ID: "r1", ThreadID: "t1", Direction: models.DirectionReceived, Date: "2026-03-01T09:00:00Z"},
		{ID: "s1", ThreadID: "t1", Direction: models.DirectionSent, Date: "2026-03-01T10:00:00Z"},
		{ID: "r2", ThreadID: "t1", Direction: models.DirectionReceived, Date: "2026-03-01T11:00:00Z"},
		{ID: "r3", ThreadID: "t2", Direction: models.DirectionReceived, Date: "2026-03-01T09:00:00Z"},
		{ID: "r4", ThreadID: "", Direction: models.DirectionReceived, Date: "2026-02-01T09:00:00Z"},
	}

	InferReplies(records)

	byID := map[string]models.EmailRecord{}
	for _, r := range records {
		byID[r.ID] = r
	}

	assert.True(t, byID["r1"].IsReplied, "sent follow-up exists")
	assert.False(t, byID["s1"].IsReplied, "own sent mail is never marked replied")
	assert.False(t, byID["r2"].IsReplied, "arrived after the last sent message")
	assert.False(t, byID["r3"].IsReplied, "no sent mail in that thread")
	assert.False(t, byID["r4"].IsReplied, "standalone messages are left alone")
}

func TestInferReplies_KeepsParsedFlag(t *testing.T) {
	records := []models.EmailRecord{
		{ID: "r1", ThreadID: "t1", Direction: models.DirectionReceived, Date: "2026-03-01T09:00:00Z", IsReplied: true},
	}

	InferReplies(records)

	assert.True(t, records[0].IsReplied)
}
