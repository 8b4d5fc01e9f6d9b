package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"inboxai/internal/models"
	"inboxai/internal/store"
)

// defaultBatchSize is how many records are embedded and stored per call.
const defaultBatchSize = 100

// defaultDaysBack bounds the Gmail lookback when the request leaves it unset.
const defaultDaysBack = 365

// Ingestor runs imports from mail archives and the Gmail API into the
// vector store. The store handles embedding and insert-if-absent dedup,
// so re-running an import over the same files is safe.
type Ingestor struct {
	store     store.Store
	gmail     *GmailSource
	batchSize int
}

// NewIngestor creates an ingestor over the given store. gmail may be
// nil when no Google credentials are configured; Gmail imports then
// return an error.
func NewIngestor(st store.Store, gmail *GmailSource) *Ingestor {
	return &Ingestor{
		store:     st,
		gmail:     gmail,
		batchSize: defaultBatchSize,
	}
}

// HasGmail reports whether a Gmail source is configured.
func (i *Ingestor) HasGmail() bool {
	return i.gmail != nil
}

// Run executes a full import: file archives first, then the Gmail
// account when requested. Source-level failures are logged and skipped
// so one bad archive does not abort the run; store failures abort.
func (i *Ingestor) Run(ctx context.Context, req models.IngestRequest) (*models.IngestResult, error) {
	result := &models.IngestResult{}

	if len(req.Paths) > 0 {
		stored, err := i.IngestPaths(ctx, req.Paths)
		result.FileEmails = stored
		if err != nil {
			return result, err
		}
	}

	if req.IncludeGmail {
		stored, err := i.IngestGmail(ctx, req.DaysBack)
		result.GmailEmails = stored
		if err != nil {
			return result, err
		}
	}

	total, err := i.store.Count(ctx)
	if err != nil {
		fmt.Printf("[INGEST] Warning: Failed to count stored emails: %v\n", err)
	}
	result.TotalStored = total

	fmt.Printf("[INGEST] Import complete: %d from files, %d from Gmail, %d total in store\n",
		result.FileEmails, result.GmailEmails, result.TotalStored)

	return result, nil
}

// IngestPaths parses every path (EML file, MBOX file, or directory of
// either), infers reply state across the combined set, and stores the
// records in batches. Returns how many records the store accepted as new.
func (i *Ingestor) IngestPaths(ctx context.Context, paths []string) (int, error) {
	var records []models.EmailRecord

	for _, path := range paths {
		parsed, err := parsePath(path)
		if err != nil {
			fmt.Printf("[INGEST] Warning: Skipping %s: %v\n", path, err)
			continue
		}
		fmt.Printf("[INGEST] Parsed %d emails from %s\n", len(parsed), path)
		records = append(records, parsed...)
	}

	if len(records) == 0 {
		return 0, nil
	}

	InferReplies(records)

	return i.storeBatches(ctx, records)
}

// IngestGmail pulls messages from the configured Gmail account over the
// lookback window and stores them.
func (i *Ingestor) IngestGmail(ctx context.Context, daysBack int) (int, error) {
	if i.gmail == nil {
		return 0, fmt.Errorf("gmail source not configured")
	}
	if daysBack <= 0 {
		daysBack = defaultDaysBack
	}

	// A fetch failure partway still yields the messages read so far;
	// warn and store what came through.
	records, err := i.gmail.Fetch(ctx, daysBack)
	if err != nil {
		fmt.Printf("[INGEST] Warning: Gmail fetch incomplete: %v\n", err)
	}
	if len(records) == 0 {
		return 0, nil
	}

	InferReplies(records)

	return i.storeBatches(ctx, records)
}

// parsePath dispatches a single path to the right parser.
func parsePath(path string) ([]models.EmailRecord, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	if info.IsDir() {
		return ParseDirectory(path)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".mbox":
		return ParseMBOXFile(path)
	case ".eml":
		record, err := ParseEMLFile(path)
		if err != nil {
			return nil, err
		}
		return []models.EmailRecord{*record}, nil
	default:
		return nil, fmt.Errorf("unsupported file type %q", filepath.Ext(path))
	}
}

// InferReplies marks received messages as replied when a later sent
// message exists in the same thread. Exported mail rarely carries an
// answered flag, so the thread itself is the evidence. Flags already
// set by the parser are never cleared.
func InferReplies(records []models.EmailRecord) {
	lastSent := make(map[string]string)
	for _, r := range records {
		if r.Direction != models.DirectionSent || r.ThreadID == "" {
			continue
		}
		if r.Date > lastSent[r.ThreadID] {
			lastSent[r.ThreadID] = r.Date
		}
	}

	for idx := range records {
		r := &records[idx]
		if r.Direction != models.DirectionReceived || r.IsReplied || r.ThreadID == "" {
			continue
		}
		if sentAt, ok := lastSent[r.ThreadID]; ok && sentAt > r.Date {
			r.IsReplied = true
		}
	}
}

// storeBatches adds records in fixed-size batches so embedding calls
// stay bounded. Returns how many the store accepted as new.
func (i *Ingestor) storeBatches(ctx context.Context, records []models.EmailRecord) (int, error) {
	stored := 0
	for start := 0; start < len(records); start += i.batchSize {
		end := start + i.batchSize
		if end > len(records) {
			end = len(records)
		}

		added, err := i.store.Add(ctx, records[start:end])
		stored += added
		if err != nil {
			return stored, fmt.Errorf("storing batch at %d: %w", start, err)
		}

		fmt.Printf("[INGEST] Stored batch %d-%d (%d new)\n", start+1, end, added)
	}
	return stored, nil
}
