package rag

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"inboxai/internal/llm"
	"inboxai/internal/models"
	"inboxai/internal/store"
)

// Generator produces answer text from a fully assembled prompt.
// Implemented by the llm client.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	GenerateStream(ctx context.Context, prompt string) (llm.TokenStream, error)
}

// CalendarProvider yields upcoming meetings. Providers report their own
// failures through the result's Error field so a broken calendar never
// takes the rest of the service down with it.
type CalendarProvider interface {
	UpcomingMeetings(ctx context.Context) *models.MeetingsResult
	NextBusinessDayMeetings(ctx context.Context) *models.MeetingsResult
}

// Engine runs the retrieval and synthesis pipeline: classify the
// question, compose a store filter, search, pull in full conversation
// threads, then hand the formatted context to the model.
type Engine struct {
	store       store.Store
	generator   Generator
	calendar    CalendarProvider
	searchLimit int
	maxSources  int
	now         func() time.Time
}

// NewEngine wires an engine. calendar may be nil when no calendar is
// configured; meeting listing then degrades to an error payload.
func NewEngine(st store.Store, gen Generator, cal CalendarProvider, searchLimit, maxSources int) *Engine {
	if searchLimit <= 0 {
		searchLimit = 10
	}
	if maxSources <= 0 {
		maxSources = 10
	}
	return &Engine{
		store:       st,
		generator:   gen,
		calendar:    cal,
		searchLimit: searchLimit,
		maxSources:  maxSources,
		now:         time.Now,
	}
}

// Query answers a question about the mailbox and cites its sources.
// Citations come from the raw search hits; the generated answer sees
// the thread-expanded working set.
func (e *Engine) Query(ctx context.Context, message string) (*models.QueryResult, error) {
	now := e.now()
	filter, intent := ComposeFilter(message, now)

	hits, err := e.searchWithFallback(ctx, message, e.searchLimit, filter)
	if err != nil {
		return nil, err
	}
	fmt.Printf("[RAG] Retrieved %d emails for query: %.50s...\n", len(hits), message)

	expanded := e.expandThreads(ctx, hits)
	fmt.Printf("[RAG] Expanded to %d emails with thread context\n", len(expanded))

	prompt := BuildAnswerPrompt(message, expanded, now)
	answer, err := e.generator.Generate(ctx, prompt)
	if err != nil {
		fmt.Printf("[RAG] LLM error: %v\n", err)
		answer = fmt.Sprintf("Error generating response: %v", err)
	}

	return &models.QueryResult{
		Answer:          answer,
		Sources:         e.sources(hits),
		QueryType:       string(intent),
		EmailsFound:     len(hits),
		ThreadsIncluded: countThreads(expanded),
	}, nil
}

// Summary returns mailbox statistics plus two short digests: received
// emails that look like they need a reply, and sent emails still
// waiting for one.
func (e *Engine) Summary(ctx context.Context) (*models.SummaryResult, error) {
	stats, err := e.Stats(ctx)
	if err != nil {
		return nil, err
	}

	unreplied := store.And(
		store.Eq(store.FieldDirection, models.DirectionReceived),
		store.Eq(store.FieldIsReplied, false),
	)
	actionNeeded, err := e.store.Search(ctx, "action required response needed deadline", 5, unreplied)
	if err != nil {
		return nil, fmt.Errorf("searching action items: %w", err)
	}

	unanswered := store.And(
		store.Eq(store.FieldDirection, models.DirectionSent),
		store.Eq(store.FieldIsReplied, false),
	)
	awaiting, err := e.store.Search(ctx, "sent waiting for response", 5, unanswered)
	if err != nil {
		return nil, fmt.Errorf("searching awaiting replies: %w", err)
	}

	result := &models.SummaryResult{
		Stats:            *stats,
		ActionNeeded:     []models.SummaryDigestItem{},
		AwaitingResponse: []models.SummaryDigestItem{},
	}
	for _, h := range actionNeeded {
		result.ActionNeeded = append(result.ActionNeeded, models.SummaryDigestItem{
			Sender:  h.Record.Sender,
			Subject: h.Record.Subject,
			Date:    h.Record.Date,
		})
	}
	for _, h := range awaiting {
		recipient := ""
		if len(h.Record.Recipients) > 0 {
			recipient = h.Record.Recipients[0]
		}
		result.AwaitingResponse = append(result.AwaitingResponse, models.SummaryDigestItem{
			Recipient: recipient,
			Subject:   h.Record.Subject,
			Date:      h.Record.Date,
		})
	}
	return result, nil
}

// Tasks returns the open conversations split by who owes the next
// reply, with needs-action items tagged when they semantically match
// deadline or question language.
func (e *Engine) Tasks(ctx context.Context) (*models.TasksResult, error) {
	items := e.openItems(ctx)

	needsAction := []models.OpenItem{}
	awaiting := []models.OpenItem{}
	for _, item := range items {
		switch item.Status {
		case models.StatusNeedsAction:
			needsAction = append(needsAction, item)
		case models.StatusAwaitingResponse:
			awaiting = append(awaiting, item)
		}
	}

	unreplied := store.And(
		store.Eq(store.FieldDirection, models.DirectionReceived),
		store.Eq(store.FieldIsReplied, false),
	)
	deadlineHits, err := e.store.Search(ctx, "deadline due date by end of urgent asap", 10, unreplied)
	if err != nil {
		return nil, fmt.Errorf("searching deadline emails: %w", err)
	}
	questionHits, err := e.store.Search(ctx, "question can you could you please let me know", 10, unreplied)
	if err != nil {
		return nil, fmt.Errorf("searching question emails: %w", err)
	}

	deadlineSubjects := subjectSet(deadlineHits)
	questionSubjects := subjectSet(questionHits)

	withDeadlines, withQuestions := 0, 0
	for i := range needsAction {
		needsAction[i].Tags = []string{}
		if deadlineSubjects[needsAction[i].Subject] {
			needsAction[i].Tags = append(needsAction[i].Tags, "deadline")
			withDeadlines++
		}
		if questionSubjects[needsAction[i].Subject] {
			needsAction[i].Tags = append(needsAction[i].Tags, "question")
			withQuestions++
		}
	}

	return &models.TasksResult{
		NeedsAction:      needsAction,
		AwaitingResponse: awaiting,
		TotalOpen:        len(needsAction) + len(awaiting),
		Summary: models.TasksSummary{
			NeedsActionCount:      len(needsAction),
			AwaitingResponseCount: len(awaiting),
			WithDeadlines:         withDeadlines,
			WithQuestions:         withQuestions,
		},
	}, nil
}

// Stats counts the stored corpus. Direction, read and flag counters
// come from a sample capped at 1000 records to keep the scan cheap.
func (e *Engine) Stats(ctx context.Context) (*models.StatsResult, error) {
	total, err := e.store.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting records: %w", err)
	}

	stats := &models.StatsResult{TotalEmails: total}
	if total == 0 {
		return stats, nil
	}

	limit := total
	if limit > 1000 {
		limit = 1000
	}
	sample, err := e.store.FetchAll(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("sampling records: %w", err)
	}
	for _, r := range sample {
		if r.Direction == models.DirectionSent {
			stats.Sent++
		} else {
			stats.Received++
		}
		if !r.IsRead {
			stats.Unread++
		}
		if r.IsFlagged {
			stats.Flagged++
		}
	}
	return stats, nil
}

// MeetingPrep builds a brief for one meeting by searching the mailbox
// three ways (subject, attendees, meeting-summary notes), expanding
// threads and asking the model for a structured summary.
func (e *Engine) MeetingPrep(ctx context.Context, meeting models.Meeting) (*models.MeetingBrief, error) {
	hits := e.meetingSearch(ctx, meeting)
	expanded := e.expandThreads(ctx, hits)
	fmt.Printf("[RAG] Meeting prep for %q: %d unique emails, %d with threads\n",
		meeting.Subject, len(hits), len(expanded))

	prompt := BuildMeetingPrepPrompt(meeting, expanded, e.now())
	brief, err := e.generator.Generate(ctx, prompt)
	if err != nil {
		fmt.Printf("[RAG] Meeting prep LLM error: %v\n", err)
		brief = fmt.Sprintf("Error generating meeting prep: %v", err)
	}

	return &models.MeetingBrief{
		Meeting:      meeting,
		Brief:        brief,
		EmailsFound:  len(hits),
		ThreadsFound: countThreads(expanded),
		Sources:      e.meetingSources(hits),
	}, nil
}

// Meetings lists the upcoming meetings from the configured calendar.
func (e *Engine) Meetings(ctx context.Context) *models.MeetingsResult {
	if e.calendar == nil {
		return calendarUnavailable()
	}
	return e.calendar.UpcomingMeetings(ctx)
}

// MeetingsNextBusinessDay lists only the next working day's meetings,
// the view a morning brief wants.
func (e *Engine) MeetingsNextBusinessDay(ctx context.Context) *models.MeetingsResult {
	if e.calendar == nil {
		return calendarUnavailable()
	}
	return e.calendar.NextBusinessDayMeetings(ctx)
}

func calendarUnavailable() *models.MeetingsResult {
	return &models.MeetingsResult{
		Meetings: []models.Meeting{},
		ByDate:   map[string][]models.Meeting{},
		Error:    "Calendar not available (Google Calendar credentials required)",
	}
}

// searchWithFallback searches with the composed filter and degrades to
// an unfiltered search when the filtered one fails or matches nothing.
// An over-specific filter must never hide data that exists, and a
// backend rejecting a filter gets one more chance before the error
// surfaces.
func (e *Engine) searchWithFallback(ctx context.Context, query string, limit int, filter store.Filter) ([]models.SearchHit, error) {
	hits, err := e.store.Search(ctx, query, limit, filter)
	if err != nil {
		if filter.IsEmpty() {
			return nil, fmt.Errorf("searching store: %w", err)
		}
		fmt.Printf("[RAG] Filtered search failed, retrying without filter: %v\n", err)
		hits, err = e.store.Search(ctx, query, limit, store.Filter{})
		if err != nil {
			return nil, fmt.Errorf("searching store: %w", err)
		}
		return hits, nil
	}

	if len(hits) == 0 && !filter.IsEmpty() {
		fmt.Printf("[RAG] No results with filter, retrying without filter\n")
		hits, err = e.store.Search(ctx, query, limit, store.Filter{})
		if err != nil {
			return nil, fmt.Errorf("searching store: %w", err)
		}
	}
	return hits, nil
}

// expandThreads grows the search hits into a working set containing
// every message of every thread a hit belongs to, deduplicated by id.
// Thread mates join even when they would not have matched the query
// filter; the model needs the whole conversation. For each seed its
// thread batch is appended oldest first, then the seed itself, so a
// skipped or failed thread fetch still leaves the seed in the set.
func (e *Engine) expandThreads(ctx context.Context, hits []models.SearchHit) []models.EmailRecord {
	seenIDs := make(map[string]bool)
	seenThreads := make(map[string]bool)
	var expanded []models.EmailRecord

	for _, hit := range hits {
		r := hit.Record
		if seenIDs[r.ID] {
			continue
		}
		seenIDs[r.ID] = true

		if r.ThreadID == "" || seenThreads[r.ThreadID] {
			expanded = append(expanded, r)
			continue
		}
		seenThreads[r.ThreadID] = true

		thread, err := e.store.FetchByAttribute(ctx, store.FieldThreadID, r.ThreadID)
		if err != nil {
			fmt.Printf("[RAG] Thread lookup failed for %s: %v\n", r.ThreadID, err)
			expanded = append(expanded, r)
			continue
		}
		sort.SliceStable(thread, func(i, j int) bool {
			return thread[i].Date < thread[j].Date
		})
		for _, te := range thread {
			if seenIDs[te.ID] {
				continue
			}
			seenIDs[te.ID] = true
			expanded = append(expanded, te)
		}
		expanded = append(expanded, r)
	}
	return expanded
}

// meetingSearch gathers candidate emails for a meeting: by subject, by
// the first three attendees, and by a synthetic meeting-notes query
// that catches mailed-in meeting summaries. Results are deduplicated
// by id across all rounds. A failing round is logged and skipped so
// one bad search does not cost the whole brief.
func (e *Engine) meetingSearch(ctx context.Context, meeting models.Meeting) []models.SearchHit {
	var hits []models.SearchHit
	seen := make(map[string]bool)

	add := func(results []models.SearchHit, err error) {
		if err != nil {
			fmt.Printf("[RAG] Meeting prep search failed: %v\n", err)
			return
		}
		for _, h := range results {
			if seen[h.ID] {
				continue
			}
			seen[h.ID] = true
			hits = append(hits, h)
		}
	}

	if meeting.Subject != "" {
		add(e.store.Search(ctx, meeting.Subject, 10, store.Filter{}))
	}

	attendees := meeting.AllAttendees
	if len(attendees) > 3 {
		attendees = attendees[:3]
	}
	for _, attendee := range attendees {
		if attendee == "" {
			continue
		}
		add(e.store.Search(ctx, attendee, 5, store.Filter{}))
	}

	if meeting.Subject != "" {
		add(e.store.Search(ctx, "meeting summary notes "+meeting.Subject, 5, store.Filter{}))
	}
	return hits
}

func (e *Engine) openItems(ctx context.Context) []models.OpenItem {
	total, err := e.store.Count(ctx)
	if err != nil {
		fmt.Printf("[RAG] Open items count failed: %v\n", err)
		return []models.OpenItem{}
	}
	if total == 0 {
		return []models.OpenItem{}
	}

	limit := total
	if limit > 5000 {
		limit = 5000
	}
	records, err := e.store.FetchAll(ctx, limit)
	if err != nil {
		fmt.Printf("[RAG] Open items query failed: %v\n", err)
		return []models.OpenItem{}
	}
	return ComputeOpenItems(records)
}

// sources builds the citation list from the raw search hits, capped at
// maxSources, with the relevance expressed as a percentage rounded to
// one decimal.
func (e *Engine) sources(hits []models.SearchHit) []models.Source {
	n := len(hits)
	if n > e.maxSources {
		n = e.maxSources
	}
	out := make([]models.Source, 0, n)
	for _, h := range hits[:n] {
		out = append(out, models.Source{
			Sender:    h.Record.DisplayName(),
			Subject:   h.Record.Subject,
			Date:      h.Record.Date,
			Relevance: math.Round(h.Relevance*1000) / 10,
			ThreadID:  h.Record.ThreadID,
		})
	}
	return out
}

func (e *Engine) meetingSources(hits []models.SearchHit) []models.Source {
	n := len(hits)
	if n > e.maxSources {
		n = e.maxSources
	}
	out := make([]models.Source, 0, n)
	for _, h := range hits[:n] {
		out = append(out, models.Source{
			Sender:  h.Record.DisplayName(),
			Subject: h.Record.Subject,
			Date:    h.Record.Date,
		})
	}
	return out
}

func countThreads(records []models.EmailRecord) int {
	seen := make(map[string]bool)
	for _, r := range records {
		if r.ThreadID != "" {
			seen[r.ThreadID] = true
		}
	}
	return len(seen)
}

func subjectSet(hits []models.SearchHit) map[string]bool {
	set := make(map[string]bool)
	for _, h := range hits {
		if h.Record.Subject != "" {
			set[h.Record.Subject] = true
		}
	}
	return set
}
