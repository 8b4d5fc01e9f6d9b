package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"inboxai/internal/models"

	"github.com/jmoiron/sqlx"
)

// EventType constants for tracking different events
const (
	EventChat        = "chat"
	EventSearch      = "search"
	EventSummary     = "summary"
	EventTasks       = "tasks"
	EventStats       = "stats"
	EventMeetingPrep = "meeting_prep"
	EventIngest      = "ingest"
	EventShare       = "share"
	EventLLMCall     = "llm_call" // Completion call against the LLM backend (tokens in metadata)
)

// Period constants for analytics queries
const (
	PeriodToday      = "today"
	PeriodYesterday  = "yesterday"
	PeriodLast7Days  = "last_7_days"
	PeriodLast30Days = "last_30_days"
)

const queryTimeout = 30 * time.Second

// Service handles analytics tracking and retrieval
type Service struct {
	db *sqlx.DB
	mu sync.Mutex
}

// NewService creates a new analytics service on an already-connected database
func NewService(db *sqlx.DB) (*Service, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required for analytics service")
	}

	service := &Service{db: db}

	// Create analytics tables if they don't exist
	if err := service.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create analytics tables: %w", err)
	}

	return service, nil
}

// createTables creates the analytics tables in the database
func (s *Service) createTables() error {
	queries := []string{
		// Analytics events table
		`CREATE TABLE IF NOT EXISTS analytics_events (
			id SERIAL PRIMARY KEY,
			event_type VARCHAR(50) NOT NULL,
			count INT DEFAULT 1,
			metadata JSONB,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		// Create indexes
		`CREATE INDEX IF NOT EXISTS idx_analytics_event_type ON analytics_events(event_type)`,
		`CREATE INDEX IF NOT EXISTS idx_analytics_created_at ON analytics_events(created_at)`,
		// Daily aggregates table for faster queries
		`CREATE TABLE IF NOT EXISTS analytics_daily (
			id SERIAL PRIMARY KEY,
			date DATE NOT NULL,
			event_type VARCHAR(50) NOT NULL,
			total_count INT DEFAULT 0,
			metadata JSONB,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(date, event_type)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_analytics_daily_date ON analytics_daily(date)`,
	}

	for _, query := range queries {
		if err := s.exec(query); err != nil {
			// Ignore "already exists" errors
			continue
		}
	}

	return nil
}

// exec runs a write query with a bounded timeout
func (s *Service) exec(query string, args ...interface{}) error {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx, query, args...)
	return err
}

// TrackEvent records an analytics event
func (s *Service) TrackEvent(eventType string, count int, metadata map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var metadataJSON *string
	if metadata != nil {
		jsonBytes, err := json.Marshal(metadata)
		if err == nil {
			str := string(jsonBytes)
			metadataJSON = &str
		}
	}

	// Insert event
	query := `INSERT INTO analytics_events (event_type, count, metadata) VALUES ($1, $2, $3)`
	if err := s.exec(query, eventType, count, metadataJSON); err != nil {
		return fmt.Errorf("failed to track event: %w", err)
	}

	// Update daily aggregate
	today := time.Now().UTC().Format("2006-01-02")
	aggregateQuery := `
		INSERT INTO analytics_daily (date, event_type, total_count, metadata)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (date, event_type) DO UPDATE SET
			total_count = analytics_daily.total_count + EXCLUDED.total_count,
			updated_at = CURRENT_TIMESTAMP
	`
	if err := s.exec(aggregateQuery, today, eventType, count, metadataJSON); err != nil {
		fmt.Printf("[ANALYTICS] Warning: Failed to update daily aggregate: %v\n", err)
	}

	return nil
}

// TrackQuery records one answered request of the given kind (chat, search,
// summary, tasks, stats, meeting_prep) with its retrieval counters and latency
func (s *Service) TrackQuery(kind string, emailsFound int, threadsIncluded int, latency time.Duration) error {
	metadata := map[string]interface{}{
		"emails_found":     emailsFound,
		"threads_included": threadsIncluded,
		"latency_ms":       latency.Milliseconds(),
	}
	return s.TrackEvent(kind, 1, metadata)
}

// TrackLLMCall records a completion call and its token usage
func (s *Service) TrackLLMCall(tokens int, model string) error {
	metadata := map[string]interface{}{
		"tokens": tokens,
		"model":  model,
	}
	return s.TrackEvent(EventLLMCall, 1, metadata)
}

// TrackIngest records an ingestion run; count carries the emails added
func (s *Service) TrackIngest(fileEmails int, gmailEmails int) error {
	metadata := map[string]interface{}{
		"file_emails":  fileEmails,
		"gmail_emails": gmailEmails,
	}
	return s.TrackEvent(EventIngest, fileEmails+gmailEmails, metadata)
}

// TrackShare records a brief or summary sent by email
func (s *Service) TrackShare(recipient string) error {
	metadata := map[string]interface{}{
		"recipient_hash": hashEmail(recipient),
	}
	return s.TrackEvent(EventShare, 1, metadata)
}

// GetSummary retrieves analytics summary for a time period
func (s *Service) GetSummary(period string) (*models.AnalyticsSummary, error) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	now := time.Now().UTC()
	var startDate, endDate time.Time

	switch period {
	case PeriodToday:
		startDate = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		endDate = now
	case PeriodYesterday:
		yesterday := now.AddDate(0, 0, -1)
		startDate = time.Date(yesterday.Year(), yesterday.Month(), yesterday.Day(), 0, 0, 0, 0, time.UTC)
		endDate = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	case PeriodLast7Days:
		startDate = now.AddDate(0, 0, -7)
		endDate = now
	case PeriodLast30Days:
		startDate = now.AddDate(0, 0, -30)
		endDate = now
	default:
		period = PeriodToday
		startDate = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		endDate = now
	}

	summary := &models.AnalyticsSummary{
		Period:    period,
		StartDate: startDate,
		EndDate:   endDate,
	}

	// Get event counts from daily aggregates
	query := `
		SELECT event_type, COALESCE(SUM(total_count), 0) as total
		FROM analytics_daily
		WHERE date >= $1 AND date <= $2
		GROUP BY event_type
	`

	rows, err := s.db.QueryContext(ctx, query, startDate.Format("2006-01-02"), endDate.Format("2006-01-02"))
	if err != nil {
		return nil, fmt.Errorf("failed to get analytics summary: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var eventType string
		var total int
		if err := rows.Scan(&eventType, &total); err != nil {
			continue
		}

		switch eventType {
		case EventChat:
			summary.ChatQueries = total
		case EventSearch:
			summary.Searches = total
		case EventSummary:
			summary.SummaryViews = total
		case EventTasks:
			summary.TasksViews = total
		case EventStats:
			summary.StatsViews = total
		case EventMeetingPrep:
			summary.MeetingPreps = total
		case EventIngest:
			summary.EmailsIngested = total
		case EventShare:
			summary.SharesSent = total
		case EventLLMCall:
			summary.LLMCalls = total
		}
	}

	// Get LLM token usage from event metadata
	tokenQuery := `
		SELECT COALESCE(SUM((metadata->>'tokens')::int), 0) as total_tokens
		FROM analytics_events
		WHERE event_type = $1 AND created_at >= $2 AND created_at <= $3
		AND metadata->>'tokens' IS NOT NULL
	`
	var totalTokens int
	err = s.db.QueryRowContext(ctx, tokenQuery, EventLLMCall, startDate, endDate).Scan(&totalTokens)
	if err == nil {
		summary.LLMTokensUsed = totalTokens
	}

	// Sum search hits over chat and raw search events
	matchQuery := `
		SELECT COALESCE(SUM((metadata->>'emails_found')::int), 0) as total_matched
		FROM analytics_events
		WHERE event_type = $1 AND created_at >= $2 AND created_at <= $3
		AND metadata->>'emails_found' IS NOT NULL
	`
	var chatMatched int
	err = s.db.QueryRowContext(ctx, matchQuery, EventChat, startDate, endDate).Scan(&chatMatched)
	if err == nil {
		summary.EmailsMatched = chatMatched
	}

	var searchMatched int
	err = s.db.QueryRowContext(ctx, matchQuery, EventSearch, startDate, endDate).Scan(&searchMatched)
	if err == nil {
		summary.EmailsMatched += searchMatched
	}

	// Mean latency across all tracked requests
	latencyQuery := `
		SELECT COALESCE(ROUND(AVG((metadata->>'latency_ms')::int)), 0)::int as avg_latency
		FROM analytics_events
		WHERE created_at >= $1 AND created_at <= $2
		AND metadata->>'latency_ms' IS NOT NULL
	`
	var avgLatency int
	err = s.db.QueryRowContext(ctx, latencyQuery, startDate, endDate).Scan(&avgLatency)
	if err == nil {
		summary.AvgLatencyMS = avgLatency
	}

	return summary, nil
}

// GetDailyReport generates a report for the previous complete day
func (s *Service) GetDailyReport() (*models.AnalyticsSummary, error) {
	return s.GetSummary(PeriodYesterday)
}

// hashEmail creates a simple hash of an email for privacy
func hashEmail(email string) string {
	if len(email) < 3 {
		return "***"
	}
	return email[:2] + "***" + email[len(email)-3:]
}
