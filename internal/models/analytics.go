package models

import "time"

// AnalyticsEvent represents a tracked usage event
type AnalyticsEvent struct {
	ID        int       `db:"id" json:"id"`
	EventType string    `db:"event_type" json:"event_type"` // chat, search, summary, tasks, stats, meeting_prep, ingest, share, llm_call
	Count     int       `db:"count" json:"count"`
	Metadata  *string   `db:"metadata" json:"metadata,omitempty"` // JSON metadata (hit counts, latency, tokens, model)
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// AnalyticsSummary represents aggregated usage for a time period
type AnalyticsSummary struct {
	Period         string    `json:"period"` // "today", "yesterday", "last_7_days", "last_30_days"
	StartDate      time.Time `json:"start_date"`
	EndDate        time.Time `json:"end_date"`
	ChatQueries    int       `json:"chat_queries"`    // Questions answered via /api/chat
	Searches       int       `json:"searches"`        // Raw searches via /api/search
	SummaryViews   int       `json:"summary_views"`   // Inbox summary requests
	TasksViews     int       `json:"tasks_views"`     // Open-items requests
	StatsViews     int       `json:"stats_views"`     // Mailbox stats requests
	MeetingPreps   int       `json:"meeting_preps"`   // Meeting briefs generated
	EmailsIngested int       `json:"emails_ingested"` // Emails added by ingestion runs
	SharesSent     int       `json:"shares_sent"`     // Briefs/summaries emailed out
	LLMCalls       int       `json:"llm_calls"`       // Completion calls to the LLM backend
	LLMTokensUsed  int       `json:"llm_tokens_used"` // Total tokens consumed
	EmailsMatched  int       `json:"emails_matched"`  // Search hits summed over chat and search
	AvgLatencyMS   int       `json:"avg_latency_ms"`  // Mean request latency where tracked
}

// AnalyticsResponse represents the API response for analytics
// @Description Analytics response payload
type AnalyticsResponse struct {
	Success bool              `json:"success" example:"true"`
	Summary *AnalyticsSummary `json:"summary,omitempty"`
	Error   string            `json:"error,omitempty" example:""`
}
