package models

import "time"

// HealthResponse represents a basic health check response
// @Description Health check response
type HealthResponse struct {
	Status    string    `json:"status" example:"healthy"`                 // Health status
	Timestamp time.Time `json:"timestamp" example:"2023-01-01T00:00:00Z"` // Timestamp of the check
	Version   string    `json:"version" example:"1.0.0"`                  // Application version
}

// DBHealthResponse represents a database health check response
// @Description Database health check response
type DBHealthResponse struct {
	Status    string        `json:"status" example:"healthy"`                   // Health status
	Timestamp time.Time     `json:"timestamp" example:"2023-01-01T00:00:00Z"`   // Timestamp of the check
	Connected bool          `json:"connected" example:"true"`                   // Database connection status
	Latency   time.Duration `json:"latency" swaggertype:"string" example:"1ms"` // Database ping latency
	Error     string        `json:"error,omitempty" example:""`                 // Error message if any
}

// APIHealthResponse reports backend connectivity for the dashboard
// @Description Service health with backend probes
type APIHealthResponse struct {
	LLMConnected      bool   `json:"llm_connected" example:"true"`        // LLM backend reachable
	LLMModel          string `json:"llm_model" example:"llama3.1:8b"`     // Configured generation model
	EmailCount        int    `json:"email_count" example:"1342"`          // Records in the vector store
	CalendarAvailable bool   `json:"calendar_available" example:"false"`  // Calendar provider configured
}

// Source is a citation attached to a generated answer.
type Source struct {
	Sender    string  `json:"sender"`
	Subject   string  `json:"subject"`
	Date      string  `json:"date"`
	Relevance float64 `json:"relevance,omitempty"` // percentage, one decimal
	ThreadID  string  `json:"conversation_id,omitempty"`
}

// QueryResult is the full answer payload for a blocking query.
// @Description Answer with citations and retrieval counters
type QueryResult struct {
	Answer          string   `json:"answer"`           // Generated answer text
	Sources         []Source `json:"sources"`          // Up to ten pre-expansion citations
	QueryType       string   `json:"query_type"`       // Detected intent kind
	EmailsFound     int      `json:"emails_found"`     // Raw search hits
	ThreadsIncluded int      `json:"threads_included"` // Distinct threads after expansion
}

// StatsResult summarizes the stored corpus.
// @Description Mailbox statistics
type StatsResult struct {
	TotalEmails int `json:"total_emails" example:"1342"`
	Sent        int `json:"sent" example:"411"`
	Received    int `json:"received" example:"931"`
	Unread      int `json:"unread" example:"87"`
	Flagged     int `json:"flagged" example:"12"`
}

// SummaryDigestItem is one entry in the inbox summary digests.
type SummaryDigestItem struct {
	Sender    string `json:"sender,omitempty"`
	Recipient string `json:"recipient,omitempty"`
	Subject   string `json:"subject"`
	Date      string `json:"date"`
}

// SummaryResult is the inbox summary payload.
// @Description Inbox summary with stats and open-loop digests
type SummaryResult struct {
	Stats            StatsResult         `json:"stats"`
	ActionNeeded     []SummaryDigestItem `json:"action_needed"`
	AwaitingResponse []SummaryDigestItem `json:"awaiting_response"`
}

// TasksSummary carries aggregate counts for the tasks view.
type TasksSummary struct {
	NeedsActionCount      int `json:"needs_action_count"`
	AwaitingResponseCount int `json:"awaiting_response_count"`
	WithDeadlines         int `json:"with_deadlines"`
	WithQuestions         int `json:"with_questions"`
}

// TasksResult is the categorized open-items payload.
// @Description Open conversations split by who owes the next reply
type TasksResult struct {
	NeedsAction      []OpenItem   `json:"needs_action"`
	AwaitingResponse []OpenItem   `json:"awaiting_response"`
	TotalOpen        int          `json:"total_open"`
	Summary          TasksSummary `json:"summary"`
}

// MeetingsResult lists upcoming meetings grouped by day.
// @Description Upcoming meetings for the next N days
type MeetingsResult struct {
	StartDate    string               `json:"start_date"`
	EndDate      string               `json:"end_date"`
	StartISO     string               `json:"start_iso"`
	EndISO       string               `json:"end_iso"`
	Days         int                  `json:"days"`
	MeetingCount int                  `json:"meeting_count"`
	Meetings     []Meeting            `json:"meetings"`
	ByDate       map[string][]Meeting `json:"by_date"`
	Error        string               `json:"error,omitempty"`
}

// MeetingBrief is the generated preparation brief for one meeting.
// @Description Meeting brief with email grounding
type MeetingBrief struct {
	Meeting      Meeting  `json:"meeting"`
	Brief        string   `json:"brief"`
	EmailsFound  int      `json:"emails_found"`
	ThreadsFound int      `json:"threads_found"`
	Sources      []Source `json:"sources"`
}

// SearchResultItem is one row of the raw search endpoint.
type SearchResultItem struct {
	Sender    string  `json:"sender"`
	Subject   string  `json:"subject"`
	Date      string  `json:"date"`
	Preview   string  `json:"preview"`
	Relevance float64 `json:"relevance"`
}

// SearchResponse wraps the raw search results.
type SearchResponse struct {
	Results []SearchResultItem `json:"results"`
}

// ModelsResponse lists the generation models the LLM backend offers.
type ModelsResponse struct {
	Models []string `json:"models"`
}

// ChatRequest is the request body for the chat endpoint
// @Description Chat request payload
type ChatRequest struct {
	Message string `json:"message" example:"what do I need to respond to?"` // User question
	Stream  bool   `json:"stream" example:"false"`                         // Stream the answer over SSE
}

// SearchRequest is the request body for the raw search endpoint
// @Description Search request payload
type SearchRequest struct {
	Query string `json:"query" example:"invoice from vodafone"` // Search text
	Limit int    `json:"limit" example:"20"`                    // Max results
}

// IngestRequest selects sources for an ingestion run
// @Description Ingestion request payload
type IngestRequest struct {
	Paths        []string `json:"paths,omitempty"`         // mbox/EML files or directories
	IncludeGmail bool     `json:"include_gmail,omitempty"` // Pull from the configured Gmail account
	DaysBack     int      `json:"days,omitempty"`          // Lookback window, defaults to config
}

// IngestResult reports what an ingestion run added.
type IngestResult struct {
	FileEmails  int `json:"file_emails"`
	GmailEmails int `json:"gmail_emails"`
	TotalStored int `json:"total_stored"`
}

// ShareRequest asks the service to email a generated brief or summary
// @Description Share-by-email request payload
type ShareRequest struct {
	To      string `json:"to" example:"me@example.com"`       // Recipient address
	Subject string `json:"subject" example:"Meeting brief"`   // Email subject
	Content string `json:"content" example:"..."`             // Body to deliver
}

// Response is a generic success/error envelope for admin endpoints.
type Response struct {
	Success bool   `json:"success" example:"true"`
	Message string `json:"message,omitempty" example:"cleared"`
	Error   string `json:"error,omitempty" example:""`
}
