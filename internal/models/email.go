package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Email directions as stored in record metadata.
const (
	DirectionSent     = "sent"
	DirectionReceived = "received"
)

// Open item statuses derived from the last message of a thread.
const (
	StatusNeedsAction      = "needs_action"
	StatusAwaitingResponse = "awaiting_response"
	StatusCompleted        = "completed"
)

// EmailRecord is a single email as stored in the vector store.
// Date is a UTC RFC 3339 string so lexicographic order matches
// chronological order; an empty date sorts before everything else.
type EmailRecord struct {
	ID         string    `db:"id" json:"id"`
	ThreadID   string    `db:"thread_id" json:"thread_id,omitempty"` // empty for standalone emails
	Sender     string    `db:"sender" json:"sender"`
	SenderName string    `db:"sender_name" json:"sender_name,omitempty"`
	Recipients []string  `json:"recipients,omitempty"`
	Subject    string    `db:"subject" json:"subject"`
	Date       string    `db:"date" json:"date"`
	Direction  string    `db:"direction" json:"direction"`
	IsRead     bool      `db:"is_read" json:"is_read"`
	IsReplied  bool      `db:"is_replied" json:"is_replied"`
	IsFlagged  bool      `db:"is_flagged" json:"is_flagged"`
	Body       string    `db:"body" json:"body,omitempty"`
	Embedding  []float32 `json:"-"`
}

// DisplayName returns the human-readable sender, falling back to the address.
func (r EmailRecord) DisplayName() string {
	if r.SenderName != "" {
		return r.SenderName
	}
	return r.Sender
}

// Document builds the searchable text for this record: header lines,
// a blank line, then the body capped at 5000 characters.
func (r EmailRecord) Document() string {
	var parts []string

	if r.Sender != "" {
		parts = append(parts, "From: "+r.DisplayName())
	}
	if len(r.Recipients) > 0 {
		parts = append(parts, "To: "+strings.Join(r.Recipients, ", "))
	}
	if r.Subject != "" {
		parts = append(parts, "Subject: "+r.Subject)
	}
	if r.Date != "" {
		parts = append(parts, "Date: "+r.Date)
	}

	parts = append(parts, "")

	if body := r.Body; body != "" {
		if len(body) > 5000 {
			body = body[:5000] + "..."
		}
		parts = append(parts, body)
	}

	return strings.Join(parts, "\n")
}

// UniqueID derives a stable 32-hex-char content hash for an email.
// Prefers the RFC message id; falls back to hashing key fields.
func UniqueID(messageID, sender, subject, date string) string {
	key := messageID
	if key == "" {
		key = fmt.Sprintf("%s:%s:%s", sender, subject, date)
	}
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])[:32]
}

// SearchHit is one nearest-neighbor result from the store.
type SearchHit struct {
	ID        string      `json:"id"`
	Document  string      `json:"document"`
	Record    EmailRecord `json:"metadata"`
	Distance  float64     `json:"distance"`
	Relevance float64     `json:"relevance"` // 1 - cosine distance
}

// OpenItem is an unresolved conversation surfaced by the open-items scan.
type OpenItem struct {
	ThreadID     string   `json:"conversation_id"`
	Subject      string   `json:"subject"`
	Sender       string   `json:"sender"`
	SenderName   string   `json:"sender_name"`
	Date         string   `json:"date"`
	MessageCount int      `json:"message_count"`
	Status       string   `json:"status"`
	Participants []string `json:"participants"`
	Tags         []string `json:"tags,omitempty"`
}

// Meeting is a calendar event the engine can prepare a brief for.
type Meeting struct {
	Subject           string   `json:"subject"`
	Start             string   `json:"start"`
	End               string   `json:"end"`
	DurationMinutes   int      `json:"duration_minutes"`
	Location          string   `json:"location"`
	Body              string   `json:"body,omitempty"`
	Organizer         string   `json:"organizer"`
	RequiredAttendees []string `json:"required_attendees"`
	OptionalAttendees []string `json:"optional_attendees"`
	AllAttendees      []string `json:"all_attendees"`
	IsAllDay          bool     `json:"is_all_day"`
	IsRecurring       bool     `json:"is_recurring"`
}
