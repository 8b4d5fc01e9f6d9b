package ingest

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/mail"
	"strings"
	"time"

	gm "google.golang.org/api/gmail/v1"

	"inboxai/internal/models"
)

// gmailPageSize is how many message ids one list call returns.
const gmailPageSize = 500

// GmailSource imports recent mail through the Gmail API. Thread ids,
// read state, and direction come from the account's native thread and
// label metadata, so no header inference is needed.
type GmailSource struct {
	svc *gm.Service
}

// NewGmailSource wraps an authenticated Gmail service.
func NewGmailSource(svc *gm.Service) *GmailSource {
	return &GmailSource{svc: svc}
}

// Fetch lists every message newer than daysBack days and maps it to a
// store record. Individual message failures are logged and skipped; a
// list failure returns the records fetched so far with the error.
func (g *GmailSource) Fetch(ctx context.Context, daysBack int) ([]models.EmailRecord, error) {
	query := fmt.Sprintf("newer_than:%dd", daysBack)

	var records []models.EmailRecord
	pageToken := ""

	for {
		call := g.svc.Users.Messages.List("me").
			Q(query).
			MaxResults(gmailPageSize).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		resp, err := call.Do()
		if err != nil {
			return records, fmt.Errorf("listing messages: %w", err)
		}

		for _, m := range resp.Messages {
			full, err := g.svc.Users.Messages.Get("me", m.Id).
				Format("full").
				Context(ctx).
				Do()
			if err != nil {
				fmt.Printf("[GMAIL] Warning: Failed to fetch message %s: %v\n", m.Id, err)
				continue
			}
			records = append(records, recordFromGmailMessage(full))
		}

		pageToken = resp.NextPageToken
		if pageToken == "" {
			break
		}
	}

	fmt.Printf("[GMAIL] Fetched %d messages from the last %d days\n", len(records), daysBack)
	return records, nil
}

// recordFromGmailMessage maps one full-format API message to a store
// record. Labels carry the flags: SENT marks direction, UNREAD clears
// is_read, STARRED sets is_flagged.
func recordFromGmailMessage(msg *gm.Message) models.EmailRecord {
	headers := headerMap(msg.Payload)

	sender, senderName := parseSender(headers["from"])
	recipients := parseRecipients(headers["to"])
	subject := decodeHeader(headers["subject"])

	// The Date header wins; InternalDate is the server-side fallback.
	date := time.Now()
	if msg.InternalDate > 0 {
		date = time.UnixMilli(msg.InternalDate)
	}
	if parsed, err := mail.ParseDate(headers["date"]); err == nil {
		date = parsed
	}
	dateUTC := date.UTC().Format(time.RFC3339)

	messageID := headers["message-id"]
	if messageID == "" {
		messageID = msg.Id
	}

	direction := models.DirectionReceived
	isRead := true
	isFlagged := false
	for _, label := range msg.LabelIds {
		switch label {
		case "SENT":
			direction = models.DirectionSent
		case "UNREAD":
			isRead = false
		case "STARRED":
			isFlagged = true
		}
	}

	return models.EmailRecord{
		ID:         models.UniqueID(messageID, sender, subject, dateUTC),
		ThreadID:   msg.ThreadId,
		Sender:     sender,
		SenderName: senderName,
		Recipients: recipients,
		Subject:    subject,
		Date:       dateUTC,
		Direction:  direction,
		IsRead:     isRead,
		IsFlagged:  isFlagged,
		Body:       extractGmailBody(msg.Payload),
	}
}

// extractGmailBody walks the payload tree for a text body, preferring
// plain text and stripping tags from an HTML-only message.
func extractGmailBody(payload *gm.MessagePart) string {
	if payload == nil {
		return ""
	}

	// Body directly on the payload (single-part messages).
	if payload.Body != nil && payload.Body.Data != "" && !strings.HasPrefix(payload.MimeType, "multipart/") {
		if decoded, err := decodeBase64URL(payload.Body.Data); err == nil {
			if strings.HasPrefix(payload.MimeType, "text/html") {
				return cleanHTML(decoded)
			}
			return decoded
		}
	}

	// First pass: plain text parts, recursing into nested multiparts.
	for _, part := range payload.Parts {
		if part.MimeType == "text/plain" && part.Body != nil && part.Body.Data != "" {
			if decoded, err := decodeBase64URL(part.Body.Data); err == nil {
				return decoded
			}
		}
		if len(part.Parts) > 0 {
			if body := extractGmailBody(part); body != "" {
				return body
			}
		}
	}

	// Second pass: settle for HTML.
	for _, part := range payload.Parts {
		if part.MimeType == "text/html" && part.Body != nil && part.Body.Data != "" {
			if decoded, err := decodeBase64URL(part.Body.Data); err == nil {
				return cleanHTML(decoded)
			}
		}
	}

	return ""
}

// headerMap flattens payload headers into a lowercase-keyed map, since
// the API hands back header names cased as they arrived on the wire.
func headerMap(payload *gm.MessagePart) map[string]string {
	m := make(map[string]string)
	if payload == nil {
		return m
	}
	for _, h := range payload.Headers {
		m[strings.ToLower(h.Name)] = h.Value
	}
	return m
}

// decodeBase64URL decodes Gmail's unpadded URL-safe base64.
func decodeBase64URL(data string) (string, error) {
	decoded, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(data, "="))
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}
