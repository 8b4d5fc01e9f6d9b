package rag

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"inboxai/internal/models"
	"inboxai/internal/utils"
)

// noEmailsFound is the sentinel context for an empty retrieval.
const noEmailsFound = "No relevant emails found in the database."

const systemPromptTemplate = `You are an email assistant that ONLY analyzes emails shown to you.

CRITICAL RULES:
1. ONLY reference information that appears in the EMAIL CONTENT provided below
2. If no relevant emails are found, say "I don't see any emails matching that in your inbox"
3. NEVER make up email content, senders, subjects, or dates
4. Be specific - quote actual subjects and senders from the provided emails
5. If asked about emails you don't have, say so clearly

Your job is to:
- Identify action items and TO-DOs in the provided emails
- Note which emails need responses
- Highlight deadlines mentioned in the emails
- Summarize what the provided emails contain

CONVERSATION THREADS:
- Emails may be grouped into conversation threads showing the full back-and-forth
- Each thread has a STATUS: NEEDS YOUR ACTION, AWAITING RESPONSE, or COMPLETED
- "NEEDS YOUR ACTION" = the last message was received and you haven't replied
- "AWAITING RESPONSE" = you sent the last message and are waiting for their reply
- When asked about unanswered emails, use the thread status to determine this accurately
- When asked about a topic (e.g. "Vodafone"), find ALL threads and standalone emails mentioning it and summarize the full conversation history

Current date: %s
`

const answerPromptTemplate = `I am providing you with %d emails from the user's inbox below.
ONLY use information from these emails to answer the question. Do NOT make up any information.

===== START OF EMAILS FROM INBOX =====
%s
===== END OF EMAILS FROM INBOX =====

USER'S QUESTION: %s

INSTRUCTIONS:
- Answer based ONLY on the emails shown above
- Reference specific senders and subjects from the emails
- If no emails are relevant, say "I don't see any emails about that in the results"
- Be specific and quote from the actual email content when possible`

const emptyMailboxPromptTemplate = `No emails were found in the database for this query.

User asked: %s

Please let the user know that no relevant emails were found and suggest they may need to ingest emails first.`

const meetingPrepTemplate = `You are preparing a meeting brief. Based ONLY on the emails provided below, create a preparation summary.

Meeting: %s
Time: %s - %s
Attendees: %s
Location: %s

Provide the following sections:

1. **Background**: What is this about? Summarize the email history on this topic.
2. **Key Topics**: Main discussion points from recent emails.
3. **Open Items**: Unresolved questions or pending actions.
4. **Recent Decisions**: Any decisions made in recent emails or meeting summaries.
5. **Your Action Items**: Things you need to address or bring up in this meeting.
6. **Meeting Notes Reference**: Any meeting summaries or notes found in the emails (e.g., Zoom meeting summaries).

CRITICAL: ONLY use information from the provided emails. If no relevant emails exist for a section, say "No information found." Do NOT make anything up.

Current date: %s
`

const meetingContextTemplate = `Here are %d relevant emails and meeting summaries found for this meeting topic:

===== START OF RELEVANT EMAILS =====
%s
===== END OF RELEVANT EMAILS =====

Please prepare the meeting brief based on these emails.`

const meetingNoContextPrompt = "No relevant emails were found for this meeting topic. Please indicate that no prior email context is available and suggest the attendee ask colleagues for background."

// FormatEmailContext renders records as the grounding block handed to
// the model: conversations grouped under a thread banner in date order,
// then standalone emails, with one running message counter across both.
// The function is pure so the same records always render identically.
func FormatEmailContext(records []models.EmailRecord) string {
	if len(records) == 0 {
		return noEmailsFound
	}

	// Group by thread in first-seen order.
	var threadOrder []string
	threads := make(map[string][]models.EmailRecord)
	var standalone []models.EmailRecord
	for _, r := range records {
		if r.ThreadID == "" {
			standalone = append(standalone, r)
			continue
		}
		if _, ok := threads[r.ThreadID]; !ok {
			threadOrder = append(threadOrder, r.ThreadID)
		}
		threads[r.ThreadID] = append(threads[r.ThreadID], r)
	}

	hashRule := strings.Repeat("#", 80)
	equalsRule := strings.Repeat("=", 80)

	var parts []string
	idx := 1

	for _, id := range threadOrder {
		thread := threads[id]
		sort.SliceStable(thread, func(i, j int) bool {
			return thread[i].Date < thread[j].Date
		})

		// The newest message decides the thread status.
		latest := thread[len(thread)-1]
		var status string
		switch {
		case latest.Direction == models.DirectionSent && !latest.IsReplied:
			status = "AWAITING RESPONSE (you sent last, no reply yet)"
		case latest.Direction == models.DirectionReceived && !latest.IsReplied:
			status = "NEEDS YOUR ACTION (received, not replied)"
		default:
			status = "COMPLETED"
		}

		subject := latest.Subject
		if subject == "" {
			subject = "No Subject"
		}

		parts = append(parts, fmt.Sprintf("\n%s\nCONVERSATION THREAD: %s\nThread Status: %s | Messages: %d\n%s",
			hashRule, subject, status, len(thread), hashRule))

		for _, r := range thread {
			parts = append(parts, fmt.Sprintf("\n--- Message %d in thread ---\n%s", idx, formatSingleEmail(r, idx)))
			idx++
		}
	}

	for _, r := range standalone {
		parts = append(parts, fmt.Sprintf("\n%s\nEMAIL #%d (standalone)\n%s\n%s",
			equalsRule, idx, equalsRule, formatSingleEmail(r, idx)))
		idx++
	}

	return strings.Join(parts, "\n")
}

func formatSingleEmail(r models.EmailRecord, index int) string {
	doc := strings.TrimSpace(r.Document())
	if len(doc) < 10 {
		fmt.Printf("[RAG] Warning: email %d has empty or very short document\n", index)
	}

	sender := r.DisplayName()
	if sender == "" {
		sender = "Unknown"
	}
	subject := r.Subject
	if subject == "" {
		subject = "No Subject"
	}
	date := r.Date
	if date == "" {
		date = "Unknown date"
	}
	direction := "RECEIVED"
	if r.Direction == models.DirectionSent {
		direction = "SENT BY ME"
	}
	read := "UNREAD"
	if r.IsRead {
		read = "Read"
	}
	replied := "NO - NOT REPLIED"
	if r.IsReplied {
		replied = "Yes"
	}

	content := doc
	if content == "" {
		content = fmt.Sprintf("[Content not available. Subject: %s]", subject)
	}
	body, truncated := truncateRunes(content, 2500)
	marker := ""
	if truncated {
		marker = "[...truncated...]"
	}

	return fmt.Sprintf(`Direction: %s
From: %s
Subject: %s
Date: %s
Status: %s | Replied: %s

CONTENT:
%s
%s`, direction, sender, subject, date, read, replied, body, marker)
}

// BuildAnswerPrompt assembles the full prompt for a question: system
// instructions stamped with the current time, the rendered email
// context, the grounding rules and a reply-language line matching the
// language of the question. With nothing retrieved the model is told
// to say so instead of receiving fabricated context.
func BuildAnswerPrompt(message string, records []models.EmailRecord, now time.Time) string {
	system := fmt.Sprintf(systemPromptTemplate, now.Format("2006-01-02 15:04"))

	var prompt string
	if len(records) > 0 {
		prompt = fmt.Sprintf(answerPromptTemplate, len(records), FormatEmailContext(records), message)
	} else {
		prompt = fmt.Sprintf(emptyMailboxPromptTemplate, message)
	}

	instruction := utils.GetLanguageInstruction(utils.DetectLanguage(message))
	return system + "\n\n" + prompt + "\n\n" + instruction
}

// BuildMeetingPrepPrompt assembles the prompt for a meeting brief.
// Attendees render as readable names, and the brief is requested in
// the language of the meeting itself.
func BuildMeetingPrepPrompt(meeting models.Meeting, records []models.EmailRecord, now time.Time) string {
	attendees := meeting.AllAttendees
	if len(attendees) > 10 {
		attendees = attendees[:10]
	}
	names := make([]string, 0, len(attendees))
	for _, a := range attendees {
		names = append(names, utils.DisplayNameFromAddress(a))
	}
	joined := strings.Join(names, ", ")
	if joined == "" {
		joined = "Not specified"
	}
	subject := meeting.Subject
	if subject == "" {
		subject = "Unknown"
	}
	location := meeting.Location
	if location == "" {
		location = "Not specified"
	}

	system := fmt.Sprintf(meetingPrepTemplate,
		subject, meeting.Start, meeting.End, joined, location,
		now.Format("2006-01-02 15:04"))

	var prompt string
	if len(records) > 0 {
		prompt = fmt.Sprintf(meetingContextTemplate, len(records), FormatEmailContext(records))
	} else {
		prompt = meetingNoContextPrompt
	}

	instruction := utils.GetLanguageInstruction(utils.DetectLanguage(meeting.Subject + " " + meeting.Body))
	return system + "\n\n" + prompt + "\n\n" + instruction
}

func truncateRunes(s string, limit int) (string, bool) {
	runes := []rune(s)
	if len(runes) <= limit {
		return s, false
	}
	return string(runes[:limit]), true
}
