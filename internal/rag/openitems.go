package rag

import (
	"sort"

	"inboxai/internal/models"
)

// ComputeOpenItems derives the open conversations from a record
// population. Threads are judged by their newest message: a received
// message nobody replied to means the user owes a reply, a sent
// message sitting last means the other side does. Completed threads
// are dropped. Standalone emails count only when received and not
// replied. The result is ordered newest activity first.
func ComputeOpenItems(records []models.EmailRecord) []models.OpenItem {
	var threadOrder []string
	threads := make(map[string][]models.EmailRecord)
	var standalone []models.EmailRecord

	for _, r := range records {
		if r.ThreadID == "" {
			if r.Direction == models.DirectionReceived && !r.IsReplied {
				standalone = append(standalone, r)
			}
			continue
		}
		if _, ok := threads[r.ThreadID]; !ok {
			threadOrder = append(threadOrder, r.ThreadID)
		}
		threads[r.ThreadID] = append(threads[r.ThreadID], r)
	}

	items := []models.OpenItem{}
	for _, id := range threadOrder {
		messages := threads[id]
		sort.SliceStable(messages, func(i, j int) bool {
			return messages[i].Date < messages[j].Date
		})
		latest := messages[len(messages)-1]

		var status string
		switch {
		case latest.Direction == models.DirectionReceived && !latest.IsReplied:
			status = models.StatusNeedsAction
		case latest.Direction == models.DirectionSent:
			// The user's own message is the newest, so the ball is in
			// the other court regardless of reply flags.
			status = models.StatusAwaitingResponse
		default:
			status = models.StatusCompleted
		}
		if status == models.StatusCompleted {
			continue
		}

		items = append(items, models.OpenItem{
			ThreadID:     id,
			Subject:      latest.Subject,
			Sender:       latest.Sender,
			SenderName:   latest.SenderName,
			Date:         latest.Date,
			MessageCount: len(messages),
			Status:       status,
			Participants: participants(messages),
		})
	}

	for _, r := range standalone {
		items = append(items, models.OpenItem{
			Subject:      r.Subject,
			Sender:       r.Sender,
			SenderName:   r.SenderName,
			Date:         r.Date,
			MessageCount: 1,
			Status:       models.StatusNeedsAction,
			Participants: []string{r.Sender},
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Date > items[j].Date
	})
	return items
}

// participants lists the distinct senders of a thread in first-seen
// order, skipping records without a sender address.
func participants(messages []models.EmailRecord) []string {
	seen := make(map[string]bool)
	var out []string
	for _, m := range messages {
		if m.Sender == "" || seen[m.Sender] {
			continue
		}
		seen[m.Sender] = true
		out = append(out, m.Sender)
	}
	return out
}
