// Package rag turns natural-language questions about a mailbox into
// filtered vector searches, expands the hits into full conversation
// threads and has a language model synthesize grounded answers.
package rag

import (
	"strings"

	"inboxai/internal/models"
	"inboxai/internal/store"
)

// QueryIntent classifies what a question is really asking for, which
// decides the metadata restriction applied before vector search.
type QueryIntent string

const (
	IntentActionNeeded QueryIntent = "action_needed"
	IntentSentFollowup QueryIntent = "sent_followup"
	IntentUnread       QueryIntent = "unread"
	IntentGeneral      QueryIntent = "general"
)

// Keyword rules are checked in order; the first hit wins. "waiting for
// reply" therefore lands on action_needed via "waiting", not on
// sent_followup.
var (
	actionKeywords = []string{"action", "todo", "to-do", "need to", "should", "must", "pending", "waiting"}
	sentKeywords   = []string{"i sent", "my sent", "haven't heard", "no response", "waiting for reply", "follow up"}
)

// DetectIntent classifies a message by keyword rules.
func DetectIntent(message string) QueryIntent {
	q := strings.ToLower(message)

	switch {
	case containsAny(q, actionKeywords):
		return IntentActionNeeded
	case containsAny(q, sentKeywords):
		return IntentSentFollowup
	case strings.Contains(q, "unread"):
		return IntentUnread
	default:
		return IntentGeneral
	}
}

// Filter returns the metadata restriction the intent implies. General
// questions search the whole mailbox.
func (q QueryIntent) Filter() store.Filter {
	switch q {
	case IntentActionNeeded:
		return store.And(
			store.Eq(store.FieldDirection, models.DirectionReceived),
			store.Eq(store.FieldIsReplied, false),
		)
	case IntentSentFollowup:
		return store.And(
			store.Eq(store.FieldDirection, models.DirectionSent),
			store.Eq(store.FieldIsReplied, false),
		)
	case IntentUnread:
		return store.And(
			store.Eq(store.FieldIsRead, false),
			store.Eq(store.FieldDirection, models.DirectionReceived),
		)
	default:
		return store.Filter{}
	}
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
