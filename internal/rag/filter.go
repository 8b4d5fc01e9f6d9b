package rag

import (
	"time"

	"inboxai/internal/store"
)

// ComposeFilter derives the search restriction for a message: the
// intent's metadata clauses conjoined with any date window the message
// mentions. A general question without a time reference composes to the
// empty filter.
func ComposeFilter(message string, now time.Time) (store.Filter, QueryIntent) {
	intent := DetectIntent(message)
	filter := intent.Filter()

	if window, ok := ParseTimeRange(message, now); ok {
		filter = store.And(filter, window.Filter())
	}

	return filter, intent
}
