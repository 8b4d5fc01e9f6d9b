package rag

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"inboxai/internal/store"
)

// TimeRange is an inclusive window of email dates.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

var relativeDaysRe = regexp.MustCompile(`(?:past|last)\s+(\d+)\s+days?`)

// ParseTimeRange extracts a date window from phrases like "today",
// "yesterday", "this week", "last week" or "last 7 days". The reference
// time is injected so the mapping stays deterministic. Returns false
// when the message carries no time reference.
func ParseTimeRange(message string, now time.Time) (TimeRange, bool) {
	q := strings.ToLower(message)

	if strings.Contains(q, "today") {
		return TimeRange{Start: midnight(now), End: now}, true
	}
	if strings.Contains(q, "yesterday") {
		y := now.AddDate(0, 0, -1)
		return TimeRange{Start: midnight(y), End: endOfDay(y)}, true
	}
	if strings.Contains(q, "this week") {
		start := midnight(now.AddDate(0, 0, -weekdayFromMonday(now)))
		return TimeRange{Start: start, End: now}, true
	}
	if strings.Contains(q, "last week") {
		// The previous Monday through Sunday as whole calendar days, so
		// the window never bleeds into the current week.
		start := midnight(now.AddDate(0, 0, -(weekdayFromMonday(now) + 7)))
		return TimeRange{Start: start, End: endOfDay(start.AddDate(0, 0, 6))}, true
	}

	if m := relativeDaysRe.FindStringSubmatch(q); m != nil {
		days, err := strconv.Atoi(m[1])
		if err == nil {
			// "last 0 days" pins an empty instant window rather than
			// falling through to an unbounded search.
			return TimeRange{Start: now.AddDate(0, 0, -days), End: now}, true
		}
	}

	return TimeRange{}, false
}

// Filter renders the window as inclusive date bounds. Dates are stored
// as RFC 3339 UTC strings, which order lexicographically.
func (t TimeRange) Filter() store.Filter {
	return store.And(
		store.Gte(store.FieldDate, t.Start.UTC().Format(time.RFC3339)),
		store.Lte(store.FieldDate, t.End.UTC().Format(time.RFC3339)),
	)
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, t.Location())
}

// weekdayFromMonday counts days since Monday (Monday=0 .. Sunday=6).
func weekdayFromMonday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}
