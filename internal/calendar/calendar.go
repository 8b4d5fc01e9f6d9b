// Package calendar lists upcoming meetings from Google Calendar for the
// meeting-prep flows.
package calendar

import (
	"context"
	"fmt"
	"time"

	gcal "google.golang.org/api/calendar/v3"

	"inboxai/internal/models"
)

// longDateFormat renders dates the way the UI shows them,
// e.g. "Thursday, March 05, 2026".
const longDateFormat = "Monday, January 02, 2006"

// maxEvents is the per-page cap on the events list call.
const maxEvents = 250

// bodyLimit caps how much event description is carried into a brief.
const bodyLimit = 2000

// defaultDays is the upcoming-meetings lookahead window.
const defaultDays = 7

// Provider reads the primary calendar of the authenticated account.
type Provider struct {
	svc        *gcal.Service
	calendarID string
	days       int
	now        func() time.Time
}

// NewProvider wraps an authenticated Calendar service. days is the
// upcoming-meetings window; values below one fall back to a week.
func NewProvider(svc *gcal.Service, days int) *Provider {
	if days <= 0 {
		days = defaultDays
	}
	return &Provider{
		svc:        svc,
		calendarID: "primary",
		days:       days,
		now:        time.Now,
	}
}

// UpcomingMeetings lists meetings from tomorrow through the configured
// window, grouped by day. Recurring series appear as their expanded
// occurrences. API failures surface in the result's Error field.
func (p *Provider) UpcomingMeetings(ctx context.Context) *models.MeetingsResult {
	start := midnight(p.now()).AddDate(0, 0, 1)
	end := start.AddDate(0, 0, p.days)

	meetings, err := p.meetings(ctx, start, end)

	result := &models.MeetingsResult{
		StartDate:    start.Format(longDateFormat),
		EndDate:      end.AddDate(0, 0, -1).Format(longDateFormat),
		StartISO:     start.Format(time.RFC3339),
		EndISO:       end.Format(time.RFC3339),
		Days:         p.days,
		MeetingCount: len(meetings),
		Meetings:     meetings,
		ByDate:       groupByDate(meetings),
	}
	if err != nil {
		result.Error = fmt.Sprintf("Error reading calendar: %v", err)
	}
	return result
}

// NextBusinessDayMeetings lists meetings for the next working day only,
// so a Friday evening brief covers Monday.
func (p *Provider) NextBusinessDayMeetings(ctx context.Context) *models.MeetingsResult {
	start := midnight(NextBusinessDay(p.now()))
	end := start.AddDate(0, 0, 1)

	meetings, err := p.meetings(ctx, start, end)

	result := &models.MeetingsResult{
		StartDate:    start.Format(longDateFormat),
		EndDate:      start.Format(longDateFormat),
		StartISO:     start.Format(time.RFC3339),
		EndISO:       end.Format(time.RFC3339),
		Days:         1,
		MeetingCount: len(meetings),
		Meetings:     meetings,
		ByDate:       groupByDate(meetings),
	}
	if err != nil {
		result.Error = fmt.Sprintf("Error reading calendar: %v", err)
	}
	return result
}

// NextBusinessDay returns the next working day after t. Friday and
// Saturday skip ahead to Monday.
func NextBusinessDay(t time.Time) time.Time {
	daysAhead := 1
	switch t.Weekday() {
	case time.Friday:
		daysAhead = 3
	case time.Saturday:
		daysAhead = 2
	}
	return t.AddDate(0, 0, daysAhead)
}

// meetings pulls every event with a start in [start, end).
func (p *Provider) meetings(ctx context.Context, start, end time.Time) ([]models.Meeting, error) {
	meetings := []models.Meeting{}

	err := p.svc.Events.List(p.calendarID).
		TimeMin(start.Format(time.RFC3339)).
		TimeMax(end.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		MaxResults(maxEvents).
		Context(ctx).
		Pages(ctx, func(events *gcal.Events) error {
			for _, ev := range events.Items {
				meetings = append(meetings, meetingFromEvent(ev))
			}
			return nil
		})
	if err != nil {
		return meetings, fmt.Errorf("listing events: %w", err)
	}

	fmt.Printf("[CALENDAR] Found %d meetings between %s and %s\n",
		len(meetings), start.Format("2006-01-02"), end.Format("2006-01-02"))
	return meetings, nil
}

// meetingFromEvent maps one calendar event to the meeting model.
func meetingFromEvent(ev *gcal.Event) models.Meeting {
	startISO, allDay := eventTime(ev.Start)
	endISO, _ := eventTime(ev.End)
	required, optional := splitAttendees(ev)

	organizer := ""
	if ev.Organizer != nil {
		organizer = ev.Organizer.DisplayName
		if organizer == "" {
			organizer = ev.Organizer.Email
		}
	}

	body := ev.Description
	if len(body) > bodyLimit {
		body = body[:bodyLimit]
	}

	return models.Meeting{
		Subject:           ev.Summary,
		Start:             startISO,
		End:               endISO,
		DurationMinutes:   durationMinutes(startISO, endISO),
		Location:          ev.Location,
		Body:              body,
		Organizer:         organizer,
		RequiredAttendees: required,
		OptionalAttendees: optional,
		AllAttendees:      append(append([]string{}, required...), optional...),
		IsAllDay:          allDay,
		IsRecurring:       ev.RecurringEventId != "",
	}
}

// eventTime normalizes an event boundary: timed events carry DateTime,
// all-day events only a Date.
func eventTime(t *gcal.EventDateTime) (iso string, allDay bool) {
	if t == nil {
		return "", false
	}
	if t.DateTime != "" {
		return t.DateTime, false
	}
	return t.Date, t.Date != ""
}

// splitAttendees separates people into required and optional lists,
// dropping rooms and other resources.
func splitAttendees(ev *gcal.Event) (required, optional []string) {
	required = []string{}
	optional = []string{}
	for _, a := range ev.Attendees {
		if a.Resource {
			continue
		}
		name := a.DisplayName
		if name == "" {
			name = a.Email
		}
		if name == "" {
			continue
		}
		if a.Optional {
			optional = append(optional, name)
		} else {
			required = append(required, name)
		}
	}
	return required, optional
}

// durationMinutes computes the span between two event boundaries.
// All-day boundaries are date-only and count from midnight.
func durationMinutes(startISO, endISO string) int {
	start, err := parseEventISO(startISO)
	if err != nil {
		return 0
	}
	end, err := parseEventISO(endISO)
	if err != nil {
		return 0
	}
	return int(end.Sub(start).Minutes())
}

func parseEventISO(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

// groupByDate keys meetings by their start day for the day-by-day view.
func groupByDate(meetings []models.Meeting) map[string][]models.Meeting {
	byDate := map[string][]models.Meeting{}
	for _, m := range meetings {
		key := "unknown"
		if len(m.Start) >= 10 {
			key = m.Start[:10]
		}
		byDate[key] = append(byDate[key], m)
	}
	return byDate
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
