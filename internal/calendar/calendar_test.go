package calendar

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"inboxai/internal/models"
)

func TestNextBusinessDay(t *testing.T) {
	// 2026-03-02 is a Monday.
	tests := []struct {
		name     string
		from     time.Time
		expected time.Time
	}{
		{"monday to tuesday", time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC), time.Date(2026, 3, 3, 15, 0, 0, 0, time.UTC)},
		{"thursday to friday", time.Date(2026, 3, 5, 15, 0, 0, 0, time.UTC), time.Date(2026, 3, 6, 15, 0, 0, 0, time.UTC)},
		{"friday skips to monday", time.Date(2026, 3, 6, 15, 0, 0, 0, time.UTC), time.Date(2026, 3, 9, 15, 0, 0, 0, time.UTC)},
		{"saturday skips to monday", time.Date(2026, 3, 7, 15, 0, 0, 0, time.UTC), time.Date(2026, 3, 9, 15, 0, 0, 0, time.UTC)},
		{"sunday to monday", time.Date(2026, 3, 8, 15, 0, 0, 0, time.UTC), time.Date(2026, 3, 9, 15, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextBusinessDay(tt.from)
			assert.Equal(t, tt.expected, got)
			assert.NotEqual(t, time.Saturday, got.Weekday())
			assert.NotEqual(t, time.Sunday, got.Weekday())
		})
	}
}

func TestMeetingFromEvent(t *testing.T) {
	ev := &gcal.Event{
		Summary:     "Vodafone contract review",
		Location:    "Room 4A",
		Description: "Agenda: renewal terms",
		Start:       &gcal.EventDateTime{DateTime: "2026-03-05T10:00:00Z"},
		End:         &gcal.EventDateTime{DateTime: "2026-03-05T10:45:00Z"},
		Organizer:   &gcal.EventOrganizer{DisplayName: "Dana Levi", Email: "dana@corp.example"},
		Attendees: []*gcal.EventAttendee{
			{DisplayName: "Dana Levi", Email: "dana@corp.example"},
			{Email: "ops@corp.example"},
			{Email: "observer@corp.example", Optional: true},
			{Email: "room-4a@resource.calendar.google.com", Resource: true},
		},
		RecurringEventId: "series-1",
	}

	m := meetingFromEvent(ev)

	assert.Equal(t, "Vodafone contract review", m.Subject)
	assert.Equal(t, "2026-03-05T10:00:00Z", m.Start)
	assert.Equal(t, "2026-03-05T10:45:00Z", m.End)
	assert.Equal(t, 45, m.DurationMinutes)
	assert.Equal(t, "Room 4A", m.Location)
	assert.Equal(t, "Agenda: renewal terms", m.Body)
	assert.Equal(t, "Dana Levi", m.Organizer)
	assert.Equal(t, []string{"Dana Levi", "ops@corp.example"}, m.RequiredAttendees)
	assert.Equal(t, []string{"observer@corp.example"}, m.OptionalAttendees)
	assert.Equal(t, []string{"Dana Levi", "ops@corp.example", "observer@corp.example"}, m.AllAttendees)
	assert.False(t, m.IsAllDay)
	assert.True(t, m.IsRecurring)
}

func TestMeetingFromEvent_AllDay(t *testing.T) {
	ev := &gcal.Event{
		Summary: "Offsite",
		Start:   &gcal.EventDateTime{Date: "2026-03-05"},
		End:     &gcal.EventDateTime{Date: "2026-03-06"},
	}

	m := meetingFromEvent(ev)

	assert.True(t, m.IsAllDay)
	assert.Equal(t, "2026-03-05", m.Start)
	assert.Equal(t, 1440, m.DurationMinutes)
	assert.Empty(t, m.Organizer)
	assert.Empty(t, m.RequiredAttendees)
}

func TestMeetingFromEvent_TruncatesBody(t *testing.T) {
	long := make([]byte, 3000)
	for i := range long {
		long[i] = 'x'
	}
	ev := &gcal.Event{
		Summary:     "Wall of text",
		Description: string(long),
		Start:       &gcal.EventDateTime{DateTime: "2026-03-05T10:00:00Z"},
		End:         &gcal.EventDateTime{DateTime: "2026-03-05T11:00:00Z"},
	}

	m := meetingFromEvent(ev)
	assert.Len(t, m.Body, bodyLimit)
}

func TestDurationMinutes(t *testing.T) {
	assert.Equal(t, 30, durationMinutes("2026-03-05T10:00:00Z", "2026-03-05T10:30:00Z"))
	assert.Equal(t, 1440, durationMinutes("2026-03-05", "2026-03-06"))
	assert.Zero(t, durationMinutes("", "2026-03-05T10:30:00Z"))
	assert.Zero(t, durationMinutes("2026-03-05T10:00:00Z", "garbage"))
}

func TestGroupByDate(t *testing.T) {
	meetings := []models.Meeting{
		{Subject: "A", Start: "2026-03-05T10:00:00Z"},
		{Subject: "B", Start: "2026-03-05T14:00:00Z"},
		{Subject: "C", Start: "2026-03-06T09:00:00Z"},
		{Subject: "D", Start: ""},
	}

	grouped := groupByDate(meetings)

	assert.Len(t, grouped, 3)
	assert.Len(t, grouped["2026-03-05"], 2)
	assert.Len(t, grouped["2026-03-06"], 1)
	assert.Equal(t, "D", grouped["unknown"][0].Subject)
}

// fakeCalendarAPI serves a canned events page the way the Calendar API
// would.
func fakeCalendarAPI(t *testing.T, events *gcal.Events, status int) (*Provider, *http.Request) {
	t.Helper()

	captured := &http.Request{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*captured = *r
		if status != http.StatusOK {
			http.Error(w, "boom", status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		assert.NoError(t, json.NewEncoder(w).Encode(events))
	}))
	t.Cleanup(server.Close)

	svc, err := gcal.NewService(context.Background(),
		option.WithEndpoint(server.URL),
		option.WithoutAuthentication())
	assert.NoError(t, err)

	provider := NewProvider(svc, 7)
	provider.now = func() time.Time {
		return time.Date(2026, 3, 4, 15, 30, 0, 0, time.UTC) // a Wednesday
	}
	return provider, captured
}

func TestUpcomingMeetings_WindowAndGrouping(t *testing.T) {
	events := &gcal.Events{
		Items: []*gcal.Event{
			{
				Summary: "Standup",
				Start:   &gcal.EventDateTime{DateTime: "2026-03-05T09:00:00Z"},
				End:     &gcal.EventDateTime{DateTime: "2026-03-05T09:15:00Z"},
			},
			{
				Summary: "Vodafone contract review",
				Start:   &gcal.EventDateTime{DateTime: "2026-03-05T10:00:00Z"},
				End:     &gcal.EventDateTime{DateTime: "2026-03-05T11:00:00Z"},
			},
			{
				Summary: "1:1",
				Start:   &gcal.EventDateTime{DateTime: "2026-03-06T13:00:00Z"},
				End:     &gcal.EventDateTime{DateTime: "2026-03-06T13:30:00Z"},
			},
		},
	}

	provider, captured := fakeCalendarAPI(t, events, http.StatusOK)
	result := provider.UpcomingMeetings(context.Background())

	// Window starts tomorrow at midnight and spans the configured week.
	assert.Equal(t, "2026-03-05T00:00:00Z", captured.URL.Query().Get("timeMin"))
	assert.Equal(t, "2026-03-12T00:00:00Z", captured.URL.Query().Get("timeMax"))
	assert.Equal(t, "true", captured.URL.Query().Get("singleEvents"))

	assert.Empty(t, result.Error)
	assert.Equal(t, "Thursday, March 05, 2026", result.StartDate)
	assert.Equal(t, "Wednesday, March 11, 2026", result.EndDate)
	assert.Equal(t, "2026-03-05T00:00:00Z", result.StartISO)
	assert.Equal(t, 7, result.Days)
	assert.Equal(t, 3, result.MeetingCount)
	assert.Len(t, result.ByDate["2026-03-05"], 2)
	assert.Len(t, result.ByDate["2026-03-06"], 1)
}

func TestUpcomingMeetings_APIError(t *testing.T) {
	provider, _ := fakeCalendarAPI(t, nil, http.StatusInternalServerError)

	result := provider.UpcomingMeetings(context.Background())

	assert.Contains(t, result.Error, "Error reading calendar")
	assert.Empty(t, result.Meetings)
	assert.Zero(t, result.MeetingCount)
	assert.Equal(t, "Thursday, March 05, 2026", result.StartDate, "window metadata survives the failure")
}

func TestNextBusinessDayMeetings_Window(t *testing.T) {
	provider, captured := fakeCalendarAPI(t, &gcal.Events{}, http.StatusOK)
	provider.now = func() time.Time {
		return time.Date(2026, 3, 6, 18, 0, 0, 0, time.UTC) // a Friday evening
	}

	result := provider.NextBusinessDayMeetings(context.Background())

	assert.Equal(t, "2026-03-09T00:00:00Z", captured.URL.Query().Get("timeMin"))
	assert.Equal(t, "2026-03-10T00:00:00Z", captured.URL.Query().Get("timeMax"))
	assert.Equal(t, "Monday, March 09, 2026", result.StartDate)
	assert.Equal(t, result.StartDate, result.EndDate)
	assert.Equal(t, 1, result.Days)
	assert.NotNil(t, result.Meetings)
	assert.NotNil(t, result.ByDate)
}
