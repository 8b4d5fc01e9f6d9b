package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"inboxai/internal/models"
	"inboxai/internal/rag"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nextDayListing() *models.MeetingsResult {
	return &models.MeetingsResult{
		StartDate:    "Monday, March 02",
		Days:         1,
		MeetingCount: 2,
		Meetings: []models.Meeting{
			{
				Subject:      "Budget sync",
				Start:        "2026-03-02T09:00:00Z",
				Organizer:    "dana.levi@corp.example",
				AllAttendees: []string{"dana.levi@corp.example", "me@corp.example"},
			},
			{
				Subject: "1:1 with Noam",
				Start:   "2026-03-02T13:00:00Z",
			},
		},
		ByDate: map[string][]models.Meeting{},
	}
}

func meetingsEngine(st *fakeStore, gen *fakeGenerator) *rag.Engine {
	cal := &fakeCalendar{
		upcoming: &models.MeetingsResult{
			Days:         7,
			MeetingCount: 5,
			Meetings:     make([]models.Meeting, 5),
			ByDate:       map[string][]models.Meeting{},
		},
		nextDay: nextDayListing(),
	}
	return rag.NewEngine(st, gen, cal, 5, 10)
}

func TestMeetingsHandler_NilEngine(t *testing.T) {
	e := echo.New()
	c, rec := getRequest(e, "/api/meetings")

	err := MeetingsHandler(nil)(c)

	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMeetingsHandler_NoCalendarConfigured(t *testing.T) {
	engine := rag.NewEngine(&fakeStore{}, &fakeGenerator{}, nil, 5, 10)

	e := echo.New()
	c, rec := getRequest(e, "/api/meetings")

	err := MeetingsHandler(engine)(c)

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp models.MeetingsResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.Meetings)
	assert.Contains(t, resp.Error, "Calendar not available")
}

func TestMeetingsHandler_NextBusinessDayDefault(t *testing.T) {
	engine := meetingsEngine(&fakeStore{}, &fakeGenerator{})

	e := echo.New()
	c, rec := getRequest(e, "/api/meetings")

	err := MeetingsHandler(engine)(c)

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp models.MeetingsResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.MeetingCount)
	require.Len(t, resp.Meetings, 2)
	assert.Equal(t, "Budget sync", resp.Meetings[0].Subject)
}

func TestMeetingsHandler_UpcomingWindow(t *testing.T) {
	engine := meetingsEngine(&fakeStore{}, &fakeGenerator{})

	e := echo.New()
	c, rec := getRequest(e, "/api/meetings?upcoming=true")

	err := MeetingsHandler(engine)(c)

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp models.MeetingsResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 7, resp.Days)
	assert.Equal(t, 5, resp.MeetingCount)
}

func TestMeetingPrepHandler_IndexValidation(t *testing.T) {
	engine := meetingsEngine(&fakeStore{}, &fakeGenerator{answer: "Brief."})

	tests := []struct {
		name           string
		index          string
		expectedStatus int
		expectedError  string
	}{
		{name: "not a number", index: "abc", expectedStatus: http.StatusBadRequest, expectedError: "Invalid meeting index"},
		{name: "negative", index: "-1", expectedStatus: http.StatusNotFound, expectedError: "Meeting not found"},
		{name: "out of bounds", index: "2", expectedStatus: http.StatusNotFound, expectedError: "Meeting not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			c, rec := getRequest(e, "/api/meetings/"+tt.index+"/prep")
			c.SetParamNames("index")
			c.SetParamValues(tt.index)

			err := MeetingPrepHandler(engine, nil)(c)

			require.NoError(t, err)
			assert.Equal(t, tt.expectedStatus, rec.Code)

			var resp models.Response
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.expectedError, resp.Error)
		})
	}
}

func TestMeetingPrepHandler_SyncBrief(t *testing.T) {
	st := &fakeStore{records: []models.EmailRecord{
		seedRecord("m1", "", "Budget sync agenda", "dana.levi@corp.example", "2026-03-01T10:00:00Z", "received"),
	}}
	engine := meetingsEngine(st, &fakeGenerator{answer: "Dana owns the agenda."})

	e := echo.New()
	c, rec := getRequest(e, "/api/meetings/0/prep")
	c.SetParamNames("index")
	c.SetParamValues("0")

	err := MeetingPrepHandler(engine, nil)(c)

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp models.MeetingBrief
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Budget sync", resp.Meeting.Subject)
	assert.Equal(t, "Dana owns the agenda.", resp.Brief)
	assert.Equal(t, 1, resp.EmailsFound)
}

func TestMeetingPrepHandler_StreamSSE(t *testing.T) {
	st := &fakeStore{records: []models.EmailRecord{
		seedRecord("m1", "", "Budget sync agenda", "dana.levi@corp.example", "2026-03-01T10:00:00Z", "received"),
	}}
	engine := meetingsEngine(st, &fakeGenerator{chunks: []string{"Dana owns ", "the agenda."}})

	e := echo.New()
	c, rec := getRequest(e, "/api/meetings/0/prep?stream=true")
	c.SetParamNames("index")
	c.SetParamValues("0")

	err := MeetingPrepHandler(engine, nil)(c)

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentType), "text/event-stream")

	body := rec.Body.String()
	assert.Contains(t, body, `"type":"chunk"`)
	assert.Contains(t, body, "Dana owns ")
	assert.Contains(t, body, `"type":"metadata"`)
	assert.True(t, strings.HasSuffix(body, "data: [DONE]\n\n"))
}
