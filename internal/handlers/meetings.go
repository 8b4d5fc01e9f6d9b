package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"inboxai/internal/analytics"
	"inboxai/internal/models"
	"inboxai/internal/rag"

	"github.com/labstack/echo/v4"
)

// MeetingsHandler lists the next business day's meetings, or the whole
// upcoming window when ?upcoming=true is set. A missing calendar is not
// an error: the listing comes back empty with its Error field set.
// @Summary List meetings
// @Description Calendar meetings for the next business day, grouped by date
// @Tags meetings
// @Produce json
// @Param upcoming query bool false "List the full upcoming window instead"
// @Success 200 {object} models.MeetingsResult
// @Failure 503 {object} models.Response
// @Router /api/meetings [get]
func MeetingsHandler(engine *rag.Engine) echo.HandlerFunc {
	return func(c echo.Context) error {
		if engine == nil {
			return c.JSON(http.StatusServiceUnavailable, models.Response{
				Error: "Engine not available",
			})
		}

		var result *models.MeetingsResult
		if strings.ToLower(c.QueryParam("upcoming")) == "true" {
			result = engine.Meetings(c.Request().Context())
		} else {
			result = engine.MeetingsNextBusinessDay(c.Request().Context())
		}

		return c.JSON(http.StatusOK, result)
	}
}

// MeetingPrepHandler generates an email-grounded brief for one meeting.
// The index addresses the next-business-day listing in its served
// order, so the client passes back what it got from /api/meetings.
// @Summary Meeting preparation brief
// @Description Generate a brief for one upcoming meeting from related email history
// @Tags meetings
// @Produce json
// @Param index path int true "Meeting index in the next-business-day listing"
// @Param stream query bool false "Stream the brief over SSE"
// @Success 200 {object} models.MeetingBrief
// @Failure 404 {object} models.Response
// @Failure 503 {object} models.Response
// @Router /api/meetings/{index}/prep [get]
func MeetingPrepHandler(engine *rag.Engine, tracker *analytics.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		if engine == nil {
			return c.JSON(http.StatusServiceUnavailable, models.Response{
				Error: "Engine not available",
			})
		}

		index, err := strconv.Atoi(c.Param("index"))
		if err != nil {
			return c.JSON(http.StatusBadRequest, models.Response{
				Error: "Invalid meeting index",
			})
		}

		listing := engine.MeetingsNextBusinessDay(c.Request().Context())
		if index < 0 || index >= len(listing.Meetings) {
			return c.JSON(http.StatusNotFound, models.Response{
				Error: "Meeting not found",
			})
		}
		meeting := listing.Meetings[index]

		fmt.Printf("[MEETINGS] ===== Preparing brief =====\n")
		fmt.Printf("[MEETINGS] Meeting %d: %s\n", index, meeting.Subject)

		if c.QueryParam("stream") != "" {
			return streamEvents(c, func(ctx context.Context) (<-chan rag.StreamEvent, error) {
				return engine.MeetingPrepStream(ctx, meeting)
			})
		}

		start := time.Now()
		brief, err := engine.MeetingPrep(c.Request().Context(), meeting)
		if err != nil {
			fmt.Printf("[MEETINGS] Prep failed: %v\n", err)
			return c.JSON(http.StatusInternalServerError, models.Response{
				Error: err.Error(),
			})
		}

		if tracker != nil {
			go tracker.TrackQuery(analytics.EventMeetingPrep, brief.EmailsFound, 0, time.Since(start))
		}

		return c.JSON(http.StatusOK, brief)
	}
}
