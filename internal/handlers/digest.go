package handlers

import (
	"fmt"
	"net/http"
	"time"

	"inboxai/internal/analytics"
	"inboxai/internal/cache"
	"inboxai/internal/models"
	"inboxai/internal/rag"

	"github.com/labstack/echo/v4"
)

// SummaryHandler returns mailbox statistics plus the two open-loop
// digests (needs a reply, awaiting a reply). Payloads are cached
// because the digest runs two searches per call.
// @Summary Inbox summary
// @Description Mailbox statistics with short digests of unresolved email
// @Tags digest
// @Produce json
// @Success 200 {object} models.SummaryResult
// @Failure 503 {object} models.Response
// @Router /api/summary [get]
func SummaryHandler(engine *rag.Engine, payloads *cache.Cache, ttl time.Duration, tracker *analytics.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		if engine == nil {
			return c.JSON(http.StatusServiceUnavailable, models.Response{
				Error: "Engine not available",
			})
		}

		if payloads != nil {
			if cached, found := payloads.Get("summary"); found {
				return c.JSON(http.StatusOK, cached)
			}
		}

		start := time.Now()
		result, err := engine.Summary(c.Request().Context())
		if err != nil {
			fmt.Printf("[SUMMARY] Failed: %v\n", err)
			return c.JSON(http.StatusInternalServerError, models.Response{
				Error: err.Error(),
			})
		}

		if payloads != nil {
			payloads.Set("summary", result, ttl)
		}
		if tracker != nil {
			found := len(result.ActionNeeded) + len(result.AwaitingResponse)
			go tracker.TrackQuery(analytics.EventSummary, found, 0, time.Since(start))
		}

		return c.JSON(http.StatusOK, result)
	}
}

// TasksHandler returns open conversations split by who owes the next
// reply
// @Summary Open items
// @Description Open conversations categorized into needs-action and awaiting-response
// @Tags digest
// @Produce json
// @Success 200 {object} models.TasksResult
// @Failure 503 {object} models.Response
// @Router /api/tasks [get]
func TasksHandler(engine *rag.Engine, payloads *cache.Cache, ttl time.Duration, tracker *analytics.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		if engine == nil {
			return c.JSON(http.StatusServiceUnavailable, models.Response{
				Error: "Engine not available",
			})
		}

		if payloads != nil {
			if cached, found := payloads.Get("tasks"); found {
				return c.JSON(http.StatusOK, cached)
			}
		}

		start := time.Now()
		result, err := engine.Tasks(c.Request().Context())
		if err != nil {
			fmt.Printf("[TASKS] Failed: %v\n", err)
			return c.JSON(http.StatusInternalServerError, models.Response{
				Error: err.Error(),
			})
		}

		if payloads != nil {
			payloads.Set("tasks", result, ttl)
		}
		if tracker != nil {
			go tracker.TrackQuery(analytics.EventTasks, result.TotalOpen, 0, time.Since(start))
		}

		return c.JSON(http.StatusOK, result)
	}
}

// StatsHandler returns raw mailbox counters
// @Summary Mailbox statistics
// @Tags digest
// @Produce json
// @Success 200 {object} models.StatsResult
// @Failure 503 {object} models.Response
// @Router /api/stats [get]
func StatsHandler(engine *rag.Engine, payloads *cache.Cache, ttl time.Duration, tracker *analytics.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		if engine == nil {
			return c.JSON(http.StatusServiceUnavailable, models.Response{
				Error: "Engine not available",
			})
		}

		if payloads != nil {
			if cached, found := payloads.Get("stats"); found {
				return c.JSON(http.StatusOK, cached)
			}
		}

		start := time.Now()
		result, err := engine.Stats(c.Request().Context())
		if err != nil {
			fmt.Printf("[STATS] Failed: %v\n", err)
			return c.JSON(http.StatusInternalServerError, models.Response{
				Error: err.Error(),
			})
		}

		if payloads != nil {
			payloads.Set("stats", result, ttl)
		}
		if tracker != nil {
			go tracker.TrackQuery(analytics.EventStats, result.TotalEmails, 0, time.Since(start))
		}

		return c.JSON(http.StatusOK, result)
	}
}
