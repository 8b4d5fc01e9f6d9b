package handlers

import (
	"fmt"
	"math"
	"net/http"
	"time"

	"inboxai/internal/analytics"
	"inboxai/internal/models"
	"inboxai/internal/store"

	"github.com/labstack/echo/v4"
)

// SearchHandler runs a raw semantic search and returns scored previews
// without involving the LLM
// @Summary Raw semantic search
// @Description Search stored emails by similarity and return scored previews
// @Tags search
// @Accept json
// @Produce json
// @Param request body models.SearchRequest true "Search text and result limit"
// @Success 200 {object} models.SearchResponse
// @Failure 400 {object} models.Response
// @Failure 503 {object} models.Response
// @Router /api/search [post]
func SearchHandler(st store.Store, tracker *analytics.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		if st == nil {
			return c.JSON(http.StatusServiceUnavailable, models.Response{
				Error: "Search not available",
			})
		}

		var req models.SearchRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, models.Response{
				Error: fmt.Sprintf("Invalid request body: %v", err),
			})
		}

		if req.Query == "" {
			return c.JSON(http.StatusBadRequest, models.Response{
				Error: "Query required",
			})
		}

		limit := req.Limit
		if limit <= 0 {
			limit = 20
		}

		start := time.Now()
		hits, err := st.Search(c.Request().Context(), req.Query, limit, store.Filter{})
		if err != nil {
			fmt.Printf("[SEARCH] Search failed: %v\n", err)
			return c.JSON(http.StatusInternalServerError, models.Response{
				Error: err.Error(),
			})
		}

		if tracker != nil {
			go tracker.TrackQuery(analytics.EventSearch, len(hits), 0, time.Since(start))
		}

		results := make([]models.SearchResultItem, 0, len(hits))
		for _, h := range hits {
			sender := h.Record.Sender
			if sender == "" {
				sender = "Unknown"
			}
			subject := h.Record.Subject
			if subject == "" {
				subject = "No subject"
			}
			results = append(results, models.SearchResultItem{
				Sender:    sender,
				Subject:   subject,
				Date:      h.Record.Date,
				Preview:   runePrefix(h.Document, 200),
				Relevance: math.Round(h.Relevance*1000) / 10,
			})
		}

		fmt.Printf("[SEARCH] Query %q returned %d results\n", req.Query, len(results))

		return c.JSON(http.StatusOK, models.SearchResponse{Results: results})
	}
}

// runePrefix cuts s to at most n runes so multi-byte text never gets
// split mid-character.
func runePrefix(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
