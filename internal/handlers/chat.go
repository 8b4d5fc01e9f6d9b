package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"inboxai/internal/analytics"
	"inboxai/internal/models"
	"inboxai/internal/rag"

	"github.com/labstack/echo/v4"
)

// ChatHandler answers a question about the mailbox, either as one JSON
// payload or as a server-sent event stream when the request asks for it
// @Summary Chat with the mailbox
// @Description Ask a question about stored emails and get a grounded answer with citations
// @Tags chat
// @Accept json
// @Produce json
// @Param request body models.ChatRequest true "Question and stream flag"
// @Success 200 {object} models.QueryResult
// @Failure 400 {object} models.Response
// @Failure 503 {object} models.Response
// @Router /api/chat [post]
func ChatHandler(engine *rag.Engine, tracker *analytics.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		if engine == nil {
			return c.JSON(http.StatusServiceUnavailable, models.Response{
				Error: "Chat engine not available",
			})
		}

		var req models.ChatRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, models.Response{
				Error: fmt.Sprintf("Invalid request body: %v", err),
			})
		}

		if req.Message == "" {
			return c.JSON(http.StatusBadRequest, models.Response{
				Error: "Message required",
			})
		}

		fmt.Printf("[CHAT] ===== Incoming chat request =====\n")
		fmt.Printf("[CHAT] Message: %s\n", req.Message)
		fmt.Printf("[CHAT] Stream: %v\n", req.Stream)

		if req.Stream {
			return streamEvents(c, func(ctx context.Context) (<-chan rag.StreamEvent, error) {
				return engine.QueryStream(ctx, req.Message)
			})
		}

		start := time.Now()
		result, err := engine.Query(c.Request().Context(), req.Message)
		if err != nil {
			fmt.Printf("[CHAT] Query failed: %v\n", err)
			return c.JSON(http.StatusInternalServerError, models.Response{
				Error: err.Error(),
			})
		}

		if tracker != nil {
			go tracker.TrackQuery(result.QueryType, result.EmailsFound, result.ThreadsIncluded, time.Since(start))
		}

		fmt.Printf("[CHAT] Answer ready: type=%s emails=%d threads=%d\n",
			result.QueryType, result.EmailsFound, result.ThreadsIncluded)

		return c.JSON(http.StatusOK, result)
	}
}

// streamEvents relays engine events to the client as server-sent
// events. Each event goes out as one `data:` line of JSON; the stream
// ends with a literal [DONE] sentinel. The request context is handed
// to the engine, so a dropped connection stops generation.
func streamEvents(c echo.Context, start func(ctx context.Context) (<-chan rag.StreamEvent, error)) error {
	events, err := start(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Error: err.Error(),
		})
	}

	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "text/event-stream")
	resp.Header().Set("Cache-Control", "no-cache")
	resp.Header().Set("Connection", "keep-alive")
	resp.WriteHeader(http.StatusOK)

	for ev := range events {
		payload, err := json.Marshal(ev)
		if err != nil {
			fmt.Printf("[STREAM] Dropping unencodable event: %v\n", err)
			continue
		}
		fmt.Fprintf(resp, "data: %s\n\n", payload)
		resp.Flush()
	}

	fmt.Fprintf(resp, "data: [DONE]\n\n")
	resp.Flush()

	return nil
}
