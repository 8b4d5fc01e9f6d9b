package handlers

import (
	"fmt"
	"net/http"

	"inboxai/internal/config"
	"inboxai/internal/llm"
	"inboxai/internal/models"
	"inboxai/internal/rag"
	"inboxai/internal/store"

	"github.com/labstack/echo/v4"
)

// settingsResponse mirrors the runtime-tunable configuration
type settingsResponse struct {
	LLM               llmSettings   `json:"llm"`
	Email             emailSettings `json:"email"`
	CalendarAvailable bool          `json:"calendar_available"`
}

type llmSettings struct {
	Backend     string  `json:"backend"`
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
}

type emailSettings struct {
	LookbackDays int      `json:"lookback_days"`
	Folders      []string `json:"folders"`
}

// settingsUpdateRequest uses pointers so only the fields present in
// the body get applied.
type settingsUpdateRequest struct {
	Temperature *float64 `json:"temperature"`
	Model       *string  `json:"model"`
}

type settingsUpdateResponse struct {
	Status        string   `json:"status"`
	UpdatedFields []string `json:"updated_fields"`
}

// SettingsHandler returns the current runtime settings
// @Summary Current settings
// @Tags admin
// @Produce json
// @Success 200 {object} settingsResponse
// @Failure 503 {object} models.Response
// @Router /api/settings [get]
func SettingsHandler(cfg *config.Config, llmClient *llm.Client, calendarAvailable bool) echo.HandlerFunc {
	return func(c echo.Context) error {
		if llmClient == nil {
			return c.JSON(http.StatusServiceUnavailable, models.Response{
				Error: "LLM client not available",
			})
		}

		return c.JSON(http.StatusOK, settingsResponse{
			LLM: llmSettings{
				Backend:     llmClient.ProviderName(),
				Model:       llmClient.Model(),
				Temperature: llmClient.Temperature(),
			},
			Email: emailSettings{
				LookbackDays: cfg.EmailLookbackDays,
				Folders:      cfg.MailFolders,
			},
			CalendarAvailable: calendarAvailable,
		})
	}
}

// SettingsUpdateHandler applies model and temperature changes at
// runtime. Absent fields are left alone.
// @Summary Update settings
// @Tags admin
// @Accept json
// @Produce json
// @Param request body settingsUpdateRequest true "Fields to update"
// @Success 200 {object} settingsUpdateResponse
// @Failure 400 {object} models.Response
// @Failure 503 {object} models.Response
// @Router /api/settings [post]
func SettingsUpdateHandler(llmClient *llm.Client) echo.HandlerFunc {
	return func(c echo.Context) error {
		if llmClient == nil {
			return c.JSON(http.StatusServiceUnavailable, models.Response{
				Error: "LLM client not available",
			})
		}

		var req settingsUpdateRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, models.Response{
				Error: fmt.Sprintf("Invalid request body: %v", err),
			})
		}

		updated := []string{}
		if req.Temperature != nil {
			llmClient.SetTemperature(*req.Temperature)
			updated = append(updated, "temperature")
		}
		if req.Model != nil {
			llmClient.SetModel(*req.Model)
			updated = append(updated, "model")
		}

		fmt.Printf("[SETTINGS] Updated fields: %v\n", updated)

		return c.JSON(http.StatusOK, settingsUpdateResponse{
			Status:        "updated",
			UpdatedFields: updated,
		})
	}
}

// ModelsHandler lists the generation models the backend offers
// @Summary List models
// @Tags admin
// @Produce json
// @Success 200 {object} models.ModelsResponse
// @Failure 503 {object} models.Response
// @Router /api/models [get]
func ModelsHandler(llmClient *llm.Client) echo.HandlerFunc {
	return func(c echo.Context) error {
		if llmClient == nil {
			return c.JSON(http.StatusServiceUnavailable, models.Response{
				Error: "LLM client not available",
			})
		}

		list, err := llmClient.ListModels(c.Request().Context())
		if err != nil {
			fmt.Printf("[SETTINGS] Listing models failed: %v\n", err)
			return c.JSON(http.StatusInternalServerError, models.Response{
				Error: err.Error(),
			})
		}

		return c.JSON(http.StatusOK, models.ModelsResponse{Models: list})
	}
}

type debugSampleEntry struct {
	ID       string             `json:"id"`
	Document string             `json:"document"`
	Metadata models.EmailRecord `json:"metadata"`
}

type debugSearchEntry struct {
	Subject         string  `json:"subject"`
	Sender          string  `json:"sender"`
	DocumentLength  int     `json:"document_length"`
	DocumentPreview string  `json:"document_preview"`
	Relevance       float64 `json:"relevance"`
}

type debugResponse struct {
	TotalEmails       int                `json:"total_emails"`
	SampleEmails      []debugSampleEntry `json:"sample_emails"`
	TestSearchResults int                `json:"test_search_results"`
	TestSearchPreview []debugSearchEntry `json:"test_search_preview"`
}

// DebugHandler shows sample records and a canned retrieval probe
// @Summary Store debug view
// @Tags debug
// @Produce json
// @Success 200 {object} debugResponse
// @Failure 503 {object} models.Response
// @Router /api/debug [get]
func DebugHandler(st store.Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		if st == nil {
			return c.JSON(http.StatusServiceUnavailable, models.Response{
				Error: "Store not available",
			})
		}

		ctx := c.Request().Context()

		total, err := st.Count(ctx)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, models.Response{Error: err.Error()})
		}

		sample, err := st.FetchAll(ctx, 5)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, models.Response{Error: err.Error()})
		}

		samples := make([]debugSampleEntry, 0, len(sample))
		for _, r := range sample {
			samples = append(samples, debugSampleEntry{
				ID:       r.ID,
				Document: runePrefix(r.Document(), 500),
				Metadata: r,
			})
		}

		hits, err := st.Search(ctx, "email", 3, store.Filter{})
		if err != nil {
			return c.JSON(http.StatusInternalServerError, models.Response{Error: err.Error()})
		}

		preview := make([]debugSearchEntry, 0, len(hits))
		for _, h := range hits {
			preview = append(preview, debugSearchEntry{
				Subject:         h.Record.Subject,
				Sender:          h.Record.Sender,
				DocumentLength:  len(h.Document),
				DocumentPreview: runePrefix(h.Document, 300),
				Relevance:       h.Relevance,
			})
		}

		return c.JSON(http.StatusOK, debugResponse{
			TotalEmails:       total,
			SampleEmails:      samples,
			TestSearchResults: len(hits),
			TestSearchPreview: preview,
		})
	}
}

type debugQueryRequest struct {
	Query string `json:"query"`
}

type debugQueryEntry struct {
	Subject         string `json:"subject"`
	Sender          string `json:"sender"`
	Date            string `json:"date"`
	Direction       string `json:"direction"`
	IsReplied       bool   `json:"is_replied"`
	DocumentLength  int    `json:"document_length"`
	DocumentPreview string `json:"document_preview"`
}

type debugQueryResponse struct {
	Query          string            `json:"query"`
	EmailsFound    int               `json:"emails_found"`
	ContextLength  int               `json:"context_length"`
	ContextPreview string            `json:"context_preview"`
	Results        []debugQueryEntry `json:"results"`
}

// DebugQueryHandler dry-runs retrieval for a query and shows the exact
// context the LLM would receive. No thread expansion happens here, so
// the preview matches the raw hits.
// @Summary Query debug view
// @Tags debug
// @Accept json
// @Produce json
// @Param request body debugQueryRequest false "Query to probe"
// @Success 200 {object} debugQueryResponse
// @Failure 503 {object} models.Response
// @Router /api/debug/query [post]
func DebugQueryHandler(st store.Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		if st == nil {
			return c.JSON(http.StatusServiceUnavailable, models.Response{
				Error: "Store not available",
			})
		}

		var req debugQueryRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, models.Response{
				Error: fmt.Sprintf("Invalid request body: %v", err),
			})
		}
		if req.Query == "" {
			req.Query = "show me recent emails"
		}

		hits, err := st.Search(c.Request().Context(), req.Query, 10, store.Filter{})
		if err != nil {
			return c.JSON(http.StatusInternalServerError, models.Response{Error: err.Error()})
		}

		records := make([]models.EmailRecord, 0, len(hits))
		for _, h := range hits {
			records = append(records, h.Record)
		}
		contextText := rag.FormatEmailContext(records)

		contextPreview := runePrefix(contextText, 3000)
		if len([]rune(contextText)) > 3000 {
			contextPreview += "..."
		}

		results := make([]debugQueryEntry, 0, len(hits))
		for _, h := range hits {
			results = append(results, debugQueryEntry{
				Subject:         h.Record.Subject,
				Sender:          h.Record.Sender,
				Date:            h.Record.Date,
				Direction:       h.Record.Direction,
				IsReplied:       h.Record.IsReplied,
				DocumentLength:  len(h.Document),
				DocumentPreview: runePrefix(h.Document, 500),
			})
		}

		return c.JSON(http.StatusOK, debugQueryResponse{
			Query:          req.Query,
			EmailsFound:    len(hits),
			ContextLength:  len(contextText),
			ContextPreview: contextPreview,
			Results:        results,
		})
	}
}
