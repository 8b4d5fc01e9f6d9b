package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"inboxai/internal/analytics"
	"inboxai/internal/cache"
	"inboxai/internal/config"
	"inboxai/internal/ingest"
	"inboxai/internal/k8s"
	"inboxai/internal/models"
	"inboxai/internal/store"

	"github.com/labstack/echo/v4"
)

// ingestRequest is the wire form of an ingestion trigger. include_gmail
// is a pointer so an absent field defaults to "yes when configured"
// while an explicit false still turns the live source off.
type ingestRequest struct {
	Paths        []string `json:"paths"`
	IncludeGmail *bool    `json:"include_gmail"`
	Days         int      `json:"days"`
}

// ingestStartResponse reports the launched import job
type ingestStartResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	JobName string `json:"job_name,omitempty"`
	Error   string `json:"error,omitempty"`
}

// jobStatusResponse is the condensed status of one import job
type jobStatusResponse struct {
	JobName        string  `json:"job_name"`
	Status         string  `json:"status"`
	Active         int32   `json:"active"`
	Succeeded      int32   `json:"succeeded"`
	Failed         int32   `json:"failed"`
	StartTime      *string `json:"start_time,omitempty"`
	CompletionTime *string `json:"completion_time,omitempty"`
}

// IngestHandler runs an import in-process and reports what was added
// @Summary Import emails
// @Description Parse mail archives and pull from Gmail, then store everything for retrieval
// @Tags ingest
// @Accept json
// @Produce json
// @Param request body ingestRequest false "Sources and lookback window"
// @Success 200 {object} models.IngestResult
// @Failure 500 {object} models.Response
// @Failure 503 {object} models.Response
// @Router /api/ingest [post]
func IngestHandler(ingestor *ingest.Ingestor, payloads *cache.Cache, tracker *analytics.Service, defaultDays int) echo.HandlerFunc {
	return func(c echo.Context) error {
		if ingestor == nil {
			return c.JSON(http.StatusServiceUnavailable, models.Response{
				Error: "Ingestion not available",
			})
		}

		var req ingestRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, models.Response{
				Error: fmt.Sprintf("Invalid request body: %v", err),
			})
		}

		days := req.Days
		if days <= 0 {
			days = defaultDays
		}
		includeGmail := ingestor.HasGmail()
		if req.IncludeGmail != nil {
			includeGmail = *req.IncludeGmail
		}

		fmt.Printf("[INGEST] ===== Starting import =====\n")
		fmt.Printf("[INGEST] Paths: %v, Gmail: %v, Days: %d\n", req.Paths, includeGmail, days)

		result, err := ingestor.Run(c.Request().Context(), models.IngestRequest{
			Paths:        req.Paths,
			IncludeGmail: includeGmail,
			DaysBack:     days,
		})
		if err != nil {
			fmt.Printf("[INGEST] Import failed: %v\n", err)
			return c.JSON(http.StatusInternalServerError, models.Response{
				Error: err.Error(),
			})
		}

		// Cached digests describe the old corpus now.
		if payloads != nil {
			payloads.Clear()
		}
		if tracker != nil {
			go tracker.TrackIngest(result.FileEmails, result.GmailEmails)
		}

		return c.JSON(http.StatusOK, result)
	}
}

// IngestStartHandler launches the import as a Kubernetes Job so long
// imports do not tie up the API pod. Without a configured job image it
// falls back to an in-process run, which keeps the endpoint usable in
// local setups.
// @Summary Start background import
// @Description Launch a Kubernetes Job running the email import
// @Tags ingest
// @Accept json
// @Produce json
// @Success 200 {object} ingestStartResponse
// @Failure 500 {object} ingestStartResponse
// @Router /api/ingest/start [post]
func IngestStartHandler(cfg *config.Config, ingestor *ingest.Ingestor, payloads *cache.Cache, tracker *analytics.Service) echo.HandlerFunc {
	inProcess := IngestHandler(ingestor, payloads, tracker, cfg.EmailLookbackDays)

	return func(c echo.Context) error {
		if cfg.IngestJobImage == "" {
			return inProcess(c)
		}

		jobName := fmt.Sprintf("email-ingest-%d", time.Now().Unix())

		k8sClient, err := k8s.NewClient(cfg.IngestJobNamespace)
		if err != nil {
			fmt.Printf("[INGEST] Failed to create Kubernetes client: %v\n", err)
			return c.JSON(http.StatusInternalServerError, ingestStartResponse{
				Success: false,
				Error:   fmt.Sprintf("Failed to create Kubernetes client: %v", err),
			})
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := k8sClient.CreateIngestJob(ctx, jobName, cfg.IngestJobImage); err != nil {
			fmt.Printf("[INGEST] Failed to create job: %v\n", err)
			return c.JSON(http.StatusInternalServerError, ingestStartResponse{
				Success: false,
				Error:   fmt.Sprintf("Failed to create Kubernetes job: %v", err),
			})
		}

		fmt.Printf("[INGEST] Created import job: %s\n", jobName)

		return c.JSON(http.StatusOK, ingestStartResponse{
			Success: true,
			Message: "Email import job started",
			JobName: jobName,
		})
	}
}

// IngestJobStatusHandler reports the state of a background import job
// @Summary Import job status
// @Tags ingest
// @Produce json
// @Param jobName path string true "Job name"
// @Success 200 {object} jobStatusResponse
// @Failure 404 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /api/ingest/status/{jobName} [get]
func IngestJobStatusHandler(cfg *config.Config) echo.HandlerFunc {
	return func(c echo.Context) error {
		jobName := c.Param("jobName")

		k8sClient, err := k8s.NewClient(cfg.IngestJobNamespace)
		if err != nil {
			fmt.Printf("[INGEST] Failed to create Kubernetes client: %v\n", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{
				"error": fmt.Sprintf("Failed to create Kubernetes client: %v", err),
			})
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		job, err := k8sClient.GetJobStatus(ctx, jobName)
		if err != nil {
			return c.JSON(http.StatusNotFound, map[string]string{
				"error": fmt.Sprintf("Job not found: %v", err),
			})
		}

		status := "pending"
		if job.Status.Active > 0 {
			status = "running"
		} else if job.Status.Succeeded > 0 {
			status = "completed"
		} else if job.Status.Failed > 0 {
			status = "failed"
		}

		var startTime, completionTime *string
		if job.Status.StartTime != nil {
			st := job.Status.StartTime.Format(time.RFC3339)
			startTime = &st
		}
		if job.Status.CompletionTime != nil {
			ct := job.Status.CompletionTime.Format(time.RFC3339)
			completionTime = &ct
		}

		return c.JSON(http.StatusOK, jobStatusResponse{
			JobName:        jobName,
			Status:         status,
			Active:         job.Status.Active,
			Succeeded:      job.Status.Succeeded,
			Failed:         job.Status.Failed,
			StartTime:      startTime,
			CompletionTime: completionTime,
		})
	}
}

// ClearHandler wipes the vector store and every cached payload
// @Summary Clear stored emails
// @Tags ingest
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 500 {object} models.Response
// @Failure 503 {object} models.Response
// @Router /api/clear [post]
func ClearHandler(st store.Store, payloads *cache.Cache) echo.HandlerFunc {
	return func(c echo.Context) error {
		if st == nil {
			return c.JSON(http.StatusServiceUnavailable, models.Response{
				Error: "Store not available",
			})
		}

		if err := st.Clear(c.Request().Context()); err != nil {
			fmt.Printf("[ADMIN] Clear failed: %v\n", err)
			return c.JSON(http.StatusInternalServerError, models.Response{
				Error: err.Error(),
			})
		}

		if payloads != nil {
			payloads.Clear()
		}

		fmt.Printf("[ADMIN] Vector store cleared\n")

		return c.JSON(http.StatusOK, map[string]string{"status": "cleared"})
	}
}
