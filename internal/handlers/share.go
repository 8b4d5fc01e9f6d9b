package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"inboxai/internal/analytics"
	"inboxai/internal/mailer"
	"inboxai/internal/models"

	"github.com/labstack/echo/v4"
)

// ShareHandler emails a generated brief or summary to a recipient
// @Summary Share by email
// @Description Send generated content to an email address via SendGrid
// @Tags share
// @Accept json
// @Produce json
// @Param request body models.ShareRequest true "Recipient, subject and content"
// @Success 200 {object} models.Response
// @Failure 400 {object} models.Response
// @Failure 503 {object} models.Response
// @Router /api/share [post]
func ShareHandler(m *mailer.Mailer, tracker *analytics.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		if m == nil {
			return c.JSON(http.StatusServiceUnavailable, models.Response{
				Error: "Mailer not available",
			})
		}

		var req models.ShareRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, models.Response{
				Error: fmt.Sprintf("Invalid request body: %v", err),
			})
		}

		if req.To == "" || !strings.Contains(req.To, "@") {
			return c.JSON(http.StatusBadRequest, models.Response{
				Error: "Valid recipient address required",
			})
		}
		if req.Content == "" {
			return c.JSON(http.StatusBadRequest, models.Response{
				Error: "Content required",
			})
		}

		if err := m.Send(req.To, req.Subject, req.Content); err != nil {
			fmt.Printf("[SHARE] Send to %s failed: %v\n", req.To, err)
			return c.JSON(http.StatusInternalServerError, models.Response{
				Error: err.Error(),
			})
		}

		if tracker != nil {
			go tracker.TrackShare(req.To)
		}

		fmt.Printf("[SHARE] Sent %q to %s\n", req.Subject, req.To)

		return c.JSON(http.StatusOK, models.Response{
			Success: true,
			Message: "Email sent",
		})
	}
}
