package handlers

import (
	"fmt"
	"net/http"

	"inboxai/internal/analytics"
	"inboxai/internal/models"

	"github.com/labstack/echo/v4"
)

// AnalyticsHandler returns the usage summary for a given period
// @Summary Get usage summary
// @Description Get usage summary for a specified time period (today, yesterday, last_7_days, last_30_days)
// @Tags analytics
// @Accept json
// @Produce json
// @Param period query string false "Time period (today, yesterday, last_7_days, last_30_days)" default(yesterday)
// @Success 200 {object} models.AnalyticsResponse
// @Failure 500 {object} models.AnalyticsResponse
// @Router /api/analytics [get]
func AnalyticsHandler(analyticsService *analytics.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		if analyticsService == nil {
			return c.JSON(http.StatusServiceUnavailable, models.AnalyticsResponse{
				Success: false,
				Error:   "Analytics service not available",
			})
		}

		period := c.QueryParam("period")
		if period == "" {
			period = "yesterday"
		}

		fmt.Printf("[ANALYTICS] Fetching usage summary for period: %s\n", period)

		summary, err := analyticsService.GetSummary(period)
		if err != nil {
			fmt.Printf("[ANALYTICS] ERROR: Failed to get usage summary: %v\n", err)
			return c.JSON(http.StatusInternalServerError, models.AnalyticsResponse{
				Success: false,
				Error:   fmt.Sprintf("Failed to get usage summary: %v", err),
			})
		}

		fmt.Printf("[ANALYTICS] ✅ Usage summary retrieved successfully\n")
		return c.JSON(http.StatusOK, models.AnalyticsResponse{
			Success: true,
			Summary: summary,
		})
	}
}

// DailyReportHandler returns yesterday's usage report in one call,
// suitable for a scheduled notification hook
// @Summary Get daily usage report
// @Description Get the usage report for the previous day
// @Tags analytics
// @Accept json
// @Produce json
// @Success 200 {object} models.AnalyticsResponse
// @Failure 500 {object} models.AnalyticsResponse
// @Router /api/analytics/daily-report [get]
func DailyReportHandler(analyticsService *analytics.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		if analyticsService == nil {
			return c.JSON(http.StatusServiceUnavailable, models.AnalyticsResponse{
				Success: false,
				Error:   "Analytics service not available",
			})
		}

		fmt.Printf("[ANALYTICS] Generating daily usage report\n")

		summary, err := analyticsService.GetDailyReport()
		if err != nil {
			fmt.Printf("[ANALYTICS] ERROR: Failed to generate daily report: %v\n", err)
			return c.JSON(http.StatusInternalServerError, models.AnalyticsResponse{
				Success: false,
				Error:   fmt.Sprintf("Failed to generate daily report: %v", err),
			})
		}

		fmt.Printf("[ANALYTICS] ✅ Daily report generated successfully\n")
		fmt.Printf("[ANALYTICS] Summary: Chats=%d, Searches=%d, MeetingPreps=%d, LLM Calls=%d, Tokens=%d\n",
			summary.ChatQueries,
			summary.Searches,
			summary.MeetingPreps,
			summary.LLMCalls,
			summary.LLMTokensUsed,
		)

		return c.JSON(http.StatusOK, models.AnalyticsResponse{
			Success: true,
			Summary: summary,
		})
	}
}
