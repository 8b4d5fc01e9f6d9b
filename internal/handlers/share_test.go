package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"inboxai/internal/mailer"
	"inboxai/internal/models"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShareHandler_NilMailer(t *testing.T) {
	e := echo.New()
	c, rec := postJSON(e, "/api/share", `{"to":"dana.levi@corp.example","content":"Summary"}`)

	err := ShareHandler(nil, nil)(c)

	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp models.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Mailer not available", resp.Error)
}

func TestShareHandler_Validation(t *testing.T) {
	tests := []struct {
		name          string
		body          string
		expectedError string
	}{
		{
			name:          "malformed body",
			body:          `{"to":`,
			expectedError: "Invalid request body",
		},
		{
			name:          "missing recipient",
			body:          `{"content":"Summary"}`,
			expectedError: "Valid recipient address required",
		},
		{
			name:          "recipient without at sign",
			body:          `{"to":"dana.levi","content":"Summary"}`,
			expectedError: "Valid recipient address required",
		},
		{
			name:          "missing content",
			body:          `{"to":"dana.levi@corp.example"}`,
			expectedError: "Content required",
		},
	}

	m := mailer.New("SG.test-key", "digest@corp.example")

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			c, rec := postJSON(e, "/api/share", tt.body)

			err := ShareHandler(m, nil)(c)

			require.NoError(t, err)
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			var resp models.Response
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Contains(t, resp.Error, tt.expectedError)
		})
	}
}

func TestShareHandler_SendFailure(t *testing.T) {
	// A mailer without an API key fails before any network call.
	m := mailer.New("", "digest@corp.example")

	e := echo.New()
	c, rec := postJSON(e, "/api/share", `{"to":"dana.levi@corp.example","subject":"Daily digest","content":"Summary"}`)

	err := ShareHandler(m, nil)(c)

	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp models.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Error, "SendGrid API key not configured")
}
