package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runGuarded(t *testing.T, apiKey string, decorate func(req *http.Request)) *httptest.ResponseRecorder {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/clear", nil)
	if decorate != nil {
		decorate(req)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	next := func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	}

	err := Middleware(apiKey)(next)(c)
	require.NoError(t, err)
	return rec
}

func TestMiddleware_DisabledWithoutKey(t *testing.T) {
	rec := runGuarded(t, "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMiddleware_RejectsMissingKey(t *testing.T) {
	rec := runGuarded(t, "secret", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Unauthorized")
}

func TestMiddleware_RejectsWrongKey(t *testing.T) {
	rec := runGuarded(t, "secret", func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer nope")
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMiddleware_AcceptsBearerHeader(t *testing.T) {
	rec := runGuarded(t, "secret", func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer secret")
	})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMiddleware_AcceptsBareHeader(t *testing.T) {
	rec := runGuarded(t, "secret", func(req *http.Request) {
		req.Header.Set("Authorization", "secret")
	})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMiddleware_AcceptsQueryParam(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/clear?token=secret", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	next := func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	}

	err := Middleware("secret")(next)(c)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
}
