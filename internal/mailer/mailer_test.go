package mailer

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentPayload struct {
	From struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"from"`
	Subject          string `json:"subject"`
	Personalizations []struct {
		To []struct {
			Email string `json:"email"`
		} `json:"to"`
	} `json:"personalizations"`
	Content []struct {
		Type  string `json:"type"`
		Value string `json:"value"`
	} `json:"content"`
}

func TestNew_DefaultFrom(t *testing.T) {
	m := New("key", "")
	assert.Equal(t, "assistant@inboxai.app", m.fromEmail)

	m = New("key", "me@corp.example")
	assert.Equal(t, "me@corp.example", m.fromEmail)
}

func TestSend_NoAPIKey(t *testing.T) {
	m := New("", "")
	err := m.Send("dana@corp.example", "Brief", "content")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "SendGrid API key not configured")
}

func TestSend_NoRecipient(t *testing.T) {
	m := New("key", "")
	err := m.Send("", "Brief", "content")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "recipient address is required")
}

func TestSend_DeliversPayload(t *testing.T) {
	var payload sentPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.Header.Get("Authorization"), "Bearer test-key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	m := New("test-key", "assistant@corp.example")
	m.host = server.URL

	err := m.Send("dana@corp.example", "Meeting brief: budget review", "Here is what you need to know.")
	require.NoError(t, err)

	assert.Equal(t, "Inbox Assistant", payload.From.Name)
	assert.Equal(t, "assistant@corp.example", payload.From.Email)
	assert.Equal(t, "Meeting brief: budget review", payload.Subject)
	require.Len(t, payload.Personalizations, 1)
	require.Len(t, payload.Personalizations[0].To, 1)
	assert.Equal(t, "dana@corp.example", payload.Personalizations[0].To[0].Email)
	require.NotEmpty(t, payload.Content)
	assert.Equal(t, "text/plain", payload.Content[0].Type)
	assert.Equal(t, "Here is what you need to know.", payload.Content[0].Value)
}

func TestSend_DefaultSubject(t *testing.T) {
	var payload sentPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	m := New("test-key", "")
	m.host = server.URL

	require.NoError(t, m.Send("dana@corp.example", "", "content"))
	assert.Equal(t, "From your inbox assistant", payload.Subject)
}

func TestSend_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"errors":[{"message":"bad key"}]}`))
	}))
	defer server.Close()

	m := New("bad-key", "")
	m.host = server.URL

	err := m.Send("dana@corp.example", "Brief", "content")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "SendGrid API error: status 401")
	assert.Contains(t, err.Error(), "bad key")
}
