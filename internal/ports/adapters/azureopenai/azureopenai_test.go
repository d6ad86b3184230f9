package azureopenai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forPelevin/sportsight/internal/caption"
)

func TestComplete_OK(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/openai/deployments/commentary/chat/completions", r.URL.Path)
		assert.Equal(t, "2024-06-01", r.URL.Query().Get("api-version"))
		assert.Equal(t, "ad-token", r.Header.Get("api-key"))
		assert.Empty(t, r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","created":1,"model":"gpt-4o",
			"choices":[{"index":0,"message":{"role":"assistant","content":"What a finish!"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	a := New(Config{
		Endpoint:    srv.URL,
		Credential:  "ad-token",
		Deployment:  "commentary",
		APIVersion:  "2024-06-01",
		MaxTokens:   60,
		Temperature: 0.7,
	})
	text, err := a.Complete(context.Background(), "prompt text")
	require.NoError(t, err)
	assert.Equal(t, "What a finish!", text)

	assert.EqualValues(t, 60, gotBody["max_tokens"])
	assert.InDelta(t, 0.7, gotBody["temperature"], 1e-6)
	msgs, ok := gotBody["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 1)
	assert.Equal(t, "prompt text", msgs[0].(map[string]any)["content"])
}

func TestComplete_BearerAuth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer ad-token", r.Header.Get("Authorization"))
		assert.Empty(t, r.Header.Get("api-key"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"index":0,"message":{"role":"assistant","content":"Saved!"}}]}`))
	}))
	defer srv.Close()

	a := New(Config{Endpoint: srv.URL, Credential: "ad-token", Deployment: "d", BearerAuth: true})
	text, err := a.Complete(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "Saved!", text)
}

func TestComplete_StatusErrorIsRedacted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"token ad-token rejected","type":"invalid_request_error","code":"401"}}`))
	}))
	defer srv.Close()

	a := New(Config{Endpoint: srv.URL, Credential: "ad-token", Deployment: "d"})
	_, err := a.Complete(context.Background(), "p")
	require.ErrorIs(t, err, caption.ErrBackend)
	assert.Contains(t, err.Error(), "401")
	assert.NotContains(t, err.Error(), "ad-token")
}

func TestComplete_NoChoicesIsSchemaError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","choices":[]}`))
	}))
	defer srv.Close()

	_, err := New(Config{Endpoint: srv.URL, Credential: "k", Deployment: "d"}).Complete(context.Background(), "p")
	require.ErrorIs(t, err, caption.ErrSchema)
	require.ErrorIs(t, err, caption.ErrBackend)
}

func TestComplete_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	a := New(Config{Endpoint: srv.URL, Credential: "k", Deployment: "d", Timeout: 50 * time.Millisecond})
	_, err := a.Complete(context.Background(), "p")
	require.ErrorIs(t, err, caption.ErrBackend)
}

func TestConfigEnabled(t *testing.T) {
	assert.False(t, Config{}.Enabled())
	assert.False(t, Config{Endpoint: "https://x.openai.azure.com"}.Enabled())
	assert.False(t, Config{Credential: "k"}.Enabled())
	assert.True(t, Config{Endpoint: "https://x.openai.azure.com", Credential: "k"}.Enabled())
}
