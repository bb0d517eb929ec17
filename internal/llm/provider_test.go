package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOllamaClientGenerate(t *testing.T) {
	var got struct {
		Model  string `json:"model"`
		Prompt string `json:"prompt"`
		Stream *bool  `json:"stream"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/generate", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		w.Header().Set("Content-Type", "application/x-ndjson")
		_, _ = io.WriteString(w, `{"model":"mistral","response":"hello","done":true}`+"\n")
	}))
	defer srv.Close()

	client, err := NewOllamaClient(srv.URL, "")
	require.NoError(t, err)
	assert.Equal(t, "mistral", client.Model())

	reply, err := client.Generate(context.Background(), "say hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", reply)
	assert.Equal(t, "mistral", got.Model)
	assert.Equal(t, "say hello", got.Prompt)
	require.NotNil(t, got.Stream)
	assert.False(t, *got.Stream)
}

func TestOllamaClientErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":"model 'mistral' not found"}`)
	}))
	defer srv.Close()

	client, err := NewOllamaClient(srv.URL, "mistral")
	require.NoError(t, err)

	_, err = client.Generate(context.Background(), "hi")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrModelUnavailable)
}

func TestOllamaClientUnreachable(t *testing.T) {
	client, err := NewOllamaClient("http://127.0.0.1:1", "mistral")
	require.NoError(t, err)

	_, err = client.Generate(context.Background(), "hi")
	assert.ErrorIs(t, err, ErrModelUnavailable)
	assert.ErrorIs(t, client.Ping(context.Background()), ErrModelUnavailable)
}

func TestOpenAIClientGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"c1","object":"chat.completion","created":0,"model":"gpt-4o-mini",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"[[\"A\",\"is a\",\"B\"]]"}}]}`)
	}))
	defer srv.Close()

	client, err := NewOpenAIClient("", srv.URL+"/v1/", "gpt-4o-mini")
	require.NoError(t, err)

	reply, err := client.Generate(context.Background(), "extract")
	require.NoError(t, err)
	assert.Equal(t, `[["A","is a","B"]]`, reply)
}

func TestOpenAIClientNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"c1","object":"chat.completion","created":0,"model":"m","choices":[]}`)
	}))
	defer srv.Close()

	client, err := NewOpenAIClient("", srv.URL+"/v1/", "m")
	require.NoError(t, err)

	_, err = client.Generate(context.Background(), "extract")
	assert.ErrorIs(t, err, ErrModelUnavailable)
}

func TestOpenAIClientRequiresKeyOrBaseURL(t *testing.T) {
	_, err := NewOpenAIClient("", "", "m")
	assert.Error(t, err)
}

func TestAnthropicClientRequiresKey(t *testing.T) {
	_, err := NewAnthropicClient("", "")
	assert.ErrorIs(t, err, ErrAPIKeyRequired)
}
