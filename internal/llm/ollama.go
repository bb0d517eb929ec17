package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
)

const (
	DefaultOllamaHost  = "http://localhost:11434"
	DefaultOllamaModel = "mistral"
)

// OllamaClient talks to a local Ollama runtime through its /api/generate endpoint.
type OllamaClient struct {
	client *api.Client
	model  string
}

// NewOllamaClient creates a client for host. Timeouts are applied per call by the Invoker.
func NewOllamaClient(host, model string) (*OllamaClient, error) {
	if host == "" {
		host = DefaultOllamaHost
	}
	if model == "" {
		model = DefaultOllamaModel
	}
	base, err := url.Parse(strings.TrimRight(host, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse ollama host: %w", err)
	}
	return &OllamaClient{
		client: api.NewClient(base, &http.Client{}),
		model:  model,
	}, nil
}

func (o *OllamaClient) Model() string {
	return o.model
}

// Generate sends a non-streaming generate request and returns the concatenated response.
func (o *OllamaClient) Generate(ctx context.Context, prompt string) (string, error) {
	stream := false
	req := &api.GenerateRequest{
		Model:  o.model,
		Prompt: prompt,
		Stream: &stream,
	}

	var reply strings.Builder
	err := o.client.Generate(ctx, req, func(resp api.GenerateResponse) error {
		reply.WriteString(resp.Response)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: ollama generate: %w", ErrModelUnavailable, err)
	}
	return reply.String(), nil
}

// Ping checks that the Ollama server is reachable.
func (o *OllamaClient) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := o.client.Heartbeat(ctx); err != nil {
		return fmt.Errorf("%w: ollama heartbeat: %w", ErrModelUnavailable, err)
	}
	return nil
}
