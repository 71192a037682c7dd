// Package ollama adapts the Ollama API to the judge and embedding
// contracts the evaluation layer consumes.
package ollama

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"

	"hunter/src/log"
)

const DefaultURL = "http://localhost:11434"

// Client wraps the Ollama API client.
type Client struct {
	api *api.Client
}

// NewClient builds a client for the Ollama server at baseURL.
func NewClient(baseURL string, httpClient *http.Client) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama url %q: %w", baseURL, err)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{api: api.NewClient(base, httpClient)}, nil
}

// Generate runs a non-streaming completion and returns the full response
// text.
func (c *Client) Generate(ctx context.Context, model, system, prompt string, options map[string]interface{}) (string, error) {
	stream := false
	req := &api.GenerateRequest{
		Model:   model,
		System:  system,
		Prompt:  prompt,
		Stream:  &stream,
		Options: options,
	}

	var out strings.Builder
	err := c.api.Generate(ctx, req, func(resp api.GenerateResponse) error {
		out.WriteString(resp.Response)
		return nil
	})
	if err != nil {
		log.Error(err, "ollama generation failed", "model", model)
		return "", fmt.Errorf("ollama generation failed: %w", err)
	}

	if out.Len() == 0 {
		return "", fmt.Errorf("no response received from ollama model %s", model)
	}
	return out.String(), nil
}

// GetEmbedding embeds text with the given embedding model.
func (c *Client) GetEmbedding(ctx context.Context, model, text string) ([]float32, error) {
	resp, err := c.api.Embeddings(ctx, &api.EmbeddingRequest{
		Model:  model,
		Prompt: text,
	})
	if err != nil {
		return nil, fmt.Errorf("ollama embedding failed: %w", err)
	}

	embedding := make([]float32, len(resp.Embedding))
	for i, v := range resp.Embedding {
		embedding[i] = float32(v)
	}
	return embedding, nil
}

// Heartbeat verifies the server is reachable.
func (c *Client) Heartbeat(ctx context.Context) error {
	if err := c.api.Heartbeat(ctx); err != nil {
		return fmt.Errorf("ollama is unreachable: %w", err)
	}
	return nil
}
