// Package openai provides an OpenAI-compatible judge backend. It speaks to
// the official API or to any compatible endpoint via a custom base URL.
package openai

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"hunter/src/log"
)

const DefaultModel = "gpt-4o-mini"

// Provider satisfies the evaluation layer's LLMProvider contract with chat
// completions.
type Provider struct {
	client    *openai.Client
	modelName string
}

func NewProvider(apiKey, baseURL, modelName string) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key is required")
	}
	if modelName == "" {
		modelName = DefaultModel
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	return &Provider{
		client:    openai.NewClientWithConfig(cfg),
		modelName: modelName,
	}, nil
}

func (p *Provider) Reasoning(ctx context.Context, system string, prompt string) (string, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.modelName,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		log.Error(err, "openai completion failed", "model", p.modelName)
		return "", fmt.Errorf("openai completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai returned no choices for model %s", p.modelName)
	}
	return resp.Choices[0].Message.Content, nil
}

// Embed embeds text with the small embedding model, so an OpenAI backend
// can also drive the evidence indexes.
func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.SmallEmbedding3,
		Input: []string{text},
	})
	if err != nil {
		return nil, fmt.Errorf("openai embedding failed: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("openai returned no embedding data")
	}
	return resp.Data[0].Embedding, nil
}
