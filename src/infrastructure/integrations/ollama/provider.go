package ollama

import (
	"context"
)

// Provider binds a Client to fixed reasoning and embedding models. It
// satisfies the evaluation layer's LLMProvider contract and the evidence
// indexes' embedder contract.
type Provider struct {
	client         *Client
	modelName      string
	embeddingModel string
}

func NewProvider(client *Client, modelName, embeddingModel string) *Provider {
	return &Provider{
		client:         client,
		modelName:      modelName,
		embeddingModel: embeddingModel,
	}
}

func (p *Provider) Reasoning(ctx context.Context, system string, prompt string) (string, error) {
	return p.client.Generate(ctx, p.modelName, system, prompt, map[string]interface{}{
		// Judging wants reproducible verdicts, not creative ones.
		"temperature": 0.0,
		"top_p":       0.9,
	})
}

func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	return p.client.GetEmbedding(ctx, p.embeddingModel, text)
}
