package embedding

import (
	"context"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"github.com/leadline-ai/bot-platform/internal/model"
)

// OpenAIClient embeds text with the OpenAI embeddings API.
type OpenAIClient struct {
	client *openai.Client
	model  openai.EmbeddingModel
}

// NewOpenAIClient creates a new OpenAI embedding client.
func NewOpenAIClient(apiKey string) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, errors.New("OpenAI API key is required")
	}

	return &OpenAIClient{
		client: openai.NewClient(apiKey),
		model:  openai.SmallEmbedding3,
	}, nil
}

// Dimensions returns the fixed output size of text-embedding-3-small.
func (c *OpenAIClient) Dimensions() int {
	return model.EmbeddingDimensions
}

// Embed returns the embedding for text. Provider failures surface as
// ErrUnavailable so callers can trigger their fallback path.
func (c *OpenAIClient) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, errors.New("text cannot be empty")
	}

	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{Truncate(text)},
		Model: c.model,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("%w: empty response", ErrUnavailable)
	}

	vec := resp.Data[0].Embedding
	if len(vec) != c.Dimensions() {
		return nil, fmt.Errorf("unexpected embedding dimensionality %d, want %d", len(vec), c.Dimensions())
	}

	return vec, nil
}
