package services

import (
	"context"

	"github.com/ultraintel/counselor-api/services/openai"
)

// CompletionGateway is the seam between the interview flow and the
// completion service. Tests substitute a fake; production wires the
// OpenAI-compatible client.
type CompletionGateway interface {
	// Complete returns the full completion text. An empty completion is
	// not an error.
	Complete(ctx context.Context, messages []openai.Message, options ...openai.Option) (string, error)
	// StreamComplete relays chunks through onChunk and returns the full
	// accumulated text, including whatever arrived before a mid-stream
	// failure.
	StreamComplete(ctx context.Context, messages []openai.Message, onChunk func(string) error, options ...openai.Option) (string, error)
}

// OpenAIGateway adapts the openai client to the CompletionGateway seam
type OpenAIGateway struct {
	client *openai.Client
}

// NewOpenAIGateway wraps an openai client
func NewOpenAIGateway(client *openai.Client) *OpenAIGateway {
	return &OpenAIGateway{client: client}
}

func (g *OpenAIGateway) Complete(ctx context.Context, messages []openai.Message, options ...openai.Option) (string, error) {
	resp, err := g.client.ChatCompletion(ctx, messages, options...)
	if err != nil {
		return "", err
	}
	return resp.ExtractContent(), nil
}

func (g *OpenAIGateway) StreamComplete(ctx context.Context, messages []openai.Message, onChunk func(string) error, options ...openai.Option) (string, error) {
	return g.client.StreamChatCompletion(ctx, messages, onChunk, options...)
}
