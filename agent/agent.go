package agent

import (
	"context"
)

// LLMClient defines the interface for LLM providers
type LLMClient interface {
	// Generate produces a single completion for the request.
	Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error)

	// Model reports the model identifier the client is bound to.
	Model() string
}
