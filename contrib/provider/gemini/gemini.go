package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/sweetpotato0/procedure-assess/agent"
	errorskg "github.com/sweetpotato0/procedure-assess/errors"
	"github.com/sweetpotato0/procedure-assess/message"
	"google.golang.org/api/option"
)

// Config holds Gemini provider configuration
type Config struct {
	APIKey    string
	Model     string
	MaxTokens int32
	// Temperature is sent when set, including an explicit 0.
	Temperature *float32
}

// DefaultConfig returns default Gemini configuration
func DefaultConfig(apiKey string) *Config {
	return &Config{
		APIKey:    apiKey,
		Model:     "gemini-1.5-pro",
		MaxTokens: 2048,
	}
}

// Provider implements agent.LLMClient for Google Gemini.
type Provider struct {
	config *Config
	client *genai.Client
}

// New creates a new Gemini provider. Close releases the underlying connection.
func New(ctx context.Context, config *Config) (*Provider, error) {
	if config == nil || config.APIKey == "" {
		return nil, fmt.Errorf("%w: Gemini API key is not set (GEMINI_API_KEY)", errorskg.ErrConfiguration)
	}
	if config.Model == "" {
		config.Model = "gemini-1.5-pro"
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(config.APIKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Provider{config: config, client: client}, nil
}

// Close releases client resources.
func (p *Provider) Close() error {
	return p.client.Close()
}

// Model implements agent.LLMClient.
func (p *Provider) Model() string { return p.config.Model }

// Generate implements agent.LLMClient.
func (p *Provider) Generate(ctx context.Context, req *agent.GenerateRequest) (*agent.GenerateResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("generate request cannot be nil")
	}

	model := p.client.GenerativeModel(p.config.Model)
	parts := p.configure(model, req)

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, fmt.Errorf("Gemini API error: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("no candidates returned from Gemini")
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}

	out := &agent.GenerateResponse{
		Message: message.NewMessage(message.RoleAssistant, text.String()),
		Model:   p.config.Model,
	}
	if resp.UsageMetadata != nil {
		out.Usage = agent.Usage{
			PromptTokens:     int64(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int64(resp.UsageMetadata.CandidatesTokenCount),
		}
	}
	return out, nil
}

// configure applies the provider settings and the request's system prompt to
// model and returns the remaining turns as content parts.
func (p *Provider) configure(model *genai.GenerativeModel, req *agent.GenerateRequest) []genai.Part {
	if p.config.MaxTokens > 0 {
		model.SetMaxOutputTokens(p.config.MaxTokens)
	}
	if p.config.Temperature != nil {
		model.SetTemperature(*p.config.Temperature)
	}
	if req.Format == agent.FormatJSON {
		model.ResponseMIMEType = "application/json"
	}

	system, turns := message.Split(req.Messages)
	if system != "" {
		model.SystemInstruction = genai.NewUserContent(genai.Text(system))
	}

	parts := make([]genai.Part, 0, len(turns))
	for _, msg := range turns {
		parts = append(parts, genai.Text(msg.Text()))
	}
	return parts
}
