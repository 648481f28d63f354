package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/sweetpotato0/procedure-assess/agent"
	"github.com/sweetpotato0/procedure-assess/contrib/provider/claude"
	"github.com/sweetpotato0/procedure-assess/contrib/provider/gemini"
	"github.com/sweetpotato0/procedure-assess/contrib/provider/openai"
	errorskg "github.com/sweetpotato0/procedure-assess/errors"
)

// Name identifies a completion backend.
type Name string

const (
	OpenAI    Name = "openai"
	Anthropic Name = "anthropic"
	Gemini    Name = "gemini"
)

// Config selects and parametrizes a backend.
type Config struct {
	Provider  Name
	Model     string
	APIKey    string
	BaseURL   string
	MaxTokens int64
	// Temperature is forwarded when non-nil; nil leaves the backend default.
	Temperature *float64
}

// Infer guesses the backend from a model identifier; unknown identifiers map to OpenAI.
func Infer(model string) Name {
	m := strings.ToLower(model)
	switch {
	case strings.HasPrefix(m, "claude"):
		return Anthropic
	case strings.HasPrefix(m, "gemini"):
		return Gemini
	default:
		return OpenAI
	}
}

// New builds the LLM client described by cfg.
func New(ctx context.Context, cfg Config) (agent.LLMClient, error) {
	name := cfg.Provider
	if name == "" {
		name = Infer(cfg.Model)
	}

	switch name {
	case OpenAI:
		c := openai.DefaultConfig()
		c.APIKey = cfg.APIKey
		c.BaseURL = cfg.BaseURL
		if cfg.Model != "" {
			c.Model = cfg.Model
		}
		if cfg.MaxTokens > 0 {
			c.MaxTokens = cfg.MaxTokens
		}
		c.Temperature = cfg.Temperature
		return openai.New(c)
	case Anthropic:
		c := claude.DefaultConfig(cfg.APIKey, cfg.BaseURL)
		if cfg.Model != "" {
			c.Model = cfg.Model
		}
		if cfg.MaxTokens > 0 {
			c.MaxTokens = cfg.MaxTokens
		}
		c.Temperature = cfg.Temperature
		return claude.New(c)
	case Gemini:
		c := gemini.DefaultConfig(cfg.APIKey)
		if cfg.Model != "" {
			c.Model = cfg.Model
		}
		if cfg.MaxTokens > 0 {
			c.MaxTokens = int32(cfg.MaxTokens)
		}
		if cfg.Temperature != nil {
			t := float32(*cfg.Temperature)
			c.Temperature = &t
		}
		return gemini.New(ctx, c)
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", errorskg.ErrConfiguration, name)
	}
}
