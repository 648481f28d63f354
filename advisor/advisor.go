// Package advisor is the completion client every pipeline step talks to.
// It turns a question plus optional record pages and search results into a
// single prompt, and offers schema-checked JSON extraction on top.
package advisor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sweetpotato0/procedure-assess/agent"
	"github.com/sweetpotato0/procedure-assess/document"
	errorskg "github.com/sweetpotato0/procedure-assess/errors"
	"github.com/sweetpotato0/procedure-assess/message"
	"github.com/sweetpotato0/procedure-assess/middleware"
	"github.com/sweetpotato0/procedure-assess/pkg/logging"
	"github.com/sweetpotato0/procedure-assess/prompt"
	"github.com/sweetpotato0/procedure-assess/search"
)

// Mode is the prompt construction branch chosen for a request.
type Mode int

const (
	// ModeBare answers from the model's own knowledge.
	ModeBare Mode = iota
	// ModeContext answers only from the supplied pages.
	ModeContext
	// ModeSearch answers only from the supplied search results.
	ModeSearch
	// ModeContextAndSearch gives the model both, as separate sections.
	ModeContextAndSearch
)

func (m Mode) String() string {
	switch m {
	case ModeContext:
		return "context"
	case ModeSearch:
		return "search"
	case ModeContextAndSearch:
		return "context_and_search"
	default:
		return "bare"
	}
}

// Request is a free-text question.
type Request struct {
	Question      string
	Context       []document.Page
	SearchResults string
}

// RouteFor picks the branch for req from which inputs were supplied. Search
// results that are present but blank still select a search branch.
func RouteFor(req Request) Mode {
	hasContext := len(req.Context) > 0
	hasSearch := req.SearchResults != ""
	switch {
	case hasContext && hasSearch:
		return ModeContextAndSearch
	case hasContext:
		return ModeContext
	case hasSearch:
		return ModeSearch
	default:
		return ModeBare
	}
}

// Advisor wraps an LLM client with the pipeline prompts.
type Advisor struct {
	client   agent.LLMClient
	searcher search.Searcher
	prompts  *prompt.Catalog
	logger   *slog.Logger
}

// Option configures an Advisor.
type Option func(*Advisor)

// WithSearcher sets the web search backend used by WebSearch.
func WithSearcher(s search.Searcher) Option {
	return func(a *Advisor) { a.searcher = s }
}

// WithPrompts replaces the default prompt catalog.
func WithPrompts(c *prompt.Catalog) Option {
	return func(a *Advisor) {
		if c != nil {
			a.prompts = c
		}
	}
}

// WithMiddleware runs every backend call through chain.
func WithMiddleware(chain *middleware.MiddlewareChain) Option {
	return func(a *Advisor) { a.client = middleware.Wrap(a.client, chain) }
}

// WithLogger overrides the advisor logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Advisor) {
		if l != nil {
			a.logger = l
		}
	}
}

// New creates an advisor backed by client.
func New(client agent.LLMClient, opts ...Option) *Advisor {
	a := &Advisor{
		client:  client,
		prompts: prompt.DefaultCatalog(),
		logger:  logging.WithComponent("advisor"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Model reports the backend model identifier.
func (a *Advisor) Model() string {
	return a.client.Model()
}

// Prompts returns the catalog the advisor renders from.
func (a *Advisor) Prompts() *prompt.Catalog {
	return a.prompts
}

// Render builds the prompt text for req without calling the backend.
func (a *Advisor) Render(req Request) (string, Mode, error) {
	mode := RouteFor(req)
	var (
		name string
		vars = map[string]any{"question": req.Question}
	)
	switch mode {
	case ModeBare:
		name = prompt.BasicNoContext
	case ModeContext:
		name = prompt.BasicContext
		vars["context"] = document.Join(req.Context)
	case ModeSearch:
		name = prompt.BasicContext
		vars["context"] = req.SearchResults
	case ModeContextAndSearch:
		name = prompt.ContextAndSearch
		vars["context"] = document.Join(req.Context)
		vars["search_results"] = req.SearchResults
	}
	text, err := a.prompts.Render(name, vars)
	if err != nil {
		return "", mode, err
	}
	return text, mode, nil
}

// Ask sends a question and returns the model's reply with surrounding
// whitespace removed.
func (a *Advisor) Ask(ctx context.Context, req Request) (string, error) {
	if strings.TrimSpace(req.Question) == "" {
		return "", fmt.Errorf("%w: question cannot be empty", errorskg.ErrInvalidInput)
	}
	text, mode, err := a.Render(req)
	if err != nil {
		return "", err
	}
	if req.SearchResults != "" && strings.TrimSpace(req.SearchResults) == "" {
		a.logger.Warn("search results are blank", "mode", mode.String())
	}
	a.logger.Debug("asking", "mode", mode.String(), "pages", len(req.Context), "model", a.client.Model())

	reply, err := a.generate(ctx, text, agent.FormatText)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(reply), nil
}

// WebSearch runs query against the configured search backend.
func (a *Advisor) WebSearch(ctx context.Context, query string) (string, error) {
	if a.searcher == nil {
		return "", fmt.Errorf("%w: no web search backend configured", errorskg.ErrConfiguration)
	}
	a.logger.Debug("web search", "query", query)
	out, err := a.searcher.Search(ctx, query)
	if err != nil {
		return "", fmt.Errorf("web search: %w", err)
	}
	return out, nil
}

func (a *Advisor) generate(ctx context.Context, text string, format agent.ResponseFormat) (string, error) {
	resp, err := a.client.Generate(ctx, &agent.GenerateRequest{
		Messages: []*message.Message{message.User(text)},
		Format:   format,
	})
	if err != nil {
		return "", fmt.Errorf("llm call (%s): %w", a.client.Model(), err)
	}
	return resp.Text(), nil
}
