// Package interpreter binds an advisor to the pages of one document.
package interpreter

import (
	"context"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/sweetpotato0/procedure-assess/advisor"
	"github.com/sweetpotato0/procedure-assess/document"
)

// Interpreter answers questions about a fixed set of pages. Every call uses
// those pages as context unless the caller supplies its own.
type Interpreter struct {
	advisor *advisor.Advisor
	pages   []document.Page
}

// New creates an interpreter over pages.
func New(a *advisor.Advisor, pages []document.Page) *Interpreter {
	return &Interpreter{advisor: a, pages: document.Clone(pages)}
}

// Pages returns a copy of the bound pages.
func (i *Interpreter) Pages() []document.Page {
	return document.Clone(i.pages)
}

// Advisor returns the underlying advisor.
func (i *Interpreter) Advisor() *advisor.Advisor {
	return i.advisor
}

// Ask asks question against the bound pages.
func (i *Interpreter) Ask(ctx context.Context, question string) (string, error) {
	return i.advisor.Ask(ctx, advisor.Request{Question: question, Context: i.pages})
}

// AskAbout asks question against pages instead of the bound ones.
func (i *Interpreter) AskAbout(ctx context.Context, question string, pages []document.Page) (string, error) {
	return i.advisor.Ask(ctx, advisor.Request{Question: question, Context: pages})
}

// AskWithSearch asks question using only searchResults as context.
func (i *Interpreter) AskWithSearch(ctx context.Context, question, searchResults string) (string, error) {
	return i.advisor.Ask(ctx, advisor.Request{Question: question, SearchResults: searchResults})
}

// ExtractJSON extracts a JSON object matching schema from the bound pages.
func (i *Interpreter) ExtractJSON(ctx context.Context, prompt string, schema *jsonschema.Schema, out any) error {
	return i.advisor.ExtractJSON(ctx, advisor.JSONRequest{Prompt: prompt, Schema: schema, Context: i.pages}, out)
}

// WebSearch runs a web query.
func (i *Interpreter) WebSearch(ctx context.Context, query string) (string, error) {
	return i.advisor.WebSearch(ctx, query)
}

// SyntheticPage wraps text produced by an earlier call so it can be the sole
// context of the next one.
func SyntheticPage(text string) []document.Page {
	return []document.Page{{Number: 1, Content: text, Source: "synthetic"}}
}
