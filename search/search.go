// Package search defines the web search contract used to look up the
// meaning of procedure codes.
package search

import "context"

// Searcher runs a web query and returns the hits flattened to plain text.
// Implementations do not retry; transport errors are returned as is.
type Searcher interface {
	Search(ctx context.Context, query string) (string, error)
}

// Func adapts a function to the Searcher interface.
type Func func(ctx context.Context, query string) (string, error)

// Search implements Searcher.
func (f Func) Search(ctx context.Context, query string) (string, error) {
	return f(ctx, query)
}
