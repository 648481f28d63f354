// Package document holds the page type shared by loaders and readers.
package document

import "strings"

// Page is one page of extracted text. Pages are values and are never mutated
// after a loader creates them.
type Page struct {
	Number  int
	Content string
	Source  string
}

// Join concatenates page contents in order, separated by a blank line.
func Join(pages []Page) string {
	parts := make([]string, 0, len(pages))
	for _, p := range pages {
		parts = append(parts, p.Content)
	}
	return strings.Join(parts, "\n\n")
}

// Clone returns a copy of pages so callers cannot alter the original slice.
func Clone(pages []Page) []Page {
	if pages == nil {
		return nil
	}
	out := make([]Page, len(pages))
	copy(out, pages)
	return out
}
