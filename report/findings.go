// Package report accumulates pipeline findings and renders the Markdown
// assessment document.
package report

// Section is one titled finding, usually a raw model reply.
type Section struct {
	Title string
	Body  string
}

// Findings is an ordered, append-only list of sections. Titles may repeat;
// order of insertion is the order of presentation.
type Findings []Section

// Add appends a section.
func (f *Findings) Add(title, body string) {
	*f = append(*f, Section{Title: title, Body: body})
}

// Extend appends all sections of other.
func (f *Findings) Extend(other Findings) {
	*f = append(*f, other...)
}

// Get returns the body of the first section titled title.
func (f Findings) Get(title string) (string, bool) {
	for _, s := range f {
		if s.Title == title {
			return s.Body, true
		}
	}
	return "", false
}

// Titles lists section titles in order.
func (f Findings) Titles() []string {
	out := make([]string, len(f))
	for i, s := range f {
		out[i] = s.Title
	}
	return out
}
