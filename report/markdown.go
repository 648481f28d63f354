package report

import (
	"fmt"
	"strings"
)

// Builder assembles a Markdown document.
type Builder struct {
	parts []string
}

// NewBuilder creates a new Markdown builder
func NewBuilder() *Builder {
	return &Builder{}
}

// Heading adds an ATX heading of the given level (1-6).
func (b *Builder) Heading(level int, text string) *Builder {
	if level < 1 {
		level = 1
	}
	if level > 6 {
		level = 6
	}
	b.parts = append(b.parts, strings.Repeat("#", level)+" "+strings.TrimSpace(text)+"\n")
	return b
}

// Paragraph adds a block of text followed by a blank line.
func (b *Builder) Paragraph(text string) *Builder {
	b.parts = append(b.parts, strings.TrimSpace(text)+"\n\n")
	return b
}

// Paragraphf adds a formatted paragraph.
func (b *Builder) Paragraphf(format string, args ...any) *Builder {
	return b.Paragraph(fmt.Sprintf(format, args...))
}

// Findings adds every section as a heading at level followed by its body.
func (b *Builder) Findings(level int, f Findings) *Builder {
	for _, s := range f {
		b.Heading(level, s.Title)
		b.Paragraph(s.Body)
	}
	return b
}

// CodeBlock adds a fenced block with an optional info string.
func (b *Builder) CodeBlock(lang, text string) *Builder {
	b.parts = append(b.parts, "```"+lang+"\n"+strings.TrimRight(text, "\n")+"\n```\n\n")
	return b
}

// String returns the document.
func (b *Builder) String() string {
	return strings.Join(b.parts, "")
}
