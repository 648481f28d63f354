package report

import (
	"bytes"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Options controls which files Write produces.
type Options struct {
	// HTML additionally renders the Markdown to a standalone HTML page.
	HTML bool
}

// FileName derives the output file name for a patient: spaces become
// underscores and "_Assessment" plus ext is appended.
func FileName(patient, ext string) string {
	name := strings.ReplaceAll(strings.TrimSpace(patient), " ", "_")
	name = strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == 0 {
			return '_'
		}
		return r
	}, name)
	if name == "" {
		name = "Patient"
	}
	return name + "_Assessment" + ext
}

// Write stores markdown in dir and returns the paths written, Markdown first.
func Write(dir, patient, markdown string, opts Options) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	mdPath := filepath.Join(dir, FileName(patient, ".md"))
	if err := os.WriteFile(mdPath, []byte(markdown), 0o644); err != nil {
		return nil, fmt.Errorf("write report: %w", err)
	}
	paths := []string{mdPath}

	if opts.HTML {
		page, err := RenderHTML(patient+" Assessment", markdown)
		if err != nil {
			return paths, err
		}
		htmlPath := filepath.Join(dir, FileName(patient, ".html"))
		if err := os.WriteFile(htmlPath, page, 0o644); err != nil {
			return paths, fmt.Errorf("write html report: %w", err)
		}
		paths = append(paths, htmlPath)
	}
	return paths, nil
}

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// RenderHTML converts markdown into a standalone HTML page.
func RenderHTML(title, source string) ([]byte, error) {
	var body bytes.Buffer
	if err := markdown.Convert([]byte(source), &body); err != nil {
		return nil, fmt.Errorf("render markdown: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&buf, "<title>%s</title>\n", html.EscapeString(title))
	buf.WriteString("</head>\n<body>\n")
	buf.Write(body.Bytes())
	buf.WriteString("</body>\n</html>\n")
	return buf.Bytes(), nil
}
