// Package pdf loads medical records from PDF files, one page at a time.
package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/sweetpotato0/procedure-assess/document"
	errorskg "github.com/sweetpotato0/procedure-assess/errors"
	"github.com/sweetpotato0/procedure-assess/pkg/logging"
)

// Loader validates a PDF and extracts the plain text of each page.
type Loader struct {
	conf   *model.Configuration
	logger *slog.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithLogger overrides the loader logger.
func WithLogger(l *slog.Logger) Option {
	return func(ld *Loader) {
		if l != nil {
			ld.logger = l
		}
	}
}

// New returns a loader that validates input in pdfcpu's relaxed mode.
func New(opts ...Option) *Loader {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	l := &Loader{
		conf:   conf,
		logger: logging.WithComponent("pdf_loader"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads path and returns its pages in order. Pages without any
// extractable text are skipped; a document with no text at all is an error.
func (l *Loader) Load(ctx context.Context, path string) ([]document.Page, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: record %s", errorskg.ErrNotFound, path)
		}
		return nil, fmt.Errorf("read record %s: %w", path, err)
	}
	return l.LoadBytes(ctx, path, data)
}

// LoadBytes is Load for a document already in memory. source is recorded on
// every page.
func (l *Loader) LoadBytes(ctx context.Context, source string, data []byte) ([]document.Page, error) {
	if err := api.Validate(bytes.NewReader(data), l.conf); err != nil {
		return nil, fmt.Errorf("%w: %s is not a valid PDF: %v", errorskg.ErrInvalidInput, source, err)
	}
	count, err := api.PageCount(bytes.NewReader(data), l.conf)
	if err != nil {
		return nil, fmt.Errorf("count pages of %s: %w", source, err)
	}

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open %s for text extraction: %w", source, err)
	}
	if n := r.NumPage(); n != count {
		l.logger.Warn("page count mismatch", "source", source, "pdfcpu", count, "extractor", n)
	}

	pages := make([]document.Page, 0, r.NumPage())
	for i := 1; i <= r.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("extract text from %s page %d: %w", source, i, err)
		}
		text = Clean(text)
		if text == "" {
			l.logger.Debug("skipping page without text", "source", source, "page", i)
			continue
		}
		pages = append(pages, document.Page{Number: i, Content: text, Source: source})
	}

	if len(pages) == 0 {
		return nil, fmt.Errorf("%w: %s has no extractable text", errorskg.ErrInvalidInput, source)
	}
	l.logger.Info("record loaded", "source", source, "pages", len(pages), "page_count", count)
	return pages, nil
}
