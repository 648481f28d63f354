package prompt

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"text/template"

	errorskg "github.com/sweetpotato0/procedure-assess/errors"
)

// Template represents a prompt template with variables
type Template struct {
	Name     string
	Content  string
	template *template.Template
}

// NewTemplate creates a new prompt template. Referencing a variable that is
// not supplied at render time is an error rather than an empty string.
func NewTemplate(name, content string) (*Template, error) {
	tmpl, err := template.New(name).Option("missingkey=error").Parse(content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
	}
	return &Template{
		Name:     name,
		Content:  content,
		template: tmpl,
	}, nil
}

// Render renders the template with given variables
func (t *Template) Render(vars map[string]any) (string, error) {
	var buf strings.Builder
	if err := t.template.Execute(&buf, vars); err != nil {
		return "", fmt.Errorf("failed to render template %s: %w", t.Name, err)
	}
	return buf.String(), nil
}

// Catalog is a versioned set of named prompt templates.
// All operations are thread-safe using RWMutex protection
type Catalog struct {
	mu        sync.RWMutex // Protects templates map
	version   string
	templates map[string]*Template
}

// NewCatalog creates an empty catalog tagged with version.
func NewCatalog(version string) *Catalog {
	return &Catalog{
		version:   version,
		templates: make(map[string]*Template),
	}
}

// Version identifies the wording of the templates in the catalog.
func (c *Catalog) Version() string {
	return c.version
}

// Register adds a template to the catalog
func (c *Catalog) Register(tmpl *Template) error {
	if tmpl == nil || tmpl.Name == "" {
		return fmt.Errorf("%w: template name cannot be empty", errorskg.ErrInvalidInput)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.templates[tmpl.Name]; exists {
		return fmt.Errorf("template %s already registered", tmpl.Name)
	}
	c.templates[tmpl.Name] = tmpl
	return nil
}

// RegisterString registers a template from string content
func (c *Catalog) RegisterString(name, content string) error {
	tmpl, err := NewTemplate(name, content)
	if err != nil {
		return err
	}
	return c.Register(tmpl)
}

// Override replaces the template registered under name.
func (c *Catalog) Override(name, content string) error {
	tmpl, err := NewTemplate(name, content)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.templates[name]; !exists {
		return fmt.Errorf("%w: template %s", errorskg.ErrNotFound, name)
	}
	c.templates[name] = tmpl
	return nil
}

// Get retrieves a template by name
func (c *Catalog) Get(name string) (*Template, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	tmpl, ok := c.templates[name]
	if !ok {
		return nil, fmt.Errorf("%w: template %s", errorskg.ErrNotFound, name)
	}
	return tmpl, nil
}

// Render renders a template by name with given variables
func (c *Catalog) Render(name string, vars map[string]any) (string, error) {
	tmpl, err := c.Get(name)
	if err != nil {
		return "", err
	}
	return tmpl.Render(vars)
}

// MustRender is Render for templates without variables; it panics on failure.
func (c *Catalog) MustRender(name string) string {
	out, err := c.Render(name, nil)
	if err != nil {
		panic(err)
	}
	return out
}

// List returns all registered template names in sorted order.
func (c *Catalog) List() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.templates))
	for name := range c.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
