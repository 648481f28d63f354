// Package criteria loads the policies a record is assessed against.
//
// A policy is a TOML document with a top-level description and one table per
// section, each holding a criteria string:
//
//	description = "A patient is eligible if they satisfy ANY SINGLE ONE OF THOSE SECTIONS."
//
//	[average-risk-screening]
//	criteria = "The patient is 45 years of age or older ..."
//
// Sections keep the order in which they are declared. Inline tables are
// accepted as sections; other top-level values are ignored.
package criteria

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/pelletier/go-toml/v2/unstable"
	errorskg "github.com/sweetpotato0/procedure-assess/errors"
)

const (
	keyDescription = "description"
	keyCriteria    = "criteria"
)

// Section is one named group of conditions.
type Section struct {
	Name     string
	Criteria string
}

// Criteria is a parsed policy.
type Criteria struct {
	Name        string
	Description string
	Sections    []Section
}

// Parse reads a policy document. name labels the result.
func Parse(name string, data []byte) (*Criteria, error) {
	order, err := sectionOrder(data)
	if err != nil {
		return nil, fmt.Errorf("%w: criteria %s: %v", errorskg.ErrInvalidInput, name, err)
	}

	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: criteria %s: %v", errorskg.ErrInvalidInput, name, err)
	}

	desc, ok := raw[keyDescription].(string)
	if !ok || strings.TrimSpace(desc) == "" {
		return nil, fmt.Errorf("%w: criteria %s: missing top-level %q string", errorskg.ErrInvalidInput, name, keyDescription)
	}

	c := &Criteria{Name: name, Description: strings.TrimSpace(desc), Sections: []Section{}}
	for _, section := range order {
		table, ok := raw[section].(map[string]any)
		if !ok {
			continue
		}
		text, ok := table[keyCriteria].(string)
		if !ok {
			return nil, fmt.Errorf("%w: criteria %s: section %q has no %q string", errorskg.ErrInvalidInput, name, section, keyCriteria)
		}
		c.Sections = append(c.Sections, Section{Name: section, Criteria: strings.TrimSpace(text)})
	}
	return c, nil
}

// sectionOrder lists top-level table names in declaration order. toml.Unmarshal
// into a map loses this order, so the document is walked expression by
// expression.
func sectionOrder(data []byte) ([]string, error) {
	var (
		p       unstable.Parser
		order   []string
		seen    = map[string]bool{}
		inTable bool
	)
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			order = append(order, name)
		}
	}

	p.Reset(data)
	for p.NextExpression() {
		e := p.Expression()
		switch e.Kind {
		case unstable.Table:
			inTable = true
			add(firstKey(e))
		case unstable.ArrayTable:
			return nil, fmt.Errorf("array of tables [[%s]] is not a valid section", firstKey(e))
		case unstable.KeyValue:
			if inTable {
				continue
			}
			it := e.Key()
			if !it.Next() {
				continue
			}
			head := string(it.Node().Data)
			dotted := it.Next()
			if dotted || e.Value().Kind == unstable.InlineTable {
				add(head)
			}
		}
	}
	if err := p.Error(); err != nil {
		return nil, err
	}
	return order, nil
}

func firstKey(e *unstable.Node) string {
	it := e.Key()
	if it.Next() {
		return string(it.Node().Data)
	}
	return ""
}

// Section returns the section called name.
func (c *Criteria) Section(name string) (Section, bool) {
	for _, s := range c.Sections {
		if s.Name == name {
			return s, true
		}
	}
	return Section{}, false
}

// Text renders the whole policy for inclusion in a report.
func (c *Criteria) Text() string {
	var b strings.Builder
	b.WriteString(c.Description)
	for _, s := range c.Sections {
		b.WriteString("\n\n[" + s.Name + "]\n")
		b.WriteString(s.Criteria)
	}
	return b.String()
}

// LoadFile parses the policy at path, naming it after the file.
func LoadFile(path string) (*Criteria, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: criteria file %s", errorskg.ErrNotFound, path)
		}
		return nil, fmt.Errorf("read criteria %s: %w", path, err)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return Parse(name, data)
}
