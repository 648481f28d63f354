package criteria

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	errorskg "github.com/sweetpotato0/procedure-assess/errors"
)

//go:embed specs/*.toml
var builtin embed.FS

const ext = ".toml"

// Loader resolves policy names. Files in Dir shadow the built-in policies.
type Loader struct {
	Dir string
}

// NewLoader returns a loader that looks in dir before the built-in set.
// An empty dir means built-in policies only.
func NewLoader(dir string) *Loader {
	return &Loader{Dir: dir}
}

// Load parses the built-in policy called name.
func Load(name string) (*Criteria, error) {
	return NewLoader("").Load(name)
}

// Load resolves name to a policy.
func (l *Loader) Load(name string) (*Criteria, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	if l.Dir != "" {
		p := filepath.Join(l.Dir, name+ext)
		if _, err := os.Stat(p); err == nil {
			return LoadFile(p)
		}
	}
	data, err := builtin.ReadFile(path.Join("specs", name+ext))
	if err != nil {
		return nil, fmt.Errorf("%w: criteria %q (available: %s)", errorskg.ErrNotFound, name, strings.Join(l.List(), ", "))
	}
	return Parse(name, data)
}

// List returns the names of all resolvable policies, sorted.
func (l *Loader) List() []string {
	seen := map[string]bool{}
	if entries, err := fs.ReadDir(builtin, "specs"); err == nil {
		for _, e := range entries {
			if strings.HasSuffix(e.Name(), ext) {
				seen[strings.TrimSuffix(e.Name(), ext)] = true
			}
		}
	}
	if l.Dir != "" {
		if entries, err := os.ReadDir(l.Dir); err == nil {
			for _, e := range entries {
				if !e.IsDir() && strings.HasSuffix(e.Name(), ext) {
					seen[strings.TrimSuffix(e.Name(), ext)] = true
				}
			}
		}
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func validName(name string) error {
	if name == "" || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return fmt.Errorf("%w: invalid criteria name %q", errorskg.ErrInvalidInput, name)
	}
	return nil
}
