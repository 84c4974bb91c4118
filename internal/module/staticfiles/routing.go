package staticfiles

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// ErrUnknownModule is returned by Routing.Lookup for a name that is not in
// the table.
var ErrUnknownModule = errors.New("unknown module")

// Routing maps module names to the root directory their assets are served
// from. It is built once and never mutated, so it is safe for concurrent use.
type Routing struct {
	roots map[string]string
}

// NewRouting builds a routing table from module name to directory. Relative
// directories are resolved against baseDir.
func NewRouting(baseDir string, modules map[string]string) (*Routing, error) {
	if len(modules) == 0 {
		return nil, errors.New("at least one module root is required")
	}

	roots := make(map[string]string, len(modules))
	for name, dir := range modules {
		if strings.TrimSpace(name) == "" {
			return nil, errors.New("module name cannot be empty")
		}
		if strings.TrimSpace(dir) == "" {
			return nil, fmt.Errorf("root directory for module %q cannot be empty", name)
		}
		roots[name] = resolvePath(baseDir, dir)
	}
	return &Routing{roots: roots}, nil
}

// Lookup returns the root directory for module, or an error wrapping
// ErrUnknownModule.
func (r *Routing) Lookup(module string) (string, error) {
	root, ok := r.roots[module]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownModule, module)
	}
	return root, nil
}

// Modules returns the module names in sorted order.
func (r *Routing) Modules() []string {
	names := make([]string, 0, len(r.roots))
	for name := range r.roots {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Roots returns a copy of the module name to root directory table.
func (r *Routing) Roots() map[string]string {
	out := make(map[string]string, len(r.roots))
	for name, root := range r.roots {
		out[name] = root
	}
	return out
}

func resolvePath(baseDir, p string) string {
	p = filepath.FromSlash(strings.TrimSpace(p))
	if filepath.IsAbs(p) || baseDir == "" {
		return filepath.Clean(p)
	}
	return filepath.Join(baseDir, p)
}
