package nanoconfig

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar"
)

// ResolveSchemaFiles expands Schema.Include against the project root
// and drops any match also matched by Schema.Exclude, grounded in the
// teacher's schemahcl/stdlib.go fileset() builtin (doublestar.Glob
// over an absolute base-joined pattern), generalized here from a
// single include pattern to an include/exclude pair.
func (c *Config) ResolveSchemaFiles() ([]string, error) {
	seen := map[string]bool{}
	var files []string
	for _, pattern := range c.Schema.Include {
		abs := pattern
		if !filepath.IsAbs(abs) {
			abs = filepath.Join(c.root, pattern)
		}
		matches, err := doublestar.Glob(abs)
		if err != nil {
			return nil, fmt.Errorf("nanoconfig: glob %q: %w", pattern, err)
		}
		for _, m := range matches {
			if seen[m] {
				continue
			}
			excluded, err := c.isExcluded(m)
			if err != nil {
				return nil, err
			}
			if excluded {
				continue
			}
			seen[m] = true
			files = append(files, m)
		}
	}
	sort.Strings(files)
	return files, nil
}

func (c *Config) isExcluded(path string) (bool, error) {
	rel, err := filepath.Rel(c.root, path)
	if err != nil {
		rel = path
	}
	for _, pattern := range c.Schema.Exclude {
		ok, err := doublestar.Match(pattern, rel)
		if err != nil {
			return false, fmt.Errorf("nanoconfig: exclude pattern %q: %w", pattern, err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}
