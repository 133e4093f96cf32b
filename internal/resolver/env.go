package resolver

import (
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// EnvFilter guards $env access with glob allowlist patterns. An empty
// pattern list denies everything; operators opt variables in explicitly,
// with "*" as the permissive default shipped in config.
type EnvFilter struct {
	patterns []string
}

// NewEnvFilter builds a filter from glob patterns.
func NewEnvFilter(patterns []string) *EnvFilter {
	return &EnvFilter{patterns: patterns}
}

// Allowed reports whether the named variable may be read.
func (f *EnvFilter) Allowed(name string) bool {
	for _, pattern := range f.patterns {
		if ok, err := doublestar.Match(pattern, name); err == nil && ok {
			return true
		}
	}
	return false
}

// FilterNames returns the sorted variable names that pass the filter.
// Enumeration advertises only what a read would actually permit.
func (f *EnvFilter) FilterNames(env map[string]string) []string {
	names := make([]string, 0, len(env))
	for name := range env {
		if f.Allowed(name) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
