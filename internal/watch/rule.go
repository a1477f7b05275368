package watch

import (
	"github.com/bmatcuk/doublestar/v4"
)

// Rule maps a set of globs to the leaf task re-run when a matching file
// changes. OnChange runs after the task succeeded, or straight away when
// Task is empty.
type Rule struct {
	Name     string
	Patterns []string
	Task     string
	OnChange func(changed []string)
}

// Matches reports whether the slash-separated path, relative to the
// project root, matches any of the rule's patterns.
func (r Rule) Matches(rel string) bool {
	for _, pattern := range r.Patterns {
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			return true
		}
	}
	return false
}

// baseDirs returns the static directory prefix of every pattern
func (r Rule) baseDirs() []string {
	dirs := make([]string, 0, len(r.Patterns))
	for _, pattern := range r.Patterns {
		base, _ := doublestar.SplitPattern(pattern)
		dirs = append(dirs, base)
	}
	return dirs
}
