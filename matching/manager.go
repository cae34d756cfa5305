// Package matching decides which source files are indexed using gitignore style include and exclude patterns.
package matching

import (
	"strings"

	"github.com/viant/afs/url"
	"github.com/viant/codevec/matching/option"
)

// Manager handles file/directory inclusion and exclusion rules
type Manager struct {
	options    *option.Options
	inclusions []*rule
	exclusions []*rule
	negations  bool
}

// New creates a new manager with the given options
func New(opts ...option.Option) *Manager {
	options := option.NewOptions(opts...)
	manager := &Manager{options: options}
	for _, pattern := range options.Inclusions {
		if r, ok := compile(pattern); ok {
			manager.inclusions = append(manager.inclusions, r)
		}
	}
	for _, pattern := range options.Exclusions {
		if r, ok := compile(pattern); ok {
			manager.exclusions = append(manager.exclusions, r)
			manager.negations = manager.negations || r.negate
		}
	}
	return manager
}

// IsExcluded checks if a file should be skipped. The last matching exclusion pattern wins;
// a pattern starting with ! re-includes the file.
func (m *Manager) IsExcluded(location string, size int) bool {
	if m.options.MaxFileSize > 0 && size > m.options.MaxFileSize {
		return true
	}
	segments := splitPath(normalize(location))
	if len(segments) == 0 {
		return true
	}
	if len(m.inclusions) > 0 && !m.isIncluded(segments) {
		return true
	}
	excluded := false
	for _, r := range m.exclusions {
		if r.match(segments, false) {
			excluded = !r.negate
		}
	}
	return excluded
}

// SkipDir reports whether a whole directory can be skipped without listing it.
func (m *Manager) SkipDir(location string) bool {
	if m.negations {
		return false
	}
	segments := splitPath(normalize(location))
	if len(segments) == 0 {
		return false
	}
	for _, r := range m.exclusions {
		if r.match(segments, true) {
			return true
		}
	}
	return false
}

func (m *Manager) isIncluded(segments []string) bool {
	for _, r := range m.inclusions {
		if r.match(segments, false) {
			return true
		}
	}
	return false
}

func normalize(location string) string {
	if strings.Contains(location, "://") {
		return url.Path(location)
	}
	return location
}
