package matching

import (
	"path"
	"strings"
)

// rule is a compiled gitignore style pattern.
type rule struct {
	segments []string
	negate   bool
	dirOnly  bool
}

func compile(pattern string) (*rule, bool) {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" || strings.HasPrefix(pattern, "#") {
		return nil, false
	}
	r := &rule{}
	if strings.HasPrefix(pattern, "!") {
		r.negate = true
		pattern = pattern[1:]
	}
	if strings.HasSuffix(pattern, "/") {
		r.dirOnly = true
		pattern = strings.TrimRight(pattern, "/")
	}
	anchored := strings.HasPrefix(pattern, "/")
	pattern = strings.TrimLeft(pattern, "/")
	if pattern == "" {
		return nil, false
	}
	if !anchored && strings.Contains(pattern, "/") && !strings.HasPrefix(pattern, "**/") {
		anchored = true
	}
	r.segments = strings.Split(pattern, "/")
	if !anchored && r.segments[0] != "**" {
		r.segments = append([]string{"**"}, r.segments...)
	}
	return r, true
}

// match reports whether the rule matches the file itself or one of its parent directories.
func (r *rule) match(segments []string, isDir bool) bool {
	limit := len(segments)
	if r.dirOnly && !isDir {
		limit--
	}
	for n := 1; n <= limit; n++ {
		if matchSegments(r.segments, segments[:n]) {
			return true
		}
	}
	return false
}

func matchSegments(pattern, segments []string) bool {
	if len(pattern) == 0 {
		return len(segments) == 0
	}
	if pattern[0] == "**" {
		for i := 0; i <= len(segments); i++ {
			if matchSegments(pattern[1:], segments[i:]) {
				return true
			}
		}
		return false
	}
	if len(segments) == 0 {
		return false
	}
	if ok, _ := path.Match(pattern[0], segments[0]); !ok {
		return false
	}
	return matchSegments(pattern[1:], segments[1:])
}

func splitPath(location string) []string {
	location = strings.ReplaceAll(location, "\\", "/")
	location = strings.Trim(location, "/")
	if location == "" {
		return nil
	}
	parts := strings.Split(location, "/")
	result := parts[:0]
	for _, part := range parts {
		if part != "" && part != "." {
			result = append(result, part)
		}
	}
	return result
}
