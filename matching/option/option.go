// Package option configures which paths matching.Manager accepts.
package option

import (
	"bufio"
	"io"
	"strings"
)

// DefaultDirectories are dependency, build output and tooling directories.
var DefaultDirectories = []string{
	"node_modules", ".git", ".github", ".vscode", ".idea", ".codevec",
	"dist", "build", "target", "bin", "obj", ".next",
	"__pycache__", ".pytest_cache", "vendor", "coverage",
}

// DefaultFiles are generated, binary, lock and store files.
var DefaultFiles = []string{
	".DS_Store", ".env", "package-lock.json", "yarn.lock",
	"*.min.js", "*.min.css", "*.map", "*.wasm", "*.pb.go", "*.lock",
	"*.log", "*.swp", "*.bak", "*.tmp",
	"*.dll", "*.exe", "*.so", "*.dylib", "*.onnx",
	"*.sqlite", "*.sqlite-wal", "*.sqlite-shm",
}

// Options holds path rules.
type Options struct {
	// Exclusions are gitignore style patterns; nil selects DefaultExclusions.
	Exclusions []string
	// Inclusions restrict indexing to matching files; empty includes everything.
	Inclusions []string
	// MaxFileSize skips larger files when positive.
	MaxFileSize int
}

// Option modifies Options.
type Option func(*Options)

// NewOptions applies opts over the defaults.
func NewOptions(opts ...Option) *Options {
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}
	if options.Exclusions == nil {
		options.Exclusions = DefaultExclusions()
	}
	return options
}

// Options converts the populated fields back into Option values.
func (o *Options) Options() []Option {
	var result []Option
	if o.MaxFileSize > 0 {
		result = append(result, WithMaxIndexableSize(o.MaxFileSize))
	}
	if o.Exclusions != nil {
		result = append(result, WithExclusionPatterns(o.Exclusions...))
	}
	if o.Inclusions != nil {
		result = append(result, WithInclusionPatterns(o.Inclusions...))
	}
	return result
}

// DefaultExclusions returns directory rules followed by file rules.
func DefaultExclusions() []string {
	result := make([]string, 0, len(DefaultDirectories)+len(DefaultFiles))
	for _, dir := range DefaultDirectories {
		result = append(result, dir+"/")
	}
	return append(result, DefaultFiles...)
}

// WithExclusionPatterns adds exclusion patterns; the defaults no longer apply.
func WithExclusionPatterns(patterns ...string) Option {
	return func(o *Options) {
		o.Exclusions = append(o.Exclusions, patterns...)
	}
}

// WithDefaultExclusionPatterns adds DefaultExclusions, e.g. next to custom patterns.
func WithDefaultExclusionPatterns() Option {
	return func(o *Options) {
		o.Exclusions = append(o.Exclusions, DefaultExclusions()...)
	}
}

// WithInclusionPatterns adds inclusion patterns.
func WithInclusionPatterns(patterns ...string) Option {
	return func(o *Options) {
		o.Inclusions = append(o.Inclusions, patterns...)
	}
}

// WithMaxIndexableSize sets the maximum file size in bytes.
func WithMaxIndexableSize(size int) Option {
	return func(o *Options) {
		o.MaxFileSize = size
	}
}

// WithGitignore adds the patterns of a .gitignore file.
func WithGitignore(reader io.Reader) Option {
	return func(o *Options) {
		if patterns := ParseGitignore(reader); len(patterns) > 0 {
			o.Exclusions = append(o.Exclusions, patterns...)
		}
	}
}

// ParseGitignore returns the patterns of a .gitignore file, skipping blank lines and comments.
// A leading backslash escapes # and !.
func ParseGitignore(reader io.Reader) []string {
	var patterns []string
	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), " \t\r")
		line = strings.TrimLeft(line, " \t")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, `\#`) {
			line = line[1:]
		}
		patterns = append(patterns, line)
	}
	return patterns
}
