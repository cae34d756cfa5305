package indexer

import (
	"bytes"
	"math"
	"path"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// DefaultPreviewSize is the maximum content preview length in bytes.
const DefaultPreviewSize = 512

var languages = map[string]string{
	".rs":    "rust",
	".go":    "go",
	".py":    "python",
	".js":    "javascript",
	".jsx":   "javascript",
	".mjs":   "javascript",
	".ts":    "typescript",
	".tsx":   "typescript",
	".java":  "java",
	".kt":    "kotlin",
	".c":     "c",
	".h":     "c",
	".cc":    "cpp",
	".cpp":   "cpp",
	".hpp":   "cpp",
	".cs":    "csharp",
	".rb":    "ruby",
	".php":   "php",
	".swift": "swift",
	".scala": "scala",
	".sh":    "shell",
	".sql":   "sql",
	".md":    "markdown",
	".yaml":  "yaml",
	".yml":   "yaml",
	".toml":  "toml",
	".json":  "json",
}

// Language derives the language tag from the file extension.
func Language(name string) string {
	if lang, ok := languages[strings.ToLower(path.Ext(name))]; ok {
		return lang
	}
	return "text"
}

// LineCount counts lines, saturating at the int16 maximum.
func LineCount(data []byte) int16 {
	if len(data) == 0 {
		return 0
	}
	count := bytes.Count(data, []byte{'\n'})
	if data[len(data)-1] != '\n' {
		count++
	}
	if count > math.MaxInt16 {
		return math.MaxInt16
	}
	return int16(count)
}

// IsBinary reports whether data looks like a binary file.
func IsBinary(data []byte) bool {
	sample := data
	if len(sample) > 8000 {
		sample = sample[:8000]
	}
	return bytes.IndexByte(sample, 0) >= 0
}

// Preview returns up to size leading bytes of data cut at a UTF-8 boundary; nil for empty or binary content.
func Preview(data []byte, size int) *string {
	if len(data) == 0 || IsBinary(data) || size <= 0 {
		return nil
	}
	text := string(Truncate(data, size))
	return &text
}

// Truncate cuts data to at most size bytes without splitting a UTF-8 sequence.
func Truncate(data []byte, size int) []byte {
	if len(data) <= size {
		return data
	}
	cut := size
	for cut > 0 && !utf8.RuneStart(data[cut]) {
		cut--
	}
	return data[:cut]
}

var importPatterns = map[string][]*regexp.Regexp{
	"rust": {
		regexp.MustCompile(`(?m)^\s*(?:pub(?:\([^)]*\))?\s+)?mod\s+(\w+)\s*;`),
		regexp.MustCompile(`(?m)\buse\s+(?:crate|super|self)::(\w+)`),
	},
	"go": {
		regexp.MustCompile(`(?m)^\s*(?:import\s+)?(?:\w+\s+)?"([^"]+)"\s*$`),
	},
	"python": {
		regexp.MustCompile(`(?m)^\s*from\s+([\w.]+)\s+import\b`),
		regexp.MustCompile(`(?m)^\s*import\s+([\w.]+)`),
	},
	"javascript": {
		regexp.MustCompile(`\bfrom\s+['"]([^'"]+)['"]`),
		regexp.MustCompile(`\brequire\(\s*['"]([^'"]+)['"]\s*\)`),
	},
}

// Imports returns the module names referenced by a source file.
func Imports(language string, data []byte) []string {
	if language == "typescript" {
		language = "javascript"
	}
	var result []string
	for _, pattern := range importPatterns[language] {
		for _, match := range pattern.FindAllSubmatch(data, -1) {
			if name := moduleName(language, string(match[1])); name != "" {
				result = append(result, name)
			}
		}
	}
	return result
}

func moduleName(language, reference string) string {
	switch language {
	case "python":
		if i := strings.LastIndex(reference, "."); i >= 0 {
			reference = reference[i+1:]
		}
	case "go", "javascript":
		reference = path.Base(reference)
		reference = strings.TrimSuffix(reference, path.Ext(reference))
	}
	return reference
}

// moduleKeys returns the names other files use to reference the file at rel.
func moduleKeys(language, rel string) []string {
	base := path.Base(rel)
	stem := strings.TrimSuffix(base, path.Ext(base))
	switch language {
	case "go":
		if dir := path.Dir(rel); dir != "." {
			return []string{path.Base(dir)}
		}
		return nil
	case "rust":
		if stem == "mod" {
			if dir := path.Dir(rel); dir != "." {
				return []string{path.Base(dir)}
			}
			return nil
		}
	case "python":
		if stem == "__init__" {
			if dir := path.Dir(rel); dir != "." {
				return []string{path.Base(dir)}
			}
			return nil
		}
	case "javascript", "typescript":
		if stem == "index" {
			if dir := path.Dir(rel); dir != "." {
				return []string{path.Base(dir)}
			}
		}
	}
	return []string{stem}
}

// importedBy maps each file to the sorted files importing it.
func importedBy(files []*sourceFile) map[string][]string {
	byKey := map[string][]*sourceFile{}
	for _, file := range files {
		for _, key := range moduleKeys(file.language, file.path) {
			byKey[file.language+":"+key] = append(byKey[file.language+":"+key], file)
		}
	}
	result := map[string][]string{}
	for _, importer := range files {
		language := importer.language
		if language == "typescript" {
			language = "javascript"
		}
		seen := map[string]bool{}
		for _, name := range importer.imports {
			for _, lang := range sameFamily(language) {
				for _, target := range byKey[lang+":"+name] {
					if target.path == importer.path || seen[target.path] {
						continue
					}
					seen[target.path] = true
					result[target.path] = append(result[target.path], importer.path)
				}
			}
		}
	}
	for key := range result {
		sort.Strings(result[key])
	}
	return result
}

func sameFamily(language string) []string {
	if language == "javascript" {
		return []string{"javascript", "typescript"}
	}
	return []string{language}
}
