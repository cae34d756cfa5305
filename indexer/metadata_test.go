package indexer

import (
	"math"
	"reflect"
	"strings"
	"testing"
)

func TestLanguage(t *testing.T) {
	tests := map[string]string{
		"src/main.rs":  "rust",
		"pkg/store.go": "go",
		"app/VIEW.TSX": "typescript",
		"Makefile":     "text",
		"notes.txt":    "text",
	}
	for name, want := range tests {
		if got := Language(name); got != want {
			t.Errorf("Language(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestLineCount(t *testing.T) {
	tests := []struct {
		data string
		want int16
	}{
		{data: "", want: 0},
		{data: "one", want: 1},
		{data: "one\n", want: 1},
		{data: "one\ntwo", want: 2},
		{data: strings.Repeat("\n", 40000), want: math.MaxInt16},
	}
	for _, tc := range tests {
		if got := LineCount([]byte(tc.data)); got != tc.want {
			t.Errorf("LineCount(%d bytes) = %d, want %d", len(tc.data), got, tc.want)
		}
	}
}

func TestPreview(t *testing.T) {
	if Preview(nil, 10) != nil {
		t.Fatalf("empty content should have no preview")
	}
	if Preview([]byte("a\x00b"), 10) != nil {
		t.Fatalf("binary content should have no preview")
	}
	if got := Preview([]byte("héllo"), 2); *got != "h" {
		t.Fatalf("preview split a rune: %q", *got)
	}
	if got := Preview([]byte("short"), 512); *got != "short" {
		t.Fatalf("preview = %q", *got)
	}
	if Preview([]byte("text"), 0) != nil {
		t.Fatalf("disabled preview should be nil")
	}
}

func TestImports(t *testing.T) {
	tests := []struct {
		language string
		source   string
		want     []string
	}{
		{language: "rust", source: "mod store;\npub mod schema;\nuse crate::embedder::Embedder;\nuse std::io;", want: []string{"store", "schema", "embedder"}},
		{language: "go", source: "import (\n\t\"fmt\"\n\tv \"github.com/viant/codevec/vectordb\"\n)\n", want: []string{"fmt", "vectordb"}},
		{language: "python", source: "from app.store import Store\nimport numpy\n", want: []string{"store", "numpy"}},
		{language: "typescript", source: "import { x } from './util/helpers.ts'\nconst y = require('../config')\n", want: []string{"helpers", "config"}},
		{language: "text", source: "mod store;", want: nil},
	}
	for _, tc := range tests {
		if got := Imports(tc.language, []byte(tc.source)); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("Imports(%s) = %v, want %v", tc.language, got, tc.want)
		}
	}
}

func TestImportedBy(t *testing.T) {
	files := []*sourceFile{
		{path: "src/main.rs", language: "rust", imports: []string{"store", "schema"}},
		{path: "src/cli.rs", language: "rust", imports: []string{"store"}},
		{path: "src/store.rs", language: "rust", imports: []string{"schema"}},
		{path: "src/schema/mod.rs", language: "rust"},
		{path: "tools/store.py", language: "python"},
	}
	got := importedBy(files)
	want := map[string][]string{
		"src/store.rs":      {"src/cli.rs", "src/main.rs"},
		"src/schema/mod.rs": {"src/main.rs", "src/store.rs"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("importedBy = %v, want %v", got, want)
	}
}

func TestHash(t *testing.T) {
	a, err := Hash([]byte("fn main() {}"))
	if err != nil {
		t.Fatal(err)
	}
	b, _ := Hash([]byte("fn main() {}"))
	c, _ := Hash([]byte("fn main() { }"))
	if a != b || a == c || a == "" {
		t.Fatalf("unexpected hashes %q %q %q", a, b, c)
	}
}
