package indexer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/viant/codevec/matching"
	"github.com/viant/codevec/matching/option"
	"github.com/viant/codevec/schema"
)

type memStore struct {
	mu      sync.Mutex
	records map[string]*schema.EmbeddingRecord
	updates int
}

func newMemStore() *memStore {
	return &memStore{records: map[string]*schema.EmbeddingRecord{}}
}

func (m *memStore) Get(ctx context.Context, path string) (*schema.EmbeddingRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.records[path], nil
}

func (m *memStore) Update(ctx context.Context, path string, record *schema.EmbeddingRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if record.Path != path {
		return errors.New("path mismatch")
	}
	m.records[path] = record
	m.updates++
	return nil
}

func (m *memStore) Delete(ctx context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, path)
	return nil
}

type lengthEmbedder struct {
	calls int
}

func (e *lengthEmbedder) EmbedDocuments(ctx context.Context, docs []string) ([][]float32, error) {
	e.calls++
	result := make([][]float32, len(docs))
	for i, doc := range docs {
		vector := make([]float32, schema.EmbeddingDim)
		vector[0] = float32(len(doc))
		result[i] = vector
	}
	return result, nil
}

func (e *lengthEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestIndexer_Index(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/lib.rs", "pub fn add(a: i32, b: i32) -> i32 {\n    a + b\n}\n")
	writeFile(t, root, "src/main.rs", "mod lib;\nuse crate::lib::add;\n\nfn main() {\n    println!(\"{}\", add(1, 2));\n}")
	writeFile(t, root, "target/debug/build.rs", "fn generated() {}\n")
	writeFile(t, root, "assets/logo.bin", "PNG\x00\x01\x02")

	store := newMemStore()
	embedder := &lengthEmbedder{}
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	idx := New(store, embedder, WithClock(func() time.Time { return now }), WithBatchSize(1))
	ctx := context.Background()

	stats, err := idx.Index(ctx, root)
	if err != nil {
		t.Fatalf("index: %v", err)
	}
	if *stats != (Stats{Files: 3, Indexed: 2, Skipped: 1}) {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if embedder.calls != 2 {
		t.Fatalf("expected one embedder call per batch, got %d", embedder.calls)
	}
	lib := store.records["src/lib.rs"]
	if lib == nil {
		t.Fatalf("src/lib.rs not indexed: %v", store.records)
	}
	if lib.Language != "rust" || lib.LineCount != 3 || len(lib.Embedding) != schema.EmbeddingDim {
		t.Fatalf("unexpected record: %+v", lib)
	}
	if !reflect.DeepEqual(lib.ImportedBy, []string{"src/main.rs"}) {
		t.Fatalf("imported_by = %v", lib.ImportedBy)
	}
	if lib.ContentPreview == nil || *lib.ContentPreview != "pub fn add(a: i32, b: i32) -> i32 {\n    a + b\n}\n" {
		t.Fatalf("preview = %v", lib.ContentPreview)
	}
	if lib.LastAccessed != now.UnixMicro() || lib.LastModified == 0 {
		t.Fatalf("timestamps = %d, %d", lib.LastModified, lib.LastAccessed)
	}
	main := store.records["src/main.rs"]
	if main == nil || main.LineCount != 6 || len(main.ImportedBy) != 0 || main.ImportedBy == nil {
		t.Fatalf("unexpected main record: %+v", main)
	}
	if _, ok := store.records["target/debug/build.rs"]; ok {
		t.Fatalf("excluded directory indexed")
	}

	stats, err = idx.Index(ctx, root)
	if err != nil {
		t.Fatalf("reindex: %v", err)
	}
	if stats.Indexed != 0 || stats.Unchanged != 2 {
		t.Fatalf("expected unchanged files to be skipped: %+v", stats)
	}

	writeFile(t, root, "src/lib.rs", "pub fn add(a: i64, b: i64) -> i64 { a + b }\n")
	stats, err = idx.Index(ctx, root)
	if err != nil {
		t.Fatalf("index changed: %v", err)
	}
	if stats.Indexed != 1 || stats.Unchanged != 1 {
		t.Fatalf("expected only the changed file to be embedded: %+v", stats)
	}
	if store.records["src/lib.rs"].LineCount != 1 {
		t.Fatalf("changed record not stored")
	}

	if err := idx.Remove(ctx, "src/main.rs"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, ok := store.records["src/main.rs"]; ok {
		t.Fatalf("record not removed")
	}
}

func TestIndexer_Matcher(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.go", "package a\n")
	writeFile(t, root, "a_test.go", "package a\n")
	writeFile(t, root, "notes.md", "# notes\n")
	store := newMemStore()
	matcher := matching.New(option.WithInclusionPatterns("*.go"), option.WithExclusionPatterns("*_test.go"))
	stats, err := New(store, &lengthEmbedder{}, WithMatcher(matcher)).Index(context.Background(), root)
	if err != nil {
		t.Fatalf("index: %v", err)
	}
	if stats.Files != 1 || store.records["a.go"] == nil {
		t.Fatalf("expected only a.go, got %+v %v", stats, store.records)
	}
}

type failingEmbedder struct{ lengthEmbedder }

func (f *failingEmbedder) EmbedDocuments(ctx context.Context, docs []string) ([][]float32, error) {
	return nil, errors.New("model unavailable")
}

func TestIndexer_EmbedFailure(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.py", "import os\n")
	store := newMemStore()
	if _, err := New(store, &failingEmbedder{}).Index(context.Background(), root); err == nil {
		t.Fatalf("expected error")
	}
	if store.updates != 0 {
		t.Fatalf("nothing should be stored on failure")
	}
}
