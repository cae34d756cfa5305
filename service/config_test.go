package service

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/viant/codevec/matching"
)

func TestLoadConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	path := filepath.Join(t.TempDir(), "codevec.yaml")
	content := `store:
  dsn: ~/.codevec/index.sqlite
  metric: cosine
  writerLock: true
embedder:
  kind: onnx
  modelPath: ~/models/model.onnx
  tokenizerPath: ~/models/tokenizer.json
  workers: 2
  cache:
    size: 1000
indexer:
  include: ["*.rs"]
  exclude: ["target/"]
  max_size_bytes: 1024
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Store.DSN != filepath.Join(home, ".codevec/index.sqlite") {
		t.Fatalf("dsn = %q", cfg.Store.DSN)
	}
	if cfg.Embedder.ModelPath != filepath.Join(home, "models/model.onnx") || cfg.Embedder.Workers != 2 || cfg.Embedder.Cache.Size != 1000 {
		t.Fatalf("embedder = %+v", cfg.Embedder)
	}
	if !cfg.Store.WriterLock || cfg.Store.Metric != "cosine" {
		t.Fatalf("store = %+v", cfg.Store)
	}
	m := matching.New(cfg.Indexer.MatchingOptions()...)
	if m.IsExcluded("src/lib.rs", 10) {
		t.Fatalf("src/lib.rs should be included")
	}
	if !m.IsExcluded("src/lib.py", 10) || !m.IsExcluded("src/big.rs", 2048) || !m.SkipDir("target") {
		t.Fatalf("unexpected matching")
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("store: ["), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestExpandUserPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	tests := []struct {
		in     string
		expect string
		err    bool
	}{
		{in: "", expect: ""},
		{in: "/abs/path", expect: "/abs/path"},
		{in: "~", expect: home},
		{in: "~/x/y", expect: filepath.Join(home, "x/y")},
		{in: "~bob/x", err: true},
	}
	for _, tc := range tests {
		got, err := expandUserPath(tc.in)
		if tc.err {
			if err == nil {
				t.Errorf("expandUserPath(%q) expected error", tc.in)
			}
			continue
		}
		if err != nil || got != tc.expect {
			t.Errorf("expandUserPath(%q) = %q, %v", tc.in, got, err)
		}
	}
	if got, _ := expandStoreDSN("file:~/db.sqlite"); got != "file:"+filepath.ToSlash(filepath.Join(home, "db.sqlite")) {
		t.Errorf("expandStoreDSN = %q", got)
	}
}
