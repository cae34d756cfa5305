package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/viant/codevec/matching/option"
	"github.com/viant/scy/cred/secret"
	"gopkg.in/yaml.v3"
)

// Config defines the store, embedder and indexer settings.
type Config struct {
	Store    StoreConfig    `yaml:"store"`
	Embedder EmbedderConfig `yaml:"embedder"`
	Indexer  IndexerConfig  `yaml:"indexer"`
}

// StoreConfig defines embedding store settings.
type StoreConfig struct {
	DSN        string `yaml:"dsn"`
	Secret     string `yaml:"secret,omitempty"`
	Table      string `yaml:"table"`
	Metric     string `yaml:"metric"`
	WriterLock bool   `yaml:"writerLock"`
}

// EmbedderConfig defines the embedding generator.
type EmbedderConfig struct {
	// Kind is one of onnx, ollama, openai, vertexai or simple.
	Kind          string      `yaml:"kind"`
	Model         string      `yaml:"model"`
	ModelPath     string      `yaml:"modelPath"`
	TokenizerPath string      `yaml:"tokenizerPath"`
	TokenizerCopy string      `yaml:"tokenizerCopy"`
	SharedLibrary string      `yaml:"sharedLibrary"`
	Workers       int         `yaml:"workers"`
	BaseURL       string      `yaml:"baseURL"`
	APIKey        string      `yaml:"apiKey,omitempty"`
	Project       string      `yaml:"project"`
	Location      string      `yaml:"location"`
	Dimensions    int         `yaml:"dimensions"`
	Cache         CacheConfig `yaml:"cache"`
}

// CacheConfig defines the in-memory embedding cache and its optional snapshot.
type CacheConfig struct {
	Size     int    `yaml:"size"`
	Snapshot string `yaml:"snapshot"`
}

// IndexerConfig defines which files get indexed.
type IndexerConfig struct {
	Include      []string `yaml:"include"`
	Exclude      []string `yaml:"exclude"`
	MaxSizeBytes int      `yaml:"max_size_bytes"`
	BatchSize    int      `yaml:"batch"`
	PreviewSize  int      `yaml:"previewSize"`
}

// MatchingOptions returns matcher options for the configured patterns.
func (c *IndexerConfig) MatchingOptions() []option.Option {
	options := option.Options{MaxFileSize: c.MaxSizeBytes}
	if len(c.Include) > 0 {
		options.Inclusions = c.Include
	}
	if len(c.Exclude) > 0 {
		options.Exclusions = c.Exclude
	}
	return options.Options()
}

// LoadConfig reads a YAML config, expanding ~ paths and store secrets.
func LoadConfig(path string) (*Config, error) {
	path, err := expandUserPath(path)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	if cfg.Store.DSN, err = expandStoreDSN(cfg.Store.DSN); err != nil {
		return nil, err
	}
	if cfg.Store.Secret != "" {
		if cfg.Store.DSN, err = ExpandDSNWithSecret(context.Background(), cfg.Store.DSN, cfg.Store.Secret); err != nil {
			return nil, err
		}
	}
	for _, p := range []*string{&cfg.Embedder.ModelPath, &cfg.Embedder.TokenizerPath, &cfg.Embedder.TokenizerCopy, &cfg.Embedder.SharedLibrary, &cfg.Embedder.Cache.Snapshot} {
		if *p, err = expandUserPath(*p); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

func expandUserPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" || trimmed[0] != '~' {
		return path, nil
	}
	if trimmed != "~" && !strings.HasPrefix(trimmed, "~/") {
		return "", fmt.Errorf("config: unsupported ~user path: %s", path)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, strings.TrimPrefix(trimmed, "~")), nil
}

func expandStoreDSN(dsn string) (string, error) {
	if strings.HasPrefix(dsn, "file:~") {
		expanded, err := expandUserPath(strings.TrimPrefix(dsn, "file:"))
		if err != nil {
			return "", err
		}
		return "file:" + filepath.ToSlash(expanded), nil
	}
	return expandUserPath(dsn)
}

// ExpandDSNWithSecret loads a secret and expands placeholders in the DSN.
func ExpandDSNWithSecret(ctx context.Context, dsn, secretRef string) (string, error) {
	secretRef = strings.TrimSpace(secretRef)
	if secretRef == "" {
		return dsn, nil
	}
	if strings.TrimSpace(dsn) == "" {
		return "", fmt.Errorf("secret %q provided but dsn is empty", secretRef)
	}
	svc := secret.New()
	sec, err := svc.Lookup(ctx, secret.Resource(secretRef))
	if err != nil {
		return "", err
	}
	return sec.Expand(dsn), nil
}
