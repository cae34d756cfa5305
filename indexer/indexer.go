// Package indexer walks a source tree, derives EmbeddingRecord metadata for every
// matching file, embeds changed files and upserts them into the embedding store.
package indexer

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/viant/afs/storage"
	"github.com/viant/afs/url"
	"github.com/viant/codevec/embeddings"
	"github.com/viant/codevec/matching"
	"github.com/viant/codevec/schema"
)

// Store is the part of the embedding store used by the indexer.
type Store interface {
	Get(ctx context.Context, path string) (*schema.EmbeddingRecord, error)
	Update(ctx context.Context, path string, record *schema.EmbeddingRecord) error
	Delete(ctx context.Context, path string) error
}

// Stats summarises an indexing run.
type Stats struct {
	Files     int
	Indexed   int
	Unchanged int
	Skipped   int
}

// Indexer indexes source trees.
type Indexer struct {
	store         Store
	embedder      embeddings.Embedder
	matcher       *matching.Manager
	source        Source
	batchSize     int
	previewSize   int
	maxEmbedBytes int
	now           func() time.Time
	logf          func(format string, args ...any)
}

type sourceFile struct {
	path     string
	modified time.Time
	data     []byte
	hash     string
	language string
	imports  []string
}

// New creates an indexer writing to store.
func New(store Store, embedder embeddings.Embedder, opts ...Option) *Indexer {
	i := &Indexer{
		store:         store,
		embedder:      embedder,
		batchSize:     DefaultBatchSize,
		previewSize:   DefaultPreviewSize,
		maxEmbedBytes: DefaultMaxEmbedBytes,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	if i.matcher == nil {
		i.matcher = matching.New()
	}
	if i.source == nil {
		i.source = NewAFSSource(nil)
	}
	return i
}

// Index embeds every new or changed file under root. Record paths are relative to root.
func (i *Indexer) Index(ctx context.Context, root string) (*Stats, error) {
	rootURL, err := normalizeRoot(root)
	if err != nil {
		return nil, err
	}
	stats := &Stats{}
	var objects []storage.Object
	var rels []string
	if err := i.walk(ctx, rootURL, "", &objects, &rels); err != nil {
		return nil, err
	}
	var files []*sourceFile
	for k, object := range objects {
		data, err := i.source.Download(ctx, object)
		if err != nil {
			return nil, fmt.Errorf("failed to download %s: %w", rels[k], err)
		}
		stats.Files++
		if len(data) == 0 || IsBinary(data) {
			stats.Skipped++
			continue
		}
		hash, err := Hash(data)
		if err != nil {
			return nil, fmt.Errorf("failed to hash %s: %w", rels[k], err)
		}
		language := Language(rels[k])
		files = append(files, &sourceFile{
			path:     rels[k],
			modified: object.ModTime(),
			data:     data,
			hash:     hash,
			language: language,
			imports:  Imports(language, data),
		})
	}

	importers := importedBy(files)
	var pending []*schema.EmbeddingRecord
	var texts []string
	for _, file := range files {
		imported := importers[file.path]
		if imported == nil {
			imported = []string{}
		}
		existing, err := i.store.Get(ctx, file.path)
		if err != nil {
			return nil, err
		}
		if existing != nil && existing.Hash == file.hash && slices.Equal(existing.ImportedBy, imported) {
			stats.Unchanged++
			continue
		}
		pending = append(pending, i.newRecord(file, imported))
		texts = append(texts, string(Truncate(file.data, i.maxEmbedBytes)))
	}

	for start := 0; start < len(pending); start += i.batchSize {
		end := min(start+i.batchSize, len(pending))
		vectors, err := i.embedder.EmbedDocuments(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("failed to embed %s: %w", pending[start].Path, err)
		}
		if err := embeddings.Check(vectors, end-start, schema.EmbeddingDim); err != nil {
			return nil, err
		}
		for k, record := range pending[start:end] {
			record.Embedding = vectors[k]
			if err := i.store.Update(ctx, record.Path, record); err != nil {
				return nil, fmt.Errorf("failed to store %s: %w", record.Path, err)
			}
			stats.Indexed++
		}
		i.log("indexer: %s: %d/%d files embedded", root, end, len(pending))
	}
	i.log("indexer: %s: files=%d indexed=%d unchanged=%d skipped=%d", root, stats.Files, stats.Indexed, stats.Unchanged, stats.Skipped)
	return stats, nil
}

// Remove deletes records of the given paths.
func (i *Indexer) Remove(ctx context.Context, paths ...string) error {
	for _, p := range paths {
		if err := i.store.Delete(ctx, p); err != nil {
			return fmt.Errorf("failed to remove %s: %w", p, err)
		}
	}
	return nil
}

func (i *Indexer) walk(ctx context.Context, location, rel string, objects *[]storage.Object, rels *[]string) error {
	list, err := i.source.List(ctx, location)
	if err != nil {
		return err
	}
	base := strings.TrimRight(url.Path(location), "/")
	for _, object := range list {
		if object.IsDir() && strings.TrimRight(url.Path(object.URL()), "/") == base {
			continue
		}
		childRel := path.Join(rel, object.Name())
		if object.IsDir() {
			if i.matcher.SkipDir("/" + childRel) {
				continue
			}
			if err := i.walk(ctx, url.Join(location, object.Name()), childRel, objects, rels); err != nil {
				return err
			}
			continue
		}
		if i.matcher.IsExcluded("/"+childRel, int(object.Size())) {
			continue
		}
		*objects = append(*objects, object)
		*rels = append(*rels, childRel)
	}
	return nil
}

func (i *Indexer) newRecord(file *sourceFile, imported []string) *schema.EmbeddingRecord {
	return &schema.EmbeddingRecord{
		Path:           file.path,
		Hash:           file.hash,
		Language:       file.language,
		LastModified:   file.modified.UnixMicro(),
		LastAccessed:   i.now().UnixMicro(),
		LineCount:      LineCount(file.data),
		ImportedBy:     imported,
		ContentPreview: Preview(file.data, i.previewSize),
	}
}

func (i *Indexer) log(format string, args ...any) {
	if i.logf != nil {
		i.logf(format, args...)
	}
}

func normalizeRoot(location string) (string, error) {
	norm := location
	if url.Scheme(norm, "") == "" && url.IsRelative(norm) {
		var err error
		if norm, err = filepath.Abs(norm); err != nil {
			return "", fmt.Errorf("failed to get absolute path for %s: %w", location, err)
		}
	}
	if url.Scheme(norm, "") == "" {
		norm = url.ToFileURL(norm)
	}
	return norm, nil
}
