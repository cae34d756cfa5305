// Package vectordb implements the embedding store: CRUD and similarity search
// over EmbeddingRecord rows kept in a columnar engine table keyed by path.
package vectordb

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/viant/codevec/schema"
	"github.com/viant/codevec/vectordb/columnar"
	"github.com/viant/codevec/vectordb/engine"
	"github.com/viant/codevec/vectordb/lock"
)

// Match is a similarity search result.
type Match struct {
	Record   *schema.EmbeddingRecord
	Distance float64
}

// Store persists embedding records in an engine table.
type Store struct {
	table      engine.Table
	conn       engine.Connection
	writerLock *lock.FileLock
	mem        memory.Allocator
	metric     engine.Metric
	logf       func(format string, args ...any)
	keys       *keyLocks
	closeOnce  sync.Once
	closeErr   error
}

// New returns a store over an already opened table. The table schema must match the embeddings layout.
func New(table engine.Table, opts ...Option) (*Store, error) {
	if table == nil {
		return nil, fmt.Errorf("vectordb: table required")
	}
	if !table.Schema().Equal(columnar.Schema()) {
		return nil, fmt.Errorf("%w: table %s has %v", ErrSchemaMismatch, table.Name(), table.Schema())
	}
	return newStore(table, newOptions(opts)), nil
}

func newStore(table engine.Table, o *options) *Store {
	return &Store{
		table:  table,
		mem:    o.mem,
		metric: o.metric,
		logf:   o.logf,
		keys:   newKeyLocks(),
	}
}

// Insert appends records. Existing rows with the same path are kept.
// Records are normalized in place, see schema.EmbeddingRecord.Normalize.
func (s *Store) Insert(ctx context.Context, records []*schema.EmbeddingRecord) error {
	if len(records) == 0 {
		return nil
	}
	for _, record := range records {
		record.Normalize()
	}
	rec, err := columnar.Encode(s.mem, records)
	if err != nil {
		return err
	}
	defer rec.Release()
	paths := make([]string, len(records))
	for i, record := range records {
		paths[i] = record.Path
	}
	unlock := s.keys.lock(paths...)
	defer unlock()
	return s.table.Add(ctx, rec)
}

// Delete removes every row stored under path.
func (s *Store) Delete(ctx context.Context, path string) error {
	unlock := s.keys.lock(path)
	defer unlock()
	return s.table.Delete(ctx, pathFilter(path))
}

// Update replaces rows stored under path with record.
// The replacement is atomic when the engine table implements engine.Replacer.
func (s *Store) Update(ctx context.Context, path string, record *schema.EmbeddingRecord) error {
	if record == nil {
		return fmt.Errorf("vectordb: update %s: nil record", path)
	}
	if record.Path != path {
		return fmt.Errorf("%w: key %q, record %q", ErrPathMismatch, path, record.Path)
	}
	record.Normalize()
	rec, err := columnar.Encode(s.mem, []*schema.EmbeddingRecord{record})
	if err != nil {
		return err
	}
	defer rec.Release()
	unlock := s.keys.lock(path)
	defer unlock()
	if replacer, ok := s.table.(engine.Replacer); ok {
		return replacer.Replace(ctx, pathFilter(path), rec)
	}
	if err := s.table.Delete(ctx, pathFilter(path)); err != nil {
		logf(s.logf, "vectordb: update %s: delete failed, inserting anyway: %v", path, err)
	}
	return s.table.Add(ctx, rec)
}

// Get returns the record stored under path, or nil when absent.
func (s *Store) Get(ctx context.Context, path string) (*schema.EmbeddingRecord, error) {
	reader, err := s.table.Query(ctx, engine.Query{Filter: pathFilter(path), Limit: 1})
	if err != nil {
		return nil, err
	}
	matches, err := drain(reader)
	if err != nil || len(matches) == 0 {
		return nil, err
	}
	return matches[0].Record, nil
}

// QuerySimilar returns up to limit records closest to vector, most similar first.
func (s *Store) QuerySimilar(ctx context.Context, vector []float32, limit int) ([]*schema.EmbeddingRecord, error) {
	matches, err := s.Nearest(ctx, vector, limit)
	return records(matches), err
}

// QuerySimilarToFile returns up to limit records closest to the embedding stored under path,
// excluding path itself.
func (s *Store) QuerySimilarToFile(ctx context.Context, path string, limit int) ([]*schema.EmbeddingRecord, error) {
	matches, err := s.NearestToFile(ctx, path, limit)
	return records(matches), err
}

// Nearest returns up to limit matches closest to vector together with their distances.
func (s *Store) Nearest(ctx context.Context, vector []float32, limit int) ([]*Match, error) {
	if len(vector) != schema.EmbeddingDim {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrInvalidDimension, schema.EmbeddingDim, len(vector))
	}
	if limit < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, limit)
	}
	if limit == 0 {
		return []*Match{}, nil
	}
	return s.search(ctx, vector, limit)
}

// NearestToFile returns up to limit matches closest to the embedding stored under path, excluding path.
// Candidates are fetched in growing rounds until limit neighbours remain or the table is exhausted.
func (s *Store) NearestToFile(ctx context.Context, path string, limit int) ([]*Match, error) {
	if limit < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, limit)
	}
	source, err := s.Get(ctx, path)
	if err != nil {
		return nil, err
	}
	if source == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	result := []*Match{}
	if limit == 0 {
		return result, nil
	}
	for fetch := saturatedAdd(limit, 1); ; fetch = saturatedAdd(fetch, fetch) {
		candidates, err := s.Nearest(ctx, source.Embedding, fetch)
		if err != nil {
			return nil, err
		}
		result = result[:0]
		for _, candidate := range candidates {
			if candidate.Record.Path != path {
				result = append(result, candidate)
			}
		}
		if len(result) >= limit {
			return result[:limit], nil
		}
		if len(candidates) < fetch || fetch == math.MaxInt {
			return result, nil
		}
		logf(s.logf, "vectordb: %s: %d of %d neighbours after excluding duplicates, fetching %d", path, len(result), limit, saturatedAdd(fetch, fetch))
	}
}

// saturatedAdd adds two non-negative ints, clamping at math.MaxInt.
func saturatedAdd(a, b int) int {
	if a > math.MaxInt-b {
		return math.MaxInt
	}
	return a + b
}

// Count returns the number of stored rows.
func (s *Store) Count(ctx context.Context) (int64, error) {
	return s.table.Count(ctx, "")
}

// Close releases the engine connection and writer lock opened by Connect.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		if s.conn != nil {
			s.closeErr = s.conn.Close()
		}
		if err := s.writerLock.Release(); err != nil && s.closeErr == nil {
			s.closeErr = err
		}
	})
	return s.closeErr
}

func (s *Store) search(ctx context.Context, vector []float32, limit int) ([]*Match, error) {
	reader, err := s.table.Search(ctx, vector, engine.Query{Limit: limit, Metric: s.metric})
	if err != nil {
		return nil, err
	}
	return drain(reader)
}

// drain decodes every batch streamed by the reader and releases it.
func drain(reader array.RecordReader) ([]*Match, error) {
	defer reader.Release()
	var result []*Match
	for reader.Next() {
		rec := reader.Record()
		distances := distanceColumn(rec)
		for row := 0; row < int(rec.NumRows()); row++ {
			record, err := columnar.Decode(rec, row)
			if err != nil {
				return nil, err
			}
			match := &Match{Record: record}
			if distances != nil {
				match.Distance = distances.Value(row)
			}
			result = append(result, match)
		}
	}
	if err := reader.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func distanceColumn(rec arrow.Record) *array.Float64 {
	indices := rec.Schema().FieldIndices(engine.DistanceColumn)
	if len(indices) == 0 {
		return nil
	}
	values, _ := rec.Column(indices[0]).(*array.Float64)
	return values
}

func records(matches []*Match) []*schema.EmbeddingRecord {
	if matches == nil {
		return nil
	}
	result := make([]*schema.EmbeddingRecord, len(matches))
	for i, match := range matches {
		result[i] = match.Record
	}
	return result
}

// pathFilter matches path literally; single quotes are doubled inside the string literal.
func pathFilter(path string) string {
	return schema.ColumnPath + " = '" + strings.ReplaceAll(path, "'", "''") + "'"
}
