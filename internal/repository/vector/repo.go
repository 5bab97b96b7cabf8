// Package vector persists embedded chunks and serves similarity search
// over them. One index instance has a fixed dimensionality and distance
// metric, recorded in a metadata hash at build time; reopening with a
// different embedder configuration is refused rather than silently accepted.
package vector

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/corvid-ai/corvid/internal/db"
	"github.com/corvid-ai/corvid/internal/domain"
)

const indexName = "corvid-chunks"

// store is the consumer interface for chunk storage (ISP).
type store interface {
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
}

// Repo is the vector index over embedded chunks.
//
// Reads are safe concurrently; mutation takes the write lock so a
// searcher never observes a partially written batch.
type Repo struct {
	store      store
	keyPrefix  string
	dimensions int
	metric     domain.DistanceMetric

	mu    sync.RWMutex
	ready bool // meta verified or written this process lifetime
}

// New creates a vector index repository. The configured dimensionality and
// metric are enforced against stored metadata on Open/Ensure.
func New(s store, keyPrefix string, dimensions int, metric domain.DistanceMetric) *Repo {
	if metric == "" {
		metric = domain.MetricCosine
	}
	return &Repo{store: s, keyPrefix: keyPrefix, dimensions: dimensions, metric: metric}
}

func (r *Repo) metaKey() string  { return r.keyPrefix + "index:meta" }
func (r *Repo) chunkNS() string  { return r.keyPrefix + "chunk:" }
func (r *Repo) chunkKey(c domain.Chunk) string { return r.chunkNS() + c.Key() }

// Ensure creates the FT index and metadata if absent, or verifies them
// against the configured embedder when they already exist.
func (r *Repo) Ensure(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	meta, err := r.store.HGetAll(ctx, r.metaKey())
	if err != nil {
		return fmt.Errorf("read index meta: %w", err)
	}
	if len(meta) > 0 {
		if err := r.verifyMeta(meta); err != nil {
			return err
		}
		r.ready = true
		return nil
	}

	def := &db.IndexDefinition{
		Name:     indexName,
		Prefixes: []string{r.chunkNS()},
		Fields: []db.IndexField{
			{Name: "corpus", Type: db.IndexFieldTag},
			{Name: "chunk_index", Type: db.IndexFieldNumeric},
			{Name: "vector", Type: db.IndexFieldVector, VectorDim: r.dimensions, VectorDistance: db.DistanceMetric(r.metric)},
		},
	}
	if err := r.store.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("create index: %w", err)
	}

	fields := map[string]string{
		"dimensions": strconv.Itoa(r.dimensions),
		"metric":     string(r.metric),
	}
	if err := r.store.HSetMulti(ctx, []db.HashSetItem{{Key: r.metaKey(), Fields: fields}}); err != nil {
		return fmt.Errorf("write index meta: %w", err)
	}
	r.ready = true
	return nil
}

// Open verifies a previously built index without creating one.
// Returns domain.ErrIndexUnavailable when the index was never built and
// domain.ErrIndexCorrupt when stored metadata disagrees with the
// configured embedder.
func (r *Repo) Open(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	meta, err := r.store.HGetAll(ctx, r.metaKey())
	if err != nil {
		return fmt.Errorf("read index meta: %w", err)
	}
	if len(meta) == 0 {
		return domain.ErrIndexUnavailable
	}
	if err := r.verifyMeta(meta); err != nil {
		return err
	}

	exists, err := r.store.IndexExists(ctx, indexName)
	if err != nil {
		return fmt.Errorf("probe index: %w", err)
	}
	if !exists {
		return fmt.Errorf("meta present but index missing: %w", domain.ErrIndexCorrupt)
	}
	r.ready = true
	return nil
}

// Ready reports whether the index was verified or built this process lifetime.
func (r *Repo) Ready() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ready
}

func (r *Repo) verifyMeta(meta map[string]string) error {
	dims, err := strconv.Atoi(meta["dimensions"])
	if err != nil {
		return fmt.Errorf("unreadable dimensions %q: %w", meta["dimensions"], domain.ErrIndexCorrupt)
	}
	if dims != r.dimensions {
		return fmt.Errorf("index built with dimensions %d, embedder produces %d: %w",
			dims, r.dimensions, domain.ErrIndexCorrupt)
	}
	if m := meta["metric"]; m != string(r.metric) {
		return fmt.Errorf("index built with metric %s, configured %s: %w",
			m, r.metric, domain.ErrIndexCorrupt)
	}
	return nil
}

// Upsert inserts records keyed by chunk identity. Existing chunks are
// overwritten in place, so re-indexing the same document never duplicates.
// A record whose vector length disagrees with the index dimensionality is
// a fatal error; nothing from the batch is written.
func (r *Repo) Upsert(ctx context.Context, records []domain.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}

	items := make([]db.HashSetItem, len(records))
	for i, rec := range records {
		if len(rec.Embedding) != r.dimensions {
			return domain.NewDimMismatch(len(rec.Embedding), r.dimensions)
		}
		items[i] = db.HashSetItem{
			Key:    r.chunkKey(rec.Chunk),
			Fields: buildChunkFields(rec),
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.ready {
		return domain.ErrIndexUnavailable
	}
	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("upsert %d records: %w", len(items), err)
	}
	return nil
}

// Search returns up to k chunks ranked by descending similarity to the
// query vector, optionally restricted to one corpus tag.
func (r *Repo) Search(ctx context.Context, vector []float32, corpus string, k int) ([]domain.RetrievedChunk, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.ready {
		return nil, domain.ErrIndexUnavailable
	}
	if len(vector) != r.dimensions {
		return nil, domain.NewDimMismatch(len(vector), r.dimensions)
	}

	q := &db.KNNQuery{
		IndexName:    indexName,
		Vector:       vector,
		K:            k,
		ReturnFields: []string{"source", "chunk_index", "corpus", "text", "__vector_score"},
	}
	if corpus != "" {
		q.TagFilter = db.TagFilter{Field: "corpus", Value: corpus}
	}

	res, err := r.store.SearchKNN(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("knn search: %w", err)
	}

	chunks := make([]domain.RetrievedChunk, 0, len(res.Entries))
	for _, e := range res.Entries {
		chunks = append(chunks, parseChunkEntry(e))
	}
	return chunks, nil
}

// Count returns the number of stored chunks.
func (r *Repo) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.ready {
		return 0, domain.ErrIndexUnavailable
	}
	n, err := r.store.SearchCount(ctx, indexName, "*")
	if err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return n, nil
}
