package vector

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/corvid-ai/corvid/internal/db"
	"github.com/corvid-ai/corvid/internal/domain"
)

type fakeStore struct {
	hashes      map[string]map[string]string
	indexExists bool

	createdIndex *db.IndexDefinition
	upserted     []db.HashSetItem
	lastQuery    *db.KNNQuery

	searchResult *db.SearchResult
	searchErr    error
	countResult  int
}

func newFakeStore() *fakeStore {
	return &fakeStore{hashes: map[string]map[string]string{}}
}

func (f *fakeStore) HSetMulti(_ context.Context, items []db.HashSetItem) error {
	f.upserted = append(f.upserted, items...)
	for _, item := range items {
		f.hashes[item.Key] = item.Fields
	}
	return nil
}

func (f *fakeStore) HGetAll(_ context.Context, key string) (map[string]string, error) {
	return f.hashes[key], nil
}

func (f *fakeStore) CreateIndex(_ context.Context, def *db.IndexDefinition) error {
	if f.indexExists {
		return db.ErrIndexExists
	}
	f.createdIndex = def
	f.indexExists = true
	return nil
}

func (f *fakeStore) IndexExists(_ context.Context, _ string) (bool, error) {
	return f.indexExists, nil
}

func (f *fakeStore) SearchKNN(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	f.lastQuery = q
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	if f.searchResult == nil {
		return &db.SearchResult{}, nil
	}
	return f.searchResult, nil
}

func (f *fakeStore) SearchCount(_ context.Context, _, _ string) (int, error) {
	return f.countResult, nil
}

func record(source string, index int, vec []float32) domain.VectorRecord {
	return domain.VectorRecord{
		Chunk:     domain.Chunk{Source: source, Index: index, Corpus: "papers", Text: "passage"},
		Embedding: vec,
	}
}

func TestEnsure_CreatesIndexAndMeta(t *testing.T) {
	s := newFakeStore()
	r := New(s, "corvid:", 4, domain.MetricCosine)

	if err := r.Ensure(context.Background()); err != nil {
		t.Fatalf("Ensure failed: %v", err)
	}
	if !r.Ready() {
		t.Error("expected repo to be ready")
	}

	if s.createdIndex == nil {
		t.Fatal("expected index creation")
	}
	if s.createdIndex.Name != "corvid-chunks" || s.createdIndex.Prefixes[0] != "corvid:chunk:" {
		t.Errorf("unexpected index definition: %+v", s.createdIndex)
	}
	var vecField *db.IndexField
	for i := range s.createdIndex.Fields {
		if s.createdIndex.Fields[i].Type == db.IndexFieldVector {
			vecField = &s.createdIndex.Fields[i]
		}
	}
	if vecField == nil || vecField.VectorDim != 4 {
		t.Errorf("unexpected vector field: %+v", vecField)
	}

	meta := s.hashes["corvid:index:meta"]
	if meta["dimensions"] != "4" || meta["metric"] != "COSINE" {
		t.Errorf("unexpected meta: %v", meta)
	}
}

func TestEnsure_VerifiesExistingMeta(t *testing.T) {
	s := newFakeStore()
	s.indexExists = true
	s.hashes["corvid:index:meta"] = map[string]string{"dimensions": "4", "metric": "COSINE"}

	r := New(s, "corvid:", 4, domain.MetricCosine)
	if err := r.Ensure(context.Background()); err != nil {
		t.Fatalf("Ensure failed: %v", err)
	}
	if s.createdIndex != nil {
		t.Error("existing index must not be recreated")
	}
}

func TestEnsure_RejectsMismatchedMeta(t *testing.T) {
	s := newFakeStore()
	s.hashes["corvid:index:meta"] = map[string]string{"dimensions": "1536", "metric": "COSINE"}

	r := New(s, "corvid:", 4, domain.MetricCosine)
	err := r.Ensure(context.Background())
	if !errors.Is(err, domain.ErrIndexCorrupt) {
		t.Fatalf("expected ErrIndexCorrupt, got %v", err)
	}
	if r.Ready() {
		t.Error("repo must not become ready on mismatch")
	}
}

func TestOpen_NeverBuilt(t *testing.T) {
	r := New(newFakeStore(), "corvid:", 4, domain.MetricCosine)

	err := r.Open(context.Background())
	if !errors.Is(err, domain.ErrIndexUnavailable) {
		t.Fatalf("expected ErrIndexUnavailable, got %v", err)
	}
}

func TestOpen_MetaWithoutIndex(t *testing.T) {
	s := newFakeStore()
	s.hashes["corvid:index:meta"] = map[string]string{"dimensions": "4", "metric": "COSINE"}

	r := New(s, "corvid:", 4, domain.MetricCosine)
	err := r.Open(context.Background())
	if !errors.Is(err, domain.ErrIndexCorrupt) {
		t.Fatalf("expected ErrIndexCorrupt, got %v", err)
	}
}

func TestOpen_MetricMismatch(t *testing.T) {
	s := newFakeStore()
	s.indexExists = true
	s.hashes["corvid:index:meta"] = map[string]string{"dimensions": "4", "metric": "IP"}

	r := New(s, "corvid:", 4, domain.MetricCosine)
	err := r.Open(context.Background())
	if !errors.Is(err, domain.ErrIndexCorrupt) {
		t.Fatalf("expected ErrIndexCorrupt, got %v", err)
	}
}

func TestUpsert_WritesChunkHashes(t *testing.T) {
	s := newFakeStore()
	r := New(s, "corvid:", 2, domain.MetricCosine)
	if err := r.Ensure(context.Background()); err != nil {
		t.Fatalf("Ensure failed: %v", err)
	}

	err := r.Upsert(context.Background(), []domain.VectorRecord{
		record("doc1", 0, []float32{0.1, 0.2}),
		record("doc1", 1, []float32{0.3, 0.4}),
	})
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	fields, ok := s.hashes["corvid:chunk:doc1:1"]
	if !ok {
		t.Fatal("expected chunk hash at corvid:chunk:doc1:1")
	}
	if fields["source"] != "doc1" || fields["chunk_index"] != "1" || fields["corpus"] != "papers" {
		t.Errorf("unexpected fields: %v", fields)
	}
	if len(fields["vector"]) != 8 {
		t.Errorf("expected 8-byte vector, got %d bytes", len(fields["vector"]))
	}
}

func TestUpsert_SameKeyOverwrites(t *testing.T) {
	s := newFakeStore()
	r := New(s, "corvid:", 2, domain.MetricCosine)
	if err := r.Ensure(context.Background()); err != nil {
		t.Fatalf("Ensure failed: %v", err)
	}

	rec := record("doc1", 0, []float32{0.1, 0.2})
	if err := r.Upsert(context.Background(), []domain.VectorRecord{rec}); err != nil {
		t.Fatalf("first Upsert failed: %v", err)
	}
	rec.Chunk.Text = "revised passage"
	if err := r.Upsert(context.Background(), []domain.VectorRecord{rec}); err != nil {
		t.Fatalf("second Upsert failed: %v", err)
	}

	chunkCount := 0
	for key := range s.hashes {
		if key != "corvid:index:meta" {
			chunkCount++
		}
	}
	if chunkCount != 1 {
		t.Errorf("expected 1 chunk key, got %d", chunkCount)
	}
	if s.hashes["corvid:chunk:doc1:0"]["text"] != "revised passage" {
		t.Error("expected overwrite in place")
	}
}

func TestUpsert_DimMismatch(t *testing.T) {
	s := newFakeStore()
	r := New(s, "corvid:", 4, domain.MetricCosine)
	if err := r.Ensure(context.Background()); err != nil {
		t.Fatalf("Ensure failed: %v", err)
	}

	err := r.Upsert(context.Background(), []domain.VectorRecord{record("doc1", 0, []float32{0.1, 0.2})})
	if !errors.Is(err, domain.ErrVectorDimMismatch) {
		t.Fatalf("expected ErrVectorDimMismatch, got %v", err)
	}
	if len(s.upserted) != 0 {
		t.Error("nothing from the batch may be written")
	}
}

func TestUpsert_NotReady(t *testing.T) {
	r := New(newFakeStore(), "corvid:", 2, domain.MetricCosine)

	err := r.Upsert(context.Background(), []domain.VectorRecord{record("doc1", 0, []float32{0.1, 0.2})})
	if !errors.Is(err, domain.ErrIndexUnavailable) {
		t.Fatalf("expected ErrIndexUnavailable, got %v", err)
	}
}

func TestSearch_CorpusFilter(t *testing.T) {
	s := newFakeStore()
	s.searchResult = &db.SearchResult{
		Total: 1,
		Entries: []db.SearchEntry{
			{
				Key:   "corvid:chunk:doc1:2",
				Score: 0.92,
				Fields: map[string]string{
					"source":      "doc1",
					"chunk_index": strconv.Itoa(2),
					"corpus":      "papers",
					"text":        "passage",
				},
			},
		},
	}
	r := New(s, "corvid:", 2, domain.MetricCosine)
	if err := r.Ensure(context.Background()); err != nil {
		t.Fatalf("Ensure failed: %v", err)
	}

	chunks, err := r.Search(context.Background(), []float32{0.1, 0.2}, "papers", 2)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	got := chunks[0]
	if got.Chunk.Source != "doc1" || got.Chunk.Index != 2 || got.Score != 0.92 {
		t.Errorf("unexpected chunk: %+v", got)
	}

	q := s.lastQuery
	if q.K != 2 || q.TagFilter.Field != "corpus" || q.TagFilter.Value != "papers" {
		t.Errorf("unexpected query: %+v", q)
	}
}

func TestSearch_NoCorpusMeansUnfiltered(t *testing.T) {
	s := newFakeStore()
	r := New(s, "corvid:", 2, domain.MetricCosine)
	if err := r.Ensure(context.Background()); err != nil {
		t.Fatalf("Ensure failed: %v", err)
	}

	if _, err := r.Search(context.Background(), []float32{0.1, 0.2}, "", 3); err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if !s.lastQuery.TagFilter.Empty() {
		t.Errorf("expected empty tag filter, got %+v", s.lastQuery.TagFilter)
	}
}

func TestSearch_NotReady(t *testing.T) {
	r := New(newFakeStore(), "corvid:", 2, domain.MetricCosine)

	_, err := r.Search(context.Background(), []float32{0.1, 0.2}, "", 2)
	if !errors.Is(err, domain.ErrIndexUnavailable) {
		t.Fatalf("expected ErrIndexUnavailable, got %v", err)
	}
}

func TestSearch_QueryDimMismatch(t *testing.T) {
	r := New(newFakeStore(), "corvid:", 4, domain.MetricCosine)
	if err := r.Ensure(context.Background()); err != nil {
		t.Fatalf("Ensure failed: %v", err)
	}

	_, err := r.Search(context.Background(), []float32{0.1}, "", 2)
	if !errors.Is(err, domain.ErrVectorDimMismatch) {
		t.Fatalf("expected ErrVectorDimMismatch, got %v", err)
	}
}

func TestCount(t *testing.T) {
	s := newFakeStore()
	s.countResult = 42
	r := New(s, "corvid:", 2, domain.MetricCosine)
	if err := r.Ensure(context.Background()); err != nil {
		t.Fatalf("Ensure failed: %v", err)
	}

	n, err := r.Count(context.Background())
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n != 42 {
		t.Errorf("expected 42, got %d", n)
	}
}
