package domain

import "fmt"

// SourceDocument is raw extracted text for one source, supplied by the
// external extractor collaborator.
type SourceDocument struct {
	ID     string
	Text   string
	Corpus string // corpus tag used for retrieval filtering
	Source string // human-readable origin (file name, URL)
}

// Chunk is a bounded span of one document's text. Identity is
// (Source, Index) and is stable across re-indexing runs with the
// same splitter parameters.
type Chunk struct {
	Source string
	Index  int
	Corpus string
	Text   string
}

// Key returns the stable chunk identity used for upserts.
func (c Chunk) Key() string {
	return fmt.Sprintf("%s:%d", c.Source, c.Index)
}

// VectorRecord is an embedded chunk ready for index insertion.
type VectorRecord struct {
	Chunk     Chunk
	Embedding []float32
}

// RetrievedChunk is a single ranked retrieval hit.
type RetrievedChunk struct {
	Chunk Chunk
	Score float64
}

// DistanceMetric names the similarity metric fixed per index instance.
type DistanceMetric string

// Supported metrics. An index is built with exactly one and never mixes them.
const (
	MetricCosine       DistanceMetric = "COSINE"
	MetricInnerProduct DistanceMetric = "IP"
)
