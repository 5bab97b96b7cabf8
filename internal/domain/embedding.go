package domain

import "context"

// Embedder is the shared text vectorization contract between layers.
// The embedding function is opaque: text in, fixed-length vector out.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
	// Dimensions returns the fixed output dimensionality.
	Dimensions() int
}

// BatchEmbedder vectorizes multiple texts in a single API call.
type BatchEmbedder interface {
	BatchEmbed(ctx context.Context, texts []string) (BatchEmbeddingResult, error)
}

// HealthChecker verifies provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// EmbeddingResult carries the embedding vector and token usage.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// BatchEmbeddingResult carries multiple embedding vectors and aggregate usage.
type BatchEmbeddingResult struct {
	Embeddings   [][]float32
	PromptTokens int
	TotalTokens  int
}
