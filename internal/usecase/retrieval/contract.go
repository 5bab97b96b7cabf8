package retrieval

import (
	"context"

	"github.com/corvid-ai/corvid/internal/domain"
)

// Embedder vectorizes the search query.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Index runs similarity search over stored chunks.
type Index interface {
	Search(ctx context.Context, vector []float32, corpus string, k int) ([]domain.RetrievedChunk, error)
}
