package indexer

import (
	"context"

	"github.com/corvid-ai/corvid/internal/domain"
)

// Embedder vectorizes chunk text. A caching decorator satisfies this:
// a zero TotalTokens on the result marks a cache hit.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Index receives embedded chunks.
type Index interface {
	Ensure(ctx context.Context) error
	Upsert(ctx context.Context, records []domain.VectorRecord) error
}

// Sources keeps the extracted text of each indexed document for later
// inspection. Optional; a nil Sources disables the cache.
type Sources interface {
	SaveText(ctx context.Context, docID, text string) error
}
