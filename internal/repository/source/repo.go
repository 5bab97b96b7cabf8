// Package source caches the extracted text of indexed documents. The cache
// is written during an indexing run and read out-of-band (debugging a bad
// answer back to the text the indexer actually saw), so losing an entry
// never affects the index itself.
package source

import (
	"context"
	"fmt"
)

// store is the consumer interface for text storage (ISP).
type store interface {
	Set(ctx context.Context, key string, value []byte) error
}

// Repo persists extracted document text keyed by document ID.
type Repo struct {
	store     store
	keyPrefix string
}

// New creates an extracted-text repository.
func New(s store, keyPrefix string) *Repo {
	return &Repo{store: s, keyPrefix: keyPrefix}
}

func (r *Repo) textKey(docID string) string {
	return r.keyPrefix + "source:" + docID + ":text"
}

// SaveText stores the extracted text of one document, overwriting any
// text saved by a previous run.
func (r *Repo) SaveText(ctx context.Context, docID, text string) error {
	if err := r.store.Set(ctx, r.textKey(docID), []byte(text)); err != nil {
		return fmt.Errorf("save text of %s: %w", docID, err)
	}
	return nil
}
