package orchestrator

import (
	"context"

	"github.com/corvid-ai/corvid/internal/domain"
)

// ChatModel produces one completion over a prompt. When allowTools is
// false the model must answer in plain text.
type ChatModel interface {
	Complete(ctx context.Context, msgs []domain.Message, allowTools bool) (domain.Message, error)
}

// Retriever runs one retrieval tool invocation.
type Retriever interface {
	Retrieve(ctx context.Context, query string, corpora []string) (domain.RetrievalResult, error)
}

// Conversations is the per-thread message log with single-writer locking.
type Conversations interface {
	History(ctx context.Context, threadID string) ([]domain.Message, error)
	Append(ctx context.Context, threadID string, msgs []domain.Message) error
	Lock(ctx context.Context, threadID string) (token string, err error)
	Unlock(ctx context.Context, threadID, token string) error
}
