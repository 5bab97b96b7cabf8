// Package conversation persists per-thread message logs. A thread's log is
// append-only: messages are added in batches at turn commit and never
// rewritten. A short-lived lock key enforces the single-writer-per-thread
// discipline across processes.
package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/corvid-ai/corvid/internal/domain"
)

// store is the consumer interface for conversation storage (ISP).
type store interface {
	RPush(ctx context.Context, key string, values ...[]byte) error
	LRange(ctx context.Context, key string, start, stop int64) ([][]byte, error)
	LLen(ctx context.Context, key string) (int64, error)
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Del(ctx context.Context, key string) error
}

// Repo implements the conversation store.
type Repo struct {
	store     store
	keyPrefix string
	lockTTL   time.Duration
}

// New creates a conversation repository. lockTTL bounds how long a crashed
// turn can keep a thread locked.
func New(s store, keyPrefix string, lockTTL time.Duration) *Repo {
	if lockTTL <= 0 {
		lockTTL = 2 * time.Minute
	}
	return &Repo{store: s, keyPrefix: keyPrefix, lockTTL: lockTTL}
}

func (r *Repo) messagesKey(threadID string) string {
	return r.keyPrefix + "thread:" + threadID + ":messages"
}

func (r *Repo) lockKey(threadID string) string {
	return r.keyPrefix + "thread:" + threadID + ":lock"
}

// History returns the thread's messages in order. An unknown thread yields
// an empty history: threads come into existence with their first append.
func (r *Repo) History(ctx context.Context, threadID string) ([]domain.Message, error) {
	raw, err := r.store.LRange(ctx, r.messagesKey(threadID), 0, -1)
	if err != nil {
		return nil, fmt.Errorf("read history %s: %w", threadID, err)
	}

	msgs := make([]domain.Message, 0, len(raw))
	for i, b := range raw {
		var m domain.Message
		if err := json.Unmarshal(b, &m); err != nil {
			return nil, fmt.Errorf("decode message %d of thread %s: %w", i, threadID, err)
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

// Append adds messages to the thread's log in one atomic write. A failed
// turn appends nothing, so the log never holds a tool call without its
// result.
func (r *Repo) Append(ctx context.Context, threadID string, msgs []domain.Message) error {
	if len(msgs) == 0 {
		return nil
	}

	values := make([][]byte, len(msgs))
	for i, m := range msgs {
		if err := m.Validate(); err != nil {
			return fmt.Errorf("message %d: %w", i, err)
		}
		b, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("encode message %d: %w", i, err)
		}
		values[i] = b
	}

	if err := r.store.RPush(ctx, r.messagesKey(threadID), values...); err != nil {
		return fmt.Errorf("append to thread %s: %w", threadID, err)
	}
	return nil
}

// Len returns the number of messages in the thread.
func (r *Repo) Len(ctx context.Context, threadID string) (int, error) {
	n, err := r.store.LLen(ctx, r.messagesKey(threadID))
	if err != nil {
		return 0, fmt.Errorf("len of thread %s: %w", threadID, err)
	}
	return int(n), nil
}

// Lock acquires the thread's writer lock. Returns an opaque token to pass
// to Unlock, or domain.ErrConversationLocked when another turn holds it.
func (r *Repo) Lock(ctx context.Context, threadID string) (string, error) {
	token := uuid.NewString()
	ok, err := r.store.SetNX(ctx, r.lockKey(threadID), []byte(token), r.lockTTL)
	if err != nil {
		return "", fmt.Errorf("lock thread %s: %w", threadID, err)
	}
	if !ok {
		return "", fmt.Errorf("thread %s: %w", threadID, domain.ErrConversationLocked)
	}
	return token, nil
}

// Unlock releases the thread's writer lock if the token still owns it.
// A lock lost to TTL expiry is left alone.
func (r *Repo) Unlock(ctx context.Context, threadID, token string) error {
	key := r.lockKey(threadID)
	held, err := r.store.Get(ctx, key)
	if err != nil {
		return nil //nolint:nilerr // expired or missing lock needs no release
	}
	if string(held) != token {
		return nil
	}
	if err := r.store.Del(ctx, key); err != nil {
		return fmt.Errorf("unlock thread %s: %w", threadID, err)
	}
	return nil
}
