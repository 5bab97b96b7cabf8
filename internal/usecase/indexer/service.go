// Package indexer builds the vector index from extracted source documents:
// split, embed, upsert, with provider quota pacing and a per-run report.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/corvid-ai/corvid/internal/domain"
)

// Config holds indexing run settings.
type Config struct {
	Splitter     domain.Splitter
	BatchSize    int           // records per upsert batch, also the embedding burst
	RateLimitRPM int           // provider requests-per-minute allowance
	MaxRetries   int           // retries after a quota hit, per chunk
	RetryDelay   time.Duration // wait after a quota hit (default 1m)
}

// Service runs document indexing.
type Service struct {
	splitter   domain.Splitter
	embed      Embedder
	index      Index
	sources    Sources
	limiter    *rate.Limiter
	batchSize  int
	maxRetries int
	retryDelay time.Duration
	logger     *zap.Logger
}

// New creates an indexing service. The embedding rate limiter allows an
// initial burst of BatchSize requests, then paces at the provider's
// per-minute allowance.
func New(cfg Config, embed Embedder, index Index, sources Sources, logger *zap.Logger) *Service {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 99
	}
	rpm := cfg.RateLimitRPM
	if rpm <= 0 {
		rpm = 99
	}
	retries := cfg.MaxRetries
	if retries <= 0 {
		retries = 3
	}
	delay := cfg.RetryDelay
	if delay <= 0 {
		delay = time.Minute
	}

	return &Service{
		splitter:   cfg.Splitter,
		embed:      embed,
		index:      index,
		sources:    sources,
		limiter:    rate.NewLimiter(rate.Limit(rpm)/60.0, batchSize),
		batchSize:  batchSize,
		maxRetries: retries,
		retryDelay: delay,
		logger:     logger,
	}
}

// IndexCorpus splits, embeds, and upserts the given documents. Chunk
// identity is (document ID, chunk index), so re-running over the same
// documents overwrites in place rather than duplicating.
//
// Per-document failures (no text, exhausted quota retries) land in the
// report and do not abort the run. A dimension mismatch on upsert does:
// it means the index and embedder configurations disagree.
func (s *Service) IndexCorpus(ctx context.Context, docs []domain.SourceDocument) (domain.IndexReport, error) {
	var report domain.IndexReport

	if len(docs) == 0 {
		return report, domain.ErrNoDocuments
	}

	if err := s.index.Ensure(ctx); err != nil {
		return report, fmt.Errorf("ensure index: %w", err)
	}

	var pending []domain.VectorRecord

	for _, doc := range docs {
		report.Documents++

		if strings.TrimSpace(doc.Text) == "" {
			report.AddFailure(docLabel(doc), domain.ErrExtractionFailed)
			continue
		}

		s.saveText(ctx, doc)

		chunks := s.splitter.Split(doc)
		report.Chunks += len(chunks)

		records, err := s.embedChunks(ctx, chunks, &report)
		if err != nil {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			s.logger.Warn("Document skipped",
				zap.String("source", docLabel(doc)),
				zap.Error(err))
			report.AddFailure(docLabel(doc), err)
			continue
		}

		pending = append(pending, records...)
		if len(pending) >= s.batchSize {
			if err := s.index.Upsert(ctx, pending); err != nil {
				return report, fmt.Errorf("upsert batch: %w", err)
			}
			pending = pending[:0]
		}
	}

	if len(pending) > 0 {
		if err := s.index.Upsert(ctx, pending); err != nil {
			return report, fmt.Errorf("upsert batch: %w", err)
		}
	}

	s.logger.Info("Indexing run finished", zap.String("report", report.String()))
	return report, nil
}

// saveText caches the document's extracted text. The cache is an
// inspection artifact, not part of the index, so a failed write is
// logged and the run continues.
func (s *Service) saveText(ctx context.Context, doc domain.SourceDocument) {
	if s.sources == nil {
		return
	}
	if err := s.sources.SaveText(ctx, doc.ID, doc.Text); err != nil {
		s.logger.Warn("Extracted text not cached",
			zap.String("source", docLabel(doc)),
			zap.Error(err))
	}
}

// embedChunks vectorizes one document's chunks. A failed chunk fails the
// whole document so a partially embedded document never lands in the index.
func (s *Service) embedChunks(ctx context.Context, chunks []domain.Chunk, report *domain.IndexReport) ([]domain.VectorRecord, error) {
	records := make([]domain.VectorRecord, 0, len(chunks))
	for _, chunk := range chunks {
		result, err := s.embedWithRetry(ctx, chunk.Text, report)
		if err != nil {
			return nil, fmt.Errorf("embed chunk %s: %w", chunk.Key(), err)
		}
		if result.TotalTokens == 0 {
			report.CacheHits++
		} else {
			report.Embedded++
		}
		records = append(records, domain.VectorRecord{Chunk: chunk, Embedding: result.Embedding})
	}
	return records, nil
}

// embedWithRetry paces requests through the limiter and waits out provider
// quota hits up to maxRetries times.
func (s *Service) embedWithRetry(ctx context.Context, text string, report *domain.IndexReport) (domain.EmbeddingResult, error) {
	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if err := s.limiter.Wait(ctx); err != nil {
			return domain.EmbeddingResult{}, err
		}

		result, err := s.embed.Embed(ctx, text)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !errors.Is(err, domain.ErrRateLimited) {
			return domain.EmbeddingResult{}, err
		}

		report.RateLimitHits++
		if attempt == s.maxRetries {
			break
		}

		s.logger.Warn("Embedding quota hit, pausing",
			zap.Duration("delay", s.retryDelay),
			zap.Int("attempt", attempt+1))
		select {
		case <-ctx.Done():
			return domain.EmbeddingResult{}, ctx.Err()
		case <-time.After(s.retryDelay):
		}
	}
	return domain.EmbeddingResult{}, lastErr
}

func docLabel(doc domain.SourceDocument) string {
	if doc.Source != "" {
		return doc.Source
	}
	return doc.ID
}
