// Package corvid embeds the conversational retrieval service in-process:
// the same orchestration, indexing, and storage as the HTTP server, wired
// behind a single client.
package corvid

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/corvid-ai/corvid/internal/db"
	dbRedis "github.com/corvid-ai/corvid/internal/db/redis"
	"github.com/corvid-ai/corvid/internal/domain"
	"github.com/corvid-ai/corvid/internal/repository/conversation"
	"github.com/corvid-ai/corvid/internal/repository/embcache"
	"github.com/corvid-ai/corvid/internal/repository/source"
	"github.com/corvid-ai/corvid/internal/repository/vector"
	openaiTransport "github.com/corvid-ai/corvid/internal/transport/openai"
	indexeruc "github.com/corvid-ai/corvid/internal/usecase/indexer"
	orchestratoruc "github.com/corvid-ai/corvid/internal/usecase/orchestrator"
	retrievaluc "github.com/corvid-ai/corvid/internal/usecase/retrieval"
)

const defaultReadinessTimeout = 10 * time.Second

// Internal use case seams, substituted in tests.
type askUseCase interface {
	Ask(ctx context.Context, threadID, query string) (orchestratoruc.Answer, error)
}

type indexUseCase interface {
	IndexCorpus(ctx context.Context, docs []domain.SourceDocument) (domain.IndexReport, error)
}

// Client is the corvid embedded entry point.
type Client struct {
	store   db.Store
	orch    askUseCase
	indexer indexUseCase
}

// New creates a corvid Client and connects to the database.
// The provided context is used for the initial readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := defaultClientConfig()
	for _, o := range opts {
		o(cfg)
	}

	if len(cfg.addrs) == 0 {
		return nil, errors.New("corvid: database address required (use WithRedis)")
	}
	if cfg.embeddingModel == "" || cfg.chatModel == "" {
		return nil, errors.New("corvid: embedding and chat models required (use WithModels)")
	}
	if cfg.dimensions <= 0 {
		return nil, errors.New("corvid: embedding dimensions required (use WithModels)")
	}

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.addrs,
		Password: cfg.password,
	})
	if err != nil {
		return nil, fmt.Errorf("corvid: create redis store: %w", err)
	}

	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("corvid: database not ready: %w", err)
	}

	return wireClient(ctx, store, cfg)
}

func wireClient(ctx context.Context, store db.Store, cfg *clientConfig) (*Client, error) {
	logger := cfg.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	baseEmbedder := openaiTransport.NewEmbedder(&openaiTransport.EmbedderConfig{
		APIKey:     cfg.apiKey,
		BaseURL:    cfg.baseURL,
		Model:      cfg.embeddingModel,
		Dimensions: cfg.dimensions,
		Logger:     logger,
	})
	embedder := embcache.New(baseEmbedder, store, cfg.keyPrefix, nil, logger)

	chatModel := openaiTransport.NewChatModel(&openaiTransport.ChatConfig{
		APIKey:  cfg.apiKey,
		BaseURL: cfg.baseURL,
		Model:   cfg.chatModel,
		Logger:  logger,
	})

	vectorRepo := vector.New(store, cfg.keyPrefix, cfg.dimensions, domain.MetricCosine)
	conversationRepo := conversation.New(store, cfg.keyPrefix, cfg.lockTTL)
	sourceRepo := source.New(store, cfg.keyPrefix)

	if err := vectorRepo.Open(ctx); err != nil && !errors.Is(err, domain.ErrIndexUnavailable) {
		store.Close()
		return nil, fmt.Errorf("corvid: open vector index: %w", err)
	}

	splitter, err := domain.NewSplitter(cfg.chunkSize, cfg.chunkOverlap)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("corvid: %w", err)
	}

	retrievalSvc := retrievaluc.New(embedder, vectorRepo, cfg.topK, logger)
	indexerSvc := indexeruc.New(indexeruc.Config{
		Splitter: splitter,
	}, embedder, vectorRepo, sourceRepo, logger)
	orchestratorSvc := orchestratoruc.New(orchestratoruc.Config{
		Persona: cfg.persona,
		MaxHops: cfg.maxHops,
	}, chatModel, retrievalSvc, conversationRepo, logger)

	return &Client{
		store:   store,
		orch:    orchestratorSvc,
		indexer: indexerSvc,
	}, nil
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks database connectivity.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Ask runs one conversation turn. An empty threadID starts a new thread;
// pass the returned thread ID to continue the conversation.
func (c *Client) Ask(ctx context.Context, threadID, message string) (Answer, error) {
	ans, err := c.orch.Ask(ctx, threadID, message)
	if err != nil {
		return Answer{}, err
	}
	return answerFrom(ans), nil
}

// IndexDocuments chunks, embeds, and indexes the given documents.
// The report records per-document failures; err is set only when the run
// as a whole could not proceed.
func (c *Client) IndexDocuments(ctx context.Context, docs []Document) (Report, error) {
	in := make([]domain.SourceDocument, len(docs))
	for i, d := range docs {
		in[i] = domain.SourceDocument{ID: d.ID, Text: d.Text, Corpus: d.Corpus, Source: d.Source}
	}
	report, err := c.indexer.IndexCorpus(ctx, in)
	return reportFrom(report), err
}
