// Package retrieval implements the retrieval tool: embed a query, search
// the vector index, and serialize the hits for the chat model.
package retrieval

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/corvid-ai/corvid/internal/domain"
	"github.com/corvid-ai/corvid/internal/metrics"
)

// NoResultsText is the tool output when nothing relevant was found. The
// model sees an explicit statement rather than an empty string.
const NoResultsText = "No relevant passages were found in the indexed documents."

// Service handles retrieval tool invocations.
type Service struct {
	embed  Embedder
	index  Index
	topK   int
	logger *zap.Logger
}

// New creates a retrieval service. topK bounds the chunks returned per
// corpus section, not globally.
func New(embed Embedder, index Index, topK int, logger *zap.Logger) *Service {
	if topK <= 0 {
		topK = 2
	}
	return &Service{embed: embed, index: index, topK: topK, logger: logger}
}

// Retrieve embeds the query and searches the index. When corpora are given,
// each corpus is searched independently for topK chunks and serialized as
// its own labeled section, preserving the requested order; scores are never
// compared across corpora. An empty corpora list searches the whole index.
func (s *Service) Retrieve(ctx context.Context, query string, corpora []string) (domain.RetrievalResult, error) {
	if strings.TrimSpace(query) == "" {
		return domain.RetrievalResult{Serialized: NoResultsText}, nil
	}

	embResult, err := s.embed.Embed(ctx, query)
	if err != nil {
		return domain.RetrievalResult{}, fmt.Errorf("vectorize query: %w", err)
	}

	sections, chunks, err := s.search(ctx, embResult.Embedding, corpora)
	if err != nil {
		return domain.RetrievalResult{}, err
	}

	metrics.RetrievalChunksTotal.Add(float64(len(chunks)))
	s.logger.Debug("Retrieval completed",
		zap.String("query", query),
		zap.Strings("corpora", corpora),
		zap.Int("chunks", len(chunks)))

	if len(chunks) == 0 {
		return domain.RetrievalResult{Serialized: NoResultsText}, nil
	}

	return domain.RetrievalResult{
		Serialized: strings.Join(sections, "\n\n"),
		Chunks:     chunks,
	}, nil
}

func (s *Service) search(ctx context.Context, vector []float32, corpora []string) ([]string, []domain.RetrievedChunk, error) {
	if len(corpora) == 0 {
		hits, err := s.index.Search(ctx, vector, "", s.topK)
		if err != nil {
			return nil, nil, fmt.Errorf("search index: %w", err)
		}
		return serializeByCorpus(hits), hits, nil
	}

	var (
		sections []string
		chunks   []domain.RetrievedChunk
	)
	for _, corpus := range corpora {
		hits, err := s.index.Search(ctx, vector, corpus, s.topK)
		if err != nil {
			return nil, nil, fmt.Errorf("search corpus %s: %w", corpus, err)
		}
		if len(hits) == 0 {
			continue
		}
		sections = append(sections, serializeSection(corpus, hits))
		chunks = append(chunks, hits...)
	}
	return sections, chunks, nil
}

// serializeByCorpus groups an unfiltered result into labeled sections,
// keeping each corpus's chunks in their ranked order.
func serializeByCorpus(hits []domain.RetrievedChunk) []string {
	var order []string
	grouped := map[string][]domain.RetrievedChunk{}
	for _, h := range hits {
		if _, seen := grouped[h.Chunk.Corpus]; !seen {
			order = append(order, h.Chunk.Corpus)
		}
		grouped[h.Chunk.Corpus] = append(grouped[h.Chunk.Corpus], h)
	}

	sections := make([]string, 0, len(order))
	for _, corpus := range order {
		sections = append(sections, serializeSection(corpus, grouped[corpus]))
	}
	return sections
}

// serializeSection renders one corpus's hits as a labeled text block.
func serializeSection(corpus string, hits []domain.RetrievedChunk) string {
	var b strings.Builder
	b.WriteString("CORPUS ")
	b.WriteString(strings.ToUpper(corpus))
	b.WriteString(":\n")
	for i, h := range hits {
		if i > 0 {
			b.WriteString("\n---\n")
		}
		b.WriteString(h.Chunk.Text)
	}
	return b.String()
}
