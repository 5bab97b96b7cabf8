package chi

import (
	"github.com/corvid-ai/corvid/internal/domain"
	"github.com/corvid-ai/corvid/internal/usecase/orchestrator"
)

// Error response codes.
const (
	codeBadRequest         = "bad_request"
	codeValidationFailed   = "validation_failed"
	codeConversationLocked = "conversation_locked"
	codeNoDocuments        = "no_documents"
	codeIndexUnavailable   = "index_unavailable"
	codeIndexCorrupt       = "index_corrupt"
	codeRateLimited        = "rate_limited"
	codeVectorDimMismatch  = "vector_dim_mismatch"
	codeUpstreamModel      = "upstream_model_error"
	codeToolInvocation     = "tool_invocation_failed"
	codeEmbeddingProvider  = "embedding_provider_error"
	codeInternalError      = "internal_error"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type askRequest struct {
	ThreadID string `json:"thread_id,omitempty"`
	Message  string `json:"message"`
}

type askResponse struct {
	ThreadID string        `json:"thread_id"`
	Answer   string        `json:"answer"`
	Sources  []sourceChunk `json:"sources,omitempty"`
}

// sourceChunk is one retrieved passage backing the answer.
type sourceChunk struct {
	Source string  `json:"source"`
	Corpus string  `json:"corpus"`
	Index  int     `json:"chunk_index"`
	Score  float64 `json:"score"`
	Text   string  `json:"text"`
}

func askResponseFrom(a orchestrator.Answer) askResponse {
	resp := askResponse{ThreadID: a.ThreadID, Answer: a.Text}
	for _, c := range a.Chunks {
		resp.Sources = append(resp.Sources, sourceChunk{
			Source: c.Chunk.Source,
			Corpus: c.Chunk.Corpus,
			Index:  c.Chunk.Index,
			Score:  c.Score,
			Text:   c.Chunk.Text,
		})
	}
	return resp
}

type reindexRequest struct {
	Documents []documentPayload `json:"documents"`
}

type documentPayload struct {
	ID     string `json:"id"`
	Corpus string `json:"corpus"`
	Source string `json:"source,omitempty"`
	Text   string `json:"text"`
}

type reindexResponse struct {
	Documents     int             `json:"documents"`
	Chunks        int             `json:"chunks"`
	Embedded      int             `json:"embedded"`
	CacheHits     int             `json:"cache_hits"`
	RateLimitHits int             `json:"rate_limit_hits"`
	Failures      []sourceFailure `json:"failures,omitempty"`
}

type sourceFailure struct {
	Source string `json:"source"`
	Reason string `json:"reason"`
}

func reindexResponseFrom(r domain.IndexReport) reindexResponse {
	resp := reindexResponse{
		Documents:     r.Documents,
		Chunks:        r.Chunks,
		Embedded:      r.Embedded,
		CacheHits:     r.CacheHits,
		RateLimitHits: r.RateLimitHits,
	}
	for _, f := range r.Failures {
		resp.Failures = append(resp.Failures, sourceFailure{Source: f.Source, Reason: f.Reason})
	}
	return resp
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
