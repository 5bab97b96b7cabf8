// Package chi exposes the conversation and indexing API over HTTP.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/corvid-ai/corvid/internal/domain"
	healthuc "github.com/corvid-ai/corvid/internal/usecase/health"
	"github.com/corvid-ai/corvid/internal/usecase/orchestrator"
)

// Orchestrator runs one conversation turn.
type Orchestrator interface {
	Ask(ctx context.Context, threadID, query string) (orchestrator.Answer, error)
}

// Indexer runs one indexing batch.
type Indexer interface {
	IndexCorpus(ctx context.Context, docs []domain.SourceDocument) (domain.IndexReport, error)
}

// HealthChecker aggregates component availability.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server is the HTTP API server.
type Server struct {
	orch          Orchestrator
	indexer       Indexer
	health        HealthChecker
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(orch Orchestrator, indexer Indexer, health HealthChecker, logger *zap.Logger) *Server {
	s := &Server{
		orch:    orch,
		indexer: indexer,
		health:  health,
		logger:  logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrConversationLocked, http.StatusConflict, codeConversationLocked),
		sentinelHandler(domain.ErrNoDocuments, http.StatusUnprocessableEntity, codeNoDocuments),
		sentinelHandler(domain.ErrIndexUnavailable, http.StatusServiceUnavailable, codeIndexUnavailable),
		sentinelHandler(domain.ErrIndexCorrupt, http.StatusServiceUnavailable, codeIndexCorrupt),
		sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests, codeRateLimited),
		sentinelHandler(domain.ErrVectorDimMismatch, http.StatusConflict, codeVectorDimMismatch),
		sentinelHandler(domain.ErrUpstreamModel, http.StatusBadGateway, codeUpstreamModel),
		sentinelHandler(domain.ErrEmptyAnswer, http.StatusBadGateway, codeUpstreamModel),
		sentinelHandler(domain.ErrToolInvocation, http.StatusBadGateway, codeToolInvocation),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, codeEmbeddingProvider),
	}
	return s
}

// Routes mounts all API routes on a fresh router.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/healthz", s.Health)
	r.Get("/metrics", s.Metrics)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/ask", s.Ask)
		r.Post("/reindex", s.Reindex)
	})
	return r
}

// Ask handles POST /v1/ask.
func (s *Server) Ask(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "Message is required")
		return
	}

	answer, err := s.orch.Ask(r.Context(), req.ThreadID, req.Message)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, askResponseFrom(answer))
}

// Reindex handles POST /v1/reindex.
func (s *Server) Reindex(w http.ResponseWriter, r *http.Request) {
	var req reindexRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	docs := make([]domain.SourceDocument, 0, len(req.Documents))
	for _, d := range req.Documents {
		if d.ID == "" {
			writeError(w, http.StatusBadRequest, codeValidationFailed, "Document id is required")
			return
		}
		if d.Corpus == "" {
			writeError(w, http.StatusBadRequest, codeValidationFailed, "Document corpus is required")
			return
		}
		docs = append(docs, domain.SourceDocument{
			ID:     d.ID,
			Text:   d.Text,
			Corpus: d.Corpus,
			Source: d.Source,
		})
	}

	report, err := s.indexer.IndexCorpus(r.Context(), docs)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, reindexResponseFrom(report))
}

// Health handles GET /healthz.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	status := http.StatusOK
	if report.Status != healthuc.Healthy {
		status = http.StatusServiceUnavailable
	}

	checks := make(map[string]string, len(report.Checks))
	for name, res := range report.Checks {
		checks[name] = string(res)
	}
	writeJSON(w, status, healthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrConversationLocked,
		domain.ErrNoDocuments,
		domain.ErrIndexUnavailable,
		domain.ErrIndexCorrupt,
		domain.ErrRateLimited,
		domain.ErrVectorDimMismatch,
		domain.ErrUpstreamModel,
		domain.ErrEmptyAnswer,
		domain.ErrToolInvocation,
		domain.ErrEmbeddingProviderError,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
