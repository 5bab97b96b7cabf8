package metrics

import "github.com/prometheus/client_golang/prometheus"

// Prometheus metrics for the embedding and chat model boundaries.
var (
	EmbeddingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "corvid",
			Name:      "embedding_requests_total",
			Help:      "Total number of embedding requests",
		},
		[]string{"model", "status"},
	)

	EmbeddingRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "corvid",
			Name:      "embedding_request_duration_seconds",
			Help:      "Embedding request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"model"},
	)

	EmbeddingTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "corvid",
			Name:      "embedding_tokens_total",
			Help:      "Total embedding tokens consumed",
		},
		[]string{"model", "type"},
	)

	EmbeddingCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "corvid",
			Name:      "embedding_cache_total",
			Help:      "Embedding cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	ChatRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "corvid",
			Name:      "chat_requests_total",
			Help:      "Total number of chat model requests",
		},
		[]string{"model", "status"},
	)

	ChatRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "corvid",
			Name:      "chat_request_duration_seconds",
			Help:      "Chat model request duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"model"},
	)

	RetrievalRoundsPerTurn = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "corvid",
			Name:      "retrieval_rounds_per_turn",
			Help:      "Retrieval rounds the orchestrator ran per conversation turn",
			Buckets:   []float64{0, 1, 2, 3, 4, 5},
		},
	)

	RetrievalChunksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "corvid",
			Name:      "retrieval_chunks_total",
			Help:      "Total chunks returned by the retrieval tool",
		},
	)
)

var registered bool

// Register registers all corvid metrics. Must be called once from main.
func Register() {
	if registered {
		return
	}
	prometheus.MustRegister(EmbeddingRequestsTotal)
	prometheus.MustRegister(EmbeddingRequestDuration)
	prometheus.MustRegister(EmbeddingTokensTotal)
	prometheus.MustRegister(EmbeddingCacheTotal)
	prometheus.MustRegister(ChatRequestsTotal)
	prometheus.MustRegister(ChatRequestDuration)
	prometheus.MustRegister(RetrievalRoundsPerTurn)
	prometheus.MustRegister(RetrievalChunksTotal)
	registered = true
}
