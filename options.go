package corvid

import (
	"time"

	"go.uber.org/zap"
)

// Option configures the Client.
type Option func(*clientConfig)

type clientConfig struct {
	addrs    []string
	password string

	apiKey         string
	baseURL        string
	embeddingModel string
	chatModel      string
	dimensions     int

	keyPrefix    string
	chunkSize    int
	chunkOverlap int
	topK         int
	maxHops      int
	persona      string
	lockTTL      time.Duration

	logger *zap.Logger
}

func defaultClientConfig() *clientConfig {
	return &clientConfig{
		keyPrefix:    "corvid:",
		chunkSize:    1024,
		chunkOverlap: 200,
		topK:         2,
		maxHops:      4,
		lockTTL:      2 * time.Minute,
	}
}

// WithRedis sets the Redis connection.
func WithRedis(addrs []string, password string) Option {
	return func(c *clientConfig) {
		c.addrs = addrs
		c.password = password
	}
}

// WithProvider sets the OpenAI-compatible API credentials shared by the
// embedding and chat models. An empty baseURL uses the OpenAI default.
func WithProvider(apiKey, baseURL string) Option {
	return func(c *clientConfig) {
		c.apiKey = apiKey
		c.baseURL = baseURL
	}
}

// WithModels sets the embedding model (with its output dimensionality) and
// the chat model.
func WithModels(embeddingModel string, dimensions int, chatModel string) Option {
	return func(c *clientConfig) {
		c.embeddingModel = embeddingModel
		c.dimensions = dimensions
		c.chatModel = chatModel
	}
}

// WithChunking overrides the splitter parameters.
func WithChunking(size, overlap int) Option {
	return func(c *clientConfig) {
		c.chunkSize = size
		c.chunkOverlap = overlap
	}
}

// WithRetrieval overrides chunks-per-corpus and the retrieval round bound.
func WithRetrieval(topK, maxHops int) Option {
	return func(c *clientConfig) {
		c.topK = topK
		c.maxHops = maxHops
	}
}

// WithPersona sets the system prompt prefix.
func WithPersona(persona string) Option {
	return func(c *clientConfig) { c.persona = persona }
}

// WithKeyPrefix overrides the Redis key namespace.
func WithKeyPrefix(prefix string) Option {
	return func(c *clientConfig) { c.keyPrefix = prefix }
}

// WithLogger attaches a zap logger. Default is no logging.
func WithLogger(logger *zap.Logger) Option {
	return func(c *clientConfig) { c.logger = logger }
}
