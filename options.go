package culturai

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	apiKey         string
	baseURL        string
	embeddingModel string
	chatModel      string
	dimensions     int

	documentInstruction string
	queryInstruction    string

	embedder  Embedder
	completer Completer

	cacheAddr     string
	cachePassword string

	indexDir string
	topK     int
	radiusKm float64

	logger     *zap.Logger
	metricsReg prometheus.Registerer
}

// WithOpenAI configures an OpenAI-compatible endpoint for both embeddings and
// completions. An empty baseURL means api.openai.com.
func WithOpenAI(apiKey, baseURL string) Option {
	return optionFunc(func(c *clientConfig) {
		c.apiKey = apiKey
		c.baseURL = baseURL
	})
}

// WithModels overrides the embedding and chat model names.
// Defaults: text-embedding-3-small and gpt-3.5-turbo.
func WithModels(embedding, chat string) Option {
	return optionFunc(func(c *clientConfig) {
		if embedding != "" {
			c.embeddingModel = embedding
		}
		if chat != "" {
			c.chatModel = chat
		}
	})
}

// WithDimensions pins the embedding length. Zero accepts whatever the first
// indexed batch returns.
func WithDimensions(dim int) Option {
	return optionFunc(func(c *clientConfig) {
		c.dimensions = dim
	})
}

// WithInstructions sets the prefixes prepended to event texts and to search
// texts, for models trained with asymmetric instructions.
func WithInstructions(document, query string) Option {
	return optionFunc(func(c *clientConfig) {
		c.documentInstruction = document
		c.queryInstruction = query
	})
}

// WithEmbedder sets a custom embedding provider. It takes precedence over WithOpenAI.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
	})
}

// WithCompleter sets a custom chat backend. It takes precedence over WithOpenAI.
// Without any completer queries are searched as typed and Generate is unavailable.
func WithCompleter(cm Completer) Option {
	return optionFunc(func(c *clientConfig) {
		c.completer = cm
	})
}

// WithRedisCache caches embeddings in a Redis instance.
func WithRedisCache(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheAddr = addr
		c.cachePassword = password
	})
}

// WithIndexDir persists the index under dir and loads it on New.
// Without it the index lives in memory only.
func WithIndexDir(dir string) Option {
	return optionFunc(func(c *clientConfig) {
		c.indexDir = dir
	})
}

// WithTopK sets the number of events returned when neither the call nor the
// profile asks for a count. Default: 5.
func WithTopK(k int) Option {
	return optionFunc(func(c *clientConfig) {
		c.topK = k
	})
}

// WithRadiusKm sets the search radius around a detected city. Default: 50.
func WithRadiusKm(km float64) Option {
	return optionFunc(func(c *clientConfig) {
		c.radiusKm = km
	})
}

// WithLogger enables structured logging. Pass nil to disable (default).
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers client metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
