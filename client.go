package culturai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	dbRedis "github.com/kailas-cloud/culturai/internal/db/redis"
	"github.com/kailas-cloud/culturai/internal/domain"
	"github.com/kailas-cloud/culturai/internal/domain/geo"
	"github.com/kailas-cloud/culturai/internal/repository/embcache"
	"github.com/kailas-cloud/culturai/internal/repository/vectorindex"
	openaiT "github.com/kailas-cloud/culturai/internal/transport/openai"
	"github.com/kailas-cloud/culturai/internal/usecase/completion"
	embeddinguc "github.com/kailas-cloud/culturai/internal/usecase/embedding"
	"github.com/kailas-cloud/culturai/internal/usecase/filter"
	"github.com/kailas-cloud/culturai/internal/usecase/generation"
	"github.com/kailas-cloud/culturai/internal/usecase/ingest"
	intentuc "github.com/kailas-cloud/culturai/internal/usecase/intent"
	"github.com/kailas-cloud/culturai/internal/usecase/retrieval"
)

const (
	defaultReadinessTimeout = 10 * time.Second
	defaultEmbeddingModel   = "text-embedding-3-small"
	defaultChatModel        = "gpt-3.5-turbo"
	providerName            = "openai"
)

// Client is the culturai entry point: an in-process index plus the retrieval pipeline.
type Client struct {
	index      *vectorindex.Index
	cache      *dbRedis.Store
	ingestSvc  *ingest.Service
	retrieval  *retrieval.Service
	generation *generation.Service // nil without a completer
	obs        *observer
}

// New assembles a Client. An embedder is required, either through WithEmbedder
// or WithOpenAI. When WithIndexDir is set, a previously saved index is loaded.
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		embeddingModel: defaultEmbeddingModel,
		chatModel:      defaultChatModel,
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.embedder == nil && cfg.apiKey == "" {
		return nil, errors.New("culturai: embedder required (use WithEmbedder or WithOpenAI)")
	}

	logger := cfg.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	c := &Client{obs: obs}

	base := cfg.embedder
	if base == nil {
		base = openaiT.NewEmbedder(&openaiT.Config{
			APIKey:     cfg.apiKey,
			BaseURL:    cfg.baseURL,
			Model:      cfg.embeddingModel,
			Dimensions: cfg.dimensions,
			Provider:   providerName,
		}, logger)
	}

	if cfg.cacheAddr != "" {
		store, err := connectCache(cfg)
		if err != nil {
			return nil, err
		}
		c.cache = store
		namespace := fmt.Sprintf("%s:%s:%d", providerName, cfg.embeddingModel, cfg.dimensions)
		base = embcache.New(base, store, namespace, logger)
	}

	base = embeddinguc.NewInstrumentedEmbedder(base, providerName, cfg.embeddingModel, 0, logger)

	c.index = vectorindex.New(
		withInstruction(base, cfg.documentInstruction),
		withInstruction(base, cfg.queryInstruction),
		vectorindex.WithDir(cfg.indexDir),
		vectorindex.WithDimensions(cfg.dimensions),
		vectorindex.WithLogger(logger),
	)
	if cfg.indexDir != "" {
		if _, err := c.index.Load(); err != nil {
			c.Close()
			return nil, fmt.Errorf("culturai: load index: %w", err)
		}
	}

	completer := cfg.completer
	if completer == nil && cfg.apiKey != "" {
		chat := openaiT.NewChat(&openaiT.Config{
			APIKey:   cfg.apiKey,
			BaseURL:  cfg.baseURL,
			Model:    cfg.chatModel,
			Provider: providerName,
		}, logger)
		completer = completion.NewBreakerCompleter(chat, completion.BreakerSettings{}, logger)
	}

	gazetteer := geo.DefaultGazetteer()
	extractor := intentuc.NewExtractor(gazetteer, completer, logger)
	if completer != nil {
		c.generation = generation.New(completer, generation.DefaultParams, 0, logger)
	}

	c.ingestSvc = ingest.New(c.index, logger)
	c.retrieval = retrieval.New(c.index, extractor, filter.NewEngine(gazetteer, logger), retrieval.Config{
		DefaultTopK: cfg.topK,
		RadiusKm:    cfg.radiusKm,
	}, logger)

	return c, nil
}

func connectCache(cfg *clientConfig) (*dbRedis.Store, error) {
	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:      []string{cfg.cacheAddr},
		Password:   cfg.cachePassword,
		Standalone: true,
	})
	if err != nil {
		return nil, fmt.Errorf("culturai: create redis cache: %w", err)
	}
	if err := store.WaitForReady(context.Background(), defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("culturai: redis cache not ready: %w", err)
	}
	return store, nil
}

func withInstruction(e Embedder, instruction string) Embedder {
	if instruction == "" {
		return e
	}
	return domain.NewInstructionEmbedder(e, instruction)
}

// Close releases the embedding cache connection, if any.
func (c *Client) Close() {
	if c.cache != nil {
		c.cache.Close()
	}
}

// Count returns the number of indexed events.
func (c *Client) Count() int {
	return c.index.Count()
}

// Events returns a snapshot of the indexed events in index order.
func (c *Client) Events() []Event {
	return c.index.Events()
}

// Ingest indexes the events whose IDs are new and saves the index when
// WithIndexDir is set.
func (c *Client) Ingest(ctx context.Context, events []Event) (IngestReport, error) {
	start := time.Now()
	rep, err := c.ingestSvc.Ingest(ctx, events)
	c.obs.observe("ingest", start, err)
	return rep, err
}

// IngestFile reads a JSON array of events from path and ingests it.
func (c *Client) IngestFile(ctx context.Context, path string) (IngestReport, error) {
	start := time.Now()
	rep, err := c.ingestSvc.IngestFile(ctx, path)
	c.obs.observe("ingest_file", start, err)
	return rep, err
}

// Recommend runs the first pass for query. p is optional and only sizes the
// result set here; use Enrich to let it fill intent gaps.
func (c *Client) Recommend(ctx context.Context, query string, p *Profile) (*Outcome, error) {
	start := time.Now()
	out, err := c.retrieval.FirstPass(ctx, query, retrieval.Options{Profile: p})
	c.obs.observe("recommend", start, err)
	return out, err
}

// Refine searches again with query followed by the user's clarification.
func (c *Client) Refine(ctx context.Context, query, clarification string, p *Profile) (*Outcome, error) {
	start := time.Now()
	out, err := c.retrieval.RefinedPass(ctx, query, clarification, retrieval.Options{Profile: p})
	c.obs.observe("refine", start, err)
	return out, err
}

// Enrich searches again with in, filling its missing city, genres and budget from p.
func (c *Client) Enrich(ctx context.Context, in Intent, p *Profile) (*Outcome, error) {
	start := time.Now()
	out, err := c.retrieval.EnrichedPass(ctx, in, p, retrieval.Options{})
	c.obs.observe("enrich", start, err)
	return out, err
}

// Generate writes a short recommendation over the events of out.
func (c *Client) Generate(ctx context.Context, out *Outcome, p *Profile) (string, error) {
	start := time.Now()
	text, err := c.generate(ctx, out, p)
	c.obs.observe("generate", start, err)
	return text, err
}

func (c *Client) generate(ctx context.Context, out *Outcome, p *Profile) (string, error) {
	if c.generation == nil {
		return "", fmt.Errorf("culturai: no completer configured: %w", ErrCompletionUnavailable)
	}
	if out == nil {
		return "", ErrNoEvents
	}
	return c.generation.Generate(ctx, out.Intent.RawQuery, out.Hits, p, out.Distances)
}
