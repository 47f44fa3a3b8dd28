// Package vectorindex is an exact nearest-neighbor index over event embeddings.
//
// Events live in an append-only arena: position i is the i-th event ever added and
// never moves, so callers can restrict a search to positions computed earlier.
package vectorindex

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/culturai/internal/domain"
	"github.com/kailas-cloud/culturai/internal/domain/event"
	"github.com/kailas-cloud/culturai/internal/domain/search/result"
	"github.com/kailas-cloud/culturai/internal/metrics"
)

const (
	defaultBatchSize   = 100
	defaultConcurrency = 4
)

// Index owns the arena. Reads run concurrently; Add and Load are exclusive.
type Index struct {
	documents domain.Embedder // event side
	queries   domain.Embedder // query side

	dir         string
	batchSize   int
	concurrency int
	logger      *zap.Logger

	mu      sync.RWMutex
	dim     int       // 0 until the first vector is stored, unless configured
	vectors []float32 // position i occupies vectors[i*dim : (i+1)*dim]
	events  []event.Event
	ids     map[string]int
}

// Option configures an Index.
type Option func(*Index)

// WithDir sets the directory holding the persisted artifacts.
func WithDir(dir string) Option { return func(ix *Index) { ix.dir = dir } }

// WithDimensions pins the expected vector length. Embeddings of any other length are rejected.
func WithDimensions(dim int) Option { return func(ix *Index) { ix.dim = dim } }

// WithBatchSize sets how many texts go into one embedding call during Add.
func WithBatchSize(n int) Option { return func(ix *Index) { ix.batchSize = n } }

// WithConcurrency bounds the number of embedding calls in flight during Add.
func WithConcurrency(n int) Option { return func(ix *Index) { ix.concurrency = n } }

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option { return func(ix *Index) { ix.logger = l } }

// New creates an empty index. documents embeds event texts, queries embeds search
// texts; they differ only when the model expects asymmetric instructions.
func New(documents, queries domain.Embedder, opts ...Option) *Index {
	ix := &Index{
		documents:   documents,
		queries:     queries,
		batchSize:   defaultBatchSize,
		concurrency: defaultConcurrency,
		logger:      zap.NewNop(),
		ids:         make(map[string]int),
	}
	for _, o := range opts {
		o(ix)
	}
	if ix.batchSize <= 0 {
		ix.batchSize = defaultBatchSize
	}
	if ix.concurrency <= 0 {
		ix.concurrency = defaultConcurrency
	}
	return ix
}

// Add embeds events and appends them to the arena. Either every event is stored or none is.
func (ix *Index) Add(ctx context.Context, events []event.Event) error {
	if len(events) == 0 {
		return nil
	}

	texts := make([]string, len(events))
	for i := range events {
		texts[i] = events[i].Text()
	}
	vecs, err := ix.embedChunks(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed %d events: %w", len(events), err)
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	dim := ix.dim
	if dim == 0 {
		dim = len(vecs[0])
	}
	for i, v := range vecs {
		if len(v) != dim || dim == 0 {
			return fmt.Errorf("event %q: got %d dimensions, want %d: %w",
				events[i].ID, len(v), dim, domain.ErrVectorDimMismatch)
		}
	}

	ix.dim = dim
	ix.vectors = slices.Grow(ix.vectors, len(vecs)*dim)
	for i, v := range vecs {
		ix.vectors = append(ix.vectors, v...)
		ix.ids[events[i].ID] = len(ix.events)
		ix.events = append(ix.events, events[i])
	}
	metrics.IndexedEvents.Set(float64(len(ix.events)))

	ix.logger.Info("Events indexed",
		zap.Int("added", len(events)),
		zap.Int("total", len(ix.events)),
		zap.Int("dimensions", dim),
	)
	return nil
}

// embedChunks embeds texts in batches, several batches at a time, keeping input order.
func (ix *Index) embedChunks(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ix.concurrency)

	for start := 0; start < len(texts); start += ix.batchSize {
		end := min(start+ix.batchSize, len(texts))
		g.Go(func() error {
			res, err := domain.EmbedAll(gctx, ix.documents, texts[start:end])
			if err != nil {
				return fmt.Errorf("chunk [%d:%d]: %w", start, end, err)
			}
			copy(out[start:end], res.Embeddings)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Query ranks every indexed event against text.
func (ix *Index) Query(ctx context.Context, text string, topK int) ([]result.Hit, error) {
	return ix.rank(ctx, text, nil, topK)
}

// QueryRestricted ranks only the events at positions. Positions out of range or
// repeated are ignored. Distances are comparable with Query's.
func (ix *Index) QueryRestricted(ctx context.Context, text string, positions []int, topK int) ([]result.Hit, error) {
	if len(positions) == 0 {
		return nil, nil
	}
	return ix.rank(ctx, text, positions, topK)
}

// rank scores candidates (all positions when nil) by squared L2 distance,
// ascending, ties broken by position.
func (ix *Index) rank(ctx context.Context, text string, positions []int, topK int) ([]result.Hit, error) {
	if topK <= 0 || ix.Count() == 0 {
		return nil, nil
	}

	q, err := ix.queries.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if len(q.Embedding) != ix.dim {
		return nil, fmt.Errorf("query has %d dimensions, index has %d: %w",
			len(q.Embedding), ix.dim, domain.ErrVectorDimMismatch)
	}

	n := len(ix.events)
	var hits []result.Hit
	if positions == nil {
		hits = make([]result.Hit, 0, n)
		for pos := range n {
			hits = append(hits, result.Hit{Position: pos, Distance: ix.distance(q.Embedding, pos)})
		}
	} else {
		seen := make(map[int]struct{}, len(positions))
		hits = make([]result.Hit, 0, len(positions))
		for _, pos := range positions {
			if pos < 0 || pos >= n {
				continue
			}
			if _, dup := seen[pos]; dup {
				continue
			}
			seen[pos] = struct{}{}
			hits = append(hits, result.Hit{Position: pos, Distance: ix.distance(q.Embedding, pos)})
		}
	}

	slices.SortFunc(hits, func(a, b result.Hit) int {
		if c := cmp.Compare(a.Distance, b.Distance); c != 0 {
			return c
		}
		return cmp.Compare(a.Position, b.Position)
	})
	if len(hits) > topK {
		hits = hits[:topK]
	}
	for i := range hits {
		hits[i].Event = ix.events[hits[i].Position]
	}
	return hits, nil
}

// distance is the squared Euclidean distance between q and the vector at pos. Caller holds mu.
func (ix *Index) distance(q []float32, pos int) float64 {
	v := ix.vectors[pos*ix.dim : (pos+1)*ix.dim]
	var sum float64
	for i := range v {
		d := float64(q[i]) - float64(v[i])
		sum += d * d
	}
	return sum
}

// Count returns the number of indexed events.
func (ix *Index) Count() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.events)
}

// Dimensions returns the vector length, 0 while unknown.
func (ix *Index) Dimensions() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.dim
}

// Events returns a snapshot of the arena; slice index = position.
func (ix *Index) Events() []event.Event {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return slices.Clone(ix.events)
}

// Contains reports whether an event with id is indexed.
func (ix *Index) Contains(id string) bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	_, ok := ix.ids[id]
	return ok
}
