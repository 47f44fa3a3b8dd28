package domain

import (
	"context"
	"sync/atomic"
)

type usageKey struct{}

// Usage collects provider token consumption for a single request.
// The transport puts a pointer into the context, embedders and completers add to it,
// and the transport reads it back for response headers. Safe for concurrent use.
type Usage struct {
	embedding  atomic.Int64
	completion atomic.Int64
}

// NewContextWithUsage returns a context carrying a fresh usage collector.
func NewContextWithUsage(ctx context.Context) (context.Context, *Usage) {
	u := &Usage{}
	return context.WithValue(ctx, usageKey{}, u), u
}

// UsageFromContext returns the collector, or nil when none is set.
func UsageFromContext(ctx context.Context) *Usage {
	u, _ := ctx.Value(usageKey{}).(*Usage)
	return u
}

// AddEmbedding records embedding tokens. Safe on a nil receiver.
func (u *Usage) AddEmbedding(n int) {
	if u != nil {
		u.embedding.Add(int64(n))
	}
}

// AddCompletion records completion tokens. Safe on a nil receiver.
func (u *Usage) AddCompletion(n int) {
	if u != nil {
		u.completion.Add(int64(n))
	}
}

// EmbeddingTokens returns the embedding tokens recorded so far.
func (u *Usage) EmbeddingTokens() int64 {
	if u == nil {
		return 0
	}
	return u.embedding.Load()
}

// CompletionTokens returns the completion tokens recorded so far.
func (u *Usage) CompletionTokens() int64 {
	if u == nil {
		return 0
	}
	return u.completion.Load()
}
