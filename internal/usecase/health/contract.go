package health

import "context"

// IndexCounter reports how many events are searchable.
type IndexCounter interface {
	Count() int
}

// CachePinger checks embedding cache availability.
type CachePinger interface {
	Ping(ctx context.Context) error
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}

// CompletionGate reports whether chat completions are currently let through.
type CompletionGate interface {
	Available() bool
}
