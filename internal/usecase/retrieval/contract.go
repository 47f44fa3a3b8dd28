package retrieval

import (
	"context"

	"github.com/kailas-cloud/culturai/internal/domain/event"
	"github.com/kailas-cloud/culturai/internal/domain/intent"
	"github.com/kailas-cloud/culturai/internal/domain/search/filter"
	"github.com/kailas-cloud/culturai/internal/domain/search/result"
)

// Index ranks indexed events by similarity to a text.
type Index interface {
	Count() int
	Events() []event.Event
	Query(ctx context.Context, text string, topK int) ([]result.Hit, error)
	QueryRestricted(ctx context.Context, text string, positions []int, topK int) ([]result.Hit, error)
}

// IntentExtractor reads a structured intent from a raw query.
type IntentExtractor interface {
	Extract(ctx context.Context, query string) intent.QueryIntent
}

// FilterEngine narrows the candidate set and rates first-pass results.
type FilterEngine interface {
	Apply(events []event.Event, f filter.Filters) ([]int, map[string]float64)
	EvaluateQuality(count int) bool
}
