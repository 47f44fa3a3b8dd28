package vectorindex

import (
	"context"
	"errors"
	"sync"

	"github.com/kailas-cloud/culturai/internal/domain"
	"github.com/kailas-cloud/culturai/internal/domain/event"
)

// tableEmbedder returns fixed vectors per text. Unknown texts get the zero vector of width dim.
type tableEmbedder struct {
	vectors map[string][]float32
	dim     int
	failOn  string

	mu    sync.Mutex
	calls int
}

func (e *tableEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()

	if e.failOn != "" && text == e.failOn {
		return domain.EmbeddingResult{}, errors.New("provider down")
	}
	if v, ok := e.vectors[text]; ok {
		return domain.EmbeddingResult{Embedding: v, TotalTokens: 1}, nil
	}
	return domain.EmbeddingResult{Embedding: make([]float32, e.dim), TotalTokens: 1}, nil
}

func (e *tableEmbedder) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// named builds an event whose Text() is exactly name.
func named(id, name string) event.Event {
	return event.Event{ID: id, Name: name}
}

func fixtureEmbedder() *tableEmbedder {
	return &tableEmbedder{dim: 2, vectors: map[string][]float32{
		"a": {0, 0},
		"b": {1, 0},
		"c": {0, 1},
		"d": {3, 0},
		"q": {0, 0},
	}}
}

func fixtureEvents() []event.Event {
	return []event.Event{named("ev-a", "a"), named("ev-b", "b"), named("ev-c", "c"), named("ev-d", "d")}
}
