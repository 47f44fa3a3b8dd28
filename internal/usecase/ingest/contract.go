package ingest

import (
	"context"

	"github.com/kailas-cloud/culturai/internal/domain/event"
)

// Index stores and persists embedded events.
type Index interface {
	Contains(id string) bool
	Add(ctx context.Context, events []event.Event) error
	Save() error
	Count() int
}
