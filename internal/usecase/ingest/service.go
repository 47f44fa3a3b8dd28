// Package ingest loads event listings into the vector index.
package ingest

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/kailas-cloud/culturai/internal/domain"
	"github.com/kailas-cloud/culturai/internal/domain/event"
	"github.com/kailas-cloud/culturai/internal/domain/geo"
)

// Report summarizes one ingestion run.
type Report struct {
	Received   int `json:"received"`
	Added      int `json:"added"`
	MissingID  int `json:"skipped_missing_id"`
	Duplicates int `json:"skipped_duplicates"`
	// BadCoordinates counts added events whose out-of-range location was reset to unknown.
	BadCoordinates int  `json:"cleared_bad_coordinates"`
	Persisted      bool `json:"persisted"`
}

// Service appends new events to the index and persists it.
type Service struct {
	index  Index
	logger *zap.Logger
}

// New creates an ingestion service.
func New(index Index, logger *zap.Logger) *Service {
	return &Service{index: index, logger: logger}
}

// ReadFile decodes a JSON array of events.
func ReadFile(path string) ([]event.Event, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read events file: %w", err)
	}
	var events []event.Event
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, fmt.Errorf("decode events file %s: %w", path, err)
	}
	return events, nil
}

// IngestFile reads path and ingests its events.
func (s *Service) IngestFile(ctx context.Context, path string) (Report, error) {
	events, err := ReadFile(path)
	if err != nil {
		return Report{}, err
	}
	return s.Ingest(ctx, events)
}

// Ingest skips events without an ID or already known (indexed or earlier in
// the batch), adds the rest and saves the index. An index without a storage
// directory stays in memory.
func (s *Service) Ingest(ctx context.Context, events []event.Event) (Report, error) {
	rep := Report{Received: len(events)}

	seen := make(map[string]struct{}, len(events))
	fresh := make([]event.Event, 0, len(events))
	for i := range events {
		ev := events[i]
		ev.ID = strings.TrimSpace(ev.ID)
		if ev.ID == "" {
			rep.MissingID++
			continue
		}
		if _, dup := seen[ev.ID]; dup || s.index.Contains(ev.ID) {
			rep.Duplicates++
			continue
		}
		seen[ev.ID] = struct{}{}
		if ev.HasCoordinates() && !geo.ValidateCoordinates(ev.Latitude, ev.Longitude) {
			s.logger.Warn("Clearing out-of-range coordinates",
				zap.String("id", ev.ID),
				zap.Float64("latitude", ev.Latitude),
				zap.Float64("longitude", ev.Longitude),
			)
			ev.Latitude, ev.Longitude = 0, 0
			rep.BadCoordinates++
		}
		fresh = append(fresh, ev)
	}

	if len(fresh) == 0 {
		s.logger.Info("Nothing new to ingest", zap.Int("received", rep.Received))
		return rep, nil
	}

	if err := s.index.Add(ctx, fresh); err != nil {
		return rep, fmt.Errorf("add events: %w", err)
	}
	rep.Added = len(fresh)

	switch err := s.index.Save(); {
	case err == nil:
		rep.Persisted = true
	case errors.Is(err, domain.ErrIndexNotPersistent):
		s.logger.Warn("Index is not persistent, keeping events in memory only")
	default:
		return rep, fmt.Errorf("save index: %w", err)
	}

	s.logger.Info("Events ingested",
		zap.Int("received", rep.Received),
		zap.Int("added", rep.Added),
		zap.Int("skipped_missing_id", rep.MissingID),
		zap.Int("skipped_duplicates", rep.Duplicates),
		zap.Int("cleared_bad_coordinates", rep.BadCoordinates),
		zap.Int("total", s.index.Count()),
	)
	return rep, nil
}

// Bucket is one value with its number of events.
type Bucket struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// Stats describes the indexed catalogue.
type Stats struct {
	Total  int      `json:"total"`
	Genres []Bucket `json:"top_genres"`
	Cities []Bucket `json:"top_cities"`
}

// Summarize counts events per genre and city, keeping the top n of each.
func Summarize(events []event.Event, n int) Stats {
	genres := make(map[string]int)
	cities := make(map[string]int)
	for i := range events {
		genres[events[i].Genre]++
		cities[events[i].City]++
	}
	return Stats{Total: len(events), Genres: top(genres, n), Cities: top(cities, n)}
}

func top(counts map[string]int, n int) []Bucket {
	out := make([]Bucket, 0, len(counts))
	for v, c := range counts {
		out = append(out, Bucket{Value: v, Count: c})
	}
	slices.SortFunc(out, func(a, b Bucket) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Value, b.Value)
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
