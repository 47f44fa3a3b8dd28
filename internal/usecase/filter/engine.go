// Package filter applies hard eligibility criteria to the indexed events before ranking.
package filter

import (
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/culturai/internal/domain/event"
	"github.com/kailas-cloud/culturai/internal/domain/geo"
	"github.com/kailas-cloud/culturai/internal/domain/search/filter"
	"github.com/kailas-cloud/culturai/internal/metrics"
)

// MinGoodResults is the smallest result count considered a good first pass.
const MinGoodResults = 3

// Engine evaluates Filters against the arena.
type Engine struct {
	gazetteer geo.Gazetteer
	logger    *zap.Logger
}

// NewEngine creates a filter engine resolving cities through gazetteer.
func NewEngine(gazetteer geo.Gazetteer, logger *zap.Logger) *Engine {
	return &Engine{gazetteer: gazetteer, logger: logger}
}

// Apply returns the eligible positions in arena order, plus the distance (km) of
// every event for which one could be computed, keyed by event ID.
// Tests run geo, then genre, then budget; missing data never disqualifies.
func (e *Engine) Apply(events []event.Event, f filter.Filters) ([]int, map[string]float64) {
	distances := make(map[string]float64)
	if f.IsEmpty() {
		all := make([]int, len(events))
		for i := range all {
			all[i] = i
		}
		return all, distances
	}

	genres := make([]string, 0, len(f.Genres))
	for _, g := range f.Genres {
		if g = strings.ToLower(strings.TrimSpace(g)); g != "" {
			genres = append(genres, g)
		}
	}

	var rejectedGeo, rejectedGenre, rejectedBudget int
	eligible := make([]int, 0, len(events))
	for pos := range events {
		ev := &events[pos]

		if f.HasGeo() {
			if km, ok := e.gazetteer.DistanceToEvent(f.City, *ev); ok {
				distances[ev.ID] = km
				if km > f.MaxDistanceKm {
					rejectedGeo++
					continue
				}
			}
		}

		if len(genres) > 0 && !genreMatches(ev.Genre, genres) {
			rejectedGenre++
			continue
		}

		if f.BudgetMax > 0 && ev.Price > f.BudgetMax {
			rejectedBudget++
			continue
		}

		eligible = append(eligible, pos)
	}

	metrics.FilterEligibleCandidates.Observe(float64(len(eligible)))
	e.logger.Debug("Filters applied",
		zap.String("filters", f.Describe()),
		zap.Int("total", len(events)),
		zap.Int("eligible", len(eligible)),
		zap.Int("rejected_geo", rejectedGeo),
		zap.Int("rejected_genre", rejectedGenre),
		zap.Int("rejected_budget", rejectedBudget),
	)
	return eligible, distances
}

// EvaluateQuality reports whether count results make a good pass.
func (e *Engine) EvaluateQuality(count int) bool {
	return count >= MinGoodResults
}

// genreMatches is a case-insensitive exact or two-way substring match.
// wanted must already be lowercased. "pop" matching "k-pop" is accepted.
func genreMatches(genre string, wanted []string) bool {
	g := strings.ToLower(strings.TrimSpace(genre))
	if g == "" {
		return false
	}
	for _, w := range wanted {
		if g == w || strings.Contains(g, w) || strings.Contains(w, g) {
			return true
		}
	}
	return false
}
