// Package retrieval drives filter-then-rank searches and the pass escalation protocol.
package retrieval

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/culturai/internal/domain"
	"github.com/kailas-cloud/culturai/internal/domain/intent"
	"github.com/kailas-cloud/culturai/internal/domain/profile"
	"github.com/kailas-cloud/culturai/internal/domain/search/filter"
	"github.com/kailas-cloud/culturai/internal/domain/search/pass"
	"github.com/kailas-cloud/culturai/internal/domain/search/result"
	"github.com/kailas-cloud/culturai/internal/metrics"
)

// Top-k defaults used when Config leaves them unset.
const (
	DefaultTopK = 5
	MaxTopK     = 50
)

// Config tunes the orchestrator.
type Config struct {
	DefaultTopK int
	MaxTopK     int
	RadiusKm    float64 // search radius around a detected city
}

// Options are per-call knobs. TopK wins over Profile, which wins over the configured default.
type Options struct {
	TopK    int
	Profile *profile.Profile
}

// Outcome is the full state of one pass, handed to the caller that decides on escalation.
type Outcome struct {
	Pass      pass.Pass
	Intent    intent.QueryIntent
	Filters   filter.Filters
	Hits      []result.Hit
	Distances map[string]float64 // km from the searched city, by event ID
	Quality   pass.Quality
	Note      string // what the query lacked, empty when nothing obvious
}

// CanEscalate reports whether a refined or enriched pass may follow.
// Secondary passes are terminal.
func (o *Outcome) CanEscalate() bool {
	return o.Pass == pass.Query && o.Quality.Escalates()
}

// Service runs retrieval passes.
type Service struct {
	index     Index
	extractor IntentExtractor
	filters   FilterEngine
	cfg       Config
	logger    *zap.Logger
}

// New creates a retrieval service.
func New(index Index, extractor IntentExtractor, filters FilterEngine, cfg Config, logger *zap.Logger) *Service {
	if cfg.DefaultTopK <= 0 {
		cfg.DefaultTopK = DefaultTopK
	}
	if cfg.MaxTopK <= 0 {
		cfg.MaxTopK = MaxTopK
	}
	if cfg.RadiusKm <= 0 {
		cfg.RadiusKm = filter.DefaultRadiusKm
	}
	return &Service{index: index, extractor: extractor, filters: filters, cfg: cfg, logger: logger}
}

// Extract reads the intent of query without searching.
func (s *Service) Extract(ctx context.Context, query string) intent.QueryIntent {
	return s.extractor.Extract(ctx, query)
}

// Search embeds the intent's search text and ranks either the whole index
// (empty filters) or only the eligible events.
func (s *Service) Search(
	ctx context.Context, in intent.QueryIntent, f filter.Filters, topK int,
) ([]result.Hit, map[string]float64, error) {
	text := in.SearchText()

	if f.IsEmpty() {
		hits, err := s.index.Query(ctx, text, topK)
		if err != nil {
			return nil, nil, fmt.Errorf("query index: %w", err)
		}
		return hits, map[string]float64{}, nil
	}

	eligible, distances := s.filters.Apply(s.index.Events(), f)
	if len(eligible) == 0 {
		return nil, distances, nil
	}

	hits, err := s.index.QueryRestricted(ctx, text, eligible, topK)
	if err != nil {
		return nil, nil, fmt.Errorf("query eligible events: %w", err)
	}
	return hits, distances, nil
}

// FirstPass extracts intent from query, searches with strict filters and rates the result.
func (s *Service) FirstPass(ctx context.Context, query string, opts Options) (*Outcome, error) {
	if strings.TrimSpace(query) == "" {
		return nil, domain.ErrInvalidQuery
	}
	start := time.Now()

	in := s.extractor.Extract(ctx, query)
	out, err := s.run(ctx, pass.Query, in, s.strict(in), s.topK(opts))
	if err != nil {
		return nil, err
	}

	switch {
	case len(out.Hits) == 0:
		out.Quality = pass.Empty
	case s.filters.EvaluateQuality(len(out.Hits)):
		out.Quality = pass.Good
	default:
		out.Quality = pass.Mediocre
	}
	if out.Quality != pass.Good {
		out.Note = intent.DiagnoseMissing(in)
	}

	s.observe(out, start)
	return out, nil
}

// RefinedPass re-extracts intent from the query followed by the user's
// clarification and searches with strict filters.
func (s *Service) RefinedPass(ctx context.Context, query, clarification string, opts Options) (*Outcome, error) {
	combined := strings.TrimSpace(strings.TrimSpace(query) + " " + strings.TrimSpace(clarification))
	if combined == "" {
		return nil, domain.ErrInvalidQuery
	}
	start := time.Now()

	in := s.extractor.Extract(ctx, combined)
	out, err := s.run(ctx, pass.Refined, in, s.strict(in), s.topK(opts))
	if err != nil {
		return nil, err
	}

	s.observe(out, start)
	return out, nil
}

// EnrichedPass keeps the first-pass intent and fills its gaps from p.
func (s *Service) EnrichedPass(
	ctx context.Context, in intent.QueryIntent, p *profile.Profile, opts Options,
) (*Outcome, error) {
	if p == nil {
		return nil, domain.ErrProfileRequired
	}
	start := time.Now()

	if opts.Profile == nil {
		opts.Profile = p
	}
	f := in.ToFiltersEnriched(p)
	s.applyRadius(&f)

	out, err := s.run(ctx, pass.Enriched, in, f, s.topK(opts))
	if err != nil {
		return nil, err
	}

	s.observe(out, start)
	return out, nil
}

func (s *Service) run(
	ctx context.Context, p pass.Pass, in intent.QueryIntent, f filter.Filters, topK int,
) (*Outcome, error) {
	hits, distances, err := s.Search(ctx, in, f, topK)
	if err != nil {
		return nil, fmt.Errorf("%s pass: %w", p, err)
	}
	return &Outcome{
		Pass:      p,
		Intent:    in,
		Filters:   f,
		Hits:      hits,
		Distances: distances,
		Quality:   pass.Unrated,
	}, nil
}

func (s *Service) strict(in intent.QueryIntent) filter.Filters {
	f := in.ToFilters()
	s.applyRadius(&f)
	return f
}

func (s *Service) applyRadius(f *filter.Filters) {
	if f.City != "" {
		f.MaxDistanceKm = s.cfg.RadiusKm
	}
}

func (s *Service) topK(opts Options) int {
	k := s.cfg.DefaultTopK
	switch {
	case opts.TopK > 0:
		k = opts.TopK
	case opts.Profile != nil:
		k = opts.Profile.TopK()
	}
	return min(k, s.cfg.MaxTopK)
}

func (s *Service) observe(out *Outcome, start time.Time) {
	quality := string(out.Quality)
	if quality == "" {
		quality = "unrated"
	}
	metrics.RetrievalPassesTotal.WithLabelValues(string(out.Pass), quality).Inc()
	metrics.RetrievalPassDuration.WithLabelValues(string(out.Pass)).Observe(time.Since(start).Seconds())

	s.logger.Info("Retrieval pass completed",
		zap.String("pass", string(out.Pass)),
		zap.String("quality", quality),
		zap.String("filters", out.Filters.Describe()),
		zap.Int("hits", len(out.Hits)),
		zap.Int("indexed", s.index.Count()),
		zap.Duration("duration", time.Since(start)),
	)
}
