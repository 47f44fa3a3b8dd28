// Package intent turns a raw user query into a structured search plan.
package intent

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/culturai/internal/domain"
	"github.com/kailas-cloud/culturai/internal/domain/geo"
	"github.com/kailas-cloud/culturai/internal/domain/intent"
)

const reformulationPrompt = "Reformule cette recherche d'evenements en mots-cles riches, " +
	"dans le style d'une description d'evenement culturel. " +
	"Extrais : type, style/ambiance, thematiques, ville, periode. " +
	"Transforme les negations en positifs (\"pas classique\" -> \"contemporain, moderne\"). " +
	"Reponds UNIQUEMENT la reformulation. Max 50 mots."

// budgetPattern captures "moins de 40€", "budget 30 euros", "max 25".
var budgetPattern = regexp.MustCompile(
	`(?i)(?:moins de|max|maximum|budget|pas plus de|sous les?)\s*(\d+)\s*(?:€|euros?|eur)?`,
)

// DefaultReformulationParams mirror the tuned values of the rewrite call.
var DefaultReformulationParams = domain.CompletionParams{Temperature: 0.3, MaxTokens: 100}

// Extractor reads city, genres and budget heuristically and asks the completer
// for a similarity-friendly rewrite. It never fails: a failed rewrite falls back
// to the raw query.
type Extractor struct {
	gazetteer geo.Gazetteer
	keywords  []Keyword
	completer domain.Completer
	params    domain.CompletionParams
	timeout   time.Duration
	logger    *zap.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithKeywords replaces the genre keyword table.
func WithKeywords(kw []Keyword) Option { return func(e *Extractor) { e.keywords = kw } }

// WithParams overrides the rewrite completion parameters.
func WithParams(p domain.CompletionParams) Option { return func(e *Extractor) { e.params = p } }

// WithTimeout bounds the rewrite call. Zero means only the caller's deadline applies.
func WithTimeout(d time.Duration) Option { return func(e *Extractor) { e.timeout = d } }

// NewExtractor creates an extractor. completer may be nil, which disables the rewrite.
func NewExtractor(gazetteer geo.Gazetteer, completer domain.Completer, logger *zap.Logger, opts ...Option) *Extractor {
	e := &Extractor{
		gazetteer: gazetteer,
		keywords:  DefaultKeywords(),
		completer: completer,
		params:    DefaultReformulationParams,
		logger:    logger,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Extract runs the heuristic stage then the rewrite stage.
func (e *Extractor) Extract(ctx context.Context, query string) intent.QueryIntent {
	lower := strings.ToLower(query)
	in := intent.QueryIntent{
		RawQuery:  query,
		City:      e.detectCity(lower),
		Genres:    e.detectGenres(lower),
		BudgetMax: detectBudget(query),
	}

	e.logger.Debug("Heuristic intent",
		zap.String("city", in.City),
		zap.Strings("genres", in.Genres),
		zap.Float64("budget_max", in.BudgetMax),
	)

	in.SemanticQuery = e.reformulate(ctx, query)

	e.logger.Info("Intent extracted",
		zap.String("raw_query", in.RawQuery),
		zap.String("city", in.City),
		zap.Strings("genres", in.Genres),
		zap.Float64("budget_max", in.BudgetMax),
		zap.String("semantic_query", in.SemanticQuery),
	)
	return in
}

// detectCity returns the first gazetteer name found in lower, scanning longest names first.
func (e *Extractor) detectCity(lower string) string {
	for _, name := range e.gazetteer.Names() {
		if strings.Contains(lower, name) {
			return name
		}
	}
	return ""
}

// detectGenres collects labels in table order, deduplicated.
func (e *Extractor) detectGenres(lower string) []string {
	var specific, generic []string
	seen := make(map[string]struct{})
	for _, kw := range e.keywords {
		if !strings.Contains(lower, kw.Word) {
			continue
		}
		if _, dup := seen[kw.Genre]; dup {
			continue
		}
		seen[kw.Genre] = struct{}{}
		if kw.Generic {
			generic = append(generic, kw.Genre)
		} else {
			specific = append(specific, kw.Genre)
		}
	}
	if len(specific) > 0 {
		return specific
	}
	return generic
}

func detectBudget(query string) float64 {
	m := budgetPattern.FindStringSubmatch(query)
	if m == nil {
		return 0
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0
	}
	return v
}

func (e *Extractor) reformulate(ctx context.Context, query string) string {
	if e.completer == nil {
		return query
	}
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	res, err := e.completer.Complete(ctx, []domain.ChatMessage{
		{Role: domain.RoleSystem, Content: reformulationPrompt},
		{Role: domain.RoleUser, Content: query},
	}, e.params)
	if err != nil {
		e.logger.Warn("Query reformulation failed, using raw query", zap.Error(err))
		return query
	}
	text := strings.TrimSpace(res.Text)
	if text == "" {
		e.logger.Warn("Query reformulation returned nothing, using raw query")
		return query
	}
	return text
}
