// Package generation turns ranked events into a French recommendation.
package generation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/culturai/internal/domain"
	"github.com/kailas-cloud/culturai/internal/domain/event"
	"github.com/kailas-cloud/culturai/internal/domain/profile"
	"github.com/kailas-cloud/culturai/internal/domain/search/result"
)

// DefaultParams are the completion settings for recommendation prose.
var DefaultParams = domain.CompletionParams{Temperature: 0.7, MaxTokens: 500}

// Service writes recommendations. Unlike query reformulation, failures propagate.
type Service struct {
	completer domain.Completer
	params    domain.CompletionParams
	timeout   time.Duration
	logger    *zap.Logger
}

// New creates a generation service. A zero timeout leaves only the caller's deadline.
func New(completer domain.Completer, params domain.CompletionParams, timeout time.Duration, logger *zap.Logger) *Service {
	if params == (domain.CompletionParams{}) {
		params = DefaultParams
	}
	return &Service{completer: completer, params: params, timeout: timeout, logger: logger}
}

// Generate recommends at most three of hits for query. distances holds km by event ID
// and may be nil; p may be nil.
func (s *Service) Generate(
	ctx context.Context, query string, hits []result.Hit, p *profile.Profile, distances map[string]float64,
) (string, error) {
	if len(hits) == 0 {
		return "", domain.ErrNoEvents
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	prompt := BuildPrompt(query, result.Events(hits), p, distances)
	res, err := s.completer.Complete(ctx, []domain.ChatMessage{
		{Role: domain.RoleUser, Content: prompt},
	}, s.params)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrGenerationFailed, err)
	}

	text := strings.TrimSpace(res.Text)
	if text == "" {
		return "", fmt.Errorf("%w: empty completion", domain.ErrGenerationFailed)
	}

	s.logger.Debug("Recommendation generated",
		zap.Int("events", len(hits)),
		zap.Int("prompt_tokens", res.PromptTokens),
		zap.Int("completion_tokens", res.CompletionTokens),
	)
	return text, nil
}

// BuildPrompt renders the recommendation request.
func BuildPrompt(query string, events []event.Event, p *profile.Profile, distances map[string]float64) string {
	blocks := make([]string, len(events))
	for i := range events {
		blocks[i] = describe(&events[i], distances)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Un utilisateur recherche : '%s'.\n", query)
	if pc := p.PromptContext(); pc != "" {
		b.WriteString("Profil de l'utilisateur :\n")
		b.WriteString(pc)
		b.WriteString("\n\n")
	}
	b.WriteString("Voici une liste d'evenements pertinents :\n\n")
	b.WriteString(strings.Join(blocks, "\n\n"))
	b.WriteString("\n\nEn te basant uniquement sur ces evenements, recommande 3 evenements maximum " +
		"et explique brievement pourquoi chacun correspond bien a ce que recherche l'utilisateur.")
	return b.String()
}

func describe(e *event.Event, distances map[string]float64) string {
	lines := []string{
		"Titre : " + e.Name,
		"Genre : " + e.Genre,
		"Lieu : " + e.Venue,
		"Ville : " + e.City,
		"Date : " + e.Date,
	}
	if km, ok := distances[e.ID]; ok {
		lines = append(lines, fmt.Sprintf("Distance : %.0f km", km))
	}
	if e.Price > 0 {
		lines = append(lines, fmt.Sprintf("Prix : %.2f EUR", e.Price))
	}
	lines = append(lines, "Description : "+e.Description, "Lien : "+e.URL)
	return strings.Join(lines, "\n")
}
