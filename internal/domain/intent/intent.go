// Package intent holds the structured reading of one user utterance.
package intent

import (
	"strings"

	"github.com/kailas-cloud/culturai/internal/domain/profile"
	"github.com/kailas-cloud/culturai/internal/domain/search/filter"
)

// QueryIntent is derived once per user turn and never mutated afterwards.
type QueryIntent struct {
	RawQuery      string   `json:"raw_query"`
	City          string   `json:"city,omitempty"`
	Genres        []string `json:"genres,omitempty"`
	BudgetMax     float64  `json:"budget_max,omitempty"`
	SemanticQuery string   `json:"semantic_query,omitempty"`
}

// SearchText is the text to embed: the reformulation when present, the raw query otherwise.
func (q QueryIntent) SearchText() string {
	if s := strings.TrimSpace(q.SemanticQuery); s != "" {
		return s
	}
	return q.RawQuery
}

// ToFilters builds strict filters from intent fields only.
func (q QueryIntent) ToFilters() filter.Filters {
	return filter.ForCity(q.City, cloneStrings(q.Genres), q.BudgetMax)
}

// ToFiltersEnriched fills each empty intent field from the profile independently:
// search city (else home city), preferred genres, budget. A nil profile yields ToFilters.
func (q QueryIntent) ToFiltersEnriched(p *profile.Profile) filter.Filters {
	city := q.City
	genres := q.Genres
	budget := q.BudgetMax
	if p != nil {
		if city == "" {
			city = strings.ToLower(p.EffectiveCity())
		}
		if len(genres) == 0 {
			genres = p.PreferredGenres
		}
		if budget <= 0 {
			budget = p.BudgetMax
		}
	}
	return filter.ForCity(city, cloneStrings(genres), budget)
}

// DiagnoseMissing explains, in the user's language, which criteria the query lacked.
// Empty when both a city and a genre were detected.
func DiagnoseMissing(q QueryIntent) string {
	missing := make([]string, 0, 2)
	if q.City == "" {
		missing = append(missing, "de ville")
	}
	if len(q.Genres) == 0 {
		missing = append(missing, "de type d'evenement")
	}
	if len(missing) == 0 {
		return ""
	}
	return "Tu n'as pas precise " + strings.Join(missing, " ni ")
}

func cloneStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
