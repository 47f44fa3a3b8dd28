// Package profile holds the optional user preferences used to enrich a search.
package profile

import (
	"fmt"
	"strings"
)

// Top-k bounds derived from openness.
const (
	MinTopK = 5
	MaxTopK = 15
)

// Profile is read-only input to the pipeline. Explicit query intent always wins over it.
type Profile struct {
	Name            string   `json:"name" yaml:"name"`
	City            string   `json:"city" yaml:"city"`               // home city
	SearchCity      string   `json:"search_city" yaml:"search_city"` // preferred search area, falls back to City
	PreferredGenres []string `json:"preferred_genres" yaml:"preferred_genres"`
	PreferredCities []string `json:"preferred_cities" yaml:"preferred_cities"`
	BudgetMax       float64  `json:"budget_max" yaml:"budget_max"`
	Openness        float64  `json:"openness" yaml:"openness"` // 0 = stick to preferences, 1 = fully exploratory
}

// EffectiveCity returns SearchCity, or City when no search city is set.
func (p *Profile) EffectiveCity() string {
	if p == nil {
		return ""
	}
	if c := strings.TrimSpace(p.SearchCity); c != "" {
		return c
	}
	return strings.TrimSpace(p.City)
}

// TopK scales the number of candidates with openness: 5 at 0.0, 15 at 1.0.
func (p *Profile) TopK() int {
	if p == nil {
		return MinTopK
	}
	return MinTopK + int(clamp01(p.Openness)*float64(MaxTopK-MinTopK))
}

// PromptContext renders the profile for the generation prompt.
func (p *Profile) PromptContext() string {
	if p == nil {
		return ""
	}
	lines := []string{"Nom : " + p.Name}
	if p.City != "" {
		lines = append(lines, "Ville : "+p.City)
	}
	if p.SearchCity != "" && p.SearchCity != p.City {
		lines = append(lines, "Ville de recherche : "+p.SearchCity)
	}
	if len(p.PreferredGenres) > 0 {
		lines = append(lines, "Genres preferes : "+strings.Join(p.PreferredGenres, ", "))
	}
	if len(p.PreferredCities) > 0 {
		lines = append(lines, "Villes preferees : "+strings.Join(p.PreferredCities, ", "))
	}
	if p.BudgetMax > 0 {
		lines = append(lines, fmt.Sprintf("Budget max : %.0f EUR", p.BudgetMax))
	}
	lines = append(lines, fmt.Sprintf("Ouverture a la decouverte : %.1f/1.0", clamp01(p.Openness)))
	return strings.Join(lines, "\n")
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
