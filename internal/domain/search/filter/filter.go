package filter

import (
	"fmt"
	"strings"
)

// DefaultRadiusKm is applied whenever a city is set without an explicit radius.
const DefaultRadiusKm = 50

// Filters are the hard criteria applied before similarity ranking.
type Filters struct {
	City          string   `json:"city,omitempty"`
	MaxDistanceKm float64  `json:"max_distance_km,omitempty"` // only meaningful with City
	Genres        []string `json:"genres,omitempty"`          // OR-matched
	BudgetMax     float64  `json:"budget_max,omitempty"`      // 0 = no cap
}

// ForCity returns filters for a city with the default radius, or no geo
// constraint when city is empty.
func ForCity(city string, genres []string, budgetMax float64) Filters {
	f := Filters{City: city, Genres: genres, BudgetMax: budgetMax}
	if city != "" {
		f.MaxDistanceKm = DefaultRadiusKm
	}
	return f
}

// IsEmpty reports whether no criterion is active. Empty filters skip the
// filtering pass entirely.
func (f Filters) IsEmpty() bool {
	return f.City == "" && len(f.Genres) == 0 && f.BudgetMax <= 0
}

// HasGeo reports whether the distance test applies.
func (f Filters) HasGeo() bool {
	return f.City != "" && f.MaxDistanceKm > 0
}

// Describe summarizes the active criteria for logs.
func (f Filters) Describe() string {
	parts := make([]string, 0, 3)
	if f.City != "" {
		parts = append(parts, fmt.Sprintf("city=%s (%gkm)", f.City, f.MaxDistanceKm))
	}
	if len(f.Genres) > 0 {
		parts = append(parts, "genres="+strings.Join(f.Genres, "|"))
	}
	if f.BudgetMax > 0 {
		parts = append(parts, fmt.Sprintf("budget<=%g", f.BudgetMax))
	}
	if len(parts) == 0 {
		return "(no filters)"
	}
	return strings.Join(parts, ", ")
}
