package intent

import (
	"testing"

	"github.com/kailas-cloud/culturai/internal/domain/profile"
	"github.com/kailas-cloud/culturai/internal/domain/search/filter"
)

func TestSearchText(t *testing.T) {
	q := QueryIntent{RawQuery: "jazz a lyon"}
	if got := q.SearchText(); got != "jazz a lyon" {
		t.Errorf("expected raw fallback, got %q", got)
	}
	q.SemanticQuery = "  concert jazz, club, Lyon  "
	if got := q.SearchText(); got != "concert jazz, club, Lyon" {
		t.Errorf("expected semantic query, got %q", got)
	}
}

func TestToFilters(t *testing.T) {
	q := QueryIntent{City: "lyon", Genres: []string{"Jazz"}, BudgetMax: 30}
	f := q.ToFilters()

	if f.City != "lyon" || f.MaxDistanceKm != filter.DefaultRadiusKm {
		t.Errorf("unexpected geo part: %+v", f)
	}
	if len(f.Genres) != 1 || f.Genres[0] != "Jazz" || f.BudgetMax != 30 {
		t.Errorf("unexpected filters: %+v", f)
	}

	f.Genres[0] = "Rock"
	if q.Genres[0] != "Jazz" {
		t.Error("filters must not alias intent genres")
	}
}

func TestToFilters_NoCityNoRadius(t *testing.T) {
	f := QueryIntent{Genres: []string{"Jazz"}}.ToFilters()
	if f.MaxDistanceKm != 0 {
		t.Errorf("expected no radius without city, got %v", f.MaxDistanceKm)
	}
}

func TestToFiltersEnriched_ProfileFillsGaps(t *testing.T) {
	p := &profile.Profile{City: "Paris", PreferredGenres: []string{"Opera"}, BudgetMax: 50}

	f := QueryIntent{RawQuery: "une sortie"}.ToFiltersEnriched(p)

	if f.City != "paris" || f.MaxDistanceKm != filter.DefaultRadiusKm {
		t.Errorf("expected home city fallback, got %+v", f)
	}
	if len(f.Genres) != 1 || f.Genres[0] != "Opera" {
		t.Errorf("expected profile genres, got %v", f.Genres)
	}
	if f.BudgetMax != 50 {
		t.Errorf("expected profile budget, got %v", f.BudgetMax)
	}
}

func TestToFiltersEnriched_SearchCityBeforeHomeCity(t *testing.T) {
	p := &profile.Profile{City: "Paris", SearchCity: "Lille"}
	f := QueryIntent{}.ToFiltersEnriched(p)
	if f.City != "lille" {
		t.Errorf("expected search city, got %q", f.City)
	}
}

func TestToFiltersEnriched_IntentWinsPerField(t *testing.T) {
	p := &profile.Profile{City: "Paris", PreferredGenres: []string{"Opera"}, BudgetMax: 50}
	q := QueryIntent{City: "lyon", BudgetMax: 20}

	f := q.ToFiltersEnriched(p)

	if f.City != "lyon" {
		t.Errorf("intent city must win, got %q", f.City)
	}
	if f.BudgetMax != 20 {
		t.Errorf("intent budget must win, got %v", f.BudgetMax)
	}
	if len(f.Genres) != 1 || f.Genres[0] != "Opera" {
		t.Errorf("missing genres should come from profile, got %v", f.Genres)
	}
}

func TestToFiltersEnriched_NilProfile(t *testing.T) {
	q := QueryIntent{Genres: []string{"Rock"}}
	f := q.ToFiltersEnriched(nil)
	if f.City != "" || len(f.Genres) != 1 || f.BudgetMax != 0 {
		t.Errorf("nil profile should behave like ToFilters, got %+v", f)
	}
}

func TestDiagnoseMissing(t *testing.T) {
	tests := []struct {
		name string
		q    QueryIntent
		want string
	}{
		{"both", QueryIntent{}, "Tu n'as pas precise de ville ni de type d'evenement"},
		{"city only missing", QueryIntent{Genres: []string{"Jazz"}}, "Tu n'as pas precise de ville"},
		{"genre only missing", QueryIntent{City: "lyon"}, "Tu n'as pas precise de type d'evenement"},
		{"nothing missing", QueryIntent{City: "lyon", Genres: []string{"Jazz"}}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DiagnoseMissing(tt.q); got != tt.want {
				t.Errorf("DiagnoseMissing() = %q, want %q", got, tt.want)
			}
		})
	}
}
