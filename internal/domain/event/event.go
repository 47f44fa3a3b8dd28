// Package event defines the cultural event record handled by the retrieval pipeline.
package event

import "strings"

// Event is a single listing. It is a value type: once built it is never mutated,
// and the index that holds it owns its copy.
type Event struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Date        string  `json:"date"`
	URL         string  `json:"url"`
	Venue       string  `json:"venue"`
	City        string  `json:"city"`
	Genre       string  `json:"genre"`
	Price       float64 `json:"price"`     // 0 = unknown or free
	Latitude    float64 `json:"latitude"`  // 0,0 = unknown
	Longitude   float64 `json:"longitude"` // 0,0 = unknown
}

// HasCoordinates reports whether the event carries a usable location.
// (0,0) means "unknown", not the Gulf of Guinea.
func (e Event) HasCoordinates() bool {
	return e.Latitude != 0 || e.Longitude != 0
}

// Text is the projection fed to the embedder. It must stay byte-stable for a given
// event, otherwise vectors reloaded from disk drift from freshly computed ones.
func (e Event) Text() string {
	parts := make([]string, 0, 5)
	for _, p := range []string{e.Name, e.Genre, joinNonEmpty(", ", e.Venue, e.City), e.Date, e.Description} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ". ")
}

func joinNonEmpty(sep string, values ...string) string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return strings.Join(out, sep)
}
