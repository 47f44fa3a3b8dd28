package result

import "github.com/kailas-cloud/culturai/internal/domain/event"

// Hit is one ranked event. Distance is the squared L2 distance between the query
// embedding and the event embedding: smaller is more similar.
type Hit struct {
	Position int
	Event    event.Event
	Distance float64
}

// Events strips ranking data, keeping order.
func Events(hits []Hit) []event.Event {
	out := make([]event.Event, len(hits))
	for i, h := range hits {
		out[i] = h.Event
	}
	return out
}
