// Package pass names the retrieval passes and the quality verdict of a first pass.
package pass

// Pass identifies which retrieval strategy produced a result.
type Pass string

// Retrieval strategies.
const (
	// Query uses only what was extracted from the user's query.
	Query Pass = "query"
	// Refined re-extracts intent from the query plus a user clarification.
	Refined Pass = "refined"
	// Enriched keeps the query intent and fills its gaps from the user profile.
	Enriched Pass = "enriched"
)

// Quality is the verdict on a first-pass result set.
type Quality string

// Quality values. Secondary passes are terminal and left unrated.
const (
	Good     Quality = "good"
	Mediocre Quality = "mediocre"
	Empty    Quality = "empty"
	Unrated  Quality = ""
)

// Escalates reports whether the caller may follow up with a secondary pass.
func (q Quality) Escalates() bool {
	return q == Mediocre || q == Empty
}
