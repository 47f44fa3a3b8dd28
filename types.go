package culturai

import (
	"github.com/kailas-cloud/culturai/internal/domain"
	"github.com/kailas-cloud/culturai/internal/domain/event"
	"github.com/kailas-cloud/culturai/internal/domain/geo"
	"github.com/kailas-cloud/culturai/internal/domain/intent"
	"github.com/kailas-cloud/culturai/internal/domain/profile"
	"github.com/kailas-cloud/culturai/internal/domain/search/filter"
	"github.com/kailas-cloud/culturai/internal/domain/search/pass"
	"github.com/kailas-cloud/culturai/internal/domain/search/result"
	"github.com/kailas-cloud/culturai/internal/usecase/ingest"
	"github.com/kailas-cloud/culturai/internal/usecase/retrieval"
)

// Pipeline values.
type (
	Event        = event.Event
	Profile      = profile.Profile
	Intent       = intent.QueryIntent
	Filters      = filter.Filters
	Hit          = result.Hit
	Outcome      = retrieval.Outcome
	Pass         = pass.Pass
	Quality      = pass.Quality
	IngestReport = ingest.Report
	Point        = geo.Point
)

// Provider contracts. Implement Embedder to plug a local model; implement
// Completer to plug any chat backend.
type (
	Embedder             = domain.Embedder
	BatchEmbedder        = domain.BatchEmbedder
	EmbeddingResult      = domain.EmbeddingResult
	BatchEmbeddingResult = domain.BatchEmbeddingResult
	Completer            = domain.Completer
	ChatMessage          = domain.ChatMessage
	CompletionParams     = domain.CompletionParams
	Completion           = domain.Completion
)

// Passes and first-pass verdicts.
const (
	PassQuery    = pass.Query
	PassRefined  = pass.Refined
	PassEnriched = pass.Enriched

	QualityGood     = pass.Good
	QualityMediocre = pass.Mediocre
	QualityEmpty    = pass.Empty
)
