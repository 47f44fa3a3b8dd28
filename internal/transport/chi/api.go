package chi

import (
	"github.com/kailas-cloud/culturai/internal/domain/event"
	"github.com/kailas-cloud/culturai/internal/domain/intent"
	"github.com/kailas-cloud/culturai/internal/domain/profile"
	"github.com/kailas-cloud/culturai/internal/domain/search/filter"
	"github.com/kailas-cloud/culturai/internal/domain/search/result"
	"github.com/kailas-cloud/culturai/internal/usecase/ingest"
	"github.com/kailas-cloud/culturai/internal/usecase/retrieval"
)

// ErrorCode is the machine-readable error kind returned to clients.
type ErrorCode string

// Error codes.
const (
	ErrorCodeBadRequest             ErrorCode = "bad_request"
	ErrorCodeUnauthorized           ErrorCode = "unauthorized"
	ErrorCodeValidationFailed       ErrorCode = "validation_failed"
	ErrorCodeProfileRequired        ErrorCode = "profile_required"
	ErrorCodeNoEvents               ErrorCode = "no_events"
	ErrorCodeVectorDimMismatch      ErrorCode = "vector_dim_mismatch"
	ErrorCodeEmbeddingProviderError ErrorCode = "embedding_provider_error"
	ErrorCodeCompletionUnavailable  ErrorCode = "completion_unavailable"
	ErrorCodeGenerationFailed       ErrorCode = "generation_failed"
	ErrorCodeInternalError          ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// RecommendRequest is the body of POST /v1/recommendations.
type RecommendRequest struct {
	Query    string           `json:"query"`
	TopK     int              `json:"top_k,omitempty"`
	Profile  *profile.Profile `json:"profile,omitempty"`
	Generate bool             `json:"generate,omitempty"`
}

// RefineRequest is the body of POST /v1/recommendations/refine.
type RefineRequest struct {
	Query         string           `json:"query"`
	Clarification string           `json:"clarification"`
	TopK          int              `json:"top_k,omitempty"`
	Profile       *profile.Profile `json:"profile,omitempty"`
	Generate      bool             `json:"generate,omitempty"`
}

// EnrichRequest is the body of POST /v1/recommendations/enrich. Intent, when
// given, is the one returned by the first pass; otherwise Query is re-read.
type EnrichRequest struct {
	Query    string              `json:"query"`
	Intent   *intent.QueryIntent `json:"intent,omitempty"`
	Profile  *profile.Profile    `json:"profile"`
	TopK     int                 `json:"top_k,omitempty"`
	Generate bool                `json:"generate,omitempty"`
}

// EventHit is one ranked event.
type EventHit struct {
	event.Event
	Score      float64  `json:"score"`                 // squared L2, smaller is closer
	DistanceKm *float64 `json:"distance_km,omitempty"` // from the searched city
}

// RecommendationResponse reports one retrieval pass.
type RecommendationResponse struct {
	Pass           string             `json:"pass"`
	Quality        string             `json:"quality,omitempty"`
	CanEscalate    bool               `json:"can_escalate"`
	Note           string             `json:"note,omitempty"`
	Intent         intent.QueryIntent `json:"intent"`
	Filters        filter.Filters     `json:"filters"`
	Events         []EventHit         `json:"events"`
	Recommendation string             `json:"recommendation,omitempty"`
}

// IngestResponse reports a POST /v1/events run.
type IngestResponse struct {
	ingest.Report
	Total int `json:"total"`
}

// IndexResponse describes the searchable catalogue.
type IndexResponse struct {
	ingest.Stats
	Dimensions int `json:"dimensions"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Events int               `json:"events"`
	Checks map[string]string `json:"checks"`
}

func outcomeToResponse(out *retrieval.Outcome) RecommendationResponse {
	events := make([]EventHit, len(out.Hits))
	for i, h := range out.Hits {
		events[i] = hitToAPI(h, out.Distances)
	}
	return RecommendationResponse{
		Pass:        string(out.Pass),
		Quality:     string(out.Quality),
		CanEscalate: out.CanEscalate(),
		Note:        out.Note,
		Intent:      out.Intent,
		Filters:     out.Filters,
		Events:      events,
	}
}

func hitToAPI(h result.Hit, distances map[string]float64) EventHit {
	item := EventHit{Event: h.Event, Score: h.Distance}
	if km, ok := distances[h.Event.ID]; ok {
		item.DistanceKm = &km
	}
	return item
}
