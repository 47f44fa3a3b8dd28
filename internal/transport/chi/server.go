// Package chi exposes the recommendation pipeline over HTTP.
package chi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/culturai/internal/domain"
	"github.com/kailas-cloud/culturai/internal/domain/event"
	"github.com/kailas-cloud/culturai/internal/domain/intent"
	"github.com/kailas-cloud/culturai/internal/domain/profile"
	"github.com/kailas-cloud/culturai/internal/domain/search/result"
	"github.com/kailas-cloud/culturai/internal/logger"
	healthuc "github.com/kailas-cloud/culturai/internal/usecase/health"
	"github.com/kailas-cloud/culturai/internal/usecase/ingest"
	"github.com/kailas-cloud/culturai/internal/usecase/retrieval"
)

const (
	maxQueryLen      = 1000
	maxBodyBytes     = 1 << 20
	maxIngestBytes   = 32 << 20
	topGenresInStats = 10
)

// Retriever runs retrieval passes.
type Retriever interface {
	Extract(ctx context.Context, query string) intent.QueryIntent
	FirstPass(ctx context.Context, query string, opts retrieval.Options) (*retrieval.Outcome, error)
	RefinedPass(ctx context.Context, query, clarification string, opts retrieval.Options) (*retrieval.Outcome, error)
	EnrichedPass(
		ctx context.Context, in intent.QueryIntent, p *profile.Profile, opts retrieval.Options,
	) (*retrieval.Outcome, error)
}

// Generator writes recommendation prose.
type Generator interface {
	Generate(
		ctx context.Context, query string, hits []result.Hit, p *profile.Profile, distances map[string]float64,
	) (string, error)
}

// Ingester adds events to the index.
type Ingester interface {
	Ingest(ctx context.Context, events []event.Event) (ingest.Report, error)
}

// Catalogue exposes what is indexed.
type Catalogue interface {
	Count() int
	Dimensions() int
	Events() []event.Event
}

// HealthChecker aggregates component checks.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server holds the HTTP handlers.
type Server struct {
	retriever     Retriever
	generator     Generator
	ingester      Ingester
	catalogue     Catalogue
	health        HealthChecker
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. generator may be nil, which makes
// "generate": true a no-op.
func NewServer(
	retriever Retriever,
	generator Generator,
	ingester Ingester,
	catalogue Catalogue,
	health HealthChecker,
	logger *zap.Logger,
) *Server {
	s := &Server{
		retriever: retriever,
		generator: generator,
		ingester:  ingester,
		catalogue: catalogue,
		health:    health,
		logger:    logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidQuery, http.StatusBadRequest, ErrorCodeValidationFailed),
		sentinelHandler(domain.ErrProfileRequired, http.StatusBadRequest, ErrorCodeProfileRequired),
		sentinelHandler(domain.ErrNoEvents, http.StatusUnprocessableEntity, ErrorCodeNoEvents),
		sentinelHandler(domain.ErrVectorDimMismatch, http.StatusBadGateway, ErrorCodeVectorDimMismatch),
		sentinelHandler(domain.ErrEmbeddingProviderError,
			http.StatusBadGateway, ErrorCodeEmbeddingProviderError),
		sentinelHandler(domain.ErrCompletionUnavailable,
			http.StatusServiceUnavailable, ErrorCodeCompletionUnavailable),
		sentinelHandler(domain.ErrGenerationFailed, http.StatusBadGateway, ErrorCodeGenerationFailed),
	}
	return s
}

// Register mounts every route on r.
func (s *Server) Register(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/recommendations", s.Recommend)
		r.Post("/recommendations/refine", s.Refine)
		r.Post("/recommendations/enrich", s.Enrich)
		r.Get("/index", s.IndexStats)
		r.Post("/events", s.IngestEvents)
	})
}

// Recommend handles POST /v1/recommendations.
func (s *Server) Recommend(w http.ResponseWriter, r *http.Request) {
	var req RecommendRequest
	if !s.decode(w, r, maxBodyBytes, &req) {
		return
	}
	if err := validateQuery(req.Query); err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	out, err := s.retriever.FirstPass(ctx, req.Query, retrieval.Options{TopK: req.TopK, Profile: req.Profile})
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	s.respond(ctx, w, r, usage, out, req.Query, req.Profile, req.Generate)
}

// Refine handles POST /v1/recommendations/refine.
func (s *Server) Refine(w http.ResponseWriter, r *http.Request) {
	var req RefineRequest
	if !s.decode(w, r, maxBodyBytes, &req) {
		return
	}
	if err := validateQuery(req.Query + " " + req.Clarification); err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	out, err := s.retriever.RefinedPass(ctx, req.Query, req.Clarification,
		retrieval.Options{TopK: req.TopK, Profile: req.Profile})
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	s.respond(ctx, w, r, usage, out, out.Intent.RawQuery, req.Profile, req.Generate)
}

// Enrich handles POST /v1/recommendations/enrich.
func (s *Server) Enrich(w http.ResponseWriter, r *http.Request) {
	var req EnrichRequest
	if !s.decode(w, r, maxBodyBytes, &req) {
		return
	}
	if req.Profile == nil {
		s.handleDomainError(w, r, domain.ErrProfileRequired)
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())

	var in intent.QueryIntent
	switch {
	case req.Intent != nil && strings.TrimSpace(req.Intent.RawQuery) != "":
		in = *req.Intent
	default:
		if err := validateQuery(req.Query); err != nil {
			s.handleDomainError(w, r, err)
			return
		}
		in = s.retriever.Extract(ctx, req.Query)
	}

	out, err := s.retriever.EnrichedPass(ctx, in, req.Profile, retrieval.Options{TopK: req.TopK})
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	s.respond(ctx, w, r, usage, out, in.RawQuery, req.Profile, req.Generate)
}

// IngestEvents handles POST /v1/events with a JSON array of events.
func (s *Server) IngestEvents(w http.ResponseWriter, r *http.Request) {
	var events []event.Event
	if !s.decode(w, r, maxIngestBytes, &events) {
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	rep, err := s.ingester.Ingest(ctx, events)
	setUsageHeaders(w, usage)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, IngestResponse{Report: rep, Total: s.catalogue.Count()})
}

// IndexStats handles GET /v1/index.
func (s *Server) IndexStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, IndexResponse{
		Stats:      ingest.Summarize(s.catalogue.Events(), topGenresInStats),
		Dimensions: s.catalogue.Dimensions(),
	})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Events: report.Events,
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// respond optionally generates prose and writes the pass outcome.
// A requested generation that fails is reported as an error.
func (s *Server) respond(
	ctx context.Context, w http.ResponseWriter, r *http.Request, usage *domain.Usage,
	out *retrieval.Outcome, query string, p *profile.Profile, generate bool,
) {
	resp := outcomeToResponse(out)

	if generate && s.generator != nil && len(out.Hits) > 0 {
		text, err := s.generator.Generate(ctx, query, out.Hits, p, out.Distances)
		if err != nil {
			setUsageHeaders(w, usage)
			s.handleDomainError(w, r, err)
			return
		}
		resp.Recommendation = text
	}

	setUsageHeaders(w, usage)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, limit int64, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

func validateQuery(q string) error {
	q = strings.TrimSpace(q)
	if q == "" {
		return fmt.Errorf("%w: query is required", domain.ErrInvalidQuery)
	}
	if len(q) > maxQueryLen {
		return fmt.Errorf("%w: query exceeds %d bytes", domain.ErrInvalidQuery, maxQueryLen)
	}
	return nil
}

func setUsageHeaders(w http.ResponseWriter, usage *domain.Usage) {
	if n := usage.EmbeddingTokens(); n > 0 {
		w.Header().Set("X-Embedding-Tokens", strconv.FormatInt(n, 10))
	}
	if n := usage.CompletionTokens(); n > 0 {
		w.Header().Set("X-Completion-Tokens", strconv.FormatInt(n, 10))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidQuery,
		domain.ErrProfileRequired,
		domain.ErrNoEvents,
		domain.ErrVectorDimMismatch,
		domain.ErrEmbeddingProviderError,
		domain.ErrCompletionUnavailable,
		domain.ErrGenerationFailed,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContextOr(r.Context(), s.logger)
	log.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal error")
}
