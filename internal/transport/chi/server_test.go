package chi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/culturai/internal/domain"
	"github.com/kailas-cloud/culturai/internal/domain/event"
	"github.com/kailas-cloud/culturai/internal/domain/intent"
	"github.com/kailas-cloud/culturai/internal/domain/profile"
	"github.com/kailas-cloud/culturai/internal/domain/search/pass"
	"github.com/kailas-cloud/culturai/internal/domain/search/result"
	healthuc "github.com/kailas-cloud/culturai/internal/usecase/health"
	"github.com/kailas-cloud/culturai/internal/usecase/ingest"
	"github.com/kailas-cloud/culturai/internal/usecase/retrieval"
)

// --- Mocks ---

type mockRetriever struct {
	outcome       *retrieval.Outcome
	err           error
	gotQuery      string
	gotClarify    string
	gotIntent     intent.QueryIntent
	gotProfile    *profile.Profile
	gotOpts       retrieval.Options
	extractCalled bool
}

func (m *mockRetriever) Extract(_ context.Context, query string) intent.QueryIntent {
	m.extractCalled = true
	return intent.QueryIntent{RawQuery: query, City: "lyon"}
}

func (m *mockRetriever) FirstPass(ctx context.Context, query string, opts retrieval.Options) (*retrieval.Outcome, error) {
	m.gotQuery, m.gotOpts = query, opts
	domain.UsageFromContext(ctx).AddEmbedding(7)
	return m.outcome, m.err
}

func (m *mockRetriever) RefinedPass(
	_ context.Context, query, clarification string, opts retrieval.Options,
) (*retrieval.Outcome, error) {
	m.gotQuery, m.gotClarify, m.gotOpts = query, clarification, opts
	return m.outcome, m.err
}

func (m *mockRetriever) EnrichedPass(
	_ context.Context, in intent.QueryIntent, p *profile.Profile, opts retrieval.Options,
) (*retrieval.Outcome, error) {
	m.gotIntent, m.gotProfile, m.gotOpts = in, p, opts
	return m.outcome, m.err
}

type mockGenerator struct {
	text  string
	err   error
	query string
	calls int
}

func (m *mockGenerator) Generate(
	ctx context.Context, query string, _ []result.Hit, _ *profile.Profile, _ map[string]float64,
) (string, error) {
	m.calls++
	m.query = query
	domain.UsageFromContext(ctx).AddCompletion(120)
	return m.text, m.err
}

type mockIngester struct {
	got []event.Event
	err error
}

func (m *mockIngester) Ingest(_ context.Context, events []event.Event) (ingest.Report, error) {
	m.got = events
	return ingest.Report{Received: len(events), Added: len(events), Persisted: true}, m.err
}

type mockCatalogue struct{ events []event.Event }

func (m *mockCatalogue) Count() int            { return len(m.events) }
func (m *mockCatalogue) Dimensions() int       { return 3 }
func (m *mockCatalogue) Events() []event.Event { return m.events }

type mockHealth struct{ report healthuc.Report }

func (m *mockHealth) Check(_ context.Context) healthuc.Report { return m.report }

// --- Helpers ---

type fixture struct {
	retriever *mockRetriever
	generator *mockGenerator
	ingester  *mockIngester
	catalogue *mockCatalogue
	health    *mockHealth
	router    http.Handler
}

func sampleOutcome() *retrieval.Outcome {
	return &retrieval.Outcome{
		Pass:    pass.Query,
		Quality: pass.Mediocre,
		Intent:  intent.QueryIntent{RawQuery: "jazz a lyon", City: "lyon", Genres: []string{"Jazz"}},
		Hits: []result.Hit{
			{Position: 2, Event: event.Event{ID: "e2", Name: "Nuit du Jazz"}, Distance: 0.12},
			{Position: 5, Event: event.Event{ID: "e5", Name: "Jam"}, Distance: 0.4},
		},
		Distances: map[string]float64{"e2": 3},
		Note:      "",
	}
}

func newFixture() *fixture {
	f := &fixture{
		retriever: &mockRetriever{outcome: sampleOutcome()},
		generator: &mockGenerator{text: "Va voir la Nuit du Jazz."},
		ingester:  &mockIngester{},
		catalogue: &mockCatalogue{events: []event.Event{
			{ID: "a", Genre: "Jazz", City: "Lyon"},
			{ID: "b", Genre: "Jazz", City: "Paris"},
		}},
		health: &mockHealth{report: healthuc.Report{
			Status: healthuc.Healthy, Events: 2, Checks: map[string]healthuc.CheckResult{"index": healthuc.CheckOK},
		}},
	}
	srv := NewServer(f.retriever, f.generator, f.ingester, f.catalogue, f.health, zap.NewNop())
	r := chi.NewRouter()
	srv.Register(r)
	f.router = r
	return f
}

func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	return resp
}

// --- Tests ---

func TestRecommend_FirstPass(t *testing.T) {
	f := newFixture()
	rr := f.do("POST", "/v1/recommendations", `{"query":"jazz a lyon","top_k":4}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("got %d: %s", rr.Code, rr.Body.String())
	}
	if f.retriever.gotQuery != "jazz a lyon" || f.retriever.gotOpts.TopK != 4 {
		t.Errorf("unexpected call: %q %+v", f.retriever.gotQuery, f.retriever.gotOpts)
	}
	if rr.Header().Get("X-Embedding-Tokens") != "7" {
		t.Errorf("expected embedding usage header, got %q", rr.Header().Get("X-Embedding-Tokens"))
	}

	var resp RecommendationResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Pass != "query" || resp.Quality != "mediocre" || !resp.CanEscalate {
		t.Errorf("unexpected pass state: %+v", resp)
	}
	if len(resp.Events) != 2 || resp.Events[0].ID != "e2" || resp.Events[0].Score != 0.12 {
		t.Fatalf("unexpected events: %+v", resp.Events)
	}
	if resp.Events[0].DistanceKm == nil || *resp.Events[0].DistanceKm != 3 {
		t.Error("expected distance for e2")
	}
	if resp.Events[1].DistanceKm != nil {
		t.Error("expected no distance for e5")
	}
	if resp.Recommendation != "" || f.generator.calls != 0 {
		t.Error("generation must be opt-in")
	}
}

func TestRecommend_WithGeneration(t *testing.T) {
	f := newFixture()
	rr := f.do("POST", "/v1/recommendations", `{"query":"jazz a lyon","generate":true}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("got %d: %s", rr.Code, rr.Body.String())
	}
	var resp RecommendationResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Recommendation != "Va voir la Nuit du Jazz." {
		t.Errorf("unexpected recommendation %q", resp.Recommendation)
	}
	if rr.Header().Get("X-Completion-Tokens") != "120" {
		t.Errorf("expected completion usage header, got %q", rr.Header().Get("X-Completion-Tokens"))
	}
}

func TestRecommend_GenerationFailurePropagates(t *testing.T) {
	f := newFixture()
	f.generator.err = domain.ErrGenerationFailed
	rr := f.do("POST", "/v1/recommendations", `{"query":"jazz","generate":true}`)

	if rr.Code != http.StatusBadGateway {
		t.Fatalf("got %d, want %d", rr.Code, http.StatusBadGateway)
	}
	if decodeError(t, rr).Code != ErrorCodeGenerationFailed {
		t.Error("expected generation_failed code")
	}
}

func TestRecommend_BreakerOpen(t *testing.T) {
	f := newFixture()
	f.generator.err = domain.ErrCompletionUnavailable
	rr := f.do("POST", "/v1/recommendations", `{"query":"jazz","generate":true}`)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("got %d, want %d", rr.Code, http.StatusServiceUnavailable)
	}
}

func TestRecommend_EmptyResultSkipsGeneration(t *testing.T) {
	f := newFixture()
	f.retriever.outcome = &retrieval.Outcome{Pass: pass.Query, Quality: pass.Empty, Note: "Tu n'as pas precise de ville"}
	rr := f.do("POST", "/v1/recommendations", `{"query":"opera","generate":true}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("got %d", rr.Code)
	}
	if f.generator.calls != 0 {
		t.Error("generator must not run on an empty result")
	}
	var resp RecommendationResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Quality != "empty" || resp.Note == "" || len(resp.Events) != 0 {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestRecommend_Validation(t *testing.T) {
	f := newFixture()

	tests := []struct {
		name string
		body string
		want ErrorCode
	}{
		{"malformed", `{"query":`, ErrorCodeBadRequest},
		{"blank", `{"query":"   "}`, ErrorCodeValidationFailed},
		{"too long", `{"query":"` + strings.Repeat("a", maxQueryLen+1) + `"}`, ErrorCodeValidationFailed},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := f.do("POST", "/v1/recommendations", tc.body)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("got %d, want 400", rr.Code)
			}
			if got := decodeError(t, rr).Code; got != tc.want {
				t.Errorf("code = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestRecommend_EmbeddingFailure(t *testing.T) {
	f := newFixture()
	f.retriever.err = domain.ErrEmbeddingProviderError
	rr := f.do("POST", "/v1/recommendations", `{"query":"jazz"}`)

	if rr.Code != http.StatusBadGateway {
		t.Fatalf("got %d, want %d", rr.Code, http.StatusBadGateway)
	}
	resp := decodeError(t, rr)
	if resp.Code != ErrorCodeEmbeddingProviderError || resp.Message != domain.ErrEmbeddingProviderError.Error() {
		t.Errorf("unexpected error body: %+v", resp)
	}
}

func TestRefine(t *testing.T) {
	f := newFixture()
	f.retriever.outcome.Pass = pass.Refined
	f.retriever.outcome.Quality = pass.Unrated
	rr := f.do("POST", "/v1/recommendations/refine", `{"query":"du jazz","clarification":"a lyon"}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("got %d: %s", rr.Code, rr.Body.String())
	}
	if f.retriever.gotQuery != "du jazz" || f.retriever.gotClarify != "a lyon" {
		t.Errorf("unexpected call: %q / %q", f.retriever.gotQuery, f.retriever.gotClarify)
	}
	var resp RecommendationResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.CanEscalate {
		t.Error("refined pass is terminal")
	}
}

func TestEnrich_RequiresProfile(t *testing.T) {
	f := newFixture()
	rr := f.do("POST", "/v1/recommendations/enrich", `{"query":"jazz"}`)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("got %d, want 400", rr.Code)
	}
	if decodeError(t, rr).Code != ErrorCodeProfileRequired {
		t.Error("expected profile_required")
	}
}

func TestEnrich_ReusesGivenIntent(t *testing.T) {
	f := newFixture()
	body := `{"intent":{"raw_query":"du jazz","genres":["Jazz"]},"profile":{"name":"Alex","city":"Lyon"}}`
	rr := f.do("POST", "/v1/recommendations/enrich", body)

	if rr.Code != http.StatusOK {
		t.Fatalf("got %d: %s", rr.Code, rr.Body.String())
	}
	if f.retriever.extractCalled {
		t.Error("given intent must not be re-extracted")
	}
	if f.retriever.gotIntent.RawQuery != "du jazz" || f.retriever.gotProfile.City != "Lyon" {
		t.Errorf("unexpected call: %+v %+v", f.retriever.gotIntent, f.retriever.gotProfile)
	}
}

func TestEnrich_ExtractsFromQuery(t *testing.T) {
	f := newFixture()
	rr := f.do("POST", "/v1/recommendations/enrich", `{"query":"du jazz","profile":{"city":"Lyon"}}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("got %d: %s", rr.Code, rr.Body.String())
	}
	if !f.retriever.extractCalled || f.retriever.gotIntent.RawQuery != "du jazz" {
		t.Errorf("expected extraction, got %+v", f.retriever.gotIntent)
	}
}

func TestIngestEvents(t *testing.T) {
	f := newFixture()
	rr := f.do("POST", "/v1/events", `[{"id":"x","name":"Hamlet","genre":"Theatre"}]`)

	if rr.Code != http.StatusOK {
		t.Fatalf("got %d: %s", rr.Code, rr.Body.String())
	}
	if len(f.ingester.got) != 1 || f.ingester.got[0].Genre != "Theatre" {
		t.Errorf("unexpected ingested events: %+v", f.ingester.got)
	}
	var resp IngestResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Added != 1 || resp.Total != 2 || !resp.Persisted {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestIngestEvents_DimensionMismatch(t *testing.T) {
	f := newFixture()
	f.ingester.err = domain.ErrVectorDimMismatch
	rr := f.do("POST", "/v1/events", `[{"id":"x"}]`)

	if rr.Code != http.StatusBadGateway {
		t.Fatalf("got %d, want 502", rr.Code)
	}
	if resp := decodeError(t, rr); resp.Code != ErrorCodeVectorDimMismatch {
		t.Errorf("got code %q, want %q", resp.Code, ErrorCodeVectorDimMismatch)
	}
}

func TestIndexStats(t *testing.T) {
	f := newFixture()
	rr := f.do("GET", "/v1/index", "")

	if rr.Code != http.StatusOK {
		t.Fatalf("got %d", rr.Code)
	}
	var resp IndexResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Total != 2 || resp.Dimensions != 3 {
		t.Errorf("unexpected stats: %+v", resp)
	}
	if len(resp.Genres) != 1 || resp.Genres[0].Value != "Jazz" || resp.Genres[0].Count != 2 {
		t.Errorf("unexpected genres: %+v", resp.Genres)
	}
}

func TestHealthCheck(t *testing.T) {
	f := newFixture()
	rr := f.do("GET", "/health", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d", rr.Code)
	}

	f.health.report = healthuc.Report{Status: healthuc.Unhealthy, Checks: map[string]healthuc.CheckResult{
		"index": healthuc.CheckError,
	}}
	rr = f.do("GET", "/health", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("got %d, want 503", rr.Code)
	}
	var resp HealthResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != "error" || resp.Checks["index"] != "error" {
		t.Errorf("unexpected health body: %+v", resp)
	}
}
