package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
	// Unhealthy indicates nothing can be served.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Events int
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	index      IndexCounter
	cache      CachePinger
	embedding  EmbeddingChecker
	completion CompletionGate
}

// New creates a Service. cache, embedding and completion can be nil.
func New(index IndexCounter, cache CachePinger, embedding EmbeddingChecker, completion CompletionGate) *Service {
	return &Service{index: index, cache: cache, embedding: embedding, completion: completion}
}

// Check runs health checks against all components. An empty index makes the
// service unhealthy; any other failing check degrades it.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	events := s.index.Count()
	checks["index"] = result(events > 0)

	if s.cache != nil {
		checks["cache"] = result(s.cache.Ping(ctx) == nil)
	}
	if s.embedding != nil {
		checks["embedding"] = result(s.embedding.HealthCheck(ctx) == nil)
	}
	if s.completion != nil {
		checks["completion"] = result(s.completion.Available())
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}
	if events == 0 {
		status = Unhealthy
	}

	return Report{Status: status, Events: events, Checks: checks}
}

func result(ok bool) CheckResult {
	if ok {
		return CheckOK
	}
	return CheckError
}
