package completion

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/culturai/internal/domain"
	"github.com/kailas-cloud/culturai/internal/metrics"
)

var _ domain.Completer = (*BreakerCompleter)(nil)

// BreakerSettings configures the completion circuit breaker.
type BreakerSettings struct {
	Name             string
	MaxRequests      uint32        // trial requests allowed while half-open
	Interval         time.Duration // closed-state counter reset period
	Timeout          time.Duration // open -> half-open delay
	FailureThreshold uint32        // consecutive failures that open the circuit
}

// BreakerCompleter guards a completion backend with a circuit breaker and adds
// consumed tokens to the request's domain.Usage. While open, calls fail fast
// with domain.ErrCompletionUnavailable.
type BreakerCompleter struct {
	inner  domain.Completer
	cb     *gobreaker.CircuitBreaker[domain.Completion]
	name   string
	logger *zap.Logger
}

// NewBreakerCompleter wraps inner with a circuit breaker.
func NewBreakerCompleter(inner domain.Completer, s BreakerSettings, logger *zap.Logger) *BreakerCompleter {
	if s.Name == "" {
		s.Name = "chat-completion"
	}
	if s.FailureThreshold == 0 {
		s.FailureThreshold = 5
	}
	threshold := s.FailureThreshold

	metrics.CircuitBreakerState.WithLabelValues(s.Name).Set(0)

	cb := gobreaker.NewCircuitBreaker[domain.Completion](gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: s.MaxRequests,
		Interval:    s.Interval,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		// A caller giving up is not a backend failure.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
	})

	return &BreakerCompleter{inner: inner, cb: cb, name: s.Name, logger: logger}
}

// Complete runs the inner completion through the breaker.
func (b *BreakerCompleter) Complete(
	ctx context.Context, messages []domain.ChatMessage, params domain.CompletionParams,
) (domain.Completion, error) {
	res, err := b.cb.Execute(func() (domain.Completion, error) {
		return b.inner.Complete(ctx, messages, params)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(b.name, "rejected").Inc()
			return domain.Completion{}, fmt.Errorf("%s: %v: %w", b.name, err, domain.ErrCompletionUnavailable)
		}
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "failure").Inc()
		return domain.Completion{}, fmt.Errorf("complete: %w", err)
	}

	metrics.CircuitBreakerRequests.WithLabelValues(b.name, "success").Inc()
	domain.UsageFromContext(ctx).AddCompletion(res.TotalTokens)
	return res, nil
}

// State reports the breaker state.
func (b *BreakerCompleter) State() gobreaker.State {
	return b.cb.State()
}

// Available reports whether calls currently reach the backend.
func (b *BreakerCompleter) Available() bool {
	return b.cb.State() != gobreaker.StateOpen
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
