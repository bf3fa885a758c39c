// Package breaker wraps github.com/sony/gobreaker into the uniform
// closed->open->half-open circuit breaker §4.7 requires for every
// service-to-service call, translating the open-state failure into the
// apperr "service unavailable" kind rather than leaking gobreaker's own
// error type.
package breaker

import (
	"context"
	"time"

	"github.com/sony/gobreaker"

	"github.com/novafabric/backbone/internal/apperr"
)

const (
	// consecutiveFailureThreshold trips the breaker open after this many
	// consecutive failures within Interval.
	consecutiveFailureThreshold = 5
	openStateTimeout            = 30 * time.Second
	countWindow                 = 60 * time.Second
)

// Breaker wraps one downstream target's circuit breaker state machine.
type Breaker struct {
	cb *gobreaker.CircuitBreaker
}

// New constructs a breaker for a named target (used in gobreaker's state-
// change logging and metrics labels).
func New(name string, onStateChange func(name string, from, to gobreaker.State)) *Breaker {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1, // half-open allows exactly one probe request
		Interval:    countWindow,
		Timeout:     openStateTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= consecutiveFailureThreshold
		},
	}
	if onStateChange != nil {
		settings.OnStateChange = func(name string, from, to gobreaker.State) {
			onStateChange(name, from, to)
		}
	}
	return &Breaker{cb: gobreaker.NewCircuitBreaker(settings)}
}

// Do executes fn through the breaker. An open breaker fails fast with a
// typed apperr "service unavailable" error without invoking fn at all,
// matching §4.7's open-state contract.
func (b *Breaker) Do(ctx context.Context, fn func(ctx context.Context) (interface{}, error)) (interface{}, error) {
	result, err := b.cb.Execute(func() (interface{}, error) {
		return fn(ctx)
	})
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return nil, apperr.Unavailable("CIRCUIT_OPEN", err)
	}
	return result, err
}

func (b *Breaker) State() gobreaker.State { return b.cb.State() }
