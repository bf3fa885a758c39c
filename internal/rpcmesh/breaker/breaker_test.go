package breaker

import (
	"context"
	"errors"
	"testing"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novafabric/backbone/internal/apperr"
)

var errDownstream = errors.New("downstream failed")

func failingFn(ctx context.Context) (interface{}, error) { return nil, errDownstream }
func okFn(ctx context.Context) (interface{}, error)       { return "ok", nil }

func TestBreaker_PassesThroughSuccess(t *testing.T) {
	b := New("test-target", nil)
	result, err := b.Do(context.Background(), okFn)
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, gobreaker.StateClosed, b.State())
}

func TestBreaker_PropagatesDownstreamErrorWhileClosed(t *testing.T) {
	b := New("test-target", nil)
	_, err := b.Do(context.Background(), failingFn)
	assert.ErrorIs(t, err, errDownstream)
}

func TestBreaker_TripsOpenAfterConsecutiveFailures(t *testing.T) {
	var transitions []gobreaker.State
	b := New("test-target", func(name string, from, to gobreaker.State) {
		transitions = append(transitions, to)
	})

	for i := 0; i < consecutiveFailureThreshold; i++ {
		_, _ = b.Do(context.Background(), failingFn)
	}

	assert.Equal(t, gobreaker.StateOpen, b.State())
	assert.Contains(t, transitions, gobreaker.StateOpen)
}

func TestBreaker_FailsFastWithServiceUnavailableWhenOpen(t *testing.T) {
	b := New("test-target", nil)
	for i := 0; i < consecutiveFailureThreshold; i++ {
		_, _ = b.Do(context.Background(), failingFn)
	}
	require.Equal(t, gobreaker.StateOpen, b.State())

	called := false
	_, err := b.Do(context.Background(), func(ctx context.Context) (interface{}, error) {
		called = true
		return nil, nil
	})

	require.Error(t, err)
	assert.False(t, called, "an open breaker must not invoke the wrapped function")
	assert.True(t, apperr.Is(err, apperr.KindUnavailable))
}
