package main

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novafabric/backbone/internal/domain"
	"github.com/novafabric/backbone/internal/events"
	"github.com/novafabric/backbone/internal/metrics"
)

func TestMetered_IncrementsConsumedOnSuccess(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := metrics.NewEvents(registry)

	h := metered("engagement.recorded", func(ctx context.Context, env events.Envelope) error { return nil }, m)
	require.NoError(t, h(context.Background(), events.Envelope{}))

	assert.Equal(t, float64(1), testutil.ToFloat64(m.Consumed.WithLabelValues("engagement.recorded")))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.HandlerErrors.WithLabelValues("engagement.recorded")))
}

func TestMetered_IncrementsHandlerErrorsAndPropagates(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := metrics.NewEvents(registry)

	failure := errors.New("handler failed")
	h := metered("content.deleted", func(ctx context.Context, env events.Envelope) error { return failure }, m)

	err := h(context.Background(), events.Envelope{})
	require.ErrorIs(t, err, failure)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Consumed.WithLabelValues("content.deleted")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.HandlerErrors.WithLabelValues("content.deleted")))
}

func TestEngagementColumns_OnlyCountableKindsHaveAColumn(t *testing.T) {
	assert.Equal(t, "like_count", engagementColumns[domain.EngagementLike])
	assert.Equal(t, "comment_count", engagementColumns[domain.EngagementComment])
	assert.Equal(t, "share_count", engagementColumns[domain.EngagementShare])
	assert.Equal(t, "bookmark_count", engagementColumns[domain.EngagementBookmark])

	_, hasView := engagementColumns[domain.EngagementView]
	_, hasComplete := engagementColumns[domain.EngagementComplete]
	assert.False(t, hasView)
	assert.False(t, hasComplete)
}
