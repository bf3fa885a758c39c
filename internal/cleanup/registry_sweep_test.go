package cleanup

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRegistry struct {
	ids    []uuid.UUID
	counts map[uuid.UUID]int
}

func (f *fakeRegistry) ActiveConversationIDs() []uuid.UUID { return f.ids }
func (f *fakeRegistry) ConnectionCount(id uuid.UUID) int   { return f.counts[id] }

func TestRegistrySweep_FlagsConversationsOverThreshold(t *testing.T) {
	hot := uuid.New()
	calm := uuid.New()

	registry := &fakeRegistry{
		ids:    []uuid.UUID{hot, calm},
		counts: map[uuid.UUID]int{hot: 5000, calm: 3},
	}

	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.WarnLevel)
	sweep := NewRegistrySweep(registry, logger)
	sweep.Threshold = 1000

	require.NoError(t, sweep.Run(context.Background()))
	require.Len(t, hook.AllEntries(), 1)
	assert.Equal(t, hot.String(), hook.LastEntry().Data["conversation_id"])
}

func TestRegistrySweep_NoFlagsWhenUnderThreshold(t *testing.T) {
	registry := &fakeRegistry{ids: []uuid.UUID{uuid.New()}, counts: map[uuid.UUID]int{}}
	logger := logrus.New()

	sweep := NewRegistrySweep(registry, logger)
	assert.NoError(t, sweep.Run(context.Background()))
}
