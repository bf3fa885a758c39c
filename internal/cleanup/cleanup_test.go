package cleanup

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	pages [][]string
}

func (f *fakeSource) Kind() string { return "test_entity" }

func (f *fakeSource) ListIDs(ctx context.Context, cursor string, batchSize int) ([]string, string, error) {
	idx := 0
	if cursor != "" {
		var err error
		idx, err = parseIndex(cursor)
		if err != nil {
			return nil, "", err
		}
	}
	if idx >= len(f.pages) {
		return nil, "", nil
	}
	next := ""
	if idx+1 < len(f.pages) {
		next = formatIndex(idx + 1)
	}
	return f.pages[idx], next, nil
}

func parseIndex(s string) (int, error) {
	n := 0
	for _, c := range s {
		n = n*10 + int(c-'0')
	}
	return n, nil
}
func formatIndex(n int) string { return string(rune('0' + n)) }

type fakeTruth struct {
	mu       sync.Mutex
	missing  map[string]bool
	deleted  []string
}

func (f *fakeTruth) Exists(ctx context.Context, id string) (bool, error) {
	return !f.missing[id], nil
}

func (f *fakeTruth) DeleteDependents(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeRecorder struct {
	kind           string
	checked, deleted int
}

func (f *fakeRecorder) RecordCycle(kind string, checked, deleted int, duration time.Duration) {
	f.kind, f.checked, f.deleted = kind, checked, deleted
}

func newTestJob(source EntitySource, truth SourceOfTruth, recorder Recorder) *Job {
	logger := logrus.New()
	logger.SetOutput(new(discard))
	j := NewJob(source, truth, recorder, logger)
	j.InterBatchDelay = 0
	return j
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func TestJob_Run_DeletesDependentsOfMissingIDs(t *testing.T) {
	source := &fakeSource{pages: [][]string{{"a", "b", "c"}}}
	truth := &fakeTruth{missing: map[string]bool{"b": true}}
	recorder := &fakeRecorder{}

	job := newTestJob(source, truth, recorder)
	require.NoError(t, job.Run(context.Background()))

	assert.ElementsMatch(t, []string{"b"}, truth.deleted)
	assert.Equal(t, "test_entity", recorder.kind)
	assert.Equal(t, 3, recorder.checked)
	assert.Equal(t, 1, recorder.deleted)
}

func TestJob_Run_PagesAcrossMultipleBatches(t *testing.T) {
	source := &fakeSource{pages: [][]string{{"a"}, {"b"}, {"c"}}}
	truth := &fakeTruth{missing: map[string]bool{"a": true, "c": true}}
	recorder := &fakeRecorder{}

	job := newTestJob(source, truth, recorder)
	require.NoError(t, job.Run(context.Background()))

	assert.ElementsMatch(t, []string{"a", "c"}, truth.deleted)
	assert.Equal(t, 3, recorder.checked)
}

func TestJob_Run_NoIDsMissingDeletesNothing(t *testing.T) {
	source := &fakeSource{pages: [][]string{{"a", "b"}}}
	truth := &fakeTruth{}
	recorder := &fakeRecorder{}

	job := newTestJob(source, truth, recorder)
	require.NoError(t, job.Run(context.Background()))
	assert.Empty(t, truth.deleted)
	assert.Equal(t, 0, recorder.deleted)
}

func TestJob_Run_BoundedConcurrencyStillProcessesEveryID(t *testing.T) {
	ids := make([]string, 50)
	missing := map[string]bool{}
	for i := range ids {
		ids[i] = formatIndexLarge(i)
		if i%2 == 0 {
			missing[ids[i]] = true
		}
	}

	source := &fakeSource{pages: [][]string{ids}}
	truth := &fakeTruth{missing: missing}
	recorder := &fakeRecorder{}

	job := newTestJob(source, truth, recorder)
	job.Concurrency = 4
	require.NoError(t, job.Run(context.Background()))

	assert.Equal(t, 25, recorder.deleted)
	assert.Equal(t, 50, recorder.checked)
}

func formatIndexLarge(n int) string {
	digits := "0123456789"
	if n < 10 {
		return string(digits[n])
	}
	return string(digits[n/10]) + string(digits[n%10])
}

func TestScheduler_RegisterAndRunOnDemand(t *testing.T) {
	logger, hook := test.NewNullLogger()
	source := &fakeSource{pages: [][]string{{"a"}}}
	truth := &fakeTruth{}
	job := NewJob(source, truth, nil, logger)
	job.InterBatchDelay = 0

	scheduler := NewScheduler(logger)
	require.NoError(t, scheduler.Register("@every 1h", job))
	scheduler.Start()
	defer scheduler.Stop(context.Background())

	require.NoError(t, job.Run(context.Background()))
	found := false
	for _, e := range hook.Entries {
		if e.Message == "cleanup cycle complete" {
			found = true
		}
	}
	assert.True(t, found)
}
