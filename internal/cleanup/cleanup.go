// Package cleanup runs the periodic retention jobs described in spec.md
// §4.5: scan distinct entity ids held in derived stores, probe the source of
// truth in bounded batches, and soft/hard-delete dependents that no longer
// exist there. Scheduling follows the teacher's cron usage pattern; the
// scan-probe-delete loop itself is new since the teacher has no retention
// concept, built in the idiom of
// services/chat-service/internal/cache/redis_cache.go's cleanupHotKeysLoop
// (a ticking background goroutine bounded by batch size and sleep between
// batches).
package cleanup

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// DefaultRetention is the per-entity retention window absent an override,
// per §4.5.
const DefaultRetention = 30 * 24 * time.Hour

// EntitySource is a derived store holding denormalized copies of ids whose
// source of truth lives elsewhere (e.g. a search index, a cache, a fanout
// registry). ListIDs pages through distinct ids; cursor "" starts a scan and
// a returned cursor "" means the scan is complete.
type EntitySource interface {
	Kind() string
	ListIDs(ctx context.Context, cursor string, batchSize int) (ids []string, nextCursor string, err error)
}

// SourceOfTruth probes whether an id still exists upstream, and performs the
// deletion of its dependents when it does not.
type SourceOfTruth interface {
	Exists(ctx context.Context, id string) (bool, error)
	DeleteDependents(ctx context.Context, id string) error
}

// Recorder emits the metrics every cleanup cycle produces (§4.5:
// users_checked, items_deleted_by_kind, duration), generalized beyond users
// to any entity kind this job scans.
type Recorder interface {
	RecordCycle(kind string, checked, deleted int, duration time.Duration)
}

// Job runs one scan-probe-delete cycle for a single EntitySource/
// SourceOfTruth pair, with bounded concurrency, bounded batch size, and an
// inter-batch delay to avoid overloading the source of truth.
type Job struct {
	Source          EntitySource
	Truth           SourceOfTruth
	BatchSize       int
	Concurrency     int
	InterBatchDelay time.Duration
	Retention       time.Duration
	Recorder        Recorder
	Logger          *logrus.Logger
}

func NewJob(source EntitySource, truth SourceOfTruth, recorder Recorder, logger *logrus.Logger) *Job {
	return &Job{
		Source:          source,
		Truth:           truth,
		BatchSize:       500,
		Concurrency:     8,
		InterBatchDelay: 250 * time.Millisecond,
		Retention:       DefaultRetention,
		Recorder:        recorder,
		Logger:          logger,
	}
}

// Run scans every distinct id in the source, probing each in bounded
// concurrent batches, and deletes dependents of ids the source of truth no
// longer has.
func (j *Job) Run(ctx context.Context) error {
	start := time.Now()
	checked, deleted := 0, 0
	cursor := ""

	for {
		ids, next, err := j.Source.ListIDs(ctx, cursor, j.BatchSize)
		if err != nil {
			return err
		}

		n, err := j.probeAndDeleteBatch(ctx, ids)
		if err != nil {
			return err
		}
		checked += len(ids)
		deleted += n

		if next == "" {
			break
		}
		cursor = next

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(j.InterBatchDelay):
		}
	}

	duration := time.Since(start)
	if j.Recorder != nil {
		j.Recorder.RecordCycle(j.Source.Kind(), checked, deleted, duration)
	}
	j.Logger.WithFields(logrus.Fields{
		"kind":     j.Source.Kind(),
		"checked":  checked,
		"deleted":  deleted,
		"duration": duration.String(),
	}).Info("cleanup cycle complete")
	return nil
}

// probeAndDeleteBatch fans out probes for one batch across Concurrency
// workers, deleting dependents of any id the source of truth reports missing.
func (j *Job) probeAndDeleteBatch(ctx context.Context, ids []string) (int, error) {
	sem := make(chan struct{}, j.Concurrency)
	results := make(chan bool, len(ids))
	errs := make(chan error, len(ids))

	for _, id := range ids {
		id := id
		sem <- struct{}{}
		go func() {
			defer func() { <-sem }()
			exists, err := j.Truth.Exists(ctx, id)
			if err != nil {
				errs <- err
				results <- false
				return
			}
			if exists {
				results <- false
				return
			}
			if err := j.Truth.DeleteDependents(ctx, id); err != nil {
				errs <- err
				results <- false
				return
			}
			results <- true
		}()
	}

	deleted := 0
	var firstErr error
	for range ids {
		if <-results {
			deleted++
		}
		select {
		case err := <-errs:
			if firstErr == nil {
				firstErr = err
			}
		default:
		}
	}
	return deleted, firstErr
}

// Scheduler owns a cron instance and runs registered Jobs on their schedules,
// matching the teacher's periodic-task registration pattern
// (services/chat-service/cmd/server/main.go's cron wiring).
type Scheduler struct {
	cron   *cron.Cron
	logger *logrus.Logger
}

func NewScheduler(logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(cron.WithSeconds()),
		logger: logger,
	}
}

// Register adds a job on the given cron spec (e.g. "0 */15 * * * *" for
// every 15 minutes). Job failures are logged, never panic the scheduler.
func (s *Scheduler) Register(spec string, job *Job) error {
	_, err := s.cron.AddFunc(spec, func() {
		if err := job.Run(context.Background()); err != nil {
			s.logger.WithError(err).WithField("kind", job.Source.Kind()).Error("cleanup cycle failed")
		}
	})
	return err
}

func (s *Scheduler) Start() { s.cron.Start() }

func (s *Scheduler) Stop(ctx context.Context) {
	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
}
