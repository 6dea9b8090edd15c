package jobqueue

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/panjf2000/ants/v2"
	"github.com/sourcegraph/conc/panics"

	"github.com/riskibarqy/homerun-cage/internal/domain/jobscheduler"
	"github.com/riskibarqy/homerun-cage/internal/platform/id"
	"github.com/riskibarqy/homerun-cage/internal/platform/logging"
	"github.com/riskibarqy/homerun-cage/internal/platform/metrics"
)

const DriverLocal = "local"

var ErrQueueClosed = errors.New("job queue is closed")

// Auditor receives every dispatch lifecycle event.
type Auditor interface {
	Record(ctx context.Context, event jobscheduler.DispatchEvent)
}

type LocalQueueConfig struct {
	Workers     int
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
	// DedupTTL is how long a deduplication id suppresses repeats.
	DedupTTL time.Duration
}

func (c LocalQueueConfig) normalize() LocalQueueConfig {
	if c.Workers <= 0 {
		c.Workers = 8
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	if c.BaseBackoff <= 0 {
		c.BaseBackoff = time.Second
	}
	if c.MaxBackoff < c.BaseBackoff {
		c.MaxBackoff = 30 * time.Second
	}
	if c.DedupTTL <= 0 {
		c.DedupTTL = 10 * time.Minute
	}
	return c
}

// LocalQueue runs jobs in-process on an ants pool with bounded retries.
// Jobs that exhaust their attempts are dead-lettered to the log and the
// dispatch audit trail.
type LocalQueue struct {
	registry *Registry
	pool     *ants.Pool
	cfg      LocalQueueConfig
	audit    Auditor
	metrics  *metrics.Recorder
	logger   *logging.Logger
	ids      id.Generator

	mu      sync.Mutex
	seen    map[string]time.Time
	pending map[uint64]*time.Timer
	nextKey uint64

	// inflight counts jobs waiting for or holding a worker plus pending
	// delay and backoff timers.
	inflight sync.WaitGroup
	closed   atomic.Bool
	// abort cancels running handlers once Close gives up waiting.
	abortCtx context.Context
	abort    context.CancelFunc

	now func() time.Time
}

func NewLocalQueue(
	registry *Registry,
	cfg LocalQueueConfig,
	audit Auditor,
	recorder *metrics.Recorder,
	logger *logging.Logger,
) (*LocalQueue, error) {
	if registry == nil {
		return nil, errors.New("job registry is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	cfg = cfg.normalize()

	q := &LocalQueue{
		registry: registry,
		cfg:      cfg,
		audit:    audit,
		metrics:  recorder,
		logger:   logger.Named("jobqueue.local"),
		ids:      id.NewUUIDGenerator(),
		seen:     make(map[string]time.Time),
		pending:  make(map[uint64]*time.Timer),
		now:      time.Now,
	}
	q.abortCtx, q.abort = context.WithCancel(context.Background())

	// Blocking pool: a submit waits for a free worker instead of failing.
	// Workers are only held while a handler runs; delays and backoffs wait
	// on timers outside the pool.
	pool, err := ants.NewPool(cfg.Workers,
		ants.WithPanicHandler(func(v any) {
			q.logger.Error("job worker panicked outside handler", "panic", v)
		}),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create job worker pool")
	}
	q.pool = pool
	return q, nil
}

type localJob struct {
	dispatchID string
	dedupID    string
	kind       string
	payload    []byte
}

func (q *LocalQueue) Enqueue(ctx context.Context, kind string, payload any, delay time.Duration, deduplicationID string) error {
	if q.closed.Load() {
		return ErrQueueClosed
	}
	kind = strings.TrimSpace(kind)
	if !q.registry.Has(kind) {
		return errors.Wrapf(ErrUnknownKind, "kind=%s", kind)
	}

	body, err := encodePayload(payload)
	if err != nil {
		return err
	}

	deduplicationID = strings.TrimSpace(deduplicationID)
	if deduplicationID != "" && !q.claimDedup(deduplicationID) {
		q.logger.DebugContext(ctx, "duplicate job dropped", "kind", kind, "deduplication_id", deduplicationID)
		return nil
	}

	dispatchID := deduplicationID
	if dispatchID == "" {
		dispatchID, err = q.ids.NewID()
		if err != nil {
			return errors.Wrap(err, "generate dispatch id")
		}
	}

	job := localJob{dispatchID: dispatchID, dedupID: deduplicationID, kind: kind, payload: body}
	jobCtx := context.WithoutCancel(ctx)

	q.record(ctx, job, jobscheduler.StatusSent, 0, "")
	q.metrics.Job(kind, string(jobscheduler.StatusSent), 0)
	q.schedule(jobCtx, job, 1, delay)
	return nil
}

// schedule queues attempt after d without holding a worker. Enqueue never
// blocks on a busy pool.
func (q *LocalQueue) schedule(ctx context.Context, job localJob, attempt int, d time.Duration) {
	q.inflight.Add(1)
	if d <= 0 {
		go q.submit(ctx, job, attempt)
		return
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed.Load() {
		q.inflight.Done()
		return
	}
	key := q.nextKey
	q.nextKey++
	q.pending[key] = time.AfterFunc(d, func() {
		q.mu.Lock()
		_, owned := q.pending[key]
		delete(q.pending, key)
		q.mu.Unlock()
		// Close already released this timer's slot.
		if !owned {
			return
		}
		q.submit(ctx, job, attempt)
	})
}

func (q *LocalQueue) submit(ctx context.Context, job localJob, attempt int) {
	err := q.pool.Submit(func() {
		defer q.inflight.Done()
		q.run(ctx, job, attempt)
	})
	if err == nil {
		return
	}
	q.inflight.Done()
	q.releaseDedup(job.dedupID)
	err = errors.Wrapf(err, "submit job kind=%s", job.kind)
	q.logger.ErrorContext(ctx, "job dropped", "dispatch_id", job.dispatchID, "kind", job.kind, "attempt", attempt, "error", err)
	q.record(ctx, job, jobscheduler.StatusDead, attempt, err.Error())
	q.metrics.Job(job.kind, string(jobscheduler.StatusDead), 0)
}

// run executes one attempt and schedules the next one on a retryable failure.
func (q *LocalQueue) run(ctx context.Context, job localJob, attempt int) {
	start := q.now()
	err := q.attempt(ctx, job)
	elapsed := q.now().Sub(start)

	if err == nil {
		q.record(ctx, job, jobscheduler.StatusCompleted, attempt, "")
		q.metrics.Job(job.kind, string(jobscheduler.StatusCompleted), elapsed)
		return
	}

	if IsPermanent(err) || attempt >= q.cfg.MaxAttempts {
		q.logger.ErrorContext(ctx, "job dead-lettered",
			"dispatch_id", job.dispatchID,
			"kind", job.kind,
			"attempt", attempt,
			"payload", string(job.payload),
			"error", err,
		)
		q.record(ctx, job, jobscheduler.StatusDead, attempt, err.Error())
		q.metrics.Job(job.kind, string(jobscheduler.StatusDead), elapsed)
		return
	}

	q.logger.WarnContext(ctx, "job attempt failed",
		"dispatch_id", job.dispatchID,
		"kind", job.kind,
		"attempt", attempt,
		"error", err,
	)
	q.record(ctx, job, jobscheduler.StatusFailed, attempt, err.Error())
	q.metrics.Job(job.kind, string(jobscheduler.StatusFailed), elapsed)
	q.schedule(ctx, job, attempt+1, q.backoff(attempt))
}

func (q *LocalQueue) attempt(ctx context.Context, job localJob) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stopWatch := context.AfterFunc(q.abortCtx, cancel)
	defer stopWatch()

	var err error
	var catcher panics.Catcher
	catcher.Try(func() {
		err = q.registry.Dispatch(ctx, job.kind, job.payload)
	})
	if recovered := catcher.Recovered(); recovered != nil {
		return recovered.AsError()
	}
	return err
}

func (q *LocalQueue) backoff(attempt int) time.Duration {
	return exponentialBackoff(q.cfg.BaseBackoff, q.cfg.MaxBackoff, attempt)
}

// exponentialBackoff doubles base per attempt and caps at max.
func exponentialBackoff(base, max time.Duration, attempt int) time.Duration {
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= max {
			return max
		}
	}
	return d
}

func (q *LocalQueue) claimDedup(key string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	for k, at := range q.seen {
		if now.Sub(at) >= q.cfg.DedupTTL {
			delete(q.seen, k)
		}
	}
	if _, ok := q.seen[key]; ok {
		return false
	}
	q.seen[key] = now
	return true
}

func (q *LocalQueue) releaseDedup(key string) {
	if key == "" {
		return
	}
	q.mu.Lock()
	delete(q.seen, key)
	q.mu.Unlock()
}

func (q *LocalQueue) record(ctx context.Context, job localJob, status jobscheduler.DispatchStatus, attempt int, errMsg string) {
	if q.audit == nil {
		return
	}
	event := jobscheduler.DispatchEvent{
		DispatchID:   job.dispatchID,
		JobKind:      job.kind,
		Driver:       DriverLocal,
		Status:       status,
		Attempt:      attempt,
		ErrorMessage: errMsg,
		OccurredAt:   q.now().UTC(),
	}
	if status == jobscheduler.StatusSent {
		event.Payload = job.payload
	}
	q.audit.Record(ctx, event)
}

// Close stops accepting jobs and waits for queued and running attempts until
// ctx ends. Jobs still waiting on a delay or backoff are abandoned.
func (q *LocalQueue) Close(ctx context.Context) error {
	if !q.closed.CompareAndSwap(false, true) {
		return nil
	}

	q.mu.Lock()
	for key, timer := range q.pending {
		timer.Stop()
		delete(q.pending, key)
		q.inflight.Done()
	}
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.inflight.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		err = errors.Wrap(ctx.Err(), "wait for running jobs")
	}
	q.abort()
	q.pool.Release()
	return err
}
