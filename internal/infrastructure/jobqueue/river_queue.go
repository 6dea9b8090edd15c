package jobqueue

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"

	"github.com/riskibarqy/homerun-cage/internal/domain/jobscheduler"
	"github.com/riskibarqy/homerun-cage/internal/platform/logging"
	"github.com/riskibarqy/homerun-cage/internal/platform/metrics"
)

const (
	DriverRiver = "river"

	riverJobKind = "cage_job"
	riverQueue   = "cage"
)

// riverJobArgs wraps every registry kind in one river job type. River
// persists args with encoding/json, so the payload stays raw JSON.
type riverJobArgs struct {
	JobKind    string          `json:"job_kind"`
	DispatchID string          `json:"dispatch_id,omitempty"`
	Payload    json.RawMessage `json:"payload"`
}

func (riverJobArgs) Kind() string { return riverJobKind }

type RiverQueueConfig struct {
	Workers     int
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
	DedupTTL    time.Duration
}

// RiverQueue is the durable driver: jobs are rows in postgres and survive
// restarts.
type RiverQueue struct {
	client   *river.Client[pgx.Tx]
	pool     *pgxpool.Pool
	registry *Registry
	cfg      RiverQueueConfig
	audit    Auditor
	logger   *logging.Logger
}

func NewRiverQueue(
	ctx context.Context,
	dsn string,
	registry *Registry,
	cfg RiverQueueConfig,
	audit Auditor,
	recorder *metrics.Recorder,
	logger *logging.Logger,
) (*RiverQueue, error) {
	if registry == nil {
		return nil, errors.New("job registry is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	local := LocalQueueConfig{
		Workers:     cfg.Workers,
		MaxAttempts: cfg.MaxAttempts,
		BaseBackoff: cfg.BaseBackoff,
		MaxBackoff:  cfg.MaxBackoff,
		DedupTTL:    cfg.DedupTTL,
	}.normalize()
	cfg = RiverQueueConfig(local)
	logger = logger.Named("jobqueue.river")

	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, errors.Wrap(err, "parse river dsn")
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, errors.Wrap(err, "create river pgx pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "ping river database")
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, &riverWorker{
		registry: registry,
		cfg:      cfg,
		audit:    audit,
		metrics:  recorder,
		logger:   logger,
	})

	client, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			riverQueue: {MaxWorkers: cfg.Workers},
		},
		MaxAttempts: cfg.MaxAttempts,
		Workers:     workers,
	})
	if err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "create river client")
	}

	return &RiverQueue{
		client:   client,
		pool:     pool,
		registry: registry,
		cfg:      cfg,
		audit:    audit,
		logger:   logger,
	}, nil
}

func (q *RiverQueue) Start(ctx context.Context) error {
	if err := q.client.Start(ctx); err != nil {
		return errors.Wrap(err, "start river client")
	}
	q.logger.Info("river job queue started", "workers", q.cfg.Workers, "kinds", q.registry.Kinds())
	return nil
}

func (q *RiverQueue) Enqueue(ctx context.Context, kind string, payload any, delay time.Duration, deduplicationID string) error {
	kind = strings.TrimSpace(kind)
	if !q.registry.Has(kind) {
		return errors.Wrapf(ErrUnknownKind, "kind=%s", kind)
	}
	body, err := encodePayload(payload)
	if err != nil {
		return err
	}

	args := riverJobArgs{
		JobKind:    kind,
		DispatchID: strings.TrimSpace(deduplicationID),
		Payload:    body,
	}
	opts := &river.InsertOpts{
		Queue:       riverQueue,
		MaxAttempts: q.cfg.MaxAttempts,
	}
	if delay > 0 {
		opts.ScheduledAt = time.Now().Add(delay)
	}
	if args.DispatchID != "" {
		opts.UniqueOpts = river.UniqueOpts{ByArgs: true, ByPeriod: q.cfg.DedupTTL}
	}

	res, err := q.client.Insert(ctx, args, opts)
	if err != nil {
		return errors.Wrapf(err, "insert river job kind=%s", kind)
	}
	if res.UniqueSkippedAsDuplicate {
		q.logger.DebugContext(ctx, "duplicate job dropped", "kind", kind, "deduplication_id", args.DispatchID)
		return nil
	}
	q.logger.DebugContext(ctx, "river job inserted", "kind", kind, "job_id", res.Job.ID)

	if q.audit != nil {
		dispatchID := args.DispatchID
		if dispatchID == "" {
			dispatchID = "river-" + strconv.FormatInt(res.Job.ID, 10)
		}
		q.audit.Record(ctx, jobscheduler.DispatchEvent{
			DispatchID: dispatchID,
			JobKind:    kind,
			Driver:     DriverRiver,
			Status:     jobscheduler.StatusSent,
			Payload:    body,
			OccurredAt: time.Now().UTC(),
		})
	}
	return nil
}

func (q *RiverQueue) Close(ctx context.Context) error {
	defer q.pool.Close()
	if err := q.client.Stop(ctx); err != nil {
		return errors.Wrap(err, "stop river client")
	}
	return nil
}

type riverWorker struct {
	river.WorkerDefaults[riverJobArgs]

	registry *Registry
	cfg      RiverQueueConfig
	audit    Auditor
	metrics  *metrics.Recorder
	logger   *logging.Logger
}

func (w *riverWorker) Work(ctx context.Context, job *river.Job[riverJobArgs]) error {
	args := job.Args
	dispatchID := args.DispatchID
	if dispatchID == "" {
		dispatchID = "river-" + strconv.FormatInt(job.ID, 10)
	}

	start := time.Now()
	err := w.registry.Dispatch(ctx, args.JobKind, args.Payload)
	elapsed := time.Since(start)

	event := jobscheduler.DispatchEvent{
		DispatchID: dispatchID,
		JobKind:    args.JobKind,
		Driver:     DriverRiver,
		Attempt:    job.Attempt,
		OccurredAt: time.Now().UTC(),
	}

	switch {
	case err == nil:
		event.Status = jobscheduler.StatusCompleted
	case IsPermanent(err) || job.Attempt >= job.MaxAttempts:
		event.Status = jobscheduler.StatusDead
		event.ErrorMessage = err.Error()
		event.Payload = args.Payload
		w.logger.ErrorContext(ctx, "job dead-lettered",
			"dispatch_id", dispatchID,
			"kind", args.JobKind,
			"attempt", job.Attempt,
			"error", err,
		)
		err = river.JobCancel(err)
	default:
		event.Status = jobscheduler.StatusFailed
		event.ErrorMessage = err.Error()
		w.logger.WarnContext(ctx, "job attempt failed",
			"dispatch_id", dispatchID,
			"kind", args.JobKind,
			"attempt", job.Attempt,
			"error", err,
		)
	}

	if w.audit != nil {
		w.audit.Record(ctx, event)
	}
	w.metrics.Job(args.JobKind, string(event.Status), elapsed)
	return err
}

func (w *riverWorker) NextRetry(job *river.Job[riverJobArgs]) time.Time {
	return time.Now().Add(exponentialBackoff(w.cfg.BaseBackoff, w.cfg.MaxBackoff, job.Attempt))
}
