package app

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/riskibarqy/homerun-cage/internal/config"
	"github.com/riskibarqy/homerun-cage/internal/infrastructure/jobqueue"
	"github.com/riskibarqy/homerun-cage/internal/platform/logging"
	"github.com/riskibarqy/homerun-cage/internal/platform/metrics"
	"github.com/riskibarqy/homerun-cage/internal/usecase"
)

// jobQueue is the configured driver plus its lifecycle hooks. qstash has
// nothing to start or stop locally.
type jobQueue struct {
	usecase.JobQueue
	driver  string
	startFn func(context.Context) error
	closeFn func(context.Context) error
}

func newJobQueue(
	ctx context.Context,
	cfg config.Config,
	registry *jobqueue.Registry,
	audit jobqueue.Auditor,
	recorder *metrics.Recorder,
	logger *logging.Logger,
) (*jobQueue, error) {
	switch cfg.JobQueueDriver {
	case config.QueueRiver:
		q, err := jobqueue.NewRiverQueue(ctx, cfg.DBURL, registry, jobqueue.RiverQueueConfig{
			Workers:     cfg.JobWorkers,
			MaxAttempts: cfg.JobMaxAttempts,
			BaseBackoff: cfg.JobBaseBackoff,
			MaxBackoff:  cfg.JobMaxBackoff,
			DedupTTL:    cfg.JobDedupTTL,
		}, audit, recorder, logger)
		if err != nil {
			return nil, errors.Wrap(err, "create river job queue")
		}
		return &jobQueue{JobQueue: q, driver: jobqueue.DriverRiver, startFn: q.Start, closeFn: q.Close}, nil

	case config.QueueQStash:
		q := jobqueue.NewQStashPublisher(jobqueue.QStashPublisherConfig{
			BaseURL:          cfg.QStashBaseURL,
			Token:            cfg.QStashToken,
			TargetBaseURL:    cfg.QStashTargetBaseURL,
			Retries:          cfg.QStashRetries,
			InternalJobToken: cfg.InternalJobToken,
			Timeout:          cfg.QStashTimeout,
			CircuitBreaker:   cfg.QStashCircuitBreaker(),
		}, audit, logger)
		return &jobQueue{JobQueue: q, driver: jobqueue.DriverQStash}, nil

	default:
		q, err := jobqueue.NewLocalQueue(registry, jobqueue.LocalQueueConfig{
			Workers:     cfg.JobWorkers,
			MaxAttempts: cfg.JobMaxAttempts,
			BaseBackoff: cfg.JobBaseBackoff,
			MaxBackoff:  cfg.JobMaxBackoff,
			DedupTTL:    cfg.JobDedupTTL,
		}, audit, recorder, logger)
		if err != nil {
			return nil, errors.Wrap(err, "create local job queue")
		}
		return &jobQueue{JobQueue: q, driver: jobqueue.DriverLocal, closeFn: q.Close}, nil
	}
}

func (q *jobQueue) start(ctx context.Context) error {
	if q == nil || q.startFn == nil {
		return nil
	}
	return q.startFn(ctx)
}

func (q *jobQueue) close(ctx context.Context) error {
	if q == nil || q.closeFn == nil {
		return nil
	}
	if err := q.closeFn(ctx); err != nil {
		return errors.Wrapf(err, "close %s job queue", q.driver)
	}
	return nil
}
