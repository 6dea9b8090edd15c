package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/riskibarqy/homerun-cage/internal/domain/jobscheduler"
	"github.com/riskibarqy/homerun-cage/internal/platform/logging"
)

const (
	defaultJobAuditLimit = 50
	maxJobAuditLimit     = 500
)

// JobAuditService keeps the dispatch trail of background jobs.
type JobAuditService struct {
	repo   jobscheduler.Repository
	logger *logging.Logger
	now    func() time.Time
}

func NewJobAuditService(repo jobscheduler.Repository, logger *logging.Logger) *JobAuditService {
	if logger == nil {
		logger = logging.Default()
	}
	return &JobAuditService{repo: repo, logger: logger, now: time.Now}
}

// Record stores one dispatch event. Failures are logged only; the audit trail
// never fails a job.
func (s *JobAuditService) Record(ctx context.Context, event jobscheduler.DispatchEvent) {
	if s == nil || s.repo == nil || strings.TrimSpace(event.DispatchID) == "" {
		return
	}
	if event.TraceID == "" {
		event.TraceID, event.SpanID = traceMetaFromContext(ctx)
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = s.now().UTC()
	}
	if err := s.repo.UpsertEvent(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "record job dispatch event failed",
			"dispatch_id", event.DispatchID,
			"status", event.Status,
			"error", err,
		)
	}
}

func (s *JobAuditService) ListRecent(ctx context.Context, limit int) ([]jobscheduler.Dispatch, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.JobAuditService.ListRecent")
	defer span.End()

	if limit <= 0 {
		limit = defaultJobAuditLimit
	}
	if limit > maxJobAuditLimit {
		return nil, fmt.Errorf("%w: limit must be <= %d", ErrInvalidInput, maxJobAuditLimit)
	}
	if s.repo == nil {
		return []jobscheduler.Dispatch{}, nil
	}

	items, err := s.repo.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list job dispatches: %w", err)
	}
	return items, nil
}
