package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cockroachdb/errors"
	"github.com/jmoiron/sqlx"

	"github.com/riskibarqy/homerun-cage/internal/domain/jobscheduler"
	qb "github.com/riskibarqy/homerun-cage/internal/platform/querybuilder"
)

// dispatchStamp groups the columns written when a dispatch enters one of
// statuses. Other statuses keep whatever the row already holds.
type dispatchStamp struct {
	statuses []jobscheduler.DispatchStatus
	columns  []string
	clearOn  []jobscheduler.DispatchStatus
}

var dispatchStamps = []dispatchStamp{
	{
		statuses: []jobscheduler.DispatchStatus{jobscheduler.StatusSent},
		columns:  []string{"sent_at", "sent_trace_id", "sent_span_id"},
	},
	{
		statuses: []jobscheduler.DispatchStatus{jobscheduler.StatusCompleted},
		columns:  []string{"completed_at", "completed_trace_id", "completed_span_id"},
	},
	{
		statuses: []jobscheduler.DispatchStatus{jobscheduler.StatusFailed, jobscheduler.StatusDead},
		columns:  []string{"failed_at", "failed_trace_id", "failed_span_id"},
		clearOn:  []jobscheduler.DispatchStatus{jobscheduler.StatusCompleted},
	},
}

var dispatchUpsertSuffix = buildDispatchUpsert()

func statusList(statuses []jobscheduler.DispatchStatus) string {
	quoted := make([]string, len(statuses))
	for i, st := range statuses {
		quoted[i] = "'" + string(st) + "'"
	}
	return strings.Join(quoted, ", ")
}

// buildDispatchUpsert renders the ON CONFLICT clause. Attempts never go
// backwards, an empty payload keeps the stored one and last_error only
// survives on failure statuses.
func buildDispatchUpsert() string {
	sets := []string{
		"job_kind = EXCLUDED.job_kind",
		"driver = EXCLUDED.driver",
		"payload = CASE WHEN EXCLUDED.payload = '{}'::jsonb THEN job_dispatches.payload ELSE EXCLUDED.payload END",
		"status = EXCLUDED.status",
		"attempts = GREATEST(job_dispatches.attempts, EXCLUDED.attempts)",
	}
	var failure []jobscheduler.DispatchStatus
	for _, stamp := range dispatchStamps {
		in := statusList(stamp.statuses)
		for _, col := range stamp.columns {
			expr := fmt.Sprintf("%s = CASE WHEN EXCLUDED.status IN (%s) THEN EXCLUDED.%s", col, in, col)
			if len(stamp.clearOn) > 0 && strings.HasSuffix(col, "_at") {
				expr += fmt.Sprintf(" WHEN EXCLUDED.status IN (%s) THEN NULL", statusList(stamp.clearOn))
			}
			sets = append(sets, expr+fmt.Sprintf(" ELSE job_dispatches.%s END", col))
		}
		if len(stamp.clearOn) > 0 {
			failure = stamp.statuses
		}
	}
	sets = append(sets,
		fmt.Sprintf("last_error = CASE WHEN EXCLUDED.status IN (%s) THEN EXCLUDED.last_error ELSE NULL END", statusList(failure)),
		"updated_at = EXCLUDED.updated_at",
		"deleted_at = NULL",
	)
	return "ON CONFLICT (dispatch_id) WHERE deleted_at IS NULL DO UPDATE SET\n    " + strings.Join(sets, ",\n    ")
}

type JobDispatchRepository struct {
	db *sqlx.DB
}

func NewJobDispatchRepository(db *sqlx.DB) *JobDispatchRepository {
	return &JobDispatchRepository{db: db}
}

func (r *JobDispatchRepository) UpsertEvent(ctx context.Context, event jobscheduler.DispatchEvent) error {
	model, err := jobDispatchModelFromEvent(event)
	if err != nil {
		return err
	}

	query, args, err := qb.InsertModel("job_dispatches", model, dispatchUpsertSuffix)
	if err != nil {
		return errors.Wrap(err, "build upsert job dispatch query")
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrapf(err, "upsert job dispatch dispatch_id=%s status=%s", model.DispatchID, event.Status)
	}
	return nil
}

// ListRecent returns the most recently updated dispatches first.
func (r *JobDispatchRepository) ListRecent(ctx context.Context, limit int) ([]jobscheduler.Dispatch, error) {
	query, args, err := qb.Select(jobDispatchColumns...).From("job_dispatches").
		Where(qb.IsNull("deleted_at")).
		OrderBy("updated_at DESC", "dispatch_id").
		Limit(limit).
		ToSQL()
	if err != nil {
		return nil, errors.Wrap(err, "build select job dispatches query")
	}

	var rows []jobDispatchTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "select job dispatches")
	}

	out := make([]jobscheduler.Dispatch, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func jobDispatchModelFromEvent(event jobscheduler.DispatchEvent) (jobDispatchInsertModel, error) {
	dispatchID := strings.TrimSpace(event.DispatchID)
	if dispatchID == "" {
		return jobDispatchInsertModel{}, errors.New("dispatch id is required")
	}

	jobKind := strings.TrimSpace(event.JobKind)
	if jobKind == "" {
		jobKind = "unknown"
	}
	driver := strings.TrimSpace(event.Driver)
	if driver == "" {
		driver = "unknown"
	}

	occurredAt := event.OccurredAt.UTC()
	if event.OccurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	payload, err := normalizePayload(event.Payload)
	if err != nil {
		return jobDispatchInsertModel{}, errors.Wrap(err, "marshal job dispatch payload")
	}

	model := jobDispatchInsertModel{
		DispatchID: dispatchID,
		JobKind:    jobKind,
		Driver:     driver,
		Payload:    payload,
		Status:     string(event.Status),
		Attempts:   event.Attempt,
		LastError:  optionalString(event.ErrorMessage),
		UpdatedAt:  occurredAt,
	}

	switch event.Status {
	case jobscheduler.StatusSent:
		model.SentAt = &occurredAt
		model.SentTraceID = optionalString(event.TraceID)
		model.SentSpanID = optionalString(event.SpanID)
		model.LastError = nil
	case jobscheduler.StatusCompleted:
		model.CompletedAt = &occurredAt
		model.CompletedTraceID = optionalString(event.TraceID)
		model.CompletedSpanID = optionalString(event.SpanID)
		model.LastError = nil
	case jobscheduler.StatusFailed, jobscheduler.StatusDead:
		model.FailedAt = &occurredAt
		model.FailedTraceID = optionalString(event.TraceID)
		model.FailedSpanID = optionalString(event.SpanID)
	default:
		return jobDispatchInsertModel{}, errors.Newf("unknown dispatch status %q", event.Status)
	}

	return model, nil
}

// normalizePayload stores JSON payloads as-is and wraps anything else in a
// JSON string so the column stays valid jsonb.
func normalizePayload(payload []byte) (string, error) {
	if len(payload) == 0 {
		return "{}", nil
	}
	if sonic.Valid(payload) {
		return string(payload), nil
	}
	return sonic.MarshalString(string(payload))
}
