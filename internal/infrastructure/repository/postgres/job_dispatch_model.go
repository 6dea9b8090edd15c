package postgres

import (
	"database/sql"
	"time"

	"github.com/riskibarqy/homerun-cage/internal/domain/jobscheduler"
)

type jobDispatchInsertModel struct {
	DispatchID       string     `db:"dispatch_id"`
	JobKind          string     `db:"job_kind"`
	Driver           string     `db:"driver"`
	Payload          string     `db:"payload"`
	Status           string     `db:"status"`
	Attempts         int        `db:"attempts"`
	SentAt           *time.Time `db:"sent_at"`
	CompletedAt      *time.Time `db:"completed_at"`
	FailedAt         *time.Time `db:"failed_at"`
	LastError        *string    `db:"last_error"`
	SentTraceID      *string    `db:"sent_trace_id"`
	SentSpanID       *string    `db:"sent_span_id"`
	CompletedTraceID *string    `db:"completed_trace_id"`
	CompletedSpanID  *string    `db:"completed_span_id"`
	FailedTraceID    *string    `db:"failed_trace_id"`
	FailedSpanID     *string    `db:"failed_span_id"`
	UpdatedAt        time.Time  `db:"updated_at"`
}

var jobDispatchColumns = []string{
	"dispatch_id",
	"job_kind",
	"driver",
	"payload",
	"status",
	"attempts",
	"sent_at",
	"completed_at",
	"failed_at",
	"last_error",
	"updated_at",
}

type jobDispatchTableModel struct {
	DispatchID  string         `db:"dispatch_id"`
	JobKind     string         `db:"job_kind"`
	Driver      string         `db:"driver"`
	Payload     []byte         `db:"payload"`
	Status      string         `db:"status"`
	Attempts    int            `db:"attempts"`
	SentAt      *time.Time     `db:"sent_at"`
	CompletedAt *time.Time     `db:"completed_at"`
	FailedAt    *time.Time     `db:"failed_at"`
	LastError   sql.NullString `db:"last_error"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

func (m jobDispatchTableModel) toDomain() jobscheduler.Dispatch {
	return jobscheduler.Dispatch{
		DispatchID:  m.DispatchID,
		JobKind:     m.JobKind,
		Driver:      m.Driver,
		Status:      jobscheduler.DispatchStatus(m.Status),
		Attempts:    m.Attempts,
		Payload:     m.Payload,
		LastError:   nullStringValue(m.LastError),
		SentAt:      utcPtr(m.SentAt),
		CompletedAt: utcPtr(m.CompletedAt),
		FailedAt:    utcPtr(m.FailedAt),
		UpdatedAt:   m.UpdatedAt.UTC(),
	}
}
