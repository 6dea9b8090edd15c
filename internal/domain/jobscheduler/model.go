package jobscheduler

import "time"

type DispatchStatus string

const (
	StatusSent      DispatchStatus = "sent"
	StatusCompleted DispatchStatus = "completed"
	StatusFailed    DispatchStatus = "failed"
	StatusDead      DispatchStatus = "dead"
)

// DispatchEvent is one lifecycle step of a background job.
type DispatchEvent struct {
	DispatchID   string
	JobKind      string
	Driver       string
	Status       DispatchStatus
	Attempt      int
	Payload      []byte
	ErrorMessage string
	OccurredAt   time.Time
	TraceID      string
	SpanID       string
}

// Dispatch is the latest known state of a job.
type Dispatch struct {
	DispatchID  string
	JobKind     string
	Driver      string
	Status      DispatchStatus
	Attempts    int
	Payload     []byte
	LastError   string
	SentAt      *time.Time
	CompletedAt *time.Time
	FailedAt    *time.Time
	UpdatedAt   time.Time
}
