package usecase

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"
)

const (
	JobKindSendSMS         = "send-sms"
	JobKindCaptureSouvenir = "capture-souvenir"
	JobKindRecallFill      = "recall-fill"
)

// JobQueue hands background work to a queue driver. kind selects the handler
// the worker side runs; deduplicationID lets drivers drop repeats.
type JobQueue interface {
	Enqueue(ctx context.Context, kind string, payload any, delay time.Duration, deduplicationID string) error
}

type noopJobQueue struct{}

func (noopJobQueue) Enqueue(_ context.Context, _ string, _ any, _ time.Duration, _ string) error {
	return nil
}

func NewNoopJobQueue() JobQueue {
	return noopJobQueue{}
}

type CaptureSouvenirPayload struct {
	GameID string `json:"game_id"`
}

type RecallFillPayload struct {
	Trigger string `json:"trigger"`
}

// dedupKey names one delivery slot: repeats for the same subject inside the
// same bucket share a key, which qstash and river use to drop duplicates.
func dedupKey(prefix, subject string, at time.Time, bucket time.Duration) string {
	if bucket <= 0 {
		bucket = time.Minute
	}
	slot := at.UTC().Truncate(bucket).Format("20060102T150405Z")
	return sanitizeDedupSegment(prefix) + "-" + sanitizeDedupSegment(subject) + "-" + slot
}

// sanitizeDedupSegment keeps ASCII letters, digits, '_' and '-' and replaces
// every other rune with '-'.
func sanitizeDedupSegment(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		default:
			return '-'
		}
	}, value)
}

func traceMetaFromContext(ctx context.Context) (traceID, spanID string) {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return "", ""
	}
	return sc.TraceID().String(), sc.SpanID().String()
}
