package memory

import (
	"context"
	"testing"
	"time"

	"github.com/riskibarqy/homerun-cage/internal/domain/jobscheduler"
)

func TestJobDispatchRepository_FoldsLifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewJobDispatchRepository()

	events := []jobscheduler.DispatchEvent{
		{DispatchID: "d1", JobKind: "send-sms", Driver: "local", Status: jobscheduler.StatusSent, Attempt: 1, OccurredAt: t0},
		{DispatchID: "d1", JobKind: "send-sms", Driver: "local", Status: jobscheduler.StatusFailed, Attempt: 1, ErrorMessage: "gateway 503", OccurredAt: t0.Add(time.Second)},
		{DispatchID: "d1", JobKind: "send-sms", Driver: "local", Status: jobscheduler.StatusCompleted, Attempt: 2, OccurredAt: t0.Add(3 * time.Second)},
		{DispatchID: "d2", JobKind: "capture-souvenir", Driver: "local", Status: jobscheduler.StatusSent, Attempt: 1, OccurredAt: t0.Add(2 * time.Second)},
	}
	for _, e := range events {
		if err := repo.UpsertEvent(ctx, e); err != nil {
			t.Fatalf("upsert %s/%s: %v", e.DispatchID, e.Status, err)
		}
	}

	items, err := repo.ListRecent(ctx, 10)
	if err != nil {
		t.Fatalf("list recent: %v", err)
	}
	if len(items) != 2 || items[0].DispatchID != "d1" {
		t.Fatalf("unexpected order: %+v", items)
	}

	d1 := items[0]
	if d1.Status != jobscheduler.StatusCompleted || d1.Attempts != 2 {
		t.Fatalf("unexpected d1: %+v", d1)
	}
	if d1.FailedAt != nil || d1.LastError != "" {
		t.Fatalf("completion must clear failure fields: %+v", d1)
	}
	if d1.SentAt == nil || !d1.SentAt.Equal(t0) {
		t.Fatalf("expected sent_at preserved, got %v", d1.SentAt)
	}

	limited, _ := repo.ListRecent(ctx, 1)
	if len(limited) != 1 {
		t.Fatalf("expected limit to apply, got %d", len(limited))
	}
}

func TestJobDispatchRepository_RequiresID(t *testing.T) {
	t.Parallel()

	if err := NewJobDispatchRepository().UpsertEvent(context.Background(), jobscheduler.DispatchEvent{}); err == nil {
		t.Fatalf("expected error for empty dispatch id")
	}
}
