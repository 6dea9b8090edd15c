package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/riskibarqy/homerun-cage/internal/domain/jobscheduler"
)

type JobDispatchRepository struct {
	mu    sync.RWMutex
	items map[string]jobscheduler.Dispatch
}

func NewJobDispatchRepository() *JobDispatchRepository {
	return &JobDispatchRepository{items: make(map[string]jobscheduler.Dispatch)}
}

// UpsertEvent folds one lifecycle event into the dispatch record, keeping the
// same column rules as the postgres upsert.
func (r *JobDispatchRepository) UpsertEvent(_ context.Context, event jobscheduler.DispatchEvent) error {
	dispatchID := strings.TrimSpace(event.DispatchID)
	if dispatchID == "" {
		return errors.New("dispatch id is required")
	}
	at := event.OccurredAt.UTC()

	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[dispatchID]
	if !ok {
		item = jobscheduler.Dispatch{DispatchID: dispatchID}
	}
	item.JobKind = event.JobKind
	item.Driver = event.Driver
	item.Status = event.Status
	if len(event.Payload) > 0 {
		item.Payload = append([]byte(nil), event.Payload...)
	}
	if event.Attempt > item.Attempts {
		item.Attempts = event.Attempt
	}
	item.UpdatedAt = at

	switch event.Status {
	case jobscheduler.StatusSent:
		item.SentAt = &at
		item.LastError = ""
	case jobscheduler.StatusCompleted:
		item.CompletedAt = &at
		item.FailedAt = nil
		item.LastError = ""
	case jobscheduler.StatusFailed, jobscheduler.StatusDead:
		item.FailedAt = &at
		item.LastError = event.ErrorMessage
	}

	r.items[dispatchID] = item
	return nil
}

// ListRecent returns the most recently updated dispatches first.
func (r *JobDispatchRepository) ListRecent(_ context.Context, limit int) ([]jobscheduler.Dispatch, error) {
	r.mu.RLock()
	out := make([]jobscheduler.Dispatch, 0, len(r.items))
	for _, item := range r.items {
		out = append(out, item)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].DispatchID < out[j].DispatchID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
