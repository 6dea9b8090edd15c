package httpapi

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/riskibarqy/homerun-cage/internal/domain/jobscheduler"
	"github.com/riskibarqy/homerun-cage/internal/infrastructure/jobqueue"
	"github.com/riskibarqy/homerun-cage/internal/usecase"
)

const maxInternalJobBodyBytes = 1 << 20

func (h *Handler) ListJobDispatches(w http.ResponseWriter, r *http.Request) {
	ctx, span := startHandlerSpan(r, "ListJobDispatches")
	defer span.End()

	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			writeError(ctx, w, fmt.Errorf("%w: limit must be positive integer", usecase.ErrInvalidInput))
			return
		}
		limit = v
	}

	if h.jobAudit == nil {
		writeError(ctx, w, fmt.Errorf("%w: job audit is not configured", usecase.ErrDependencyUnavailable))
		return
	}

	items, err := h.jobAudit.ListRecent(ctx, limit)
	if err != nil {
		h.logger.WarnContext(ctx, "list job dispatches failed", "limit", limit, "error", err)
		writeError(ctx, w, err)
		return
	}

	out := make([]jobDispatchDTO, 0, len(items))
	for _, item := range items {
		out = append(out, jobDispatchToDTO(item))
	}

	writeSuccess(ctx, w, http.StatusOK, out)
}

// RunInternalJob executes one delivered job synchronously. Non-2xx answers
// make the upstream queue retry, except for permanent failures which are
// acknowledged so they are not redelivered.
func (h *Handler) RunInternalJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startHandlerSpan(r, "RunInternalJob")
	defer span.End()

	if h.jobRegistry == nil {
		writeError(ctx, w, fmt.Errorf("%w: job registry is not configured", usecase.ErrDependencyUnavailable))
		return
	}

	kind := strings.TrimSpace(r.PathValue("kind"))
	if !h.jobRegistry.Has(kind) {
		writeError(ctx, w, fmt.Errorf("%w: job kind=%s", usecase.ErrNotFound, kind))
		return
	}

	raw, err := io.ReadAll(io.LimitReader(r.Body, maxInternalJobBodyBytes))
	if err != nil {
		writeError(ctx, w, fmt.Errorf("%w: read job body: %v", usecase.ErrInvalidInput, err))
		return
	}
	body, err := jobqueue.DecodeQStashBody(raw)
	if err != nil {
		writeError(ctx, w, fmt.Errorf("%w: %v", usecase.ErrInvalidInput, err))
		return
	}

	dispatchID := strings.TrimSpace(r.Header.Get(jobqueue.DispatchIDHeader))
	if dispatchID == "" {
		dispatchID = strings.TrimSpace(r.Header.Get("Upstash-Message-Id"))
	}
	attempt := deliveryAttempt(r)

	err = h.jobRegistry.Dispatch(ctx, kind, body)
	event := jobscheduler.DispatchEvent{
		DispatchID: dispatchID,
		JobKind:    kind,
		Driver:     jobqueue.DriverQStash,
		Attempt:    attempt,
		OccurredAt: time.Now().UTC(),
	}

	switch {
	case err == nil:
		event.Status = jobscheduler.StatusCompleted
		h.jobAudit.Record(ctx, event)
		writeSuccess(ctx, w, http.StatusOK, map[string]string{"kind": kind, "status": string(event.Status)})
	case jobqueue.IsPermanent(err):
		event.Status = jobscheduler.StatusDead
		event.ErrorMessage = err.Error()
		event.Payload = body
		h.jobAudit.Record(ctx, event)
		h.logger.ErrorContext(ctx, "internal job dead-lettered", "kind", kind, "dispatch_id", dispatchID, "payload", string(body), "error", err)
		writeSuccess(ctx, w, http.StatusOK, map[string]string{"kind": kind, "status": string(event.Status)})
	default:
		event.Status = jobscheduler.StatusFailed
		event.ErrorMessage = err.Error()
		h.jobAudit.Record(ctx, event)
		h.logger.WarnContext(ctx, "internal job failed", "kind", kind, "dispatch_id", dispatchID, "attempt", attempt, "error", err)
		writeError(ctx, w, err)
	}
}

// deliveryAttempt is 1 for the first delivery; qstash reports prior retries.
func deliveryAttempt(r *http.Request) int {
	retried, err := strconv.Atoi(strings.TrimSpace(r.Header.Get("Upstash-Retried")))
	if err != nil || retried < 0 {
		return 1
	}
	return retried + 1
}
