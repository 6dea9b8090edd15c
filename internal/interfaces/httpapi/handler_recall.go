package httpapi

import (
	"fmt"
	"net/http"

	"github.com/riskibarqy/homerun-cage/internal/usecase"
)

func (h *Handler) ListActiveRecalls(w http.ResponseWriter, r *http.Request) {
	ctx, span := startHandlerSpan(r, "ListActiveRecalls")
	defer span.End()

	overview, err := h.recallService.Overview(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "list active recalls failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, recallListDTO{
		Settings: recallSettingsToDTO(overview.Settings),
		Games:    gamesToDTO(overview.Active),
	})
}

func (h *Handler) ListNextRecalls(w http.ResponseWriter, r *http.Request) {
	ctx, span := startHandlerSpan(r, "ListNextRecalls")
	defer span.End()

	overview, err := h.recallService.Overview(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "list next recalls failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, recallListDTO{
		Settings: recallSettingsToDTO(overview.Settings),
		Games:    gamesToDTO(overview.Next),
	})
}

func (h *Handler) FillRecalls(w http.ResponseWriter, r *http.Request) {
	ctx, span := startHandlerSpan(r, "FillRecalls")
	defer span.End()

	var req fillRecallsRequest
	if err := decodeJSON(r, &req, true); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	result, err := h.recallService.Fill(ctx, req.Trigger)
	if err != nil {
		h.logger.WarnContext(ctx, "fill recalls failed", "trigger", req.Trigger, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, recallFillToDTO(result))
}

func (h *Handler) GetRecallSettings(w http.ResponseWriter, r *http.Request) {
	ctx, span := startHandlerSpan(r, "GetRecallSettings")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, recallSettingsToDTO(h.recallService.Settings()))
}

func (h *Handler) UpdateRecallSettings(w http.ResponseWriter, r *http.Request) {
	ctx, span := startHandlerSpan(r, "UpdateRecallSettings")
	defer span.End()

	var req updateRecallSettingsRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(ctx, w, err)
		return
	}
	if req.WindowSize == nil && req.WindowMinutes == nil && req.Disabled == nil {
		writeError(ctx, w, fmt.Errorf("%w: at least one setting is required", usecase.ErrInvalidInput))
		return
	}

	settings, err := h.recallService.UpdateSettings(ctx, usecase.UpdateRecallSettingsInput{
		WindowSize:    req.WindowSize,
		WindowMinutes: req.WindowMinutes,
		Disabled:      req.Disabled,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "update recall settings failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, recallSettingsToDTO(settings))
}

func (h *Handler) GetRecallPollerStatus(w http.ResponseWriter, r *http.Request) {
	ctx, span := startHandlerSpan(r, "GetRecallPollerStatus")
	defer span.End()

	if h.recallPoller == nil {
		writeError(ctx, w, fmt.Errorf("%w: recall poller is not running", usecase.ErrDependencyUnavailable))
		return
	}

	status := h.recallPoller.Status()
	writeSuccess(ctx, w, http.StatusOK, recallPollerDTO{
		ConsecutiveFailures: status.ConsecutiveFailures,
		LastError:           status.LastError,
		LastAttempt:         formatTime(status.LastAttempt),
		LastSuccess:         formatTime(status.LastSuccess),
		LastRecalled:        status.LastRecalled,
	})
}
