package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	sonic "github.com/bytedance/sonic"

	"github.com/riskibarqy/homerun-cage/internal/domain/game"
	"github.com/riskibarqy/homerun-cage/internal/usecase"
)

func TestWriteSuccess_GoogleEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	writeSuccess(context.Background(), rec, http.StatusOK, map[string]string{"status": "ok"})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var body map[string]any
	if err := sonic.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response body: %v", err)
	}

	if got, _ := body["apiVersion"].(string); got != "2.0" {
		t.Fatalf("expected apiVersion=2.0, got %v", body["apiVersion"])
	}
	if _, ok := body["data"]; !ok {
		t.Fatalf("expected data key in success response")
	}
	if _, ok := body["error"]; ok {
		t.Fatalf("did not expect error key in success response")
	}
}

func TestWriteError_GoogleEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(context.Background(), rec, fmt.Errorf("%w: bad payload", usecase.ErrInvalidInput))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}

	var body map[string]any
	if err := sonic.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response body: %v", err)
	}

	if got, _ := body["apiVersion"].(string); got != "2.0" {
		t.Fatalf("expected apiVersion=2.0, got %v", body["apiVersion"])
	}
	errorObj, ok := body["error"].(map[string]any)
	if !ok {
		t.Fatalf("expected error object in response")
	}
	if got, _ := errorObj["status"].(string); got != "INVALID_ARGUMENT" {
		t.Fatalf("expected error status INVALID_ARGUMENT, got %v", errorObj["status"])
	}
}

func TestMapError_GameErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		reason string
	}{
		{
			name:   "illegal transition",
			err:    &game.IllegalTransitionError{From: game.StateNew, To: game.StatePlaying},
			status: http.StatusBadRequest,
			reason: "illegalTransition",
		},
		{
			name:   "lost race",
			err:    fmt.Errorf("commit queue: %w", game.ErrConcurrentModification),
			status: http.StatusConflict,
			reason: "concurrentModification",
		},
		{
			name:   "bad scores",
			err:    game.ErrInvalidScores,
			status: http.StatusBadRequest,
			reason: "invalidInput",
		},
		{
			name:   "active game exists",
			err:    game.ErrActiveGameExists,
			status: http.StatusConflict,
			reason: "conflict",
		},
		{
			name:   "dependency",
			err:    fmt.Errorf("%w: poller", usecase.ErrDependencyUnavailable),
			status: http.StatusServiceUnavailable,
			reason: "dependencyUnavailable",
		},
		{
			name:   "unknown",
			err:    fmt.Errorf("boom"),
			status: http.StatusInternalServerError,
			reason: "internalError",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := mapError(tc.err)
			if got.HTTPStatus != tc.status || got.Reason != tc.reason {
				t.Fatalf("mapError(%v) = %d/%s, want %d/%s", tc.err, got.HTTPStatus, got.Reason, tc.status, tc.reason)
			}
		})
	}
}

func TestWriteError_HidesInternalDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(context.Background(), rec, fmt.Errorf("pq: connection refused"))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", rec.Code)
	}
	var body googleResponseEnvelope
	if err := sonic.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response body: %v", err)
	}
	if body.Error == nil || body.Error.Message != "internal server error" {
		t.Fatalf("expected generic message, got %+v", body.Error)
	}
}
