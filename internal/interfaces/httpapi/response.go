package httpapi

import (
	"context"
	"errors"
	"net/http"

	sonic "github.com/bytedance/sonic"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/riskibarqy/homerun-cage/internal/domain/game"
	"github.com/riskibarqy/homerun-cage/internal/usecase"
)

// Responses follow the Google JSON style guide envelope.
const (
	googleAPIVersion = "2.0"
	errorDomain      = "homerun-cage"
)

type googleResponseEnvelope struct {
	APIVersion string           `json:"apiVersion"`
	Data       any              `json:"data,omitempty"`
	Error      *googleErrorBody `json:"error,omitempty"`
}

type googleErrorBody struct {
	Code    int               `json:"code"`
	Message string            `json:"message"`
	Status  string            `json:"status"`
	Errors  []googleErrorItem `json:"errors,omitempty"`
}

type googleErrorItem struct {
	Domain  string `json:"domain"`
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

type mappedError struct {
	HTTPStatus int
	Reason     string
	Status     string
}

var internalError = mappedError{HTTPStatus: http.StatusInternalServerError, Reason: "internalError", Status: "INTERNAL"}

// errorRules is checked in order; the first matching sentinel wins.
var errorRules = []struct {
	targets []error
	mapped  mappedError
}{
	{[]error{game.ErrIllegalTransition}, mappedError{http.StatusBadRequest, "illegalTransition", "FAILED_PRECONDITION"}},
	{[]error{game.ErrConcurrentModification}, mappedError{http.StatusConflict, "concurrentModification", "ABORTED"}},
	{[]error{usecase.ErrInvalidInput, game.ErrInvalidScores}, mappedError{http.StatusBadRequest, "invalidInput", "INVALID_ARGUMENT"}},
	{[]error{usecase.ErrNotFound}, mappedError{http.StatusNotFound, "notFound", "NOT_FOUND"}},
	{[]error{usecase.ErrConflict, game.ErrActiveGameExists}, mappedError{http.StatusConflict, "conflict", "ALREADY_EXISTS"}},
	{[]error{usecase.ErrUnauthorized}, mappedError{http.StatusUnauthorized, "unauthorized", "UNAUTHENTICATED"}},
	{[]error{usecase.ErrDependencyUnavailable}, mappedError{http.StatusServiceUnavailable, "dependencyUnavailable", "UNAVAILABLE"}},
}

func mapError(err error) mappedError {
	for _, rule := range errorRules {
		for _, target := range rule.targets {
			if errors.Is(err, target) {
				return rule.mapped
			}
		}
	}
	return internalError
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = sonic.ConfigDefault.NewEncoder(w).Encode(payload)
}

func writeSuccess(_ context.Context, w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, googleResponseEnvelope{APIVersion: googleAPIVersion, Data: data})
}

// writeError renders err in the envelope and marks the active span. Server
// side failures keep their detail out of the response body.
func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	mapped := mapError(err)
	message := err.Error()
	if mapped == internalError {
		message = "internal server error"
	}

	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
	if mapped.HTTPStatus >= http.StatusInternalServerError {
		span.SetStatus(codes.Error, mapped.Reason)
	}

	writeErrorBody(w, mapped, message)
}

func writeInternalError(ctx context.Context, w http.ResponseWriter) {
	trace.SpanFromContext(ctx).SetStatus(codes.Error, internalError.Reason)
	writeErrorBody(w, internalError, "internal server error")
}

func writeErrorBody(w http.ResponseWriter, mapped mappedError, message string) {
	writeJSON(w, mapped.HTTPStatus, googleResponseEnvelope{
		APIVersion: googleAPIVersion,
		Error: &googleErrorBody{
			Code:    mapped.HTTPStatus,
			Message: message,
			Status:  mapped.Status,
			Errors: []googleErrorItem{{
				Domain:  errorDomain,
				Reason:  mapped.Reason,
				Message: message,
			}},
		},
	})
}
