package usecase

import "github.com/cockroachdb/errors"

// Sentinels returned by every service; the HTTP layer maps them to statuses.
var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrNotFound              = errors.New("resource not found")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrConflict              = errors.New("conflict")
	ErrDependencyUnavailable = errors.New("dependency unavailable")
)

func isCallerError(err error) bool {
	return errors.IsAny(err, ErrInvalidInput, ErrNotFound, ErrUnauthorized, ErrConflict)
}
