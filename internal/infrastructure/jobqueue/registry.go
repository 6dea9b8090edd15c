package jobqueue

import (
	"context"
	"sort"
	"strings"
	"sync"

	sonic "github.com/bytedance/sonic"
	"github.com/cockroachdb/errors"
)

var (
	ErrUnknownKind = errors.New("unknown job kind")
	// ErrPermanent marks job errors that retrying cannot fix.
	ErrPermanent = errors.New("permanent job failure")
)

// Permanent marks err so drivers dead-letter the job instead of retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return errors.Mark(err, ErrPermanent)
}

func IsPermanent(err error) bool {
	return errors.Is(err, ErrPermanent)
}

// HandlerFunc runs one job attempt against its raw JSON payload.
type HandlerFunc func(ctx context.Context, payload []byte) error

// Registry maps job kinds to the handlers every driver executes.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]HandlerFunc
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]HandlerFunc)}
}

func (r *Registry) Register(kind string, handler HandlerFunc) {
	kind = strings.TrimSpace(kind)
	if kind == "" || handler == nil {
		panic("jobqueue: kind and handler are required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[kind]; exists {
		panic("jobqueue: duplicate handler for kind " + kind)
	}
	r.handlers[kind] = handler
}

// Handle registers a typed handler. Payloads that do not decode into T fail
// permanently.
func Handle[T any](r *Registry, kind string, fn func(ctx context.Context, payload T) error) {
	r.Register(kind, func(ctx context.Context, raw []byte) error {
		var payload T
		if len(raw) > 0 {
			if err := sonic.Unmarshal(raw, &payload); err != nil {
				return Permanent(errors.Wrapf(err, "decode %s payload", kind))
			}
		}
		return fn(ctx, payload)
	})
}

func (r *Registry) Has(kind string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.handlers[kind]
	return ok
}

func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.handlers))
	for kind := range r.handlers {
		out = append(out, kind)
	}
	sort.Strings(out)
	return out
}

// Dispatch runs the handler registered for kind.
func (r *Registry) Dispatch(ctx context.Context, kind string, payload []byte) error {
	r.mu.RLock()
	handler, ok := r.handlers[kind]
	r.mu.RUnlock()
	if !ok {
		return Permanent(errors.Wrapf(ErrUnknownKind, "kind=%s", kind))
	}
	return handler(ctx, payload)
}

func encodePayload(payload any) ([]byte, error) {
	if payload == nil {
		return []byte("{}"), nil
	}
	if raw, ok := payload.([]byte); ok {
		return raw, nil
	}
	body, err := sonic.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, "marshal job payload")
	}
	return body, nil
}
