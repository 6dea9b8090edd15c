package resilience

import (
	"sync"
	"time"

	"github.com/cockroachdb/errors"
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

type CircuitState string

const (
	CircuitStateClosed   CircuitState = "closed"
	CircuitStateOpen     CircuitState = "open"
	CircuitStateHalfOpen CircuitState = "half_open"
)

// CircuitBreaker guards an outbound dependency such as the SMS gateway, the
// souvenir renderer or QStash.
type CircuitBreaker struct {
	name string
	cfg  CircuitBreakerConfig
	now  func() time.Time

	mu        sync.Mutex
	state     CircuitState
	failures  int
	openedAt  time.Time
	probes    int
	successes int
}

func NewCircuitBreaker(name string, cfg CircuitBreakerConfig) *CircuitBreaker {
	return &CircuitBreaker{
		name:  name,
		cfg:   cfg.withDefaults(),
		now:   time.Now,
		state: CircuitStateClosed,
	}
}

func (b *CircuitBreaker) Name() string { return b.name }

// Execute runs fn when the breaker admits the call and records its outcome.
// Errors for which countAsFailure returns false count as a success. A nil
// countAsFailure treats every error as a failure.
func (b *CircuitBreaker) Execute(fn func() error, countAsFailure func(error) bool) error {
	if !b.cfg.Enabled {
		return fn()
	}
	if err := b.admit(); err != nil {
		return errors.Wrapf(err, "%s", b.name)
	}

	err := fn()
	b.record(err == nil || (countAsFailure != nil && !countAsFailure(err)))
	return err
}

// State reports the current state, treating an expired open window as
// half-open.
func (b *CircuitBreaker) State() CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == CircuitStateOpen && b.openWindowElapsed() {
		return CircuitStateHalfOpen
	}
	return b.state
}

func (b *CircuitBreaker) admit() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == CircuitStateOpen {
		if !b.openWindowElapsed() {
			return ErrCircuitOpen
		}
		b.moveTo(CircuitStateHalfOpen)
	}
	if b.state == CircuitStateHalfOpen {
		if b.probes >= b.cfg.HalfOpenMaxReq {
			return ErrCircuitOpen
		}
		b.probes++
	}
	return nil
}

func (b *CircuitBreaker) record(ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case CircuitStateClosed:
		if ok {
			b.failures = 0
			return
		}
		b.failures++
		if b.failures >= b.cfg.FailureThreshold {
			b.moveTo(CircuitStateOpen)
		}
	case CircuitStateHalfOpen:
		if b.probes > 0 {
			b.probes--
		}
		if !ok {
			b.moveTo(CircuitStateOpen)
			return
		}
		b.successes++
		if b.successes >= b.cfg.HalfOpenMaxReq && b.probes == 0 {
			b.moveTo(CircuitStateClosed)
		}
	case CircuitStateOpen:
		if !ok {
			b.openedAt = b.now()
		}
	}
}

func (b *CircuitBreaker) openWindowElapsed() bool {
	return b.now().Sub(b.openedAt) >= b.cfg.OpenTimeout
}

// moveTo resets the per-state counters. Callers hold mu.
func (b *CircuitBreaker) moveTo(state CircuitState) {
	b.state = state
	b.probes = 0
	b.successes = 0
	switch state {
	case CircuitStateOpen:
		b.openedAt = b.now()
	case CircuitStateClosed:
		b.failures = 0
		b.openedAt = time.Time{}
	}
}
