// Package observability starts the process-wide tracing and profiling
// backends and tears them down in reverse order.
package observability

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/riskibarqy/homerun-cage/internal/config"
	"github.com/riskibarqy/homerun-cage/internal/platform/logging"
)

type closer struct {
	name string
	fn   func(context.Context) error
}

// Stack holds whatever backends Start enabled.
type Stack struct {
	logger  *logging.Logger
	closers []closer
}

// Start enables every backend turned on in cfg. On failure the backends
// already running are shut down before the error is returned.
func Start(ctx context.Context, cfg config.Config, logger *logging.Logger) (*Stack, error) {
	if logger == nil {
		logger = logging.Default()
	}
	s := &Stack{logger: logger.Named("observability")}

	steps := []struct {
		name string
		start func(config.Config, *logging.Logger) (func(context.Context) error, error)
	}{
		{name: "uptrace", start: startTracing},
		{name: "pyroscope", start: startProfiling},
		{name: "pprof", start: startDebugServer},
	}
	for _, step := range steps {
		stop, err := step.start(cfg, s.logger)
		if err != nil {
			_ = s.Shutdown(ctx)
			return nil, errors.Wrapf(err, "start %s", step.name)
		}
		if stop != nil {
			s.closers = append(s.closers, closer{name: step.name, fn: stop})
		}
	}
	return s, nil
}

// Enabled lists the running backends in start order.
func (s *Stack) Enabled() []string {
	out := make([]string, 0, len(s.closers))
	for _, c := range s.closers {
		out = append(out, c.name)
	}
	return out
}

// Shutdown stops backends last-started first. It is safe to call twice.
func (s *Stack) Shutdown(ctx context.Context) error {
	if s == nil {
		return nil
	}
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		c := s.closers[i]
		if err := c.fn(ctx); err != nil {
			errs = append(errs, errors.Wrapf(err, "stop %s", c.name))
			continue
		}
		s.logger.Info("backend stopped", "backend", c.name)
	}
	s.closers = nil
	return errors.Join(errs...)
}
