package observability

import (
	"context"
	"strings"

	"github.com/uptrace/uptrace-go/uptrace"

	"github.com/riskibarqy/homerun-cage/internal/config"
	"github.com/riskibarqy/homerun-cage/internal/platform/logging"
)

// startTracing installs the global OpenTelemetry providers exported to
// Uptrace. A missing DSN leaves the noop providers in place.
func startTracing(cfg config.Config, logger *logging.Logger) (func(context.Context) error, error) {
	dsn := strings.TrimSpace(cfg.UptraceDSN)
	if !cfg.UptraceEnabled || dsn == "" {
		logger.Debug("tracing off", "enabled", cfg.UptraceEnabled, "has_dsn", dsn != "")
		return nil, nil
	}

	uptrace.ConfigureOpentelemetry(
		uptrace.WithDSN(dsn),
		uptrace.WithServiceName(cfg.ServiceName),
		uptrace.WithServiceVersion(cfg.ServiceVersion),
		uptrace.WithDeploymentEnvironment(cfg.AppEnv),
		uptrace.WithLoggingEnabled(cfg.UptraceLogsEnabled),
	)
	logger.Info("tracing on",
		"service", cfg.ServiceName,
		"version", cfg.ServiceVersion,
		"env", cfg.AppEnv,
	)
	return uptrace.Shutdown, nil
}
