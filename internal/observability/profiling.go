package observability

import (
	"context"

	"github.com/grafana/pyroscope-go"

	"github.com/riskibarqy/homerun-cage/internal/config"
	"github.com/riskibarqy/homerun-cage/internal/platform/logging"
)

var profileTypes = []pyroscope.ProfileType{
	pyroscope.ProfileCPU,
	pyroscope.ProfileAllocSpace,
	pyroscope.ProfileInuseSpace,
	pyroscope.ProfileGoroutines,
	pyroscope.ProfileMutexDuration,
	pyroscope.ProfileBlockDuration,
}

func profileTags(cfg config.Config) map[string]string {
	return map[string]string{
		"env":       cfg.AppEnv,
		"service":   cfg.ServiceName,
		"store":     cfg.StoreDriver,
		"job_queue": cfg.JobQueueDriver,
	}
}

func startProfiling(cfg config.Config, logger *logging.Logger) (func(context.Context) error, error) {
	if !cfg.PyroscopeEnabled {
		logger.Debug("profiling off")
		return nil, nil
	}

	profiler, err := pyroscope.Start(pyroscope.Config{
		ApplicationName:   cfg.PyroscopeAppName,
		ServerAddress:     cfg.PyroscopeServerAddress,
		AuthToken:         cfg.PyroscopeAuthToken,
		BasicAuthUser:     cfg.PyroscopeBasicAuthUser,
		BasicAuthPassword: cfg.PyroscopeBasicAuthPassword,
		UploadRate:        cfg.PyroscopeUploadRate,
		Tags:              profileTags(cfg),
		ProfileTypes:      profileTypes,
	})
	if err != nil {
		return nil, err
	}
	logger.Info("profiling on", "server", cfg.PyroscopeServerAddress, "app", cfg.PyroscopeAppName)

	return func(context.Context) error { return profiler.Stop() }, nil
}
