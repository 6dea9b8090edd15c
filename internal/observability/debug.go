package observability

import (
	"context"
	"net"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/riskibarqy/homerun-cage/internal/config"
	"github.com/riskibarqy/homerun-cage/internal/platform/logging"
)

func debugMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	return mux
}

// startDebugServer binds PPROF_ADDR up front so a taken port fails startup
// instead of surfacing later in a goroutine.
func startDebugServer(cfg config.Config, logger *logging.Logger) (func(context.Context) error, error) {
	if !cfg.PprofEnabled {
		logger.Debug("pprof off")
		return nil, nil
	}

	ln, err := net.Listen("tcp", cfg.PprofAddr)
	if err != nil {
		return nil, errors.Wrapf(err, "listen %s", cfg.PprofAddr)
	}
	srv := &http.Server{
		Handler:           debugMux(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("pprof server failed", "error", err)
		}
	}()
	logger.Info("pprof on", "addr", ln.Addr().String())

	return srv.Shutdown, nil
}
