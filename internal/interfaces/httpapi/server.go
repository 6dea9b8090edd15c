package httpapi

import (
	"net/http"

	"github.com/riskibarqy/homerun-cage/internal/platform/logging"
)

type RouterConfig struct {
	SwaggerEnabled     bool
	CORSAllowedOrigins []string
	InternalJobToken   string
	// MetricsHandler serves GET /metrics when set.
	MetricsHandler http.Handler
}

func NewRouter(handler *Handler, logger *logging.Logger, cfg RouterConfig) http.Handler {
	if logger == nil {
		logger = logging.Default()
	}
	logger = logger.Named("http")

	mux := http.NewServeMux()
	registerSystemRoutes(mux, handler, cfg.SwaggerEnabled, cfg.MetricsHandler)
	registerGameRoutes(mux, handler)
	registerPlayerRoutes(mux, handler)
	registerTeamRoutes(mux, handler)
	registerRecallRoutes(mux, handler)
	registerAdminRoutes(mux, handler)
	registerInternalJobRoutes(mux, handler, cfg.InternalJobToken)

	return RequestTracing(RequestLogging(logger, CORS(cfg.CORSAllowedOrigins, recoverPanic(logger, mux))))
}

func recoverPanic(logger *logging.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		defer func() {
			if rec := recover(); rec != nil {
				logger.ErrorContext(ctx, "panic recovered", "panic", rec, "path", r.URL.Path)
				writeInternalError(ctx, w)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
