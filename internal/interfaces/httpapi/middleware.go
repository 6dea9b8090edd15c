package httpapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/riskibarqy/homerun-cage/internal/platform/logging"
	"github.com/riskibarqy/homerun-cage/internal/usecase"
)

func RequireInternalJobToken(token string, next http.Handler) http.Handler {
	expectedToken := strings.TrimSpace(token)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if expectedToken == "" {
			writeError(ctx, w, fmt.Errorf("%w: internal job token is not configured", usecase.ErrDependencyUnavailable))
			return
		}

		providedToken := strings.TrimSpace(r.Header.Get("X-Internal-Job-Token"))
		if providedToken == "" || providedToken != expectedToken {
			writeError(ctx, w, fmt.Errorf("%w: invalid internal job token", usecase.ErrUnauthorized))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// statusRecorder remembers the status code written by the wrapped handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func RequestLogging(logger *logging.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		started := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		if !shouldTraceRequest(r.URL.Path) {
			return
		}
		logger.InfoContext(ctx, "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"client_ip", resolveClientIP(r),
			"duration_ms", time.Since(started).Milliseconds(),
		)
	})
}

func RequestTracing(next http.Handler) http.Handler {
	return otelhttp.NewHandler(next, "homerun-cage-http",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
		otelhttp.WithFilter(func(r *http.Request) bool {
			return shouldTraceRequest(r.URL.Path)
		}),
	)
}

func shouldTraceRequest(path string) bool {
	normalized := strings.ToLower(strings.TrimSpace(path))
	switch normalized {
	case "/healthz", "/health", "/livez", "/readyz", "/metrics":
		return false
	default:
		return true
	}
}

func CORS(allowedOrigins []string, next http.Handler) http.Handler {
	origins := make([]string, 0, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		if candidate := strings.TrimSpace(origin); candidate != "" {
			origins = append(origins, candidate)
		}
	}

	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders: []string{"Authorization", "Content-Type", "Accept"},
		MaxAge:         600,
	}).Handler(next)
}
