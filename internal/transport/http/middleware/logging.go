package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"zenora/internal/platform/metrics"
	"zenora/internal/platform/requestctx"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Logging emits one structured line per request and feeds the metrics
// collector when one is configured.
func Logging(collector *metrics.Collector) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			slog.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"durationMs", time.Since(start).Milliseconds(),
				"requestId", requestctx.GetRequestID(r.Context()),
			)
			if collector != nil {
				collector.Observe(r.Method+" "+r.URL.Path, rec.status)
			}
		})
	}
}
