// internal/middleware/logging.go
package middleware

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// RequestLogger attaches a request-scoped logger (with request_id) to the
// context and logs one line per completed request. It must run after
// RequestID.
func RequestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			l := logger.With().Str("request_id", GetRequestID(r.Context())).Logger()
			r = r.WithContext(l.WithContext(r.Context()))

			sr := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(sr, r)

			ev := l.Info()
			if sr.status >= http.StatusInternalServerError {
				ev = l.Error()
			}
			ev.Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", sr.status).
				Dur("latency", time.Since(start)).
				Msg("request")
		})
	}
}
