package middleware

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/zatekoja/caretriage/internal/infrastructure/observability"
)

// LoggingMiddleware writes one structured access-log line per request.
// Request bodies are never logged since they carry patient text.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		logger := observability.LoggerFromContext(r.Context())
		event := logger.Info()
		if status >= http.StatusInternalServerError {
			event = logger.Error()
		}
		event.
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("bytes", ww.BytesWritten()).
			Str("request_id", chimw.GetReqID(r.Context())).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}
