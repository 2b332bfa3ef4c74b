// Package middleware holds HTTP middleware that is not tied to identity:
// request logging and rate limiting. The identity pipeline lives in the
// auth package.
package middleware

import (
	"log/slog"
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/zackriver/carvalue/internal/metrics"
)

// Logger logs one line per request and feeds the request counters. It
// wraps the response writer to capture the status code after the handler
// ran.
func Logger(logger *slog.Logger, recorder metrics.Recorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			duration := time.Since(start)
			recorder.RecordHTTPRequest(ww.Status(), duration)

			logger.Info("request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Duration("duration", duration),
				slog.String("requestID", chimiddleware.GetReqID(r.Context())),
			)
		})
	}
}
