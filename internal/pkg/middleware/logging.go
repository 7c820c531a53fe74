package middleware

import (
	"net/http"
	"time"

	"gowatch/internal/pkg/logger"
	"gowatch/internal/pkg/metrics"
	"gowatch/internal/pkg/requestid"
)

// statusRecorder envolve o http.ResponseWriter e guarda o status escrito.
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (sr *statusRecorder) WriteHeader(code int) {
	if !sr.written {
		sr.statusCode = code
		sr.written = true
	}
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if !sr.written {
		sr.statusCode = http.StatusOK
		sr.written = true
	}
	return sr.ResponseWriter.Write(b)
}

// Unwrap permite que http.ResponseController alcance o writer original.
func (sr *statusRecorder) Unwrap() http.ResponseWriter {
	return sr.ResponseWriter
}

// NewLoggingMiddleware registra uma linha por requisição e conta os status HTTP.
func NewLoggingMiddleware(log logger.Logger, rec metrics.Recorder) func(http.Handler) http.Handler {
	rec = metrics.OrNop(rec)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sr := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(sr, r)

			rec.RecordHTTPStatus(sr.statusCode)
			fields := map[string]interface{}{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      sr.statusCode,
				"duration_ms": float64(time.Since(start).Microseconds()) / 1000,
				"request_id":  requestid.FromContext(r.Context()),
			}
			switch {
			case sr.statusCode >= 500:
				log.Warn("http_request", fields)
			case sr.statusCode >= 400:
				log.Info("http_request", fields)
			default:
				log.Debug("http_request", fields)
			}
		})
	}
}
