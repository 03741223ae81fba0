package logger

import (
	"net/http"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/screwyprof/brawlstats/pkg/httpkit"
)

// responseWriter wraps http.ResponseWriter to capture status code and response size
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	bytesOut   int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	size, err := rw.ResponseWriter.Write(b)
	rw.bytesOut += size
	return size, err
}

// FieldsFunc contributes request-scoped fields to the access log line
type FieldsFunc func(r *http.Request) []zap.Field

// NewMiddleware creates HTTP request logging middleware
func NewMiddleware(log *zap.Logger, extra ...FieldsFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// error tracking may be missing when httpkit.HandlerFunc wasn't used
			r = r.WithContext(httpkit.WithErrorTracking(r.Context()))

			// ContentLength is -1 when unknown
			bytesIn := max(0, int(r.ContentLength))

			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(rw, r)

			level := zapcore.InfoLevel
			if rw.statusCode >= http.StatusInternalServerError {
				level = zapcore.ErrorLevel
			}

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("uri", r.RequestURI),
				zap.Int("status", rw.statusCode),
				zap.Duration("duration", time.Since(start)),
				zap.Int("bytes_in", bytesIn),
				zap.Int("bytes_out", rw.bytesOut),
			}
			for _, fn := range extra {
				fields = append(fields, fn(r)...)
			}
			if err := httpkit.Error(r.Context()); err != nil {
				fields = append(fields, zap.String("error", errorMessage(err)))
			}

			if ce := log.Check(level, "HTTP"); ce != nil {
				ce.Write(fields...)
			}
		})
	}
}

// errorMessage prefers the detailed cause of HTTP-aware errors
func errorMessage(err error) string {
	if httpErr, ok := err.(httpkit.HTTPError); ok && httpErr.Cause() != nil {
		return httpErr.Cause().Error()
	}
	return err.Error()
}
