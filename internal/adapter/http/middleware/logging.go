package middleware

import (
	"net/http"
	"time"

	"github.com/bnema/reencoder/internal/infrastructure/logger"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.bytes += int64(n)
	return n, err
}

// Flush keeps server-sent events working through the recorder.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// LogRequests writes one line per request. Server errors go to the warn log,
// everything else to debug so worker polling stays quiet.
func LogRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}

		next.ServeHTTP(rec, r)

		status := rec.status
		if status == 0 {
			status = http.StatusOK
		}
		l := logger.Debug
		if status >= http.StatusInternalServerError {
			l = logger.Warn
		}
		l.Printf("%s %s -> %d (%d bytes, %s) from %s",
			r.Method, logger.SanitizeForLog(r.URL.Path), status, rec.bytes,
			time.Since(start).Round(time.Millisecond), logger.SanitizeForLog(r.RemoteAddr))
	})
}
