package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// RequestRecorder observes served requests.
type RequestRecorder interface {
	ObserveRequest(method, path string, status int, d time.Duration)
}

// Metrics records request counts and latency by route pattern.
type Metrics struct {
	recorder RequestRecorder
}

// NewMetrics creates a new Metrics middleware.
func NewMetrics(recorder RequestRecorder) *Metrics {
	return &Metrics{recorder: recorder}
}

// Handle labels each request with its chi route pattern so path parameters
// do not explode label cardinality.
func (m *Metrics) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		pattern := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				pattern = p
			}
		}

		m.recorder.ObserveRequest(r.Method, pattern, status, time.Since(start))
	})
}
