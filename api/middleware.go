package api

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

// statusRecorder captures the response status for request logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// LoggingMiddleware logs each API request with its status and duration.
// Directive drains are polled frequently and are skipped to keep the log
// readable.
func LoggingMiddleware() mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(rec, r)

			route := r.URL.Path
			if current := mux.CurrentRoute(r); current != nil {
				if tmpl, err := current.GetPathTemplate(); err == nil {
					route = tmpl
				}
			}
			if route == "/api/playback/sessions/{id}/directives" && rec.status == http.StatusOK {
				return
			}

			log.Printf("[http] %s %s -> %d (%s)", r.Method, route, rec.status, time.Since(start).Round(time.Millisecond))
		})
	}
}

// ClientIDMiddleware stamps the optional X-Client-ID header into the
// response so multi-device clients can correlate their own requests.
func ClientIDMiddleware() mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if clientID := r.Header.Get("X-Client-ID"); clientID != "" {
				w.Header().Set("X-Client-ID", clientID)
			}
			next.ServeHTTP(w, r)
		})
	}
}
