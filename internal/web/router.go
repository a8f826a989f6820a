// Package web serves the browser chat surface.
package web

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"ragchat/internal/logger"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// loggingMiddleware logs request details and latency.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"elapsed", time.Since(start).Round(time.Millisecond))
	})
}

// NewRouter creates and configures the HTTP router.
func NewRouter(handler *Handler) *mux.Router {
	r := mux.NewRouter()

	r.Use(loggingMiddleware)

	r.HandleFunc("/", handler.HandleIndex).Methods(http.MethodGet, http.MethodPost)
	r.HandleFunc("/clear", handler.HandleClear).Methods(http.MethodGet)
	r.HandleFunc("/healthz", handler.HandleHealth).Methods(http.MethodGet)

	return r
}
