// Package api exposes the evaluation pipeline over HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/didip/tollbooth/v7"
	"github.com/didip/tollbooth/v7/limiter"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter wires the chi router with CORS, request logging, and a per-IP
// request throttle in front of the handlers.
func NewRouter(h *Handlers, requestsPerSecond float64) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	if requestsPerSecond > 0 {
		lmt := tollbooth.NewLimiter(requestsPerSecond, &limiter.ExpirableOptions{
			DefaultExpirationTTL: time.Hour,
		})
		lmt.SetIPLookups([]string{"X-Real-IP", "X-Forwarded-For", "RemoteAddr"})
		r.Use(throttle(lmt))
	}

	r.Get("/health", h.Health)
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/evaluate", h.Evaluate)
		r.Post("/product", h.GetProduct)
		r.Post("/alternatives", h.GetAlternatives)
	})

	return r
}

func throttle(lmt *limiter.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if httpErr := tollbooth.LimitByRequest(lmt, w, r); httpErr != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(httpErr.StatusCode)
				w.Write([]byte(`{"error":"rate limit exceeded"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
