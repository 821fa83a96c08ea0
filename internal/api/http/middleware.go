package http

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"beachrental-backend/internal/config"
	"beachrental-backend/internal/logger"
	"beachrental-backend/internal/security"
)

// AuthMiddleware authenticates requests to routes that are not public. On
// public routes a valid token is still resolved so handlers can see the caller.
func AuthMiddleware(tm security.TokenManager) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			level := config.GetSecurityLevel(routeKey(r))
			token := security.BearerToken(r.Header.Get("Authorization"))

			if token == "" {
				if level == config.SecurityPublic {
					next.ServeHTTP(w, r)
					return
				}
				writeUnauthenticated(w, "authorization token is not provided")
				return
			}

			actor, err := security.Authenticate(tm, token)
			if err != nil {
				if level == config.SecurityPublic {
					next.ServeHTTP(w, r)
					return
				}
				writeUnauthenticated(w, "invalid token: "+err.Error())
				return
			}

			next.ServeHTTP(w, r.WithContext(security.WithActor(r.Context(), actor)))
		})
	}
}

// routeKey is the "METHOD /path-template" the security table is keyed on.
func routeKey(r *http.Request) string {
	route := mux.CurrentRoute(r)
	if route == nil {
		return r.Method + " " + r.URL.Path
	}
	tmpl, err := route.GetPathTemplate()
	if err != nil {
		return r.Method + " " + r.URL.Path
	}
	return r.Method + " " + tmpl
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// LoggingMiddleware logs each request with its status and duration.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds())
	})
}
