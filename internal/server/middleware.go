package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/gyuwonk/chehum/internal/model"
)

// ErrorBody is the JSON error envelope. Code is machine-readable so the
// client can tell apart, say, an expired token from a used one.
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// JSONResponse writes a JSON response
func JSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

// ErrorResponse writes a JSON error response
func ErrorResponse(w http.ResponseWriter, statusCode int, code, message string) {
	JSONResponse(w, statusCode, ErrorBody{
		Error:   code,
		Message: message,
	})
}

// ParseJSONBody parses the request body into the given struct
func ParseJSONBody(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// WithLogging wraps a handler with request logging
func WithLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		next.ServeHTTP(w, r)

		slog.Info("request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"remote", r.RemoteAddr,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

type principalKeyType struct{}

var principalKey = principalKeyType{}

// WithPrincipal extracts the authenticated principal from the request
// headers. Authentication itself happens upstream; the engine trusts
// the identifier it is handed.
func WithPrincipal(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-User-Id")
		role := model.Role(r.Header.Get("X-User-Role"))
		if id == "" || role == "" {
			ErrorResponse(w, http.StatusUnauthorized, "unauthenticated", "X-User-Id and X-User-Role headers are required")
			return
		}

		ctx := context.WithValue(r.Context(), principalKey, model.Principal{ID: id, Role: role})
		next(w, r.WithContext(ctx))
	}
}

// GetPrincipal returns the principal attached by WithPrincipal.
func GetPrincipal(r *http.Request) model.Principal {
	p, _ := r.Context().Value(principalKey).(model.Principal)
	return p
}

// RateLimiter keeps a token bucket per principal for write endpoints.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// NewRateLimiter creates a rate limiter allowing limit requests per
// second with the given burst per principal.
func NewRateLimiter(limit int, burst int) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Limit(limit),
		burst:    burst,
	}
}

// Allow reports whether the principal may proceed.
func (l *RateLimiter) Allow(key string) bool {
	l.mu.Lock()
	limiter, ok := l.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.limiters[key] = limiter
	}
	l.mu.Unlock()

	return limiter.Allow()
}

// Wrap guards a handler with the rate limiter.
func (l *RateLimiter) Wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !l.Allow(GetPrincipal(r).ID) {
			ErrorResponse(w, http.StatusTooManyRequests, "rate_limited", "too many requests")
			return
		}
		next(w, r)
	}
}
