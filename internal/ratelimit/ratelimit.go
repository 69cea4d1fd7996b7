// Package ratelimit guards the upload endpoint with a token-bucket
// limiter, grounded on the teacher's golang.org/x/time/rate usage in its
// EODHD client (rate.NewLimiter(rate.Limit(rps), burst)), adapted here
// from a blocking client-side Wait to a non-blocking server-side Allow.
package ratelimit

import (
	"net/http"

	"golang.org/x/time/rate"
)

// Limiter wraps a token-bucket limiter for HTTP middleware use.
type Limiter struct {
	limiter *rate.Limiter
}

// New returns a Limiter admitting requestsPerSecond tokens/sec with the
// given burst capacity.
func New(requestsPerSecond float64, burst int) *Limiter {
	return &Limiter{limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst)}
}

// Middleware rejects requests with 429 once the bucket is exhausted,
// otherwise passes through to next.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.limiter.Allow() {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"detail":"rate limit exceeded"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}
