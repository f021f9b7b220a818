package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"

	"github.com/healthbridge/healthbridge/internal/api/models"
)

// RateLimitConfig is a fixed request budget per window.
type RateLimitConfig struct {
	RequestLimit int
	WindowLength time.Duration
}

var (
	// ReadRateLimit applies to snapshot reads.
	ReadRateLimit = RateLimitConfig{RequestLimit: 120, WindowLength: time.Minute}

	// ControlRateLimit applies to calls that reach the platform adapter:
	// permission requests, writes, observation and workout lifecycle.
	ControlRateLimit = RateLimitConfig{RequestLimit: 30, WindowLength: time.Minute}
)

// RateLimitByIP limits by client IP. chi's RealIP should run first.
func RateLimitByIP(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return limit(cfg, httprate.KeyByRealIP)
}

// RateLimitBySubject limits by token subject, falling back to client IP on
// unauthenticated requests.
func RateLimitBySubject(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return limit(cfg, keyBySubjectOrIP)
}

func limit(cfg RateLimitConfig, key httprate.KeyFunc) func(http.Handler) http.Handler {
	retryAfter := strconv.Itoa(int(cfg.WindowLength.Seconds()))
	return httprate.Limit(
		cfg.RequestLimit,
		cfg.WindowLength,
		httprate.WithKeyFuncs(key),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", retryAfter)
			writeProblem(w, r, models.NewTooManyRequests(GetRequestID(r.Context()), "rate limit exceeded, retry later"))
		}),
	)
}

func keyBySubjectOrIP(r *http.Request) (string, error) {
	if sub := GetSubject(r.Context()); sub != "" {
		return "sub:" + sub, nil
	}
	return httprate.KeyByRealIP(r)
}
