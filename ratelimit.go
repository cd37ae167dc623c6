package goshawk

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig configures the RateLimit middleware.
type RateLimitConfig struct {
	Rate            float64                        // requests per second
	Burst           int                            // max burst
	KeyFunc         func(req *Request) string      // default: remote IP
	OnLimit         func(req *Request) *Response   // default: 429 response
	CleanupInterval time.Duration                  // how often to prune idle limiters (default: 1m)
	MaxIdle         time.Duration                  // remove limiters idle longer than this (default: 5m)
}

// RateLimit returns middleware that applies per-key rate limiting.
// Over-limit requests short-circuit with 429 and a Retry-After header.
func RateLimit(cfg RateLimitConfig) Middleware {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = func(req *Request) string {
			host, _, err := net.SplitHostPort(req.RemoteAddr)
			if err != nil {
				return req.RemoteAddr
			}
			return host
		}
	}
	if cfg.OnLimit == nil {
		cfg.OnLimit = func(_ *Request) *Response {
			return StatusResponse(http.StatusTooManyRequests)
		}
	}

	cleanupInterval := cfg.CleanupInterval
	if cleanupInterval <= 0 {
		cleanupInterval = time.Minute
	}
	maxIdle := cfg.MaxIdle
	if maxIdle <= 0 {
		maxIdle = 5 * time.Minute
	}

	var (
		mu          sync.Mutex
		limiters    = make(map[string]*limiterEntry)
		lastCleanup time.Time
	)

	return func(next Handler) Handler {
		return func(c *Context, req *Request) (*Response, error) {
			key := cfg.KeyFunc(req)

			mu.Lock()
			now := time.Now()

			// Lazy cleanup of expired limiters.
			if now.Sub(lastCleanup) >= cleanupInterval {
				for k, e := range limiters {
					if now.Sub(e.lastSeen) > maxIdle {
						delete(limiters, k)
					}
				}
				lastCleanup = now
			}

			entry, ok := limiters[key]
			if !ok {
				entry = &limiterEntry{
					limiter: rate.NewLimiter(rate.Limit(cfg.Rate), cfg.Burst),
				}
				limiters[key] = entry
			}
			entry.lastSeen = now
			mu.Unlock()

			if !entry.limiter.Allow() {
				retryAfter := "1"
				if cfg.Rate > 0 && cfg.Rate < 1 {
					retryAfter = strconv.Itoa(int(math.Ceil(1 / cfg.Rate)))
				}
				resp := cfg.OnLimit(req)
				if resp.Header.Get("Retry-After") == "" {
					resp.Header.Set("Retry-After", retryAfter)
				}
				return resp, nil
			}

			return next(c, req)
		}
	}
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}
