package http

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/example/eventboard/internal/i18n"
)

// RateLimiterConfig bounds requests per signed-in user.
type RateLimiterConfig struct {
	Rate            rate.Limit
	Burst           int
	CleanupInterval time.Duration
}

// PerMinute converts a requests-per-minute budget into a RateLimiterConfig.
func PerMinute(requests, burst int) RateLimiterConfig {
	if requests <= 0 {
		requests = 120
	}
	if burst <= 0 {
		burst = requests
	}
	return RateLimiterConfig{
		Rate:            rate.Limit(float64(requests) / 60.0),
		Burst:           burst,
		CleanupInterval: 5 * time.Minute,
	}
}

// RejectionRecorder counts rate limited requests.
type RejectionRecorder interface {
	RecordRateLimited()
}

type userLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// RateLimiter keeps one token bucket per principal.
type RateLimiter struct {
	config   RateLimiterConfig
	recorder RejectionRecorder

	mu       sync.Mutex
	limiters map[string]*userLimiter

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewRateLimiter starts a RateLimiter and its cleanup loop.
func NewRateLimiter(config RateLimiterConfig, recorder RejectionRecorder) *RateLimiter {
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = 5 * time.Minute
	}
	rl := &RateLimiter{
		config:   config,
		recorder: recorder,
		limiters: make(map[string]*userLimiter),
		stopCh:   make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

// Stop ends the cleanup loop.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

// Middleware limits requests by the principal set by RequireSession and must
// run after it.
func (rl *RateLimiter) Middleware() func(http.Handler) http.Handler {
	responder := newResponder(nil)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromContext(r.Context())
			if !ok || principal.UserID == "" {
				responder.writeError(r.Context(), w, http.StatusUnauthorized, "unauthenticated", i18n.MsgUnauthenticated, nil)
				return
			}

			if !rl.allow(principal.UserID, time.Now()) {
				if rl.recorder != nil {
					rl.recorder.RecordRateLimited()
				}
				responder.loggerFor(r.Context()).WarnContext(r.Context(), "rate limit exceeded", "user_id", principal.UserID)
				w.Header().Set("Retry-After", strconv.Itoa(rl.retryAfterSeconds()))
				responder.writeError(r.Context(), w, http.StatusTooManyRequests, "rate_limited", i18n.MsgRateLimited, nil)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Len returns the number of tracked users.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}

func (rl *RateLimiter) allow(userID string, now time.Time) bool {
	rl.mu.Lock()
	ul, ok := rl.limiters[userID]
	if !ok {
		ul = &userLimiter{limiter: rate.NewLimiter(rl.config.Rate, rl.config.Burst)}
		rl.limiters[userID] = ul
	}
	ul.lastAccess = now
	rl.mu.Unlock()

	return ul.limiter.AllowN(now, 1)
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			rl.cleanup(now)
		case <-rl.stopCh:
			return
		}
	}
}

// cleanup drops users idle for more than two cleanup intervals.
func (rl *RateLimiter) cleanup(now time.Time) {
	ttl := rl.config.CleanupInterval * 2

	rl.mu.Lock()
	defer rl.mu.Unlock()
	for userID, ul := range rl.limiters {
		if now.Sub(ul.lastAccess) > ttl {
			delete(rl.limiters, userID)
		}
	}
}

func (rl *RateLimiter) retryAfterSeconds() int {
	if rl.config.Rate <= 0 {
		return 60
	}
	seconds := int(math.Ceil(1.0 / float64(rl.config.Rate)))
	if seconds < 1 {
		seconds = 1
	}
	return seconds
}
