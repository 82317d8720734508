package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/getdoa/getdoa/internal/auth"
	"github.com/getdoa/getdoa/internal/cache"
	"github.com/getdoa/getdoa/internal/domain"
	"github.com/getdoa/getdoa/internal/handler"
)

// defaultRateLimitKeys bounds the number of clients tracked at once.
const defaultRateLimitKeys = 10000

// RateLimiter is a fixed-window counter per key. Windows live in a TTL cache
// whose TTL equals the window, so a key's entry expires exactly when its
// window ends and no cleanup goroutine is needed.
type RateLimiter struct {
	maxAttempts int
	window      time.Duration
	now         cache.Clock

	mu      sync.Mutex
	windows *cache.TTL[string, *rateWindow]
}

type rateWindow struct {
	count int
	start time.Time
}

func NewRateLimiter(maxAttempts int, window time.Duration, clock cache.Clock) *RateLimiter {
	if clock == nil {
		clock = time.Now
	}
	return &RateLimiter{
		maxAttempts: maxAttempts,
		window:      window,
		now:         clock,
		windows: cache.New[string, *rateWindow](cache.Config{
			TTL:      window,
			Capacity: defaultRateLimitKeys,
			Clock:    clock,
		}),
	}
}

// Allow counts one attempt for key and reports whether it is within the
// limit.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	w, ok := rl.windows.Get(key)
	if !ok {
		rl.windows.Set(key, &rateWindow{count: 1, start: rl.now()})
		return true
	}
	if w.count < rl.maxAttempts {
		w.count++
		return true
	}
	return false
}

// TimeUntilReset returns how long until key's window ends.
func (rl *RateLimiter) TimeUntilReset(key string) time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	w, ok := rl.windows.Get(key)
	if !ok {
		return 0
	}
	left := rl.window - rl.now().Sub(w.start)
	if left < 0 {
		return 0
	}
	return left
}

// RateLimitMiddleware applies a RateLimiter per signed-in user, or per client
// IP for anonymous requests.
type RateLimitMiddleware struct {
	limiter *RateLimiter
	logger  *slog.Logger
}

func NewRateLimitMiddleware(limiter *RateLimiter, logger *slog.Logger) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		limiter: limiter,
		logger:  logger,
	}
}

func (m *RateLimitMiddleware) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := rateLimitKey(r)

		if !m.limiter.Allow(key) {
			m.logger.Warn("rate limit exceeded",
				"key", key,
				"path", r.URL.Path,
				"method", r.Method,
			)

			retryAfter := int(m.limiter.TimeUntilReset(key).Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			handler.ErrorResponse(w, r, m.logger, domain.RateLimit("ratelimit"))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// rateLimitKey keys signed-in requests by account so rotating IPs does not
// reset a user's budget.
func rateLimitKey(r *http.Request) string {
	if id, ok := auth.UserID(r.Context()); ok {
		return "user:" + id.String()
	}
	return "ip:" + getClientIP(r)
}

// getClientIP prefers proxy headers. The server is expected to sit behind a
// proxy that overwrites them.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
