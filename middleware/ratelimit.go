package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig bounds how often one key may hit a handler.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
	Burst    int
}

// DefaultRefreshLimit allows a client 30 refreshes a minute.
func DefaultRefreshLimit() RateLimitConfig {
	return RateLimitConfig{Requests: 30, Window: time.Minute, Burst: 10}
}

// KeyFunc groups requests for rate limiting. An empty key is not limited.
type KeyFunc func(*http.Request) string

// RemoteIP keys by the connection's remote address. Forwarding headers are
// ignored; put a trusted proxy's own middleware in front if needed.
func RemoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

const limiterIdleSweep = 5 * time.Minute

type keyedLimiter struct {
	limit rate.Limit
	burst int

	mu        sync.Mutex
	limiters  map[string]*rate.Limiter
	lastSweep time.Time
}

func (k *keyedLimiter) get(key string, now time.Time) *rate.Limiter {
	k.mu.Lock()
	defer k.mu.Unlock()

	if now.Sub(k.lastSweep) >= limiterIdleSweep {
		k.lastSweep = now
		for key, l := range k.limiters {
			// a full bucket has been idle long enough to forget
			if l.TokensAt(now) >= float64(k.burst) {
				delete(k.limiters, key)
			}
		}
	}

	l, ok := k.limiters[key]
	if !ok {
		l = rate.NewLimiter(k.limit, k.burst)
		k.limiters[key] = l
	}
	return l
}

// RateLimit rejects requests beyond cfg per key with 429 and a Retry-After
// header. A nil key func keys by [RemoteIP].
func RateLimit(cfg RateLimitConfig, key KeyFunc, logger *slog.Logger) func(http.Handler) http.Handler {
	if key == nil {
		key = RemoteIP
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}

	limit := rate.Inf
	if cfg.Requests > 0 && cfg.Window > 0 {
		limit = rate.Limit(float64(cfg.Requests) / cfg.Window.Seconds())
	}

	kl := &keyedLimiter{
		limit:     limit,
		burst:     cfg.Burst,
		limiters:  make(map[string]*rate.Limiter),
		lastSweep: time.Now(),
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			k := key(r)
			if k == "" {
				next.ServeHTTP(w, r)
				return
			}

			now := time.Now()
			l := kl.get(k, now)
			if l.AllowN(now, 1) {
				next.ServeHTTP(w, r)
				return
			}

			res := l.ReserveN(now, 1)
			delay := res.DelayFrom(now)
			res.CancelAt(now)

			retryAfter := max(int(delay.Round(time.Second).Seconds()), 1)
			logger.Warn("goToken: rate limit exceeded",
				slog.String("path", r.URL.Path),
				slog.Int("retry_after", retryAfter),
			)
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		})
	}
}
