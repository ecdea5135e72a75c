package httpmiddleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimitConfig configures the sliding window rate limiter.
type RateLimitConfig struct {
	Max    int
	Window time.Duration
	// KeyFunc identifies the client. Defaults to the client IP.
	KeyFunc func(*http.Request) string
}

// slot counts requests of one client in the current and previous fixed
// windows. The sliding count weights the previous window by its overlap.
type slot struct {
	start time.Time
	curr  float64
	prev  float64
}

func (s *slot) advance(now time.Time, window time.Duration) {
	switch elapsed := now.Sub(s.start); {
	case elapsed >= 2*window:
		s.prev, s.curr = 0, 0
		s.start = now.Truncate(window)
	case elapsed >= window:
		s.prev, s.curr = s.curr, 0
		s.start = s.start.Add(window)
	}
}

func (s *slot) count(now time.Time, window time.Duration) float64 {
	overlap := 1 - float64(now.Sub(s.start))/float64(window)
	return s.prev*max(overlap, 0) + s.curr
}

type limiter struct {
	max    int
	window time.Duration
	key    func(*http.Request) string
	now    func() time.Time

	mu    sync.Mutex
	slots map[string]*slot
}

func newLimiter(cfg RateLimitConfig) *limiter {
	l := &limiter{
		max:    cfg.Max,
		window: cfg.Window,
		key:    cfg.KeyFunc,
		now:    time.Now,
		slots:  make(map[string]*slot),
	}
	if l.key == nil {
		l.key = clientIP
	}
	return l
}

// take records a request for key if the limit allows it.
func (l *limiter) take(key string) (remaining int, reset time.Time, ok bool) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	s, found := l.slots[key]
	if !found {
		s = &slot{start: now.Truncate(l.window)}
		l.slots[key] = s
	}
	s.advance(now, l.window)
	reset = s.start.Add(l.window)

	n := s.count(now, l.window)
	if n >= float64(l.max) {
		return 0, reset, false
	}
	s.curr++
	return max(l.max-int(n)-1, 0), reset, true
}

// evict drops clients idle for two windows.
func (l *limiter) evict() {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()
	for key, s := range l.slots {
		if now.Sub(s.start) >= 2*l.window {
			delete(l.slots, key)
		}
	}
}

func (l *limiter) evictLoop(ctx context.Context) {
	t := time.NewTicker(2 * l.window)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			l.evict()
		}
	}
}

func (l *limiter) middleware(next http.Handler) http.Handler {
	limit := strconv.Itoa(l.max)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		remaining, reset, ok := l.take(l.key(r))

		h := w.Header()
		h.Set("X-RateLimit-Limit", limit)
		h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		h.Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))
		if !ok {
			wait := max(reset.Sub(l.now()), 0)
			h.Set("Retry-After", strconv.Itoa(int((wait+time.Second-1)/time.Second)))
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RateLimit limits each client to cfg.Max requests per sliding cfg.Window
// and answers 429 with an {"error"} body beyond that. Client state is never
// evicted; long-running servers use RateLimitWithCleanup.
func RateLimit(cfg RateLimitConfig) Middleware {
	return newLimiter(cfg).middleware
}

// RateLimitWithCleanup is RateLimit with idle clients evicted until ctx is
// done.
func RateLimitWithCleanup(ctx context.Context, cfg RateLimitConfig) Middleware {
	l := newLimiter(cfg)
	go l.evictLoop(ctx)
	return l.middleware
}

// clientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then the
// connection address.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
