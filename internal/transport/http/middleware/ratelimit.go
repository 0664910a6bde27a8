package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"zenora/internal/transport/http/api"
)

// RateLimiter is a fixed-window per-IP limiter. Counters reset each minute;
// stale entries are swept opportunistically on access.
type RateLimiter struct {
	perMinute int

	mu      sync.Mutex
	windows map[string]*window
}

type window struct {
	start time.Time
	count int
}

func NewRateLimiter(perMinute int) *RateLimiter {
	return &RateLimiter{perMinute: perMinute, windows: map[string]*window{}}
}

func (l *RateLimiter) allow(ip string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.windows) > 10000 {
		for key, win := range l.windows {
			if now.Sub(win.start) > time.Minute {
				delete(l.windows, key)
			}
		}
	}

	win, ok := l.windows[ip]
	if !ok || now.Sub(win.start) > time.Minute {
		l.windows[ip] = &window{start: now, count: 1}
		return true
	}
	win.count++
	return win.count <= l.perMinute
}

func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if l.perMinute <= 0 {
			next.ServeHTTP(w, r)
			return
		}
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}
		if !l.allow(ip, time.Now()) {
			api.Fail(w, r, http.StatusTooManyRequests, "rate_limited", "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}
