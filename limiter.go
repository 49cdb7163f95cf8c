package featuredfix

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// LoginLimiter rate-limits login attempts per IP address with a token
// bucket: max attempts at once, refilled evenly over window.
type LoginLimiter struct {
	mu       sync.Mutex
	limiters map[string]*ipLimiter
	every    rate.Limit
	burst    int
	idle     time.Duration
}

type ipLimiter struct {
	lim  *rate.Limiter
	seen time.Time
}

// NewLoginLimiter creates a LoginLimiter that allows max attempts per window.
func NewLoginLimiter(max int, window time.Duration) *LoginLimiter {
	if max < 1 {
		max = 1
	}
	return &LoginLimiter{
		limiters: make(map[string]*ipLimiter),
		every:    rate.Every(window / time.Duration(max)),
		burst:    max,
		idle:     window,
	}
}

// Allow reports whether ip may attempt a login now and consumes one attempt.
func (l *LoginLimiter) Allow(ip string) bool {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.sweep(now)
	e, ok := l.limiters[ip]
	if !ok {
		e = &ipLimiter{lim: rate.NewLimiter(l.every, l.burst)}
		l.limiters[ip] = e
	}
	e.seen = now
	return e.lim.AllowN(now, 1)
}

// sweep drops limiters that have been idle long enough to be full again.
func (l *LoginLimiter) sweep(now time.Time) {
	for ip, e := range l.limiters {
		if now.Sub(e.seen) > l.idle {
			delete(l.limiters, ip)
		}
	}
}
