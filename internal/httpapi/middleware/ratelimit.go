package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// bucket is a per-client token bucket: burst tokens max, refilled at a
// steady per-second rate.
type bucket struct {
	tokens float64
	last   time.Time
}

type limiter struct {
	rate       float64 // tokens per second
	burst      float64
	sweepEvery time.Duration

	mu        sync.Mutex
	m         map[string]*bucket
	lastSweep time.Time
}

func (l *limiter) allow(key string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.sweepEvery > 0 && now.Sub(l.lastSweep) >= l.sweepEvery {
		l.sweepLocked(now.Add(-l.sweepEvery))
		l.lastSweep = now
	}
	b := l.m[key]
	if b == nil {
		b = &bucket{tokens: l.burst, last: now}
		l.m[key] = b
	}
	b.tokens += now.Sub(b.last).Seconds() * l.rate
	if b.tokens > l.burst {
		b.tokens = l.burst
	}
	b.last = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// sweepLocked drops buckets idle since before cutoff, keeping the map
// from growing with one entry per client IP ever seen. It runs lazily
// from allow, so the limiter needs no background goroutine. Caller
// holds l.mu.
func (l *limiter) sweepLocked(cutoff time.Time) {
	for k, b := range l.m {
		if b.last.Before(cutoff) {
			delete(l.m, k)
		}
	}
}

// RateLimit limits requests per client IP. reqPerMin <= 0 disables it.
// Example: RateLimit(120, 60) => 120 req/min with burst 60.
func RateLimit(reqPerMin, burst int) func(http.Handler) http.Handler {
	if reqPerMin <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if burst < 1 {
		burst = 1
	}
	l := &limiter{
		rate:       float64(reqPerMin) / 60.0,
		burst:      float64(burst),
		sweepEvery: 10 * time.Minute,
		m:          make(map[string]*bucket),
		lastSweep:  time.Now(),
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.allow(clientIP(r), time.Now()) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"error":"rate limit exceeded"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	// honor X-Forwarded-For if behind a proxy
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return strings.TrimSpace(strings.Split(xff, ",")[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
