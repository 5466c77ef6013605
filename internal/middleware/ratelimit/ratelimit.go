// Package ratelimit throttles requests per client address with token
// buckets from golang.org/x/time/rate.
package ratelimit

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// Config holds rate limiter configuration. Zero fields take the values from
// DefaultConfig.
type Config struct {
	// RequestsPerSecond is the sustained rate per client.
	RequestsPerSecond float64
	// Burst is how many requests a client may make at once.
	Burst int
	// CleanupInterval is how often idle clients are swept.
	CleanupInterval time.Duration
	// IdleTTL is how long a client may stay silent before it is forgotten.
	IdleTTL time.Duration
}

func DefaultConfig() Config {
	return Config{
		RequestsPerSecond: 10,
		Burst:             20,
		CleanupInterval:   5 * time.Minute,
		IdleTTL:           10 * time.Minute,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.RequestsPerSecond <= 0 {
		c.RequestsPerSecond = def.RequestsPerSecond
	}
	if c.Burst <= 0 {
		c.Burst = def.Burst
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = def.CleanupInterval
	}
	if c.IdleTTL <= 0 {
		c.IdleTTL = def.IdleTTL
	}
	return c
}

type visitor struct {
	bucket *rate.Limiter
	seen   time.Time
}

// Limiter keeps one token bucket per client and forgets clients that have
// been idle for longer than the configured TTL.
type Limiter struct {
	limit   rate.Limit
	burst   int
	idleTTL time.Duration

	mu       sync.Mutex
	visitors map[string]*visitor

	rejected atomic.Int64
	done     chan struct{}
	stop     sync.Once
}

// Metrics is a snapshot of limiter counters.
type Metrics struct {
	Rejected    int64
	ClientCount int64
}

// NewLimiter creates a limiter and starts its sweeper. Call Stop to release it.
func NewLimiter(config Config) *Limiter {
	config = config.withDefaults()
	rl := &Limiter{
		limit:    rate.Limit(config.RequestsPerSecond),
		burst:    config.Burst,
		idleTTL:  config.IdleTTL,
		visitors: make(map[string]*visitor),
		done:     make(chan struct{}),
	}
	go rl.sweepEvery(config.CleanupInterval)
	return rl
}

// Allow reports whether a request from clientIP may proceed now.
func (rl *Limiter) Allow(clientIP string) bool {
	return rl.bucket(clientIP, time.Now()).Allow()
}

// bucket returns clientIP's token bucket, creating it on first sight, and
// marks the client as seen at now.
func (rl *Limiter) bucket(clientIP string, now time.Time) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v := rl.visitors[clientIP]
	if v == nil {
		v = &visitor{bucket: rate.NewLimiter(rl.limit, rl.burst)}
		rl.visitors[clientIP] = v
	}
	v.seen = now
	return v.bucket
}

func (rl *Limiter) sweepEvery(interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case now := <-t.C:
			rl.sweep(now)
		case <-rl.done:
			return
		}
	}
}

// sweep forgets clients not seen since now minus the idle TTL and returns
// how many were dropped.
func (rl *Limiter) sweep(now time.Time) int {
	cutoff := now.Add(-rl.idleTTL)

	rl.mu.Lock()
	defer rl.mu.Unlock()
	n := len(rl.visitors)
	for ip, v := range rl.visitors {
		if v.seen.Before(cutoff) {
			delete(rl.visitors, ip)
		}
	}
	return n - len(rl.visitors)
}

// ActiveClients returns the number of currently tracked clients
func (rl *Limiter) ActiveClients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.visitors)
}

// Stop ends the sweeper. It is safe to call more than once.
func (rl *Limiter) Stop() {
	rl.stop.Do(func() { close(rl.done) })
}

func (rl *Limiter) GetMetrics() Metrics {
	return Metrics{
		Rejected:    rl.rejected.Load(),
		ClientCount: int64(rl.ActiveClients()),
	}
}

// retryAfter is the whole number of seconds until one token is refilled.
func (rl *Limiter) retryAfter() string {
	secs := math.Ceil(1 / float64(rl.limit))
	return strconv.Itoa(int(math.Max(1, secs)))
}

// Middleware rejects over-limit requests with 429 and a Retry-After header.
// onLimit writes the rejection body; nil means a plain-text one.
func (rl *Limiter) Middleware(extractIP func(*http.Request) string, onLimit func(http.ResponseWriter, *http.Request)) func(http.Handler) http.Handler {
	if onLimit == nil {
		onLimit = func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
		}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if rl.Allow(extractIP(r)) {
				next.ServeHTTP(w, r)
				return
			}
			rl.rejected.Add(1)
			w.Header().Set("Retry-After", rl.retryAfter())
			onLimit(w, r)
		})
	}
}
