// Package ratelimit provides client-side request throttling for the CIRIS
// API. The limiter is adaptive: it backs off hard when the server answers
// 429 and creeps back up after a long run of successes, and it re-syncs its
// budget from the server's X-RateLimit-* response headers.
package ratelimit

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultInitialRate is the conservative starting rate in requests per
	// minute.
	DefaultInitialRate = 30

	// DefaultMaxRate caps adaptive growth, in requests per minute.
	DefaultMaxRate = 120

	minRate = 10

	// increaseThreshold is the consecutive-success count required before the
	// rate is raised.
	increaseThreshold = 100

	decreaseFactor = 0.5
	increaseFactor = 1.1
)

// Adaptive is a token-bucket limiter whose sustained rate moves with
// observed server behavior. Safe for concurrent use.
type Adaptive struct {
	mu        sync.Mutex
	limiter   *rate.Limiter
	rpm       float64
	maxRPM    float64
	successes int
	last429   time.Time
	logger    *slog.Logger
}

// NewAdaptive creates a limiter starting at initialRPM requests per minute,
// never exceeding maxRPM. Zero values select the defaults.
func NewAdaptive(initialRPM, maxRPM int, logger *slog.Logger) *Adaptive {
	if initialRPM <= 0 {
		initialRPM = DefaultInitialRate
	}
	if maxRPM <= 0 {
		maxRPM = DefaultMaxRate
	}
	if logger == nil {
		logger = slog.Default()
	}
	rpm := float64(initialRPM)
	return &Adaptive{
		limiter: rate.NewLimiter(perMinute(rpm), initialRPM),
		rpm:     rpm,
		maxRPM:  float64(maxRPM),
		logger:  logger,
	}
}

func perMinute(rpm float64) rate.Limit {
	return rate.Limit(rpm / 60.0)
}

// Wait blocks until a request slot is available or the context is done.
func (a *Adaptive) Wait(ctx context.Context) error {
	a.mu.Lock()
	l := a.limiter
	a.mu.Unlock()
	return l.Wait(ctx)
}

// Rate returns the current sustained rate in requests per minute.
func (a *Adaptive) Rate() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.rpm
}

// RecordSuccess notes a successful request. After a long run of successes
// the rate is raised cautiously toward the maximum.
func (a *Adaptive) RecordSuccess() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.successes++
	if a.successes < increaseThreshold {
		return
	}
	a.successes = 0
	old := a.rpm
	a.setRate(min(a.maxRPM, a.rpm*increaseFactor))
	if a.rpm > old {
		a.logger.Info("rate limit raised", "from_rpm", old, "to_rpm", a.rpm)
	}
}

// Record429 notes a Too Many Requests response and halves the rate, bounded
// below by a floor so the client never stalls entirely.
func (a *Adaptive) Record429() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.successes = 0
	a.last429 = time.Now()
	old := a.rpm
	a.setRate(max(minRate, a.rpm*decreaseFactor))
	a.logger.Warn("rate limit lowered after 429", "from_rpm", old, "to_rpm", a.rpm)
}

// Last429 returns when the server last answered 429, or the zero time.
func (a *Adaptive) Last429() time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.last429
}

// UpdateFromHeaders re-syncs the sustained rate with the server's advertised
// limit. Headers used: X-RateLimit-Limit, X-RateLimit-Remaining and
// X-RateLimit-Window (window length in seconds). Missing or malformed
// headers are ignored.
func (a *Adaptive) UpdateFromHeaders(h http.Header) {
	limit, err := strconv.Atoi(h.Get("X-RateLimit-Limit"))
	if err != nil || limit <= 0 {
		return
	}
	remaining, err := strconv.Atoi(h.Get("X-RateLimit-Remaining"))
	if err != nil {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if window, err := strconv.Atoi(h.Get("X-RateLimit-Window")); err == nil && window > 0 {
		serverRPM := float64(limit) / (float64(window) / 60.0)
		if diff := serverRPM - a.rpm; diff > 1 || diff < -1 {
			a.logger.Info("rate limit synced from server", "from_rpm", a.rpm, "to_rpm", serverRPM)
			a.setRate(serverRPM)
		}
	}

	if remaining < limit/5 {
		a.logger.Warn("approaching server rate limit", "remaining", remaining, "limit", limit)
	}
}

// setRate installs a new sustained rate. Callers hold a.mu.
func (a *Adaptive) setRate(rpm float64) {
	a.rpm = rpm
	a.limiter.SetLimit(perMinute(rpm))
	burst := int(rpm)
	if burst < 1 {
		burst = 1
	}
	a.limiter.SetBurst(burst)
}
