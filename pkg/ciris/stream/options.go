package stream

import (
	"log/slog"
	"net/http"
	"time"
)

// Defaults match the reference server behavior.
const (
	DefaultQueueCapacity     = 1000
	DefaultBaseBackoff       = time.Second
	DefaultMaxBackoff        = 60 * time.Second
	DefaultHeartbeatInterval = 30 * time.Second
	DefaultHighWater         = 0.8

	defaultDialTimeout = 10 * time.Second
)

type config struct {
	header      http.Header
	dialer      Dialer
	logger      *slog.Logger
	reconnect   bool
	baseBackoff time.Duration
	maxBackoff  time.Duration
	maxAttempts int
	dialTimeout time.Duration

	queueCapacity int
	dropPolicy    DropPolicy
	highWater     float64

	heartbeatInterval time.Duration
}

func defaultConfig() config {
	return config{
		header:            http.Header{},
		dialer:            &wsDialer{handshakeTimeout: defaultDialTimeout},
		logger:            slog.Default(),
		reconnect:         true,
		baseBackoff:       DefaultBaseBackoff,
		maxBackoff:        DefaultMaxBackoff,
		dialTimeout:       defaultDialTimeout,
		queueCapacity:     DefaultQueueCapacity,
		dropPolicy:        DropOldest,
		highWater:         DefaultHighWater,
		heartbeatInterval: DefaultHeartbeatInterval,
	}
}

// Option configures a Stream.
type Option func(*config)

// WithBearerToken carries the credential in the connection handshake as an
// Authorization header.
func WithBearerToken(token string) Option {
	return func(c *config) {
		if token != "" {
			c.header.Set("Authorization", "Bearer "+token)
		}
	}
}

// WithHeader adds extra handshake headers.
func WithHeader(header http.Header) Option {
	return func(c *config) {
		for k, vs := range header {
			for _, v := range vs {
				c.header.Add(k, v)
			}
		}
	}
}

// WithDialer substitutes the transport used to establish connections.
func WithDialer(d Dialer) Option {
	return func(c *config) { c.dialer = d }
}

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithReconnect enables or disables automatic reconnection. Enabled by
// default.
func WithReconnect(enabled bool) Option {
	return func(c *config) { c.reconnect = enabled }
}

// WithBackoff sets the base and maximum reconnect backoff intervals. The
// interval starts at base, doubles per failed attempt, and is capped at max.
// No jitter is applied; callers needing thundering-herd protection must add
// it externally.
func WithBackoff(base, max time.Duration) Option {
	return func(c *config) {
		if base > 0 {
			c.baseBackoff = base
		}
		if max > 0 {
			c.maxBackoff = max
		}
	}
}

// WithMaxAttempts caps consecutive failed reconnect attempts before the
// stream gives up and enters the failed state. Zero (the default) retries
// forever.
func WithMaxAttempts(n int) Option {
	return func(c *config) { c.maxAttempts = n }
}

// WithQueueCapacity sets the delivery queue capacity.
func WithQueueCapacity(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.queueCapacity = n
		}
	}
}

// WithDropPolicy selects the overflow drop policy.
func WithDropPolicy(p DropPolicy) Option {
	return func(c *config) { c.dropPolicy = p }
}

// WithHighWater sets the fraction of capacity at which a backpressure
// warning is logged.
func WithHighWater(frac float64) Option {
	return func(c *config) {
		if frac > 0 && frac <= 1 {
			c.highWater = frac
		}
	}
}

// WithHeartbeatInterval sets the keepalive send interval.
func WithHeartbeatInterval(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.heartbeatInterval = d
		}
	}
}
