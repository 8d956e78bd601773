package transport

import "time"

const (
	defaultHandshakeTimeout = 10 * time.Second
	defaultWriteTimeout     = 10 * time.Second
	defaultQueueSize        = 64
	defaultReadLimit        = 1 << 20
	defaultReconnectBase    = 500 * time.Millisecond
	defaultReconnectMax     = 30 * time.Second

	priorityQueueSize = 8

	// jitterPercent is the random spread applied to each backoff delay.
	jitterPercent = 20
)

// Config controls dialing, queueing and reconnecting.
type Config struct {
	// URL is the websocket endpoint, e.g. ws://localhost:8080/ws.
	URL string

	// HandshakeTimeout bounds a single dial attempt.
	HandshakeTimeout time.Duration

	// WriteTimeout bounds writing one frame.
	WriteTimeout time.Duration

	// QueueSize is the number of outbound frames held while the writer is
	// busy or the connection is down.
	QueueSize int

	// ReadLimit is the largest inbound frame accepted, in bytes. A larger
	// frame fails the connection, so it must cover the relay's biggest
	// message and users frames.
	ReadLimit int64

	// ReconnectBase and ReconnectMax bound the exponential backoff between
	// dial attempts.
	ReconnectBase time.Duration
	ReconnectMax  time.Duration

	// MaxReconnects caps consecutive failed dial attempts; zero retries forever.
	MaxReconnects uint64
}

// DefaultConfig returns a Config for url with default limits.
func DefaultConfig(url string) Config {
	return Config{URL: url}.withDefaults()
}

func (c Config) withDefaults() Config {
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = defaultHandshakeTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = defaultWriteTimeout
	}
	if c.QueueSize <= 0 {
		c.QueueSize = defaultQueueSize
	}
	if c.ReadLimit <= 0 {
		c.ReadLimit = defaultReadLimit
	}
	if c.ReconnectBase <= 0 {
		c.ReconnectBase = defaultReconnectBase
	}
	if c.ReconnectMax <= 0 {
		c.ReconnectMax = defaultReconnectMax
	}
	if c.ReconnectMax < c.ReconnectBase {
		c.ReconnectMax = c.ReconnectBase
	}
	return c
}
