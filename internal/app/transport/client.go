/*
Package transport keeps a websocket connection to the relay alive for the
chat client.

Outbound frames go through a bounded queue and are never blocked on: Send
fails fast when the queue is full. Inbound text frames are handed to a
Publisher, normally the fan-out bus. When the connection drops the client
dials again with capped, jittered exponential backoff.
*/
package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/coder/websocket"
	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/errgroup"

	"livechat/internal/pkg/logx"
)

var (
	// ErrQueueFull is returned by Send when the outbound queue has no room.
	ErrQueueFull = errors.New("transport: outbound queue full")

	// ErrClosed is returned by Send after Close.
	ErrClosed = errors.New("transport: closed")
)

// Publisher receives every inbound text frame in arrival order.
type Publisher interface {
	Publish(frame string)
}

// Client is a reconnecting websocket client.
type Client struct {
	cfg Config
	pub Publisher

	queue chan string

	// priority frames are written before anything in queue.
	priority chan string

	closed    chan struct{}
	closeOnce sync.Once
	connected atomic.Bool

	// mu protects conn, connects and the callback lists.
	mu          sync.Mutex
	conn        *websocket.Conn
	connects    int
	onConnect   []func()
	onReconnect []func()

	logger zerolog.Logger
}

// New creates a client for cfg.URL. Zero fields of cfg take defaults.
// Nothing is dialed until Run.
func New(cfg Config, pub Publisher) *Client {
	cfg = cfg.withDefaults()

	return &Client{
		cfg:    cfg,
		pub:    pub,
		queue:    make(chan string, cfg.QueueSize),
		priority: make(chan string, priorityQueueSize),
		closed:   make(chan struct{}),
		logger: logx.Component("transport").With().Str("url", cfg.URL).Logger(),
	}
}

// OnConnect registers fn to run after every successful dial, before any
// queued frame is written. Frames fn sends with SendPriority go out first.
func (c *Client) OnConnect(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onConnect = append(c.onConnect, fn)
}

// OnReconnect registers fn to run after every successful dial except the first.
func (c *Client) OnReconnect(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onReconnect = append(c.onReconnect, fn)
}

// Send queues frame for writing without blocking. Frames queued while the
// connection is down are written after the next successful dial.
func (c *Client) Send(frame string) error {
	select {
	case <-c.closed:
		return ErrClosed
	default:
	}

	select {
	case c.queue <- frame:
		return nil
	default:
		c.logger.Warn().Int("queue_len", len(c.queue)).Msg("Outbound queue full, dropping frame")
		return ErrQueueFull
	}
}

// SendPriority is Send for frames that must precede everything already
// queued, such as a handshake sent from a connect hook.
func (c *Client) SendPriority(frame string) error {
	select {
	case <-c.closed:
		return ErrClosed
	default:
	}

	select {
	case c.priority <- frame:
		return nil
	default:
		c.logger.Warn().Msg("Priority queue full, dropping frame")
		return ErrQueueFull
	}
}

// Connected reports whether a connection is currently up.
func (c *Client) Connected() bool {
	return c.connected.Load()
}

// Run dials the relay and serves the connection, dialing again whenever it
// drops. It returns nil after Close, ctx.Err() when ctx is canceled, and the
// last dial error once MaxReconnects consecutive attempts have failed.
func (c *Client) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		select {
		case <-c.closed:
			cancel()
		case <-ctx.Done():
		}
	}()

	for {
		conn, err := c.dialWithRetry(ctx)
		if err != nil {
			return c.exitErr(ctx, err)
		}

		err = c.serve(ctx, conn)
		if ctx.Err() != nil {
			return c.exitErr(ctx, ctx.Err())
		}
		c.logger.Warn().Err(err).Msg("Connection lost, reconnecting")
	}
}

// Close stops Run, closes the current connection and makes Send fail with
// ErrClosed. It is safe to call more than once.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)

		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()

		if conn != nil {
			err = conn.Close(websocket.StatusNormalClosure, "client closing")
		}
		c.logger.Info().Msg("Transport closed")
	})
	return err
}

func (c *Client) exitErr(ctx context.Context, err error) error {
	select {
	case <-c.closed:
		return nil
	default:
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (c *Client) backoff() retry.Backoff {
	b := retry.NewExponential(c.cfg.ReconnectBase)
	b = retry.WithJitterPercent(jitterPercent, b)
	b = retry.WithCappedDuration(c.cfg.ReconnectMax, b)
	if c.cfg.MaxReconnects > 0 {
		b = retry.WithMaxRetries(c.cfg.MaxReconnects, b)
	}
	return b
}

func (c *Client) dialWithRetry(ctx context.Context) (*websocket.Conn, error) {
	var conn *websocket.Conn
	attempt := 0

	err := retry.Do(ctx, c.backoff(), func(ctx context.Context) error {
		attempt++

		dialCtx, cancel := context.WithTimeout(ctx, c.cfg.HandshakeTimeout)
		defer cancel()

		ws, _, err := websocket.Dial(dialCtx, c.cfg.URL, nil)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Warn().Err(err).Int("attempt", attempt).Msg("Dial failed")
			return retry.RetryableError(err)
		}

		conn = ws
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", c.cfg.URL, err)
	}

	conn.SetReadLimit(c.cfg.ReadLimit)
	return conn, nil
}

// serve runs the read and write loops until either fails or ctx ends.
func (c *Client) serve(ctx context.Context, conn *websocket.Conn) error {
	c.mu.Lock()
	c.conn = conn
	c.connects++
	first := c.connects == 1
	hooks := append([]func(){}, c.onConnect...)
	if !first {
		hooks = append(hooks, c.onReconnect...)
	}
	c.mu.Unlock()

	c.connected.Store(true)
	c.logger.Info().Bool("reconnect", !first).Msg("Connected")

	for _, fn := range hooks {
		fn()
	}

	group, gctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return c.readLoop(gctx, conn)
	})

	group.Go(func() error {
		return c.writeLoop(gctx, conn)
	})

	err := group.Wait()

	c.connected.Store(false)
	c.mu.Lock()
	c.conn = nil
	c.mu.Unlock()

	// the connection may already be closed by a failed read or by Close
	_ = conn.CloseNow()

	return err
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		if typ != websocket.MessageText {
			c.logger.Debug().Int("bytes", len(data)).Msg("Ignoring binary frame")
			continue
		}
		c.pub.Publish(string(data))
	}
}

func (c *Client) writeLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		var frame string

		select {
		case frame = <-c.priority:
		default:
			select {
			case <-ctx.Done():
				return ctx.Err()
			case frame = <-c.priority:
			case frame = <-c.queue:
			}
		}

		if err := c.write(ctx, conn, frame); err != nil {
			return err
		}
	}
}

func (c *Client) write(ctx context.Context, conn *websocket.Conn, frame string) error {
	wctx, cancel := context.WithTimeout(ctx, c.cfg.WriteTimeout)
	defer cancel()

	if err := conn.Write(wctx, websocket.MessageText, []byte(frame)); err != nil {
		c.logger.Warn().Err(err).Int("bytes", len(frame)).Msg("Write failed, frame lost")
		return fmt.Errorf("write: %w", err)
	}
	return nil
}
