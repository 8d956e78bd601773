package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"livechat/internal/app/bus"
	"livechat/internal/app/media"
	"livechat/internal/app/session"
	"livechat/internal/app/transport"
	"livechat/internal/configs"
)

const (
	uploadTimeout = 60 * time.Second

	noticeBuffer = 32
)

// events carries what the UI must react to from outside its own loop.
type events struct {
	// changed holds at most one pending wakeup; the UI reads the latest
	// snapshot itself, so coalescing loses nothing.
	changed chan struct{}
	notices chan string
	closed  chan error
}

func newEvents() *events {
	return &events{
		changed: make(chan struct{}, 1),
		notices: make(chan string, noticeBuffer),
		closed:  make(chan error, 1),
	}
}

func (e *events) notifyChange() {
	select {
	case e.changed <- struct{}{}:
	default:
	}
}

// notice queues a status line. Notices beyond the buffer are dropped.
func (e *events) notice(format string, args ...any) {
	select {
	case e.notices <- fmt.Sprintf(format, args...):
	default:
	}
}

// client wires the inbound bus, the transport and the session together.
type client struct {
	bus       *bus.Bus
	transport *transport.Client
	session   *session.Session
	events    *events

	runDone chan struct{}
}

func newClient(cfg *configs.ClientConfig) *client {
	ev := newEvents()
	inbound := bus.New(cfg.QueueSize)

	tcfg := transport.DefaultConfig(cfg.ServerURL)
	tcfg.QueueSize = cfg.QueueSize
	tcfg.ReadLimit = max(tcfg.ReadLimit, cfg.ReadLimit())
	tr := transport.New(tcfg, inbound)

	tr.OnReconnect(func() { ev.notice("reconnected to %s", cfg.ServerURL) })

	sess := session.New(cfg.Username, tr, inbound,
		session.WithOnChange(func(session.Snapshot) { ev.notifyChange() }),
		session.WithOnError(func(err error) {
			if errors.Is(err, transport.ErrQueueFull) {
				ev.notice("message not sent: outbound queue full")
			}
		}),
	)

	return &client{
		bus:       inbound,
		transport: tr,
		session:   sess,
		events:    ev,
		runDone:   make(chan struct{}),
	}
}

// start runs the transport until ctx ends or close is called. A transport
// that gives up is reported on events.closed.
func (c *client) start(ctx context.Context) {
	go func() {
		defer close(c.runDone)
		c.events.closed <- c.transport.Run(ctx)
	}()
}

func (c *client) close() {
	c.session.Close()
	_ = c.transport.Close()
	<-c.runDone
	c.bus.Close()
}

// mediaUploader shares local images through the relay's media endpoint.
func mediaUploader(cfg *configs.ClientConfig) uploadFunc {
	httpClient := &http.Client{Timeout: uploadTimeout}

	return func(ctx context.Context, path string) (media.Result, error) {
		baseURL, err := cfg.APIBaseURL()
		if err != nil {
			return media.Result{}, err
		}
		return media.Upload(ctx, httpClient, baseURL, path)
	}
}
