/*
Package relay is the counterpart server of the chat client: a single room that
fans envelopes out to every registered connection.

This file defines the Hub, which owns the connection set and the join order.
All mutations happen on the Run goroutine; clients hand it their decoded
frames through channels.
*/
package relay

import (
	"sync"

	"github.com/rs/zerolog"

	"livechat/internal/app/protocol"
	"livechat/internal/pkg/errs"
	"livechat/internal/pkg/logx"
)

const (
	// MaxContentBytes is the default limit for the text of one chat message.
	MaxContentBytes = 5000

	inboundChannelBuffer = 1024
)

type inboundFrame struct {
	client *Client
	env    protocol.Envelope
}

// Hub is the single chat room of the relay.
type Hub struct {
	// all attached connections, named or not.
	clients map[*Client]struct{}

	// named connections in the order they first registered.
	joined []*Client

	register   chan *Client
	unregister chan *Client
	inbound    chan inboundFrame

	// used to signal the Hub to stop its Run loop immediately.
	stopChan chan struct{}
	stopOnce sync.Once

	// mu protects joined and client names for readers outside Run.
	mu sync.RWMutex

	maxContentBytes int

	// largest inbound frame a connection may send, derived from maxContentBytes.
	frameLimit int64

	logger zerolog.Logger
}

// Option configures a Hub.
type Option func(*Hub)

// WithMaxContentBytes overrides MaxContentBytes. Non-positive values are ignored.
func WithMaxContentBytes(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.maxContentBytes = n
		}
	}
}

// NewHub creates an idle hub. Call Run to start it.
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		clients:         make(map[*Client]struct{}),
		register:        make(chan *Client),
		unregister:      make(chan *Client),
		inbound:         make(chan inboundFrame, inboundChannelBuffer),
		stopChan:        make(chan struct{}),
		maxContentBytes: MaxContentBytes,
		logger:          logx.Component("relay"),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.frameLimit = protocol.MaxMessageFrameBytes(h.maxContentBytes)
	return h
}

// FrameLimit returns the read limit for one inbound frame. Any message whose
// text fits the content limit fits the frame limit, however it is escaped.
func (h *Hub) FrameLimit() int64 {
	return h.frameLimit
}

// Stop terminates the Run loop and closes every client's send queue.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		h.logger.Info().Msg("Received stop signal. Stopping hub.")
		close(h.stopChan)
	})
}

// Attach hands a new connection to the hub. The connection stays unnamed
// until it sends a register frame.
func (h *Hub) Attach(c *Client) {
	select {
	case h.register <- c:
	case <-h.stopChan:
		c.logger.Warn().Msg("Hub stopped, rejecting connection.")
		close(c.send)
	}
}

// Online returns the names of registered connections in join order.
func (h *Hub) Online() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.namesLocked()
}

// Run processes attachments, frames and disconnects until Stop.
func (h *Hub) Run() {
	defer func() {
		h.mu.Lock()
		for c := range h.clients {
			close(c.send)
			delete(h.clients, c)
		}
		h.joined = nil
		h.mu.Unlock()
		h.logger.Info().Msg("Hub Run loop finished.")
	}()

	for {
		select {
		case c := <-h.register:
			h.clients[c] = struct{}{}
			c.logger.Info().Int("total_conns", len(h.clients)).Msg("Connection attached.")

		case c := <-h.unregister:
			h.remove(c, "disconnected")

		case f := <-h.inbound:
			if _, ok := h.clients[f.client]; !ok {
				continue
			}
			h.handle(f.client, f.env)

		case <-h.stopChan:
			return
		}
	}
}

func (h *Hub) handle(c *Client, env protocol.Envelope) {
	switch env.Kind {
	case protocol.KindRegister:
		h.handleRegister(c, env.Data)

	case protocol.KindMessage:
		h.handleMessage(c, env.Data)

	case protocol.KindUsers:
		c.logger.Debug().Msg("Ignoring users frame from client.")

	default:
		c.logger.Warn().Str("msg_type", env.Kind.String()).Msg("Client sent unsupported message type")
	}
}

func (h *Hub) handleRegister(c *Client, name string) {
	if name == "" {
		c.logger.Warn().Msg("Client sent register with empty name, dropped")
		return
	}

	if len(name) > protocol.MaxNameBytes {
		c.logger.Warn().
			Err(errs.NewError(errs.ErrNameTooLong, protocol.MaxNameBytes)).
			Int("name_bytes", len(name)).
			Msg("Client sent register with oversize name, dropped")
		return
	}

	h.mu.Lock()
	previous := c.name
	if previous == "" {
		h.joined = append(h.joined, c)
	}
	c.name = name
	h.mu.Unlock()

	if previous == "" {
		c.logger.Info().Str("name", name).Int("online", len(h.joined)).Msg("Client registered.")
	} else {
		c.logger.Info().Str("old_name", previous).Str("name", name).Msg("Client renamed.")
	}

	h.broadcastUsers()
}

func (h *Hub) handleMessage(c *Client, data string) {
	if c.name == "" {
		c.logger.Warn().Msg("Message from unregistered connection, dropped")
		return
	}

	msg, err := protocol.DecodeChatMessage(data)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Client sent invalid message payload")
		return
	}

	if len(msg.Text) > h.maxContentBytes {
		c.logger.Warn().
			Err(errs.NewError(errs.ErrMessageContentTooLong, h.maxContentBytes)).
			Int("content_bytes", len(msg.Text)).
			Int("max_bytes", h.maxContentBytes).
			Msg("Message content too long, dropped")
		return
	}

	if msg.Sender != c.name {
		c.logger.Warn().Str("claimed", msg.Sender).Str("name", c.name).Msg("Sender mismatch, using registered name")
		msg.Sender = c.name
	}

	h.broadcast(protocol.Encode(protocol.Message(msg)))
}

func (h *Hub) broadcastUsers() {
	h.mu.RLock()
	names := h.namesLocked()
	h.mu.RUnlock()

	h.broadcast(protocol.Encode(protocol.Users(names)))
}

// broadcast queues frame on every named connection. Connections whose queue
// is full are dropped.
func (h *Hub) broadcast(frame string) {
	payload := []byte(frame)

	var slow []*Client
	for _, c := range h.joined {
		select {
		case c.send <- payload:
		default:
			c.logger.Warn().Msg("Client send channel full, dropping connection.")
			slow = append(slow, c)
		}
	}

	for _, c := range slow {
		h.remove(c, "send queue full")
	}
}

// remove detaches c and closes its send queue. Losing a named connection
// triggers a fresh users snapshot.
func (h *Hub) remove(c *Client, reason string) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)

	h.mu.Lock()
	named := c.name != ""
	if named {
		for i, jc := range h.joined {
			if jc == c {
				h.joined = append(h.joined[:i:i], h.joined[i+1:]...)
				break
			}
		}
	}
	h.mu.Unlock()

	c.logger.Info().
		Str("reason", reason).
		Int("total_conns", len(h.clients)).
		Msg("Connection detached.")

	if named {
		h.broadcastUsers()
	}
}

func (h *Hub) namesLocked() []string {
	names := make([]string, 0, len(h.joined))
	for _, c := range h.joined {
		names = append(names, c.name)
	}
	return names
}
