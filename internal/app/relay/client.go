/*
Package relay is the counterpart server of the chat client.

This file defines the Client struct, representing one WebSocket connection to
the relay. It runs the read and write pumps and forwards decoded frames to the
Hub.
*/
package relay

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"livechat/internal/app/protocol"
	"livechat/internal/pkg/logx"
	"livechat/internal/pkg/randx"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// number of outbound frames queued per connection.
	sendQueueSize = 256
)

// Client struct represents an active WebSocket connection to the relay.
type Client struct {
	hub *Hub

	// underlying WebSocket connection object.
	conn *websocket.Conn

	// registered display name, empty until the first register frame.
	// Written by the Hub under hub.mu.
	name string

	// a buffered channel used to queue frames waiting to be sent to the client.
	send chan []byte

	// structured logger with connection context.
	logger zerolog.Logger
}

// NewClient constructs a Client for conn. remoteAddr is only used for logging
// and is anonymized.
func NewClient(hub *Hub, conn *websocket.Conn, remoteAddr string) *Client {
	connID := randx.ID()

	return &Client{
		hub:  hub,
		conn: conn,
		send: make(chan []byte, sendQueueSize),
		logger: logx.Logger().With().
			Str("component", "relay").
			Str("conn_id", connID).
			Str("ip", logx.AnonymizeIP(remoteAddr)).
			Logger(),
	}
}

// ReadPump reads frames from the connection and forwards them to the Hub
// until the connection fails or the Hub stops.
func (c *Client) ReadPump() {
	defer c.cleanupOnDisconnect()

	c.conn.SetReadLimit(c.hub.FrameLimit())

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		messageType, messageBytes, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Error reading message (Client close/going away)")
			}
			return
		}

		if messageType != websocket.TextMessage {
			c.logger.Warn().Msg("Client sent non-text frame, dropped")
			continue
		}

		if !c.processInboundMessage(messageBytes) {
			return
		}
	}
}

// processInboundMessage decodes one frame and hands it to the Hub.
// It returns false once the Hub has stopped.
func (c *Client) processInboundMessage(messageBytes []byte) bool {
	env, err := protocol.Decode(string(messageBytes))
	if err != nil {
		c.logger.Warn().Err(err).
			Int("bytes", len(messageBytes)).
			Msg("Client sent invalid frame")
		return true
	}

	select {
	case c.hub.inbound <- inboundFrame{client: c, env: env}:
		return true
	case <-c.hub.stopChan:
		return false
	}
}

// cleanupOnDisconnect detaches the client from the Hub and closes the connection.
func (c *Client) cleanupOnDisconnect() {
	c.logger.Debug().Msg("Client connection cleanup starting.")

	select {
	case c.hub.unregister <- c:
	case <-c.hub.stopChan:
	}

	if err := c.conn.Close(); err != nil {
		c.logger.Debug().Err(err).Msg("Client connection close error")
	}
}

// WritePump writes queued frames to the connection and keeps it alive with
// pings. It exits when the send queue is closed or a write fails.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()

		// ensure the connection is closed on exit
		if err := c.conn.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("Client connection close error in WritePump")
		}
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !c.writeQueuedMessage(message, ok) {
				return
			}

		case <-ticker.C:
			if !c.writePingMessage() {
				return
			}
		}
	}
}

// writeQueuedMessage writes one frame pulled from the send channel.
// Returns true if the WritePump loop should continue, false if it should terminate.
func (c *Client) writeQueuedMessage(message []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if !ok {
		if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
			c.logger.Debug().Err(err).Msg("Error writing close message")
		}
		return false
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
		c.logger.Warn().Err(err).Msg("Error writing message")
		return false
	}

	return true
}

// writePingMessage sends a periodic WebSocket Ping message.
// Returns false if the WritePump loop should terminate due to write failure.
func (c *Client) writePingMessage() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline on ping")
		return false
	}

	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.logger.Warn().Err(err).Msg("Error writing ping")
		return false
	}

	return true
}
