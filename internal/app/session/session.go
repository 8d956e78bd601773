package session

import (
	"sync"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"livechat/internal/app/protocol"
	"livechat/internal/pkg/logx"
)

// Transport sends raw frames to the server. Send must not block; a failed
// send is reported and the frame is dropped.
type Transport interface {
	Send(frame string) error
}

// Source delivers inbound raw frames one at a time in arrival order until
// the returned function is called.
type Source interface {
	Subscribe(fn func(frame string)) (unsubscribe func())
}

// Reconnector is implemented by transports that can tell when a dropped
// connection has been re-established. SendPriority queues a frame ahead of
// every frame already waiting for the new connection.
type Reconnector interface {
	OnReconnect(fn func())
	SendPriority(frame string) error
}

// Session binds a State to a transport and an inbound frame source.
// Inbound frames and Submit calls are serialized; inbound frames are applied
// in the order the source delivers them.
type Session struct {
	mu    sync.Mutex
	state *State

	transport   Transport
	unsubscribe func()
	closeOnce   sync.Once
	closed      bool

	// registerFrame is re-sent after every reconnect.
	registerFrame string

	onChange func(Snapshot)
	onError  func(error)
	logger   zerolog.Logger
}

// New starts a session for selfName: it sends the register frame, marks the
// session active whether or not the send succeeded, and subscribes to src.
func New(selfName string, tr Transport, src Source, opts ...Option) *Session {
	o := options{
		logger: logx.Component("session"),
	}
	for _, opt := range opts {
		opt(&o)
	}

	state, register := Start(selfName)

	s := &Session{
		state:         state,
		transport:     tr,
		registerFrame: protocol.Encode(register),
		onChange:      o.onChange,
		onError:       o.onError,
		logger:        o.logger.With().Str("self", selfName).Logger(),
	}

	s.send(tr.Send, s.registerFrame, "register")
	s.state.Activate()
	s.logger.Debug().Msg("Session active")

	if rc, ok := tr.(Reconnector); ok {
		rc.OnReconnect(func() { s.reregister(rc) })
	}

	s.unsubscribe = src.Subscribe(func(frame string) {
		_ = s.HandleFrame(frame)
	})

	return s
}

// HandleFrame decodes and applies one inbound frame. A frame that cannot be
// decoded or applied leaves the state unchanged; the error is logged,
// reported to the error callback, and returned.
func (s *Session) HandleFrame(raw string) error {
	s.mu.Lock()

	if s.closed {
		s.mu.Unlock()
		return nil
	}

	env, err := protocol.Decode(raw)
	if err == nil {
		err = s.state.Apply(env)
	}
	if err != nil {
		s.mu.Unlock()
		s.logger.Warn().Err(err).Str("frame", truncate(raw, 256)).Msg("Dropped inbound frame")
		s.reportError(err)
		return err
	}

	if env.Kind == protocol.KindRegister {
		s.mu.Unlock()
		return nil
	}

	if env.Kind == protocol.KindMessage {
		log := s.state.log
		if sender := log[len(log)-1].Sender; !s.state.InRoster(sender) {
			s.logger.Debug().Str("sender", sender).Msg("Message from sender not in roster")
		}
	}

	snap := s.state.Snapshot()
	s.mu.Unlock()

	if s.onChange != nil {
		s.onChange(snap)
	}
	return nil
}

// Submit sends text as a chat message. It returns false, sending nothing,
// for empty text. A failed send is logged and reported but the submission
// still counts as done. The message reaches the log only when the server
// echoes it back.
func (s *Session) Submit(text string) bool {
	s.mu.Lock()
	env, ok := s.state.Submit(text)
	s.mu.Unlock()

	if !ok {
		return false
	}

	s.send(s.transport.Send, protocol.Encode(env), "message")
	return true
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Snapshot()
}

// Self returns the name the session registered with.
func (s *Session) Self() string {
	return s.state.Self()
}

// Connection returns the registration phase.
func (s *Session) Connection() ConnectionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Connection()
}

// Close stops inbound delivery. The state stays readable. Close is idempotent.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()

		if s.unsubscribe != nil {
			s.unsubscribe()
		}
		s.logger.Debug().Msg("Session closed")
	})
}

// reregister announces the name again on a fresh connection. The relay
// drops messages from unnamed connections, so register must go out before
// anything typed while the connection was down.
func (s *Session) reregister(rc Reconnector) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()

	if closed {
		return
	}
	s.send(rc.SendPriority, s.registerFrame, "register")
}

func (s *Session) send(sendFn func(string) error, frame, kind string) {
	if err := sendFn(frame); err != nil {
		s.logger.Warn().Err(err).Str("kind", kind).Msg("Failed to send frame, dropped")
		s.reportError(err)
		return
	}
	s.logger.Debug().Str("kind", kind).Msg("Frame sent")
}

func (s *Session) reportError(err error) {
	if s.onError != nil {
		s.onError(err)
	}
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
