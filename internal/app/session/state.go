/*
Package session keeps a chat client's view of the room consistent with the
frames it receives.

State is the synchronous core: it applies decoded envelopes to the roster and
the message log and builds the envelopes for the user's own actions. It does
no I/O and no locking. Session hosts a State for a live connection.
*/
package session

import (
	"fmt"

	"livechat/internal/app/protocol"
	"livechat/internal/app/user"
	"livechat/internal/app/view"
)

// ConnectionState is the registration phase of a session.
type ConnectionState int

const (
	// StateRegistering is the initial phase, before the register frame went out.
	StateRegistering ConnectionState = iota

	// StateActive follows the first send attempt of the register frame.
	// The server never acknowledges registration.
	StateActive
)

// String returns the name of the state.
func (s ConnectionState) String() string {
	switch s {
	case StateRegistering:
		return "registering"
	case StateActive:
		return "active"
	default:
		return "unknown"
	}
}

// State is the roster and message log of one participant.
type State struct {
	selfName string
	roster   []user.Profile
	log      []protocol.ChatMessage
	conn     ConnectionState
}

// Snapshot is a read-only copy of a State.
type Snapshot struct {
	Self       string
	Connection ConnectionState
	Roster     []user.Profile
	Log        []protocol.ChatMessage
}

// Start creates the state for selfName with an empty roster and log, and
// returns the register envelope the caller must send.
func Start(selfName string) (*State, protocol.Envelope) {
	s := &State{
		selfName: selfName,
		roster:   []user.Profile{},
		log:      []protocol.ChatMessage{},
		conn:     StateRegistering,
	}
	return s, protocol.Register(selfName)
}

// Activate moves the state to StateActive.
func (s *State) Activate() {
	s.conn = StateActive
}

// Self returns the name the session registered with.
func (s *State) Self() string {
	return s.selfName
}

// Connection returns the registration phase.
func (s *State) Connection() ConnectionState {
	return s.conn
}

// Apply folds one inbound envelope into the state.
//
// A users envelope replaces the roster with its list, in order and including
// duplicates. A message envelope appends its ChatMessage to the log whether or
// not the sender is in the roster; when the payload cannot be decoded the
// state is left unchanged and an error matching protocol.ErrMalformedPayload
// is returned. A register envelope is ignored.
func (s *State) Apply(e protocol.Envelope) error {
	switch e.Kind {
	case protocol.KindUsers:
		roster := make([]user.Profile, 0, len(e.DataList))
		for _, name := range e.DataList {
			roster = append(roster, view.NewProfile(name))
		}
		s.roster = roster
		return nil

	case protocol.KindMessage:
		msg, err := protocol.DecodeChatMessage(e.Data)
		if err != nil {
			return fmt.Errorf("apply message envelope: %w", err)
		}
		s.log = append(s.log, msg)
		return nil

	case protocol.KindRegister:
		return nil

	default:
		return &protocol.DecodeError{Reason: protocol.ReasonUnknownKind, Kind: string(e.Kind)}
	}
}

// Submit builds the message envelope for text sent as this participant.
// Empty text produces nothing. The log is not touched: the message appears
// once the server echoes it back.
func (s *State) Submit(text string) (protocol.Envelope, bool) {
	if text == "" {
		return protocol.Envelope{}, false
	}
	return protocol.Message(protocol.ChatMessage{Sender: s.selfName, Text: text}), true
}

// InRoster reports whether name is currently online.
func (s *State) InRoster(name string) bool {
	for _, p := range s.roster {
		if p.Name == name {
			return true
		}
	}
	return false
}

// Snapshot copies the state.
func (s *State) Snapshot() Snapshot {
	roster := make([]user.Profile, len(s.roster))
	copy(roster, s.roster)

	log := make([]protocol.ChatMessage, len(s.log))
	copy(log, s.log)

	return Snapshot{
		Self:       s.selfName,
		Connection: s.conn,
		Roster:     roster,
		Log:        log,
	}
}
