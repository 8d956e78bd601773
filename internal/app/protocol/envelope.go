/*
Package protocol is the wire codec shared by the chat client and the relay.

Every frame is a JSON envelope tagged with a kind:

	{"messageType":"users","dataArray":["alice","bob"]}
	{"messageType":"register","data":"alice"}
	{"messageType":"message","data":"{\"from\":\"bob\",\"message\":\"hi\"}"}

A message envelope carries its ChatMessage as a JSON string inside data.
Decoding is lenient: a field the kind expects but the frame lacks decodes to
its zero value, and a field the kind does not use is ignored.
*/
package protocol

import (
	"encoding/json"
	"fmt"
)

// Kind identifies the purpose of an envelope.
type Kind string

const (
	// KindUsers is a full roster snapshot, names in dataArray.
	KindUsers Kind = "users"

	// KindRegister announces the sender's name in data.
	KindRegister Kind = "register"

	// KindMessage carries an encoded ChatMessage in data.
	KindMessage Kind = "message"
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindUsers, KindRegister, KindMessage:
		return true
	default:
		return false
	}
}

// String returns the wire value of k.
func (k Kind) String() string {
	return string(k)
}

// Envelope is one frame on the wire.
// Data is meaningful for register and message, DataList for users.
type Envelope struct {
	Kind     Kind
	Data     string
	DataList []string
}

// wireEnvelope is the decoding view of a frame; every field is optional.
type wireEnvelope struct {
	MessageType Kind     `json:"messageType"`
	DataArray   []string `json:"dataArray"`
	Data        *string  `json:"data"`
}

// wireUsers and wireData are the two canonical encodings.
type wireUsers struct {
	MessageType Kind     `json:"messageType"`
	DataArray   []string `json:"dataArray"`
}

type wireData struct {
	MessageType Kind   `json:"messageType"`
	Data        string `json:"data"`
}

// Users builds a roster snapshot envelope.
func Users(names []string) Envelope {
	list := make([]string, len(names))
	copy(list, names)
	return Envelope{Kind: KindUsers, DataList: list}
}

// Register builds a registration envelope for name.
func Register(name string) Envelope {
	return Envelope{Kind: KindRegister, Data: name}
}

// Message builds a message envelope carrying msg.
func Message(msg ChatMessage) Envelope {
	return Envelope{Kind: KindMessage, Data: EncodeChatMessage(msg)}
}

// Encode serializes e. Only the field that belongs to e.Kind is written:
// users always carries dataArray (an empty roster as []), the other kinds
// always carry data.
func Encode(e Envelope) string {
	var v any
	if e.Kind == KindUsers {
		list := e.DataList
		if list == nil {
			list = []string{}
		}
		v = wireUsers{MessageType: e.Kind, DataArray: list}
	} else {
		v = wireData{MessageType: e.Kind, Data: e.Data}
	}

	raw, err := json.Marshal(v)
	if err != nil {
		// strings and string slices always marshal
		panic(fmt.Sprintf("protocol: encode envelope: %v", err))
	}
	return string(raw)
}

// Decode parses raw into an Envelope.
// It fails with ErrMalformed when raw is not a JSON object of the expected
// shape and with ErrUnknownKind when messageType is missing or unrecognised.
// A users envelope always decodes with a non-nil DataList and empty Data;
// the other kinds decode with a nil DataList.
func Decode(raw string) (Envelope, error) {
	var w *wireEnvelope
	if err := json.Unmarshal([]byte(raw), &w); err != nil {
		return Envelope{}, &DecodeError{Reason: ReasonMalformed, Err: err}
	}
	if w == nil {
		return Envelope{}, &DecodeError{Reason: ReasonMalformed}
	}

	if !w.MessageType.Valid() {
		return Envelope{}, &DecodeError{Reason: ReasonUnknownKind, Kind: string(w.MessageType)}
	}

	e := Envelope{Kind: w.MessageType}
	if e.Kind == KindUsers {
		e.DataList = w.DataArray
		if e.DataList == nil {
			e.DataList = []string{}
		}
		return e, nil
	}

	if w.Data != nil {
		e.Data = *w.Data
	}
	return e, nil
}
