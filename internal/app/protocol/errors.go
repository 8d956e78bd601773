package protocol

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformed is matched by a DecodeError for text that is not a well-formed envelope.
	ErrMalformed = errors.New("malformed envelope")

	// ErrUnknownKind is matched by a DecodeError for a missing or unrecognised messageType.
	ErrUnknownKind = errors.New("unknown envelope kind")

	// ErrMalformedPayload wraps failures to decode the ChatMessage inside a message envelope.
	ErrMalformedPayload = errors.New("malformed message payload")
)

// DecodeReason classifies a DecodeError.
type DecodeReason int

const (
	ReasonMalformed DecodeReason = iota
	ReasonUnknownKind
)

// String returns the name of the reason.
func (r DecodeReason) String() string {
	switch r {
	case ReasonMalformed:
		return "malformed"
	case ReasonUnknownKind:
		return "unknown_kind"
	default:
		return fmt.Sprintf("reason_%d", int(r))
	}
}

// DecodeError reports why an inbound frame could not be decoded.
type DecodeError struct {
	Reason DecodeReason
	// Kind is the rejected messageType, set for ReasonUnknownKind.
	Kind string
	// Err is the underlying parse error, set for ReasonMalformed.
	Err error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	switch e.Reason {
	case ReasonUnknownKind:
		return fmt.Sprintf("%s: %q", ErrUnknownKind, e.Kind)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s: %v", ErrMalformed, e.Err)
		}
		return ErrMalformed.Error()
	}
}

// Unwrap returns the underlying parse error.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Is matches ErrMalformed or ErrUnknownKind according to the reason.
func (e *DecodeError) Is(target error) bool {
	switch target {
	case ErrMalformed:
		return e.Reason == ReasonMalformed
	case ErrUnknownKind:
		return e.Reason == ReasonUnknownKind
	default:
		return false
	}
}
