package protocol

const (
	// MaxNameBytes is the longest display name the relay accepts.
	MaxNameBytes = 64

	// escapeFactor is the worst-case growth of one byte of chat text on the
	// wire: "<" is written \u003c in the payload and \\u003c in the frame.
	escapeFactor = 7

	// nameEscapeFactor is the same growth for a string escaped only once,
	// like a name in a users frame.
	nameEscapeFactor = 6

	// frameOverhead covers the keys and punctuation of an envelope with its
	// nested payload, escaped.
	frameOverhead = 128
)

// MaxMessageFrameBytes returns the size of the largest message frame whose
// text is at most contentBytes long and whose sender is at most MaxNameBytes.
func MaxMessageFrameBytes(contentBytes int) int64 {
	return int64(escapeFactor*(contentBytes+MaxNameBytes) + frameOverhead)
}

// MaxUsersFrameBytes returns the size of the largest users frame listing
// online names of at most MaxNameBytes each.
func MaxUsersFrameBytes(online int) int64 {
	// quotes and a comma around every name
	perName := nameEscapeFactor*MaxNameBytes + 3
	return int64(perName*online + frameOverhead)
}
