package protocol

import (
	"encoding/json"
	"fmt"
)

// ChatMessage is the payload of a message envelope.
type ChatMessage struct {
	Sender string `json:"from"`
	Text   string `json:"message"`
}

// EncodeChatMessage serializes m as the data string of a message envelope.
func EncodeChatMessage(m ChatMessage) string {
	raw, err := json.Marshal(m)
	if err != nil {
		panic(fmt.Sprintf("protocol: encode chat message: %v", err))
	}
	return string(raw)
}

// DecodeChatMessage parses the data string of a message envelope.
// Missing fields decode as empty strings; anything that is not a JSON object
// fails with an error matching ErrMalformedPayload.
func DecodeChatMessage(data string) (ChatMessage, error) {
	var m *ChatMessage
	if err := json.Unmarshal([]byte(data), &m); err != nil {
		return ChatMessage{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if m == nil {
		return ChatMessage{}, fmt.Errorf("%w: null payload", ErrMalformedPayload)
	}
	return *m, nil
}
