package protocol_test

import (
	"errors"
	"testing"

	"livechat/internal/app/protocol"
)

func TestDecodeChatMessage(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    protocol.ChatMessage
		wantErr bool
	}{
		{"full", `{"from":"bob","message":"hi"}`, protocol.ChatMessage{Sender: "bob", Text: "hi"}, false},
		{"missing text", `{"from":"bob"}`, protocol.ChatMessage{Sender: "bob"}, false},
		{"empty object", `{}`, protocol.ChatMessage{}, false},
		{"plain text", `hi there`, protocol.ChatMessage{}, true},
		{"empty", ``, protocol.ChatMessage{}, true},
		{"null", `null`, protocol.ChatMessage{}, true},
		{"wrong field type", `{"from":1,"message":"hi"}`, protocol.ChatMessage{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := protocol.DecodeChatMessage(tt.data)
			if tt.wantErr {
				if !errors.Is(err, protocol.ErrMalformedPayload) {
					t.Errorf("DecodeChatMessage() error = %v, want ErrMalformedPayload", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeChatMessage() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("DecodeChatMessage() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestEncodeChatMessage(t *testing.T) {
	got := protocol.EncodeChatMessage(protocol.ChatMessage{Sender: "alice", Text: "party.gif"})
	want := `{"from":"alice","message":"party.gif"}`
	if got != want {
		t.Errorf("EncodeChatMessage() = %s, want %s", got, want)
	}
}
