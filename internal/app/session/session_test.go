package session_test

import (
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"livechat/internal/app/protocol"
	"livechat/internal/app/session"
)

type fakeTransport struct {
	mu       sync.Mutex
	sent     []string
	priority []string
	err      error
	onRecon  func()
}

func (f *fakeTransport) Send(frame string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, frame)
	return nil
}

func (f *fakeTransport) SendPriority(frame string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.priority = append(f.priority, frame)
	return nil
}

func (f *fakeTransport) prioritized() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.priority))
	copy(out, f.priority)
	return out
}

func (f *fakeTransport) OnReconnect(fn func()) {
	f.onRecon = fn
}

func (f *fakeTransport) frames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.sent))
	copy(out, f.sent)
	return out
}

type fakeSource struct {
	fn           func(string)
	unsubscribed bool
}

func (f *fakeSource) Subscribe(fn func(string)) func() {
	f.fn = fn
	return func() { f.unsubscribed = true }
}

func (f *fakeSource) deliver(frame string) {
	if f.fn != nil {
		f.fn(frame)
	}
}

func newSession(t *testing.T, tr session.Transport, opts ...session.Option) (*session.Session, *fakeSource) {
	t.Helper()
	src := &fakeSource{}
	opts = append([]session.Option{session.WithLogger(zerolog.Nop())}, opts...)
	return session.New("alice", tr, src, opts...), src
}

func TestNew_SendsRegister(t *testing.T) {
	tr := &fakeTransport{}
	s, _ := newSession(t, tr)

	want := []string{`{"messageType":"register","data":"alice"}`}
	if got := tr.frames(); !reflect.DeepEqual(got, want) {
		t.Errorf("sent = %q, want %q", got, want)
	}
	if s.Connection() != session.StateActive {
		t.Errorf("Connection() = %v, want active", s.Connection())
	}
	if s.Self() != "alice" {
		t.Errorf("Self() = %q, want alice", s.Self())
	}
}

func TestNew_SendFailureStillActivates(t *testing.T) {
	sendErr := errors.New("socket closed")
	tr := &fakeTransport{err: sendErr}

	var reported []error
	s, _ := newSession(t, tr, session.WithOnError(func(err error) {
		reported = append(reported, err)
	}))

	if s.Connection() != session.StateActive {
		t.Errorf("Connection() = %v, want active", s.Connection())
	}
	if len(reported) != 1 || !errors.Is(reported[0], sendErr) {
		t.Errorf("reported errors = %v, want [%v]", reported, sendErr)
	}
}

// Two participants: alice submits, the relay echoes, the log gains the
// message only once the echo arrives.
func TestSession_SubmitAndEcho(t *testing.T) {
	tr := &fakeTransport{}
	var changes []session.Snapshot
	s, src := newSession(t, tr, session.WithOnChange(func(snap session.Snapshot) {
		changes = append(changes, snap)
	}))

	src.deliver(`{"messageType":"users","dataArray":["alice","bob"]}`)

	if !s.Submit("hello") {
		t.Fatal("Submit() = false, want true")
	}
	sent := tr.frames()
	if len(sent) != 2 {
		t.Fatalf("sent %d frames, want 2: %q", len(sent), sent)
	}
	env, err := protocol.Decode(sent[1])
	if err != nil {
		t.Fatalf("Decode(sent) error = %v", err)
	}
	msg, err := protocol.DecodeChatMessage(env.Data)
	if err != nil {
		t.Fatalf("DecodeChatMessage() error = %v", err)
	}
	if msg != (protocol.ChatMessage{Sender: "alice", Text: "hello"}) {
		t.Errorf("submitted payload = %+v", msg)
	}
	if got := s.Snapshot().Log; len(got) != 0 {
		t.Errorf("Log before echo = %+v, want empty", got)
	}

	src.deliver(sent[1])

	want := []protocol.ChatMessage{{Sender: "alice", Text: "hello"}}
	if got := s.Snapshot().Log; !reflect.DeepEqual(got, want) {
		t.Errorf("Log after echo = %+v, want %+v", got, want)
	}
	if len(changes) != 2 {
		t.Fatalf("onChange calls = %d, want 2", len(changes))
	}
	if len(changes[0].Roster) != 2 || len(changes[1].Log) != 1 {
		t.Errorf("onChange snapshots = %+v", changes)
	}
}

func TestSession_SubmitEmpty(t *testing.T) {
	tr := &fakeTransport{}
	s, _ := newSession(t, tr)

	if s.Submit("") {
		t.Error("Submit(\"\") = true, want false")
	}
	if got := len(tr.frames()); got != 1 {
		t.Errorf("sent %d frames, want only the register frame", got)
	}
}

func TestSession_SubmitSendFailure(t *testing.T) {
	tr := &fakeTransport{}
	var reported int
	s, _ := newSession(t, tr, session.WithOnError(func(error) { reported++ }))

	tr.err = errors.New("queue full")
	if !s.Submit("lost") {
		t.Error("Submit() = false, want true even when the send fails")
	}
	if reported != 1 {
		t.Errorf("reported = %d, want 1", reported)
	}
	if got := s.Snapshot().Log; len(got) != 0 {
		t.Errorf("Log = %+v, want empty", got)
	}
}

func TestSession_HandleFrameErrors(t *testing.T) {
	tests := []struct {
		name  string
		frame string
		want  error
	}{
		{"not json", `not json`, protocol.ErrMalformed},
		{"unknown kind", `{"messageType":"typing","data":"alice"}`, protocol.ErrUnknownKind},
		{"bad payload", `{"messageType":"message","data":"plain text"}`, protocol.ErrMalformedPayload},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var changed bool
			var reported error
			s, _ := newSession(t, &fakeTransport{},
				session.WithOnChange(func(session.Snapshot) { changed = true }),
				session.WithOnError(func(err error) { reported = err }),
			)
			before := s.Snapshot()

			err := s.HandleFrame(tt.frame)
			if !errors.Is(err, tt.want) {
				t.Errorf("HandleFrame() error = %v, want %v", err, tt.want)
			}
			if !errors.Is(reported, tt.want) {
				t.Errorf("reported error = %v, want %v", reported, tt.want)
			}
			if changed {
				t.Error("onChange called for a dropped frame")
			}
			if after := s.Snapshot(); !reflect.DeepEqual(after, before) {
				t.Errorf("state changed: %+v, want %+v", after, before)
			}
		})
	}
}

func TestSession_RegisterFrameNoChange(t *testing.T) {
	var changed bool
	s, _ := newSession(t, &fakeTransport{}, session.WithOnChange(func(session.Snapshot) { changed = true }))

	if err := s.HandleFrame(`{"messageType":"register","data":"bob"}`); err != nil {
		t.Fatalf("HandleFrame() error = %v", err)
	}
	if changed {
		t.Error("onChange called for a register frame")
	}
}

func TestSession_Reregister(t *testing.T) {
	tr := &fakeTransport{}
	s, _ := newSession(t, tr)

	if tr.onRecon == nil {
		t.Fatal("session did not register a reconnect hook")
	}
	s.Submit("typed while offline")
	tr.onRecon()

	register := `{"messageType":"register","data":"alice"}`
	if got := tr.frames(); len(got) != 2 || got[0] != register {
		t.Errorf("sent = %q, want register then the message", got)
	}
	if got, want := tr.prioritized(), []string{register}; !reflect.DeepEqual(got, want) {
		t.Errorf("priority frames = %q, want %q", got, want)
	}

	s.Close()
	tr.onRecon()
	if got := len(tr.prioritized()); got != 1 {
		t.Errorf("sent %d priority frames after Close, want 1", got)
	}
}

func TestSession_Close(t *testing.T) {
	var changes int
	s, src := newSession(t, &fakeTransport{}, session.WithOnChange(func(session.Snapshot) { changes++ }))

	src.deliver(`{"messageType":"users","dataArray":["alice"]}`)
	s.Close()
	s.Close()

	if !src.unsubscribed {
		t.Error("Close() did not unsubscribe from the source")
	}
	if err := s.HandleFrame(`{"messageType":"users","dataArray":["bob"]}`); err != nil {
		t.Errorf("HandleFrame() after Close error = %v", err)
	}
	if changes != 1 {
		t.Errorf("onChange calls = %d, want 1", changes)
	}
	if got := s.Snapshot().Roster; len(got) != 1 || got[0].Name != "alice" {
		t.Errorf("Roster after Close = %+v, want [alice]", got)
	}
}

func TestSession_ConcurrentFrames(t *testing.T) {
	s, _ := newSession(t, &fakeTransport{})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = s.HandleFrame(protocol.Encode(protocol.Message(protocol.ChatMessage{Sender: "bob", Text: "x"})))
		}()
		go func() {
			defer wg.Done()
			s.Submit("y")
		}()
	}
	wg.Wait()

	if got := len(s.Snapshot().Log); got != 50 {
		t.Errorf("Log length = %d, want 50", got)
	}
}
