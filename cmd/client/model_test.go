package main

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"livechat/internal/app/media"
	"livechat/internal/app/protocol"
	"livechat/internal/app/session"
	"livechat/internal/app/user"
	"livechat/internal/app/view"
)

type fakeSession struct {
	mu        sync.Mutex
	snap      session.Snapshot
	submitted []string
}

func (f *fakeSession) Submit(text string) bool {
	if text == "" {
		return false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, text)
	return true
}

func (f *fakeSession) Snapshot() session.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap
}

func (f *fakeSession) Self() string { return "alice" }

func (f *fakeSession) sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.submitted...)
}

func newTestModel(upload uploadFunc) (model, *fakeSession, *events) {
	sess := &fakeSession{}
	ev := newEvents()
	if upload == nil {
		upload = func(context.Context, string) (media.Result, error) {
			return media.Result{}, errors.New("no media store")
		}
	}
	return newModel(context.Background(), "ws://relay/ws", 5000, sess, ev, upload), sess, ev
}

func update(m model, msg tea.Msg) (model, tea.Cmd) {
	next, cmd := m.Update(msg)
	return next.(model), cmd
}

func enter(m model, line string) (model, tea.Cmd) {
	if line != "" {
		m, _ = update(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(line)})
	}
	return update(m, tea.KeyMsg{Type: tea.KeyEnter})
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func TestModel_Submit(t *testing.T) {
	tests := []struct {
		name string
		line string
		want []string
	}{
		{"text", "hello", []string{"hello"}},
		{"empty", "", nil},
		{"whitespace", "   ", []string{"   "}},
		{"unknown command", "/dance", []string{"/dance"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, sess, _ := newTestModel(nil)
			m, _ = enter(m, tt.line)

			if got := sess.sent(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("submitted %q, want %q", got, tt.want)
			}
			if m.input.Value() != "" {
				t.Errorf("input = %q after enter, want empty", m.input.Value())
			}
		})
	}
}

func TestModel_Snapshot(t *testing.T) {
	m, _, _ := newTestModel(nil)

	snap := session.Snapshot{
		Roster: []user.Profile{view.NewProfile("alice"), view.NewProfile("bob")},
		Log: []protocol.ChatMessage{
			{Sender: "bob", Text: "hi"},
			{Sender: "alice", Text: "https://cdn.example/media/x.gif"},
		},
	}
	m, cmd := update(m, snapshotMsg(snap))
	if cmd == nil {
		t.Error("snapshot did not re-arm the event wait")
	}

	out := m.View()
	for _, want := range []string{
		"alice, 2 online",
		"Online Users (2)",
		"[bob] hi",
		"[alice] <image> https://cdn.example/media/x.gif",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("View() missing %q:\n%s", want, out)
		}
	}
}

func TestModel_Commands(t *testing.T) {
	m, sess, _ := newTestModel(nil)
	m, _ = update(m, snapshotMsg(session.Snapshot{Roster: []user.Profile{view.NewProfile("alice")}}))

	m, _ = enter(m, "/users")
	if got := strings.Join(m.notice, "\n"); !strings.Contains(got, "Online Users (1)") || !strings.Contains(got, "alice") {
		t.Errorf("notices after /users = %q", m.notice)
	}

	m, cmd := enter(m, "/upload")
	if cmd != nil {
		t.Error("/upload without a path started an upload")
	}
	if last := m.notice[len(m.notice)-1]; last != "usage: /upload <path>" {
		t.Errorf("last notice = %q, want usage", last)
	}

	_, cmd = enter(m, "/quit")
	if !isQuit(cmd) {
		t.Error("/quit did not quit")
	}
	if got := sess.sent(); len(got) != 0 {
		t.Errorf("commands were sent as chat: %q", got)
	}
}

func TestModel_Upload(t *testing.T) {
	t.Run("shares the URL", func(t *testing.T) {
		var gotPath string
		m, sess, _ := newTestModel(func(_ context.Context, path string) (media.Result, error) {
			gotPath = path
			return media.Result{Key: "media/x.gif", URL: "https://cdn.example/media/x.gif"}, nil
		})

		m, cmd := enter(m, "/upload  cat.gif ")
		if cmd == nil {
			t.Fatal("/upload returned no command")
		}
		m, _ = update(m, cmd())

		if gotPath != "cat.gif" {
			t.Errorf("uploaded %q, want cat.gif", gotPath)
		}
		if got, want := sess.sent(), []string{"https://cdn.example/media/x.gif"}; !reflect.DeepEqual(got, want) {
			t.Errorf("submitted %q, want %q", got, want)
		}
	})

	t.Run("reports failure", func(t *testing.T) {
		m, sess, _ := newTestModel(nil)

		m, cmd := enter(m, "/upload cat.gif")
		m, _ = update(m, cmd())

		if len(sess.sent()) != 0 {
			t.Errorf("submitted %q after a failed upload", sess.sent())
		}
		if last := m.notice[len(m.notice)-1]; !strings.Contains(last, "upload of cat.gif failed") {
			t.Errorf("last notice = %q", last)
		}
	})
}

func TestModel_TransportClosed(t *testing.T) {
	m, _, _ := newTestModel(nil)

	cause := errors.New("dial ws://relay/ws: connection refused")
	m, cmd := update(m, closedMsg{err: cause})
	if !isQuit(cmd) {
		t.Error("closed transport did not quit")
	}
	if !errors.Is(m.err, cause) {
		t.Errorf("err = %v, want %v", m.err, cause)
	}
}

func TestModel_WaitEvent(t *testing.T) {
	m, sess, ev := newTestModel(nil)
	sess.snap = session.Snapshot{Self: "alice", Log: []protocol.ChatMessage{{Sender: "bob", Text: "hi"}}}

	ev.notifyChange()
	ev.notifyChange()
	if len(ev.changed) != 1 {
		t.Errorf("pending changes = %d, want 1", len(ev.changed))
	}

	msg, ok := m.waitEvent()().(snapshotMsg)
	if !ok || !reflect.DeepEqual(session.Snapshot(msg), sess.snap) {
		t.Errorf("waitEvent() = %+v, want the current snapshot", msg)
	}

	ev.notice("reconnected to %s", "ws://relay/ws")
	if got := m.waitEvent()(); got != noticeMsg("reconnected to ws://relay/ws") {
		t.Errorf("waitEvent() = %#v, want the notice", got)
	}
}
