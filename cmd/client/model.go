package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"livechat/internal/app/media"
	"livechat/internal/app/session"
	"livechat/internal/app/view"
)

const (
	rosterWidth   = 24
	noticeLines   = 3
	defaultWidth  = 80
	defaultHeight = 24
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("247"))
	noticeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	selfStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	mediaStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("170")).Underline(true)
	boxStyle    = lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(0, 1)
)

// chatSession is the part of session.Session the UI drives.
type chatSession interface {
	Submit(text string) bool
	Snapshot() session.Snapshot
	Self() string
}

type uploadFunc func(ctx context.Context, path string) (media.Result, error)

type snapshotMsg session.Snapshot

type noticeMsg string

type closedMsg struct{ err error }

type uploadedMsg struct {
	path string
	url  string
	err  error
}

type model struct {
	ctx    context.Context
	server string
	sess   chatSession
	events *events
	upload uploadFunc

	input  textinput.Model
	log    viewport.Model
	view   view.View
	notice []string

	// err is set when the transport gave up.
	err error
}

func newModel(ctx context.Context, server string, charLimit int, sess chatSession, ev *events, upload uploadFunc) model {
	input := textinput.New()
	input.Placeholder = "Say something, or /users, /upload <path>, /quit"
	input.CharLimit = charLimit
	input.Focus()

	m := model{
		ctx:    ctx,
		server: server,
		sess:   sess,
		events: ev,
		upload: upload,
		input:  input,
		log:    viewport.New(0, 0),
	}
	m.resize(defaultWidth, defaultHeight)
	return m
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.waitEvent(), textinput.Blink)
}

// waitEvent blocks until the session changes, a notice arrives, or the
// transport stops.
func (m model) waitEvent() tea.Cmd {
	ev, sess := m.events, m.sess
	return func() tea.Msg {
		select {
		case <-ev.changed:
			return snapshotMsg(sess.Snapshot())
		case n := <-ev.notices:
			return noticeMsg(n)
		case err := <-ev.closed:
			return closedMsg{err: err}
		}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit

		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.log, cmd = m.log.Update(msg)
			return m, cmd

		case tea.KeyEnter:
			line := m.input.Value()
			m.input.Reset()
			return m.handleLine(line)
		}

	case snapshotMsg:
		m.view = view.Project(msg.Roster, msg.Log)
		m.refreshLog()
		return m, m.waitEvent()

	case noticeMsg:
		m.addNotice(string(msg))
		return m, m.waitEvent()

	case closedMsg:
		m.err = msg.err
		if msg.err != nil && !errors.Is(msg.err, context.Canceled) {
			m.addNotice("connection lost: " + msg.err.Error())
		}
		return m, tea.Quit

	case uploadedMsg:
		if msg.err != nil {
			m.addNotice(fmt.Sprintf("upload of %s failed: %v", msg.path, msg.err))
			return m, nil
		}
		m.sess.Submit(msg.url)
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// handleLine runs one line of input: a command or a chat message.
func (m model) handleLine(line string) (tea.Model, tea.Cmd) {
	cmd, arg, _ := strings.Cut(line, " ")

	switch cmd {
	case "":
		if line == "" {
			return m, nil
		}

	case "/quit":
		return m, tea.Quit

	case "/users":
		for _, l := range view.RenderRoster(m.view.Roster) {
			m.addNotice(l)
		}
		return m, nil

	case "/upload":
		path := strings.TrimSpace(arg)
		if path == "" {
			m.addNotice("usage: /upload <path>")
			return m, nil
		}
		m.addNotice("uploading " + path)
		return m, m.uploadCmd(path)
	}

	m.sess.Submit(line)
	return m, nil
}

func (m model) uploadCmd(path string) tea.Cmd {
	ctx, upload := m.ctx, m.upload
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
		defer cancel()

		result, err := upload(ctx, path)
		return uploadedMsg{path: path, url: result.URL, err: err}
	}
}

func (m *model) addNotice(line string) {
	m.notice = append(m.notice, line)
	if len(m.notice) > noticeLines {
		m.notice = m.notice[len(m.notice)-noticeLines:]
	}
}

func (m *model) resize(width, height int) {
	m.input.Width = max(10, width-4)

	// header, notices, input and the box borders
	m.log.Width = max(10, width-rosterWidth-6)
	m.log.Height = max(3, height-noticeLines-5)
	m.refreshLog()
}

// refreshLog redraws the transcript, following the tail unless the user
// scrolled up.
func (m *model) refreshLog() {
	follow := m.log.AtBottom()

	self := m.sess.Self()
	lines := make([]string, 0, len(m.view.Messages))
	for _, row := range m.view.Messages {
		line := view.RenderMessage(row)
		switch {
		case row.Kind == view.MediaRow:
			line = mediaStyle.Render(line)
		case row.Sender == self:
			line = selfStyle.Render(line)
		}
		lines = append(lines, line)
	}
	m.log.SetContent(strings.Join(lines, "\n"))

	if follow {
		m.log.GotoBottom()
	}
}

func (m model) View() string {
	header := headerStyle.Render("livechat") + "  " +
		statusStyle.Render(fmt.Sprintf("%s as %s, %d online", m.server, m.sess.Self(), len(m.view.Roster)))

	roster := strings.Join(view.RenderRoster(m.view.Roster), "\n")

	body := lipgloss.JoinHorizontal(lipgloss.Top,
		boxStyle.Width(m.log.Width+2).Height(m.log.Height).Render(m.log.View()),
		boxStyle.Width(rosterWidth).Height(m.log.Height).Render(roster),
	)

	notices := make([]string, noticeLines)
	copy(notices[noticeLines-len(m.notice):], m.notice)
	for i, n := range notices {
		notices[i] = noticeStyle.Render(n)
	}

	return header + "\n" + body + "\n" + strings.Join(notices, "\n") + "\n" + m.input.View()
}
