/*
Package view maps session state onto rows a presentation layer can draw.

It derives avatar URLs from names and decides per message whether the text is
shown as-is or as an embedded image.
*/
package view

import (
	"net/url"
	"strings"

	"livechat/internal/app/protocol"
	"livechat/internal/app/user"
)

const (
	avatarURLPrefix = "https://avatars.dicebear.com/api/adventurer-neutral/"
	avatarURLSuffix = ".svg"

	// MediaSuffix marks a message text as an image link.
	MediaSuffix = ".gif"

	// FallbackAvatar is shown for a message whose sender is not in the roster.
	FallbackAvatar = "https://avatars.dicebear.com/api/identicon/unknown.svg"
)

// RowKind tells how a message row is drawn.
type RowKind int

const (
	TextRow RowKind = iota
	MediaRow
)

// String returns the name of the kind.
func (k RowKind) String() string {
	if k == MediaRow {
		return "media"
	}
	return "text"
}

// RosterRow is one entry of the online list.
type RosterRow struct {
	Name   string
	Avatar string
}

// MessageRow is one entry of the message log.
// MediaURL is set for MediaRow, Text for TextRow.
type MessageRow struct {
	Kind     RowKind
	Sender   string
	Avatar   string
	Text     string
	MediaURL string
}

// View is everything the presentation layer draws.
type View struct {
	Roster   []RosterRow
	Messages []MessageRow
}

// AvatarURL returns the avatar image for name. The same name always yields
// the same URL; the name is path-escaped.
func AvatarURL(name string) string {
	return avatarURLPrefix + url.PathEscape(name) + avatarURLSuffix
}

// NewProfile returns the roster entry for name.
func NewProfile(name string) user.Profile {
	return user.Profile{Name: name, Avatar: AvatarURL(name)}
}

// Classify returns MediaRow when the text ends with MediaSuffix (case-sensitive).
func Classify(m protocol.ChatMessage) RowKind {
	if strings.HasSuffix(m.Text, MediaSuffix) {
		return MediaRow
	}
	return TextRow
}

// Project builds the view for a roster and message log. A message takes its
// avatar from the first roster entry with the sender's name, or
// FallbackAvatar when the sender is not online.
func Project(roster []user.Profile, log []protocol.ChatMessage) View {
	v := View{
		Roster:   make([]RosterRow, 0, len(roster)),
		Messages: make([]MessageRow, 0, len(log)),
	}

	avatars := make(map[string]string, len(roster))
	for _, p := range roster {
		v.Roster = append(v.Roster, RosterRow{Name: p.Name, Avatar: p.Avatar})
		if _, seen := avatars[p.Name]; !seen {
			avatars[p.Name] = p.Avatar
		}
	}

	for _, m := range log {
		avatar, ok := avatars[m.Sender]
		if !ok {
			avatar = FallbackAvatar
		}
		v.Messages = append(v.Messages, projectMessage(m, avatar))
	}

	return v
}

func projectMessage(m protocol.ChatMessage, avatar string) MessageRow {
	row := MessageRow{
		Kind:   Classify(m),
		Sender: m.Sender,
		Avatar: avatar,
	}
	if row.Kind == MediaRow {
		row.MediaURL = m.Text
	} else {
		row.Text = m.Text
	}
	return row
}
