package view

import "fmt"

// RenderMessage formats a message row as one terminal line.
func RenderMessage(row MessageRow) string {
	if row.Kind == MediaRow {
		return fmt.Sprintf("[%s] <image> %s", row.Sender, row.MediaURL)
	}
	return fmt.Sprintf("[%s] %s", row.Sender, row.Text)
}

// RenderRoster formats the online list as terminal lines.
func RenderRoster(rows []RosterRow) []string {
	lines := make([]string, 0, len(rows)+1)
	lines = append(lines, fmt.Sprintf("Online Users (%d)", len(rows)))
	for _, r := range rows {
		lines = append(lines, "  "+r.Name)
	}
	return lines
}

// Render formats the whole view: roster first, then every message.
func Render(v View) []string {
	lines := RenderRoster(v.Roster)
	for _, m := range v.Messages {
		lines = append(lines, RenderMessage(m))
	}
	return lines
}
