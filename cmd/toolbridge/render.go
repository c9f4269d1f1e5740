package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"toolbridge/internal/tools"
)

const outputPreviewWidth = 96

var (
	toolStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	dimStyle   = lipgloss.NewStyle().Faint(true)
	replyStyle = lipgloss.NewStyle().Bold(true)
)

type renderer struct {
	out io.Writer
}

// toolEvent prints one line per started or completed call.
func (r renderer) toolEvent(ev tools.ToolEvent) {
	res := ev.Result
	switch ev.Type {
	case tools.EventStarted:
		fmt.Fprintf(r.out, "%s %s %s\n", dimStyle.Render("→"), toolStyle.Render(res.Name), dimStyle.Render("#"+res.ID))
	case tools.EventCompleted:
		if res.OK() {
			fmt.Fprintf(r.out, "%s %s %s %s\n", okStyle.Render("✓"), toolStyle.Render(res.Name),
				dimStyle.Render(res.Duration.Round(time.Millisecond).String()), preview(string(res.Output)))
			return
		}
		fmt.Fprintf(r.out, "%s %s %s %s\n", errStyle.Render("✗"), toolStyle.Render(res.Name),
			errStyle.Render(string(res.Kind)), preview(res.Error))
	}
}

func (r renderer) reply(text string) {
	fmt.Fprintln(r.out, replyStyle.Render(strings.TrimSpace(text)))
}

func (r renderer) session(id string) {
	fmt.Fprintln(r.out, dimStyle.Render("session "+id))
}

func preview(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	return runewidth.Truncate(text, outputPreviewWidth, "...")
}
