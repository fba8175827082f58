package env

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// RenderOptions tweaks Render output
type RenderOptions struct {
	// NoColor forces plain ASCII output regardless of the writer
	NoColor bool
}

// Render writes a diagnostic dump of the current episode to w. It never
// changes simulation state.
func (e *Environment) Render(w io.Writer) error {
	return e.RenderWithOptions(w, RenderOptions{})
}

// RenderWithOptions is Render with explicit options
func (e *Environment) RenderWithOptions(w io.Writer, opts RenderOptions) error {
	r := lipgloss.NewRenderer(w)
	if opts.NoColor {
		r.SetColorProfile(termenv.Ascii)
	}
	label := r.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	value := r.NewStyle().Foreground(lipgloss.Color("#FAFAFA"))

	ranks := make([]string, len(e.player))
	suits := make([]string, len(e.player))
	for i, c := range e.player {
		ranks[i] = c.Rank.String()
		suits[i] = c.Suit.String()
	}

	action := "none"
	if a, ok := e.LastAction(); ok {
		action = a.String()
	}

	rows := [][2]string{
		{"Balance:", fmt.Sprintf("%d", e.balance)},
		{"Player Hand:", "[" + strings.Join(ranks, " ") + "]"},
		{"Player Suits:", "[" + strings.Join(suits, " ") + "]"},
		{"Player Action:", action},
		{"Player Value:", fmt.Sprintf("%d", e.playerTotal)},
		{"Dealer Upcard:", fmt.Sprintf("%d", e.upcardTotal())},
		{"Done:", fmt.Sprintf("%t", e.state == EpisodeDone)},
	}

	var b strings.Builder
	for _, row := range rows {
		b.WriteString(label.Render(row[0]))
		b.WriteString(" ")
		b.WriteString(value.Render(row[1]))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	_, err := io.WriteString(w, b.String())
	return err
}
