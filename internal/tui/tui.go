// Package tui is an interactive blackjack table for the terminal.
package tui

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/lox/blackjackgym/internal/agent"
	"github.com/lox/blackjackgym/internal/deck"
	"github.com/lox/blackjackgym/internal/env"
)

const maxLogLines = 8

type keyMap struct {
	Hit   key.Binding
	Stand key.Binding
	Deal  key.Binding
	Quit  key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Hit, k.Stand, k.Deal, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

var defaultKeys = keyMap{
	Hit: key.NewBinding(
		key.WithKeys("h"),
		key.WithHelp("h", "hit"),
	),
	Stand: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "stand"),
	),
	Deal: key.NewBinding(
		key.WithKeys("n"),
		key.WithHelp("n", "new hand"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// Model is the bubbletea model for one table
type Model struct {
	env     *env.Environment
	logger  *log.Logger
	advisor agent.Policy

	keys keyMap
	help help.Model

	obs      env.Observation
	result   *env.StepResult
	status   string
	gameLog  []string
	hands    int
	width    int
	quitting bool
}

// Option configures a Model
type Option func(*Model)

// WithAdvisor shows the policy's suggested action on every decision
func WithAdvisor(p agent.Policy) Option {
	return func(m *Model) { m.advisor = p }
}

// New builds a model and deals the first hand
func New(e *env.Environment, logger *log.Logger, opts ...Option) *Model {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	m := &Model{
		env:    e,
		logger: logger.WithPrefix("tui"),
		keys:   defaultKeys,
		help:   help.New(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.deal()
	return m
}

// Init implements tea.Model
func (m *Model) Init() tea.Cmd { return nil }

// Update implements tea.Model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Hit):
			m.step(env.Hit)
		case key.Matches(msg, m.keys.Stand):
			m.step(env.Stand)
		case key.Matches(msg, m.keys.Deal):
			m.deal()
		}
	}
	return m, nil
}

func (m *Model) deal() {
	obs, _, err := m.env.Reset()
	if err != nil {
		m.status = LoseStyle.Render("deal failed: " + err.Error())
		m.logger.Error("reset failed", "error", err)
		return
	}
	m.obs = obs
	m.result = nil
	m.hands++
	m.status = ""
}

func (m *Model) step(a env.Action) {
	if m.env.State() != env.InEpisode {
		m.status = InfoStyle.Render("hand is over, press n to deal")
		return
	}
	res, err := m.env.Step(a)
	if err != nil {
		m.status = LoseStyle.Render(err.Error())
		m.logger.Warn("step failed", "action", a, "error", err)
		return
	}
	m.obs = res.Observation
	if !res.Done {
		return
	}
	m.result = &res
	line := fmt.Sprintf("hand %d: %s %d vs %s (%+d)",
		m.hands, res.Info.Outcome, m.env.PlayerTotal(), dealerSummary(res.Info), res.Reward)
	m.addLog(line)
	m.status = outcomeStyle(res.Info.Outcome).Render(strings.ToUpper(res.Info.Outcome.String()))
}

func (m *Model) addLog(line string) {
	m.gameLog = append(m.gameLog, line)
	if len(m.gameLog) > maxLogLines {
		m.gameLog = m.gameLog[len(m.gameLog)-maxLogLines:]
	}
}

func dealerSummary(info env.Info) string {
	if info.DealerTotal == 0 {
		return "dealer did not play"
	}
	return fmt.Sprintf("dealer %d", info.DealerTotal)
}

func outcomeStyle(o env.Outcome) lipgloss.Style {
	switch o {
	case env.OutcomeWin:
		return WinStyle
	case env.OutcomeLose:
		return LoseStyle
	default:
		return TieStyle
	}
}

// View implements tea.Model
func (m *Model) View() string {
	if m.quitting {
		return fmt.Sprintf("Net result over %d hands: %+d\n", m.hands, m.env.Lifetime())
	}

	var b strings.Builder
	b.WriteString(HeaderStyle.Render("Blackjack"))
	b.WriteString("\n\n")

	var table strings.Builder
	table.WriteString(LabelStyle.Render("Dealer: "))
	table.WriteString(m.dealerCards())
	table.WriteString("\n")
	table.WriteString(LabelStyle.Render("Player: "))
	table.WriteString(formatCards(m.env.PlayerCards()))
	table.WriteString(fmt.Sprintf("  (%d)", m.env.PlayerTotal()))
	table.WriteString("\n")
	table.WriteString(LabelStyle.Render("Balance: "))
	table.WriteString(fmt.Sprintf("%d", m.env.Balance()))
	table.WriteString(InfoStyle.Render(fmt.Sprintf("  lifetime %+d", m.env.Lifetime())))
	b.WriteString(TableStyle.Render(table.String()))
	b.WriteString("\n")

	if hint := m.hint(); hint != "" {
		b.WriteString(HintStyle.Render(hint))
		b.WriteString("\n")
	}
	if m.status != "" {
		b.WriteString(m.status)
		b.WriteString("\n")
	}
	if len(m.gameLog) > 0 {
		b.WriteString("\n")
		for _, line := range m.gameLog {
			b.WriteString(InfoStyle.Render(line))
			b.WriteString("\n")
		}
	}
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	b.WriteString("\n")
	return b.String()
}

// dealerCards shows only the upcard until the hand is resolved
func (m *Model) dealerCards() string {
	cards := m.env.DealerCards()
	if len(cards) == 0 {
		return ""
	}
	if m.env.State() == env.EpisodeDone {
		return formatCards(cards)
	}
	return "[" + cardStyle(cards[0]).Render(cards[0].Short()) + " " + HiddenCardStyle.Render("??") + "]" +
		fmt.Sprintf("  (%d)", m.obs.UpcardTotal())
}

func (m *Model) hint() string {
	if m.advisor == nil || m.env.State() != env.InEpisode {
		return ""
	}
	a, err := m.advisor.Act(context.Background(), m.obs)
	if err != nil {
		return ""
	}
	return "advisor: " + a.String()
}

func cardStyle(c deck.Card) lipgloss.Style {
	if c.IsRed() {
		return RedCardStyle
	}
	return BlackCardStyle
}

func formatCards(cards []deck.Card) string {
	if len(cards) == 0 {
		return ""
	}
	formatted := make([]string, len(cards))
	for i, c := range cards {
		formatted[i] = cardStyle(c).Render(c.Short())
	}
	return "[" + strings.Join(formatted, " ") + "]"
}

// Hands returns the number of hands dealt
func (m *Model) Hands() int { return m.hands }

// Run starts the interactive program on the terminal
func Run(e *env.Environment, logger *log.Logger, opts ...Option) error {
	_, err := tea.NewProgram(New(e, logger, opts...)).Run()
	return err
}
