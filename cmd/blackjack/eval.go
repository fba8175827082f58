package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"

	"github.com/lox/blackjackgym/cmd/blackjack/shared"
	"github.com/lox/blackjackgym/internal/env"
	"github.com/lox/blackjackgym/internal/randutil"
	"github.com/lox/blackjackgym/internal/statistics"
	"github.com/lox/blackjackgym/internal/training"
)

type EvalCmd struct {
	PolicyFlags

	Episodes int    `help:"Episodes to play (overrides training.eval_episodes)"`
	Workers  int    `help:"Parallel workers (overrides training.workers)"`
	Events   string `type:"path" help:"Append a JSON summary event to this file"`
}

func (c *EvalCmd) Run(g *Globals) error {
	logger, err := g.logger()
	if err != nil {
		return err
	}
	cfg, err := g.load()
	if err != nil {
		return err
	}
	if c.Episodes > 0 {
		cfg.Training.EvalEpisodes = c.Episodes
	}
	if c.Workers > 0 {
		cfg.Training.Workers = c.Workers
	}

	seed := randutil.Resolve(cfg.Environment.Seed)
	newPolicy, err := c.factory(cfg, seed)
	if err != nil {
		return err
	}

	ctx := shared.SetupSignalHandler(logger)
	base := envConfig(cfg, logger)
	newEnv := func(s int64) (*env.Environment, error) {
		ec := base
		ec.Seed = s
		return env.New(ec)
	}

	logger.Info("evaluating",
		"policy", c.Policy,
		"episodes", cfg.Training.EvalEpisodes,
		"workers", cfg.Training.Workers,
		"seed", seed)
	stats, err := training.Evaluate(ctx, newEnv, newPolicy, training.EvalOptions{
		Episodes: cfg.Training.EvalEpisodes,
		Workers:  cfg.Training.Workers,
		Seed:     seed,
	})
	if err != nil {
		return err
	}

	events, err := shared.OpenEventLog(c.Events)
	if err != nil {
		return err
	}
	defer func() { _ = events.Close() }()
	events.Evaluation(c.Policy, stats)

	fmt.Fprint(os.Stdout, summary(c.Policy, stats))
	return nil
}

var (
	summaryTitle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	summaryLabel = lipgloss.NewStyle().Width(14).Foreground(lipgloss.Color("#96CEB4"))
)

func summary(policy string, s *statistics.Statistics) string {
	lo, hi := s.ConfidenceInterval95()
	rows := [][2]string{
		{"Episodes", fmt.Sprintf("%d", s.Episodes)},
		{"Mean reward", fmt.Sprintf("%.2f ± %.2f (95%% CI %.2f to %.2f)", s.Mean(), 1.96*s.StdError(), lo, hi)},
		{"Win", fmt.Sprintf("%.2f%%", 100*s.WinRate())},
		{"Lose", fmt.Sprintf("%.2f%%", 100*s.LossRate())},
		{"Tie", fmt.Sprintf("%.2f%%", 100*s.TieRate())},
		{"Player busts", fmt.Sprintf("%d", s.PlayerBusts)},
		{"Dealer busts", fmt.Sprintf("%d", s.DealerBusts)},
		{"Hits/episode", fmt.Sprintf("%.2f", float64(s.TotalHits)/float64(max(s.Episodes, 1)))},
	}
	out := summaryTitle.Render("Policy: "+policy) + "\n"
	for _, r := range rows {
		out += summaryLabel.Render(r[0]) + r[1] + "\n"
	}
	return out
}
