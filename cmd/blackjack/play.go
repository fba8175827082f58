package main

import (
	"io"

	"github.com/charmbracelet/log"

	"github.com/lox/blackjackgym/internal/agent"
	"github.com/lox/blackjackgym/internal/env"
	"github.com/lox/blackjackgym/internal/randutil"
	"github.com/lox/blackjackgym/internal/tui"
)

type PlayCmd struct {
	Advisor string `type:"path" help:"Show hints from a trained Monte Carlo model"`
}

func (c *PlayCmd) Run(g *Globals) error {
	// logs would corrupt the full-screen view
	logger := log.New(io.Discard)

	cfg, err := g.load()
	if err != nil {
		return err
	}
	e, err := env.New(envConfig(cfg, logger))
	if err != nil {
		return err
	}

	var opts []tui.Option
	if c.Advisor != "" {
		m, err := agent.LoadMonteCarlo(c.Advisor, randutil.Resolve(cfg.Environment.Seed))
		if err != nil {
			return err
		}
		opts = append(opts, tui.WithAdvisor(m.Greedy()))
	}
	return tui.Run(e, logger, opts...)
}
