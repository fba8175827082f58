package main

import (
	"os"

	"github.com/charmbracelet/log"

	"github.com/lox/blackjackgym/cmd/blackjack/shared"
	"github.com/lox/blackjackgym/internal/config"
	"github.com/lox/blackjackgym/internal/env"
)

// Globals are flags shared by every command
type Globals struct {
	Config    string `short:"c" default:"blackjack.hcl" type:"path" help:"HCL config file (ignored if missing)"`
	Debug     bool   `help:"Enable debug logging"`
	LogFormat string `default:"text" enum:"text,json" help:"Log output format (text, json)"`
	Seed      *int64 `help:"Deterministic seed, overrides config and BLACKJACK_SEED"`
}

func (g *Globals) logger() (*log.Logger, error) {
	return shared.SetupLogger(g.Debug, g.LogFormat)
}

// load resolves the config file, then the environment, then flags
func (g *Globals) load() (*config.Config, error) {
	cfg, err := config.Load(g.Config)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if g.Seed != nil {
		cfg.Environment.Seed = *g.Seed
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func envConfig(cfg *config.Config, logger *log.Logger) env.Config {
	return env.Config{
		NumDecks:       cfg.Environment.NumDecks,
		InitialBalance: cfg.Environment.InitialBalance,
		Seed:           cfg.Environment.Seed,
		Logger:         logger,
	}
}
