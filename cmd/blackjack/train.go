package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"github.com/lox/blackjackgym/cmd/blackjack/shared"
	"github.com/lox/blackjackgym/internal/agent"
	"github.com/lox/blackjackgym/internal/config"
	"github.com/lox/blackjackgym/internal/env"
	"github.com/lox/blackjackgym/internal/store"
	"github.com/lox/blackjackgym/internal/training"
)

type TrainCmd struct {
	Episodes int      `help:"Episodes to play (overrides training.episodes)"`
	Epsilon  *float64 `help:"Starting exploration rate (overrides training.epsilon)"`
	Out      string   `short:"o" type:"path" help:"Model output path (overrides training.checkpoint_path)"`
	Resume   bool     `help:"Continue from the model at the output path if it exists"`
	Events   string   `type:"path" help:"Append JSON progress events to this file"`
	Record   bool     `help:"Record every episode to the database in store.database_url"`
}

func (c *TrainCmd) Run(g *Globals) error {
	logger, err := g.logger()
	if err != nil {
		return err
	}
	cfg, err := g.load()
	if err != nil {
		return err
	}
	c.apply(cfg)
	tc := cfg.Training
	if tc.CheckpointPath == "" {
		return errors.New("no model path: set --out or training.checkpoint_path")
	}

	ctx := shared.SetupSignalHandler(logger)

	e, err := env.New(envConfig(cfg, logger))
	if err != nil {
		return err
	}
	learner, err := c.learner(tc.CheckpointPath, tc.Epsilon, policySeed(cfg.Environment.Seed), logger)
	if err != nil {
		return err
	}

	events, err := shared.OpenEventLog(c.Events)
	if err != nil {
		return fmt.Errorf("open event log: %w", err)
	}
	defer func() { _ = events.Close() }()

	recorder, cleanup, err := c.recorder(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	trainer, err := training.NewTrainer(e, learner, training.Config{
		Episodes:        tc.Episodes,
		Epsilon:         tc.Epsilon,
		EpsilonDecay:    tc.EpsilonDecay,
		MinEpsilon:      tc.MinEpsilon,
		ProgressEvery:   tc.ProgressEvery,
		CheckpointPath:  tc.CheckpointPath,
		CheckpointEvery: tc.CheckpointEvery,
	}, training.WithLogger(logger), training.WithRecorder(recorder))
	if err != nil {
		return err
	}

	runErr := trainer.Run(ctx, func(p training.Progress) {
		logger.Info("progress",
			"episode", p.Episode,
			"mean", fmt.Sprintf("%.2f", p.Stats.Mean()),
			"win_rate", fmt.Sprintf("%.3f", p.Stats.WinRate()),
			"epsilon", fmt.Sprintf("%.4f", p.Epsilon),
			"elapsed", p.Elapsed.Round(time.Millisecond))
		events.Progress(p)
	})
	if closeErr := recorder.Close(context.WithoutCancel(ctx)); closeErr != nil {
		logger.Error("failed to close recorder", "error", closeErr)
	}
	if errors.Is(runErr, context.Canceled) {
		logger.Warn("training interrupted, saving model", "episodes", trainer.Episode())
		return learner.Save(tc.CheckpointPath)
	}
	if runErr != nil {
		return runErr
	}

	logger.Info("model saved", "path", tc.CheckpointPath, "episodes", learner.Episodes())
	return nil
}

func (c *TrainCmd) apply(cfg *config.Config) {
	if c.Episodes > 0 {
		cfg.Training.Episodes = c.Episodes
	}
	if c.Epsilon != nil {
		cfg.Training.Epsilon = *c.Epsilon
	}
	if c.Out != "" {
		cfg.Training.CheckpointPath = c.Out
	}
}

func (c *TrainCmd) learner(path string, epsilon float64, seed int64, logger *log.Logger) (*agent.MonteCarlo, error) {
	if c.Resume {
		m, err := agent.LoadMonteCarlo(path, seed)
		switch {
		case err == nil:
			logger.Info("resuming model", "path", path, "episodes", m.Episodes())
			return m, nil
		case !errors.Is(err, os.ErrNotExist):
			return nil, fmt.Errorf("load model: %w", err)
		}
	}
	return agent.NewMonteCarlo(epsilon, seed), nil
}

func (c *TrainCmd) recorder(ctx context.Context, cfg *config.Config, logger *log.Logger) (store.Recorder, func(), error) {
	if !c.Record {
		return store.Nop{}, func() {}, nil
	}
	if cfg.Store.DatabaseURL == "" {
		return nil, nil, fmt.Errorf("--record needs store.database_url or %s", config.EnvDatabaseURL)
	}

	db, err := store.Open(ctx, cfg.Store.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	if err := store.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}
	run, err := db.StartRun(ctx, store.Run{
		Name:     "train",
		Policy:   "montecarlo",
		Seed:     cfg.Environment.Seed,
		NumDecks: cfg.Environment.NumDecks,
	})
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	logger.Info("recording episodes", "run", run.RunID())
	return run, db.Close, nil
}
