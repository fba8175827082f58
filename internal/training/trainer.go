package training

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/blackjackgym/internal/agent"
	"github.com/lox/blackjackgym/internal/env"
	"github.com/lox/blackjackgym/internal/statistics"
	"github.com/lox/blackjackgym/internal/store"
)

// Config controls a training run
type Config struct {
	Episodes        int
	Epsilon         float64
	EpsilonDecay    float64 // multiplied into epsilon after every episode; 0 means 1
	MinEpsilon      float64
	ProgressEvery   int // 0 means Episodes/100
	CheckpointPath  string
	CheckpointEvery int
}

// Validate checks the configuration
func (c Config) Validate() error {
	if c.Episodes <= 0 {
		return errors.New("episodes must be positive")
	}
	if c.Epsilon < 0 || c.Epsilon > 1 {
		return fmt.Errorf("epsilon must be in [0, 1], got %v", c.Epsilon)
	}
	if c.EpsilonDecay < 0 || c.EpsilonDecay > 1 {
		return fmt.Errorf("epsilon decay must be in [0, 1], got %v", c.EpsilonDecay)
	}
	if c.MinEpsilon < 0 || c.MinEpsilon > 1 {
		return fmt.Errorf("min epsilon must be in [0, 1], got %v", c.MinEpsilon)
	}
	if c.ProgressEvery < 0 || c.CheckpointEvery < 0 {
		return errors.New("progress and checkpoint cadence cannot be negative")
	}
	return nil
}

// Progress is reported periodically while training
type Progress struct {
	Episode int
	Epsilon float64
	Stats   statistics.Statistics // results since the previous report
	Elapsed time.Duration
}

// Trainer runs first-visit Monte Carlo control on one environment
type Trainer struct {
	cfg      Config
	env      *env.Environment
	learner  *agent.MonteCarlo
	clock    quartz.Clock
	logger   *log.Logger
	recorder store.Recorder

	episode int
	window  statistics.Statistics
}

// Option customises a Trainer
type Option func(*Trainer)

// WithClock sets the clock used for elapsed time
func WithClock(c quartz.Clock) Option {
	return func(t *Trainer) { t.clock = c }
}

// WithLogger sets the logger
func WithLogger(l *log.Logger) Option {
	return func(t *Trainer) { t.logger = l }
}

// WithRecorder records every finished episode
func WithRecorder(r store.Recorder) Option {
	return func(t *Trainer) { t.recorder = r }
}

// NewTrainer builds a trainer. The learner's epsilon is set from cfg.
func NewTrainer(e *env.Environment, learner *agent.MonteCarlo, cfg Config, opts ...Option) (*Trainer, error) {
	if e == nil || learner == nil {
		return nil, errors.New("environment and learner are required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.EpsilonDecay == 0 {
		cfg.EpsilonDecay = 1
	}
	if cfg.ProgressEvery == 0 {
		cfg.ProgressEvery = max(cfg.Episodes/100, 1)
	}

	t := &Trainer{
		cfg:      cfg,
		env:      e,
		learner:  learner,
		clock:    quartz.NewReal(),
		logger:   log.New(io.Discard),
		recorder: store.Nop{},
	}
	for _, opt := range opts {
		opt(t)
	}
	t.logger = t.logger.WithPrefix("trainer")
	learner.SetEpsilon(cfg.Epsilon)
	return t, nil
}

// Learner returns the table being trained
func (t *Trainer) Learner() *agent.MonteCarlo { return t.learner }

// Episode returns the number of episodes completed by this trainer
func (t *Trainer) Episode() int { return t.episode }

// Run plays the configured number of episodes, updating the learner after
// each one. progress may be nil.
func (t *Trainer) Run(ctx context.Context, progress func(Progress)) error {
	start := t.clock.Now()
	t.logger.Info("training started",
		"episodes", t.cfg.Episodes,
		"epsilon", t.learner.Epsilon(),
		"decay", t.cfg.EpsilonDecay)

	for t.episode < t.cfg.Episodes {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		ep, err := PlayEpisode(ctx, t.env, t.learner)
		if err != nil {
			return fmt.Errorf("episode %d: %w", t.episode+1, err)
		}
		if err := t.learner.Update(ep.Transitions); err != nil {
			return fmt.Errorf("episode %d: update: %w", t.episode+1, err)
		}
		t.episode++
		t.window.Add(ep.Result)

		if err := t.recorder.Record(ctx, store.EpisodeRecord{
			Episode:     int64(t.episode),
			Outcome:     ep.Result.Outcome.String(),
			Reward:      ep.Result.Reward,
			PlayerTotal: ep.Result.PlayerTotal,
			DealerTotal: ep.Result.DealerTotal,
			Upcard:      ep.Upcard,
			Hits:        ep.Result.Hits,
			Epsilon:     t.learner.Epsilon(),
		}); err != nil {
			return fmt.Errorf("record episode %d: %w", t.episode, err)
		}

		t.learner.SetEpsilon(math.Max(t.cfg.MinEpsilon, t.learner.Epsilon()*t.cfg.EpsilonDecay))

		if t.cfg.CheckpointPath != "" && t.cfg.CheckpointEvery > 0 && t.episode%t.cfg.CheckpointEvery == 0 {
			if err := t.checkpoint(); err != nil {
				return err
			}
		}

		if t.episode%t.cfg.ProgressEvery == 0 || t.episode == t.cfg.Episodes {
			t.report(progress, start)
		}
	}

	if t.cfg.CheckpointPath != "" {
		if err := t.checkpoint(); err != nil {
			return err
		}
	}
	t.logger.Info("training finished", "episodes", t.episode, "elapsed", t.clock.Since(start))
	return nil
}

func (t *Trainer) report(progress func(Progress), start time.Time) {
	if t.window.Episodes == 0 {
		return
	}
	p := Progress{
		Episode: t.episode,
		Epsilon: t.learner.Epsilon(),
		Stats:   t.window,
		Elapsed: t.clock.Since(start),
	}
	t.logger.Debug("progress",
		"episode", p.Episode,
		"mean", p.Stats.Mean(),
		"win_rate", p.Stats.WinRate(),
		"epsilon", p.Epsilon)
	if progress != nil {
		progress(p)
	}
	t.window = statistics.Statistics{}
}

func (t *Trainer) checkpoint() error {
	if err := t.learner.Save(t.cfg.CheckpointPath); err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	t.logger.Debug("checkpoint saved", "path", t.cfg.CheckpointPath, "episode", t.episode)
	return nil
}
