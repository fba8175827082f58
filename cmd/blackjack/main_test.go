package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/blackjackgym/internal/agent"
	"github.com/lox/blackjackgym/internal/config"
	"github.com/lox/blackjackgym/internal/env"
	"github.com/lox/blackjackgym/internal/randutil"
	"github.com/lox/blackjackgym/internal/statistics"
)

func TestCLIParses(t *testing.T) {
	var cli CLI
	parser, err := kong.New(&cli, kong.Vars{"version": "test"})
	require.NoError(t, err)

	_, err = parser.Parse([]string{"--seed", "7", "eval", "--policy", "stand", "--episodes", "10"})
	require.NoError(t, err)
	require.NotNil(t, cli.Seed)
	assert.Equal(t, int64(7), *cli.Seed)
	assert.Equal(t, "stand", cli.Eval.Policy)
	assert.Equal(t, 10, cli.Eval.Episodes)

	_, err = parser.Parse([]string{"eval", "--policy", "martingale"})
	assert.Error(t, err)
}

func TestGlobalsLoad(t *testing.T) {
	t.Setenv(config.EnvSeed, "")
	seed := int64(12)
	g := Globals{Config: filepath.Join(t.TempDir(), "missing.hcl"), Seed: &seed}
	cfg, err := g.load()
	require.NoError(t, err)
	assert.Equal(t, int64(12), cfg.Environment.Seed)
	assert.Equal(t, 6, cfg.Environment.NumDecks)
}

func TestGlobalsLoadRejectsConflictingAuth(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blackjack.hcl")
	require.NoError(t, os.WriteFile(path, []byte(`server { auth_url = "http://auth.local" }`), 0o644))
	t.Setenv(config.EnvSeed, "")
	t.Setenv(config.EnvAPIKey, "k1")

	_, err := (&Globals{Config: path}).load()
	assert.ErrorContains(t, err, "mutually exclusive")
}

func TestTrainApply(t *testing.T) {
	cfg := config.Default()
	eps := 0.3
	(&TrainCmd{Episodes: 50, Epsilon: &eps, Out: "m.json"}).apply(cfg)
	assert.Equal(t, 50, cfg.Training.Episodes)
	assert.Equal(t, 0.3, cfg.Training.Epsilon)
	assert.Equal(t, "m.json", cfg.Training.CheckpointPath)
	assert.Zero(t, cfg.Training.ProgressEvery, "trainer derives cadence from the overridden episodes")
}

func TestPolicyFactory(t *testing.T) {
	cfg := config.Default()
	ctx := context.Background()
	obs := env.Observation{Player: 14, Dealer: 9}

	for name, want := range map[string]env.Action{
		"threshold": env.Hit,
		"hit":       env.Hit,
		"stand":     env.Stand,
	} {
		f, err := PolicyFlags{Policy: name, StandAt: 17}.factory(cfg, 1)
		require.NoError(t, err, name)
		p, err := f(0)
		require.NoError(t, err)
		a, err := p.Act(ctx, obs)
		require.NoError(t, err)
		assert.Equal(t, want, a, name)
	}

	f, err := PolicyFlags{Policy: "random"}.factory(cfg, 1)
	require.NoError(t, err)
	p0, _ := f(0)
	p1, _ := f(1)
	assert.NotSame(t, p0, p1)

	_, err = PolicyFlags{Policy: "mc"}.factory(cfg, 1)
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "mc.json")
	m := agent.NewMonteCarlo(0, 1)
	require.NoError(t, m.Update([]agent.Transition{{Observation: obs, Action: env.Hit, Reward: env.RewardWin}}))
	require.NoError(t, m.Save(path))
	f, err = PolicyFlags{Policy: "mc", Model: path}.factory(cfg, 1)
	require.NoError(t, err)
	p, _ := f(3)
	a, err := p.Act(ctx, obs)
	require.NoError(t, err)
	assert.Equal(t, env.Hit, a)

	t.Setenv(config.EnvOpenAIKey, "")
	_, err = PolicyFlags{Policy: "llm"}.factory(cfg, 1)
	assert.ErrorContains(t, err, config.EnvOpenAIKey)
}

func TestPolicySeedSeparatesStreams(t *testing.T) {
	assert.Zero(t, policySeed(0))

	for worker := 0; worker < 4; worker++ {
		envSeed := randutil.Derive(7, worker)
		seed := policySeed(envSeed)
		assert.NotEqual(t, envSeed, seed)
		assert.NotEqual(t, randutil.New(envSeed).Uint64(), randutil.New(seed).Uint64())
	}
}

func TestSummary(t *testing.T) {
	s := &statistics.Statistics{}
	s.Add(statistics.EpisodeResult{Reward: 100, Outcome: env.OutcomeWin, PlayerTotal: 20, DealerTotal: 18})
	s.Add(statistics.EpisodeResult{Reward: -100, Outcome: env.OutcomeLose, PlayerTotal: 25, Hits: 2})
	out := summary("threshold", s)
	assert.Contains(t, out, "Policy: threshold")
	assert.Contains(t, out, "50.00%")
	assert.Contains(t, out, "Player busts")
}
