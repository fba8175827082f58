package main

import (
	"fmt"
	"os"

	"github.com/lox/blackjackgym/internal/agent"
	"github.com/lox/blackjackgym/internal/config"
	"github.com/lox/blackjackgym/internal/env"
	"github.com/lox/blackjackgym/internal/randutil"
	"github.com/lox/blackjackgym/internal/training"
)

// PolicyFlags select the policy for eval and play
type PolicyFlags struct {
	Policy   string `default:"threshold" enum:"threshold,random,hit,stand,mc,llm" help:"Policy to use (threshold, random, hit, stand, mc, llm)"`
	Model    string `type:"path" help:"Monte Carlo model file for --policy=mc (defaults to training.checkpoint_path)"`
	StandAt  int    `default:"17" help:"Total the threshold policy stands on"`
	LLMModel string `name:"llm-model" default:"gpt-4o-mini" help:"Chat model for --policy=llm"`
}

// policyStream keeps policy randomness off the stream that shuffles the shoe
const policyStream = -1

// policySeed returns the seed for a policy playing on an environment seeded
// with envSeed. Zero stays zero so both fall back to time-based seeds.
func policySeed(envSeed int64) int64 {
	return randutil.Derive(envSeed, policyStream)
}

// factory returns a PolicyFactory. Stateful policies get one instance per
// worker; the greedy table and LLM client are shared.
func (f PolicyFlags) factory(cfg *config.Config, seed int64) (training.PolicyFactory, error) {
	switch f.Policy {
	case "threshold":
		return training.SharedPolicy(agent.Threshold{StandAt: f.StandAt}), nil
	case "hit":
		return training.SharedPolicy(agent.Constant(env.Hit)), nil
	case "stand":
		return training.SharedPolicy(agent.Constant(env.Stand)), nil
	case "random":
		return func(worker int) (agent.Policy, error) {
			return agent.NewRandom(policySeed(randutil.Derive(seed, worker))), nil
		}, nil
	case "mc":
		path := f.Model
		if path == "" {
			path = cfg.Training.CheckpointPath
		}
		if path == "" {
			return nil, fmt.Errorf("--model is required for the mc policy")
		}
		m, err := agent.LoadMonteCarlo(path, policySeed(seed))
		if err != nil {
			return nil, fmt.Errorf("load model: %w", err)
		}
		return training.SharedPolicy(m.Greedy()), nil
	case "llm":
		key := os.Getenv(config.EnvOpenAIKey)
		if key == "" {
			return nil, fmt.Errorf("%s must be set for the llm policy", config.EnvOpenAIKey)
		}
		return training.SharedPolicy(agent.NewLLM(key, f.LLMModel)), nil
	default:
		return nil, fmt.Errorf("unknown policy %q", f.Policy)
	}
}
