// Package training runs blackjack episodes against policies: the Monte Carlo
// training loop and the parallel evaluator.
package training

import (
	"context"
	"fmt"

	"github.com/lox/blackjackgym/internal/agent"
	"github.com/lox/blackjackgym/internal/env"
	"github.com/lox/blackjackgym/internal/statistics"
)

// Episode is one played episode
type Episode struct {
	Transitions []agent.Transition
	Result      statistics.EpisodeResult
	Upcard      int
}

// PlayEpisode resets e and lets p act until the episode ends
func PlayEpisode(ctx context.Context, e *env.Environment, p agent.Policy) (Episode, error) {
	obs, _, err := e.Reset()
	if err != nil {
		return Episode{}, fmt.Errorf("reset: %w", err)
	}

	ep := Episode{Upcard: obs.UpcardTotal()}
	for {
		action, err := p.Act(ctx, obs)
		if err != nil {
			return ep, fmt.Errorf("policy: %w", err)
		}
		res, err := e.Step(action)
		if err != nil {
			return ep, err
		}
		if action == env.Hit {
			ep.Result.Hits++
		}
		ep.Transitions = append(ep.Transitions, agent.Transition{
			Observation: obs,
			Action:      action,
			Reward:      res.Reward,
		})
		if res.Done {
			ep.Result.Reward = res.Reward
			ep.Result.Outcome = res.Info.Outcome
			ep.Result.PlayerTotal = e.PlayerTotal()
			ep.Result.DealerTotal = res.Info.DealerTotal
			return ep, nil
		}
		obs = res.Observation
	}
}
