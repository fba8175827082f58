package training

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/lox/blackjackgym/internal/agent"
	"github.com/lox/blackjackgym/internal/env"
	"github.com/lox/blackjackgym/internal/randutil"
	"github.com/lox/blackjackgym/internal/statistics"
)

// EnvFactory builds the environment a worker plays on
type EnvFactory func(seed int64) (*env.Environment, error)

// PolicyFactory builds the policy a worker uses. Policies holding their own
// random source must not be shared between workers.
type PolicyFactory func(worker int) (agent.Policy, error)

// EvalOptions controls Evaluate
type EvalOptions struct {
	Episodes int
	Workers  int
	Seed     int64 // 0 picks a time-based seed
}

// Evaluate plays opts.Episodes episodes split across opts.Workers goroutines.
// Each worker owns its environment and shoe.
func Evaluate(ctx context.Context, newEnv EnvFactory, newPolicy PolicyFactory, opts EvalOptions) (*statistics.Statistics, error) {
	if opts.Episodes <= 0 {
		return nil, errors.New("episodes must be positive")
	}
	workers := max(opts.Workers, 1)
	workers = min(workers, opts.Episodes)
	seed := randutil.Resolve(opts.Seed)

	results := make([]statistics.Statistics, workers)
	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		n := opts.Episodes / workers
		if w < opts.Episodes%workers {
			n++
		}
		g.Go(func() error {
			workerSeed := randutil.Derive(seed, w)
			e, err := newEnv(workerSeed)
			if err != nil {
				return fmt.Errorf("worker %d: %w", w, err)
			}
			p, err := newPolicy(w)
			if err != nil {
				return fmt.Errorf("worker %d: %w", w, err)
			}
			for i := 0; i < n; i++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				ep, err := PlayEpisode(ctx, e, p)
				if err != nil {
					return fmt.Errorf("worker %d: %w", w, err)
				}
				ep.Result.Seed = workerSeed
				results[w].Add(ep.Result)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := &statistics.Statistics{}
	for i := range results {
		total.Merge(&results[i])
	}
	return total, nil
}

// SharedPolicy returns a PolicyFactory handing every worker p. Only use it
// with policies that are safe for concurrent use.
func SharedPolicy(p agent.Policy) PolicyFactory {
	return func(int) (agent.Policy, error) { return p, nil }
}
