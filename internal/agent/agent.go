// Package agent holds policies that choose blackjack actions from
// environment observations.
package agent

import (
	"context"
	"errors"
	"fmt"
	rand "math/rand/v2"

	"github.com/lox/blackjackgym/internal/env"
	"github.com/lox/blackjackgym/internal/randutil"
)

// ErrObservationRange is returned when an observation falls outside the
// environment's observation space
var ErrObservationRange = errors.New("observation out of range")

// Policy picks an action for an observation
type Policy interface {
	Act(ctx context.Context, obs env.Observation) (env.Action, error)
}

// Transition is one step of an episode as seen by a learner
type Transition struct {
	Observation env.Observation `json:"observation"`
	Action      env.Action      `json:"action"`
	Reward      int             `json:"reward"`
}

func checkObservation(obs env.Observation) error {
	if obs.Player < 0 || obs.Player >= env.PlayerObservations ||
		obs.Dealer < 0 || obs.Dealer >= env.DealerObservations {
		return fmt.Errorf("%w: %+v", ErrObservationRange, obs)
	}
	return nil
}

// Random picks hit or stand uniformly
type Random struct {
	rng *rand.Rand
}

// NewRandom returns a random policy; seed 0 uses a time-based seed
func NewRandom(seed int64) *Random {
	return &Random{rng: randutil.New(randutil.Resolve(seed))}
}

// Act implements Policy
func (r *Random) Act(_ context.Context, _ env.Observation) (env.Action, error) {
	return env.Action(r.rng.IntN(env.NumActions)), nil
}

// DefaultStandAt mirrors the dealer's own stopping rule
const DefaultStandAt = 17

// Threshold hits below StandAt and stands at or above it
type Threshold struct {
	StandAt int
}

// Act implements Policy
func (t Threshold) Act(_ context.Context, obs env.Observation) (env.Action, error) {
	standAt := t.StandAt
	if standAt == 0 {
		standAt = DefaultStandAt
	}
	if obs.PlayerTotal() >= standAt {
		return env.Stand, nil
	}
	return env.Hit, nil
}

// Constant always returns the same action
type Constant env.Action

// Act implements Policy
func (c Constant) Act(_ context.Context, _ env.Observation) (env.Action, error) {
	return env.Action(c), nil
}
