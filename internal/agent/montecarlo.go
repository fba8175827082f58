package agent

import (
	"context"
	"fmt"
	rand "math/rand/v2"
	"time"

	"github.com/lox/blackjackgym/internal/env"
	"github.com/lox/blackjackgym/internal/fileutil"
	"github.com/lox/blackjackgym/internal/randutil"
)

const snapshotVersion = 1

type actionTable [env.PlayerObservations][env.DealerObservations][env.NumActions]float64
type visitTable [env.PlayerObservations][env.DealerObservations][env.NumActions]int64

// MonteCarlo is a tabular first-visit Monte Carlo control learner with
// epsilon-greedy exploration. Returns are undiscounted: blackjack pays only
// on the terminal step.
type MonteCarlo struct {
	q        actionTable
	visits   visitTable
	epsilon  float64
	episodes int64
	rng      *rand.Rand
}

// NewMonteCarlo returns a learner with all action values at zero
func NewMonteCarlo(epsilon float64, seed int64) *MonteCarlo {
	return &MonteCarlo{
		epsilon: epsilon,
		rng:     randutil.New(randutil.Resolve(seed)),
	}
}

// Act picks a random action with probability epsilon, otherwise the greedy one
func (m *MonteCarlo) Act(_ context.Context, obs env.Observation) (env.Action, error) {
	if err := checkObservation(obs); err != nil {
		return 0, err
	}
	if m.epsilon > 0 && m.rng.Float64() < m.epsilon {
		return env.Action(m.rng.IntN(env.NumActions)), nil
	}
	return m.best(obs), nil
}

// best returns the greedy action; ties go to Stand
func (m *MonteCarlo) best(obs env.Observation) env.Action {
	row := m.q[obs.Player][obs.Dealer]
	if row[env.Hit] > row[env.Stand] {
		return env.Hit
	}
	return env.Stand
}

// Update applies one finished episode. Only the first visit of each
// (observation, action) pair counts.
func (m *MonteCarlo) Update(episode []Transition) error {
	for _, tr := range episode {
		if err := checkObservation(tr.Observation); err != nil {
			return err
		}
		if !tr.Action.Valid() {
			return fmt.Errorf("%w: %d", env.ErrInvalidAction, int(tr.Action))
		}
	}

	// returns[i] is the sum of rewards from step i to the end
	returns := make([]float64, len(episode))
	g := 0.0
	for i := len(episode) - 1; i >= 0; i-- {
		g += float64(episode[i].Reward)
		returns[i] = g
	}

	type key struct {
		obs env.Observation
		a   env.Action
	}
	seen := make(map[key]bool, len(episode))
	for i, tr := range episode {
		k := key{tr.Observation, tr.Action}
		if seen[k] {
			continue
		}
		seen[k] = true

		p, d, a := tr.Observation.Player, tr.Observation.Dealer, tr.Action
		m.visits[p][d][a]++
		m.q[p][d][a] += (returns[i] - m.q[p][d][a]) / float64(m.visits[p][d][a])
	}
	m.episodes++
	return nil
}

// Value returns the current action-value estimate
func (m *MonteCarlo) Value(obs env.Observation, a env.Action) float64 {
	if checkObservation(obs) != nil || !a.Valid() {
		return 0
	}
	return m.q[obs.Player][obs.Dealer][a]
}

// Visits returns how often (obs, a) has been updated
func (m *MonteCarlo) Visits(obs env.Observation, a env.Action) int64 {
	if checkObservation(obs) != nil || !a.Valid() {
		return 0
	}
	return m.visits[obs.Player][obs.Dealer][a]
}

// Epsilon returns the current exploration rate
func (m *MonteCarlo) Epsilon() float64 { return m.epsilon }

// SetEpsilon changes the exploration rate
func (m *MonteCarlo) SetEpsilon(epsilon float64) { m.epsilon = epsilon }

// Episodes returns the number of episodes learned from
func (m *MonteCarlo) Episodes() int64 { return m.episodes }

// Greedy returns a policy that always exploits the current estimates
func (m *MonteCarlo) Greedy() Policy {
	return greedy{m}
}

type greedy struct{ m *MonteCarlo }

func (g greedy) Act(_ context.Context, obs env.Observation) (env.Action, error) {
	if err := checkObservation(obs); err != nil {
		return 0, err
	}
	return g.m.best(obs), nil
}

type monteCarloSnapshot struct {
	Version  int         `json:"version"`
	SavedAt  time.Time   `json:"saved_at"`
	Episodes int64       `json:"episodes"`
	Epsilon  float64     `json:"epsilon"`
	Values   actionTable `json:"values"`
	Visits   visitTable  `json:"visits"`
}

// Save writes the learner's tables to path atomically
func (m *MonteCarlo) Save(path string) error {
	snap := monteCarloSnapshot{
		Version:  snapshotVersion,
		SavedAt:  time.Now().UTC(),
		Episodes: m.episodes,
		Epsilon:  m.epsilon,
		Values:   m.q,
		Visits:   m.visits,
	}
	return fileutil.WriteJSONAtomic(path, snap)
}

// LoadMonteCarlo restores a learner saved with Save
func LoadMonteCarlo(path string, seed int64) (*MonteCarlo, error) {
	var snap monteCarloSnapshot
	if err := fileutil.ReadJSON(path, &snap); err != nil {
		return nil, err
	}
	if snap.Version != snapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d", snap.Version)
	}
	m := NewMonteCarlo(snap.Epsilon, seed)
	m.q = snap.Values
	m.visits = snap.Visits
	m.episodes = snap.Episodes
	return m, nil
}
