package statistics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/blackjackgym/internal/env"
)

func TestStatistics_Empty(t *testing.T) {
	stats := &Statistics{}

	assert.Zero(t, stats.Mean())
	assert.Zero(t, stats.Variance())
	assert.Zero(t, stats.StdDev())
	assert.Zero(t, stats.StdError())
	assert.Zero(t, stats.Median())
	assert.Zero(t, stats.Percentile(0.5))
	assert.Zero(t, stats.WinRate())
	assert.Error(t, stats.Validate())
}

func TestStatistics_SingleValue(t *testing.T) {
	stats := &Statistics{}
	stats.Add(EpisodeResult{Reward: 100, Outcome: env.OutcomeWin, PlayerTotal: 20, DealerTotal: 24, Hits: 1})

	assert.Equal(t, 1, stats.Episodes)
	assert.Equal(t, 100.0, stats.Mean())
	assert.Zero(t, stats.Variance())
	assert.Equal(t, 100.0, stats.Median())
	assert.Equal(t, 1, stats.Wins)
	assert.Equal(t, 1, stats.DealerBusts)
	assert.Equal(t, 1, stats.TotalHits)
	require.NoError(t, stats.Validate())
}

func TestStatistics_Outcomes(t *testing.T) {
	stats := &Statistics{}
	results := []EpisodeResult{
		{Reward: 100, Outcome: env.OutcomeWin, PlayerTotal: 21},
		{Reward: -100, Outcome: env.OutcomeLose, PlayerTotal: 25, Hits: 2},
		{Reward: -100, Outcome: env.OutcomeLose, PlayerTotal: 18, DealerTotal: 20},
		{Reward: 0, Outcome: env.OutcomeTie, PlayerTotal: 19, DealerTotal: 19},
	}
	for _, r := range results {
		stats.Add(r)
	}

	assert.Equal(t, 4, stats.Episodes)
	assert.Equal(t, -25.0, stats.Mean())
	assert.Equal(t, 0.25, stats.WinRate())
	assert.Equal(t, 0.5, stats.LossRate())
	assert.Equal(t, 0.25, stats.TieRate())
	assert.Equal(t, 1, stats.Naturals)
	assert.Equal(t, 1, stats.PlayerBusts)
	assert.Equal(t, -50.0, stats.Median())
	assert.Equal(t, 100.0, stats.Percentile(1.0))
	assert.Equal(t, -100.0, stats.Percentile(0))
	require.NoError(t, stats.Validate())

	// sample variance of {100, -100, -100, 0}
	mean := -25.0
	want := (math.Pow(125, 2) + 2*math.Pow(75, 2) + math.Pow(25, 2)) / 3
	assert.InDelta(t, want, stats.Variance(), 1e-9)
	lo, hi := stats.ConfidenceInterval95()
	assert.InDelta(t, mean, (lo+hi)/2, 1e-9)
	assert.Less(t, lo, mean)
}

func TestStatistics_Naturals(t *testing.T) {
	stats := &Statistics{}
	stats.Add(EpisodeResult{Reward: 100, Outcome: env.OutcomeWin, PlayerTotal: 21})
	// hitting to 21 also skips the dealer but is not a natural
	stats.Add(EpisodeResult{Reward: 100, Outcome: env.OutcomeWin, PlayerTotal: 21, Hits: 1})

	assert.Equal(t, 2, stats.Wins)
	assert.Equal(t, 1, stats.Naturals)
	require.NoError(t, stats.Validate())
}

func TestStatistics_Merge(t *testing.T) {
	a := &Statistics{}
	b := &Statistics{}
	a.Add(EpisodeResult{Reward: 100, Outcome: env.OutcomeWin, PlayerTotal: 20, DealerTotal: 18})
	b.Add(EpisodeResult{Reward: -100, Outcome: env.OutcomeLose, PlayerTotal: 22})
	b.Add(EpisodeResult{Reward: 0, Outcome: env.OutcomeTie, PlayerTotal: 17, DealerTotal: 17})

	a.Merge(b)
	assert.Equal(t, 3, a.Episodes)
	assert.Equal(t, 1, a.Wins)
	assert.Equal(t, 1, a.Losses)
	assert.Equal(t, 1, a.Ties)
	assert.Len(t, a.Values, 3)
	require.NoError(t, a.Validate())
}

func TestStatistics_ValidateMismatch(t *testing.T) {
	stats := &Statistics{Episodes: 2, Values: []float64{100, -100}, Wins: 1}
	assert.Error(t, stats.Validate())
}
