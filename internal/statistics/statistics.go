package statistics

import (
	"fmt"
	"math"
	"sort"

	"github.com/lox/blackjackgym/internal/env"
)

// EpisodeResult represents the outcome of a single blackjack episode
type EpisodeResult struct {
	Reward      int         // Reward paid on the terminal step
	Outcome     env.Outcome // Win, lose or tie
	PlayerTotal int         // Player's final evaluated total
	DealerTotal int         // Dealer's final total, 0 if the dealer did not play
	Hits        int         // Number of hit actions taken
	Seed        int64       // Seed of the environment that produced it
}

// Statistics tracks aggregate results over many episodes
type Statistics struct {
	Episodes int
	Sum      float64
	Sum2     float64   // Sum of squares for variance calculation
	Values   []float64 // Store all values for median/percentile calculation

	Wins   int
	Losses int
	Ties   int

	PlayerBusts int // Losses where the player went over 21
	DealerBusts int // Wins where the dealer went over 21
	Naturals    int // Wins on a two-card 21, before any hit
	TotalHits   int
}

// Mean returns the average reward per episode
func (s *Statistics) Mean() float64 {
	if s.Episodes == 0 {
		return 0
	}
	return s.Sum / float64(s.Episodes)
}

// Variance returns the sample variance of all rewards
func (s *Statistics) Variance() float64 {
	if s.Episodes < 2 {
		return 0
	}
	mean := s.Mean()
	return (s.Sum2 - float64(s.Episodes)*mean*mean) / float64(s.Episodes-1)
}

// StdDev returns the sample standard deviation of all rewards
func (s *Statistics) StdDev() float64 {
	return math.Sqrt(s.Variance())
}

// StdError returns the standard error of the mean
func (s *Statistics) StdError() float64 {
	if s.Episodes == 0 {
		return 0
	}
	return s.StdDev() / math.Sqrt(float64(s.Episodes))
}

// ConfidenceInterval95 returns the 95% confidence interval for the mean
func (s *Statistics) ConfidenceInterval95() (float64, float64) {
	mean := s.Mean()
	margin := 1.96 * s.StdError()
	return mean - margin, mean + margin
}

// Add incorporates a new episode result into the statistics
func (s *Statistics) Add(result EpisodeResult) {
	r := float64(result.Reward)
	s.Episodes++
	s.Sum += r
	s.Sum2 += r * r
	s.Values = append(s.Values, r)
	s.TotalHits += result.Hits

	switch result.Outcome {
	case env.OutcomeWin:
		s.Wins++
		if result.DealerTotal > 21 {
			s.DealerBusts++
		}
		if result.PlayerTotal == 21 && result.Hits == 0 && result.DealerTotal == 0 {
			s.Naturals++
		}
	case env.OutcomeLose:
		s.Losses++
		if result.PlayerTotal > 21 {
			s.PlayerBusts++
		}
	case env.OutcomeTie:
		s.Ties++
	}
}

// Merge folds other into s. Used to combine per-worker results.
func (s *Statistics) Merge(other *Statistics) {
	s.Episodes += other.Episodes
	s.Sum += other.Sum
	s.Sum2 += other.Sum2
	s.Values = append(s.Values, other.Values...)
	s.Wins += other.Wins
	s.Losses += other.Losses
	s.Ties += other.Ties
	s.PlayerBusts += other.PlayerBusts
	s.DealerBusts += other.DealerBusts
	s.Naturals += other.Naturals
	s.TotalHits += other.TotalHits
}

// WinRate returns the fraction of episodes won
func (s *Statistics) WinRate() float64 { return s.rate(s.Wins) }

// LossRate returns the fraction of episodes lost
func (s *Statistics) LossRate() float64 { return s.rate(s.Losses) }

// TieRate returns the fraction of episodes tied
func (s *Statistics) TieRate() float64 { return s.rate(s.Ties) }

func (s *Statistics) rate(n int) float64 {
	if s.Episodes == 0 {
		return 0
	}
	return float64(n) / float64(s.Episodes)
}

// Median returns the median reward
func (s *Statistics) Median() float64 {
	if len(s.Values) == 0 {
		return 0
	}
	sorted := make([]float64, len(s.Values))
	copy(sorted, s.Values)
	sort.Float64s(sorted)

	n := len(sorted)
	if n%2 == 0 {
		return (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return sorted[n/2]
}

// Percentile returns the value at the given percentile (0.0 to 1.0)
func (s *Statistics) Percentile(p float64) float64 {
	if len(s.Values) == 0 {
		return 0
	}
	sorted := make([]float64, len(s.Values))
	copy(sorted, s.Values)
	sort.Float64s(sorted)

	index := p * float64(len(sorted)-1)
	lower := int(index)
	upper := lower + 1

	if upper >= len(sorted) {
		return sorted[len(sorted)-1]
	}

	weight := index - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}

// Validate checks that the counters agree with each other
func (s *Statistics) Validate() error {
	if s.Episodes <= 0 {
		return fmt.Errorf("invalid episode count: %d", s.Episodes)
	}
	if len(s.Values) != s.Episodes {
		return fmt.Errorf("values array length (%d) does not match episode count (%d)",
			len(s.Values), s.Episodes)
	}
	if s.Wins+s.Losses+s.Ties != s.Episodes {
		return fmt.Errorf("outcomes (%d wins, %d losses, %d ties) do not sum to %d episodes",
			s.Wins, s.Losses, s.Ties, s.Episodes)
	}
	if s.PlayerBusts > s.Losses {
		return fmt.Errorf("player busts (%d) exceed losses (%d)", s.PlayerBusts, s.Losses)
	}
	if s.DealerBusts+s.Naturals > s.Wins {
		return fmt.Errorf("dealer busts and naturals (%d) exceed wins (%d)", s.DealerBusts+s.Naturals, s.Wins)
	}
	return nil
}
