package hand

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lox/blackjackgym/internal/deck"
)

func cards(ranks ...deck.Rank) []deck.Card {
	out := make([]deck.Card, len(ranks))
	for i, r := range ranks {
		out[i] = deck.NewCard(deck.Suits[i%len(deck.Suits)], r)
	}
	return out
}

func TestEvaluateNoAces(t *testing.T) {
	tests := []struct {
		name  string
		ranks []deck.Rank
		want  int
	}{
		{"empty", nil, 0},
		{"ten eight", []deck.Rank{deck.Ten, deck.Eight}, 18},
		{"faces", []deck.Rank{deck.King, deck.Queen}, 20},
		{"bust", []deck.Rank{deck.Jack, deck.Six, deck.Nine}, 25},
		{"small", []deck.Rank{deck.Two, deck.Three, deck.Four}, 9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := cards(tt.ranks...)
			assert.Equal(t, tt.want, EvaluatePlayer(h))
			assert.Equal(t, tt.want, EvaluateDealer(h))
		})
	}
}

func TestEvaluateDealer(t *testing.T) {
	tests := []struct {
		name  string
		ranks []deck.Rank
		want  int
	}{
		{"ace six is soft seventeen", []deck.Rank{deck.Ace, deck.Six}, 17},
		{"ace king", []deck.Rank{deck.Ace, deck.King}, 21},
		{"ace five keeps promotion", []deck.Rank{deck.Ace, deck.Five}, 16},
		{"ace alone", []deck.Rank{deck.Ace}, 11},
		{"two aces", []deck.Rank{deck.Ace, deck.Ace}, 12},
		{"two aces five", []deck.Rank{deck.Ace, deck.Ace, deck.Five}, 17},
		{"ace would bust", []deck.Rank{deck.Ace, deck.Nine, deck.Five}, 15},
		{"three aces eight", []deck.Rank{deck.Ace, deck.Ace, deck.Ace, deck.Eight}, 21},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EvaluateDealer(cards(tt.ranks...)))
		})
	}
}

func TestEvaluatePlayer(t *testing.T) {
	tests := []struct {
		name  string
		ranks []deck.Rank
		want  int
	}{
		{"ace seven reaches eighteen", []deck.Rank{deck.Ace, deck.Seven}, 18},
		// 17 is below the player's range, but the promotion is still kept
		// because no further ace can improve it.
		{"ace six", []deck.Rank{deck.Ace, deck.Six}, 17},
		{"ace king", []deck.Rank{deck.Ace, deck.King}, 21},
		{"two aces", []deck.Rank{deck.Ace, deck.Ace}, 12},
		{"two aces five stops at seventeen", []deck.Rank{deck.Ace, deck.Ace, deck.Five}, 17},
		{"two aces six", []deck.Rank{deck.Ace, deck.Ace, deck.Six}, 18},
		{"two aces nine", []deck.Rank{deck.Ace, deck.Ace, deck.Nine}, 21},
		{"four aces six", []deck.Rank{deck.Ace, deck.Ace, deck.Ace, deck.Ace, deck.Six}, 20},
		{"ace bust avoidance", []deck.Rank{deck.King, deck.Six, deck.Ace}, 17},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EvaluatePlayer(cards(tt.ranks...)))
		})
	}
}

func TestEvaluateSingleAce(t *testing.T) {
	// With one ace and the rest summing to s, both evaluators return s+11
	// when that does not bust and s+1 otherwise.
	others := []deck.Rank{deck.Two, deck.Three, deck.Four, deck.Five, deck.Six,
		deck.Seven, deck.Eight, deck.Nine, deck.Ten}
	for _, a := range others {
		for _, b := range others {
			h := cards(a, b, deck.Ace)
			s := a.Value().Low + b.Value().Low
			want := s + 1
			if s+11 <= Bust {
				want = s + 11
			}
			assert.Equal(t, want, EvaluateDealer(h), "%v", h)
			assert.Equal(t, want, EvaluatePlayer(h), "%v", h)
		}
	}
}

func TestEvaluateDoesNotMutate(t *testing.T) {
	h := cards(deck.Ace, deck.Ace, deck.Seven)
	before := append([]deck.Card(nil), h...)
	EvaluateDealer(h)
	EvaluatePlayer(h)
	assert.Equal(t, before, h)
}
