// Package hand computes blackjack hand totals.
//
// Aces carry two values until evaluation. Both evaluators start from the hard
// total (every ace as 1) and promote aces one at a time to 11, stopping early
// once the total lands in an acceptance range. The dealer accepts [17, 21];
// the player accepts [18, 21]. A promotion that would bust is never taken.
package hand

import "github.com/lox/blackjackgym/internal/deck"

// Bust is the highest total that does not lose outright
const Bust = 21

const (
	dealerAccept = 17
	playerAccept = 18
)

// EvaluateDealer returns the dealer's total for cards
func EvaluateDealer(cards []deck.Card) int {
	return evaluate(cards, dealerAccept)
}

// EvaluatePlayer returns the player's total for cards
func EvaluatePlayer(cards []deck.Card) int {
	return evaluate(cards, playerAccept)
}

func evaluate(cards []deck.Card, accept int) int {
	running := 0
	var promotions []int
	for _, c := range cards {
		v := c.Value()
		running += v.Low
		if v.Dual() {
			promotions = append(promotions, v.High-v.Low)
		}
	}

	for _, step := range promotions {
		candidate := running + step
		if candidate > Bust {
			return running
		}
		if candidate >= accept {
			return candidate
		}
		running = candidate
	}
	return running
}
