// Package dealer plays the house's fixed strategy: draw until the hand
// totals at least Threshold.
package dealer

import (
	"fmt"

	"github.com/lox/blackjackgym/internal/deck"
	"github.com/lox/blackjackgym/internal/hand"
)

// Threshold is the total at which the dealer stands
const Threshold = 17

// Turn draws from shoe until the dealer total reaches Threshold. It returns
// the final total and a new slice holding the final hand; cards is never
// modified. If the shoe runs out first, the partial hand and its total are
// returned with an error wrapping deck.ErrEmptyShoe.
func Turn(cards []deck.Card, shoe *deck.Shoe) (int, []deck.Card, error) {
	final := make([]deck.Card, len(cards), len(cards)+4)
	copy(final, cards)

	total := hand.EvaluateDealer(final)
	for total < Threshold {
		card, err := shoe.Deal()
		if err != nil {
			return total, final, fmt.Errorf("dealer draw at %d: %w", total, err)
		}
		final = append(final, card)
		total = hand.EvaluateDealer(final)
	}
	return total, final, nil
}
