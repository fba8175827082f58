package deck

import (
	"errors"
	"fmt"
	rand "math/rand/v2"
	"time"

	"github.com/lox/blackjackgym/internal/randutil"
)

// CardsPerDeck is the size of one standard deck
const CardsPerDeck = 52

// ErrEmptyShoe is returned when dealing from a shoe with no cards left
var ErrEmptyShoe = errors.New("shoe is empty")

// Shuffler permutes cards in place
type Shuffler interface {
	Shuffle(cards []Card)
}

// RandShuffler performs a Fisher-Yates shuffle driven by rng
type RandShuffler struct {
	rng *rand.Rand
}

// NewRandShuffler returns a shuffler driven by the provided generator
func NewRandShuffler(rng *rand.Rand) *RandShuffler {
	return &RandShuffler{rng: rng}
}

// Shuffle implements Shuffler
func (s *RandShuffler) Shuffle(cards []Card) {
	for i := len(cards) - 1; i > 0; i-- {
		j := s.rng.IntN(i + 1)
		cards[i], cards[j] = cards[j], cards[i]
	}
}

// Shoe is an ordered stack of one or more standard decks. Index 0 is the
// next card dealt.
type Shoe struct {
	cards    []Card
	copies   int
	shuffler Shuffler
}

// NewShoe creates a shoe holding copies standard decks in construction order:
// suit by suit, two through ace, repeated per copy. A nil shuffler gets a
// time-seeded RandShuffler.
func NewShoe(copies int, shuffler Shuffler) (*Shoe, error) {
	if copies < 1 {
		return nil, fmt.Errorf("shoe needs at least one deck, got %d", copies)
	}
	if shuffler == nil {
		shuffler = NewRandShuffler(randutil.New(time.Now().UnixNano()))
	}

	shoe := &Shoe{
		cards:    make([]Card, 0, copies*CardsPerDeck),
		copies:   copies,
		shuffler: shuffler,
	}
	for i := 0; i < copies; i++ {
		for _, suit := range Suits {
			for rank := Two; rank <= Ace; rank++ {
				shoe.cards = append(shoe.cards, NewCard(suit, rank))
			}
		}
	}
	return shoe, nil
}

// Shuffle randomizes the order of cards in the shoe
func (s *Shoe) Shuffle() {
	s.shuffler.Shuffle(s.cards)
}

// Deal removes and returns the front card
func (s *Shoe) Deal() (Card, error) {
	if len(s.cards) == 0 {
		return Card{}, ErrEmptyShoe
	}
	card := s.cards[0]
	s.cards = s.cards[1:]
	return card, nil
}

// Peek returns the front card without removing it
func (s *Shoe) Peek() (Card, bool) {
	if len(s.cards) == 0 {
		return Card{}, false
	}
	return s.cards[0], true
}

// ReturnToBottom appends cards to the back of the shoe
func (s *Shoe) ReturnToBottom(cards ...Card) {
	s.cards = append(s.cards, cards...)
}

// Len returns the number of cards left in the shoe
func (s *Shoe) Len() int {
	return len(s.cards)
}

// Capacity is the number of cards in a full shoe
func (s *Shoe) Capacity() int {
	return s.copies * CardsPerDeck
}

// Cards returns a copy of the remaining cards in dealing order
func (s *Shoe) Cards() []Card {
	out := make([]Card, len(s.cards))
	copy(out, s.cards)
	return out
}
