package deck

import "fmt"

// Suit represents a card suit
type Suit int

const (
	Spades Suit = iota
	Clubs
	Diamonds
	Hearts
)

// Suits lists every suit in shoe construction order
var Suits = [...]Suit{Spades, Clubs, Diamonds, Hearts}

// String returns the lower case suit name
func (s Suit) String() string {
	switch s {
	case Spades:
		return "spades"
	case Clubs:
		return "clubs"
	case Diamonds:
		return "diamonds"
	case Hearts:
		return "hearts"
	default:
		return "unknown"
	}
}

// Symbol returns the unicode glyph for the suit
func (s Suit) Symbol() string {
	switch s {
	case Spades:
		return "♠"
	case Clubs:
		return "♣"
	case Diamonds:
		return "♦"
	case Hearts:
		return "♥"
	default:
		return "?"
	}
}

// IsRed returns true if the suit is red (Hearts or Diamonds)
func (s Suit) IsRed() bool {
	return s == Hearts || s == Diamonds
}

// Rank represents a card rank
type Rank int

const (
	Two Rank = iota + 2
	Three
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
	Jack
	Queen
	King
	Ace
)

var rankNames = map[Rank]string{
	Two: "two", Three: "three", Four: "four", Five: "five", Six: "six",
	Seven: "seven", Eight: "eight", Nine: "nine", Ten: "ten",
	Jack: "jack", Queen: "queen", King: "king", Ace: "ace",
}

// String returns the rank name, e.g. "queen"
func (r Rank) String() string {
	if name, ok := rankNames[r]; ok {
		return name
	}
	return "unknown"
}

// Short returns the single character form used in compact output
func (r Rank) Short() string {
	switch {
	case r >= Two && r <= Nine:
		return fmt.Sprintf("%d", int(r))
	case r == Ten:
		return "T"
	case r == Jack:
		return "J"
	case r == Queen:
		return "Q"
	case r == King:
		return "K"
	case r == Ace:
		return "A"
	default:
		return "?"
	}
}

// Value is a card's point value. Most ranks have a single interpretation
// (Low == High). The ace carries both of its interpretations until a hand
// evaluator picks one.
type Value struct {
	Low  int `json:"low"`
	High int `json:"high"`
}

// Dual reports whether the value has two interpretations
func (v Value) Dual() bool {
	return v.Low != v.High
}

// String returns "7" for single values and "1/11" for dual ones
func (v Value) String() string {
	if v.Dual() {
		return fmt.Sprintf("%d/%d", v.Low, v.High)
	}
	return fmt.Sprintf("%d", v.Low)
}

// Value returns the point value of the rank. Face cards count 10.
func (r Rank) Value() Value {
	switch {
	case r == Ace:
		return Value{Low: 1, High: 11}
	case r >= Ten && r <= King:
		return Value{Low: 10, High: 10}
	case r >= Two && r < Ten:
		return Value{Low: int(r), High: int(r)}
	default:
		return Value{}
	}
}

// Card represents a playing card
type Card struct {
	Suit Suit
	Rank Rank
}

// NewCard creates a new card
func NewCard(suit Suit, rank Rank) Card {
	return Card{Suit: suit, Rank: rank}
}

// Value returns the point value of the card
func (c Card) Value() Value {
	return c.Rank.Value()
}

// String returns e.g. "ace of spades"
func (c Card) String() string {
	return fmt.Sprintf("%s of %s", c.Rank, c.Suit)
}

// Short returns the compact form, e.g. "A♠"
func (c Card) Short() string {
	return c.Rank.Short() + c.Suit.Symbol()
}

// IsRed returns true if the card is red
func (c Card) IsRed() bool {
	return c.Suit.IsRed()
}
