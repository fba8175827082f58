package env

import (
	"errors"
	"fmt"

	"github.com/lox/blackjackgym/internal/deck"
)

var (
	// ErrInvalidAction is returned by Step for actions other than Hit or Stand
	ErrInvalidAction = errors.New("invalid action")

	// ErrInvalidState is returned by Step before the first Reset or after the
	// episode has finished
	ErrInvalidState = errors.New("invalid environment state")
)

// Observation space sizes. A decision is only ever requested for player
// totals 4..20 and upcards 2..11, but terminal observations include 21 and
// bust totals, so the player dimension covers shifted totals up to 29.
const (
	PlayerObservations = 30
	DealerObservations = 11
	NumActions         = 2
)

// Rewards paid at the end of an episode
const (
	RewardWin  = 100
	RewardLose = -100
	RewardTie  = 0
)

// Action is the player's decision on a step
type Action int

const (
	Hit   Action = 0
	Stand Action = 1
)

// Valid reports whether a is Hit or Stand
func (a Action) Valid() bool {
	return a == Hit || a == Stand
}

func (a Action) String() string {
	switch a {
	case Hit:
		return "hit"
	case Stand:
		return "stand"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// ParseAction accepts "hit"/"h"/"0" and "stand"/"s"/"1"
func ParseAction(s string) (Action, error) {
	switch s {
	case "hit", "h", "0":
		return Hit, nil
	case "stand", "s", "1":
		return Stand, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidAction, s)
	}
}

// State is the lifecycle stage of an environment
type State int

const (
	AwaitingReset State = iota
	InEpisode
	EpisodeDone
)

func (s State) String() string {
	switch s {
	case AwaitingReset:
		return "awaiting-reset"
	case InEpisode:
		return "in-episode"
	case EpisodeDone:
		return "episode-done"
	default:
		return "unknown"
	}
}

// Outcome is how a finished episode was resolved
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeWin
	OutcomeLose
	OutcomeTie
)

func (o Outcome) String() string {
	switch o {
	case OutcomeWin:
		return "win"
	case OutcomeLose:
		return "lose"
	case OutcomeTie:
		return "tie"
	default:
		return "none"
	}
}

// Reward returns the payout for the outcome
func (o Outcome) Reward() int {
	switch o {
	case OutcomeWin:
		return RewardWin
	case OutcomeLose:
		return RewardLose
	default:
		return RewardTie
	}
}

// MarshalText encodes the outcome by name
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Observation is what the agent sees: the player's total shifted by -2 and
// the dealer upcard's total shifted by -1, so both start near zero and can
// be used directly as table indices.
type Observation struct {
	Player int `json:"player"`
	Dealer int `json:"dealer"`
}

// PlayerTotal undoes the player shift
func (o Observation) PlayerTotal() int { return o.Player + 2 }

// UpcardTotal undoes the dealer shift
func (o Observation) UpcardTotal() int { return o.Dealer + 1 }

// CardInfo describes one card in the diagnostic info payload
type CardInfo struct {
	Suit  string     `json:"suit"`
	Rank  string     `json:"rank"`
	Value deck.Value `json:"value"`
}

func cardInfo(c deck.Card) CardInfo {
	return CardInfo{Suit: c.Suit.String(), Rank: c.Rank.String(), Value: c.Value()}
}

func cardInfos(cards []deck.Card) []CardInfo {
	out := make([]CardInfo, len(cards))
	for i, c := range cards {
		out[i] = cardInfo(c)
	}
	return out
}

// Info is the diagnostic payload returned by Reset and by the terminal Step.
// It is empty on non-terminal steps.
type Info struct {
	PlayerCards  []CardInfo `json:"player_cards,omitempty"`
	DealerUpcard *CardInfo  `json:"dealer_upcard,omitempty"`
	Outcome      Outcome    `json:"outcome,omitempty"`
	DealerTotal  int        `json:"dealer_total,omitempty"`
	DealerCards  []CardInfo `json:"dealer_cards,omitempty"`
}

// Empty reports whether the info carries no data
func (i Info) Empty() bool {
	return len(i.PlayerCards) == 0 && i.DealerUpcard == nil &&
		i.Outcome == OutcomeNone && i.DealerTotal == 0 && len(i.DealerCards) == 0
}

// SuitValues maps each starting player card's suit to its value. Cards of
// the same suit share a key, so the later card wins.
func (i Info) SuitValues() map[string]deck.Value {
	out := make(map[string]deck.Value, len(i.PlayerCards))
	for _, c := range i.PlayerCards {
		out[c.Suit] = c.Value
	}
	return out
}

// StepResult is everything Step reports back to the caller
type StepResult struct {
	Observation Observation `json:"observation"`
	Reward      int         `json:"reward"`
	Done        bool        `json:"done"`
	Info        Info        `json:"info"`
}

// UnmarshalText decodes an outcome name written by MarshalText
func (o *Outcome) UnmarshalText(text []byte) error {
	for _, c := range []Outcome{OutcomeNone, OutcomeWin, OutcomeLose, OutcomeTie} {
		if c.String() == string(text) {
			*o = c
			return nil
		}
	}
	return fmt.Errorf("unknown outcome %q", text)
}
