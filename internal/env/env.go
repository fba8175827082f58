// Package env exposes a single-player blackjack game as a reset/step
// environment for reinforcement learning.
//
// An Environment owns its shoe, both hands and the balance. It is not safe
// for concurrent use; run one Environment per goroutine.
package env

import (
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/lox/blackjackgym/internal/dealer"
	"github.com/lox/blackjackgym/internal/deck"
	"github.com/lox/blackjackgym/internal/hand"
	"github.com/lox/blackjackgym/internal/randutil"
)

// Defaults applied to zero Config fields
const (
	DefaultNumDecks       = 6
	DefaultInitialBalance = 1000
)

// Config controls how an Environment is built
type Config struct {
	// NumDecks is the number of standard decks in the shoe
	NumDecks int

	// InitialBalance is the balance every episode starts from
	InitialBalance int

	// Seed drives the default shuffler; 0 uses a time-based seed
	Seed int64

	// Shuffler overrides the seeded shuffler, mainly for tests
	Shuffler deck.Shuffler

	Logger *log.Logger
}

func (c *Config) applyDefaults() {
	if c.NumDecks == 0 {
		c.NumDecks = DefaultNumDecks
	}
	if c.InitialBalance == 0 {
		c.InitialBalance = DefaultInitialBalance
	}
	if c.Logger == nil {
		c.Logger = log.New(io.Discard)
	}
}

// Validate checks the config after defaults are applied
func (c Config) Validate() error {
	if c.NumDecks < 1 {
		return fmt.Errorf("num decks must be >= 1, got %d", c.NumDecks)
	}
	return nil
}

// Environment is one blackjack table with one player and the dealer
type Environment struct {
	cfg    Config
	shoe   *deck.Shoe
	logger *log.Logger

	state       State
	player      []deck.Card
	dealer      []deck.Card
	upcard      deck.Card
	playerTotal int
	lastAction  Action
	acted       bool

	balance  int
	lifetime int
	episodes int
}

// New builds an environment. The shoe is created once here and recycled by
// every Reset.
func New(cfg Config) (*Environment, error) {
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	shuffler := cfg.Shuffler
	if shuffler == nil {
		shuffler = deck.NewRandShuffler(randutil.New(randutil.Resolve(cfg.Seed)))
	}
	shoe, err := deck.NewShoe(cfg.NumDecks, shuffler)
	if err != nil {
		return nil, err
	}

	return &Environment{
		cfg:     cfg,
		shoe:    shoe,
		logger:  cfg.Logger.WithPrefix("env"),
		state:   AwaitingReset,
		balance: cfg.InitialBalance,
	}, nil
}

// Reset starts a new episode. All dealt cards go back to the bottom of the
// shoe, the shoe is shuffled once, and the player then the dealer receive
// two cards each. The balance is reset to the configured initial value.
func (e *Environment) Reset() (Observation, Info, error) {
	e.shoe.ReturnToBottom(e.player...)
	e.shoe.ReturnToBottom(e.dealer...)
	e.player, e.dealer = nil, nil
	e.acted = false
	e.state = AwaitingReset
	e.shoe.Shuffle()

	player, err := e.dealN(2)
	if err != nil {
		return Observation{}, Info{}, fmt.Errorf("deal player: %w", err)
	}
	e.player = player
	dealt, err := e.dealN(2)
	if err != nil {
		return Observation{}, Info{}, fmt.Errorf("deal dealer: %w", err)
	}
	e.dealer = dealt
	e.upcard = e.dealer[0]

	e.balance = e.cfg.InitialBalance
	e.playerTotal = hand.EvaluatePlayer(e.player)
	e.state = InEpisode
	e.episodes++

	up := cardInfo(e.upcard)
	info := Info{
		PlayerCards:  cardInfos(e.player),
		DealerUpcard: &up,
	}
	return e.observation(), info, nil
}

func (e *Environment) dealN(n int) ([]deck.Card, error) {
	cards := make([]deck.Card, 0, n)
	for i := 0; i < n; i++ {
		c, err := e.shoe.Deal()
		if err != nil {
			// keep the card count intact for the next Reset
			e.shoe.ReturnToBottom(cards...)
			return nil, err
		}
		cards = append(cards, c)
	}
	return cards, nil
}

// Step applies the player's action. The episode ends when the player stands
// or reaches 21 or more; the final step carries the reward and resolution
// info. Step fails with ErrInvalidState outside an episode and with
// ErrInvalidAction for unknown actions, leaving the state untouched.
func (e *Environment) Step(a Action) (StepResult, error) {
	switch e.state {
	case AwaitingReset:
		return StepResult{}, fmt.Errorf("%w: step called before reset", ErrInvalidState)
	case EpisodeDone:
		return StepResult{}, fmt.Errorf("%w: episode finished, call reset", ErrInvalidState)
	}
	if !a.Valid() {
		return StepResult{}, fmt.Errorf("%w: %d", ErrInvalidAction, int(a))
	}

	e.lastAction, e.acted = a, true
	if a == Hit {
		card, err := e.shoe.Deal()
		if err != nil {
			return e.abort(err)
		}
		e.player = append(e.player, card)
	}
	e.playerTotal = hand.EvaluatePlayer(e.player)

	if a != Stand && e.playerTotal < hand.Bust {
		return StepResult{Observation: e.observation()}, nil
	}

	outcome, dealerTotal, err := e.resolve()
	if err != nil {
		return e.abort(err)
	}

	reward := outcome.Reward()
	e.balance += reward
	e.lifetime += reward
	e.state = EpisodeDone

	e.logger.Debug("episode resolved",
		"episode", e.episodes,
		"outcome", outcome,
		"player", e.playerTotal,
		"dealer", dealerTotal,
		"balance", e.balance)

	info := Info{Outcome: outcome, DealerTotal: dealerTotal}
	if dealerTotal > 0 {
		info.DealerCards = cardInfos(e.dealer)
	}
	return StepResult{
		Observation: e.observation(),
		Reward:      reward,
		Done:        true,
		Info:        info,
	}, nil
}

// resolve settles a finished episode. The dealer only plays when the player
// neither busted nor hit 21; dealerTotal is 0 when the dealer did not play.
func (e *Environment) resolve() (Outcome, int, error) {
	switch {
	case e.playerTotal > hand.Bust:
		return OutcomeLose, 0, nil
	case e.playerTotal == hand.Bust:
		return OutcomeWin, 0, nil
	}

	dealerTotal, final, err := dealer.Turn(e.dealer, e.shoe)
	e.dealer = final
	if err != nil {
		return OutcomeNone, dealerTotal, err
	}

	switch {
	case dealerTotal > hand.Bust:
		return OutcomeWin, dealerTotal, nil
	case dealerTotal == hand.Bust:
		return OutcomeLose, dealerTotal, nil
	case dealerTotal > e.playerTotal:
		return OutcomeLose, dealerTotal, nil
	case dealerTotal < e.playerTotal:
		return OutcomeWin, dealerTotal, nil
	default:
		return OutcomeTie, dealerTotal, nil
	}
}

// abort ends the episode without a reward after the shoe ran dry.
func (e *Environment) abort(err error) (StepResult, error) {
	e.state = EpisodeDone
	e.logger.Warn("episode aborted", "episode", e.episodes, "error", err)
	return StepResult{Observation: e.observation(), Done: true},
		fmt.Errorf("episode aborted: %w", err)
}

func (e *Environment) observation() Observation {
	return Observation{
		Player: e.playerTotal - 2,
		Dealer: e.upcardTotal() - 1,
	}
}

func (e *Environment) upcardTotal() int {
	if len(e.dealer) == 0 {
		return 0
	}
	return hand.EvaluateDealer([]deck.Card{e.upcard})
}

// State returns the lifecycle stage
func (e *Environment) State() State { return e.state }

// Balance returns the current episode's balance
func (e *Environment) Balance() int { return e.balance }

// Lifetime returns the net reward over every episode this environment played
func (e *Environment) Lifetime() int { return e.lifetime }

// Episodes returns the number of episodes started
func (e *Environment) Episodes() int { return e.episodes }

// PlayerTotal returns the player's evaluated total
func (e *Environment) PlayerTotal() int { return e.playerTotal }

// Upcard returns the dealer's face-up card; false before the first deal
func (e *Environment) Upcard() (deck.Card, bool) {
	return e.upcard, len(e.dealer) > 0
}

// LastAction returns the most recent action this episode; false if none
func (e *Environment) LastAction() (Action, bool) {
	return e.lastAction, e.acted
}

// PlayerCards returns a copy of the player's hand
func (e *Environment) PlayerCards() []deck.Card {
	return append([]deck.Card(nil), e.player...)
}

// DealerCards returns a copy of the dealer's hand, hole card included
func (e *Environment) DealerCards() []deck.Card {
	return append([]deck.Card(nil), e.dealer...)
}

// ShoeSize returns the number of cards left in the shoe
func (e *Environment) ShoeSize() int { return e.shoe.Len() }

// Config returns the effective configuration
func (e *Environment) Config() Config { return e.cfg }
