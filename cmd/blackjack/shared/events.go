package shared

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/lox/blackjackgym/internal/statistics"
	"github.com/lox/blackjackgym/internal/training"
)

// EventLog writes machine-readable run events as JSON lines
type EventLog struct {
	logger zerolog.Logger
	closer io.Closer
}

// OpenEventLog appends events to path. An empty path discards them.
func OpenEventLog(path string) (*EventLog, error) {
	if path == "" {
		return &EventLog{logger: zerolog.Nop()}, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return &EventLog{logger: NewEventLogger(f), closer: f}, nil
}

// NewEventLogger returns the zerolog logger used for event output
func NewEventLogger(w io.Writer) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	return zerolog.New(w).With().Timestamp().Logger()
}

// Progress records a training progress report
func (e *EventLog) Progress(p training.Progress) {
	e.stats(e.logger.Info().Str("event", "progress"), &p.Stats).
		Int("episode", p.Episode).
		Float64("epsilon", p.Epsilon).
		Dur("elapsed", p.Elapsed).
		Send()
}

// Evaluation records the summary of an evaluation run
func (e *EventLog) Evaluation(policy string, s *statistics.Statistics) {
	lo, hi := s.ConfidenceInterval95()
	e.stats(e.logger.Info().Str("event", "evaluation"), s).
		Str("policy", policy).
		Float64("ci_low", lo).
		Float64("ci_high", hi).
		Send()
}

func (e *EventLog) stats(ev *zerolog.Event, s *statistics.Statistics) *zerolog.Event {
	return ev.
		Int("episodes", s.Episodes).
		Float64("mean", s.Mean()).
		Float64("win_rate", s.WinRate()).
		Float64("loss_rate", s.LossRate()).
		Float64("tie_rate", s.TieRate())
}

// Close closes the underlying file
func (e *EventLog) Close() error {
	if e.closer == nil {
		return nil
	}
	return e.closer.Close()
}
