package shared

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
)

// Log output formats accepted by SetupLogger
const (
	FormatText = "text"
	FormatJSON = "json"
)

// SetupLogger builds the process logger writing to stderr
func SetupLogger(debug bool, format string) (*log.Logger, error) {
	return NewLogger(os.Stderr, debug, format)
}

// NewLogger builds a logger writing to w
func NewLogger(w io.Writer, debug bool, format string) (*log.Logger, error) {
	level := log.InfoLevel
	if debug {
		level = log.DebugLevel
	}

	opts := log.Options{
		Level:           level,
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
	}
	switch format {
	case "", FormatText:
		opts.Formatter = log.TextFormatter
	case FormatJSON:
		opts.Formatter = log.JSONFormatter
		opts.TimeFormat = time.RFC3339Nano
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
	return log.NewWithOptions(w, opts), nil
}
