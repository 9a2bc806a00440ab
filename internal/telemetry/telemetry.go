// Package telemetry provides the package-level structured logger used
// off the recorder fast path: the sender worker, sinks, and parser.
package telemetry

import (
	"os"

	"github.com/rs/zerolog"
)

// Log is the process-wide logger. Other packages should use Log with
// additional context fields rather than importing zerolog directly.
var Log zerolog.Logger

func init() {
	Log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: true}).With().Timestamp().Logger()
}

// SetOutput replaces the logger with one that writes through the
// console-format writer w.
func SetOutput(w zerolog.ConsoleWriter) {
	Log = zerolog.New(w).With().Timestamp().Logger()
}
