package sparkles

import (
	"os"
	"path/filepath"

	"github.com/sparkles-rs/sparkles/globalstore"
	"github.com/sparkles-rs/sparkles/recorder"
	"github.com/sparkles-rs/sparkles/sink"
	"github.com/sparkles-rs/sparkles/timestamp"
)

// Config configures a Sparkles instance.
type Config struct {
	// Store bounds the global ring buffer every recorder flushes
	// into.
	Store globalstore.Config

	// Local controls a recorder's soft/hard auto-flush thresholds.
	Local recorder.Config

	// Provider supplies timestamps. DefaultConfig sets it to
	// timestamp.NewMonotonic(); Init rejects a nil Provider. Swap in a
	// platform-specific cycle counter for
	// nanosecond-class overhead. The timestamp source is an external
	// collaborator behind the timestamp.Provider interface.
	Provider timestamp.Provider

	// Sinks receives the encoded wire byte stream. An empty Config
	// discards everything, which is valid for benchmarking recorder
	// overhead in isolation.
	Sinks []sink.Sink

	// ProcessName is reported in the one-shot EncoderInfo packet.
	// Defaults to os.Args[0]'s base name.
	ProcessName string

	// DisableThreadNames makes SetCurrentThreadName a no-op, for
	// callers that don't want thread names in the trace.
	DisableThreadNames bool
}

// DefaultConfig returns the standard thresholds and a Monotonic
// timestamp provider, with no sinks configured.
func DefaultConfig() Config {
	return Config{
		Store:       globalstore.DefaultConfig(),
		Local:       recorder.DefaultConfig(),
		Provider:    timestamp.NewMonotonic(),
		ProcessName: filepath.Base(os.Args[0]),
	}
}
