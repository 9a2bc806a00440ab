// Package sink implements the fan-out of the encoded wire byte stream
// to one or more destinations: a file, a UDP datagram socket, or a
// stream (TCP) socket.
package sink

import (
	"fmt"

	"github.com/sparkles-rs/sparkles/internal/telemetry"
)

// Sink is one destination for the wire byte stream. Send must treat
// its argument as a single logical write: for a datagram transport
// that means one packet per call: a datagram sink sends each Send
// call's buffer as a single datagram.
type Sink interface {
	Send(data []byte) error
	Close() error
}

// Chain fans the same byte stream out to every configured sink. A
// sink whose Send fails is logged and dropped from the chain; the
// rest keep receiving data.
type Chain struct {
	sinks []Sink
}

// NewChain builds a Chain over sinks. A nil/empty Chain is valid and
// simply discards everything sent to it.
func NewChain(sinks ...Sink) *Chain {
	c := &Chain{}
	c.sinks = append(c.sinks, sinks...)
	return c
}

// Send writes data to every live sink, dropping any that error.
func (c *Chain) Send(data []byte) {
	live := c.sinks[:0]
	for _, s := range c.sinks {
		if err := s.Send(data); err != nil {
			telemetry.Log.Warn().Err(err).Msg("sink write failed, dropping from chain")
			continue
		}
		live = append(live, s)
	}
	c.sinks = live
}

// Close closes every sink in the chain, collecting the first error.
func (c *Chain) Close() error {
	var first error
	for _, s := range c.sinks {
		if err := s.Close(); err != nil && first == nil {
			first = fmt.Errorf("closing sink: %w", err)
		}
	}
	c.sinks = nil
	return first
}

// Len reports how many sinks are still live.
func (c *Chain) Len() int { return len(c.sinks) }
