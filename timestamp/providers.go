package timestamp

import (
	"sync/atomic"
	"time"
)

// Monotonic is a 64-bit wall-clock provider built on time.Now(). It
// never wraps in practice (2^64 ns is ~584 years), so it is the
// default choice for hosted (non-embedded) targets where a cheaper
// cycle counter isn't wired in.
type Monotonic struct {
	epoch time.Time
}

// NewMonotonic returns a Monotonic provider whose epoch is the time
// of the call; Now() returns nanoseconds elapsed since then.
func NewMonotonic() *Monotonic {
	return &Monotonic{epoch: time.Now()}
}

func (m *Monotonic) Now() uint64         { return uint64(time.Since(m.epoch).Nanoseconds()) }
func (m *Monotonic) ValidBits() uint     { return 64 }
func (m *Monotonic) MaxValue() uint64    { return MaxValueForBits(64) }

// Counter32 is a software counter that wraps at 2^32, useful for
// exercising wraparound behavior in tests without waiting 584 years.
// It is not a real tick source: callers advance it explicitly.
type Counter32 struct {
	v atomic.Uint32
}

// Advance adds delta to the counter and returns the new value.
func (c *Counter32) Advance(delta uint32) uint32 {
	return c.v.Add(delta)
}

func (c *Counter32) Now() uint64      { return uint64(c.v.Load()) }
func (c *Counter32) ValidBits() uint  { return 32 }
func (c *Counter32) MaxValue() uint64 { return MaxValueForBits(32) }

var _ Provider = (*Monotonic)(nil)
var _ Provider = (*Counter32)(nil)
