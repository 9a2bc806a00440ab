// Package globalstore implements the bounded, mutex-guarded ring
// buffer that coalesces flushes from every recorder in the process
// and hands drained bytes to the sender worker.
package globalstore

import (
	"sync"
	"sync/atomic"

	"github.com/sparkles-rs/sparkles/wire"
)

// Config controls ring capacity and the eviction/flush watermarks.
type Config struct {
	Capacity int

	// FlushThreshold is the fraction of Capacity that must be
	// occupied before a non-final Drain returns anything.
	FlushThreshold float64

	// CleanupHigh/CleanupLow are the fractions of Capacity that
	// trigger and end eviction, respectively. CleanupLow must be
	// less than CleanupHigh.
	CleanupHigh float64
	CleanupLow  float64
}

// DefaultConfig returns the standard capacity and watermarks.
func DefaultConfig() Config {
	return Config{
		Capacity:       50 * 1024 * 1024,
		FlushThreshold: 0.10,
		CleanupHigh:    0.90,
		CleanupLow:     0.70,
	}
}

// Store is the global ring buffer. The zero value is not usable; use
// New.
type Store struct {
	cfg Config

	mu  sync.Mutex
	buf []byte // ring contents, always a whole number of framed entries

	skippedHeaders []wire.LocalPacketHeader

	nextThreadOrdID atomic.Int64
}

// New creates a Store per cfg.
func New(cfg Config) *Store {
	return &Store{cfg: cfg, buf: make([]byte, 0, cfg.Capacity)}
}

// NextThreadOrdID hands out process-unique, monotonically increasing
// thread_ord_id values.
func (s *Store) NextThreadOrdID() int {
	return int(s.nextThreadOrdID.Add(1) - 1)
}

// Push serializes (header, payload) and appends it to the ring,
// evicting oldest entries first if the ring is now over the high
// watermark.
func (s *Store) Push(header wire.LocalPacketHeader, payload []byte) {
	entry := encodeEntry(header, payload)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf = append(s.buf, entry...)
	s.evictLocked()
}

// TryPush is Push's non-blocking counterpart: if the store's lock is
// currently held by a drain in progress, it gives up instead of
// waiting and reports false.
func (s *Store) TryPush(header wire.LocalPacketHeader, payload []byte) bool {
	entry := encodeEntry(header, payload)
	if !s.mu.TryLock() {
		return false
	}
	defer s.mu.Unlock()
	s.buf = append(s.buf, entry...)
	s.evictLocked()
	return true
}

func encodeEntry(header wire.LocalPacketHeader, payload []byte) []byte {
	return wire.EncodeEntry(wire.EncodeHeader(header), payload)
}

// evictLocked drops whole entries from the front (oldest first) until
// occupancy falls back to the low watermark, recording each dropped
// entry's header in skippedHeaders. Must be called with s.mu held.
func (s *Store) evictLocked() {
	high := int(float64(s.cfg.Capacity) * s.cfg.CleanupHigh)
	if len(s.buf) <= high {
		return
	}
	low := int(float64(s.cfg.Capacity) * s.cfg.CleanupLow)
	for len(s.buf) > low {
		hdrBytes, _, n, err := wire.DecodeEntry(s.buf)
		if err != nil || n == 0 {
			// Ring contents are corrupt; drop everything
			// rather than spin.
			s.buf = s.buf[:0]
			return
		}
		if hdr, herr := wire.DecodeHeader(hdrBytes); herr == nil {
			s.skippedHeaders = append(s.skippedHeaders, hdr)
		}
		s.buf = s.buf[n:]
	}
}

// Drain removes and returns the ring's current contents plus any
// headers evicted since the last Drain.
//
// If final is false, Drain returns (nil, nil) unless occupancy is at
// or above FlushThreshold; if final is true it always drains
// everything, even a ring below threshold.
//
// The two returned slices mirror a ring buffer's at-most-two
// contiguous segments; this implementation is backed by a plain
// slice, so the second segment is always empty, but the two-slice
// shape is kept so callers (the sender worker) don't need to change
// if a true circular buffer is substituted later.
func (s *Store) Drain(final bool) (slices [2][]byte, skipped []wire.LocalPacketHeader) {
	s.mu.Lock()
	defer s.mu.Unlock()

	threshold := int(float64(s.cfg.Capacity) * s.cfg.FlushThreshold)
	if !final && len(s.buf) < threshold {
		return slices, nil
	}

	slices[0] = s.buf
	s.buf = make([]byte, 0, s.cfg.Capacity)

	skipped = s.skippedHeaders
	s.skippedHeaders = nil
	return slices, skipped
}

// Len reports current ring occupancy in bytes, for tests and metrics.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buf)
}
