// Package recorder implements the thread-local hot path: assigning
// compact event IDs, reading a hardware timestamp, delta-encoding it,
// and appending the result to a byte buffer that is periodically
// handed off to a globalstore.Store.
//
// A *Recorder is owned by exactly one goroutine for its whole
// lifetime: no locks, no atomics, no allocations in the steady state.
// Nothing in this package synchronizes access to a Recorder's own
// fields; callers must not share one across goroutines, matching the
// non-transferability of a native thread-local.
package recorder

import (
	"fmt"

	"github.com/sparkles-rs/sparkles/iddict"
	"github.com/sparkles-rs/sparkles/internal/procinfo"
	"github.com/sparkles-rs/sparkles/timestamp"
	"github.com/sparkles-rs/sparkles/wire"
)

// Sink is the subset of globalstore.Store a Recorder pushes flushed
// packets into. Kept as an interface so recorder can be unit tested
// without a real ring buffer.
type Sink interface {
	Push(header wire.LocalPacketHeader, payload []byte)
	TryPush(header wire.LocalPacketHeader, payload []byte) bool
}

// Config controls the auto-flush thresholds.
type Config struct {
	// SoftThreshold triggers a non-blocking push attempt; if the
	// store is busy being drained the recorder just keeps going
	// and tries again on the next event.
	SoftThreshold int
	// HardThreshold triggers a blocking push: the calling
	// goroutine waits until the store accepts the packet.
	HardThreshold int
}

// DefaultConfig returns the standard thresholds: 32KiB soft, 1MiB hard.
func DefaultConfig() Config {
	return Config{SoftThreshold: 32 * 1024, HardThreshold: 1024 * 1024}
}

// Recorder is the thread-local encoder.
type Recorder struct {
	provider timestamp.Provider
	sink     Sink
	cfg      Config

	threadOrdID int
	osThreadID  uint64

	dict Dict

	buf []byte

	prevTm  uint64
	startTm uint64 // 0 means the current packet is empty

	rangeOrdCounter uint8
	openRanges      int // number of RangeStart calls not yet matched by an End

	pendingRename string
	hasRename     bool
}

// Dict is an alias for iddict.Dict, the ID dictionary each Recorder
// owns.
type Dict = iddict.Dict

// New creates a Recorder bound to threadOrdID (a process-unique,
// monotonically assigned handle; see globalstore.Store.NextThreadOrdID)
// that reads timestamps from provider and flushes to sink.
func New(threadOrdID int, provider timestamp.Provider, sink Sink, cfg Config) *Recorder {
	return &Recorder{
		provider:    provider,
		sink:        sink,
		cfg:         cfg,
		threadOrdID: threadOrdID,
		osThreadID:  procinfo.OSThreadID(),
	}
}

// SetThreadName queues a one-shot rename that accompanies the next
// flushed header's ThreadInfo.
func (r *Recorder) SetThreadName(name string) {
	r.pendingRename = name
	r.hasRename = true
}

func (r *Recorder) observe(now uint64) (dif uint64) {
	if r.startTm == 0 {
		r.startTm = now
		r.prevTm = now
		return 0
	}
	dif = timestamp.Delta(now, r.prevTm, r.provider.MaxValue())
	r.prevTm = now
	return dif
}

// InstantEvent records a point-in-time event.
func (r *Recorder) InstantEvent(hash uint32, name string) {
	id := r.dict.Intern(hash, name, iddict.Instant)
	now := r.provider.Now()
	dif := r.observe(now)
	r.appendInstant(id, dif)
	r.autoFlush()
}

func (r *Recorder) appendInstant(id uint8, dif uint64) {
	difLen := timestamp.MinBytes(dif)
	r.buf = append(r.buf, id, byte(difLen))
	appendLE(&r.buf, dif, difLen)
}

// RangeGuard is the opaque handle returned by RangeEventStart. It is
// not safe to move across goroutines: it is only meaningful on the
// Recorder that created it. RangeGuard embeds a
// noCopy marker so `go vet -copylocks` flags accidental copies; this
// is a documentation aid, not an enforced runtime check, mirroring
// how Go idiom marks ownership it cannot fully verify at compile time
// (cf. sync.WaitGroup's noCopy field).
type RangeGuard struct {
	_        noCopy
	rec      *Recorder
	startID  uint8
	rangeOrd uint8
	ended    bool
}

type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// maxOpenRanges is the largest number of simultaneously open ranges a
// thread may hold. The range ordinal is a single wrapping byte; with
// at most this many ranges open at once, no two open ranges share an
// ordinal.
const maxOpenRanges = 255

// RangeOverflowError is panicked (mirroring iddict.CapacityError) when
// a thread tries to open more than maxOpenRanges ranges at once
// without closing any of them.
type RangeOverflowError struct {
	Max int
}

func (e *RangeOverflowError) Error() string {
	return fmt.Sprintf("recorder: more than %d simultaneously open ranges on one thread", e.Max)
}

// RangeEventStart records the start of a named range and returns a
// guard used to end it. It panics with *RangeOverflowError if the
// thread already has maxOpenRanges ranges open.
func (r *Recorder) RangeEventStart(hash uint32, name string) *RangeGuard {
	if r.openRanges >= maxOpenRanges {
		panic(&RangeOverflowError{Max: maxOpenRanges})
	}

	rangeOrd := r.rangeOrdCounter
	r.rangeOrdCounter++ // post-increment starting at 0

	startID := r.dict.Intern(hash, name, iddict.RangeStart)
	now := r.provider.Now()
	dif := r.observe(now)
	r.appendRangeFrame(startID, dif, rangeOrd, true)
	r.autoFlush()

	r.openRanges++
	return &RangeGuard{rec: r, startID: startID, rangeOrd: rangeOrd}
}

func (r *Recorder) appendRangeFrame(id uint8, dif uint64, ord uint8, named bool) {
	difLen := timestamp.MinBytes(dif)
	flags := byte(difLen) | 0x80
	if !named {
		flags |= 0x40
	}
	r.buf = append(r.buf, id, flags, ord)
	appendLE(&r.buf, dif, difLen)
}

// End closes a named range end. If name is empty this behaves like
// Drop: it records an unnamed range end instead.
func (g *RangeGuard) End(hash uint32, name string) {
	if g.ended {
		return
	}
	g.ended = true
	r := g.rec
	if name != "" {
		endID, err := r.dict.InternRangeEnd(hash, name, g.startID)
		if err != nil {
			panic(err)
		}
		now := r.provider.Now()
		dif := r.observe(now)
		r.appendRangeFrame(endID, dif, g.rangeOrd, true)
	} else {
		now := r.provider.Now()
		dif := r.observe(now)
		r.appendRangeFrame(0, dif, g.rangeOrd, false)
	}
	r.autoFlush()
	r.openRanges--
}

// Drop ends the range without a name, identical to End(0, ""). It is
// provided so callers can `defer guard.Drop()` the way a Rust RAII
// guard would end the range on scope exit.
func (g *RangeGuard) Drop() {
	g.End(0, "")
}

func appendLE(buf *[]byte, v uint64, n int) {
	for i := 0; i < n; i++ {
		*buf = append(*buf, byte(v>>(8*uint(i))))
	}
}

// autoFlush implements the soft/hard threshold policy: a non-blocking
// attempt at the soft threshold, a blocking push at the hard
// threshold.
func (r *Recorder) autoFlush() {
	n := len(r.buf)
	if n >= r.cfg.HardThreshold {
		r.Flush()
		return
	}
	if n >= r.cfg.SoftThreshold {
		r.tryFlush()
	}
}

func (r *Recorder) header() wire.LocalPacketHeader {
	h := wire.LocalPacketHeader{
		ThreadOrdID:    r.threadOrdID,
		StartTimestamp: r.startTm,
		EndTimestamp:   r.prevTm,
		IDStore:        tagsToWire(r.dict.Tags()),
	}
	if r.hasRename {
		h.HasThreadInfo = true
		h.ThreadInfo = wire.ThreadInfo{
			OSThreadID:    r.osThreadID,
			NewThreadName: r.pendingRename,
			HasNewName:    true,
		}
	} else {
		h.HasThreadInfo = true
		h.ThreadInfo = wire.ThreadInfo{OSThreadID: r.osThreadID}
	}
	return h
}

// Flush hands the current buffer to the global store, blocking until
// accepted. It is a no-op if the buffer is empty.
func (r *Recorder) Flush() {
	if len(r.buf) == 0 {
		return
	}
	h := r.header()
	payload := r.buf
	r.resetAfterFlush()
	r.sink.Push(h, payload)
}

// tryFlush is the non-blocking counterpart used by the soft
// threshold: if the store is busy, the recorder just keeps the bytes
// and tries again later.
func (r *Recorder) tryFlush() bool {
	if len(r.buf) == 0 {
		return true
	}
	h := r.header()
	if r.sink.TryPush(h, r.buf) {
		r.resetAfterFlush()
		return true
	}
	return false
}

func (r *Recorder) resetAfterFlush() {
	r.buf = nil
	r.startTm = 0
	r.hasRename = false
	r.pendingRename = ""
}

// Close flushes any remaining buffered events. Recorders must flush
// on drop; Go has no destructors, so callers are
// responsible for calling Close (or relying on FinalizeGuard, which
// flushes all registered recorders) before discarding a Recorder.
func (r *Recorder) Close() {
	r.Flush()
}

func tagsToWire(tags []iddict.Tag) []wire.IDStoreEntry {
	out := make([]wire.IDStoreEntry, len(tags))
	for i, t := range tags {
		out[i] = wire.IDStoreEntry{Name: t.Name, Kind: uint8(t.Kind), StartID: t.StartID}
	}
	return out
}
