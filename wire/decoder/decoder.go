// Package decoder implements the per-thread stream decoder: a
// byte-triggered state machine that reassembles typed events from a
// packet's payload regardless of how the bytes are chunked across
// Feed calls.
package decoder

// EventKind classifies a decoded Event.
type EventKind int

const (
	// Instant is a point-in-time event: (ID, dif_tm).
	Instant EventKind = iota
	// RangePart is either half of a named range: (ID, dif_tm, ord).
	// Whether it is the start or the end is determined by the
	// caller looking ID up in the packet's id_store.
	RangePart
	// UnnamedRangeEnd is a range end whose name must be looked up
	// via the matching start event: (dif_tm, ord).
	UnnamedRangeEnd
)

// Event is one decoded frame from a packet payload.
type Event struct {
	Kind EventKind
	ID   uint8 // unused (zero) for UnnamedRangeEnd
	Dif  uint64
	Ord  uint8 // unused for Instant
}

// state is the decoder's position within the frame grammar.
type state int

const (
	stateNewFrame state = iota
	stateDifTmLen
	stateDifTm
	stateRangeOrdID
	stateRangeTm
)

// Decoder is a stateful, byte-oriented frame reassembler for one
// thread's payload stream. The zero value is ready to use.
type Decoder struct {
	st state

	// pending frame fields, filled in as bytes arrive
	id         uint8
	difLen     int
	isRange    bool
	hasName    bool // valid when isRange: true => RangePart, false => UnnamedRangeEnd
	ord        uint8

	// buf holds bytes fed but not yet consumed by a state
	// transition (at most 8, for the dif_tm tail).
	buf []byte
}

// Feed appends bytes to the decoder and returns every event that
// could be fully decoded from the accumulated stream so far. Partial
// trailing frames are retained in internal state until more bytes
// arrive, including the degenerate case of being fed one byte at a
// time.
func (d *Decoder) Feed(b []byte) []Event {
	d.buf = append(d.buf, b...)
	var events []Event
	for {
		ev, consumed, ok := d.step()
		if !ok {
			break
		}
		d.buf = d.buf[consumed:]
		if ev != nil {
			events = append(events, *ev)
		}
	}
	return events
}

// step attempts one state transition against the front of d.buf. It
// returns ok=false if there aren't enough buffered bytes yet.
func (d *Decoder) step() (*Event, int, bool) {
	switch d.st {
	case stateNewFrame:
		if len(d.buf) < 1 {
			return nil, 0, false
		}
		d.id = d.buf[0]
		d.st = stateDifTmLen
		return nil, 1, true

	case stateDifTmLen:
		if len(d.buf) < 1 {
			return nil, 0, false
		}
		b := d.buf[0]
		d.difLen = int(b & 0x0F)
		d.isRange = b&0x80 != 0
		d.hasName = b&0x40 == 0
		if d.isRange {
			d.st = stateRangeOrdID
		} else {
			d.st = stateDifTm
		}
		return nil, 1, true

	case stateDifTm:
		if len(d.buf) < d.difLen {
			return nil, 0, false
		}
		dif := leUint(d.buf[:d.difLen])
		ev := &Event{Kind: Instant, ID: d.id, Dif: dif}
		d.st = stateNewFrame
		return ev, d.difLen, true

	case stateRangeOrdID:
		if len(d.buf) < 1 {
			return nil, 0, false
		}
		d.ord = d.buf[0]
		d.st = stateRangeTm
		return nil, 1, true

	case stateRangeTm:
		if len(d.buf) < d.difLen {
			return nil, 0, false
		}
		dif := leUint(d.buf[:d.difLen])
		var ev *Event
		if d.hasName {
			ev = &Event{Kind: RangePart, ID: d.id, Dif: dif, Ord: d.ord}
		} else {
			ev = &Event{Kind: UnnamedRangeEnd, Dif: dif, Ord: d.ord}
		}
		d.st = stateNewFrame
		return ev, d.difLen, true

	default:
		panic("decoder: unreachable state")
	}
}

// AtFrameBoundary reports whether the decoder is between frames with
// no pending bytes, i.e. the payload it has consumed so far is
// well-formed on its own. A malformed stream will fail this check at
// end-of-payload.
func (d *Decoder) AtFrameBoundary() bool {
	return d.st == stateNewFrame && len(d.buf) == 0
}

func leUint(b []byte) uint64 {
	var x uint64
	for i, c := range b {
		x |= uint64(c) << (8 * uint(i))
	}
	return x
}
