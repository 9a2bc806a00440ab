// Package parser turns the framed byte stream produced by the worker
// package back into named point and range events, driving an
// EventSink in the process.
package parser

import (
	"io"

	"github.com/sparkles-rs/sparkles/internal/telemetry"
	"github.com/sparkles-rs/sparkles/wire"
	"github.com/sparkles-rs/sparkles/wire/decoder"
)

// openRange is a RangeStart event waiting for its matching end,
// indexed by the recorder-assigned range ordinal: the ordinal, not
// the interned id, is what pairs a start with its end.
type openRange struct {
	name     string
	startNs  uint64
}

// threadState is the per-thread_ord_id accumulator the parser keeps
// across however many Data packets carry that thread's events.
type threadState struct {
	dec  decoder.Decoder
	dict []wire.IDStoreEntry

	curTm   uint64
	hasTick bool // unused: processEntry detects each packet's first event by its index

	openRanges map[uint8]openRange

	zeroRun uint64 // consecutive zero-delta events seen, for the +10ns cosmetic
}

func newThreadState() *threadState {
	return &threadState{openRanges: make(map[uint8]openRange)}
}

func (ts *threadState) tagAt(id uint8) wire.IDStoreEntry {
	if int(id) < len(ts.dict) {
		return ts.dict[id]
	}
	return wire.IDStoreEntry{Name: "<unknown>"}
}

// Parser consumes a Sparkles wire stream and dispatches decoded events
// to an EventSink in timestamp order per thread.
type Parser struct {
	sink EventSink

	info    wire.EncoderInfo
	haveInfo bool

	ticksPerNs    float64
	haveFreq      bool
	warnedNoFreq  bool

	threads map[int]*threadState
}

// New creates a Parser that reports decoded events to sink.
func New(sink EventSink) *Parser {
	return &Parser{sink: sink, threads: make(map[int]*threadState)}
}

// EncoderInfo returns the most recently seen EncoderInfo packet, if
// any has arrived yet.
func (p *Parser) EncoderInfo() (wire.EncoderInfo, bool) {
	return p.info, p.haveInfo
}

// Run reads packets from r until Goodbye or a clean EOF, dispatching
// decoded events to the Parser's EventSink. It returns a *DecodeError
// on any malformed input.
func (p *Parser) Run(r io.Reader) error {
	for {
		pkt, err := readPacket(r)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		switch pkt.typ {
		case wire.PacketGoodbye:
			return nil

		case wire.PacketEncoderInfo:
			info, err := wire.DecodeEncoderInfo(pkt.body)
			if err != nil {
				return deserializeError(err)
			}
			if info.Ver != wire.EncoderVersion {
				telemetry.Log.Warn().Uint32("wire_version", info.Ver).Msg("encoder version mismatch, continuing best-effort")
			}
			p.info = info
			p.haveInfo = true

		case wire.PacketFrequency:
			if len(pkt.body) != 8 {
				return deserializeError(errShortFrequency)
			}
			ticksPerSecond := leUint64(pkt.body)
			p.ticksPerNs = float64(ticksPerSecond) / 1e9
			p.haveFreq = true

		case wire.PacketMissedPage:
			hdr, err := wire.DecodeHeader(pkt.body)
			if err != nil {
				return deserializeError(err)
			}
			telemetry.Log.Warn().Int("thread_ord_id", hdr.ThreadOrdID).Msg("skipping events dropped under ring-buffer pressure")

		case wire.PacketData:
			if err := p.handleData(pkt.body); err != nil {
				return err
			}

		default:
			return unknownPacketError(byte(pkt.typ))
		}
	}
}

// handleData walks the [hdr_len][hdr][payload_len][payload] entries
// packed into one Data packet's body.
func (p *Parser) handleData(body []byte) error {
	for len(body) > 0 {
		hdrBytes, payload, n, err := wire.DecodeEntry(body)
		if err != nil {
			return deserializeError(err)
		}
		body = body[n:]

		hdr, err := wire.DecodeHeader(hdrBytes)
		if err != nil {
			return deserializeError(err)
		}
		if err := p.processEntry(hdr, payload); err != nil {
			return err
		}
	}
	return nil
}

func (p *Parser) processEntry(hdr wire.LocalPacketHeader, payload []byte) error {
	ts, ok := p.threads[hdr.ThreadOrdID]
	if !ok {
		ts = newThreadState()
		p.threads[hdr.ThreadOrdID] = ts
	}
	ts.dict = hdr.IDStore // full snapshot every packet

	if hdr.HasThreadInfo && hdr.ThreadInfo.HasNewName {
		p.sink.SetThreadName(hdr.ThreadOrdID, hdr.ThreadInfo.NewThreadName)
	}

	ts.curTm = hdr.StartTimestamp

	events := ts.dec.Feed(payload)
	if !ts.dec.AtFrameBoundary() {
		return deserializeError(errTruncatedFrame)
	}

	for i, ev := range events {
		if i > 0 {
			ts.curTm += ev.Dif
		}
		// The first event of a packet always resets the zero-delta
		// run, even if its own dif happens to be 0: a packet boundary
		// breaks the run the same way a non-zero dif would.
		if i == 0 || ev.Dif != 0 {
			ts.zeroRun = 0
		} else {
			ts.zeroRun++
		}

		tsNs := p.ticksToNs(ts.curTm) + ts.zeroRun*10

		switch ev.Kind {
		case decoder.Instant:
			tag := ts.tagAt(ev.ID)
			p.sink.AddPointEvent(tag.Name, hdr.ThreadOrdID, tsNs)

		case decoder.RangePart:
			tag := ts.tagAt(ev.ID)
			if tag.Kind == uint8(rangeEndKind) {
				start, ok := ts.openRanges[ev.Ord]
				delete(ts.openRanges, ev.Ord)
				name := tag.Name
				if ok {
					name = start.name + " -> " + tag.Name
				}
				startNs := tsNs
				if ok {
					startNs = start.startNs
				}
				p.sink.AddRangeEvent(name, hdr.ThreadOrdID, startNs, tsNs)
			} else {
				ts.openRanges[ev.Ord] = openRange{name: tag.Name, startNs: tsNs}
			}

		case decoder.UnnamedRangeEnd:
			start, ok := ts.openRanges[ev.Ord]
			delete(ts.openRanges, ev.Ord)
			name := start.name
			startNs := tsNs
			if ok {
				startNs = start.startNs
			}
			p.sink.AddRangeEvent(name, hdr.ThreadOrdID, startNs, tsNs)
		}
	}
	return nil
}

// rangeEndKind mirrors iddict.RangeEnd without importing the iddict
// package purely for one constant; the wire value is already the
// plain uint8 the wire format defines (0=Instant, 1=RangeStart, 2=RangeEnd).
const rangeEndKind = 2

// ticksToNs converts a raw tick count to nanoseconds using the most
// recently received Frequency packet, defaulting to a 1:1 ratio with a
// one-time warning if none has arrived yet.
func (p *Parser) ticksToNs(ticks uint64) uint64 {
	if !p.haveFreq {
		if !p.warnedNoFreq {
			telemetry.Log.Warn().Msg("no Frequency packet received yet, assuming 1 tick = 1ns")
			p.warnedNoFreq = true
		}
		return ticks
	}
	return uint64(float64(ticks) / p.ticksPerNs)
}

func leUint64(b []byte) uint64 {
	var x uint64
	for i := 0; i < 8; i++ {
		x |= uint64(b[i]) << (8 * uint(i))
	}
	return x
}
