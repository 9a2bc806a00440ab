package parser

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/sparkles-rs/sparkles/wire"
)

// fakeSink collects every call a Parser makes, in order.
type fakeSink struct {
	names  map[int]string
	points []pointCall
	ranges []rangeCall
}

type pointCall struct {
	name        string
	threadOrdID int
	ts          uint64
}

type rangeCall struct {
	name        string
	threadOrdID int
	start, end  uint64
}

func newFakeSink() *fakeSink {
	return &fakeSink{names: make(map[int]string)}
}

func (f *fakeSink) SetThreadName(threadOrdID int, name string) { f.names[threadOrdID] = name }
func (f *fakeSink) AddPointEvent(name string, threadOrdID int, ts uint64) {
	f.points = append(f.points, pointCall{name, threadOrdID, ts})
}
func (f *fakeSink) AddRangeEvent(name string, threadOrdID int, start, end uint64) {
	f.ranges = append(f.ranges, rangeCall{name, threadOrdID, start, end})
}

var _ EventSink = (*fakeSink)(nil)

func instantFrame(id uint8, dif uint64, difLen int) []byte {
	b := []byte{id, byte(difLen)}
	for i := 0; i < difLen; i++ {
		b = append(b, byte(dif>>(8*uint(i))))
	}
	return b
}

func rangeFrame(id uint8, dif uint64, difLen int, ord uint8, named bool) []byte {
	flags := byte(difLen) | 0x80
	if !named {
		flags |= 0x40
	}
	b := []byte{id, flags, ord}
	for i := 0; i < difLen; i++ {
		b = append(b, byte(dif>>(8*uint(i))))
	}
	return b
}

func packStream(pkts ...[]byte) []byte {
	var out []byte
	for _, p := range pkts {
		out = append(out, p...)
	}
	return out
}

func dataPacket(entries ...[]byte) []byte {
	var body []byte
	for _, e := range entries {
		body = append(body, e...)
	}
	return wire.EncodePacket(wire.PacketData, body)
}

func entry(hdr wire.LocalPacketHeader, payload []byte) []byte {
	return wire.EncodeEntry(wire.EncodeHeader(hdr), payload)
}

func TestParserInstantEvent(t *testing.T) {
	hdr := wire.LocalPacketHeader{
		ThreadOrdID:    0,
		StartTimestamp: 1_000_000_000, // 1 tick/ns -> 1s in ns terms once converted
		EndTimestamp:   1_000_000_000,
		IDStore:        []wire.IDStoreEntry{{Name: "tick", Kind: 0}},
	}
	payload := instantFrame(0, 0, 0)
	stream := packStream(
		wire.EncodePacket(wire.PacketEncoderInfo, wire.EncodeEncoderInfo(wire.EncoderInfo{Ver: wire.EncoderVersion})),
		wire.EncodeFrequency(1_000_000_000), // 1 tick/ns
		dataPacket(entry(hdr, payload)),
		wire.EncodeGoodbye(),
	)

	sink := newFakeSink()
	p := New(sink)
	err := p.Run(bytes.NewReader(stream))
	require.NoError(t, err)

	require.Len(t, sink.points, 1)
	require.Equal(t, "tick", sink.points[0].name)
	require.Equal(t, uint64(1_000_000_000), sink.points[0].ts)
}

func TestParserNamedRangePairing(t *testing.T) {
	hdr := wire.LocalPacketHeader{
		ThreadOrdID:    0,
		StartTimestamp: 0,
		EndTimestamp:   100,
		IDStore: []wire.IDStoreEntry{
			{Name: "req", Kind: 1},      // RangeStart
			{Name: "done", Kind: 2, StartID: 0}, // RangeEnd
		},
	}
	payload := append(rangeFrame(0, 0, 0, 0, true), rangeFrame(1, 50, 1, 0, true)...)
	stream := packStream(
		wire.EncodeFrequency(1_000_000_000),
		dataPacket(entry(hdr, payload)),
		wire.EncodeGoodbye(),
	)

	sink := newFakeSink()
	p := New(sink)
	require.NoError(t, p.Run(bytes.NewReader(stream)))

	require.Len(t, sink.ranges, 1)
	require.Equal(t, "req -> done", sink.ranges[0].name)
	require.Equal(t, uint64(0), sink.ranges[0].start)
	require.Equal(t, uint64(50), sink.ranges[0].end)
}

func TestParserUnnamedRangeEnd(t *testing.T) {
	hdr := wire.LocalPacketHeader{
		ThreadOrdID:    0,
		StartTimestamp: 0,
		EndTimestamp:   30,
		IDStore:        []wire.IDStoreEntry{{Name: "req", Kind: 1}},
	}
	payload := append(rangeFrame(0, 0, 0, 0, true), rangeFrame(0, 30, 1, 0, false)...)
	stream := packStream(
		wire.EncodeFrequency(1_000_000_000),
		dataPacket(entry(hdr, payload)),
		wire.EncodeGoodbye(),
	)

	sink := newFakeSink()
	p := New(sink)
	require.NoError(t, p.Run(bytes.NewReader(stream)))

	require.Len(t, sink.ranges, 1)
	require.Equal(t, "req", sink.ranges[0].name)
}

func TestParserSetThreadName(t *testing.T) {
	hdr := wire.LocalPacketHeader{
		ThreadOrdID:   2,
		HasThreadInfo: true,
		ThreadInfo:    wire.ThreadInfo{NewThreadName: "worker-2", HasNewName: true},
	}
	stream := packStream(dataPacket(entry(hdr, nil)), wire.EncodeGoodbye())

	sink := newFakeSink()
	p := New(sink)
	require.NoError(t, p.Run(bytes.NewReader(stream)))
	require.Equal(t, "worker-2", sink.names[2])
}

func TestParserZeroDeltaRunResetsAtPacketBoundary(t *testing.T) {
	// Thread 0 ends one Data packet with a run of trailing zero-delta
	// instant events (the +10ns-per-repeat cosmetic climbs to +30ns),
	// then a new Data packet starts. The first event of the new packet
	// must not inherit that run: it gets +0ns, not +30ns.
	tag := wire.IDStoreEntry{Name: "tick", Kind: 0}
	hdr1 := wire.LocalPacketHeader{ThreadOrdID: 0, StartTimestamp: 1000, IDStore: []wire.IDStoreEntry{tag}}
	payload1 := packStream(
		instantFrame(0, 0, 0),
		instantFrame(0, 0, 0),
		instantFrame(0, 0, 0),
		instantFrame(0, 0, 0),
	)
	hdr2 := wire.LocalPacketHeader{ThreadOrdID: 0, StartTimestamp: 2000, IDStore: []wire.IDStoreEntry{tag}}
	payload2 := instantFrame(0, 0, 0)

	stream := packStream(
		wire.EncodeFrequency(1_000_000_000), // 1 tick/ns
		dataPacket(entry(hdr1, payload1)),
		dataPacket(entry(hdr2, payload2)),
		wire.EncodeGoodbye(),
	)

	sink := newFakeSink()
	p := New(sink)
	require.NoError(t, p.Run(bytes.NewReader(stream)))

	require.Len(t, sink.points, 5)
	require.Equal(t, []uint64{1000, 1010, 1020, 1030, 2000}, []uint64{
		sink.points[0].ts, sink.points[1].ts, sink.points[2].ts, sink.points[3].ts, sink.points[4].ts,
	})
}

func TestParserUnknownPacketTypeIsAnError(t *testing.T) {
	stream := []byte{0x77}
	sink := newFakeSink()
	p := New(sink)
	err := p.Run(bytes.NewReader(stream))
	require.Error(t, err)
	var decErr *DecodeError
	require.ErrorAs(t, err, &decErr)
	require.Equal(t, ErrUnknownPacketType, decErr.Kind)
}

func TestParserCleanEOFIsNotAnError(t *testing.T) {
	stream := packStream(dataPacket(entry(wire.LocalPacketHeader{}, nil)))
	sink := newFakeSink()
	p := New(sink)
	require.NoError(t, p.Run(bytes.NewReader(stream)))
}
