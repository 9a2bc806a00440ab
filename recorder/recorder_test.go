package recorder

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/sparkles-rs/sparkles/timestamp"
	"github.com/sparkles-rs/sparkles/wire"
)

// fakeProvider is a manually-advanced timestamp.Provider for
// deterministic tests.
type fakeProvider struct {
	now uint64
	max uint64
}

func (f *fakeProvider) Now() uint64      { return f.now }
func (f *fakeProvider) ValidBits() uint  { return 64 }
func (f *fakeProvider) MaxValue() uint64 { return f.max }

var _ timestamp.Provider = (*fakeProvider)(nil)

// fakeSink records every pushed (header, payload) pair.
type fakeSink struct {
	mu      sync.Mutex
	pushed  []wire.LocalPacketHeader
	payload [][]byte
	reject  bool
}

func (s *fakeSink) Push(h wire.LocalPacketHeader, p []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pushed = append(s.pushed, h)
	s.payload = append(s.payload, append([]byte{}, p...))
}

func (s *fakeSink) TryPush(h wire.LocalPacketHeader, p []byte) bool {
	if s.reject {
		return false
	}
	s.Push(h, p)
	return true
}

func noAutoFlush() Config {
	return Config{SoftThreshold: 1 << 30, HardThreshold: 1 << 30}
}

func TestInstantEventBuffersUntilFlush(t *testing.T) {
	sink := &fakeSink{}
	prov := &fakeProvider{max: timestamp.MaxValueForBits(64)}
	r := New(0, prov, sink, noAutoFlush())

	r.InstantEvent(1, "a")
	r.InstantEvent(2, "b")
	require.Empty(t, sink.pushed)

	r.Flush()
	require.Len(t, sink.pushed, 1)
	require.Len(t, sink.payload[0], 4) // two 1-byte-id/0-len-dif frames of 2 bytes each
}

func TestFirstEventInPacketHasZeroDelta(t *testing.T) {
	sink := &fakeSink{}
	prov := &fakeProvider{now: 1000, max: timestamp.MaxValueForBits(64)}
	r := New(0, prov, sink, noAutoFlush())

	r.InstantEvent(1, "a")
	r.Flush()
	require.Len(t, sink.pushed, 1)
	require.Equal(t, uint64(1000), sink.pushed[0].StartTimestamp)
	require.Equal(t, uint64(1000), sink.pushed[0].EndTimestamp)
	require.Equal(t, []byte{0, 0}, sink.payload[0]) // id 0, dif_len 0
}

func TestHeaderCarriesFullIDSnapshotEveryFlush(t *testing.T) {
	// Headers ship the full (name, kind) snapshot every flush, not
	// just newly interned entries.
	sink := &fakeSink{}
	prov := &fakeProvider{max: timestamp.MaxValueForBits(64)}
	r := New(0, prov, sink, noAutoFlush())

	r.InstantEvent(1, "a")
	r.Flush()
	r.InstantEvent(1, "a") // already interned; no new entry
	r.Flush()

	require.Len(t, sink.pushed, 2)
	require.Len(t, sink.pushed[0].IDStore, 1)
	require.Len(t, sink.pushed[1].IDStore, 1)
}

func TestRangeEventStartEndPairsByOrdinal(t *testing.T) {
	sink := &fakeSink{}
	prov := &fakeProvider{max: timestamp.MaxValueForBits(64)}
	r := New(0, prov, sink, noAutoFlush())

	g1 := r.RangeEventStart(1, "outer")
	g2 := r.RangeEventStart(2, "inner")
	g2.End(3, "inner-done")
	g1.End(4, "outer-done")
	r.Flush()

	require.Len(t, sink.pushed, 1)
	require.Len(t, sink.pushed[0].IDStore, 4) // outer, inner, inner-done, outer-done
	// Each end frame carries its own start's ordinal: outer=0, inner=1.
	require.Equal(t, []byte{
		0, 0x80, 0, // outer start
		1, 0x80, 1, // inner start
		2, 0x80, 1, // inner-done
		3, 0x80, 0, // outer-done
	}, sink.payload[0])
}

func TestRangeEndIsIdempotent(t *testing.T) {
	sink := &fakeSink{}
	prov := &fakeProvider{max: timestamp.MaxValueForBits(64)}
	r := New(0, prov, sink, noAutoFlush())

	g := r.RangeEventStart(1, "x")
	g.End(2, "done")
	before := len(r.buf)
	g.End(2, "done-again") // must be a no-op
	require.Equal(t, before, len(r.buf))
}

func TestDropEndsRangeUnnamed(t *testing.T) {
	sink := &fakeSink{}
	prov := &fakeProvider{max: timestamp.MaxValueForBits(64)}
	r := New(0, prov, sink, noAutoFlush())

	g := r.RangeEventStart(1, "x")
	g.Drop()
	r.Flush()
	require.Len(t, sink.pushed[0].IDStore, 1) // only the start got a name
}

func TestSoftThresholdTriesNonBlockingFlush(t *testing.T) {
	sink := &fakeSink{}
	prov := &fakeProvider{max: timestamp.MaxValueForBits(64)}
	r := New(0, prov, sink, Config{SoftThreshold: 3, HardThreshold: 1 << 30})

	r.InstantEvent(1, "a") // 2-byte frame, still under SoftThreshold=3
	r.InstantEvent(1, "a") // 4 bytes buffered, crosses SoftThreshold=3
	require.NotEmpty(t, sink.pushed, "soft threshold should have triggered a tryFlush")
}

func TestSoftThresholdSkipsWhenSinkBusy(t *testing.T) {
	sink := &fakeSink{reject: true}
	prov := &fakeProvider{max: timestamp.MaxValueForBits(64)}
	r := New(0, prov, sink, Config{SoftThreshold: 1, HardThreshold: 1 << 30})

	r.InstantEvent(1, "a")
	require.Empty(t, sink.pushed)
	require.NotEmpty(t, r.buf, "bytes must be retained when the non-blocking push is refused")
}

func TestRangeEventStartPanicsOnOverflow(t *testing.T) {
	sink := &fakeSink{}
	prov := &fakeProvider{max: timestamp.MaxValueForBits(64)}
	r := New(0, prov, sink, noAutoFlush())

	guards := make([]*RangeGuard, maxOpenRanges)
	for i := 0; i < maxOpenRanges; i++ {
		guards[i] = r.RangeEventStart(uint32(i), "x")
	}
	require.Panics(t, func() {
		r.RangeEventStart(uint32(maxOpenRanges), "overflow")
	})

	guards[0].Drop()
	require.NotPanics(t, func() {
		r.RangeEventStart(uint32(maxOpenRanges), "fits-now")
	})
}

func TestSetThreadNameIsOneShot(t *testing.T) {
	sink := &fakeSink{}
	prov := &fakeProvider{max: timestamp.MaxValueForBits(64)}
	r := New(0, prov, sink, noAutoFlush())

	r.SetThreadName("worker-1")
	r.InstantEvent(1, "a")
	r.Flush()
	require.True(t, sink.pushed[0].ThreadInfo.HasNewName)
	require.Equal(t, "worker-1", sink.pushed[0].ThreadInfo.NewThreadName)

	r.InstantEvent(1, "a")
	r.Flush()
	require.False(t, sink.pushed[1].ThreadInfo.HasNewName, "rename must not repeat on the next flush")
}
