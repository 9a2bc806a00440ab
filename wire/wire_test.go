package wire

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncoderInfoRoundTrip(t *testing.T) {
	in := EncoderInfo{Ver: EncoderVersion, ProcessName: "my-proc", PID: 1234, TimestampMaxValue: 0xffffffff}
	out, err := DecodeEncoderInfo(EncodeEncoderInfo(in))
	require.NoError(t, err)
	require.Equal(t, in, out)
}

func TestHeaderRoundTripWithThreadInfo(t *testing.T) {
	in := LocalPacketHeader{
		ThreadOrdID:   3,
		HasThreadInfo: true,
		ThreadInfo: ThreadInfo{
			OSThreadID:    555,
			NewThreadName: "worker-3",
			HasNewName:    true,
		},
		StartTimestamp: 100,
		EndTimestamp:   200,
		IDStore: []IDStoreEntry{
			{Name: "a", Kind: 0},
			{Name: "b", Kind: 1},
			{Name: "b-done", Kind: 2, StartID: 1},
		},
	}
	out, err := DecodeHeader(EncodeHeader(in))
	require.NoError(t, err)
	require.Equal(t, in, out)
}

func TestHeaderRoundTripWithoutRename(t *testing.T) {
	in := LocalPacketHeader{
		ThreadOrdID:    1,
		HasThreadInfo:  true,
		ThreadInfo:     ThreadInfo{OSThreadID: 42},
		StartTimestamp: 10,
		EndTimestamp:   20,
		IDStore:        []IDStoreEntry{},
	}
	out, err := DecodeHeader(EncodeHeader(in))
	require.NoError(t, err)
	require.Equal(t, in, out)
	require.Empty(t, out.IDStore)
}

func TestEntryFramingRoundTrip(t *testing.T) {
	header := []byte("fake-header-bytes")
	payload := []byte("fake-payload-bytes")
	entry := EncodeEntry(header, payload)

	gotHdr, gotPayload, n, err := DecodeEntry(entry)
	require.NoError(t, err)
	require.Equal(t, len(entry), n)
	require.Equal(t, header, gotHdr)
	require.Equal(t, payload, gotPayload)
}

func TestEntryFramingIsConcatenable(t *testing.T) {
	// Two framed entries back to back must each be independently
	// recoverable, since that's how globalstore.Store's ring and
	// wire's Data packet body are both laid out.
	e1 := EncodeEntry([]byte("h1"), []byte("p1"))
	e2 := EncodeEntry([]byte("h2"), []byte("p2"))
	buf := append(append([]byte{}, e1...), e2...)

	h1, p1, n1, err := DecodeEntry(buf)
	require.NoError(t, err)
	require.Equal(t, []byte("h1"), h1)
	require.Equal(t, []byte("p1"), p1)

	h2, p2, _, err := DecodeEntry(buf[n1:])
	require.NoError(t, err)
	require.Equal(t, []byte("h2"), h2)
	require.Equal(t, []byte("p2"), p2)
}

func TestEncodeFrequencyHasNoLengthPrefix(t *testing.T) {
	buf := EncodeFrequency(123456789)
	require.Len(t, buf, 9)
	require.Equal(t, byte(PacketFrequency), buf[0])
}

func TestEncodeGoodbyeIsOneByte(t *testing.T) {
	require.Equal(t, []byte{byte(PacketGoodbye)}, EncodeGoodbye())
}
