// Package wire implements Sparkles' framed byte-stream format: the
// outer packet framing (EncoderInfo, Data, MissedPage, Frequency,
// Goodbye) and the LocalPacketHeader/ThreadInfo payload shapes.
//
// Serialization uses explicit little-endian field encoding in the
// style of perffile.bufDecoder rather than a reflection-based codec
// like encoding/gob, so the wire format stays byte-exact and portable
// across Go versions.
package wire

// PacketType identifies the outermost framing of one entry in the
// byte stream produced by the sender worker.
type PacketType byte

const (
	PacketEncoderInfo PacketType = 0x00
	PacketData        PacketType = 0x01
	PacketMissedPage  PacketType = 0x02
	PacketFrequency   PacketType = 0x03
	PacketGoodbye     PacketType = 0xff
)

func (t PacketType) String() string {
	switch t {
	case PacketEncoderInfo:
		return "EncoderInfo"
	case PacketData:
		return "Data"
	case PacketMissedPage:
		return "MissedPage"
	case PacketFrequency:
		return "Frequency"
	case PacketGoodbye:
		return "Goodbye"
	default:
		return "Unknown"
	}
}

// EncoderVersion is bumped whenever the wire format changes in a way
// that is not backward compatible. A parser encountering a mismatch
// logs a warning and continues best-effort.
const EncoderVersion uint32 = 1

// EncoderInfo is the one-shot packet emitted when the sender worker
// starts.
type EncoderInfo struct {
	Ver               uint32
	ProcessName       string
	PID               uint32
	TimestampMaxValue uint64
}

// ThreadInfo carries the OS thread id and an optional one-shot rename
// that accompanies a LocalPacketHeader.
type ThreadInfo struct {
	OSThreadID     uint64
	NewThreadName  string
	HasNewName     bool
}

// LocalPacketHeader is the (header) half of a local packet: the
// metadata a recorder attaches to one flush's worth of payload bytes.
type LocalPacketHeader struct {
	ThreadOrdID int

	HasThreadInfo bool
	ThreadInfo    ThreadInfo

	StartTimestamp uint64
	EndTimestamp   uint64

	// IDStore is the full (name, kind) list live at the time of
	// this flush. This implementation ships the full snapshot every
	// packet rather than only newly-added entries.
	IDStore []IDStoreEntry
}

// IDStoreEntry is the wire shape of one iddict.Tag.
type IDStoreEntry struct {
	Name    string
	Kind    uint8 // 0=Instant, 1=RangeStart, 2=RangeEnd
	StartID uint8 // only meaningful when Kind == RangeEnd
}
