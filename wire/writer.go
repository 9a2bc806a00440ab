package wire

import "encoding/binary"

// Writer accumulates little-endian encoded fields into a byte slice.
// It mirrors perffile.bufDecoder's shape but writes instead of reads.
type Writer struct {
	buf []byte
}

// NewWriter returns a Writer with buf as its initial backing array
// (len 0, existing capacity reused).
func NewWriter(buf []byte) *Writer {
	return &Writer{buf: buf[:0]}
}

// Bytes returns the accumulated bytes.
func (w *Writer) Bytes() []byte { return w.buf }

func (w *Writer) byte(b byte) {
	w.buf = append(w.buf, b)
}

func (w *Writer) bytes(b []byte) {
	w.buf = append(w.buf, b...)
}

func (w *Writer) u32(x uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], x)
	w.bytes(b[:])
}

func (w *Writer) u64(x uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], x)
	w.bytes(b[:])
}

// lenString writes a u32 length prefix followed by the raw bytes of s.
func (w *Writer) lenString(s string) {
	w.u32(uint32(len(s)))
	w.bytes([]byte(s))
}

func (w *Writer) boolByte(b bool) {
	if b {
		w.byte(1)
	} else {
		w.byte(0)
	}
}

// EncodeEncoderInfo serializes an EncoderInfo struct.
func EncodeEncoderInfo(info EncoderInfo) []byte {
	w := NewWriter(nil)
	w.u32(info.Ver)
	w.lenString(info.ProcessName)
	w.u32(info.PID)
	w.u64(info.TimestampMaxValue)
	return w.Bytes()
}

// EncodeHeader serializes a LocalPacketHeader.
func EncodeHeader(h LocalPacketHeader) []byte {
	w := NewWriter(nil)
	w.u64(uint64(h.ThreadOrdID))
	w.boolByte(h.HasThreadInfo)
	if h.HasThreadInfo {
		w.u64(h.ThreadInfo.OSThreadID)
		w.boolByte(h.ThreadInfo.HasNewName)
		if h.ThreadInfo.HasNewName {
			w.lenString(h.ThreadInfo.NewThreadName)
		}
	}
	w.u64(h.StartTimestamp)
	w.u64(h.EndTimestamp)
	w.u32(uint32(len(h.IDStore)))
	for _, e := range h.IDStore {
		w.lenString(e.Name)
		w.byte(e.Kind)
		w.byte(e.StartID)
	}
	return w.Bytes()
}
