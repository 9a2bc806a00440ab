package wire

import (
	"encoding/binary"
	"fmt"
)

// Reader decodes little-endian fields from a byte slice, consuming it
// as it goes. It is the mirror of Writer and is grounded directly on
// perffile.bufDecoder's style of small stateful accessor methods.
type Reader struct {
	buf []byte
	err error
}

// NewReader wraps buf for reading. The Reader does not copy buf.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Err returns the first error encountered, if any.
func (r *Reader) Err() error { return r.err }

func (r *Reader) need(n int) bool {
	if r.err != nil {
		return false
	}
	if len(r.buf) < n {
		r.err = fmt.Errorf("wire: short buffer: need %d bytes, have %d", n, len(r.buf))
		return false
	}
	return true
}

func (r *Reader) byte() byte {
	if !r.need(1) {
		return 0
	}
	b := r.buf[0]
	r.buf = r.buf[1:]
	return b
}

func (r *Reader) bytes(n int) []byte {
	if !r.need(n) {
		return nil
	}
	b := r.buf[:n]
	r.buf = r.buf[n:]
	return b
}

func (r *Reader) u32() uint32 {
	if !r.need(4) {
		return 0
	}
	x := binary.LittleEndian.Uint32(r.buf)
	r.buf = r.buf[4:]
	return x
}

func (r *Reader) u64() uint64 {
	if !r.need(8) {
		return 0
	}
	x := binary.LittleEndian.Uint64(r.buf)
	r.buf = r.buf[8:]
	return x
}

func (r *Reader) lenString() string {
	n := r.u32()
	b := r.bytes(int(n))
	if b == nil {
		return ""
	}
	return string(b)
}

func (r *Reader) boolByte() bool {
	return r.byte() != 0
}

// Remaining returns the unread tail of the buffer.
func (r *Reader) Remaining() []byte { return r.buf }

// DecodeEncoderInfo parses an EncoderInfo struct.
func DecodeEncoderInfo(buf []byte) (EncoderInfo, error) {
	r := NewReader(buf)
	info := EncoderInfo{
		Ver:         r.u32(),
		ProcessName: r.lenString(),
		PID:         r.u32(),
	}
	info.TimestampMaxValue = r.u64()
	return info, r.Err()
}

// DecodeHeader parses a LocalPacketHeader.
func DecodeHeader(buf []byte) (LocalPacketHeader, error) {
	r := NewReader(buf)
	var h LocalPacketHeader
	h.ThreadOrdID = int(r.u64())
	h.HasThreadInfo = r.boolByte()
	if h.HasThreadInfo {
		h.ThreadInfo.OSThreadID = r.u64()
		h.ThreadInfo.HasNewName = r.boolByte()
		if h.ThreadInfo.HasNewName {
			h.ThreadInfo.NewThreadName = r.lenString()
		}
	}
	h.StartTimestamp = r.u64()
	h.EndTimestamp = r.u64()
	n := r.u32()
	h.IDStore = make([]IDStoreEntry, 0, n)
	for i := uint32(0); i < n; i++ {
		var e IDStoreEntry
		e.Name = r.lenString()
		e.Kind = r.byte()
		e.StartID = r.byte()
		h.IDStore = append(h.IDStore, e)
	}
	return h, r.Err()
}
