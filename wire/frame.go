package wire

import "encoding/binary"

// EncodeEntry frames one local packet (header, payload) the way the
// global ring stores it: [hdr_len u64][hdr][payload_len u64][payload].
func EncodeEntry(header, payload []byte) []byte {
	w := NewWriter(make([]byte, 0, 16+len(header)+len(payload)))
	w.u64(uint64(len(header)))
	w.bytes(header)
	w.u64(uint64(len(payload)))
	w.bytes(payload)
	return w.Bytes()
}

// DecodeEntry parses one framed (header, payload) entry from the
// front of buf and returns the number of bytes consumed.
func DecodeEntry(buf []byte) (header, payload []byte, n int, err error) {
	r := NewReader(buf)
	hdrLen := r.u64()
	hdr := r.bytes(int(hdrLen))
	payloadLen := r.u64()
	pl := r.bytes(int(payloadLen))
	if r.Err() != nil {
		return nil, nil, 0, r.Err()
	}
	return hdr, pl, len(buf) - len(r.Remaining()), nil
}

// EncodePacket wraps an already-framed body with its outer packet
// type byte and u64 length prefix.
func EncodePacket(t PacketType, body []byte) []byte {
	out := make([]byte, 0, 9+len(body))
	out = append(out, byte(t))
	var lenBuf [8]byte
	binary.LittleEndian.PutUint64(lenBuf[:], uint64(len(body)))
	out = append(out, lenBuf[:]...)
	out = append(out, body...)
	return out
}

// EncodeGoodbye returns the wire bytes for the terminal Goodbye
// packet, which has no length prefix or body.
func EncodeGoodbye() []byte {
	return []byte{byte(PacketGoodbye)}
}

// EncodeFrequency returns the wire bytes for a Frequency packet,
// whose body is exactly 8 bytes -- no separate length prefix, unlike
// the other packet types.
func EncodeFrequency(ticksPerSecond uint64) []byte {
	out := make([]byte, 9)
	out[0] = byte(PacketFrequency)
	binary.LittleEndian.PutUint64(out[1:], ticksPerSecond)
	return out
}
