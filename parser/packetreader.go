package parser

import (
	"encoding/binary"
	"errors"
	"io"

	"github.com/sparkles-rs/sparkles/wire"
)

// rawPacket is one packet read off the wire, before type-specific
// decoding.
type rawPacket struct {
	typ  wire.PacketType
	body []byte
}

// readPacket reads one framed packet from r. It
// returns io.EOF (unwrapped) only when the stream ends cleanly right
// at a packet boundary; any other truncation is reported as a
// *DecodeError with ErrDeserialize.
func readPacket(r io.Reader) (rawPacket, error) {
	var typByte [1]byte
	if _, err := io.ReadFull(r, typByte[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return rawPacket{}, io.EOF
		}
		return rawPacket{}, ioError(err)
	}
	t := wire.PacketType(typByte[0])

	switch t {
	case wire.PacketGoodbye:
		return rawPacket{typ: t}, nil

	case wire.PacketFrequency:
		var buf [8]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return rawPacket{}, truncated(err)
		}
		return rawPacket{typ: t, body: buf[:]}, nil

	case wire.PacketEncoderInfo, wire.PacketData, wire.PacketMissedPage:
		var lenBuf [8]byte
		if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
			return rawPacket{}, truncated(err)
		}
		n := binary.LittleEndian.Uint64(lenBuf[:])
		body := make([]byte, n)
		if _, err := io.ReadFull(r, body); err != nil {
			return rawPacket{}, truncated(err)
		}
		return rawPacket{typ: t, body: body}, nil

	default:
		return rawPacket{}, unknownPacketError(typByte[0])
	}
}

func truncated(err error) *DecodeError {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return deserializeError(err)
	}
	return ioError(err)
}
