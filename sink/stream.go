package sink

import (
	"encoding/binary"
	"fmt"
	"net"
)

// StreamSink sends the wire byte stream over a TCP connection. Unlike
// DatagramSink, a stream transport has no inherent message boundary,
// so each Send is length-prefixed (u64 LE) on the wire to let a
// receiver reconstruct call boundaries: a stream socket is a sink
// kind whose message framing is left to the transport, and this is
// this module's choice of framing for it.
type StreamSink struct {
	conn net.Conn
}

// StreamConfig configures a StreamSink.
type StreamConfig struct {
	Addr string
}

// DialStreamSink opens a TCP connection to cfg.Addr.
func DialStreamSink(cfg StreamConfig) (*StreamSink, error) {
	conn, err := net.Dial("tcp", cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("sink: dialing stream sink: %w", err)
	}
	return &StreamSink{conn: conn}, nil
}

func (s *StreamSink) Send(data []byte) error {
	var lenBuf [8]byte
	binary.LittleEndian.PutUint64(lenBuf[:], uint64(len(data)))
	if _, err := s.conn.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := s.conn.Write(data)
	return err
}

func (s *StreamSink) Close() error {
	return s.conn.Close()
}
