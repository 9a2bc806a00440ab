package sink

import (
	"fmt"
	"net"
)

// DatagramSink sends each Send call's buffer as a single UDP
// datagram; framing beyond that point is the transport's problem.
type DatagramSink struct {
	conn *net.UDPConn
}

// DatagramConfig configures a DatagramSink. Addr is the remote
// "host:port" the encoder sends to.
type DatagramConfig struct {
	Addr string
}

// DialDatagramSink resolves Addr and opens a connected UDP socket.
func DialDatagramSink(cfg DatagramConfig) (*DatagramSink, error) {
	raddr, err := net.ResolveUDPAddr("udp", cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("sink: resolving datagram address %q: %w", cfg.Addr, err)
	}
	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return nil, fmt.Errorf("sink: dialing datagram sink: %w", err)
	}
	return &DatagramSink{conn: conn}, nil
}

func (s *DatagramSink) Send(data []byte) error {
	_, err := s.conn.Write(data)
	return err
}

func (s *DatagramSink) Close() error {
	return s.conn.Close()
}
