package datarecording

import (
	"fmt"
	"net"
)

// UDPSink publishes every record as one JSON datagram.
type UDPSink struct {
	conn net.Conn
}

// NewUDPSink connects to a UDP address such as "127.0.0.1:9870".
func NewUDPSink(addr string) (*UDPSink, error) {
	conn, err := net.Dial("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial publish socket %s: %w", addr, err)
	}

	return &UDPSink{conn: conn}, nil
}

// Write sends the record.
func (s *UDPSink) Write(rec *Record) error {
	data, err := rec.MarshalJSON()
	if err != nil {
		return err
	}

	_, err = s.conn.Write(data)

	return err
}

// Flush does nothing; datagrams are not buffered.
func (s *UDPSink) Flush() error {
	return nil
}

// Close closes the socket.
func (s *UDPSink) Close() error {
	return s.conn.Close()
}
