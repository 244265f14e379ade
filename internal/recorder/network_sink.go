package recorder

import (
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
)

// NetworkSink streams recorded frames to a remote collector over a
// websocket connection, one binary message per frame.
type NetworkSink struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

// DialNetworkSink connects to a replay-collector endpoint at addr
// (e.g. "wss://collector.example/ingest").
func DialNetworkSink(addr string) (*NetworkSink, error) {
	conn, _, err := websocket.DefaultDialer.Dial(addr, nil)
	if err != nil {
		return nil, fmt.Errorf("recorder: dial network sink %s: %w", addr, err)
	}
	return &NetworkSink{conn: conn}, nil
}

// Write implements Sink.
func (s *NetworkSink) Write(frame []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		return fmt.Errorf("recorder: network sink write: %w", err)
	}
	return nil
}

// Close implements Sink.
func (s *NetworkSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.Close()
}
