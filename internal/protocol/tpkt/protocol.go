// Package tpkt implements the TPKT transport protocol (RFC 1006) used as
// the base transport layer for RDP connections.
package tpkt

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

const (
	headerLen = 4
	version   = 0x03
)

type Protocol struct {
	conn io.ReadWriteCloser
}

func New(conn io.ReadWriteCloser) *Protocol {
	return &Protocol{
		conn: conn,
	}
}

func NewWithConn(conn io.ReadWriteCloser) *Protocol {
	return New(conn)
}

// Send wraps pdu in a TPKT header and writes it to the connection.
func (p *Protocol) Send(pdu []byte) error {
	totalLen := headerLen + len(pdu)
	if totalLen > 0xFFFF {
		return fmt.Errorf("tpkt: pdu too large: %d bytes", totalLen)
	}

	header := make([]byte, headerLen)
	header[0] = version
	header[1] = 0x00
	binary.BigEndian.PutUint16(header[2:4], uint16(totalLen))

	if _, err := p.conn.Write(header); err != nil {
		return fmt.Errorf("tpkt: write header: %w", err)
	}
	if len(pdu) > 0 {
		if _, err := p.conn.Write(pdu); err != nil {
			return fmt.Errorf("tpkt: write payload: %w", err)
		}
	}
	return nil
}

// Receive reads a single TPKT frame and returns a reader over its payload.
func (p *Protocol) Receive() (io.Reader, error) {
	header := make([]byte, headerLen)
	if _, err := io.ReadFull(p.conn, header); err != nil {
		return nil, fmt.Errorf("tpkt: read header: %w", err)
	}

	totalLen := binary.BigEndian.Uint16(header[2:4])
	if int(totalLen) < headerLen {
		return nil, fmt.Errorf("tpkt: invalid length %d", totalLen)
	}

	payload := make([]byte, int(totalLen)-headerLen)
	if len(payload) > 0 {
		if _, err := io.ReadFull(p.conn, payload); err != nil {
			return nil, fmt.Errorf("tpkt: read payload: %w", err)
		}
	}

	return bytes.NewReader(payload), nil
}

// Close closes the underlying connection.
func (p *Protocol) Close() error {
	return p.conn.Close()
}
