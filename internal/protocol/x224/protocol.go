// Package x224 implements the X.224 connection-oriented transport protocol
// used in the RDP connection sequence for initial negotiation.
package x224

import (
	"fmt"
	"io"

	"github.com/rcarmo/rdp-mitm/internal/protocol/tpkt"
)

// tpktConnection is the interface that wraps tpkt protocol operations
type tpktConnection interface {
	Receive() (io.Reader, error)
	Send(pduData []byte) error
}

// Protocol handles X.224 protocol operations
type Protocol struct {
	tpktConn tpktConnection
}

// New creates a new X.224 protocol handler
func New(tpktConn *tpkt.Protocol) *Protocol {
	return &Protocol{
		tpktConn: tpktConn,
	}
}

// NewWithConn creates a new X.224 protocol handler with an interface (for testing)
func NewWithConn(conn tpktConnection) *Protocol {
	return &Protocol{
		tpktConn: conn,
	}
}

// Connect sends a Connection Request carrying userData (the RDP Negotiation
// Request) and waits for the server's Connection Confirm, returning a reader
// positioned at the start of the RDP Negotiation Response that follows it.
func (p *Protocol) Connect(userData []byte) (io.Reader, error) {
	req := ConnectionRequest{
		CRCDT:    crcdtConnectionRequest,
		UserData: userData,
	}

	if err := p.tpktConn.Send(req.Serialize()); err != nil {
		return nil, fmt.Errorf("client connection request: %w", err)
	}

	reader, err := p.tpktConn.Receive()
	if err != nil {
		return nil, fmt.Errorf("recieve connection response: %w", err)
	}

	var cc ConnectionConfirm
	if err := cc.Deserialize(reader); err != nil {
		return nil, fmt.Errorf("server connection confirm: %w", err)
	}

	return reader, nil
}

// Send wraps userData in a Data TPDU and writes it to the underlying
// connection.
func (p *Protocol) Send(userData []byte) error {
	data := Data{
		LI:       dataLength,
		DTROA:    0xF0,
		NREOT:    0x80,
		UserData: userData,
	}

	return p.tpktConn.Send(data.Serialize())
}

// Receive reads a Data TPDU, returning a reader positioned at its payload.
func (p *Protocol) Receive() (io.Reader, error) {
	reader, err := p.tpktConn.Receive()
	if err != nil {
		return nil, err
	}

	var d Data
	if err := d.Deserialize(reader); err != nil {
		return nil, err
	}

	return reader, nil
}
