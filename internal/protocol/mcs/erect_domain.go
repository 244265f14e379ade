package mcs

import (
	"bytes"
	"fmt"
	"io"

	"github.com/rcarmo/rdp-mitm/internal/protocol/encoding"
)

// ClientErectDomainRequest is the ErectDomainRequest PDU body (T.125
// section 7): subHeight and subInterval, both unused by a two-node domain
// like ours and carried only because real clients send them.
type ClientErectDomainRequest struct {
	SubHeight int
	SubInterval int
}

func (pdu *ClientErectDomainRequest) Serialize() []byte {
	buf := new(bytes.Buffer)

	encoding.PerWriteInteger(0, buf)
	encoding.PerWriteInteger(0, buf)

	return buf.Bytes()
}

// Deserialize reads subHeight and subInterval. Windows clients have been
// observed sending malformed PER integers here; a decode failure on either
// field substitutes the T.125 defaults (1, 1) rather than failing the PDU.
func (pdu *ClientErectDomainRequest) Deserialize(wire io.Reader) error {
	pdu.SubHeight = 1
	pdu.SubInterval = 1

	if v, err := encoding.PerReadInteger(wire); err == nil {
		pdu.SubHeight = v
	} else {
		return nil
	}

	if v, err := encoding.PerReadInteger(wire); err == nil {
		pdu.SubInterval = v
	}

	return nil
}

func (p *Protocol) ErectDomain() error {
	req := DomainPDU{
		Application:              erectDomainRequest,
		ClientErectDomainRequest: &ClientErectDomainRequest{},
	}

	if err := p.x224Conn.Send(req.Serialize()); err != nil {
		return fmt.Errorf("client MCS erect domain request: %w", err)
	}

	return nil
}
