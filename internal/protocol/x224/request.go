package x224

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Connection Request TPDU codes.
const (
	crcdtConnectionRequest = 0xE0
)

// ConnectionRequest is the client X.224 Connection Request TPDU (MS-RDPBCGR
// 2.2.1.1). VariablePart carries any fixed-part extension fields (unused by
// this implementation); UserData carries the RDP Negotiation Request.
type ConnectionRequest struct {
	CRCDT        byte
	DSTREF       uint16
	SRCREF       uint16
	ClassOption  byte
	VariablePart []byte
	UserData     []byte
}

// Serialize encodes the TPDU, computing LI from the body length.
func (r ConnectionRequest) Serialize() []byte {
	body := make([]byte, 0, 6+len(r.VariablePart)+len(r.UserData))
	body = append(body, r.CRCDT)
	dstref := make([]byte, 2)
	binary.BigEndian.PutUint16(dstref, r.DSTREF)
	body = append(body, dstref...)
	srcref := make([]byte, 2)
	binary.BigEndian.PutUint16(srcref, r.SRCREF)
	body = append(body, srcref...)
	body = append(body, r.ClassOption)
	body = append(body, r.VariablePart...)
	body = append(body, r.UserData...)

	out := make([]byte, 0, 1+len(body))
	out = append(out, byte(len(body)))
	out = append(out, body...)
	return out
}

// Deserialize reads a Connection Request TPDU, used by the proxy's
// client-facing leg to terminate the real client's own request. UserData
// carries everything past the fixed fields: the RDP cookie/routing token
// and the RDP Negotiation Request.
func (r *ConnectionRequest) Deserialize(wire io.Reader) error {
	var li uint8
	if err := binary.Read(wire, binary.BigEndian, &li); err != nil {
		return fmt.Errorf("x224: read connection request length: %w", err)
	}

	body := make([]byte, li)
	if _, err := io.ReadFull(wire, body); err != nil {
		return fmt.Errorf("x224: read connection request body: %w", err)
	}
	if len(body) < 6 {
		return fmt.Errorf("x224: connection request body too short: %d bytes", len(body))
	}

	r.CRCDT = body[0]
	r.DSTREF = binary.BigEndian.Uint16(body[1:3])
	r.SRCREF = binary.BigEndian.Uint16(body[3:5])
	r.ClassOption = body[5]
	r.UserData = body[6:]

	return nil
}
