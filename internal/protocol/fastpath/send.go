package fastpath

import (
	"bytes"
	"encoding/binary"
	"io"
)

// Fast-Path input header action/flags (MS-RDPBCGR 2.2.8.1.2).
const (
	inputActionFastPath uint8 = 0x0
)

// InputEventPDU is a TS_FP_INPUT_PDU: a fast-path-encoded batch of client
// input events (keyboard, mouse, sync) sent in a single packet.
type InputEventPDU struct {
	action    uint8
	numEvents uint8
	flags     uint8
	eventData []byte
}

// NewInputEventPDU wraps a single pre-serialized input event for sending.
func NewInputEventPDU(eventData []byte) *InputEventPDU {
	return &InputEventPDU{
		action:    inputActionFastPath,
		numEvents: 1,
		eventData: eventData,
	}
}

// Serialize encodes the fpInputHeader, the self-inclusive length field, and
// the event data.
func (p *InputEventPDU) Serialize() []byte {
	header := p.action | (p.numEvents << 2) | (p.flags << 6)

	buf := new(bytes.Buffer)
	buf.WriteByte(header)
	// length counts the header byte, the length field itself, and the data.
	_ = p.SerializeLength(1+len(p.eventData), buf)
	buf.Write(p.eventData)

	return buf.Bytes()
}

// SerializeLength writes the self-inclusive length of a packet whose other
// parts (header and data) take value bytes, using the one- or two-byte
// encoding used throughout Fast-Path: totals up to 0x7f fit in one byte,
// larger totals use a two-byte big-endian form with the top bit set.
func (p *InputEventPDU) SerializeLength(value int, w io.Writer) error {
	if value+1 > 0x7f {
		v := uint16(value+2) | 0x8000
		return binary.Write(w, binary.BigEndian, v)
	}

	_, err := w.Write([]byte{byte(value + 1)})
	return err
}

// Send writes pdu's serialized form directly to the connection.
func (p *Protocol) Send(pdu *InputEventPDU) error {
	_, err := p.conn.Write(pdu.Serialize())
	return err
}
