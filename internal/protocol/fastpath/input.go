package fastpath

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/rcarmo/rdp-mitm/internal/protocol/pdu"
)

// maxInputPDULength bounds the self-inclusive length field of a
// TS_FP_INPUT_PDU (MS-RDPBCGR 2.2.8.1.2), same reasoning as
// maxUpdatePDULength on the output side.
const maxInputPDULength = 0x4000

// InputPDU is a TS_FP_INPUT_PDU: one or more client input events wrapped in
// a single fast-path packet. The MITM decodes these read-only, to feed the
// input observer, without altering the bytes it relays.
type InputPDU struct {
	NumEvents uint8
	Data      []byte
}

// Deserialize reads the fpInputHeader, the self-inclusive length field, and
// the packet body. Encryption and the secure checksum flag are not
// supported, matching UpdatePDU.Deserialize on the output side since both
// legs of this proxy negotiate PROTOCOL_SSL (TLS) rather than standard RDP
// security.
func (p *InputPDU) Deserialize(r io.Reader) error {
	var header uint8
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return err
	}

	action := header & 0x3
	numEvents := (header >> 2) & 0xf
	flags := (header >> 6) & 0x3

	if action == uint8(UpdatePDUActionX224) {
		return ErrUnexpectedX224
	}
	if flags&uint8(UpdatePDUFlagEncrypted) != 0 {
		return fmt.Errorf("fastpath: encryption not supported")
	}
	if flags&uint8(UpdatePDUFlagSecureChecksum) != 0 {
		return fmt.Errorf("fastpath: checksum not supported")
	}

	length, err := readSelfInclusiveLength(r)
	if err != nil {
		return err
	}
	if length > maxInputPDULength {
		return fmt.Errorf("fastpath: too big packet: %d", length)
	}

	// length counts the header byte and the length field(s) already
	// consumed above; a 1-byte length encoding can only represent values
	// below 0x80, so length >= 0x80 implies the 2-byte encoding was used.
	consumed := 2
	if length >= 0x80 {
		consumed = 3
	}

	if numEvents == 0 {
		if err := binary.Read(r, binary.LittleEndian, &numEvents); err != nil {
			return err
		}
		consumed++ // optional numEvents byte
	}
	p.NumEvents = numEvents

	remaining := length - consumed
	if remaining < 0 {
		remaining = 0
	}

	p.Data = make([]byte, remaining)
	if remaining > 0 {
		if _, err := io.ReadFull(r, p.Data); err != nil {
			return err
		}
	}

	return nil
}

// ReceiveInput reads a single TS_FP_INPUT_PDU from the connection.
func (p *Protocol) ReceiveInput() (*InputPDU, error) {
	in := &InputPDU{}
	if err := in.Deserialize(p.conn); err != nil {
		return nil, err
	}
	return in, nil
}

// ParseInputEvents decodes every fastpathInputEvent in an InputPDU's body,
// for callers (the MITM input observer) that need structured events rather
// than the raw bytes being relayed.
func ParseInputEvents(in *InputPDU) ([]*pdu.InputEvent, error) {
	r := bytes.NewReader(in.Data)

	events := make([]*pdu.InputEvent, 0, in.NumEvents)
	for i := uint8(0); i < in.NumEvents; i++ {
		event := &pdu.InputEvent{}
		if err := event.Deserialize(r); err != nil {
			return events, fmt.Errorf("fastpath: input event %d: %w", i, err)
		}
		events = append(events, event)
	}

	return events, nil
}
