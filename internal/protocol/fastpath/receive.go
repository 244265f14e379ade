package fastpath

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ErrUnexpectedX224 is returned when a PDU claiming the slow-path (X.224)
// action arrives on a fast-path-only read path.
var ErrUnexpectedX224 = errors.New("fastpath: unexpected x224 action")

// maxUpdatePDULength bounds the self-inclusive length field of a
// TS_FP_UPDATE_PDU (MS-RDPBCGR 2.2.9.1.2).
const maxUpdatePDULength = 0x4000

// UpdatePDUAction is the fpOutputHeader action field.
type UpdatePDUAction uint8

const (
	UpdatePDUActionFastPath UpdatePDUAction = 0x0
	UpdatePDUActionX224     UpdatePDUAction = 0x3
)

// UpdatePDUFlag is the fpOutputHeader flags field.
type UpdatePDUFlag uint8

const (
	UpdatePDUFlagSecureChecksum UpdatePDUFlag = 0x1
	UpdatePDUFlagEncrypted      UpdatePDUFlag = 0x2
)

// UpdatePDU is a TS_FP_UPDATE_PDU: one or more server updates wrapped in a
// single fast-path packet.
type UpdatePDU struct {
	Action UpdatePDUAction
	Flags  UpdatePDUFlag
	Data   []byte
}

// Deserialize reads the fpOutputHeader, the self-inclusive length field, and
// the packet body. Encryption and the secure checksum flag are not
// supported by this implementation, since both legs of the proxy negotiate
// PROTOCOL_SSL (TLS) rather than standard RDP security.
func (pdu *UpdatePDU) Deserialize(r io.Reader) error {
	var header uint8
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return err
	}

	pdu.Action = UpdatePDUAction(header & 0x3)
	pdu.Flags = UpdatePDUFlag((header >> 6) & 0x3)

	if pdu.Action == UpdatePDUActionX224 {
		return ErrUnexpectedX224
	}
	if pdu.Flags&UpdatePDUFlagEncrypted != 0 {
		return fmt.Errorf("fastpath: encryption not supported")
	}
	if pdu.Flags&UpdatePDUFlagSecureChecksum != 0 {
		return fmt.Errorf("fastpath: checksum not supported")
	}

	length, err := readSelfInclusiveLength(r)
	if err != nil {
		return err
	}
	if length > maxUpdatePDULength {
		return fmt.Errorf("fastpath: too big packet: %d", length)
	}

	// length counts the header byte and the length field(s) already
	// consumed above, as in InputPDU.Deserialize.
	consumed := 2
	if length >= 0x80 {
		consumed = 3
	}
	length -= consumed
	if length < 0 {
		length = 0
	}

	if cap(pdu.Data) >= length {
		pdu.Data = pdu.Data[:length]
	} else {
		pdu.Data = make([]byte, length)
	}
	if length > 0 {
		if _, err := io.ReadFull(r, pdu.Data); err != nil {
			return err
		}
	}

	return nil
}

func readSelfInclusiveLength(r io.Reader) (int, error) {
	var b0 uint8
	if err := binary.Read(r, binary.LittleEndian, &b0); err != nil {
		return 0, err
	}
	if b0&0x80 == 0 {
		return int(b0), nil
	}

	var b1 uint8
	if err := binary.Read(r, binary.LittleEndian, &b1); err != nil {
		return 0, err
	}
	return (int(b0&0x7f) << 8) | int(b1), nil
}

// Receive reads a single TS_FP_UPDATE_PDU from the connection.
func (p *Protocol) Receive() (*UpdatePDU, error) {
	pdu := &UpdatePDU{}
	if err := pdu.Deserialize(p.conn); err != nil {
		return nil, err
	}
	return pdu, nil
}

// UpdateCode is the updateCode field of a TS_FP_UPDATE (MS-RDPBCGR 2.2.9.1.2.1).
type UpdateCode uint8

const (
	UpdateCodeOrders      UpdateCode = 0x0
	UpdateCodeBitmap      UpdateCode = 0x1
	UpdateCodePalette     UpdateCode = 0x2
	UpdateCodeSynchronize UpdateCode = 0x3
	UpdateCodeSurfCMDs    UpdateCode = 0x4
	UpdateCodePTRNull     UpdateCode = 0x5
	UpdateCodePTRDefault  UpdateCode = 0x6
	UpdateCodePTRPosition UpdateCode = 0x8
	UpdateCodeColor       UpdateCode = 0x9
	UpdateCodeCached      UpdateCode = 0xa
	UpdateCodePointer     UpdateCode = 0xb
	UpdateCodeLargePointer UpdateCode = 0xc
)

// Fragment is the TS_FP_UPDATE fragmentation field.
type Fragment uint8

const (
	FragmentSingle Fragment = 0x0
	FragmentLast   Fragment = 0x1
	FragmentFirst  Fragment = 0x2
	FragmentNext   Fragment = 0x3
)

// Compression is the TS_FP_UPDATE compression field.
type Compression uint8

const (
	CompressionUsed Compression = 0x2
)

// Update is a single TS_FP_UPDATE within a TS_FP_UPDATE_PDU's data.
type Update struct {
	UpdateCode    UpdateCode
	fragmentation Fragment
	compression   Compression
	size          uint16
	Data          []byte
}

// Deserialize reads one TS_FP_UPDATE from r.
func (u *Update) Deserialize(r io.Reader) error {
	var header uint8
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return err
	}

	u.UpdateCode = UpdateCode(header & 0x0F)
	u.fragmentation = Fragment((header >> 4) & 0x3)
	u.compression = Compression((header >> 6) & 0x3)

	if u.compression == CompressionUsed {
		var compressionFlags uint8
		if err := binary.Read(r, binary.LittleEndian, &compressionFlags); err != nil {
			return err
		}
	}

	if err := binary.Read(r, binary.LittleEndian, &u.size); err != nil {
		return err
	}

	if u.size > 0 {
		u.Data = make([]byte, u.size)
		if _, err := io.ReadFull(r, u.Data); err != nil {
			return err
		}
	}

	return nil
}
