package x224

import (
	"encoding/binary"
	"io"
)

// connectionConfirmLength is the fixed TPDU length indicator value for a
// Connection Confirm: CCCDT(1) + DSTREF(2) + SRCREF(2) + ClassOption(1) +
// RDP Negotiation Response(8) = 14.
const connectionConfirmLength = 14

// ConnectionConfirm is the server X.224 Connection Confirm TPDU
// (MS-RDPBCGR 2.2.1.2). The RDP Negotiation Response that follows the fixed
// fields is left unread on the supplied reader; callers that need it read it
// themselves from the same stream.
type ConnectionConfirm struct {
	LI          byte
	CCCDT       byte
	DSTREF      uint16
	SRCREF      uint16
	ClassOption byte
}

// Deserialize reads the fixed Connection Confirm fields from r.
func (cc *ConnectionConfirm) Deserialize(r io.Reader) error {
	if err := binary.Read(r, binary.BigEndian, &cc.LI); err != nil {
		return err
	}
	if cc.LI != connectionConfirmLength {
		return ErrSmallConnectionConfirmLength
	}

	if err := binary.Read(r, binary.BigEndian, &cc.CCCDT); err != nil {
		return err
	}
	if cc.CCCDT&0xF0 != 0xD0 {
		return ErrWrongConnectionConfirmCode
	}

	if err := binary.Read(r, binary.BigEndian, &cc.DSTREF); err != nil {
		return err
	}
	if err := binary.Read(r, binary.BigEndian, &cc.SRCREF); err != nil {
		return err
	}
	if err := binary.Read(r, binary.BigEndian, &cc.ClassOption); err != nil {
		return err
	}

	return nil
}

// ccdtConnectionConfirm is the CC TPDU code (upper nibble 0xD, lower
// nibble the credit field, left zero since this implementation does not
// use TPDU flow control).
const ccdtConnectionConfirm = 0xD0

// Serialize encodes the fixed Connection Confirm fields, assuming the
// fixed 14-byte length used by every RDP Connection Confirm (6 fixed
// fields plus an 8-byte RDP Negotiation Response). Callers append the
// negotiation response bytes themselves, mirroring how Deserialize leaves
// them unread.
func (cc *ConnectionConfirm) Serialize() []byte {
	out := make([]byte, 0, 7)
	out = append(out, connectionConfirmLength)
	out = append(out, ccdtConnectionConfirm)
	dstref := make([]byte, 2)
	binary.BigEndian.PutUint16(dstref, cc.DSTREF)
	out = append(out, dstref...)
	srcref := make([]byte, 2)
	binary.BigEndian.PutUint16(srcref, cc.SRCREF)
	out = append(out, srcref...)
	out = append(out, cc.ClassOption)
	return out
}
