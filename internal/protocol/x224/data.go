package x224

import (
	"encoding/binary"
	"io"
)

const dataLength = 2

// Data is the X.224 Data TPDU (MS-RDPBCGR 2.2.1.3 uses it to wrap every PDU
// once the connection is established) carrying DT/ROA and EOT fields plus
// the encapsulated RDP payload in UserData.
type Data struct {
	LI       byte
	DTROA    byte
	NREOT    byte
	UserData []byte
}

// Serialize encodes the TPDU header followed by UserData.
func (d Data) Serialize() []byte {
	out := make([]byte, 0, 3+len(d.UserData))
	out = append(out, d.LI, d.DTROA, d.NREOT)
	out = append(out, d.UserData...)
	return out
}

// Deserialize reads the fixed Data TPDU header from r, leaving the payload
// on the reader for the caller to consume.
func (d *Data) Deserialize(r io.Reader) error {
	if err := binary.Read(r, binary.BigEndian, &d.LI); err != nil {
		return err
	}
	if d.LI != dataLength {
		return ErrWrongDataLength
	}

	if err := binary.Read(r, binary.BigEndian, &d.DTROA); err != nil {
		return err
	}
	if err := binary.Read(r, binary.BigEndian, &d.NREOT); err != nil {
		return err
	}

	return nil
}
