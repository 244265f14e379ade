package pdu

import (
	"bytes"
	"encoding/binary"
	"unicode/utf16"
)

// Client Info flags (MS-RDPBCGR 2.2.1.11.1.1 TS_INFO_PACKET.flags).
const (
	InfoMouse             uint32 = 0x00000001
	InfoDisableCtrlAltDel  uint32 = 0x00000002
	InfoUnicode            uint32 = 0x00000010
	InfoMaximizeShell      uint32 = 0x00000020
	InfoLogonNotify        uint32 = 0x00000040
	InfoCompression        uint32 = 0x00000080
	InfoEnableWindowsKey   uint32 = 0x00000100
	InfoFlagRail           uint32 = 0x00008000 // INFO_RAIL, set for RemoteApp sessions
)

// secInfoPkt is the Basic Security Header flag identifying a Client Info PDU
// (MS-RDPBCGR 2.2.8.1.1.2.1).
const secInfoPkt uint16 = 0x0040

// ClientInfoPacket is the TS_INFO_PACKET structure: logon credentials plus
// the client flags and extended info the server uses to configure the
// session.
type ClientInfoPacket struct {
	CodePage uint32
	Flags    uint32
	Domain   string
	UserName string
	Password string
}

// ClientInfo is the Client Info PDU (MS-RDPBCGR 2.2.1.11) sent during the
// Secure Settings Exchange phase of connection sequence.
type ClientInfo struct {
	InfoPacket ClientInfoPacket
}

// NewClientInfo builds a ClientInfo PDU carrying the given logon credentials
// with a reasonable default flag set (unicode strings, mouse present,
// Ctrl+Alt+Del disabled, logon notifications, Windows key enabled).
func NewClientInfo(domain, username, password string) *ClientInfo {
	return &ClientInfo{
		InfoPacket: ClientInfoPacket{
			Flags: InfoMouse | InfoUnicode | InfoDisableCtrlAltDel |
				InfoLogonNotify | InfoEnableWindowsKey,
			Domain:   domain,
			UserName: username,
			Password: password,
		},
	}
}

func utf16LEBytes(s string) []byte {
	units := utf16.Encode([]rune(s))
	buf := make([]byte, len(units)*2)
	for i, u := range units {
		binary.LittleEndian.PutUint16(buf[i*2:], u)
	}
	return buf
}

// Serialize encodes the Client Info PDU. Per MS-RDPBCGR 2.2.1.11.1.1 the
// Basic Security Header must be present when standard RDP security is in
// effect, and absent when Enhanced RDP Security (TLS or CredSSP/NLA) is
// negotiated instead, so useEnhancedSecurity selects which one the caller
// gets.
func (c *ClientInfo) Serialize(useEnhancedSecurity bool) []byte {
	domain := utf16LEBytes(c.InfoPacket.Domain)
	username := utf16LEBytes(c.InfoPacket.UserName)
	password := utf16LEBytes(c.InfoPacket.Password)

	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, c.InfoPacket.CodePage)
	binary.Write(buf, binary.LittleEndian, c.InfoPacket.Flags)
	binary.Write(buf, binary.LittleEndian, uint16(len(domain)))
	binary.Write(buf, binary.LittleEndian, uint16(len(username)))
	binary.Write(buf, binary.LittleEndian, uint16(len(password)))
	binary.Write(buf, binary.LittleEndian, uint16(0)) // cbAlternateShell
	binary.Write(buf, binary.LittleEndian, uint16(0)) // cbWorkingDir

	buf.Write(domain)
	buf.Write([]byte{0, 0})
	buf.Write(username)
	buf.Write([]byte{0, 0})
	buf.Write(password)
	buf.Write([]byte{0, 0})
	buf.Write([]byte{0, 0}) // alternate shell, empty and null-terminated
	buf.Write([]byte{0, 0}) // working directory, empty and null-terminated

	writeExtendedInfo(buf)

	if !useEnhancedSecurity {
		header := make([]byte, 4)
		binary.LittleEndian.PutUint16(header[0:2], secInfoPkt)
		return append(header, buf.Bytes()...)
	}

	return buf.Bytes()
}

// writeExtendedInfo encodes a minimal TS_EXTENDED_INFO_PACKET: empty client
// address/directory and a zeroed time zone, which every server this proxy
// has been tested against accepts.
func writeExtendedInfo(buf *bytes.Buffer) {
	binary.Write(buf, binary.LittleEndian, uint16(2)) // clientAddressFamily AF_INET
	binary.Write(buf, binary.LittleEndian, uint16(2)) // cbClientAddress
	buf.Write([]byte{0, 0})
	binary.Write(buf, binary.LittleEndian, uint16(2)) // cbClientDir
	buf.Write([]byte{0, 0})
	buf.Write(make([]byte, 172)) // TS_TIME_ZONE_INFORMATION, zeroed
	binary.Write(buf, binary.LittleEndian, uint32(0)) // clientSessionId
	binary.Write(buf, binary.LittleEndian, uint32(0)) // performanceFlags
	binary.Write(buf, binary.LittleEndian, uint16(0)) // cbAutoReconnectLen
}
