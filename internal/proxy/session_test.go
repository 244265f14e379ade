package proxy

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func shareControlHeader(pduType uint16) []byte {
	header := make([]byte, 6)
	binary.LittleEndian.PutUint16(header[0:2], 0x0020) // totalLength
	binary.LittleEndian.PutUint16(header[2:4], pduType)
	binary.LittleEndian.PutUint16(header[4:6], 1007) // PDUSource
	return header
}

func TestLooksLikeShareControlPDU(t *testing.T) {
	require.True(t, looksLikeShareControlPDU(shareControlHeader(0x11)))
	require.True(t, looksLikeShareControlPDU(shareControlHeader(0x13)))
	require.True(t, looksLikeShareControlPDU(shareControlHeader(0x16)))
	require.True(t, looksLikeShareControlPDU(shareControlHeader(0x17)))
	require.False(t, looksLikeShareControlPDU(shareControlHeader(0x99)))
	require.False(t, looksLikeShareControlPDU([]byte{0x01, 0x02}))
}

func TestLooksLikeClipboard(t *testing.T) {
	payload := make([]byte, 12)
	binary.LittleEndian.PutUint16(payload[0:2], 0x0002) // CB_FORMAT_LIST
	binary.LittleEndian.PutUint16(payload[2:4], 0x0000)
	binary.LittleEndian.PutUint32(payload[4:8], 4)
	require.True(t, looksLikeClipboard(payload))

	require.False(t, looksLikeClipboard([]byte{0x01, 0x02}))

	bogus := make([]byte, 12)
	binary.LittleEndian.PutUint16(bogus[0:2], 0xFFFF)
	require.False(t, looksLikeClipboard(bogus))

	badLen := make([]byte, 12)
	binary.LittleEndian.PutUint16(badLen[0:2], 0x0002)
	binary.LittleEndian.PutUint32(badLen[4:8], 9999)
	require.False(t, looksLikeClipboard(badLen))
}

func TestLooksLikeDeviceRedirection(t *testing.T) {
	core := make([]byte, 4)
	binary.LittleEndian.PutUint16(core[0:2], rdpdrComponentCore)
	require.True(t, looksLikeDeviceRedirection(core))

	print := make([]byte, 4)
	binary.LittleEndian.PutUint16(print[0:2], rdpdrComponentPrint)
	require.True(t, looksLikeDeviceRedirection(print))

	require.False(t, looksLikeDeviceRedirection([]byte{0x00, 0x00, 0x00, 0x00}))
	require.False(t, looksLikeDeviceRedirection([]byte{0x01}))
}
