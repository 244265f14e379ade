package mitm

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rcarmo/rdp-mitm/internal/logging"
)

func buildCliprdrPDU(msgType uint16, data []byte) []byte {
	buf := make([]byte, 8+len(data))
	binary.LittleEndian.PutUint16(buf[0:2], msgType)
	binary.LittleEndian.PutUint16(buf[2:4], 0)
	binary.LittleEndian.PutUint32(buf[4:8], uint32(len(data)))
	copy(buf[8:], data)
	return buf
}

func TestClipboardHandler_CapturesFormatDataResponse(t *testing.T) {
	var captured []byte
	handler := NewClipboardHandler(logging.Default(), func(data []byte) { captured = data })

	pdu := buildCliprdrPDU(cliprdrMsgTypeFormatDataResponse, []byte("secret clipboard text"))
	require.NoError(t, handler.HandleData(pdu))
	require.Equal(t, []byte("secret clipboard text"), captured)
}

func TestClipboardHandler_IgnoresOtherMessageTypes(t *testing.T) {
	var captured []byte
	handler := NewClipboardHandler(logging.Default(), func(data []byte) { captured = data })

	pdu := buildCliprdrPDU(0x0002, []byte("format list"))
	require.NoError(t, handler.HandleData(pdu))
	require.Nil(t, captured)
}

func TestClipboardHandler_RejectsShortHeader(t *testing.T) {
	handler := NewClipboardHandler(logging.Default(), nil)
	require.Error(t, handler.HandleData([]byte{0x01, 0x02}))
}

func TestDeviceHandler_ForwardsRawPayload(t *testing.T) {
	var captured []byte
	handler := NewDeviceHandler(logging.Default(), func(data []byte) { captured = data })

	require.NoError(t, handler.HandleData([]byte("device announce")))
	require.Equal(t, []byte("device announce"), captured)
}
