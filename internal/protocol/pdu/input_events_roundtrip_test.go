package pdu

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInputEvent_DeserializeScanCode(t *testing.T) {
	original := NewKeyboardEvent(KBDFlagsRelease, 0x1E)

	var decoded InputEvent
	require.NoError(t, decoded.Deserialize(bytes.NewReader(original.Serialize())))

	require.Equal(t, EventCodeScanCode, decoded.EventCode)
	require.Equal(t, KBDFlagsRelease, decoded.EventFlags)
	keyCode, ok := decoded.ScanCode()
	require.True(t, ok)
	require.Equal(t, uint8(0x1E), keyCode)

	_, _, _, mouseOK := decoded.MousePosition()
	require.False(t, mouseOK)
}

func TestInputEvent_DeserializeMouse(t *testing.T) {
	original := NewMouseEvent(PTRFlagsDown|PTRFlagsButton1, 640, 480)

	var decoded InputEvent
	require.NoError(t, decoded.Deserialize(bytes.NewReader(original.Serialize())))

	require.Equal(t, EventCodeMouse, decoded.EventCode)
	flags, x, y, ok := decoded.MousePosition()
	require.True(t, ok)
	require.Equal(t, PTRFlagsDown|PTRFlagsButton1, flags)
	require.Equal(t, uint16(640), x)
	require.Equal(t, uint16(480), y)

	_, scanOK := decoded.ScanCode()
	require.False(t, scanOK)
}

func TestInputEvent_DeserializeSync(t *testing.T) {
	original := NewSynchronizeEvent(SyncCapsLock | SyncNumLock)

	var decoded InputEvent
	require.NoError(t, decoded.Deserialize(bytes.NewReader(original.Serialize())))

	require.Equal(t, EventCodeSync, decoded.EventCode)
	require.Equal(t, SyncCapsLock|SyncNumLock, decoded.EventFlags)
}

func TestInputEvent_DeserializeTruncated(t *testing.T) {
	var decoded InputEvent
	require.Error(t, decoded.Deserialize(bytes.NewReader(nil)))

	// header present, payload missing
	header := []byte{uint8(EventCodeScanCode)}
	require.Error(t, decoded.Deserialize(bytes.NewReader(header)))
}

func TestInputEvent_DeserializeUnknownCode(t *testing.T) {
	var decoded InputEvent
	// event code 5 is reserved/unused by MS-RDPBCGR 2.2.8.1.2.2
	require.Error(t, decoded.Deserialize(bytes.NewReader([]byte{0x05})))
}
