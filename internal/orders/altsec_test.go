package orders

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestDecodeAltSecondary_FrameMarkerIsDecoded(t *testing.T) {
	e := NewEngine(&recordingFrontEnd{}, zerolog.Nop())

	var payload bytes.Buffer
	binary.Write(&payload, binary.LittleEndian, FrameStart)

	require.NoError(t, e.decodeAltSecondary(bytes.NewReader(payload.Bytes()), uint8(AltSecFrameMarker)<<2))
}

func TestDecodeAltSecondary_WindowOrderReturnsExactError(t *testing.T) {
	e := NewEngine(&recordingFrontEnd{}, zerolog.Nop())

	err := e.decodeAltSecondary(bytes.NewReader(nil), uint8(AltSecWindow)<<2)
	require.Error(t, err)
	require.Equal(t, "order WINDOW (MS-RDPERP) not supported", err.Error())
}

func TestDecodeAltSecondary_UnknownTypeIsReportedByName(t *testing.T) {
	e := NewEngine(&recordingFrontEnd{}, zerolog.Nop())

	err := e.decodeAltSecondary(bytes.NewReader(nil), uint8(AltSecCompdesk)<<2)
	require.Error(t, err)
	require.Contains(t, err.Error(), "COMPDESK")
}
