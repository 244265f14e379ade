package replay

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/rcarmo/rdp-mitm/internal/protocol/pdu"
	"github.com/rcarmo/rdp-mitm/internal/recorder"
)

// buildOpaqueRectFastPathOutput builds a FAST_PATH_OUTPUT frame payload
// carrying one TS_FP_UPDATE_ORDERS update with a single OPAQUE_RECT
// primary order (controlFlags = TS_STANDARD|TS_TYPE_CHANGE).
func buildOpaqueRectFastPathOutput(x, y, w, h int16, colorRef uint32) []byte {
	var order bytes.Buffer
	order.WriteByte(0x09) // ctlStandard | ctlTypeChange
	order.WriteByte(0x0A) // PrimaryOpaqueRect
	order.WriteByte(0x1F) // all 5 fields present
	binary.Write(&order, binary.LittleEndian, x)
	binary.Write(&order, binary.LittleEndian, y)
	binary.Write(&order, binary.LittleEndian, w)
	binary.Write(&order, binary.LittleEndian, h)
	order.WriteByte(uint8(colorRef))
	order.WriteByte(uint8(colorRef >> 8))
	order.WriteByte(uint8(colorRef >> 16))

	var ordersUpdate bytes.Buffer
	binary.Write(&ordersUpdate, binary.LittleEndian, uint16(1)) // numberOrders
	ordersUpdate.Write(order.Bytes())

	var fpUpdate bytes.Buffer
	fpUpdate.WriteByte(0x00) // updateCode ORDERS, no fragmentation/compression
	binary.Write(&fpUpdate, binary.LittleEndian, uint16(ordersUpdate.Len()))
	fpUpdate.Write(ordersUpdate.Bytes())

	return fpUpdate.Bytes()
}

func TestPlayer_PaintsOpaqueRectFromFastPathOutput(t *testing.T) {
	var notified *Surface
	handler := ImageHandlerFunc(func(s *Surface) { notified = s })

	p := NewPlayer(100, 100, handler, zerolog.Nop())
	p.SetOrderCapabilities(true, uint16(pdu.GlyphSupportLevelFull))

	payload := buildOpaqueRectFastPathOutput(10, 10, 20, 20, 0x0000FF)
	f := &Frame{MessageType: recorder.MessageTypeFastPathOutput, TimestampMs: 1, Payload: payload}

	require.NoError(t, p.PlayFrame(f))
	require.NotNil(t, notified)

	idx := (15*100 + 15) * 4
	require.Equal(t, uint8(0xFF), notified.Pixels[idx])
	require.Equal(t, uint8(0x00), notified.Pixels[idx+1])
	require.Equal(t, uint8(0x00), notified.Pixels[idx+2])
}

// buildSurfaceBitsFastPathOutput builds a FAST_PATH_OUTPUT frame payload
// carrying one TS_FP_UPDATE_SURFCMDS update with a single
// CMDTYPE_SET_SURFACE_BITS command of raw (codec id 0), uncompressed
// 32bpp pixel data.
func buildSurfaceBitsFastPathOutput(codecID uint8, bpp uint8, pixel []byte) []byte {
	var surfaceBits bytes.Buffer
	binary.Write(&surfaceBits, binary.LittleEndian, uint16(1)) // CmdTypeSurfaceBits
	binary.Write(&surfaceBits, binary.LittleEndian, uint16(0)) // destLeft
	binary.Write(&surfaceBits, binary.LittleEndian, uint16(0)) // destTop
	binary.Write(&surfaceBits, binary.LittleEndian, uint16(1)) // destRight
	binary.Write(&surfaceBits, binary.LittleEndian, uint16(1)) // destBottom
	surfaceBits.WriteByte(bpp)
	surfaceBits.WriteByte(0) // flags
	surfaceBits.WriteByte(0) // reserved
	surfaceBits.WriteByte(codecID)
	binary.Write(&surfaceBits, binary.LittleEndian, uint16(1)) // width
	binary.Write(&surfaceBits, binary.LittleEndian, uint16(1)) // height
	binary.Write(&surfaceBits, binary.LittleEndian, uint32(len(pixel)))
	surfaceBits.Write(pixel)

	var fpUpdate bytes.Buffer
	fpUpdate.WriteByte(0x04) // updateCode SURFCMDS, no fragmentation/compression
	binary.Write(&fpUpdate, binary.LittleEndian, uint16(surfaceBits.Len()))
	fpUpdate.Write(surfaceBits.Bytes())

	return fpUpdate.Bytes()
}

func TestPlayer_PaintsUncompressedSurfaceBits(t *testing.T) {
	var notified *Surface
	handler := ImageHandlerFunc(func(s *Surface) { notified = s })

	p := NewPlayer(10, 10, handler, zerolog.Nop())

	pixel := []byte{0x00, 0x00, 0xFF, 0xFF} // BGRA: pure red
	payload := buildSurfaceBitsFastPathOutput(0, 32, pixel)
	f := &Frame{MessageType: recorder.MessageTypeFastPathOutput, TimestampMs: 1, Payload: payload}

	require.NoError(t, p.PlayFrame(f))
	require.NotNil(t, notified)

	require.Equal(t, uint8(0xFF), notified.Pixels[0])
	require.Equal(t, uint8(0x00), notified.Pixels[1])
	require.Equal(t, uint8(0x00), notified.Pixels[2])
}

func TestPlayer_UnsupportedSurfaceCodecIsSkippedNotFatal(t *testing.T) {
	p := NewPlayer(10, 10, nil, zerolog.Nop())

	payload := buildSurfaceBitsFastPathOutput(0x7F, 32, []byte{0, 0, 0, 0})
	f := &Frame{MessageType: recorder.MessageTypeFastPathOutput, TimestampMs: 1, Payload: payload}

	require.NoError(t, p.PlayFrame(f))
}

func TestPlayer_InputAndHandshakeFramesAreNoOps(t *testing.T) {
	p := NewPlayer(10, 10, nil, zerolog.Nop())
	f := &Frame{MessageType: recorder.MessageTypeFastPathInput, Payload: []byte{1, 2, 3}}
	require.NoError(t, p.PlayFrame(f))
}

func TestPlayer_ClipboardFrameInvokesObserver(t *testing.T) {
	p := NewPlayer(10, 10, nil, zerolog.Nop())

	var got []byte
	p.OnClipboardData(func(payload []byte) { got = payload })

	f := &Frame{MessageType: recorder.MessageTypeClipboardData, Payload: []byte("clip")}
	require.NoError(t, p.PlayFrame(f))
	require.Equal(t, []byte("clip"), got)
}

func TestPlayer_PlayReadsEveryFrameFromReader(t *testing.T) {
	p := NewPlayer(10, 10, nil, zerolog.Nop())

	var all bytes.Buffer
	all.Write(buildFrame(recorder.MessageTypeFastPathInput, 1, []byte("ignored")))
	all.Write(buildFrame(recorder.MessageTypeClipboardData, 2, []byte("clip")))

	var got []byte
	p.OnClipboardData(func(payload []byte) { got = payload })

	require.NoError(t, p.Play(&all))
	require.Equal(t, []byte("clip"), got)
}
