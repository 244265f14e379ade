package orders

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/rcarmo/rdp-mitm/internal/protocol/pdu"
)

func buildCacheBitmapV1Secondary(cacheID uint8, cacheIndex uint16, bitmap []byte) []byte {
	var body bytes.Buffer
	body.WriteByte(cacheID)
	body.WriteByte(64) // width
	body.WriteByte(64) // height
	body.WriteByte(24) // bpp
	binary.Write(&body, binary.LittleEndian, uint16(len(bitmap)))
	binary.Write(&body, binary.LittleEndian, cacheIndex)
	body.Write(bitmap)

	var order bytes.Buffer
	binary.Write(&order, binary.LittleEndian, uint16(5+body.Len()))
	binary.Write(&order, binary.LittleEndian, uint16(0))
	order.WriteByte(uint8(SecondaryCacheBitmapUncompressed))
	order.Write(body.Bytes())
	return order.Bytes()
}

func TestDecodeSecondary_CacheBitmapV1IsParsed(t *testing.T) {
	e := NewEngine(&recordingFrontEnd{}, zerolog.Nop())
	e.SetCapabilities(true, pdu.GlyphSupportLevelFull)

	raw := buildCacheBitmapV1Secondary(3, 7, []byte{1, 2, 3, 4})
	wire := bytes.NewReader(raw)
	require.NoError(t, e.decodeSecondary(wire))
}

func TestDecodeSecondary_UnsupportedTypeIsSkippedCleanly(t *testing.T) {
	e := NewEngine(&recordingFrontEnd{}, zerolog.Nop())
	e.SetCapabilities(true, pdu.GlyphSupportLevelFull)

	var order bytes.Buffer
	binary.Write(&order, binary.LittleEndian, uint16(5+3))
	binary.Write(&order, binary.LittleEndian, uint16(0))
	order.WriteByte(uint8(SecondaryCacheBrush))
	order.Write([]byte{0xAA, 0xBB, 0xCC})

	wire := bytes.NewReader(order.Bytes())
	require.NoError(t, e.decodeSecondary(wire))
}

func TestSecondary_StringFallsBackForUnknownType(t *testing.T) {
	require.Equal(t, "CACHE_GLYPH", SecondaryCacheGlyph.String())
	require.Contains(t, Secondary(0x63).String(), "0x63")
}
