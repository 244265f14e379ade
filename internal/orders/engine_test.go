package orders

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/rcarmo/rdp-mitm/internal/protocol/pdu"
)

type recordingFrontEnd struct {
	dstBlts     []DstBltOrder
	begins, ends int
	boundsSeen  []Bounds
}

func (f *recordingFrontEnd) OnBounds(b *Bounds)       { f.boundsSeen = append(f.boundsSeen, *b) }
func (f *recordingFrontEnd) OnDstBlt(o DstBltOrder)   { f.dstBlts = append(f.dstBlts, o) }
func (f *recordingFrontEnd) OnPatBlt(o PatBltOrder)   {}
func (f *recordingFrontEnd) OnScrBlt(o ScrBltOrder)   {}
func (f *recordingFrontEnd) OnLineTo(o LineToOrder)   {}
func (f *recordingFrontEnd) OnOpaqueRect(o OpaqueRectOrder) {}
func (f *recordingFrontEnd) OnMemBlt(o MemBltOrder)   {}
func (f *recordingFrontEnd) OnBeginRender()           { f.begins++ }
func (f *recordingFrontEnd) OnFinishRender()          { f.ends++ }

func newTestEngine(f FrontEnd) *Engine {
	e := NewEngine(f, zerolog.Nop())
	e.SetCapabilities(true, pdu.GlyphSupportLevelFull)
	return e
}

// buildDstBltOrder writes one primary DSTBLT order: controlFlags,
// orderType (TS_TYPE_CHANGE), one present-field byte, then absolute
// coordinates for every present field.
func buildDstBltOrder(x, y, w, h int16, rop uint8) []byte {
	var buf bytes.Buffer
	buf.WriteByte(ctlStandard | ctlTypeChange) // primary, type present
	buf.WriteByte(uint8(PrimaryDstBlt))
	buf.WriteByte(0x1F) // fields 0-4 present (5 fields -> 1 byte, all set)
	binary.Write(&buf, binary.LittleEndian, x)
	binary.Write(&buf, binary.LittleEndian, y)
	binary.Write(&buf, binary.LittleEndian, w)
	binary.Write(&buf, binary.LittleEndian, h)
	buf.WriteByte(rop)
	return buf.Bytes()
}

// buildDstBltDeltaOrder writes a DSTBLT order with only X present, delta
// encoded, omitting TS_TYPE_CHANGE (a prior order must already have set
// the current order type to DSTBLT).
func buildDstBltDeltaOrder(deltaX int8) []byte {
	var buf bytes.Buffer
	buf.WriteByte(ctlStandard | ctlDeltaCoords)
	buf.WriteByte(0x01) // field 0 (X) only
	buf.WriteByte(byte(deltaX))
	return buf.Bytes()
}

func buildOrdersUpdate(orders ...[]byte) []byte {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, uint16(len(orders)))
	for _, o := range orders {
		buf.Write(o)
	}
	return buf.Bytes()
}

func TestEngine_DisabledWithoutCapabilities(t *testing.T) {
	f := &recordingFrontEnd{}
	e := NewEngine(f, zerolog.Nop())
	err := e.ProcessUpdate(buildOrdersUpdate(buildDstBltOrder(1, 2, 3, 4, 0xCC)))
	require.Error(t, err)
}

func TestEngine_DecodesAbsoluteDstBlt(t *testing.T) {
	f := &recordingFrontEnd{}
	e := newTestEngine(f)

	update := buildOrdersUpdate(buildDstBltOrder(10, 20, 30, 40, 0xCC))
	require.NoError(t, e.ProcessUpdate(update))

	require.Len(t, f.dstBlts, 1)
	require.Equal(t, DstBltOrder{X: 10, Y: 20, Width: 30, Height: 40, RopCode: 0xCC}, f.dstBlts[0])
	require.Equal(t, 1, f.begins)
	require.Equal(t, 1, f.ends)
}

// TestEngine_DeltaCoordinateResolvesAgainstPreviousAbsolute covers the
// "absolute order followed by a delta order resolves to prev+delta"
// property: a DSTBLT with X=10 followed by a delta-only order with
// deltaX=+5 must resolve X to 15, keeping every other field at its
// last value.
func TestEngine_DeltaCoordinateResolvesAgainstPreviousAbsolute(t *testing.T) {
	f := &recordingFrontEnd{}
	e := newTestEngine(f)

	update := buildOrdersUpdate(
		buildDstBltOrder(10, 20, 30, 40, 0xCC),
		buildDstBltDeltaOrder(5),
	)
	require.NoError(t, e.ProcessUpdate(update))

	require.Len(t, f.dstBlts, 2)
	require.Equal(t, int16(15), f.dstBlts[1].X)
	require.Equal(t, int16(20), f.dstBlts[1].Y)
	require.Equal(t, int16(30), f.dstBlts[1].Width)
	require.Equal(t, int16(40), f.dstBlts[1].Height)
	require.Equal(t, uint8(0xCC), f.dstBlts[1].RopCode)
}

// TestEngine_PrimaryOrderWithoutTypeChangeAndNoPriorTypeFailsGracefully
// covers the first-order-has-no-TS_TYPE_CHANGE edge case: ProcessUpdate
// must not panic, and must return nil (the malformed PDU is logged and
// dropped, the session is not torn down).
func TestEngine_PrimaryOrderWithoutTypeChangeAndNoPriorTypeFailsGracefully(t *testing.T) {
	f := &recordingFrontEnd{}
	e := newTestEngine(f)

	update := buildOrdersUpdate(buildDstBltDeltaOrder(1))
	err := e.ProcessUpdate(update)
	require.NoError(t, err)
	require.Empty(t, f.dstBlts)
}

// TestEngine_UnsupportedPrimaryOrderIsSkippedWithoutAbortingSession
// covers an order type with no field table (e.g. GLYPH_INDEX): decoding
// must log and return nil rather than erroring the whole session.
func TestEngine_UnsupportedPrimaryOrderIsSkippedWithoutAbortingSession(t *testing.T) {
	f := &recordingFrontEnd{}
	e := newTestEngine(f)

	var buf bytes.Buffer
	buf.WriteByte(ctlStandard | ctlTypeChange)
	buf.WriteByte(uint8(PrimaryGlyphIndex))
	update := buildOrdersUpdate(buf.Bytes())

	err := e.ProcessUpdate(update)
	require.NoError(t, err)
}

// TestEngine_CacheGlyphDiscardedWhenGlyphSupportIsNone covers the
// cache-glyph gating property: with GLYPH_SUPPORT_NONE advertised, a
// CACHE_GLYPH secondary order must be consumed (not erroring) but
// produce no effect, and subsequent orders in the same update must
// still decode.
func TestEngine_CacheGlyphDiscardedWhenGlyphSupportIsNone(t *testing.T) {
	f := &recordingFrontEnd{}
	e := NewEngine(f, zerolog.Nop())
	e.SetCapabilities(true, pdu.GlyphSupportLevelNone)

	var glyphOrder bytes.Buffer
	glyphOrder.WriteByte(ctlStandard | ctlSecondary)
	binary.Write(&glyphOrder, binary.LittleEndian, uint16(5)) // orderLength == header only
	binary.Write(&glyphOrder, binary.LittleEndian, uint16(0)) // extraFlags
	glyphOrder.WriteByte(uint8(SecondaryCacheGlyph))

	update := buildOrdersUpdate(glyphOrder.Bytes(), buildDstBltOrder(1, 1, 1, 1, 0))
	require.NoError(t, e.ProcessUpdate(update))
	require.Len(t, f.dstBlts, 1)
}

// TestEngine_WindowAltSecondaryOrderLogsExactMessageAndStops exercises
// the explicitly unimplemented WINDOW (MS-RDPERP) alternate-secondary
// order: the update ends (no further orders decode) but ProcessUpdate
// itself still returns nil.
func TestEngine_WindowAltSecondaryOrderLogsExactMessageAndStops(t *testing.T) {
	f := &recordingFrontEnd{}
	e := newTestEngine(f)

	var windowOrder bytes.Buffer
	windowOrder.WriteByte(uint8(AltSecWindow) << 2) // ctlStandard bit unset -> alt-secondary

	update := buildOrdersUpdate(windowOrder.Bytes(), buildDstBltOrder(1, 1, 1, 1, 0))
	err := e.ProcessUpdate(update)
	require.NoError(t, err)
	require.Empty(t, f.dstBlts)
}

func TestEngine_BoundsAreAppliedAndForwarded(t *testing.T) {
	f := &recordingFrontEnd{}
	e := newTestEngine(f)

	var buf bytes.Buffer
	buf.WriteByte(ctlStandard | ctlTypeChange | ctlBounds)
	buf.WriteByte(uint8(PrimaryDstBlt))
	buf.WriteByte(0x0F) // left/top/right/bottom present, all absolute
	binary.Write(&buf, binary.LittleEndian, int16(0))
	binary.Write(&buf, binary.LittleEndian, int16(0))
	binary.Write(&buf, binary.LittleEndian, int16(800))
	binary.Write(&buf, binary.LittleEndian, int16(600))
	buf.WriteByte(0x1F)
	binary.Write(&buf, binary.LittleEndian, int16(10))
	binary.Write(&buf, binary.LittleEndian, int16(10))
	binary.Write(&buf, binary.LittleEndian, int16(10))
	binary.Write(&buf, binary.LittleEndian, int16(10))
	buf.WriteByte(0xCC)

	update := buildOrdersUpdate(buf.Bytes())
	require.NoError(t, e.ProcessUpdate(update))

	require.Len(t, f.boundsSeen, 1)
	require.True(t, f.boundsSeen[0].Bounded)
	require.Equal(t, int16(800), f.boundsSeen[0].Right)
	require.Equal(t, int16(600), f.boundsSeen[0].Bottom)
}
