package orders

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Primary identifies a primary drawing order type (MS-RDPEGDI 2.2.2.1.1,
// primaryOrderType). Only a subset of the 27 defined types has a concrete
// decoder here; the rest are recognized by name but left unimplemented,
// matching spec's "unsupported orders are logged and skipped" non-goal.
type Primary uint8

const (
	PrimaryDstBlt           Primary = 0x00
	PrimaryPatBlt           Primary = 0x01
	PrimaryScrBlt           Primary = 0x02
	PrimaryDrawNineGrid     Primary = 0x07
	PrimaryMultiDrawNineGrid Primary = 0x08
	PrimaryLineTo           Primary = 0x09
	PrimaryOpaqueRect       Primary = 0x0A
	PrimarySaveBitmap       Primary = 0x0B
	PrimaryMemBlt           Primary = 0x0D
	PrimaryMem3Blt          Primary = 0x0E
	PrimaryMultiDstBlt      Primary = 0x0F
	PrimaryMultiPatBlt      Primary = 0x10
	PrimaryMultiScrBlt      Primary = 0x11
	PrimaryMultiOpaqueRect  Primary = 0x12
	PrimaryFastIndex        Primary = 0x13
	PrimaryPolygonSC        Primary = 0x14
	PrimaryPolygonCB        Primary = 0x15
	PrimaryPolyline         Primary = 0x16
	PrimaryFastGlyph        Primary = 0x18
	PrimaryEllipseSC        Primary = 0x19
	PrimaryEllipseCB        Primary = 0x1A
	PrimaryGlyphIndex       Primary = 0x1B
)

// primaryNames is used only for log messages, covering both implemented
// and unimplemented types so warnings read the same way regardless.
var primaryNames = map[Primary]string{
	PrimaryDstBlt:            "DSTBLT",
	PrimaryPatBlt:            "PATBLT",
	PrimaryScrBlt:            "SCRBLT",
	PrimaryDrawNineGrid:      "DRAW_NINE_GRID",
	PrimaryMultiDrawNineGrid: "MULTI_DRAW_NINE_GRID",
	PrimaryLineTo:            "LINE_TO",
	PrimaryOpaqueRect:        "OPAQUE_RECT",
	PrimarySaveBitmap:        "SAVE_BITMAP",
	PrimaryMemBlt:            "MEMBLT",
	PrimaryMem3Blt:           "MEM3BLT",
	PrimaryMultiDstBlt:       "MULTI_DSTBLT",
	PrimaryMultiPatBlt:       "MULTI_PATBLT",
	PrimaryMultiScrBlt:       "MULTI_SCRBLT",
	PrimaryMultiOpaqueRect:   "MULTI_OPAQUE_RECT",
	PrimaryFastIndex:         "FAST_INDEX",
	PrimaryPolygonSC:         "POLYGON_SC",
	PrimaryPolygonCB:         "POLYGON_CB",
	PrimaryPolyline:          "POLYLINE",
	PrimaryFastGlyph:         "FAST_GLYPH",
	PrimaryEllipseSC:         "ELLIPSE_SC",
	PrimaryEllipseCB:         "ELLIPSE_CB",
	PrimaryGlyphIndex:        "GLYPH_INDEX",
}

func (p Primary) String() string {
	if name, ok := primaryNames[p]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(0x%02X)", uint8(p))
}

// fieldCounts gives the number of order-specific fields each implemented
// primary order type carries, used to size the present-field bitmask.
var fieldCounts = map[Primary]int{
	PrimaryDstBlt:     5,
	PrimaryPatBlt:     12,
	PrimaryScrBlt:     7,
	PrimaryLineTo:     10,
	PrimaryOpaqueRect: 5,
	PrimaryMemBlt:     9,
}

// FieldCount returns the number of fields order type p is known to carry,
// and whether p is implemented at all.
func FieldCount(p Primary) (int, bool) {
	n, ok := fieldCounts[p]
	return n, ok
}

// Bounds is the clipping rectangle carried by a bounded primary order
// (MS-RDPEGDI 2.2.2.1.1's boundsInfo). Bounded false means the order
// applies to the whole surface.
type Bounds struct {
	Left, Top, Right, Bottom int16
	Bounded                  bool
}

// DstBltOrder is TS_DSTBLT_ORDER (MS-RDPEGDI 2.2.2.2.1.1.2).
type DstBltOrder struct {
	X, Y, Width, Height int16
	RopCode             uint8
}

// PatBltOrder is TS_PATBLT_ORDER (MS-RDPEGDI 2.2.2.2.1.1.3).
type PatBltOrder struct {
	X, Y, Width, Height        int16
	RopCode                    uint8
	BackColor, ForeColor       uint32
	BrushOrgX, BrushOrgY       int8
	BrushStyle, BrushHatch     uint8
	BrushExtra                 [7]byte
}

// ScrBltOrder is TS_SCRBLT_ORDER (MS-RDPEGDI 2.2.2.2.1.1.4).
type ScrBltOrder struct {
	X, Y, Width, Height int16
	RopCode             uint8
	SrcX, SrcY          int16
}

// LineToOrder is TS_LINETO_ORDER (MS-RDPEGDI 2.2.2.2.1.1.6).
type LineToOrder struct {
	BackMode                 uint16
	StartX, StartY           int16
	EndX, EndY               int16
	BackColor                uint32
	RopCode                  uint8
	PenStyle, PenWidth       uint8
	PenColor                 uint32
}

// OpaqueRectOrder is TS_OPAQUE_RECT_ORDER (MS-RDPEGDI 2.2.2.2.1.1.5).
type OpaqueRectOrder struct {
	X, Y, Width, Height int16
	Color               uint32
}

// MemBltOrder is TS_MEMBLT_ORDER (MS-RDPEGDI 2.2.2.2.1.1.7).
type MemBltOrder struct {
	CacheID             uint16
	X, Y, Width, Height int16
	RopCode             uint8
	SrcX, SrcY          int16
	CacheIndex          uint16
}

// PrimaryContext is the persistent per-session decode state for primary
// orders: the last resolved field values of every implemented order
// type, the current clipping bounds, and the order type carried forward
// across orders that don't set TS_TYPE_CHANGE (spec §3/§4.4).
//
// Fields are embedded value-types rather than heap-allocated per order,
// per the teacher's design notes on stateful per-order contexts.
type PrimaryContext struct {
	CurrentType Primary
	haveType    bool
	Bounds      Bounds

	DstBlt     DstBltOrder
	PatBlt     PatBltOrder
	ScrBlt     ScrBltOrder
	LineTo     LineToOrder
	OpaqueRect OpaqueRectOrder
	MemBlt     MemBltOrder
}

func readInt16(wire io.Reader) (int16, error) {
	var v int16
	err := binary.Read(wire, binary.LittleEndian, &v)
	return v, err
}

func readDeltaCoord(wire io.Reader, prev int16) (int16, error) {
	var b int8
	if err := binary.Read(wire, binary.LittleEndian, &b); err != nil {
		return 0, err
	}
	return prev + int16(b), nil
}

// readCoord resolves one coordinate field: delta-encoded (signed byte,
// relative to prev) when useDelta is set, absolute 16-bit otherwise
// (MS-RDPEGDI 2.2.2.2.1.1.1.1, TS_DELTA_COORDS).
func readCoord(wire io.Reader, useDelta bool, prev int16) (int16, error) {
	if useDelta {
		return readDeltaCoord(wire, prev)
	}
	return readInt16(wire)
}

func readUint32(wire io.Reader) (uint32, error) {
	var v uint32
	err := binary.Read(wire, binary.LittleEndian, &v)
	return v, err
}

func readUint16(wire io.Reader) (uint16, error) {
	var v uint16
	err := binary.Read(wire, binary.LittleEndian, &v)
	return v, err
}

func readUint8(wire io.Reader) (uint8, error) {
	var v uint8
	err := binary.Read(wire, binary.LittleEndian, &v)
	return v, err
}

func readInt8(wire io.Reader) (int8, error) {
	var v int8
	err := binary.Read(wire, binary.LittleEndian, &v)
	return v, err
}

// present reports whether field i is set in the order's present-field
// bitmask (MS-RDPEGDI 2.2.2.2.1.1.1.2).
func present(fieldFlags uint32, i int) bool {
	return fieldFlags&(1<<uint(i)) != 0
}

// decodeDstBlt applies the present fields over ctx.DstBlt in place,
// leaving fields not present at their last resolved value.
func (ctx *PrimaryContext) decodeDstBlt(wire io.Reader, fieldFlags uint32, useDelta bool) error {
	o := &ctx.DstBlt
	var err error
	if present(fieldFlags, 0) {
		if o.X, err = readCoord(wire, useDelta, o.X); err != nil {
			return err
		}
	}
	if present(fieldFlags, 1) {
		if o.Y, err = readCoord(wire, useDelta, o.Y); err != nil {
			return err
		}
	}
	if present(fieldFlags, 2) {
		if o.Width, err = readCoord(wire, useDelta, o.Width); err != nil {
			return err
		}
	}
	if present(fieldFlags, 3) {
		if o.Height, err = readCoord(wire, useDelta, o.Height); err != nil {
			return err
		}
	}
	if present(fieldFlags, 4) {
		if o.RopCode, err = readUint8(wire); err != nil {
			return err
		}
	}
	return nil
}

func (ctx *PrimaryContext) decodePatBlt(wire io.Reader, fieldFlags uint32, useDelta bool) error {
	o := &ctx.PatBlt
	var err error
	if present(fieldFlags, 0) {
		if o.X, err = readCoord(wire, useDelta, o.X); err != nil {
			return err
		}
	}
	if present(fieldFlags, 1) {
		if o.Y, err = readCoord(wire, useDelta, o.Y); err != nil {
			return err
		}
	}
	if present(fieldFlags, 2) {
		if o.Width, err = readCoord(wire, useDelta, o.Width); err != nil {
			return err
		}
	}
	if present(fieldFlags, 3) {
		if o.Height, err = readCoord(wire, useDelta, o.Height); err != nil {
			return err
		}
	}
	if present(fieldFlags, 4) {
		if o.RopCode, err = readUint8(wire); err != nil {
			return err
		}
	}
	if present(fieldFlags, 5) {
		if o.BackColor, err = read3ByteColor(wire); err != nil {
			return err
		}
	}
	if present(fieldFlags, 6) {
		if o.ForeColor, err = read3ByteColor(wire); err != nil {
			return err
		}
	}
	if present(fieldFlags, 7) {
		if o.BrushOrgX, err = readInt8(wire); err != nil {
			return err
		}
	}
	if present(fieldFlags, 8) {
		if o.BrushOrgY, err = readInt8(wire); err != nil {
			return err
		}
	}
	if present(fieldFlags, 9) {
		if o.BrushStyle, err = readUint8(wire); err != nil {
			return err
		}
	}
	if present(fieldFlags, 10) {
		if o.BrushHatch, err = readUint8(wire); err != nil {
			return err
		}
	}
	if present(fieldFlags, 11) {
		if _, err = io.ReadFull(wire, o.BrushExtra[:]); err != nil {
			return err
		}
	}
	return nil
}

func (ctx *PrimaryContext) decodeScrBlt(wire io.Reader, fieldFlags uint32, useDelta bool) error {
	o := &ctx.ScrBlt
	var err error
	if present(fieldFlags, 0) {
		if o.X, err = readCoord(wire, useDelta, o.X); err != nil {
			return err
		}
	}
	if present(fieldFlags, 1) {
		if o.Y, err = readCoord(wire, useDelta, o.Y); err != nil {
			return err
		}
	}
	if present(fieldFlags, 2) {
		if o.Width, err = readCoord(wire, useDelta, o.Width); err != nil {
			return err
		}
	}
	if present(fieldFlags, 3) {
		if o.Height, err = readCoord(wire, useDelta, o.Height); err != nil {
			return err
		}
	}
	if present(fieldFlags, 4) {
		if o.RopCode, err = readUint8(wire); err != nil {
			return err
		}
	}
	if present(fieldFlags, 5) {
		if o.SrcX, err = readCoord(wire, useDelta, o.SrcX); err != nil {
			return err
		}
	}
	if present(fieldFlags, 6) {
		if o.SrcY, err = readCoord(wire, useDelta, o.SrcY); err != nil {
			return err
		}
	}
	return nil
}

func (ctx *PrimaryContext) decodeLineTo(wire io.Reader, fieldFlags uint32, useDelta bool) error {
	o := &ctx.LineTo
	var err error
	if present(fieldFlags, 0) {
		if o.BackMode, err = readUint16(wire); err != nil {
			return err
		}
	}
	if present(fieldFlags, 1) {
		if o.StartX, err = readCoord(wire, useDelta, o.StartX); err != nil {
			return err
		}
	}
	if present(fieldFlags, 2) {
		if o.StartY, err = readCoord(wire, useDelta, o.StartY); err != nil {
			return err
		}
	}
	if present(fieldFlags, 3) {
		if o.EndX, err = readCoord(wire, useDelta, o.EndX); err != nil {
			return err
		}
	}
	if present(fieldFlags, 4) {
		if o.EndY, err = readCoord(wire, useDelta, o.EndY); err != nil {
			return err
		}
	}
	if present(fieldFlags, 5) {
		if o.BackColor, err = read3ByteColor(wire); err != nil {
			return err
		}
	}
	if present(fieldFlags, 6) {
		if o.RopCode, err = readUint8(wire); err != nil {
			return err
		}
	}
	if present(fieldFlags, 7) {
		if o.PenStyle, err = readUint8(wire); err != nil {
			return err
		}
	}
	if present(fieldFlags, 8) {
		if o.PenWidth, err = readUint8(wire); err != nil {
			return err
		}
	}
	if present(fieldFlags, 9) {
		if o.PenColor, err = read3ByteColor(wire); err != nil {
			return err
		}
	}
	return nil
}

func (ctx *PrimaryContext) decodeOpaqueRect(wire io.Reader, fieldFlags uint32, useDelta bool) error {
	o := &ctx.OpaqueRect
	var err error
	if present(fieldFlags, 0) {
		if o.X, err = readCoord(wire, useDelta, o.X); err != nil {
			return err
		}
	}
	if present(fieldFlags, 1) {
		if o.Y, err = readCoord(wire, useDelta, o.Y); err != nil {
			return err
		}
	}
	if present(fieldFlags, 2) {
		if o.Width, err = readCoord(wire, useDelta, o.Width); err != nil {
			return err
		}
	}
	if present(fieldFlags, 3) {
		if o.Height, err = readCoord(wire, useDelta, o.Height); err != nil {
			return err
		}
	}
	if present(fieldFlags, 4) {
		if o.Color, err = read3ByteColor(wire); err != nil {
			return err
		}
	}
	return nil
}

func (ctx *PrimaryContext) decodeMemBlt(wire io.Reader, fieldFlags uint32, useDelta bool) error {
	o := &ctx.MemBlt
	var err error
	if present(fieldFlags, 0) {
		if o.CacheID, err = readUint16(wire); err != nil {
			return err
		}
	}
	if present(fieldFlags, 1) {
		if o.X, err = readCoord(wire, useDelta, o.X); err != nil {
			return err
		}
	}
	if present(fieldFlags, 2) {
		if o.Y, err = readCoord(wire, useDelta, o.Y); err != nil {
			return err
		}
	}
	if present(fieldFlags, 3) {
		if o.Width, err = readCoord(wire, useDelta, o.Width); err != nil {
			return err
		}
	}
	if present(fieldFlags, 4) {
		if o.Height, err = readCoord(wire, useDelta, o.Height); err != nil {
			return err
		}
	}
	if present(fieldFlags, 5) {
		if o.RopCode, err = readUint8(wire); err != nil {
			return err
		}
	}
	if present(fieldFlags, 6) {
		if o.SrcX, err = readCoord(wire, useDelta, o.SrcX); err != nil {
			return err
		}
	}
	if present(fieldFlags, 7) {
		if o.SrcY, err = readCoord(wire, useDelta, o.SrcY); err != nil {
			return err
		}
	}
	if present(fieldFlags, 8) {
		if o.CacheIndex, err = readUint16(wire); err != nil {
			return err
		}
	}
	return nil
}

// read3ByteColor reads a TS_COLOR_REF-style 24-bit BGR value into the low
// 3 bytes of a uint32 (MS-RDPEGDI 2.2.2.2.1.1.1.11).
func read3ByteColor(wire io.Reader) (uint32, error) {
	var b [3]byte
	if _, err := io.ReadFull(wire, b[:]); err != nil {
		return 0, err
	}
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16, nil
}
