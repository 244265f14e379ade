package orders

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/rcarmo/rdp-mitm/internal/protocol/pdu"
)

// Secondary identifies a secondary drawing order type (MS-RDPEGDI
// 2.2.2.2.1.2.1.1, orderType).
type Secondary uint8

const (
	SecondaryCacheBitmapUncompressed Secondary = 0
	SecondaryCacheColorTable         Secondary = 1
	SecondaryCacheBitmapCompressed   Secondary = 2
	SecondaryCacheGlyph              Secondary = 3
	SecondaryCacheBitmapV2Uncompressed Secondary = 4
	SecondaryCacheBitmapV2Compressed   Secondary = 5
	SecondaryCacheBrush               Secondary = 7
	SecondaryCacheBitmapV3            Secondary = 8
)

var secondaryNames = map[Secondary]string{
	SecondaryCacheBitmapUncompressed:   "CACHE_BITMAP (uncompressed)",
	SecondaryCacheColorTable:           "CACHE_COLOR_TABLE",
	SecondaryCacheBitmapCompressed:     "CACHE_BITMAP (compressed)",
	SecondaryCacheGlyph:                "CACHE_GLYPH",
	SecondaryCacheBitmapV2Uncompressed: "CACHE_BITMAP_V2 (uncompressed)",
	SecondaryCacheBitmapV2Compressed:   "CACHE_BITMAP_V2 (compressed)",
	SecondaryCacheBrush:                "CACHE_BRUSH",
	SecondaryCacheBitmapV3:             "CACHE_BITMAP_V3",
}

func (s Secondary) String() string {
	if name, ok := secondaryNames[s]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(0x%02X)", uint8(s))
}

// CacheBitmapV1 is the shared payload for the uncompressed/compressed
// cache-bitmap-v1 secondary orders (types 0 and 2).
type CacheBitmapV1 struct {
	CacheID      uint8
	Width, Height uint8
	BitsPerPixel uint8
	CacheIndex   uint16
	Compressed   bool
	BitmapData   []byte
}

// decodeSecondary reads the fixed secondary-order prefix (orderLength,
// extraFlags, orderType) and dispatches on orderType. orderLength bounds
// the body so an order type this engine does not implement can still be
// skipped cleanly, letting the rest of the update decode normally — the
// distilled spec calls orderLength "unused", but it is the only thing
// that makes clean per-order skipping possible here, so it is read and
// trusted for that purpose only.
func (e *Engine) decodeSecondary(wire io.Reader) error {
	var orderLength uint16
	if err := binary.Read(wire, binary.LittleEndian, &orderLength); err != nil {
		return fmt.Errorf("read secondary order length: %w", err)
	}
	var extraFlags uint16
	if err := binary.Read(wire, binary.LittleEndian, &extraFlags); err != nil {
		return fmt.Errorf("read secondary extra flags: %w", err)
	}
	var orderType uint8
	if err := binary.Read(wire, binary.LittleEndian, &orderType); err != nil {
		return fmt.Errorf("read secondary order type: %w", err)
	}

	const headerLen = 5
	bodyLen := int(orderLength) - headerLen
	if bodyLen < 0 {
		bodyLen = 0
	}
	body := make([]byte, bodyLen)
	if bodyLen > 0 {
		if _, err := io.ReadFull(wire, body); err != nil {
			return fmt.Errorf("read secondary order body: %w", err)
		}
	}

	sec := Secondary(orderType)

	if sec == SecondaryCacheGlyph && e.glyphLevel == pdu.GlyphSupportLevelNone {
		e.log.Warn().Msg("cache glyph order discarded, glyph support level is NONE")
		return nil
	}

	switch sec {
	case SecondaryCacheBitmapUncompressed, SecondaryCacheBitmapCompressed:
		cb, err := decodeCacheBitmapV1(body, sec == SecondaryCacheBitmapCompressed)
		if err != nil {
			return fmt.Errorf("cache bitmap v1: %w", err)
		}
		e.log.Debug().Uint8("cache_id", cb.CacheID).Uint16("cache_index", cb.CacheIndex).Msg("cache bitmap v1 observed")
	default:
		e.log.Warn().Str("order", sec.String()).Msg("secondary order not supported, skipping")
	}

	return nil
}

func decodeCacheBitmapV1(body []byte, compressed bool) (*CacheBitmapV1, error) {
	r := bytes.NewReader(body)
	cb := &CacheBitmapV1{Compressed: compressed}

	if err := binary.Read(r, binary.LittleEndian, &cb.CacheID); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.LittleEndian, &cb.Width); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.LittleEndian, &cb.Height); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.LittleEndian, &cb.BitsPerPixel); err != nil {
		return nil, err
	}
	var bitmapLength uint16
	if err := binary.Read(r, binary.LittleEndian, &bitmapLength); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.LittleEndian, &cb.CacheIndex); err != nil {
		return nil, err
	}

	data := make([]byte, bitmapLength)
	if bitmapLength > 0 {
		if _, err := io.ReadFull(r, data); err != nil {
			return nil, err
		}
	}
	cb.BitmapData = data

	return cb, nil
}
