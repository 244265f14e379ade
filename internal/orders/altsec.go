package orders

import (
	"encoding/binary"
	"fmt"
	"io"
)

// AltSecondary identifies an alternate-secondary drawing order
// (MS-RDPEGDI 2.2.2.2.1.3, orderType = controlFlags >> 2).
type AltSecondary uint8

const (
	AltSecSwitchSurface           AltSecondary = 0x00
	AltSecCreateOffscreenBitmap   AltSecondary = 0x01
	AltSecStreamBitmapFirst       AltSecondary = 0x02
	AltSecStreamBitmapNext        AltSecondary = 0x03
	AltSecCreateNineGridBitmap    AltSecondary = 0x04
	AltSecGdiPlusFirst            AltSecondary = 0x05
	AltSecGdiPlusNext             AltSecondary = 0x06
	AltSecGdiPlusEnd              AltSecondary = 0x07
	AltSecGdiPlusCacheFirst       AltSecondary = 0x08
	AltSecGdiPlusCacheNext        AltSecondary = 0x09
	AltSecGdiPlusCacheEnd         AltSecondary = 0x0A
	AltSecFrameMarker             AltSecondary = 0x0B
	AltSecWindow                  AltSecondary = 0x0F
	AltSecCompdesk                AltSecondary = 0x10
)

var altSecNames = map[AltSecondary]string{
	AltSecSwitchSurface:         "SWITCH_SURFACE",
	AltSecCreateOffscreenBitmap: "CREATE_OFFSCREEN_BITMAP",
	AltSecStreamBitmapFirst:     "STREAM_BITMAP_FIRST",
	AltSecStreamBitmapNext:      "STREAM_BITMAP_NEXT",
	AltSecCreateNineGridBitmap:  "CREATE_NINEGRID_BITMAP",
	AltSecGdiPlusFirst:          "GDIPLUS_FIRST",
	AltSecGdiPlusNext:           "GDIPLUS_NEXT",
	AltSecGdiPlusEnd:            "GDIPLUS_END",
	AltSecGdiPlusCacheFirst:     "GDIPLUS_CACHE_FIRST",
	AltSecGdiPlusCacheNext:      "GDIPLUS_CACHE_NEXT",
	AltSecGdiPlusCacheEnd:       "GDIPLUS_CACHE_END",
	AltSecFrameMarker:           "FRAME_MARKER",
	AltSecWindow:                "WINDOW",
	AltSecCompdesk:              "COMPDESK",
}

func (a AltSecondary) String() string {
	if name, ok := altSecNames[a]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(0x%02X)", uint8(a))
}

// FrameMarker brackets a run of orders belonging to a single frame
// (MS-RDPEGDI 2.2.2.2.1.3.4.1).
const (
	FrameStart uint32 = 0x00000000
	FrameEnd   uint32 = 0x00000001
)

// decodeAltSecondary dispatches an alternate-secondary order by
// controlFlags>>2. These orders are self-contained records with no
// dependency on PrimaryContext state. Only FRAME_MARKER is decoded in
// full; every other type (including WINDOW, MS-RDPERP) is logged and
// the rest of the update is abandoned, since without decoding a type's
// body this engine has no way to know where the next order begins.
func (e *Engine) decodeAltSecondary(wire io.Reader, controlFlags uint8) error {
	orderType := AltSecondary(controlFlags >> 2)

	if orderType == AltSecFrameMarker {
		var frameAction uint32
		if err := binary.Read(wire, binary.LittleEndian, &frameAction); err != nil {
			return fmt.Errorf("read frame marker action: %w", err)
		}
		e.log.Debug().Uint32("frame_action", frameAction).Msg("frame marker")
		return nil
	}

	if orderType == AltSecWindow {
		e.log.Warn().Msg("order WINDOW (MS-RDPERP) not supported")
		return fmt.Errorf("order WINDOW (MS-RDPERP) not supported")
	}

	e.log.Warn().Str("order", orderType.String()).Msg("alternate-secondary order not supported")
	return fmt.Errorf("order %s not supported", orderType)
}
