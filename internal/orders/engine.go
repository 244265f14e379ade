// Package orders implements the stateful GDI drawing-order decoder:
// primary orders with field-present bitmasks and delta coordinates,
// secondary orders (cache bitmap/glyph/brush/color-table), and
// alternate-secondary orders. It is driven off a FAST_PATH_UPDATE_ORDERS
// or slow-path TS_UPDATE_ORDERS payload and paints through a pluggable
// FrontEnd so the live proxy and the offline replay engine can share the
// same decoder.
package orders

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/rcarmo/rdp-mitm/internal/protocol/pdu"
)

// Control flag bits in a drawing order's leading controlFlags byte
// (MS-RDPEGDI 2.2.2.1.1).
const (
	ctlStandard       uint8 = 0x01
	ctlSecondary      uint8 = 0x02
	ctlBounds         uint8 = 0x04
	ctlTypeChange     uint8 = 0x08
	ctlDeltaCoords    uint8 = 0x10
	ctlZeroBounds     uint8 = 0x20
	ctlZeroFieldBit0  uint8 = 0x40
	ctlZeroFieldBit1  uint8 = 0x80
)

// FrontEnd receives fully-resolved orders from the engine, one method per
// order kind plus bracketing hooks around each processed update (spec §6).
// Implementations own their own bitmap/glyph caches.
type FrontEnd interface {
	OnBounds(b *Bounds)
	OnDstBlt(o DstBltOrder)
	OnPatBlt(o PatBltOrder)
	OnScrBlt(o ScrBltOrder)
	OnLineTo(o LineToOrder)
	OnOpaqueRect(o OpaqueRectOrder)
	OnMemBlt(o MemBltOrder)
	OnBeginRender()
	OnFinishRender()
}

// Engine is the stateful drawing-order decoder for one session. It is not
// safe for concurrent use; one session has exactly one of these.
type Engine struct {
	ctx        PrimaryContext
	glyphLevel pdu.GlyphSupportLevel
	ordersCap  bool
	front      FrontEnd
	log        zerolog.Logger
}

// NewEngine builds a decoder. It starts disabled (ordersCap=false) until
// SetCapabilities is called with a server CAPSTYPE_ORDER set, matching
// spec's "if CAPSTYPE_ORDER is absent, the engine is disabled entirely".
func NewEngine(front FrontEnd, log zerolog.Logger) *Engine {
	return &Engine{front: front, log: log.With().Str("component", "orders").Logger()}
}

// SetCapabilities updates glyph-cache gating and enables the engine once
// the server's CAPSTYPE_ORDER/CAPSTYPE_GLYPHCACHE capability sets are
// known (spec §4.4's capability coupling).
func (e *Engine) SetCapabilities(hasOrderCaps bool, glyphLevel pdu.GlyphSupportLevel) {
	e.ordersCap = hasOrderCaps
	e.glyphLevel = glyphLevel
}

// ProcessUpdate decodes one FAST_PATH_UPDATE_ORDERS / TS_UPDATE_ORDERS
// payload: a uint16 LE numberOrders followed by that many orders.
func (e *Engine) ProcessUpdate(data []byte) error {
	if !e.ordersCap {
		return fmt.Errorf("orders: engine disabled, no CAPSTYPE_ORDER advertised")
	}

	wire := bytes.NewReader(data)

	var numberOrders uint16
	if err := binary.Read(wire, binary.LittleEndian, &numberOrders); err != nil {
		return fmt.Errorf("orders: read numberOrders: %w", err)
	}

	e.front.OnBeginRender()
	defer e.front.OnFinishRender()

	for i := uint16(0); i < numberOrders; i++ {
		if err := e.decodeOne(wire); err != nil {
			e.log.Warn().Err(err).Int("order_index", int(i)).Msg("drawing order decode failed, skipping remainder of update")
			return nil
		}
	}
	return nil
}

func (e *Engine) decodeOne(wire io.Reader) error {
	var controlFlags uint8
	if err := binary.Read(wire, binary.LittleEndian, &controlFlags); err != nil {
		return fmt.Errorf("read control flags: %w", err)
	}

	switch {
	case controlFlags&ctlStandard == 0:
		return e.decodeAltSecondary(wire, controlFlags)
	case controlFlags&ctlSecondary != 0:
		return e.decodeSecondary(wire)
	default:
		return e.decodePrimary(wire, controlFlags)
	}
}

func (e *Engine) decodePrimary(wire io.Reader, controlFlags uint8) error {
	if controlFlags&ctlTypeChange != 0 {
		var orderType uint8
		if err := binary.Read(wire, binary.LittleEndian, &orderType); err != nil {
			return fmt.Errorf("read order type: %w", err)
		}
		e.ctx.CurrentType = Primary(orderType)
		e.ctx.haveType = true
	} else if !e.ctx.haveType {
		return fmt.Errorf("primary order without TS_TYPE_CHANGE and no prior order type")
	}

	if controlFlags&ctlBounds != 0 {
		if err := e.decodeBounds(wire, controlFlags); err != nil {
			return fmt.Errorf("read bounds: %w", err)
		}
		e.front.OnBounds(&e.ctx.Bounds)
	} else if !e.ctx.Bounds.Bounded {
		// no bounds change; nothing to signal
	}

	fieldCount, implemented := FieldCount(e.ctx.CurrentType)
	if !implemented {
		return fmt.Errorf("order %s (primary 0x%02X) not supported", e.ctx.CurrentType, uint8(e.ctx.CurrentType))
	}

	presentBytes := (fieldCount + 7) / 8
	if controlFlags&ctlZeroFieldBit0 != 0 {
		presentBytes--
	}
	if controlFlags&ctlZeroFieldBit1 != 0 {
		presentBytes--
	}
	if presentBytes < 0 {
		presentBytes = 0
	}

	var fieldFlags uint32
	buf := make([]byte, presentBytes)
	if presentBytes > 0 {
		if _, err := io.ReadFull(wire, buf); err != nil {
			return fmt.Errorf("read present field bytes: %w", err)
		}
	}
	for i, b := range buf {
		fieldFlags |= uint32(b) << uint(8*i)
	}

	useDelta := controlFlags&ctlDeltaCoords != 0

	switch e.ctx.CurrentType {
	case PrimaryDstBlt:
		if err := e.ctx.decodeDstBlt(wire, fieldFlags, useDelta); err != nil {
			return err
		}
		e.front.OnDstBlt(e.ctx.DstBlt)
	case PrimaryPatBlt:
		if err := e.ctx.decodePatBlt(wire, fieldFlags, useDelta); err != nil {
			return err
		}
		e.front.OnPatBlt(e.ctx.PatBlt)
	case PrimaryScrBlt:
		if err := e.ctx.decodeScrBlt(wire, fieldFlags, useDelta); err != nil {
			return err
		}
		e.front.OnScrBlt(e.ctx.ScrBlt)
	case PrimaryLineTo:
		if err := e.ctx.decodeLineTo(wire, fieldFlags, useDelta); err != nil {
			return err
		}
		e.front.OnLineTo(e.ctx.LineTo)
	case PrimaryOpaqueRect:
		if err := e.ctx.decodeOpaqueRect(wire, fieldFlags, useDelta); err != nil {
			return err
		}
		e.front.OnOpaqueRect(e.ctx.OpaqueRect)
	case PrimaryMemBlt:
		if err := e.ctx.decodeMemBlt(wire, fieldFlags, useDelta); err != nil {
			return err
		}
		e.front.OnMemBlt(e.ctx.MemBlt)
	default:
		return fmt.Errorf("order %s has a field table but no decoder wired", e.ctx.CurrentType)
	}

	return nil
}

// decodeBounds reads TS_BOUNDS' variable-length rectangle: one flags
// byte naming which of left/top/right/bottom are present and whether
// each is delta- or absolute-encoded (MS-RDPEGDI 2.2.2.2.1.1.1.2).
func (e *Engine) decodeBounds(wire io.Reader, controlFlags uint8) error {
	if controlFlags&ctlZeroBounds != 0 {
		e.ctx.Bounds.Bounded = true
		return nil
	}

	var boundsFlags uint8
	if err := binary.Read(wire, binary.LittleEndian, &boundsFlags); err != nil {
		return err
	}

	const (
		boundsLeft   = 0x01
		boundsTop    = 0x02
		boundsRight  = 0x04
		boundsBottom = 0x08
		deltaLeft    = 0x10
		deltaTop     = 0x20
		deltaRight   = 0x40
		deltaBottom  = 0x80
	)

	b := &e.ctx.Bounds
	var err error
	if boundsFlags&boundsLeft != 0 {
		if b.Left, err = readCoord(wire, boundsFlags&deltaLeft != 0, b.Left); err != nil {
			return err
		}
	}
	if boundsFlags&boundsTop != 0 {
		if b.Top, err = readCoord(wire, boundsFlags&deltaTop != 0, b.Top); err != nil {
			return err
		}
	}
	if boundsFlags&boundsRight != 0 {
		if b.Right, err = readCoord(wire, boundsFlags&deltaRight != 0, b.Right); err != nil {
			return err
		}
	}
	if boundsFlags&boundsBottom != 0 {
		if b.Bottom, err = readCoord(wire, boundsFlags&deltaBottom != 0, b.Bottom); err != nil {
			return err
		}
	}
	b.Bounded = true
	return nil
}
