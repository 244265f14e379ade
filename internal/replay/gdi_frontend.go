package replay

import (
	"github.com/rs/zerolog"

	"github.com/rcarmo/rdp-mitm/internal/orders"
)

// ImageHandler is notified once per OnFinishRender, after the surface
// has been updated by whatever orders or bitmap updates arrived in
// that render pass.
type ImageHandler interface {
	NotifyImage(surface *Surface)
}

// ImageHandlerFunc adapts a plain function to ImageHandler.
type ImageHandlerFunc func(surface *Surface)

// NotifyImage implements ImageHandler.
func (f ImageHandlerFunc) NotifyImage(surface *Surface) { f(surface) }

// GDIFrontEnd implements orders.FrontEnd, painting resolved drawing
// orders into an offscreen Surface. Orders this engine cannot yet
// paint precisely (PatBlt, ScrBlt, LineTo, MemBlt — the latter needing
// a bitmap cache this replayer does not maintain) are logged and
// otherwise ignored, matching the live proxy's tolerance for
// unsupported GDI detail: replay favors not crashing over pixel-exact
// reproduction of every order kind.
type GDIFrontEnd struct {
	surface *Surface
	handler ImageHandler
	log     zerolog.Logger
}

// NewGDIFrontEnd builds a front-end painting into a surface of the
// given dimensions.
func NewGDIFrontEnd(width, height int, handler ImageHandler, log zerolog.Logger) *GDIFrontEnd {
	return &GDIFrontEnd{
		surface: NewSurface(width, height),
		handler: handler,
		log:     log.With().Str("component", "replay-gdi").Logger(),
	}
}

// Surface exposes the current offscreen raster, e.g. for an initial
// paint before the first order arrives.
func (g *GDIFrontEnd) Surface() *Surface { return g.surface }

func (g *GDIFrontEnd) OnBounds(b *orders.Bounds) {}

func (g *GDIFrontEnd) OnDstBlt(o orders.DstBltOrder) {
	g.log.Debug().Msg("dstblt order not painted")
}

func (g *GDIFrontEnd) OnPatBlt(o orders.PatBltOrder) {
	g.log.Debug().Msg("patblt order not painted")
}

func (g *GDIFrontEnd) OnScrBlt(o orders.ScrBltOrder) {
	g.log.Debug().Msg("scrblt order not painted")
}

func (g *GDIFrontEnd) OnLineTo(o orders.LineToOrder) {
	g.log.Debug().Msg("lineto order not painted")
}

func (g *GDIFrontEnd) OnOpaqueRect(o orders.OpaqueRectOrder) {
	g.surface.FillRect(int(o.X), int(o.Y), int(o.Width), int(o.Height), o.Color)
}

func (g *GDIFrontEnd) OnMemBlt(o orders.MemBltOrder) {
	g.log.Debug().Uint16("cache_index", o.CacheIndex).Msg("memblt order not painted, no bitmap cache")
}

func (g *GDIFrontEnd) OnBeginRender() {}

func (g *GDIFrontEnd) OnFinishRender() {
	if g.handler != nil {
		g.handler.NotifyImage(g.surface)
	}
}

// PaintBitmap draws a decoded TS_BITMAP_DATA rectangle directly (the
// fast-path/slow-path bitmap-update path, which bypasses the drawing-
// order engine entirely).
func (g *GDIFrontEnd) PaintBitmap(x, y, w, h int, rgba []byte) {
	g.surface.Blit(x, y, w, h, rgba)
}
