package pdu

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// CapabilitySetType identifies a capability set's content (MS-RDPBCGR
// 2.2.1.13.1.1.1 capabilitySetType).
type CapabilitySetType uint16

const (
	CapabilitySetTypeGeneral                CapabilitySetType = 0x0001
	CapabilitySetTypeBitmap                 CapabilitySetType = 0x0002
	CapabilitySetTypeOrder                  CapabilitySetType = 0x0003
	CapabilitySetTypeBitmapCache            CapabilitySetType = 0x0004
	CapabilitySetTypeControl                CapabilitySetType = 0x0005
	CapabilitySetTypeActivation             CapabilitySetType = 0x0007
	CapabilitySetTypePointer                CapabilitySetType = 0x0008
	CapabilitySetTypeShare                  CapabilitySetType = 0x0009
	CapabilitySetTypeColorCache             CapabilitySetType = 0x000A
	CapabilitySetTypeSound                  CapabilitySetType = 0x000C
	CapabilitySetTypeInput                  CapabilitySetType = 0x000D
	CapabilitySetTypeFont                   CapabilitySetType = 0x000E
	CapabilitySetTypeBrush                  CapabilitySetType = 0x000F
	CapabilitySetTypeGlyphCache             CapabilitySetType = 0x0010
	CapabilitySetTypeOffscreenBitmapCache   CapabilitySetType = 0x0011
	CapabilitySetTypeBitmapCacheHostSupport CapabilitySetType = 0x0012
	CapabilitySetTypeBitmapCacheRev2        CapabilitySetType = 0x0013
	CapabilitySetTypeVirtualChannel         CapabilitySetType = 0x0014
	CapabilitySetTypeDrawNineGridCache      CapabilitySetType = 0x0015
	CapabilitySetTypeDrawGDIPlus            CapabilitySetType = 0x0016
	CapabilitySetTypeRail                   CapabilitySetType = 0x0017
	CapabilitySetTypeWindow                 CapabilitySetType = 0x0018
	CapabilitySetTypeCompDesk               CapabilitySetType = 0x0019
	CapabilitySetTypeMultifragmentUpdate    CapabilitySetType = 0x001A
	CapabilitySetTypeLargePointer           CapabilitySetType = 0x001B
	CapabilitySetTypeSurfaceCommands        CapabilitySetType = 0x001C
	CapabilitySetTypeBitmapCodecs           CapabilitySetType = 0x001D
	CapabilitySetTypeFrameAcknowledge       CapabilitySetType = 0x001E
)

// CapabilitySet is a single entry of the capabilitySets array exchanged in
// the Demand Active / Confirm Active PDUs (MS-RDPBCGR 2.2.1.13.1.1.1). Only
// the field matching CapabilitySetType is populated; it behaves as a tagged
// union over the individual TS_*_CAPABILITYSET structures.
type CapabilitySet struct {
	CapabilitySetType CapabilitySetType

	GeneralCapabilitySet                 *GeneralCapabilitySet
	BitmapCapabilitySet                  *BitmapCapabilitySet
	OrderCapabilitySet                   *OrderCapabilitySet
	BitmapCacheCapabilitySetRev1         *BitmapCacheCapabilitySetRev1
	BitmapCacheCapabilitySetRev2         *BitmapCacheCapabilitySetRev2
	ColorCacheCapabilitySet              *ColorCacheCapabilitySet
	ControlCapabilitySet                 *ControlCapabilitySet
	WindowActivationCapabilitySet        *WindowActivationCapabilitySet
	PointerCapabilitySet                 *PointerCapabilitySet
	ShareCapabilitySet                   *ShareCapabilitySet
	SoundCapabilitySet                   *SoundCapabilitySet
	InputCapabilitySet                   *InputCapabilitySet
	FontCapabilitySet                    *FontCapabilitySet
	BrushCapabilitySet                   *BrushCapabilitySet
	GlyphCacheCapabilitySet              *GlyphCacheCapabilitySet
	OffscreenBitmapCacheCapabilitySet    *OffscreenBitmapCacheCapabilitySet
	BitmapCacheHostSupportCapabilitySet  *BitmapCacheHostSupportCapabilitySet
	VirtualChannelCapabilitySet          *VirtualChannelCapabilitySet
	DrawNineGridCacheCapabilitySet       *DrawNineGridCacheCapabilitySet
	DrawGDIPlusCapabilitySet             *DrawGDIPlusCapabilitySet
	RailCapabilitySet                    *RailCapabilitySet
	WindowListCapabilitySet              *WindowListCapabilitySet
	DesktopCompositionCapabilitySet      *DesktopCompositionCapabilitySet
	MultifragmentUpdateCapabilitySet     *MultifragmentUpdateCapabilitySet
	LargePointerCapabilitySet            *LargePointerCapabilitySet
	SurfaceCommandsCapabilitySet         *SurfaceCommandsCapabilitySet
	BitmapCodecsCapabilitySet            *BitmapCodecsCapabilitySet
	FrameAcknowledgeCapabilitySet        *FrameAcknowledgeCapabilitySet
}

// body returns the encoded sub-structure, whichever one is populated.
func (c *CapabilitySet) body() []byte {
	switch {
	case c.GeneralCapabilitySet != nil:
		return c.GeneralCapabilitySet.Serialize()
	case c.BitmapCapabilitySet != nil:
		return c.BitmapCapabilitySet.Serialize()
	case c.OrderCapabilitySet != nil:
		return c.OrderCapabilitySet.Serialize()
	case c.BitmapCacheCapabilitySetRev1 != nil:
		return c.BitmapCacheCapabilitySetRev1.Serialize()
	case c.BitmapCacheCapabilitySetRev2 != nil:
		return c.BitmapCacheCapabilitySetRev2.Serialize()
	case c.ColorCacheCapabilitySet != nil:
		return c.ColorCacheCapabilitySet.Serialize()
	case c.ControlCapabilitySet != nil:
		return c.ControlCapabilitySet.Serialize()
	case c.WindowActivationCapabilitySet != nil:
		return c.WindowActivationCapabilitySet.Serialize()
	case c.PointerCapabilitySet != nil:
		return c.PointerCapabilitySet.Serialize()
	case c.ShareCapabilitySet != nil:
		return c.ShareCapabilitySet.Serialize()
	case c.SoundCapabilitySet != nil:
		return c.SoundCapabilitySet.Serialize()
	case c.InputCapabilitySet != nil:
		return c.InputCapabilitySet.Serialize()
	case c.FontCapabilitySet != nil:
		return c.FontCapabilitySet.Serialize()
	case c.BrushCapabilitySet != nil:
		return c.BrushCapabilitySet.Serialize()
	case c.GlyphCacheCapabilitySet != nil:
		return c.GlyphCacheCapabilitySet.Serialize()
	case c.OffscreenBitmapCacheCapabilitySet != nil:
		return c.OffscreenBitmapCacheCapabilitySet.Serialize()
	case c.VirtualChannelCapabilitySet != nil:
		return c.VirtualChannelCapabilitySet.Serialize()
	case c.DrawNineGridCacheCapabilitySet != nil:
		return c.DrawNineGridCacheCapabilitySet.Serialize()
	case c.DrawGDIPlusCapabilitySet != nil:
		return c.DrawGDIPlusCapabilitySet.Serialize()
	case c.RailCapabilitySet != nil:
		return c.RailCapabilitySet.Serialize()
	case c.WindowListCapabilitySet != nil:
		return c.WindowListCapabilitySet.Serialize()
	case c.DesktopCompositionCapabilitySet != nil:
		return c.DesktopCompositionCapabilitySet.Serialize()
	case c.MultifragmentUpdateCapabilitySet != nil:
		return c.MultifragmentUpdateCapabilitySet.Serialize()
	case c.LargePointerCapabilitySet != nil:
		return c.LargePointerCapabilitySet.Serialize()
	case c.SurfaceCommandsCapabilitySet != nil:
		return c.SurfaceCommandsCapabilitySet.Serialize()
	case c.BitmapCodecsCapabilitySet != nil:
		return c.BitmapCodecsCapabilitySet.Serialize()
	case c.FrameAcknowledgeCapabilitySet != nil:
		return c.FrameAcknowledgeCapabilitySet.Serialize()
	case c.BitmapCacheHostSupportCapabilitySet != nil:
		return nil
	default:
		return nil
	}
}

// Serialize encodes the capability set including its 4-byte header
// (capabilitySetType + lengthCapability, self-inclusive of the header).
func (c *CapabilitySet) Serialize() []byte {
	body := c.body()

	header := make([]byte, 4)
	binary.LittleEndian.PutUint16(header[0:2], uint16(c.CapabilitySetType))
	binary.LittleEndian.PutUint16(header[2:4], uint16(4+len(body))) // #nosec G115

	return append(header, body...)
}

// Deserialize decodes a capability set, dispatching on capabilitySetType to
// the matching sub-structure. An unrecognized type is not an error: its
// body is consumed and discarded so the caller can keep walking the
// capabilitySets array.
func (c *CapabilitySet) Deserialize(wire io.Reader) error {
	var capType, length uint16

	if err := binary.Read(wire, binary.LittleEndian, &capType); err != nil {
		return err
	}
	if err := binary.Read(wire, binary.LittleEndian, &length); err != nil {
		return err
	}
	if length < 4 {
		return fmt.Errorf("capability set length %d below header size", length)
	}

	body := make([]byte, length-4)
	if _, err := io.ReadFull(wire, body); err != nil {
		return err
	}

	c.CapabilitySetType = CapabilitySetType(capType)
	r := bytes.NewReader(body)

	switch c.CapabilitySetType {
	case CapabilitySetTypeGeneral:
		c.GeneralCapabilitySet = &GeneralCapabilitySet{}
		return c.GeneralCapabilitySet.Deserialize(r)
	case CapabilitySetTypeBitmap:
		c.BitmapCapabilitySet = &BitmapCapabilitySet{}
		return c.BitmapCapabilitySet.Deserialize(r)
	case CapabilitySetTypeOrder:
		c.OrderCapabilitySet = &OrderCapabilitySet{}
		return c.OrderCapabilitySet.Deserialize(r)
	case CapabilitySetTypeBitmapCache:
		c.BitmapCacheCapabilitySetRev1 = &BitmapCacheCapabilitySetRev1{}
		return c.BitmapCacheCapabilitySetRev1.Deserialize(r)
	case CapabilitySetTypeBitmapCacheRev2:
		c.BitmapCacheCapabilitySetRev2 = &BitmapCacheCapabilitySetRev2{}
		return c.BitmapCacheCapabilitySetRev2.Deserialize(r)
	case CapabilitySetTypeColorCache:
		c.ColorCacheCapabilitySet = &ColorCacheCapabilitySet{}
		return c.ColorCacheCapabilitySet.Deserialize(r)
	case CapabilitySetTypeControl:
		c.ControlCapabilitySet = &ControlCapabilitySet{}
		return c.ControlCapabilitySet.Deserialize(r)
	case CapabilitySetTypeActivation:
		c.WindowActivationCapabilitySet = &WindowActivationCapabilitySet{}
		return c.WindowActivationCapabilitySet.Deserialize(r)
	case CapabilitySetTypePointer:
		c.PointerCapabilitySet = &PointerCapabilitySet{lengthCapability: length - 4}
		return c.PointerCapabilitySet.Deserialize(r)
	case CapabilitySetTypeShare:
		c.ShareCapabilitySet = &ShareCapabilitySet{}
		return c.ShareCapabilitySet.Deserialize(r)
	case CapabilitySetTypeSound:
		c.SoundCapabilitySet = &SoundCapabilitySet{}
		return c.SoundCapabilitySet.Deserialize(r)
	case CapabilitySetTypeInput:
		c.InputCapabilitySet = &InputCapabilitySet{}
		return c.InputCapabilitySet.Deserialize(r)
	case CapabilitySetTypeFont:
		c.FontCapabilitySet = &FontCapabilitySet{}
		return c.FontCapabilitySet.Deserialize(r)
	case CapabilitySetTypeBrush:
		c.BrushCapabilitySet = &BrushCapabilitySet{}
		return c.BrushCapabilitySet.Deserialize(r)
	case CapabilitySetTypeGlyphCache:
		c.GlyphCacheCapabilitySet = &GlyphCacheCapabilitySet{}
		return c.GlyphCacheCapabilitySet.Deserialize(r)
	case CapabilitySetTypeOffscreenBitmapCache:
		c.OffscreenBitmapCacheCapabilitySet = &OffscreenBitmapCacheCapabilitySet{}
		return c.OffscreenBitmapCacheCapabilitySet.Deserialize(r)
	case CapabilitySetTypeBitmapCacheHostSupport:
		c.BitmapCacheHostSupportCapabilitySet = &BitmapCacheHostSupportCapabilitySet{}
		return c.BitmapCacheHostSupportCapabilitySet.Deserialize(r)
	case CapabilitySetTypeVirtualChannel:
		c.VirtualChannelCapabilitySet = &VirtualChannelCapabilitySet{}
		return c.VirtualChannelCapabilitySet.Deserialize(r)
	case CapabilitySetTypeDrawNineGridCache:
		c.DrawNineGridCacheCapabilitySet = &DrawNineGridCacheCapabilitySet{}
		return c.DrawNineGridCacheCapabilitySet.Deserialize(r)
	case CapabilitySetTypeDrawGDIPlus:
		c.DrawGDIPlusCapabilitySet = &DrawGDIPlusCapabilitySet{}
		return c.DrawGDIPlusCapabilitySet.Deserialize(r)
	case CapabilitySetTypeRail:
		c.RailCapabilitySet = &RailCapabilitySet{}
		return c.RailCapabilitySet.Deserialize(r)
	case CapabilitySetTypeWindow:
		c.WindowListCapabilitySet = &WindowListCapabilitySet{}
		return c.WindowListCapabilitySet.Deserialize(r)
	case CapabilitySetTypeCompDesk:
		c.DesktopCompositionCapabilitySet = &DesktopCompositionCapabilitySet{}
		return c.DesktopCompositionCapabilitySet.Deserialize(r)
	case CapabilitySetTypeMultifragmentUpdate:
		c.MultifragmentUpdateCapabilitySet = &MultifragmentUpdateCapabilitySet{}
		return c.MultifragmentUpdateCapabilitySet.Deserialize(r)
	case CapabilitySetTypeLargePointer:
		c.LargePointerCapabilitySet = &LargePointerCapabilitySet{}
		return c.LargePointerCapabilitySet.Deserialize(r)
	case CapabilitySetTypeSurfaceCommands:
		c.SurfaceCommandsCapabilitySet = &SurfaceCommandsCapabilitySet{}
		return c.SurfaceCommandsCapabilitySet.Deserialize(r)
	case CapabilitySetTypeBitmapCodecs:
		c.BitmapCodecsCapabilitySet = &BitmapCodecsCapabilitySet{}
		return c.BitmapCodecsCapabilitySet.Deserialize(r)
	case CapabilitySetTypeFrameAcknowledge:
		c.FrameAcknowledgeCapabilitySet = &FrameAcknowledgeCapabilitySet{}
		return c.FrameAcknowledgeCapabilitySet.Deserialize(r)
	default:
		return nil
	}
}

// DeserializeQuick reads only the capabilitySetType and skips the body,
// for callers that only need to identify which capabilities a peer sent
// without paying for a full parse of every sub-structure.
func (c *CapabilitySet) DeserializeQuick(wire io.Reader) error {
	var capType, length uint16

	if err := binary.Read(wire, binary.LittleEndian, &capType); err != nil {
		return err
	}
	if err := binary.Read(wire, binary.LittleEndian, &length); err != nil {
		return err
	}
	if length < 4 {
		return fmt.Errorf("capability set length %d below header size", length)
	}

	c.CapabilitySetType = CapabilitySetType(capType)

	if _, err := io.CopyN(io.Discard, wire, int64(length-4)); err != nil {
		return err
	}

	return nil
}

// ServerDemandActive is the TS_DEMAND_ACTIVE_PDU sent by the server to open
// capabilities negotiation (MS-RDPBCGR 2.2.1.13.1).
type ServerDemandActive struct {
	ShareControlHeader ShareControlHeader
	ShareID            uint32
	SourceDescriptor   string
	CapabilitySets     []CapabilitySet
	SessionID          uint32
}

// Deserialize decodes the PDU from wire format.
func (d *ServerDemandActive) Deserialize(wire io.Reader) error {
	if err := d.ShareControlHeader.Deserialize(wire); err != nil {
		return err
	}

	if err := binary.Read(wire, binary.LittleEndian, &d.ShareID); err != nil {
		return err
	}

	var lengthSourceDescriptor, lengthCombinedCapabilities uint16
	if err := binary.Read(wire, binary.LittleEndian, &lengthSourceDescriptor); err != nil {
		return err
	}
	if err := binary.Read(wire, binary.LittleEndian, &lengthCombinedCapabilities); err != nil {
		return err
	}

	sourceDescriptor := make([]byte, lengthSourceDescriptor)
	if _, err := io.ReadFull(wire, sourceDescriptor); err != nil {
		return err
	}
	d.SourceDescriptor = string(sourceDescriptor)

	var numberCapabilities, pad uint16
	if err := binary.Read(wire, binary.LittleEndian, &numberCapabilities); err != nil {
		return err
	}
	if err := binary.Read(wire, binary.LittleEndian, &pad); err != nil {
		return err
	}

	d.CapabilitySets = make([]CapabilitySet, 0, numberCapabilities)
	for i := 0; i < int(numberCapabilities); i++ {
		var set CapabilitySet
		if err := set.Deserialize(wire); err != nil {
			return err
		}
		d.CapabilitySets = append(d.CapabilitySets, set)
	}

	return binary.Read(wire, binary.LittleEndian, &d.SessionID)
}

// ClientConfirmActive is the TS_CONFIRM_ACTIVE_PDU the client replies with
// after receiving the server's Demand Active PDU (MS-RDPBCGR 2.2.1.13.2).
type ClientConfirmActive struct {
	ShareControlHeader ShareControlHeader
	ShareID            uint32
	OriginatorID       uint16
	CapabilitySets     []CapabilitySet
}

// clientSourceDescriptor identifies this client in the Confirm Active PDU.
// Real servers don't act on its contents; it just needs to be present.
var clientSourceDescriptor = []byte("rdp-mitm")

// NewClientConfirmActive builds the capability set the proxy advertises to
// the real server in place of whatever the downstream client would have
// sent, covering the capability families every RDP server expects to see
// (MS-RDPBCGR 2.2.7.1). RemoteApp sessions additionally advertise the Rail
// and Window List capability sets (MS-RDPBCGR 2.2.7.2.12, 2.2.7.2.5).
func NewClientConfirmActive(shareID uint32, userID uint16, desktopWidth, desktopHeight uint16, isRemoteApp bool) *ClientConfirmActive {
	sets := []CapabilitySet{
		NewGeneralCapabilitySet(),
		NewBitmapCapabilitySet(desktopWidth, desktopHeight),
		NewOrderCapabilitySet(),
		NewBitmapCacheCapabilitySetRev1(),
		NewPointerCapabilitySet(),
		NewInputCapabilitySet(),
		NewBrushCapabilitySet(),
		NewGlyphCacheCapabilitySet(),
		NewOffscreenBitmapCacheCapabilitySet(),
		NewVirtualChannelCapabilitySet(),
		NewSoundCapabilitySet(),
		NewControlCapabilitySet(),
		NewWindowActivationCapabilitySet(),
		NewShareCapabilitySet(),
		NewFontCapabilitySet(),
		NewMultifragmentUpdateCapabilitySet(),
		NewFrameAcknowledgeCapabilitySet(),
	}

	if isRemoteApp {
		sets = append(sets, NewRailCapabilitySet(), NewWindowListCapabilitySet())
	}

	return &ClientConfirmActive{
		ShareID:        shareID,
		OriginatorID:   userID,
		CapabilitySets: sets,
	}
}

// Serialize encodes the PDU to wire format.
func (c *ClientConfirmActive) Serialize() []byte {
	var capsBuf bytes.Buffer
	for i := range c.CapabilitySets {
		capsBuf.Write(c.CapabilitySets[i].Serialize())
	}

	lengthCombinedCapabilities := uint16(4 + capsBuf.Len()) // #nosec G115

	body := new(bytes.Buffer)
	_ = binary.Write(body, binary.LittleEndian, c.ShareID)
	_ = binary.Write(body, binary.LittleEndian, c.OriginatorID)
	_ = binary.Write(body, binary.LittleEndian, uint16(len(clientSourceDescriptor)))
	_ = binary.Write(body, binary.LittleEndian, lengthCombinedCapabilities)
	body.Write(clientSourceDescriptor)
	_ = binary.Write(body, binary.LittleEndian, uint16(len(c.CapabilitySets))) // #nosec G115
	_ = binary.Write(body, binary.LittleEndian, uint16(0))                    // pad2Octets
	body.Write(capsBuf.Bytes())

	c.ShareControlHeader.PDUType = TypeConfirmActive
	c.ShareControlHeader.PDUSource = c.OriginatorID
	c.ShareControlHeader.TotalLength = uint16(6 + body.Len()) // #nosec G115

	out := new(bytes.Buffer)
	out.Write(c.ShareControlHeader.Serialize())
	out.Write(body.Bytes())

	return out.Bytes()
}

// Deserialize decodes the PDU from wire format.
func (c *ClientConfirmActive) Deserialize(wire io.Reader) error {
	if err := c.ShareControlHeader.Deserialize(wire); err != nil {
		return err
	}

	if err := binary.Read(wire, binary.LittleEndian, &c.ShareID); err != nil {
		return err
	}
	if err := binary.Read(wire, binary.LittleEndian, &c.OriginatorID); err != nil {
		return err
	}

	var lengthSourceDescriptor, lengthCombinedCapabilities uint16
	if err := binary.Read(wire, binary.LittleEndian, &lengthSourceDescriptor); err != nil {
		return err
	}
	if err := binary.Read(wire, binary.LittleEndian, &lengthCombinedCapabilities); err != nil {
		return err
	}

	sourceDescriptor := make([]byte, lengthSourceDescriptor)
	if _, err := io.ReadFull(wire, sourceDescriptor); err != nil {
		return err
	}

	var numberCapabilities, pad uint16
	if err := binary.Read(wire, binary.LittleEndian, &numberCapabilities); err != nil {
		return err
	}
	if err := binary.Read(wire, binary.LittleEndian, &pad); err != nil {
		return err
	}

	c.CapabilitySets = make([]CapabilitySet, 0, numberCapabilities)
	for i := 0; i < int(numberCapabilities); i++ {
		var set CapabilitySet
		if err := set.Deserialize(wire); err != nil {
			return err
		}
		c.CapabilitySets = append(c.CapabilitySets, set)
	}

	return nil
}

// NewColorCacheCapabilitySet creates a Color Cache Capability Set with
// default values (MS-RDPBCGR 2.2.7.1.9).
func NewColorCacheCapabilitySet() CapabilitySet {
	return CapabilitySet{
		CapabilitySetType:       CapabilitySetTypeColorCache,
		ColorCacheCapabilitySet: &ColorCacheCapabilitySet{ColorTableCacheSize: 6},
	}
}

// NewControlCapabilitySet creates a Control Capability Set with default
// client values (MS-RDPBCGR 2.2.7.2.2).
func NewControlCapabilitySet() CapabilitySet {
	return CapabilitySet{
		CapabilitySetType:    CapabilitySetTypeControl,
		ControlCapabilitySet: &ControlCapabilitySet{},
	}
}

// NewWindowActivationCapabilitySet creates a Window Activation Capability
// Set with default client values (MS-RDPBCGR 2.2.7.2.3).
func NewWindowActivationCapabilitySet() CapabilitySet {
	return CapabilitySet{
		CapabilitySetType:             CapabilitySetTypeActivation,
		WindowActivationCapabilitySet: &WindowActivationCapabilitySet{},
	}
}

// NewShareCapabilitySet creates a Share Capability Set with default client
// values (MS-RDPBCGR 2.2.7.2.4).
func NewShareCapabilitySet() CapabilitySet {
	return CapabilitySet{
		CapabilitySetType:  CapabilitySetTypeShare,
		ShareCapabilitySet: &ShareCapabilitySet{},
	}
}

// NewFontCapabilitySet creates a Font Capability Set with default client
// values (MS-RDPBCGR 2.2.7.2.5).
func NewFontCapabilitySet() CapabilitySet {
	return CapabilitySet{
		CapabilitySetType: CapabilitySetTypeFont,
		FontCapabilitySet: &FontCapabilitySet{fontSupportFlags: 0x0001},
	}
}

// FrameAcknowledgeCapabilitySet represents the TS_FRAME_ACKNOWLEDGE_CAPABILITYSET
// structure (MS-RDPBCGR 2.2.7.2.7), used by the client to tell the server how
// many in-flight frames it will track before blocking on acknowledgements.
type FrameAcknowledgeCapabilitySet struct {
	MaxUnacknowledgedFrames uint32
}

// NewFrameAcknowledgeCapabilitySet creates a Frame Acknowledge Capability Set
// with a conservative default window size.
func NewFrameAcknowledgeCapabilitySet() CapabilitySet {
	return CapabilitySet{
		CapabilitySetType:             CapabilitySetTypeFrameAcknowledge,
		FrameAcknowledgeCapabilitySet: &FrameAcknowledgeCapabilitySet{MaxUnacknowledgedFrames: 2},
	}
}

// Serialize encodes the capability set to wire format.
func (s *FrameAcknowledgeCapabilitySet) Serialize() []byte {
	buf := new(bytes.Buffer)
	_ = binary.Write(buf, binary.LittleEndian, s.MaxUnacknowledgedFrames)
	return buf.Bytes()
}

// Deserialize decodes the capability set from wire format.
func (s *FrameAcknowledgeCapabilitySet) Deserialize(wire io.Reader) error {
	return binary.Read(wire, binary.LittleEndian, &s.MaxUnacknowledgedFrames)
}

// Serialize encodes the capability set to wire format.
func (s *LargePointerCapabilitySet) Serialize() []byte {
	buf := new(bytes.Buffer)
	_ = binary.Write(buf, binary.LittleEndian, s.LargePointerSupportFlags)
	return buf.Bytes()
}

// Serialize encodes the capability set to wire format.
func (s *DesktopCompositionCapabilitySet) Serialize() []byte {
	buf := new(bytes.Buffer)
	_ = binary.Write(buf, binary.LittleEndian, s.CompDeskSupportLevel)
	return buf.Bytes()
}

// Deserialize decodes the capability set from wire format.
func (s *RailCapabilitySet) Deserialize(wire io.Reader) error {
	return binary.Read(wire, binary.LittleEndian, &s.RailSupportLevel)
}

// Deserialize decodes the capability set from wire format.
func (s *WindowListCapabilitySet) Deserialize(wire io.Reader) error {
	if err := binary.Read(wire, binary.LittleEndian, &s.WndSupportLevel); err != nil {
		return err
	}
	if err := binary.Read(wire, binary.LittleEndian, &s.NumIconCaches); err != nil {
		return err
	}
	return binary.Read(wire, binary.LittleEndian, &s.NumIconCacheEntries)
}
