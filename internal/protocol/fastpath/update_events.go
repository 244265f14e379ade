package fastpath

import (
	"bytes"
	"encoding/binary"
	"io"
)

// PaletteEntry is a TS_PALETTE_ENTRY (MS-RDPBCGR 2.2.9.1.1.3.1.2.1).
type PaletteEntry struct {
	Red   uint8
	Green uint8
	Blue  uint8
}

// Deserialize reads a single R,G,B triplet.
func (e *PaletteEntry) Deserialize(r io.Reader) error {
	if err := binary.Read(r, binary.LittleEndian, &e.Red); err != nil {
		return err
	}
	if err := binary.Read(r, binary.LittleEndian, &e.Green); err != nil {
		return err
	}
	if err := binary.Read(r, binary.LittleEndian, &e.Blue); err != nil {
		return err
	}
	return nil
}

// paletteUpdateData is a TS_UPDATE_PALETTE_DATA (MS-RDPBCGR 2.2.9.1.1.3.1.1).
type paletteUpdateData struct {
	updateType     uint16
	padding        uint16
	numberColors   uint16
	PaletteEntries []PaletteEntry
}

func (d *paletteUpdateData) Deserialize(r io.Reader) error {
	if err := binary.Read(r, binary.LittleEndian, &d.updateType); err != nil {
		return err
	}
	if err := binary.Read(r, binary.LittleEndian, &d.padding); err != nil {
		return err
	}
	if err := binary.Read(r, binary.LittleEndian, &d.numberColors); err != nil {
		return err
	}

	d.PaletteEntries = make([]PaletteEntry, d.numberColors)
	for i := range d.PaletteEntries {
		if err := d.PaletteEntries[i].Deserialize(r); err != nil {
			return err
		}
	}
	return nil
}

// CompressedDataHeader is a TS_CD_HEADER preceding an RLE-compressed bitmap
// stream when BITMAP_COMPRESSION is set without NO_BITMAP_COMPRESSION_HDR.
type CompressedDataHeader struct {
	CbCompFirstRowSize uint16
	CbCompMainBodySize uint16
	CbScanWidth        uint16
	CbUncompressedSize uint16
}

func (h *CompressedDataHeader) Deserialize(r io.Reader) error {
	if err := binary.Read(r, binary.LittleEndian, &h.CbCompFirstRowSize); err != nil {
		return err
	}
	if err := binary.Read(r, binary.LittleEndian, &h.CbCompMainBodySize); err != nil {
		return err
	}
	if err := binary.Read(r, binary.LittleEndian, &h.CbScanWidth); err != nil {
		return err
	}
	if err := binary.Read(r, binary.LittleEndian, &h.CbUncompressedSize); err != nil {
		return err
	}
	return nil
}

// BitmapDataFlag is the TS_BITMAP_DATA flags field.
type BitmapDataFlag uint16

const (
	BitmapDataFlagCompression BitmapDataFlag = 0x0001
	BitmapDataFlagNoHDR       BitmapDataFlag = 0x0400
)

// BitmapData is a TS_BITMAP_DATA (MS-RDPBCGR 2.2.9.1.1.3.1.2).
type BitmapData struct {
	DestLeft         uint16
	DestTop          uint16
	DestRight        uint16
	DestBottom       uint16
	Width            uint16
	Height           uint16
	BitsPerPixel     uint16
	Flags            BitmapDataFlag
	BitmapLength     uint16
	CompressedHeader *CompressedDataHeader
	BitmapDataStream []byte
}

func (d *BitmapData) Deserialize(r io.Reader) error {
	if err := binary.Read(r, binary.LittleEndian, &d.DestLeft); err != nil {
		return err
	}
	if err := binary.Read(r, binary.LittleEndian, &d.DestTop); err != nil {
		return err
	}
	if err := binary.Read(r, binary.LittleEndian, &d.DestRight); err != nil {
		return err
	}
	if err := binary.Read(r, binary.LittleEndian, &d.DestBottom); err != nil {
		return err
	}
	if err := binary.Read(r, binary.LittleEndian, &d.Width); err != nil {
		return err
	}
	if err := binary.Read(r, binary.LittleEndian, &d.Height); err != nil {
		return err
	}
	if err := binary.Read(r, binary.LittleEndian, &d.BitsPerPixel); err != nil {
		return err
	}
	if err := binary.Read(r, binary.LittleEndian, &d.Flags); err != nil {
		return err
	}
	if err := binary.Read(r, binary.LittleEndian, &d.BitmapLength); err != nil {
		return err
	}

	streamLength := int(d.BitmapLength)
	if d.Flags&BitmapDataFlagCompression != 0 && d.Flags&BitmapDataFlagNoHDR == 0 {
		d.CompressedHeader = &CompressedDataHeader{}
		if err := d.CompressedHeader.Deserialize(r); err != nil {
			return err
		}
		streamLength -= 8
		if streamLength < 0 {
			streamLength = 0
		}
	}

	d.BitmapDataStream = make([]byte, streamLength)
	if streamLength > 0 {
		if _, err := io.ReadFull(r, d.BitmapDataStream); err != nil {
			return err
		}
	}
	return nil
}

// DecodeBitmapUpdate parses a TS_UPDATE_BITMAP_DATA payload (the Data
// of an Update whose UpdateCode is UpdateCodeBitmap, or the updateData
// of a slow-path UPDATETYPE_BITMAP) into its bitmap rectangles.
func DecodeBitmapUpdate(data []byte) ([]BitmapData, error) {
	d := &bitmapUpdateData{}
	if err := d.Deserialize(bytes.NewReader(data)); err != nil {
		return nil, err
	}
	return d.Rectangles, nil
}

// bitmapUpdateData is a TS_UPDATE_BITMAP_DATA (MS-RDPBCGR 2.2.9.1.1.3.1).
type bitmapUpdateData struct {
	updateType       uint16
	numberRectangles uint16
	Rectangles       []BitmapData
}

func (d *bitmapUpdateData) Deserialize(r io.Reader) error {
	if err := binary.Read(r, binary.LittleEndian, &d.updateType); err != nil {
		return err
	}
	if err := binary.Read(r, binary.LittleEndian, &d.numberRectangles); err != nil {
		return err
	}

	d.Rectangles = make([]BitmapData, d.numberRectangles)
	for i := range d.Rectangles {
		if err := d.Rectangles[i].Deserialize(r); err != nil {
			return err
		}
	}
	return nil
}

// pointerPositionUpdateData is a TS_POINTER_POSITION_ATTRIBUTE wrapper
// (MS-RDPBCGR 2.2.9.1.1.4.2).
type pointerPositionUpdateData struct {
	xPos uint16
	yPos uint16
}

func (d *pointerPositionUpdateData) Deserialize(r io.Reader) error {
	if err := binary.Read(r, binary.LittleEndian, &d.xPos); err != nil {
		return err
	}
	if err := binary.Read(r, binary.LittleEndian, &d.yPos); err != nil {
		return err
	}
	return nil
}

// colorPointerUpdateData is a TS_COLORPOINTERATTRIBUTE (MS-RDPBCGR 2.2.9.1.1.4.4).
type colorPointerUpdateData struct {
	cacheIndex    uint16
	xPos          uint16
	yPos          uint16
	width         uint16
	height        uint16
	lengthAndMask uint16
	lengthXorMask uint16
	xorMaskData   []byte
	andMaskData   []byte
}

func (d *colorPointerUpdateData) Deserialize(r io.Reader) error {
	if err := binary.Read(r, binary.LittleEndian, &d.cacheIndex); err != nil {
		return err
	}
	if err := binary.Read(r, binary.LittleEndian, &d.xPos); err != nil {
		return err
	}
	if err := binary.Read(r, binary.LittleEndian, &d.yPos); err != nil {
		return err
	}
	if err := binary.Read(r, binary.LittleEndian, &d.width); err != nil {
		return err
	}
	if err := binary.Read(r, binary.LittleEndian, &d.height); err != nil {
		return err
	}
	if err := binary.Read(r, binary.LittleEndian, &d.lengthAndMask); err != nil {
		return err
	}
	if err := binary.Read(r, binary.LittleEndian, &d.lengthXorMask); err != nil {
		return err
	}

	if d.lengthXorMask > 0 {
		d.xorMaskData = make([]byte, d.lengthXorMask)
		if _, err := io.ReadFull(r, d.xorMaskData); err != nil {
			return err
		}
	}
	if d.lengthAndMask > 0 {
		d.andMaskData = make([]byte, d.lengthAndMask)
		if _, err := io.ReadFull(r, d.andMaskData); err != nil {
			return err
		}
	}
	return nil
}
