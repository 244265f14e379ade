package mitm

import (
	"encoding/binary"
	"fmt"

	"github.com/rs/zerolog"
)

// CLIPRDR message types the clipboard observer cares about (MS-RDPECLIP
// 2.2.2). The MITM only reads format-data responses; every other message
// (capabilities, format list, monitor-ready) passes through unobserved.
const (
	cliprdrMsgTypeFormatDataResponse uint16 = 0x0005
)

// clipboardPDUHeader is the fixed MS-RDPECLIP 2.2.1 PDU header every
// CLIPRDR message starts with.
type clipboardPDUHeader struct {
	MsgType  uint16
	MsgFlags uint16
	DataLen  uint32
}

func (h *clipboardPDUHeader) deserialize(data []byte) ([]byte, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("mitm: cliprdr header: need 8 bytes, got %d", len(data))
	}
	h.MsgType = binary.LittleEndian.Uint16(data[0:2])
	h.MsgFlags = binary.LittleEndian.Uint16(data[2:4])
	h.DataLen = binary.LittleEndian.Uint32(data[4:8])
	return data[8:], nil
}

// ClipboardHandler observes CLIPRDR traffic carried over the dynamic
// virtual channel transport, recording format-data-response payloads
// (the actual clipboard contents) without altering them in transit.
type ClipboardHandler struct {
	log     zerolog.Logger
	onData  func(data []byte)
}

// NewClipboardHandler builds a handler that invokes onData with the raw
// clipboard payload every time the server returns one, e.g. so the
// recorder can emit a CLIPBOARD_DATA replay event (spec §4.5 expansion).
func NewClipboardHandler(log zerolog.Logger, onData func(data []byte)) *ClipboardHandler {
	return &ClipboardHandler{
		log:    log.With().Str("component", "mitm.clipboard").Logger(),
		onData: onData,
	}
}

// HandleData implements ChannelHandler.
func (h *ClipboardHandler) HandleData(data []byte) error {
	var header clipboardPDUHeader
	body, err := header.deserialize(data)
	if err != nil {
		return err
	}

	if header.MsgType != cliprdrMsgTypeFormatDataResponse {
		return nil
	}

	payload := body
	if uint32(len(payload)) > header.DataLen {
		payload = payload[:header.DataLen]
	}

	h.log.Debug().Int("bytes", len(payload)).Msg("clipboard format data response observed")
	if h.onData != nil {
		h.onData(payload)
	}
	return nil
}

// DeviceHandler observes RDPDR device-announce PDUs relayed over the
// static rdpdr channel, recording the announced device list as a
// CLIENT_DATA replay event without participating in the redirection
// protocol itself.
type DeviceHandler struct {
	log    zerolog.Logger
	onData func(data []byte)
}

// NewDeviceHandler builds a handler that forwards every RDPDR PDU's raw
// bytes to onData; device-announce parsing detail is left to the replay
// side, which only needs the payload to reproduce the session, not to
// act on it live.
func NewDeviceHandler(log zerolog.Logger, onData func(data []byte)) *DeviceHandler {
	return &DeviceHandler{
		log:    log.With().Str("component", "mitm.device").Logger(),
		onData: onData,
	}
}

// HandleData implements ChannelHandler.
func (h *DeviceHandler) HandleData(data []byte) error {
	h.log.Debug().Int("bytes", len(data)).Msg("device redirection pdu observed")
	if h.onData != nil {
		h.onData(data)
	}
	return nil
}
