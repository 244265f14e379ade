// Package proxy implements the transparent relay + tap architecture: every
// byte read from one leg of a session is written to the other leg
// unmodified, while frame boundaries are parsed only far enough to hand
// observers (the MITM input heuristics, the channel table, the recorder)
// a copy of what crossed the wire.
package proxy

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/rcarmo/rdp-mitm/internal/protocol/mcs"
	"github.com/rcarmo/rdp-mitm/internal/protocol/x224"
)

// tpktVersion is the leading byte of every slow-path TPKT frame
// (MS-RDPBCGR 2.2.1.3, RFC 1006). Anything else on the wire at a frame
// boundary is a fast-path header (MS-RDPBCGR 2.2.9.1).
const tpktVersion = 0x03

// FrameKind distinguishes the two PDU framings multiplexed on an RDP
// connection: every frame starts with either the TPKT version byte for the
// slow path, or a fast-path action/flags byte otherwise.
type FrameKind int

const (
	FrameSlowPath FrameKind = iota
	FrameFastPath
)

// Frame is one raw, byte-exact wire frame captured while relaying. Raw is
// never reconstructed from parsed fields: it is read straight off the
// wire, header and all, so relaying it onward can never diverge from what
// a passive observer would have seen.
type Frame struct {
	Kind FrameKind
	Raw  []byte
}

// readFrame reads exactly one TPKT or fast-path frame from r.
func readFrame(r *bufio.Reader) (*Frame, error) {
	first, err := r.Peek(1)
	if err != nil {
		return nil, err
	}

	if first[0] == tpktVersion {
		return readSlowPathFrame(r)
	}
	return readFastPathFrame(r)
}

func readSlowPathFrame(r *bufio.Reader) (*Frame, error) {
	header := make([]byte, 4)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, fmt.Errorf("proxy: read tpkt header: %w", err)
	}

	totalLen := binary.BigEndian.Uint16(header[2:4])
	if int(totalLen) < len(header) {
		return nil, fmt.Errorf("proxy: invalid tpkt length %d", totalLen)
	}

	frame := make([]byte, totalLen)
	copy(frame, header)
	if _, err := io.ReadFull(r, frame[len(header):]); err != nil {
		return nil, fmt.Errorf("proxy: read tpkt payload: %w", err)
	}

	return &Frame{Kind: FrameSlowPath, Raw: frame}, nil
}

// readFastPathFrame reads a TS_FP_UPDATE_PDU or TS_FP_INPUT_PDU envelope.
// Both share the same self-inclusive variable-length encoding (MS-RDPBCGR
// 2.2.9.1.1.1, 2.2.9.1.2.1): a 1-byte header, then 1 or 2 length bytes
// whose top bit signals the 2-byte form.
func readFastPathFrame(r *bufio.Reader) (*Frame, error) {
	var header uint8
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("proxy: read fastpath header: %w", err)
	}

	var b0 uint8
	if err := binary.Read(r, binary.LittleEndian, &b0); err != nil {
		return nil, fmt.Errorf("proxy: read fastpath length: %w", err)
	}

	lengthBytes := []byte{b0}
	length := int(b0)
	if b0&0x80 != 0 {
		var b1 uint8
		if err := binary.Read(r, binary.LittleEndian, &b1); err != nil {
			return nil, fmt.Errorf("proxy: read fastpath length: %w", err)
		}
		lengthBytes = append(lengthBytes, b1)
		length = (int(b0&0x7f) << 8) | int(b1)
	}

	if length < 1+len(lengthBytes) {
		return nil, fmt.Errorf("proxy: invalid fastpath length %d", length)
	}

	frame := make([]byte, length)
	frame[0] = header
	copy(frame[1:], lengthBytes)
	if _, err := io.ReadFull(r, frame[1+len(lengthBytes):]); err != nil {
		return nil, fmt.Errorf("proxy: read fastpath payload: %w", err)
	}

	return &Frame{Kind: FrameFastPath, Raw: frame}, nil
}

// SlowPathChannel returns the MCS channel id and payload carried by a
// slow-path frame, if it is a SendDataRequest/SendDataIndication wrapping
// one. Connection-sequence PDUs (negotiation, MCS connect, licensing) do
// not match this shape and report ok == false, not an error: there is
// simply nothing to tap in them.
func SlowPathChannel(raw []byte) (channelID uint16, payload []byte, ok bool) {
	if len(raw) < 4 {
		return 0, nil, false
	}

	r := bytes.NewReader(raw[4:])

	var xd x224.Data
	if err := xd.Deserialize(r); err != nil {
		return 0, nil, false
	}

	var dom mcs.DomainPDU
	if err := dom.Deserialize(r); err != nil {
		return 0, nil, false
	}

	rest, err := io.ReadAll(r)
	if err != nil {
		return 0, nil, false
	}

	switch dom.Application {
	case mcs.SendDataRequest:
		if dom.ClientSendDataRequest == nil {
			return 0, nil, false
		}
		return dom.ClientSendDataRequest.ChannelId, rest, true
	case mcs.SendDataIndication:
		if dom.ServerSendDataIndication == nil {
			return 0, nil, false
		}
		return dom.ServerSendDataIndication.ChannelId, rest, true
	default:
		return 0, nil, false
	}
}
