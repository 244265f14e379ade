// Package replay implements the reverse pipeline: reading recorded
// session frames back off disk and dispatching them to a rendering
// front-end, reusing the same drawing-order engine and bitmap codec the
// live proxy uses to observe a session.
package replay

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/rcarmo/rdp-mitm/internal/recorder"
)

// Frame is one decoded replay-file record.
type Frame struct {
	MessageType recorder.MessageType
	TimestampMs uint64
	Payload     []byte
}

// ReadFrame reads one frame from r, in the format recorder.Recorder
// writes: messageType (uint16 LE), timestampMs (uint64 LE),
// payloadLength (uint32 LE), payload. Returns io.EOF when r is
// exhausted at a frame boundary.
func ReadFrame(r io.Reader) (*Frame, error) {
	var header [14]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}

	f := &Frame{
		MessageType: recorder.MessageType(binary.LittleEndian.Uint16(header[0:2])),
		TimestampMs: binary.LittleEndian.Uint64(header[2:10]),
	}
	payloadLen := binary.LittleEndian.Uint32(header[10:14])

	f.Payload = make([]byte, payloadLen)
	if payloadLen > 0 {
		if _, err := io.ReadFull(r, f.Payload); err != nil {
			return nil, fmt.Errorf("replay: read payload: %w", err)
		}
	}
	return f, nil
}

// ReadAll reads every frame in r until EOF.
func ReadAll(r io.Reader) ([]*Frame, error) {
	var frames []*Frame
	for {
		f, err := ReadFrame(r)
		if err == io.EOF {
			return frames, nil
		}
		if err != nil {
			return frames, err
		}
		frames = append(frames, f)
	}
}
