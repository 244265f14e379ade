package replay

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rcarmo/rdp-mitm/internal/recorder"
)

func buildFrame(mt recorder.MessageType, ts uint64, payload []byte) []byte {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, uint16(mt))
	binary.Write(&buf, binary.LittleEndian, ts)
	binary.Write(&buf, binary.LittleEndian, uint32(len(payload)))
	buf.Write(payload)
	return buf.Bytes()
}

func TestReadFrame_RoundTripsRecorderFraming(t *testing.T) {
	raw := buildFrame(recorder.MessageTypeClientInfo, 12345, []byte("payload"))
	f, err := ReadFrame(bytes.NewReader(raw))
	require.NoError(t, err)
	require.Equal(t, recorder.MessageTypeClientInfo, f.MessageType)
	require.Equal(t, uint64(12345), f.TimestampMs)
	require.Equal(t, []byte("payload"), f.Payload)
}

func TestReadFrame_ReturnsEOFAtBoundary(t *testing.T) {
	_, err := ReadFrame(bytes.NewReader(nil))
	require.ErrorIs(t, err, io.EOF)
}

func TestReadAll_ReadsEverySequentialFrame(t *testing.T) {
	var all bytes.Buffer
	all.Write(buildFrame(recorder.MessageTypeFastPathInput, 1, []byte("a")))
	all.Write(buildFrame(recorder.MessageTypeFastPathOutput, 2, []byte("bb")))

	frames, err := ReadAll(&all)
	require.NoError(t, err)
	require.Len(t, frames, 2)
	require.Equal(t, recorder.MessageTypeFastPathInput, frames[0].MessageType)
	require.Equal(t, recorder.MessageTypeFastPathOutput, frames[1].MessageType)
}
