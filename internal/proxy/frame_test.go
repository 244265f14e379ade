package proxy

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rcarmo/rdp-mitm/internal/protocol/mcs"
	"github.com/rcarmo/rdp-mitm/internal/protocol/x224"
)

// buildSlowPathFrame wraps an MCS Send Data Request payload in an X.224 Data
// TPDU and a TPKT header, the same nesting SlowPathChannel unwraps.
func buildSlowPathFrame(t *testing.T, channelID uint16, payload []byte) []byte {
	t.Helper()

	dom := mcs.DomainPDU{
		Application: mcs.SendDataRequest,
		ClientSendDataRequest: &mcs.ClientSendDataRequest{
			Initiator: 1007,
			ChannelId: channelID,
			Data:      payload,
		},
	}

	xd := x224.Data{LI: 0x02, DTROA: 0xF0, NREOT: 0x80, UserData: dom.Serialize()}
	body := xd.Serialize()

	tpkt := make([]byte, 4, 4+len(body))
	tpkt[0] = tpktVersion
	tpkt[1] = 0x00
	totalLen := uint16(4 + len(body))
	tpkt[2] = byte(totalLen >> 8)
	tpkt[3] = byte(totalLen)
	tpkt = append(tpkt, body...)

	return tpkt
}

func TestReadFrame_SlowPath(t *testing.T) {
	raw := buildSlowPathFrame(t, 1004, []byte("hello"))
	r := bufio.NewReader(bytes.NewReader(raw))

	frame, err := readFrame(r)
	require.NoError(t, err)
	require.Equal(t, FrameSlowPath, frame.Kind)
	require.Equal(t, raw, frame.Raw)
}

func TestReadFrame_FastPath(t *testing.T) {
	raw := []byte{0x04, 0x05, 0x01, 0x02, 0x03}
	r := bufio.NewReader(bytes.NewReader(raw))

	frame, err := readFrame(r)
	require.NoError(t, err)
	require.Equal(t, FrameFastPath, frame.Kind)
	require.Equal(t, raw, frame.Raw)
}

func TestReadFrame_FastPathTwoByteLength(t *testing.T) {
	data := bytes.Repeat([]byte{0xAB}, 200)
	length := 1 + 2 + len(data)
	raw := []byte{0x04, byte(0x80 | (length >> 8)), byte(length)}
	raw = append(raw, data...)

	r := bufio.NewReader(bytes.NewReader(raw))
	frame, err := readFrame(r)
	require.NoError(t, err)
	require.Equal(t, FrameFastPath, frame.Kind)
	require.Equal(t, raw, frame.Raw)
}

func TestReadFrame_TruncatedSlowPath(t *testing.T) {
	raw := buildSlowPathFrame(t, 1004, []byte("hello"))
	r := bufio.NewReader(bytes.NewReader(raw[:6]))

	_, err := readFrame(r)
	require.Error(t, err)
}

func TestSlowPathChannel_ExtractsChannelAndPayload(t *testing.T) {
	raw := buildSlowPathFrame(t, 1004, []byte("payload-bytes"))

	channelID, payload, ok := SlowPathChannel(raw)
	require.True(t, ok)
	require.Equal(t, uint16(1004), channelID)
	require.Equal(t, []byte("payload-bytes"), payload)
}

func TestSlowPathChannel_NotASendDataPDU(t *testing.T) {
	dom := mcs.DomainPDU{
		Application:             mcs.SendDataIndication + 100, // not attachUserRequest/SendDataRequest
		ClientAttachUserRequest: &mcs.ClientAttachUserRequest{},
	}
	xd := x224.Data{LI: 0x02, DTROA: 0xF0, NREOT: 0x80, UserData: dom.Serialize()}
	body := xd.Serialize()
	raw := append([]byte{tpktVersion, 0x00, 0x00, byte(4 + len(body))}, body...)

	_, _, ok := SlowPathChannel(raw)
	require.False(t, ok)
}

func TestSlowPathChannel_TooShort(t *testing.T) {
	_, _, ok := SlowPathChannel([]byte{0x03, 0x00})
	require.False(t, ok)
}
