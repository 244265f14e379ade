package mitm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type recordingHandler struct {
	received [][]byte
	err      error
}

func (h *recordingHandler) HandleData(data []byte) error {
	h.received = append(h.received, data)
	return h.err
}

func TestChannelTable_DispatchRoutesToRegisteredHandler(t *testing.T) {
	table := NewChannelTable()
	handler := &recordingHandler{}
	table.Register(1004, "clipboard", handler)

	require.NoError(t, table.Dispatch(1004, []byte("hello")))
	require.Equal(t, [][]byte{[]byte("hello")}, handler.received)
	require.Equal(t, "clipboard", table.Name(1004))
}

func TestChannelTable_DispatchUnregisteredChannelIsNoOp(t *testing.T) {
	table := NewChannelTable()
	require.NoError(t, table.Dispatch(9999, []byte("x")))
	require.Equal(t, "", table.Name(9999))
}

func TestChannelTable_DispatchWrapsHandlerError(t *testing.T) {
	table := NewChannelTable()
	handler := &recordingHandler{err: errors.New("boom")}
	table.Register(1005, "device", handler)

	err := table.Dispatch(1005, []byte("x"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "channel 1005")
}
