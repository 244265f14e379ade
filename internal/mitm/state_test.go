package mitm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewState_AssignsUniqueSessionIDs(t *testing.T) {
	a := NewState(WindowSize{Width: 800, Height: 600})
	b := NewState(WindowSize{Width: 800, Height: 600})

	require.NotEqual(t, a.SessionID, b.SessionID)
	require.Equal(t, WindowSize{Width: 800, Height: 600}, a.WindowSize)
}
