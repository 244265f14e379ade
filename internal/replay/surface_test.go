package replay

import "testing"

import "github.com/stretchr/testify/require"

func TestSurface_FillRectDecomposesColorRefChannels(t *testing.T) {
	s := NewSurface(4, 4)
	s.FillRect(1, 1, 2, 2, 0x003300FF) // low byte red=0xFF, mid byte green=0x00, high byte blue=0x33

	idx := (1*4 + 1) * 4
	require.Equal(t, uint8(0xFF), s.Pixels[idx])   // R
	require.Equal(t, uint8(0x00), s.Pixels[idx+1]) // G
	require.Equal(t, uint8(0x33), s.Pixels[idx+2]) // B
	require.Equal(t, uint8(0xFF), s.Pixels[idx+3]) // A
}

func TestSurface_FillRectClipsToBounds(t *testing.T) {
	s := NewSurface(2, 2)
	require.NotPanics(t, func() {
		s.FillRect(-5, -5, 100, 100, 0xFFFFFF)
	})
	for i := 0; i < len(s.Pixels); i += 4 {
		require.Equal(t, uint8(0xFF), s.Pixels[i])
	}
}

func TestSurface_BlitCopiesPixelsAtOffset(t *testing.T) {
	s := NewSurface(4, 4)
	src := make([]byte, 2*2*4)
	for i := range src {
		src[i] = 0x7F
	}
	s.Blit(1, 1, 2, 2, src)

	idx := (1*4 + 1) * 4
	require.Equal(t, uint8(0x7F), s.Pixels[idx])
}
