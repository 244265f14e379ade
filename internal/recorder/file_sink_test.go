package recorder

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFileSink_SanitizesColonsInFilename(t *testing.T) {
	sink := NewFileSink("2026-07-30T10:20:30.rdp")
	require.Equal(t, "2026-07-30T10_20_30.rdp", sink.filename)
}

func TestFileSink_DoesNotCreateFileBelowFlushThreshold(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "session.rdp")
	sink := NewFileSink(path)

	require.NoError(t, sink.Write(make([]byte, FlushThreshold-1)))
	_, err := os.Stat(path)
	require.True(t, os.IsNotExist(err))
	require.NoError(t, sink.Close())
	_, err = os.Stat(path)
	require.True(t, os.IsNotExist(err))
}

func TestFileSink_CreatesFileOnceThresholdCrossed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "session.rdp")
	sink := NewFileSink(path)

	require.NoError(t, sink.Write(make([]byte, FlushThreshold+5)))
	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, int64(FlushThreshold+5), info.Size())

	require.NoError(t, sink.Write([]byte("more")))
	require.NoError(t, sink.Close())

	info, err = os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, int64(FlushThreshold+5+4), info.Size())
}
