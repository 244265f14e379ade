package recorder

import (
	"fmt"
	"os"
	"strings"
)

// FlushThreshold is the number of pending frame bytes a FileSink buffers
// before creating the output file, so a session that closes immediately
// never leaves a zero-byte recording behind.
const FlushThreshold = 18

// FileSink writes recorded frames to a file on disk, deferring file
// creation until enough bytes have accumulated to be worth keeping.
type FileSink struct {
	filename string
	pending  []byte
	file     *os.File
}

// NewFileSink builds a FileSink for filename, sanitizing the Windows-
// reserved ':' character out of it.
func NewFileSink(filename string) *FileSink {
	return &FileSink{filename: sanitizeFilename(filename)}
}

// sanitizeFilename replaces ':' with '_', the only character the
// replay file format's target filesystems reliably reject.
func sanitizeFilename(filename string) string {
	return strings.ReplaceAll(filename, ":", "_")
}

// Write implements Sink.
func (s *FileSink) Write(frame []byte) error {
	if s.file == nil {
		s.pending = append(s.pending, frame...)
		if len(s.pending) <= FlushThreshold {
			return nil
		}
		f, err := os.Create(s.filename)
		if err != nil {
			return fmt.Errorf("recorder: create %s: %w", s.filename, err)
		}
		if _, err := f.Write(s.pending); err != nil {
			f.Close()
			return fmt.Errorf("recorder: write initial buffer to %s: %w", s.filename, err)
		}
		s.file = f
		s.pending = nil
		return nil
	}

	if _, err := s.file.Write(frame); err != nil {
		return fmt.Errorf("recorder: write to %s: %w", s.filename, err)
	}
	return nil
}

// Close implements Sink. A session that never crossed FlushThreshold
// leaves nothing on disk, matching the buffering rule's intent.
func (s *FileSink) Close() error {
	if s.file == nil {
		return nil
	}
	return s.file.Close()
}
