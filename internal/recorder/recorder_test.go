package recorder

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type memSink struct {
	frames [][]byte
	closed bool
	failOn func([]byte) error
}

func (s *memSink) Write(frame []byte) error {
	if s.failOn != nil {
		if err := s.failOn(frame); err != nil {
			return err
		}
	}
	s.frames = append(s.frames, append([]byte(nil), frame...))
	return nil
}

func (s *memSink) Close() error {
	s.closed = true
	return nil
}

func fixedClock(ms uint64) Clock {
	return func() uint64 { return ms }
}

func TestRecorder_EncodesAndFramesForRegisteredMessageType(t *testing.T) {
	sink := &memSink{}
	r := New(fixedClock(1000), zerolog.Nop(), sink)
	r.SetEncoder(MessageTypeClientInfo, EncoderFunc(func(pdu any) ([]byte, error) {
		return []byte("hello"), nil
	}))

	require.NoError(t, r.Record(struct{}{}, MessageTypeClientInfo))
	require.Len(t, sink.frames, 1)

	frame := sink.frames[0]
	require.Equal(t, uint16(MessageTypeClientInfo), binary.LittleEndian.Uint16(frame[0:2]))
	require.Equal(t, uint64(1000), binary.LittleEndian.Uint64(frame[2:10]))
	require.Equal(t, uint32(5), binary.LittleEndian.Uint32(frame[10:14]))
	require.Equal(t, []byte("hello"), frame[14:])
}

func TestRecorder_ForwardsPreEncodedBytesWhenNoEncoderRegistered(t *testing.T) {
	sink := &memSink{}
	r := New(fixedClock(1), zerolog.Nop(), sink)

	require.NoError(t, r.Record([]byte("raw"), MessageTypeFastPathOutput))
	require.Len(t, sink.frames, 1)
	require.Equal(t, []byte("raw"), sink.frames[0][14:])
}

func TestRecorder_ErrorsWhenNoEncoderAndPDUIsNotBytes(t *testing.T) {
	sink := &memSink{}
	r := New(fixedClock(1), zerolog.Nop(), sink)

	err := r.Record(struct{}{}, MessageTypeFastPathOutput)
	require.Error(t, err)
}

func TestRecorder_OneSinkFailureDoesNotBlockOthers(t *testing.T) {
	failing := &memSink{failOn: func([]byte) error { return errors.New("disk full") }}
	ok := &memSink{}
	r := New(fixedClock(1), zerolog.Nop(), failing, ok)

	require.NoError(t, r.Record([]byte("x"), MessageTypeFastPathInput))
	require.Len(t, ok.frames, 1)
	require.Empty(t, failing.frames)
}

func TestRecorder_FinalizeClosesAllSinks(t *testing.T) {
	a, b := &memSink{}, &memSink{}
	r := New(fixedClock(1), zerolog.Nop(), a, b)
	require.NoError(t, r.Finalize())
	require.True(t, a.closed)
	require.True(t, b.closed)
}
