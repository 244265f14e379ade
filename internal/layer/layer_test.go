package layer

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEngine_EmitFansOutToAllObservers(t *testing.T) {
	e := NewEngine()

	var gotA, gotB []byte
	source := e.Add("source", ObserverFunc(func(data []byte) error { return nil }))
	a := e.Add("observer-a", ObserverFunc(func(data []byte) error { gotA = data; return nil }))
	b := e.Add("observer-b", ObserverFunc(func(data []byte) error { gotB = data; return nil }))

	require.NoError(t, e.Connect(source, a))
	require.NoError(t, e.Connect(source, b))

	require.NoError(t, e.Emit(source, []byte("hello")))
	require.Equal(t, []byte("hello"), gotA)
	require.Equal(t, []byte("hello"), gotB)
}

func TestEngine_EmitStopsAtFirstError(t *testing.T) {
	e := NewEngine()

	source := e.Add("source", ObserverFunc(func(data []byte) error { return nil }))
	failing := e.Add("failing", ObserverFunc(func(data []byte) error { return errors.New("boom") }))
	never := e.Add("never", ObserverFunc(func(data []byte) error {
		t.Fatal("should not be reached after a prior observer errors")
		return nil
	}))

	require.NoError(t, e.Connect(source, failing))
	require.NoError(t, e.Connect(source, never))

	err := e.Emit(source, []byte("x"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "failing observing source")
}

func TestEngine_ConnectRejectsInvalidIndices(t *testing.T) {
	e := NewEngine()
	idx := e.Add("only", ObserverFunc(func(data []byte) error { return nil }))

	require.Error(t, e.Connect(idx, 42))
	require.Error(t, e.Connect(42, idx))
}

func TestEngine_UnconnectedSourceEmitsWithoutError(t *testing.T) {
	e := NewEngine()
	idx := e.Add("lonely", ObserverFunc(func(data []byte) error { return nil }))
	require.NoError(t, e.Emit(idx, []byte("x")))
}
