// Package layer implements the generic observer/pipeline abstraction the
// MITM relay loop uses to fan one protocol layer's output out to several
// independent consumers (the opposite leg, the input observer, the
// recorder) without those consumers holding references to each other.
//
// Layers are registered in an arena (a single growable slice) and refer
// to each other by index rather than by pointer, so a pipeline that would
// otherwise need cyclic references (a layer observing its own observer,
// directly or transitively) never actually holds one.
package layer

import (
	"fmt"
	"sync"
)

// Observer receives PDUs emitted by a layer it is registered against.
type Observer interface {
	OnPDU(data []byte) error
}

// ObserverFunc adapts a plain function to the Observer interface.
type ObserverFunc func(data []byte) error

// OnPDU implements Observer.
func (f ObserverFunc) OnPDU(data []byte) error { return f(data) }

// Engine is the arena of registered layers plus the observation graph
// between them. The zero value is not usable; use NewEngine.
type Engine struct {
	mu        sync.RWMutex
	layers    []Observer
	names     []string
	observers [][]int
}

// NewEngine builds an empty pipeline engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Add registers a layer in the arena and returns its index, used both to
// emit PDUs on its behalf and to connect other layers to observe it.
func (e *Engine) Add(name string, o Observer) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	idx := len(e.layers)
	e.layers = append(e.layers, o)
	e.names = append(e.names, name)
	e.observers = append(e.observers, nil)
	return idx
}

// Connect registers observerIdx to receive every PDU emitted on
// sourceIdx's behalf. A layer may be connected as an observer of more
// than one source, and a source may have more than one observer.
func (e *Engine) Connect(sourceIdx, observerIdx int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if sourceIdx < 0 || sourceIdx >= len(e.layers) {
		return fmt.Errorf("layer: connect: invalid source index %d", sourceIdx)
	}
	if observerIdx < 0 || observerIdx >= len(e.layers) {
		return fmt.Errorf("layer: connect: invalid observer index %d", observerIdx)
	}

	e.observers[sourceIdx] = append(e.observers[sourceIdx], observerIdx)
	return nil
}

// Emit delivers data to every observer registered against sourceIdx, in
// registration order, stopping at (and returning) the first error.
func (e *Engine) Emit(sourceIdx int, data []byte) error {
	e.mu.RLock()
	observerIdxs := append([]int(nil), e.observers[sourceIdx]...)
	layers := e.layers
	names := e.names
	e.mu.RUnlock()

	for _, idx := range observerIdxs {
		if err := layers[idx].OnPDU(data); err != nil {
			return fmt.Errorf("layer: %s observing %s: %w", names[idx], names[sourceIdx], err)
		}
	}
	return nil
}

// Name returns the registered name for idx, used in log lines and errors.
func (e *Engine) Name(idx int) string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if idx < 0 || idx >= len(e.names) {
		return ""
	}
	return e.names[idx]
}
