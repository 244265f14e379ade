package mitm

import (
	"fmt"
	"sync"
)

// ChannelHandler processes data relayed over one virtual channel. The
// relay loop calls HandleData for every PDU it forwards on that channel,
// in both directions; a handler observes, it never mutates the payload.
type ChannelHandler interface {
	HandleData(data []byte) error
}

// ChannelTable maps an MCS channel id to the handler responsible for
// observing traffic on it, letting the relay loop dispatch without a type
// switch at the call site (spec §3's channel table).
type ChannelTable struct {
	mu       sync.RWMutex
	handlers map[uint16]ChannelHandler
	names    map[uint16]string
}

// NewChannelTable builds an empty table; handlers are registered as
// channels are joined during MCS connection sequence.
func NewChannelTable() *ChannelTable {
	return &ChannelTable{
		handlers: make(map[uint16]ChannelHandler),
		names:    make(map[uint16]string),
	}
}

// Register binds a handler to a channel id under a human-readable name
// (e.g. "clipboard", "device", "display", "audio", "control") used in
// logs and recorder metadata.
func (t *ChannelTable) Register(channelID uint16, name string, handler ChannelHandler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handlers[channelID] = handler
	t.names[channelID] = name
}

// Dispatch routes data to the handler registered for channelID. A channel
// with no registered handler (a plugin disabled via config, or a channel
// the MITM does not model) is not an error: the data is still relayed, it
// is simply not observed.
func (t *ChannelTable) Dispatch(channelID uint16, data []byte) error {
	t.mu.RLock()
	handler, ok := t.handlers[channelID]
	t.mu.RUnlock()
	if !ok {
		return nil
	}

	if err := handler.HandleData(data); err != nil {
		return fmt.Errorf("mitm: channel %d: %w", channelID, err)
	}
	return nil
}

// Name returns the registered name for channelID, or "" if unregistered.
func (t *ChannelTable) Name(channelID uint16) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.names[channelID]
}
