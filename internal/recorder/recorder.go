// Package recorder multiplexes typed session PDUs onto one or more
// transport sinks (file, network) so a session can be replayed later.
package recorder

import (
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// MessageType identifies the kind of event recorded in one frame. Values
// match the replay file format's message type enum; producers may
// register further extension values above MessageTypeClientData.
type MessageType uint16

const (
	MessageTypeFastPathInput  MessageType = 1
	MessageTypeFastPathOutput MessageType = 2
	MessageTypeClientInfo     MessageType = 3
	MessageTypeSlowPathPDU    MessageType = 4
	MessageTypeClipboardData  MessageType = 5
	MessageTypeClientData     MessageType = 6
)

// Encoder turns a PDU value into its wire bytes for one message type.
type Encoder interface {
	Encode(pdu any) ([]byte, error)
}

// EncoderFunc adapts a plain function to the Encoder interface.
type EncoderFunc func(pdu any) ([]byte, error)

// Encode implements Encoder.
func (f EncoderFunc) Encode(pdu any) ([]byte, error) { return f(pdu) }

// Sink receives one fully-framed record at a time. Implementations are
// responsible for their own buffering and I/O.
type Sink interface {
	Write(frame []byte) error
	Close() error
}

// Clock returns the current time in milliseconds since the Unix epoch.
// Exposed as an interface so tests can supply deterministic timestamps.
type Clock func() uint64

// SystemClock is the default Clock, backed by the wall clock.
func SystemClock() uint64 { return uint64(time.Now().UnixMilli()) }

// Recorder fans recorded PDUs out to every registered sink, encoding
// each through the parser registered for its message type. A message
// type with no registered encoder expects its PDU argument to already
// be []byte and forwards it unmodified (spec's "pre-encoded PDU").
type Recorder struct {
	mu       sync.Mutex
	encoders map[MessageType]Encoder
	sinks    []Sink
	clock    Clock
	log      zerolog.Logger
}

// New builds a Recorder over the given sinks. A nil clock defaults to
// SystemClock.
func New(clock Clock, log zerolog.Logger, sinks ...Sink) *Recorder {
	if clock == nil {
		clock = SystemClock
	}
	return &Recorder{
		encoders: make(map[MessageType]Encoder),
		sinks:    sinks,
		clock:    clock,
		log:      log.With().Str("component", "recorder").Logger(),
	}
}

// SetEncoder registers the encoder used to turn a PDU of messageType
// into wire bytes before framing.
func (r *Recorder) SetEncoder(messageType MessageType, enc Encoder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.encoders[messageType] = enc
}

// Record encodes pdu (via the registered encoder, or as a raw []byte if
// none is registered) and writes one framed record to every sink.
// Per-sink write failures are logged and do not stop delivery to the
// remaining sinks — disk back-pressure is best-effort, not propagated.
func (r *Recorder) Record(pdu any, messageType MessageType) error {
	r.mu.Lock()
	enc, hasEncoder := r.encoders[messageType]
	sinks := append([]Sink(nil), r.sinks...)
	r.mu.Unlock()

	var payload []byte
	if hasEncoder {
		data, err := enc.Encode(pdu)
		if err != nil {
			return fmt.Errorf("recorder: encode message type %d: %w", messageType, err)
		}
		payload = data
	} else {
		data, ok := pdu.([]byte)
		if !ok {
			return fmt.Errorf("recorder: message type %d has no encoder and pdu is not []byte", messageType)
		}
		payload = data
	}

	frame := frameRecord(messageType, r.clock(), payload)

	for _, sink := range sinks {
		if err := sink.Write(frame); err != nil {
			r.log.Error().Err(err).Uint16("message_type", uint16(messageType)).Msg("sink write failed, continuing")
		}
	}
	return nil
}

// frameRecord builds one replay-file frame: messageType (uint16 LE),
// timestampMs (uint64 LE), payloadLength (uint32 LE), payload.
func frameRecord(messageType MessageType, timestampMs uint64, payload []byte) []byte {
	frame := make([]byte, 2+8+4+len(payload))
	binary.LittleEndian.PutUint16(frame[0:2], uint16(messageType))
	binary.LittleEndian.PutUint64(frame[2:10], timestampMs)
	binary.LittleEndian.PutUint32(frame[10:14], uint32(len(payload)))
	copy(frame[14:], payload)
	return frame
}

// Finalize closes every sink. Call once the session has ended.
func (r *Recorder) Finalize() error {
	r.mu.Lock()
	sinks := append([]Sink(nil), r.sinks...)
	r.mu.Unlock()

	var firstErr error
	for _, sink := range sinks {
		if err := sink.Close(); err != nil {
			r.log.Error().Err(err).Msg("sink close failed")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
