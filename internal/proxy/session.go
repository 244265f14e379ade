package proxy

import (
	"bufio"
	"bytes"
	"crypto/tls"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/rs/zerolog"

	"github.com/rcarmo/rdp-mitm/internal/layer"
	"github.com/rcarmo/rdp-mitm/internal/metrics"
	"github.com/rcarmo/rdp-mitm/internal/mitm"
	"github.com/rcarmo/rdp-mitm/internal/protocol/audio"
	"github.com/rcarmo/rdp-mitm/internal/protocol/fastpath"
	"github.com/rcarmo/rdp-mitm/internal/protocol/pdu"
	"github.com/rcarmo/rdp-mitm/internal/recorder"
)

// Session terminates both legs of one proxied RDP connection: it runs its
// own X.224/MCS handshake against the real client and an independent one
// against the real server (internal/proxy/handshake.go), downgrading the
// domain parameters the real client proposes and mirroring its channel
// joins onto the real server's own MCS domain. Once both legs are on a
// shared, proxy-terminated TLS connection, every frame is relayed
// byte-for-byte while being tapped for session recording.
type Session struct {
	ClientConn net.Conn
	ServerConn net.Conn
	Cert       tls.Certificate

	State    *mitm.State
	Channels *mitm.ChannelTable
	Input    *mitm.InputObserver
	Recorder *recorder.Recorder
	Metrics  *metrics.Registry

	log zerolog.Logger

	mu          sync.Mutex
	seenChannel map[uint16]bool
	defrag      map[uint16]*audio.ChannelDefragmenter

	clientReader *bufio.Reader

	engine      *layer.Engine
	fpInputSrc  int
	fpOutputSrc int
}

// NewSession wires a freshly accepted client connection to its dialed
// server connection, building session state, the channel table and the
// input observer used while relaying. cert is presented to the real client
// once the handshake upgrades the client-facing leg to TLS.
func NewSession(clientConn, serverConn net.Conn, cert tls.Certificate, windowSize mitm.WindowSize, rec *recorder.Recorder, m *metrics.Registry, log zerolog.Logger) *Session {
	state := mitm.NewState(windowSize)
	log = log.With().Str("session_id", state.SessionID.String()).Logger()

	s := &Session{
		ClientConn:  clientConn,
		ServerConn:  serverConn,
		Cert:        cert,
		State:       state,
		Channels:    mitm.NewChannelTable(),
		Recorder:    rec,
		Metrics:     m,
		log:         log,
		seenChannel: make(map[uint16]bool),
		defrag:      make(map[uint16]*audio.ChannelDefragmenter),
	}
	s.Input = mitm.NewInputObserver(state, log)
	s.wireEngine()

	return s
}

// wireEngine fans each tapped fast-path frame kind out to its independent
// consumers (the recorder, the input-event observer) through the generic
// layer pipeline, so neither consumer needs to know about the other or
// about how the frame was captured.
func (s *Session) wireEngine() {
	s.engine = layer.NewEngine()

	s.fpInputSrc = s.engine.Add("fastpath-input", layer.ObserverFunc(func(data []byte) error { return nil }))
	recordInput := s.engine.Add("record-fastpath-input", layer.ObserverFunc(func(data []byte) error {
		return s.Recorder.Record(data, recorder.MessageTypeFastPathInput)
	}))
	observeInput := s.engine.Add("input-observer", layer.ObserverFunc(func(data []byte) error {
		var in fastpath.InputPDU
		if err := in.Deserialize(bytes.NewReader(data)); err != nil {
			return nil
		}
		events, err := fastpath.ParseInputEvents(&in)
		if err != nil {
			return nil
		}
		for _, event := range events {
			s.Input.Observe(event)
		}
		return nil
	}))
	_ = s.engine.Connect(s.fpInputSrc, recordInput)
	_ = s.engine.Connect(s.fpInputSrc, observeInput)

	s.fpOutputSrc = s.engine.Add("fastpath-output", layer.ObserverFunc(func(data []byte) error { return nil }))
	recordOutput := s.engine.Add("record-fastpath-output", layer.ObserverFunc(func(data []byte) error {
		return s.Recorder.Record(data, recorder.MessageTypeFastPathOutput)
	}))
	_ = s.engine.Connect(s.fpOutputSrc, recordOutput)
}

// Run terminates both legs' handshake, then relays both directions until
// either leg closes or errors, tearing down the other leg and finalizing
// the recording.
func (s *Session) Run() error {
	s.Metrics.ActiveSessions.Inc()
	s.Metrics.SessionsStarted.Inc()
	defer s.Metrics.ActiveSessions.Dec()
	defer func() {
		if err := s.Recorder.Finalize(); err != nil {
			s.log.Error().Err(err).Msg("recorder finalize failed")
		}
	}()

	legs, err := s.performHandshake(s.Cert)
	if err != nil {
		s.Metrics.SessionsFailed.Inc()
		return fmt.Errorf("proxy: handshake: %w", err)
	}
	s.ClientConn = legs.client
	s.ServerConn = legs.server
	s.clientReader = legs.clientReader

	errCh := make(chan error, 2)
	go func() { errCh <- s.pump(s.ClientConn, s.ServerConn, s.clientReader, metrics.DirectionClientToServer) }()
	go func() { errCh <- s.pump(s.ServerConn, s.ClientConn, nil, metrics.DirectionServerToClient) }()

	err = <-errCh
	_ = s.ClientConn.Close()
	_ = s.ServerConn.Close()
	<-errCh

	if err != nil && !errors.Is(err, io.EOF) {
		s.Metrics.SessionsFailed.Inc()
		return err
	}
	return nil
}

// pump relays one direction of the session: every frame read from src is
// written to dst unmodified before it is handed to observe for tapping, so
// a parse failure in the tap can never stall or corrupt the relay itself.
// bufSrc lets a caller hand over a reader that already holds buffered
// frame data left over from the handshake (the channel-join loop in
// handshake.go peeks ahead to tell a channel join from the first
// data-plane PDU, and any data-plane bytes it peeked but did not consume
// must still reach this loop); a nil bufSrc gets a fresh reader.
func (s *Session) pump(src, dst net.Conn, bufSrc *bufio.Reader, direction string) error {
	r := bufSrc
	if r == nil {
		r = bufio.NewReader(src)
	}
	clientToServer := direction == metrics.DirectionClientToServer

	for {
		frame, err := readFrame(r)
		if err != nil {
			return err
		}

		if _, err := dst.Write(frame.Raw); err != nil {
			return fmt.Errorf("proxy: relay write: %w", err)
		}
		s.Metrics.BytesRelayed.WithLabelValues(direction).Add(float64(len(frame.Raw)))

		s.observe(frame, clientToServer)
	}
}

func (s *Session) observe(frame *Frame, clientToServer bool) {
	if frame.Kind == FrameFastPath {
		if clientToServer {
			s.observeFastPathInput(frame.Raw)
		} else {
			s.observeFastPathOutput(frame.Raw)
		}
		return
	}

	s.observeSlowPath(frame.Raw, clientToServer)
}

// observeFastPathInput unwraps the TS_FP_INPUT_PDU envelope and fans its
// body out to the recorder and the input observer through the layer
// engine: both read the same bytes independently of each other.
func (s *Session) observeFastPathInput(raw []byte) {
	var in fastpath.InputPDU
	if err := in.Deserialize(bytes.NewReader(raw)); err != nil {
		return
	}

	if err := s.engine.Emit(s.fpInputSrc, in.Data); err != nil {
		s.log.Debug().Err(err).Msg("fastpath input fan-out failed")
	}
}

// observeFastPathOutput unwraps the TS_FP_UPDATE_PDU envelope before
// recording: the replay engine plays back the concatenated TS_FP_UPDATE
// entries carried in the PDU's body, not the envelope's own header and
// self-inclusive length bytes.
func (s *Session) observeFastPathOutput(raw []byte) {
	var up fastpath.UpdatePDU
	if err := up.Deserialize(bytes.NewReader(raw)); err != nil {
		return
	}

	if err := s.engine.Emit(s.fpOutputSrc, up.Data); err != nil {
		s.log.Debug().Err(err).Msg("fastpath output fan-out failed")
	}
}

// observeSlowPath extracts the MCS channel payload carried by a slow-path
// frame, if any, and routes it either to the global channel's graphics
// update recorder or to the virtual channel tap, depending on which shape
// the payload has. Connection-sequence PDUs (licensing, capability
// exchange) carry neither shape and are left alone: the handshake itself
// already ran before pump started, so nothing here needs to watch for a
// security-layer upgrade mid-stream.
func (s *Session) observeSlowPath(raw []byte, clientToServer bool) {
	channelID, payload, ok := SlowPathChannel(raw)
	if !ok {
		return
	}

	if !clientToServer && looksLikeShareControlPDU(payload) {
		s.recordSlowPathUpdate(payload)
		return
	}

	s.tapVirtualChannel(channelID, payload)
}

// recordSlowPathUpdate records only the graphics update body of a Data PDU
// targeting the global channel: pdu.Data.Deserialize stops as soon as it
// recognizes a Type2Update PDU type, leaving the updateType and update
// data untouched on the reader, which is exactly the body the replay
// engine expects for a recorded slow-path update.
func (s *Session) recordSlowPathUpdate(payload []byte) {
	r := bytes.NewReader(payload)

	var data pdu.Data
	if err := data.Deserialize(r); err != nil {
		return
	}
	if !data.ShareDataHeader.PDUType2.IsUpdate() {
		return
	}

	update, err := io.ReadAll(r)
	if err != nil || len(update) == 0 {
		return
	}

	if err := s.Recorder.Record(update, recorder.MessageTypeSlowPathPDU); err != nil {
		s.log.Debug().Err(err).Msg("record slowpath update failed")
	}
}

// looksLikeShareControlPDU reports whether payload starts with a plausible
// ShareControlHeader (MS-RDPBCGR 2.2.8.1.1.1.1): its PDUType field is one
// of the four values the protocol defines. Virtual channel payloads do not
// carry this header, so this also serves to tell the global channel apart
// from a static virtual channel without needing to decode the GCC user
// data that assigns channel ids to names.
func looksLikeShareControlPDU(payload []byte) bool {
	if len(payload) < 6 {
		return false
	}
	switch pdu.Type(binary.LittleEndian.Uint16(payload[2:4])) {
	case pdu.TypeDemandActive, pdu.TypeConfirmActive, pdu.TypeDeactivateAll, pdu.TypeData:
		return true
	default:
		return false
	}
}

// tapVirtualChannel strips the ChannelPDUHeader every static virtual
// channel PDU is wrapped in (MS-RDPBCGR 2.2.6.1) and reassembles
// multi-chunk payloads before handing a complete PDU to the channel tap.
// Reassembly state is kept per channel id, since fragmentation is a
// per-channel concern and more than one virtual channel can be mid-chunk
// at the same time.
func (s *Session) tapVirtualChannel(channelID uint16, raw []byte) {
	chunk, err := audio.ParseChannelData(raw)
	if err != nil {
		return
	}

	s.mu.Lock()
	defrag, ok := s.defrag[channelID]
	if !ok {
		defrag = &audio.ChannelDefragmenter{}
		s.defrag[channelID] = defrag
	}
	complete, done := defrag.Process(chunk)
	s.mu.Unlock()

	if !done {
		return
	}

	s.tapChannelPayload(channelID, complete)
}

// tapChannelPayload classifies a never-before-seen channel by sniffing its
// first payload's own protocol header, then dispatches every payload for
// that channel id to the handler bound during classification. Channel ids
// are assigned per-session by the server's MCS Channel Join Confirm, so
// they cannot be known ahead of time; recognizing CLIPRDR and RDPDR by
// their own self-identifying headers avoids needing to decode the GCC
// Client/Server Network Data blocks just to recover channel names.
func (s *Session) tapChannelPayload(channelID uint16, payload []byte) {
	s.mu.Lock()
	if !s.seenChannel[channelID] {
		s.seenChannel[channelID] = true
		s.mu.Unlock()
		s.classifyChannel(channelID, payload)
	} else {
		s.mu.Unlock()
	}

	if err := s.Channels.Dispatch(channelID, payload); err != nil {
		s.log.Debug().Err(err).Uint16("channel_id", channelID).Msg("channel dispatch failed")
	}
}

func (s *Session) classifyChannel(channelID uint16, payload []byte) {
	switch {
	case looksLikeClipboard(payload):
		s.Channels.Register(channelID, "clipboard", mitm.NewClipboardHandler(s.log, s.onClipboardData))
	case looksLikeDeviceRedirection(payload):
		s.Channels.Register(channelID, "device", mitm.NewDeviceHandler(s.log, s.onDeviceData))
	}
}

// cliprdrMaxMsgType is the highest defined CLIPRDR message type
// (MS-RDPECLIP 2.2.2), used only as a sanity bound for sniffing.
const cliprdrMaxMsgType = 0x0013

// looksLikeClipboard sniffs the MS-RDPECLIP 2.2.1 PDU header: a plausible
// MsgType/MsgFlags pair followed by a DataLen that fits the observed
// payload.
func looksLikeClipboard(payload []byte) bool {
	if len(payload) < 8 {
		return false
	}
	msgType := binary.LittleEndian.Uint16(payload[0:2])
	msgFlags := binary.LittleEndian.Uint16(payload[2:4])
	dataLen := binary.LittleEndian.Uint32(payload[4:8])
	return msgType > 0 && msgType <= cliprdrMaxMsgType && msgFlags <= 0x0003 &&
		uint64(dataLen) <= uint64(len(payload)-8)
}

// rdpdrComponentCore and rdpdrComponentPrint are the RDPDR_HEADER.Component
// magic values (MS-RDPEFS 2.2.1.1) every device-redirection PDU starts
// with.
const (
	rdpdrComponentCore  uint16 = 0x4472 // "rD"
	rdpdrComponentPrint uint16 = 0x5052 // "PR"
)

func looksLikeDeviceRedirection(payload []byte) bool {
	if len(payload) < 4 {
		return false
	}
	component := binary.LittleEndian.Uint16(payload[0:2])
	return component == rdpdrComponentCore || component == rdpdrComponentPrint
}

func (s *Session) onClipboardData(data []byte) {
	if err := s.Recorder.Record(data, recorder.MessageTypeClipboardData); err != nil {
		s.log.Debug().Err(err).Msg("record clipboard data failed")
	}
}

func (s *Session) onDeviceData(data []byte) {
	if err := s.Recorder.Record(data, recorder.MessageTypeClientData); err != nil {
		s.log.Debug().Err(err).Msg("record device data failed")
	}
}
