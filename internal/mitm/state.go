// Package mitm implements the MITM session state machine: keystroke and
// mouse credential-capture heuristics, the virtual-channel handler table,
// and the session state shared between the client-facing and
// server-facing protocol stacks.
package mitm

import (
	"github.com/google/uuid"

	"github.com/rcarmo/rdp-mitm/internal/protocol/pdu"
)

// WindowSize is the negotiated desktop geometry, used to scale the mouse
// credential-capture heuristic's central-region threshold.
type WindowSize struct {
	Width  int
	Height int
}

// SecuritySettings records what one leg of a proxied connection actually
// negotiated: the RDP security protocol selected during X.224 negotiation,
// and the TLS parameters and exported keying material once that leg's TLS
// handshake completes. The proxy terminates two independent TLS
// connections, so each leg gets its own record.
type SecuritySettings struct {
	Protocol    pdu.NegotiationProtocol
	TLSVersion  uint16
	CipherSuite uint16

	// SessionKey is keying material exported from the leg's TLS connection
	// (crypto/tls ExportKeyingMaterial), kept only long enough to derive
	// the recorder's frame tap; it is never persisted to the recording.
	SessionKey []byte
}

// State holds everything both legs of one proxied RDP session need to
// agree on. It is owned by the session goroutine pair and is not safe for
// concurrent access from outside it.
type State struct {
	SessionID uuid.UUID

	// ClientSecurity and ServerSecurity are filled in once each leg's
	// handshake completes (internal/proxy/handshake.go); both sides are
	// always PROTOCOL_SSL, since that is the only protocol this proxy
	// terminates, but the TLS parameters and keys the two legs negotiate
	// are independent.
	ClientSecurity SecuritySettings
	ServerSecurity SecuritySettings

	LoggedIn             bool
	CredentialsCandidate string
	inputBuffer          string

	ShiftPressed bool
	CapsLockOn   bool
	CtrlPressed  bool

	WindowSize WindowSize
}

// NewState creates session state tagged with a fresh correlation id, used
// to name the recording file and to tie together log lines from both legs
// of the same proxied connection.
func NewState(windowSize WindowSize) *State {
	return &State{
		SessionID:  uuid.New(),
		WindowSize: windowSize,
	}
}
