package mitm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rcarmo/rdp-mitm/internal/logging"
	"github.com/rcarmo/rdp-mitm/internal/protocol/pdu"
)

func typeScanCode(o *InputObserver, scanCode uint8, extended bool) {
	o.onScanCode(scanCode, false, extended)
	o.onScanCode(scanCode, true, extended)
}

func TestInputObserver_CapturesTypedCredentials(t *testing.T) {
	state := NewState(WindowSize{Width: 1024, Height: 768})
	o := NewInputObserver(state, logging.Default())

	typeScanCode(o, 0x1E, false) // a
	typeScanCode(o, 0x20, false) // d
	typeScanCode(o, 0x31, false) // n

	o.onScanCode(scReturn, false, false)

	require.Equal(t, "adn", state.CredentialsCandidate)
	require.Empty(t, state.inputBuffer)
}

func TestInputObserver_ShiftUppercasesLetters(t *testing.T) {
	state := NewState(WindowSize{Width: 1024, Height: 768})
	o := NewInputObserver(state, logging.Default())

	o.onScanCode(scLShift, false, false)
	typeScanCode(o, 0x1E, false) // A
	o.onScanCode(scLShift, true, false)
	typeScanCode(o, 0x20, false) // d

	o.onScanCode(scReturn, false, false)

	require.Equal(t, "Ad", state.CredentialsCandidate)
}

func TestInputObserver_CapsLockTogglesLetterCase(t *testing.T) {
	state := NewState(WindowSize{Width: 1024, Height: 768})
	o := NewInputObserver(state, logging.Default())

	o.onScanCode(scCapsLock, false, false)
	typeScanCode(o, 0x1E, false) // A (caps on)
	o.onScanCode(scReturn, false, false)

	require.Equal(t, "A", state.CredentialsCandidate)
}

func TestInputObserver_BackspaceTabCtrlA(t *testing.T) {
	state := NewState(WindowSize{Width: 1024, Height: 768})
	o := NewInputObserver(state, logging.Default())

	typeScanCode(o, 0x1E, false) // a
	o.onScanCode(scBackspace, false, false)
	o.onScanCode(scBackspace, true, false)
	o.onScanCode(scTab, false, false)
	o.onScanCode(scTab, true, false)

	o.onScanCode(scLControl, false, false)
	o.onScanCode(scKeyA, false, false)
	o.onScanCode(scKeyA, true, false)
	o.onScanCode(scLControl, true, false)

	o.onScanCode(scReturn, false, false)

	require.Equal(t, `a<\b><\t><ctrl-a>`, state.CredentialsCandidate)
}

func TestInputObserver_LoginAttemptNoOpWhenAlreadyLoggedIn(t *testing.T) {
	state := NewState(WindowSize{Width: 1024, Height: 768})
	state.LoggedIn = true
	o := NewInputObserver(state, logging.Default())

	typeScanCode(o, 0x1E, false)
	o.onScanCode(scReturn, false, false)

	require.Empty(t, state.CredentialsCandidate)
}

func TestInputObserver_MouseDownInCentralRegionTriggersLoginAttempt(t *testing.T) {
	state := NewState(WindowSize{Width: 1000, Height: 1000})
	o := NewInputObserver(state, logging.Default())

	o.onScanCode(scSpace, false, false) // seed the buffer so loginAttempt has something to capture
	o.onMouse(550, 600, pdu.PTRFlagsDown)

	require.Equal(t, " ", state.CredentialsCandidate)
}

func TestInputObserver_MouseDownOutsideCentralRegionIsIgnored(t *testing.T) {
	state := NewState(WindowSize{Width: 1000, Height: 1000})
	o := NewInputObserver(state, logging.Default())

	o.onScanCode(scSpace, false, false)
	o.onMouse(10, 10, pdu.PTRFlagsDown)

	require.Empty(t, state.CredentialsCandidate)
	require.Equal(t, " ", state.inputBuffer)
}

func TestInputObserver_MouseUpDoesNotTriggerLoginAttempt(t *testing.T) {
	state := NewState(WindowSize{Width: 1000, Height: 1000})
	o := NewInputObserver(state, logging.Default())

	o.onScanCode(scSpace, false, false)
	o.onMouse(550, 600, 0)

	require.Empty(t, state.CredentialsCandidate)
}

func TestInputObserver_ObserveDispatchesScanCodeAndMouseEvents(t *testing.T) {
	state := NewState(WindowSize{Width: 1024, Height: 768})
	o := NewInputObserver(state, logging.Default())

	released := pdu.NewKeyboardEvent(pdu.KBDFlagsRelease, 0x1E)
	o.Observe(released)

	pressed := pdu.NewKeyboardEvent(0, 0x1E)
	o.Observe(pressed)

	o.Observe(pdu.NewMouseEvent(pdu.PTRFlagsDown, 10, 10))

	require.Equal(t, "a", state.inputBuffer)
}
