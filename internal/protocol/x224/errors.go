package x224

import "errors"

var (
	// ErrSmallConnectionConfirmLength is returned when a Connection Confirm
	// TPDU's length indicator does not match the fixed 14-byte layout this
	// implementation expects (6 fixed fields plus an 8-byte RDP Negotiation
	// Response).
	ErrSmallConnectionConfirmLength = errors.New("small connection confirm length")

	// ErrWrongDataLength is returned when a Data TPDU's length indicator is
	// not 2 (DT/ROA byte plus EOT byte).
	ErrWrongDataLength = errors.New("wrong data length")

	// ErrWrongConnectionConfirmCode is returned when the CC TPDU code's
	// upper nibble is not 0xD.
	ErrWrongConnectionConfirmCode = errors.New("wrong connection confirm code")
)
