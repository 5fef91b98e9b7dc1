// Package tn5250 implements the subset of the IBM 5250 data stream needed to
// drive and to emulate a green-screen host over telnet: option negotiation,
// EBCDIC translation, record framing, a display parser and an order writer.
package tn5250

import "fmt"

// Telnet protocol bytes (RFC 854 / RFC 885).
const (
	IAC  byte = 0xFF // interpret as command
	DONT byte = 0xFE
	DO   byte = 0xFD
	WONT byte = 0xFC
	WILL byte = 0xFB
	SB   byte = 0xFA // subnegotiation begin
	SE   byte = 0xF0 // subnegotiation end
	EOR  byte = 0xEF // end of record
)

// Telnet options negotiated for a 5250 session.
const (
	OptBinary       byte = 0x00
	OptTerminalType byte = 0x18
	OptEndOfRecord  byte = 0x19
)

// TERMINAL-TYPE subnegotiation verbs.
const (
	TerminalTypeIs   byte = 0x00
	TerminalTypeSend byte = 0x01
)

// 5250 escape and commands.
const (
	ESC                 byte = 0x04
	CmdClearUnit        byte = 0x40
	CmdWriteToDisplay   byte = 0x11
	CmdWriteStructField byte = 0xF3
)

// 5250 display orders (inside a WRITE TO DISPLAY frame).
const (
	OrderSBA byte = 0x11 // set buffer address
	OrderRA  byte = 0x02 // repeat to address
	OrderEA  byte = 0x03 // erase to address
	OrderIC  byte = 0x13 // insert cursor
	OrderMC  byte = 0x14 // move cursor
	OrderSF  byte = 0x1D // start field
)

// WRITE TO DISPLAY control characters.
const (
	CC1LockKeyboard byte = 0x20
)

// GDS record framing. Every 5250 application record carries a 10-byte
// header: total length (big-endian, bytes 0-1), record type 0x12A0
// (bytes 2-3), variable-header bytes 0x04 0x00, flags, opcode, and two
// reserved zeros.
const (
	GDSRecordType uint16 = 0x12A0
	GDSHeaderLen         = 10

	OpcodeNoOp       byte = 0x00
	OpcodeInvite     byte = 0x01
	OpcodeOutputOnly byte = 0x02
	OpcodePutGet     byte = 0x03
)

// Field Format Word flags. FFW0 carries the protection and display bits;
// the low three bits of FFW0 are the shift class.
const (
	FFWBypass     byte = 0x20 // protected field, input bypassed
	FFWModified   byte = 0x08 // MDT: modified data tag
	FFWShiftMask  byte = 0x07
	FFWShiftAlpha byte = 0x00
	FFWNonDisplay byte = 0x07 // shift class 7: nondisplay (hidden)
)

// AID bytes: the attention identifier the terminal reports with each input
// record.
const (
	AIDEnter    byte = 0xF1
	AIDF1       byte = 0x31
	AIDF2       byte = 0x32
	AIDF3       byte = 0x33
	AIDF4       byte = 0x34
	AIDF5       byte = 0x35
	AIDF6       byte = 0x36
	AIDF7       byte = 0x37
	AIDF8       byte = 0x38
	AIDF9       byte = 0x39
	AIDF10      byte = 0x3A
	AIDF11      byte = 0x3B
	AIDF12      byte = 0x3C
	AIDRollUp   byte = 0xF5 // page down
	AIDRollDown byte = 0xF4 // page up
	AIDHelp     byte = 0xF3
	AIDPrint    byte = 0xF6
	AIDClear    byte = 0xBD
)

// Screen geometry. The emulated device is a 24x80 model (5251-11 class).
const (
	ScreenRows = 24
	ScreenCols = 80
)

// aidByName maps the names accepted in step and transition configuration to
// AID bytes. PageUp/PageDown are aliases for the roll orders as seen from
// the operator's point of view.
var aidByName = map[string]byte{
	"Enter":    AIDEnter,
	"F1":       AIDF1,
	"F2":       AIDF2,
	"F3":       AIDF3,
	"F4":       AIDF4,
	"F5":       AIDF5,
	"F6":       AIDF6,
	"F7":       AIDF7,
	"F8":       AIDF8,
	"F9":       AIDF9,
	"F10":      AIDF10,
	"F11":      AIDF11,
	"F12":      AIDF12,
	"PageUp":   AIDRollDown,
	"PageDown": AIDRollUp,
	"RollUp":   AIDRollUp,
	"RollDown": AIDRollDown,
	"Help":     AIDHelp,
	"Print":    AIDPrint,
	"Clear":    AIDClear,
}

var aidNames = func() map[byte]string {
	m := make(map[byte]string, len(aidByName))
	// Aliases resolve to the canonical name, so insert those first and let
	// the canonical entries overwrite them.
	for _, name := range []string{"PageUp", "PageDown", "Enter", "F1", "F2",
		"F3", "F4", "F5", "F6", "F7", "F8", "F9", "F10", "F11", "F12",
		"RollUp", "RollDown", "Help", "Print", "Clear"} {
		m[aidByName[name]] = name
	}
	return m
}()

// AIDForName resolves a configuration name ("Enter", "F3", "PageDown") to
// its AID byte. Unknown names are rejected.
func AIDForName(name string) (byte, error) {
	aid, ok := aidByName[name]
	if !ok {
		return 0, fmt.Errorf("unknown AID key name %q", name)
	}
	return aid, nil
}

// AIDName returns the canonical name for an AID byte, or a hex rendering
// when the byte is not one this implementation sends.
func AIDName(aid byte) string {
	if name, ok := aidNames[aid]; ok {
		return name
	}
	return fmt.Sprintf("0x%02X", aid)
}

// ValidPosition reports whether (row, col) is on the 24x80 screen.
// Addressing is 1-based.
func ValidPosition(row, col int) bool {
	return row >= 1 && row <= ScreenRows && col >= 1 && col <= ScreenCols
}
