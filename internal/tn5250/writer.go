package tn5250

import "fmt"

// Writer assembles a host-to-terminal record order by order. It is a
// fluent builder: calls append to an internal buffer and remember the
// first error, which Build reports. The output of Build is EOR-framed and
// ready to write to the socket.
type Writer struct {
	body []byte
	err  error
}

// NewWriter returns an empty record builder.
func NewWriter() *Writer {
	return &Writer{}
}

func (w *Writer) fail(format string, args ...interface{}) *Writer {
	if w.err == nil {
		w.err = fmt.Errorf(format, args...)
	}
	return w
}

func (w *Writer) checkPos(row, col int, order string) bool {
	if !ValidPosition(row, col) {
		w.fail("%s address out of range: (%d,%d)", order, row, col)
		return false
	}
	return true
}

// ClearUnit emits ESC CLEAR UNIT.
func (w *Writer) ClearUnit() *Writer {
	w.body = append(w.body, ESC, CmdClearUnit)
	return w
}

// WriteToDisplay emits ESC WTD with the given control characters.
func (w *Writer) WriteToDisplay(cc1, cc2 byte) *Writer {
	w.body = append(w.body, ESC, CmdWriteToDisplay, cc1, cc2)
	return w
}

// SetBufferAddress emits SBA row col.
func (w *Writer) SetBufferAddress(row, col int) *Writer {
	if !w.checkPos(row, col, "SBA") {
		return w
	}
	w.body = append(w.body, OrderSBA, byte(row), byte(col))
	return w
}

// StartField emits SF with explicit format words.
func (w *Writer) StartField(ffw0, ffw1 byte) *Writer {
	w.body = append(w.body, OrderSF, ffw0, ffw1)
	return w
}

// StartInputField emits an unprotected alpha-shift field.
func (w *Writer) StartInputField() *Writer {
	return w.StartField(FFWShiftAlpha, 0x00)
}

// StartHiddenField emits an unprotected nondisplay field.
func (w *Writer) StartHiddenField() *Writer {
	return w.StartField(FFWNonDisplay, 0x00)
}

// StartProtectedField emits a bypass field.
func (w *Writer) StartProtectedField() *Writer {
	return w.StartField(FFWBypass, 0x00)
}

// InsertCursor emits IC at the current buffer address.
func (w *Writer) InsertCursor() *Writer {
	w.body = append(w.body, OrderIC)
	return w
}

// RepeatToAddress emits RA, filling with an EBCDIC character up to but not
// including (row, col).
func (w *Writer) RepeatToAddress(row, col int, ebcdicChar byte) *Writer {
	if !w.checkPos(row, col, "RA") {
		return w
	}
	w.body = append(w.body, OrderRA, byte(row), byte(col), ebcdicChar)
	return w
}

// WriteText emits ASCII text translated to EBCDIC at the current address.
func (w *Writer) WriteText(text string) *Writer {
	w.body = append(w.body, EncodeString(text)...)
	return w
}

// WriteFieldValue emits a value padded or truncated to the field length.
func (w *Writer) WriteFieldValue(value string, length int) *Writer {
	if length < 0 {
		return w.fail("negative field length %d", length)
	}
	if len(value) > length {
		value = value[:length]
	}
	for len(value) < length {
		value += " "
	}
	return w.WriteText(value)
}

// Build wraps the accumulated orders in a GDS header with the given opcode
// and frames the record for the wire.
func (w *Writer) Build(opcode byte) ([]byte, error) {
	if w.err != nil {
		return nil, w.err
	}
	record := append(gdsHeader(len(w.body), opcode), w.body...)
	return FrameRecord(record), nil
}
