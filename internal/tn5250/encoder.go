package tn5250

import "fmt"

// BuildInputRecord assembles the terminal-to-host record for one submit:
// cursor position and AID byte followed by an SBA and the EBCDIC value of
// each modified field, wrapped in a GDS header and EOR-framed ready for the
// wire. Positions outside the 24x80 grid are rejected.
func BuildInputRecord(aid byte, cursorRow, cursorCol int, fields []ModifiedField) ([]byte, error) {
	if !ValidPosition(cursorRow, cursorCol) {
		return nil, fmt.Errorf("cursor position out of range: (%d,%d)", cursorRow, cursorCol)
	}

	body := []byte{byte(cursorRow), byte(cursorCol), aid}
	for _, f := range fields {
		if !ValidPosition(f.Row, f.Col) {
			return nil, fmt.Errorf("field position out of range: (%d,%d)", f.Row, f.Col)
		}
		body = append(body, OrderSBA, byte(f.Row), byte(f.Col))
		body = append(body, EncodeString(f.Value)...)
	}

	record := append(gdsHeader(len(body), OpcodeNoOp), body...)
	return FrameRecord(record), nil
}
