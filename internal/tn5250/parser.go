package tn5250

import "fmt"

// Parser decodes host-to-terminal records into a Screen. One Parser is
// owned by one session; it keeps no state between records beyond the screen
// it writes into.
type Parser struct {
	screen *Screen
}

// NewParser builds a parser that mutates screen.
func NewParser(screen *Screen) *Parser {
	return &Parser{screen: screen}
}

// Parse consumes one unescaped record (GDS header included) and applies it
// to the screen. Field lengths are derived after the walk, not carried on
// the wire. Unknown variable-width orders are a fatal decode error: there
// is no way to resynchronize past them.
func (p *Parser) Parse(record []byte) error {
	_, body, err := stripGDSHeader(record)
	if err != nil {
		return err
	}

	row, col := 1, 1
	advance := func() {
		col++
		if col > ScreenCols {
			col = 1
			row++
		}
	}

	i := 0
	for i < len(body) {
		b := body[i]
		switch {
		case b == ESC:
			if i+1 >= len(body) {
				return fmt.Errorf("truncated escape sequence at offset %d", i)
			}
			cmd := body[i+1]
			switch cmd {
			case CmdClearUnit:
				p.screen.Clear()
				row, col = 1, 1
				i += 2
			case CmdWriteToDisplay:
				if i+3 >= len(body) {
					return fmt.Errorf("truncated WRITE TO DISPLAY at offset %d", i)
				}
				// cc1/cc2 keyboard control is not modeled; the orders that
				// follow are what matter here.
				i += 4
			default:
				return fmt.Errorf("unsupported 5250 command 0x%02X", cmd)
			}
		case b == OrderSBA:
			if i+2 >= len(body) {
				return fmt.Errorf("truncated SBA at offset %d", i)
			}
			r, c := int(body[i+1]), int(body[i+2])
			if !ValidPosition(r, c) {
				return fmt.Errorf("SBA address out of range: (%d,%d)", r, c)
			}
			row, col = r, c
			i += 3
		case b == OrderSF:
			if i+2 >= len(body) {
				return fmt.Errorf("truncated SF at offset %d", i)
			}
			p.screen.AddField(ScreenField{
				Row:  row,
				Col:  col,
				FFW0: body[i+1],
				FFW1: body[i+2],
			})
			// The attribute byte occupies the current cell.
			advance()
			i += 3
		case b == OrderRA:
			if i+3 >= len(body) {
				return fmt.Errorf("truncated RA at offset %d", i)
			}
			r, c := int(body[i+1]), int(body[i+2])
			ch := FromEBCDIC(body[i+3])
			p.screen.FillRange(row, col, r, c, ch)
			row, col = r, c
			i += 4
		case b == OrderIC:
			p.screen.CursorRow = row
			p.screen.CursorCol = col
			i++
		case b == OrderMC:
			if i+2 >= len(body) {
				return fmt.Errorf("truncated MC at offset %d", i)
			}
			p.screen.CursorRow = int(body[i+1])
			p.screen.CursorCol = int(body[i+2])
			i += 3
		case b == OrderEA:
			if i+2 >= len(body) {
				return fmt.Errorf("truncated EA at offset %d", i)
			}
			r, c := int(body[i+1]), int(body[i+2])
			p.screen.FillRange(row, col, r, c, ' ')
			row, col = r, c
			i += 3
		case b < 0x20:
			return fmt.Errorf("unsupported order 0x%02X at offset %d", b, i)
		default:
			p.screen.SetChar(row, col, FromEBCDIC(b))
			advance()
			i++
		}
	}

	p.screen.deriveFieldLengths()
	return nil
}

// ModifiedField is one field carried in a terminal-to-host input record.
// Col is the column the SBA pointed at, which by convention is either the
// catalog field's attribute column or its first data column.
type ModifiedField struct {
	Row   int
	Col   int
	Value string
}

// InputRecord is the decoded form of a terminal-to-host record.
type InputRecord struct {
	AID       byte
	CursorRow int
	CursorCol int
	Fields    []ModifiedField
}

// ParseInputRecord decodes a client record (GDS header included): cursor
// row, cursor column and AID byte followed by SBA/value runs.
func ParseInputRecord(record []byte) (*InputRecord, error) {
	_, body, err := stripGDSHeader(record)
	if err != nil {
		return nil, err
	}
	if len(body) < 3 {
		return nil, fmt.Errorf("input record body too short: %d bytes", len(body))
	}
	in := &InputRecord{
		CursorRow: int(body[0]),
		CursorCol: int(body[1]),
		AID:       body[2],
	}

	i := 3
	for i < len(body) {
		if body[i] != OrderSBA {
			return nil, fmt.Errorf("expected SBA in input record at offset %d, got 0x%02X", i, body[i])
		}
		if i+2 >= len(body) {
			return nil, fmt.Errorf("truncated SBA in input record at offset %d", i)
		}
		row, col := int(body[i+1]), int(body[i+2])
		if !ValidPosition(row, col) {
			return nil, fmt.Errorf("input field address out of range: (%d,%d)", row, col)
		}
		i += 3
		start := i
		for i < len(body) && body[i] != OrderSBA {
			i++
		}
		in.Fields = append(in.Fields, ModifiedField{
			Row:   row,
			Col:   col,
			Value: DecodeString(body[start:i]),
		})
	}
	return in, nil
}
