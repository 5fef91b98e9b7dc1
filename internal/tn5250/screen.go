package tn5250

import (
	"sort"
	"strings"
)

// ScreenField is an input or output field discovered while parsing a host
// record. Row/Col address the field's attribute byte; the field data starts
// one column later. Length is derived after parsing as the distance to the
// next attribute byte minus the attribute cell itself.
type ScreenField struct {
	Row    int
	Col    int
	Length int
	FFW0   byte
	FFW1   byte
}

// IsProtected reports whether the field bypasses input.
func (f ScreenField) IsProtected() bool { return f.FFW0&FFWBypass != 0 }

// IsHidden reports whether the field has the nondisplay shift class.
func (f ScreenField) IsHidden() bool { return f.FFW0&FFWShiftMask == FFWNonDisplay }

// IsInput reports whether the field accepts operator input.
func (f ScreenField) IsInput() bool { return !f.IsProtected() }

// Screen is the 24x80 character grid reconstructed from the host data
// stream, together with the cursor and the fields discovered during the
// last parse. Addressing is 1-based throughout; out-of-range writes are
// dropped and out-of-range reads return space.
type Screen struct {
	grid      [ScreenRows][ScreenCols]byte
	CursorRow int
	CursorCol int
	Fields    []ScreenField
}

// NewScreen returns a cleared screen with the cursor at home.
func NewScreen() *Screen {
	s := &Screen{}
	s.Clear()
	return s
}

// Clear fills the grid with spaces, drops all fields and homes the cursor.
func (s *Screen) Clear() {
	for r := range s.grid {
		for c := range s.grid[r] {
			s.grid[r][c] = ' '
		}
	}
	s.Fields = s.Fields[:0]
	s.CursorRow = 1
	s.CursorCol = 1
}

// SetChar places a character. Writes outside the grid are ignored.
func (s *Screen) SetChar(row, col int, ch byte) {
	if !ValidPosition(row, col) {
		return
	}
	s.grid[row-1][col-1] = ch
}

// GetChar reads a character. Reads outside the grid return space.
func (s *Screen) GetChar(row, col int) byte {
	if !ValidPosition(row, col) {
		return ' '
	}
	return s.grid[row-1][col-1]
}

// ReadText reads length characters starting at (row, col), wrapping onto
// the next row past column 80.
func (s *Screen) ReadText(row, col, length int) string {
	var b strings.Builder
	b.Grow(length)
	r, c := row, col
	for i := 0; i < length; i++ {
		if c > ScreenCols {
			r++
			c = 1
		}
		b.WriteByte(s.GetChar(r, c))
		c++
	}
	return b.String()
}

// ReadRow returns the full 80 characters of one row.
func (s *Screen) ReadRow(row int) string {
	return s.ReadText(row, 1, ScreenCols)
}

// FillRange writes ch from (fromRow, fromCol) up to but not including
// (toRow, toCol), in row-major order. Used by the RA order.
func (s *Screen) FillRange(fromRow, fromCol, toRow, toCol int, ch byte) {
	r, c := fromRow, fromCol
	for {
		if c > ScreenCols {
			r++
			c = 1
		}
		if r > ScreenRows {
			return
		}
		if r == toRow && c == toCol {
			return
		}
		if r > toRow || (r == toRow && c > toCol) {
			return
		}
		s.SetChar(r, c, ch)
		c++
	}
}

// AddField records a discovered field, keeping the list ordered by
// (row, col).
func (s *Screen) AddField(f ScreenField) {
	s.Fields = append(s.Fields, f)
	sort.SliceStable(s.Fields, func(i, j int) bool {
		if s.Fields[i].Row != s.Fields[j].Row {
			return s.Fields[i].Row < s.Fields[j].Row
		}
		return s.Fields[i].Col < s.Fields[j].Col
	})
}

// FindInputField returns the input field whose attribute byte sits at
// (row, col), or nil.
func (s *Screen) FindInputField(row, col int) *ScreenField {
	for i := range s.Fields {
		f := &s.Fields[i]
		if f.Row == row && f.Col == col && f.IsInput() {
			return f
		}
	}
	return nil
}

// InputFields returns the unprotected fields in screen order.
func (s *Screen) InputFields() []ScreenField {
	var out []ScreenField
	for _, f := range s.Fields {
		if f.IsInput() {
			out = append(out, f)
		}
	}
	return out
}

// deriveFieldLengths recomputes every field's length as the distance from
// its attribute byte to the next field's attribute byte (or screen end),
// minus one for the attribute cell.
func (s *Screen) deriveFieldLengths() {
	for i := range s.Fields {
		start := linearAddr(s.Fields[i].Row, s.Fields[i].Col)
		end := ScreenRows * ScreenCols
		if i+1 < len(s.Fields) {
			end = linearAddr(s.Fields[i+1].Row, s.Fields[i+1].Col)
		}
		s.Fields[i].Length = end - start - 1
	}
}

// linearAddr converts a 1-based (row, col) to a 0-based buffer offset.
func linearAddr(row, col int) int {
	return (row-1)*ScreenCols + (col - 1)
}
