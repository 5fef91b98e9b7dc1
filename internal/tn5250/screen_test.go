package tn5250

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScreenClear(t *testing.T) {
	s := NewScreen()
	s.SetChar(5, 10, 'X')
	s.AddField(ScreenField{Row: 5, Col: 9})
	s.CursorRow, s.CursorCol = 5, 10

	s.Clear()
	assert.Equal(t, byte(' '), s.GetChar(5, 10))
	assert.Empty(t, s.Fields)
	assert.Equal(t, 1, s.CursorRow)
	assert.Equal(t, 1, s.CursorCol)
}

func TestScreenReadTextWrapsRows(t *testing.T) {
	s := NewScreen()
	s.SetChar(1, 79, 'A')
	s.SetChar(1, 80, 'B')
	s.SetChar(2, 1, 'C')
	assert.Equal(t, "ABC", s.ReadText(1, 79, 3))
}

func TestScreenOutOfRangeAccess(t *testing.T) {
	s := NewScreen()
	s.SetChar(0, 5, 'X')  // dropped
	s.SetChar(25, 5, 'X') // dropped
	s.SetChar(5, 81, 'X') // dropped
	assert.Equal(t, byte(' '), s.GetChar(0, 5))
	assert.Equal(t, byte(' '), s.GetChar(25, 5))
	assert.Equal(t, strings.Repeat(" ", 80), s.ReadRow(25))
}

func TestScreenFillRangeExclusiveEndpoint(t *testing.T) {
	s := NewScreen()
	s.FillRange(1, 78, 2, 2, '*')
	assert.Equal(t, "  **", s.ReadText(1, 76, 4))
	assert.Equal(t, "*", s.ReadText(1, 80, 1))
	assert.Equal(t, "* ", s.ReadText(2, 1, 2)) // (2,2) itself untouched
}

func TestScreenFieldOrderingAndLengths(t *testing.T) {
	s := NewScreen()
	// Added out of order; the list must come back sorted by (row, col).
	s.AddField(ScreenField{Row: 10, Col: 20})
	s.AddField(ScreenField{Row: 5, Col: 30})
	s.AddField(ScreenField{Row: 5, Col: 10})
	require.Len(t, s.Fields, 3)
	assert.Equal(t, 5, s.Fields[0].Row)
	assert.Equal(t, 10, s.Fields[0].Col)
	assert.Equal(t, 30, s.Fields[1].Col)
	assert.Equal(t, 10, s.Fields[2].Row)

	s.deriveFieldLengths()
	// (5,10) -> (5,30): 20 cells apart, minus the attribute byte.
	assert.Equal(t, 19, s.Fields[0].Length)
	// (5,30) -> (10,20): 4 full rows plus offsets.
	assert.Equal(t, linearAddr(10, 20)-linearAddr(5, 30)-1, s.Fields[1].Length)
	// Last field runs to the end of the screen.
	assert.Equal(t, ScreenRows*ScreenCols-linearAddr(10, 20)-1, s.Fields[2].Length)
}

func TestScreenFieldFlags(t *testing.T) {
	assert.True(t, ScreenField{FFW0: FFWBypass}.IsProtected())
	assert.False(t, ScreenField{FFW0: FFWBypass}.IsInput())
	assert.True(t, ScreenField{FFW0: FFWNonDisplay}.IsHidden())
	assert.True(t, ScreenField{FFW0: FFWNonDisplay}.IsInput())
	assert.False(t, ScreenField{FFW0: 0x00}.IsHidden())
}

func TestFindInputFieldSkipsProtected(t *testing.T) {
	s := NewScreen()
	s.AddField(ScreenField{Row: 3, Col: 5, FFW0: FFWBypass})
	s.AddField(ScreenField{Row: 3, Col: 40, FFW0: 0x00})
	assert.Nil(t, s.FindInputField(3, 5))
	require.NotNil(t, s.FindInputField(3, 40))
	assert.Len(t, s.InputFields(), 1)
}
