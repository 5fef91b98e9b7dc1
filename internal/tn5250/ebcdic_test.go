package tn5250

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEBCDICKnownPairs(t *testing.T) {
	cases := []struct {
		ascii  byte
		ebcdic byte
	}{
		{' ', 0x40},
		{'0', 0xF0},
		{'9', 0xF9},
		{'A', 0xC1},
		{'I', 0xC9},
		{'J', 0xD1},
		{'S', 0xE2},
		{'Z', 0xE9},
		{'a', 0x81},
		{'z', 0xA9},
		{'$', 0x5B},
		{'.', 0x4B},
		{'/', 0x61},
		{'@', 0x7C},
		{'_', 0x6D},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.ebcdic, ToEBCDIC(tc.ascii), "ToEBCDIC(%q)", tc.ascii)
		assert.Equal(t, tc.ascii, FromEBCDIC(tc.ebcdic), "FromEBCDIC(0x%02X)", tc.ebcdic)
	}
}

func TestEBCDICUnknownRoundTripsThroughSpace(t *testing.T) {
	// Control characters and high bytes outside the printable subset all
	// collapse to space in both directions.
	assert.Equal(t, ebcdicSpace, ToEBCDIC(0x07))
	assert.Equal(t, ebcdicSpace, ToEBCDIC(0xFF))
	assert.Equal(t, asciiSpace, FromEBCDIC(0x05))
	assert.Equal(t, asciiSpace, FromEBCDIC(0xFF))
}

func TestEncodeDecodeString(t *testing.T) {
	s := "SMITH, JOHN A $1,234.56 (x_y) #42!"
	assert.Equal(t, s, DecodeString(EncodeString(s)))
}

func TestDecodeStringMapsGarbageToSpaces(t *testing.T) {
	got := DecodeString([]byte{0x01, 0xC1, 0x02})
	assert.Equal(t, " A ", got)
}
