package tn5250

// EBCDIC code page 037 translation, printable subset. Both directions are
// table-driven over the full 256-byte alphabet; anything outside the loaded
// pairs round-trips through space. The tables are immutable after package
// init and safe for concurrent readers.

const (
	asciiSpace  byte = 0x20
	ebcdicSpace byte = 0x40
)

var (
	asciiToEBCDIC [256]byte
	ebcdicToASCII [256]byte
)

// codePairs lists the explicit ASCII <-> EBCDIC CP037 pairs this engine
// translates: NUL, space, digits, letters and the printable punctuation
// that appears on 5250 panels.
var codePairs = [][2]byte{
	{0x00, 0x00}, // NUL
	{' ', 0x40},

	{'0', 0xF0}, {'1', 0xF1}, {'2', 0xF2}, {'3', 0xF3}, {'4', 0xF4},
	{'5', 0xF5}, {'6', 0xF6}, {'7', 0xF7}, {'8', 0xF8}, {'9', 0xF9},

	{'A', 0xC1}, {'B', 0xC2}, {'C', 0xC3}, {'D', 0xC4}, {'E', 0xC5},
	{'F', 0xC6}, {'G', 0xC7}, {'H', 0xC8}, {'I', 0xC9}, {'J', 0xD1},
	{'K', 0xD2}, {'L', 0xD3}, {'M', 0xD4}, {'N', 0xD5}, {'O', 0xD6},
	{'P', 0xD7}, {'Q', 0xD8}, {'R', 0xD9}, {'S', 0xE2}, {'T', 0xE3},
	{'U', 0xE4}, {'V', 0xE5}, {'W', 0xE6}, {'X', 0xE7}, {'Y', 0xE8},
	{'Z', 0xE9},

	{'a', 0x81}, {'b', 0x82}, {'c', 0x83}, {'d', 0x84}, {'e', 0x85},
	{'f', 0x86}, {'g', 0x87}, {'h', 0x88}, {'i', 0x89}, {'j', 0x91},
	{'k', 0x92}, {'l', 0x93}, {'m', 0x94}, {'n', 0x95}, {'o', 0x96},
	{'p', 0x97}, {'q', 0x98}, {'r', 0x99}, {'s', 0xA2}, {'t', 0xA3},
	{'u', 0xA4}, {'v', 0xA5}, {'w', 0xA6}, {'x', 0xA7}, {'y', 0xA8},
	{'z', 0xA9},

	{'!', 0x5A}, {'"', 0x7F}, {'#', 0x7B}, {'$', 0x5B}, {'%', 0x6C},
	{'&', 0x50}, {'\'', 0x7D}, {'(', 0x4D}, {')', 0x5D}, {'*', 0x5C},
	{'+', 0x4E}, {',', 0x6B}, {'-', 0x60}, {'.', 0x4B}, {'/', 0x61},
	{':', 0x7A}, {';', 0x5E}, {'<', 0x4C}, {'=', 0x7E}, {'>', 0x6E},
	{'?', 0x6F}, {'@', 0x7C}, {'[', 0xBA}, {'\\', 0xE0}, {']', 0xBB},
	{'^', 0xB0}, {'_', 0x6D}, {'`', 0x79}, {'{', 0xC0}, {'|', 0x4F},
	{'}', 0xD0}, {'~', 0xA1},
}

func init() {
	for i := range asciiToEBCDIC {
		asciiToEBCDIC[i] = ebcdicSpace
		ebcdicToASCII[i] = asciiSpace
	}
	for _, p := range codePairs {
		asciiToEBCDIC[p[0]] = p[1]
		ebcdicToASCII[p[1]] = p[0]
	}
}

// ToEBCDIC translates one ASCII byte to EBCDIC CP037. Unknown bytes map to
// the EBCDIC space.
func ToEBCDIC(b byte) byte { return asciiToEBCDIC[b] }

// FromEBCDIC translates one EBCDIC CP037 byte to ASCII. Unknown bytes map
// to the ASCII space.
func FromEBCDIC(b byte) byte { return ebcdicToASCII[b] }

// EncodeString translates an ASCII string into a fresh EBCDIC byte slice.
func EncodeString(s string) []byte {
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		out[i] = asciiToEBCDIC[s[i]]
	}
	return out
}

// DecodeString translates EBCDIC bytes into an ASCII string.
func DecodeString(b []byte) string {
	out := make([]byte, len(b))
	for i, c := range b {
		out[i] = ebcdicToASCII[c]
	}
	return string(out)
}
