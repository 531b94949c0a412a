// Package fonttest builds small CFF-flavored OpenType fonts for tests.
package fonttest

import (
	"encoding/binary"
	"fmt"

	"github.com/tdewolff/incrfont"
)

// Glyphs are the charstrings of the font built by OTF, .notdef is glyph 0.
var Glyphs = [][]byte{
	{0x8B, 0x0E},
	{0x8B, 0x8B, 0x15, 0x0E},
	{0x8C, 0x0E},
	{0x8D, 0x8D, 0x8D, 0x15, 0x0E},
	{0x8E, 0x8E, 0x15, 0x0E},
	{0x8F, 0x0E},
}

// RuneMap maps 'A' to 'E' to the glyphs 1 to 5.
var RuneMap = map[rune]uint16{'A': 1, 'B': 2, 'C': 3, 'D': 4, 'E': 5}

// Lsb is the left side bearing of a glyph.
func Lsb(glyphID uint16) int16 {
	return int16(10*glyphID + 5)
}

// CFF returns a non-CID CFF table with the given charstrings.
func CFF(name string, charStrings [][]byte) ([]byte, error) {
	header := []byte{1, 0, 4, 4}
	nameINDEX, err := incrfont.WriteCFFIndex([][]byte{[]byte(name)})
	if err != nil {
		return nil, err
	}
	stringINDEX, err := incrfont.WriteCFFIndex(nil)
	if err != nil {
		return nil, err
	}
	gsubrINDEX := stringINDEX
	charStringsINDEX, err := incrfont.WriteCFFIndex(charStrings)
	if err != nil {
		return nil, err
	}

	// the Top DICT size depends on the CharStrings offset
	offset := 0
	for i := 0; i < 4; i++ {
		topDICT, err := incrfont.CFFDict{incrfont.OpCharStrings: {{I: offset}}}.Write()
		if err != nil {
			return nil, err
		}
		topINDEX, err := incrfont.WriteCFFIndex([][]byte{topDICT})
		if err != nil {
			return nil, err
		}
		n := len(header) + len(nameINDEX) + len(topINDEX) + len(stringINDEX) + len(gsubrINDEX)
		if n == offset {
			b := []byte{}
			for _, part := range [][]byte{header, nameINDEX, topINDEX, stringINDEX, gsubrINDEX, charStringsINDEX} {
				b = append(b, part...)
			}
			return b, nil
		}
		offset = n
	}
	return nil, fmt.Errorf("CharStrings offset does not converge")
}

// OTF returns an OpenType font with the Glyphs, a cmap of RuneMap and side bearings of Lsb.
func OTF() ([]byte, error) {
	cff, err := CFF("TestFont", Glyphs)
	if err != nil {
		return nil, err
	}

	numGlyphs := uint16(len(Glyphs))
	maxp := make([]byte, 6)
	binary.BigEndian.PutUint32(maxp, 0x00005000)
	binary.BigEndian.PutUint16(maxp[4:], numGlyphs)

	hhea := make([]byte, 36)
	binary.BigEndian.PutUint32(hhea, 0x00010000)
	binary.BigEndian.PutUint16(hhea[34:], numGlyphs)

	hmtx := []byte{}
	for glyphID := uint16(0); glyphID < numGlyphs; glyphID++ {
		hmtx = binary.BigEndian.AppendUint16(hmtx, 500)
		hmtx = binary.BigEndian.AppendUint16(hmtx, uint16(Lsb(glyphID)))
	}

	return incrfont.WriteSFNT(true, map[string][]byte{
		"CFF ": cff,
		"cmap": incrfont.WriteCmap(RuneMap),
		"hhea": hhea,
		"hmtx": hmtx,
		"maxp": maxp,
	}), nil
}
