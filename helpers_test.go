package incrfont

import (
	"encoding/binary"
	"testing"

	"github.com/tdewolff/test"
)

type testCFF struct {
	name        string
	strings     []string
	top         CFFDict
	charStrings [][]byte
	fontDICTs   []CFFDict // makes the font CID-keyed
	private     CFFDict
}

// build lays out header, Name, Top DICT, String, Global Subr and CharStrings INDEXes, followed by the Font DICT INDEX and the Private DICT.
func (f testCFF) build(t *testing.T) []byte {
	t.Helper()
	header := []byte{1, 0, 4, 4}
	nameINDEX, err := WriteCFFIndex([][]byte{[]byte(f.name)})
	test.Error(t, err)
	items := [][]byte{}
	for _, s := range f.strings {
		items = append(items, []byte(s))
	}
	stringINDEX, err := WriteCFFIndex(items)
	test.Error(t, err)
	gsubrINDEX, err := WriteCFFIndex(nil)
	test.Error(t, err)
	charStringsINDEX, err := WriteCFFIndex(f.charStrings)
	test.Error(t, err)

	var privateDICT []byte
	if f.private != nil {
		privateDICT, err = f.private.Write()
		test.Error(t, err)
	}

	top := CFFDict{}
	for op, operands := range f.top {
		top[op] = operands
	}

	charStringsOffset, privateOffset := 0, 0
	for {
		top[OpCharStrings] = []Operand{{I: charStringsOffset}}
		fdArrayOffset := charStringsOffset + len(charStringsINDEX)
		privateOwner := top
		var fdArrayINDEX []byte
		if f.fontDICTs != nil {
			privateOwner = f.fontDICTs[0]
			top[OpFDArray] = []Operand{{I: fdArrayOffset}}
		}
		if privateDICT != nil {
			privateOwner[OpPrivate] = []Operand{{I: len(privateDICT)}, {I: privateOffset}}
		}
		if f.fontDICTs != nil {
			fds := [][]byte{}
			for _, fd := range f.fontDICTs {
				b, err := fd.Write()
				test.Error(t, err)
				fds = append(fds, b)
			}
			fdArrayINDEX, err = WriteCFFIndex(fds)
			test.Error(t, err)
		}

		topDICT, err := top.Write()
		test.Error(t, err)
		topINDEX, err := WriteCFFIndex([][]byte{topDICT})
		test.Error(t, err)

		n := len(header) + len(nameINDEX) + len(topINDEX) + len(stringINDEX) + len(gsubrINDEX)
		m := n + len(charStringsINDEX) + len(fdArrayINDEX)
		if n == charStringsOffset && m == privateOffset {
			b := []byte{}
			for _, part := range [][]byte{header, nameINDEX, topINDEX, stringINDEX, gsubrINDEX, charStringsINDEX, fdArrayINDEX, privateDICT} {
				b = append(b, part...)
			}
			return b
		}
		charStringsOffset, privateOffset = n, m
	}
}

// testGlyphs are the charstrings of the test font, .notdef is glyph 0
var testGlyphs = [][]byte{
	{0x8B, 0x0E},
	{0x8B, 0x8B, 0x15, 0x0E},
	{0x8C, 0x0E},
	{0x8D, 0x8D, 0x8D, 0x15, 0x0E},
	{0x8E, 0x8E, 0x15, 0x0E},
	{0x8F, 0x0E},
}

var testRuneMap = map[rune]uint16{'A': 1, 'B': 2, 'C': 3, 'D': 4, 'E': 5}

func testLsb(glyphID uint16) int16 {
	return int16(10*glyphID + 5)
}

// testOTF builds a CFF-flavored OpenType font with a cmap, maxp, hhea and hmtx table. Only the first two glyphs have a long horizontal metric.
func testOTF(t *testing.T) []byte {
	t.Helper()
	cff := testCFF{
		name:        "TestFont",
		top:         CFFDict{OpFullName: {{I: 391}}},
		strings:     []string{"Test Font Regular"},
		charStrings: testGlyphs,
		private:     CFFDict{OpDefaultWidthX: {{I: 500}}},
	}.build(t)

	numGlyphs := uint16(len(testGlyphs))
	maxp := make([]byte, 6)
	binary.BigEndian.PutUint32(maxp, 0x00005000)
	binary.BigEndian.PutUint16(maxp[4:], numGlyphs)

	const numberOfHMetrics = 2
	hhea := make([]byte, 36)
	binary.BigEndian.PutUint32(hhea, 0x00010000)
	binary.BigEndian.PutUint16(hhea[34:], numberOfHMetrics)

	hmtx := []byte{}
	for glyphID := uint16(0); glyphID < numGlyphs; glyphID++ {
		if glyphID < numberOfHMetrics {
			hmtx = binary.BigEndian.AppendUint16(hmtx, 500) // advanceWidth
		}
		hmtx = binary.BigEndian.AppendUint16(hmtx, uint16(testLsb(glyphID)))
	}

	return WriteSFNT(true, map[string][]byte{
		"CFF ": cff,
		"cmap": WriteCmap(testRuneMap),
		"hhea": hhea,
		"hmtx": hmtx,
		"maxp": maxp,
	})
}

func lsbAt(t *testing.T, font []byte, glyphID uint16) int16 {
	t.Helper()
	sfnt, err := ParseSFNT(font)
	test.Error(t, err)
	pos, ok := sfnt.sideBearingPos("hmtx", "hhea", glyphID)
	test.That(t, ok, "no side bearing")
	return int16(binary.BigEndian.Uint16(font[pos:]))
}

func charStringAt(t *testing.T, font []byte, glyphID int) []byte {
	t.Helper()
	sfnt, err := ParseSFNT(font)
	test.Error(t, err)
	cff, err := sfnt.CFF()
	test.Error(t, err)
	b, err := cff.CharString(glyphID)
	test.Error(t, err)
	return b
}
