package incrfont

import (
	"errors"
	"testing"

	"github.com/tdewolff/test"
)

func TestCFFStandardStrings(t *testing.T) {
	test.T(t, len(cffStandardStrings), 391)
	test.T(t, cffStandardStrings[0], ".notdef")
	test.T(t, cffStandardStrings[34], "A")
	test.T(t, cffStandardStrings[390], "Semibold")
}

func TestParseCFF(t *testing.T) {
	b := testCFF{
		name:        "TestFont",
		top:         CFFDict{OpFullName: {{I: 391}}, OpWeight: {{I: 388}}},
		strings:     []string{"Test Font Regular"},
		charStrings: testGlyphs,
		private:     CFFDict{OpDefaultWidthX: {{I: 500}}, OpNominalWidthX: {{I: 600}}},
	}.build(t)

	cff, err := ParseCFF(b)
	test.Error(t, err)
	test.T(t, cff.HdrSize(), 4)
	test.T(t, cff.OffSize(), 4)
	test.T(t, cff.NumGlyphs(), len(testGlyphs))
	test.T(t, cff.FontName(), "TestFont")
	test.T(t, cff.IsCID(), false)
	test.T(t, cff.NameINDEX().Count, 1)
	test.T(t, cff.TopDICTINDEX().Count, 1)
	test.T(t, cff.FontDICTINDEX(), (*CFFIndex)(nil))

	for glyphID, glyph := range testGlyphs {
		charString, err := cff.CharString(glyphID)
		test.Error(t, err)
		test.Bytes(t, charString, glyph)
	}
	_, err = cff.CharString(len(testGlyphs))
	test.That(t, errors.Is(err, ErrOutOfRange))

	sid, _ := cff.TopDICT().Int(OpFullName, 0)
	name, err := cff.String(sid)
	test.Error(t, err)
	test.T(t, name, "Test Font Regular")
	sid, _ = cff.TopDICT().Int(OpWeight, 0)
	name, err = cff.String(sid)
	test.Error(t, err)
	test.T(t, name, "Regular")
	_, err = cff.String(392)
	test.That(t, errors.Is(err, ErrInvalidFontData))

	strings, err := cff.StringINDEX()
	test.Error(t, err)
	test.T(t, strings.Count, 1)
	gsubrs, err := cff.GlobalSubrINDEX()
	test.Error(t, err)
	test.T(t, gsubrs.Count, 0)
	test.T(t, gsubrs.End(), cff.CharStrings().Start())

	test.That(t, cff.HasPrivateDICT(0))
	test.That(t, !cff.HasPrivateDICT(1))
	private, err := cff.PrivateDICT(0)
	test.Error(t, err)
	v, _ := private.Int(OpNominalWidthX, 0)
	test.T(t, v, 600)

	_, err = cff.FontDICT(0)
	var nerr *NotSupportedError
	test.That(t, errors.As(err, &nerr))
}

func TestParseCFFCID(t *testing.T) {
	b := testCFF{
		name:        "TestCID",
		top:         CFFDict{OpROS: {{I: 391}, {I: 392}, {I: 0}}, OpCIDCount: {{I: 6}}},
		strings:     []string{"Adobe", "Identity"},
		charStrings: testGlyphs,
		fontDICTs:   []CFFDict{{OpFontName: {{I: 391}}}},
		private:     CFFDict{OpDefaultWidthX: {{I: 250}}},
	}.build(t)

	cff, err := ParseCFF(b)
	test.Error(t, err)
	test.That(t, cff.IsCID())
	test.T(t, cff.FontDICTINDEX().Count, 1)

	fd, err := cff.FontDICT(0)
	test.Error(t, err)
	test.That(t, fd.Has(OpPrivate))
	_, err = cff.FontDICT(1)
	test.That(t, errors.Is(err, ErrInvalidFontData))

	registry, _ := cff.TopDICT().Int(OpROS, 0)
	name, err := cff.String(registry)
	test.Error(t, err)
	test.T(t, name, "Adobe")

	test.That(t, cff.HasPrivateDICT(0))
	private, err := cff.PrivateDICT(0)
	test.Error(t, err)
	v, _ := private.Int(OpDefaultWidthX, 0)
	test.T(t, v, 250)
}

func TestParseCFFWithoutPrivate(t *testing.T) {
	b := testCFF{
		name:        "NoPrivate",
		top:         CFFDict{},
		charStrings: testGlyphs[:1],
	}.build(t)

	cff, err := ParseCFF(b)
	test.Error(t, err)
	test.That(t, !cff.HasPrivateDICT(0))
	_, err = cff.PrivateDICT(0)
	var nerr *NotSupportedError
	test.That(t, errors.As(err, &nerr))
}

func TestCFFGetData(t *testing.T) {
	b := testCFF{name: "Data", top: CFFDict{}, charStrings: testGlyphs}.build(t)
	cff, err := ParseCFF(b)
	test.Error(t, err)

	start, end, err := cff.CharStrings().Element(3)
	test.Error(t, err)
	data, err := cff.GetData(start, end-start)
	test.Error(t, err)
	test.Bytes(t, data, testGlyphs[3])

	_, err = cff.GetData(len(b)-1, 2)
	test.That(t, errors.Is(err, ErrOutOfRange))
	_, err = cff.GetData(-1, 1)
	test.That(t, errors.Is(err, ErrOutOfRange))
}

func TestParseCFFErrors(t *testing.T) {
	nameINDEX, _ := WriteCFFIndex([][]byte{[]byte("Bad")})
	emptyINDEX, _ := WriteCFFIndex(nil)
	topDICT, _ := CFFDict{OpFullName: {{I: 0}}}.Write()
	topINDEX, _ := WriteCFFIndex([][]byte{topDICT})
	twoTopINDEX, _ := WriteCFFIndex([][]byte{topDICT, topDICT})
	farDICT, _ := CFFDict{OpCharStrings: {{I: 10000}}}.Write()
	farINDEX, _ := WriteCFFIndex([][]byte{farDICT})

	concat := func(parts ...[]byte) []byte {
		b := []byte{}
		for _, part := range parts {
			b = append(b, part...)
		}
		return b
	}

	var tests = []struct {
		name string
		b    []byte
	}{
		{"empty", []byte{}},
		{"short header", []byte{1, 0}},
		{"bad hdrSize", []byte{1, 0, 2, 4}},
		{"bad offSize", []byte{1, 0, 4, 5}},
		{"hdrSize past end", []byte{1, 0, 10, 4}},
		{"no names", concat([]byte{1, 0, 4, 4}, emptyINDEX, topINDEX)},
		{"two Top DICTs", concat([]byte{1, 0, 4, 4}, nameINDEX, twoTopINDEX)},
		{"missing CharStrings", concat([]byte{1, 0, 4, 4}, nameINDEX, topINDEX, emptyINDEX, emptyINDEX)},
		{"CharStrings past end", concat([]byte{1, 0, 4, 4}, nameINDEX, farINDEX, emptyINDEX, emptyINDEX)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cff, err := ParseCFF(tt.b)
			test.T(t, cff, (*CFFTable)(nil))
			test.That(t, errors.Is(err, ErrInvalidFontData), err)
		})
	}

	_, err := ParseCFF([]byte{2, 0, 5, 4})
	var nerr *NotSupportedError
	test.That(t, errors.As(err, &nerr), "CFF2")
}
