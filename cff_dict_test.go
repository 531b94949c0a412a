package incrfont

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/tdewolff/test"
)

func TestCFFDictIntegers(t *testing.T) {
	var tests = []struct {
		b []byte
		v int
	}{
		{[]byte{139}, 0},
		{[]byte{32}, -107},
		{[]byte{246}, 107},
		{[]byte{247, 0}, 108},
		{[]byte{250, 255}, 1131},
		{[]byte{251, 0}, -108},
		{[]byte{254, 255}, -1131},
		{[]byte{28, 0x0C, 0x07}, 3079},
		{[]byte{28, 0x80, 0x00}, -32768},
		{[]byte{29, 0x00, 0x01, 0x86, 0xA0}, 100000},
		{[]byte{29, 0xFF, 0xFE, 0x79, 0x60}, -100000},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.v), func(t *testing.T) {
			dict, err := ParseCFFDict(append(tt.b, OpCharStrings))
			test.Error(t, err)
			v, ok := dict.Int(OpCharStrings, 0)
			test.That(t, ok)
			test.T(t, v, tt.v)

			// encoding uses the shortest form
			b, err := CFFDict{OpCharStrings: {{I: tt.v}}}.Write()
			test.Error(t, err)
			test.Bytes(t, b, append(tt.b, OpCharStrings))
		})
	}
}

func TestCFFDictRoundTrip(t *testing.T) {
	b, err := CFFDict{OpCharStrings: {{I: 3079}}}.Write()
	test.Error(t, err)
	dict, err := ParseCFFDict(b)
	test.Error(t, err)
	v, ok := dict.Int(OpCharStrings, 0)
	test.That(t, ok)
	test.T(t, v, 3079)

	in := CFFDict{
		OpROS:           {{I: 391}, {I: 392}, {I: 0}},
		OpFontBBox:      {{I: -50}, {I: -250}, {I: 1000}, {I: 900}},
		OpFontMatrix:    {{F: 0.001, IsReal: true}, {I: 0}, {I: 0}, {F: 0.001, IsReal: true}, {I: 0}, {I: 0}},
		OpCharStrings:   {{I: 70000}},
		OpFDArray:       {{I: 1234}},
		OpDefaultWidthX: {{F: -2.25, IsReal: true}},
	}
	b, err = in.Write()
	test.Error(t, err)
	test.Bytes(t, b[:7], []byte{248, 27, 248, 28, 139, 12, 30}) // ROS comes first
	out, err := ParseCFFDict(b)
	test.Error(t, err)
	if diff := cmp.Diff(in, out, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Errorf("round trip mismatch (-in +out):\n%s", diff)
	}
}

func TestCFFDictEscape(t *testing.T) {
	dict, err := ParseCFFDict([]byte{139, 139, 12, 7})
	test.Error(t, err)
	test.That(t, dict.Has(1207))
	test.That(t, dict.Has(OpFontMatrix))
	test.T(t, len(dict[OpFontMatrix]), 2)

	dict, err = ParseCFFDict([]byte{12, 30})
	test.Error(t, err)
	test.That(t, dict.Has(OpROS))
	test.T(t, len(dict[OpROS]), 0)
}

func TestCFFDictReal(t *testing.T) {
	var tests = []struct {
		b []byte
		f float64
	}{
		{[]byte{30, 0xE2, 0xA2, 0x5F}, -2.25},
		{[]byte{30, 0x0A, 0x14, 0x05, 0x41, 0xC3, 0xFF}, 0.140541e-3},
		{[]byte{30, 0x1B, 0x2F}, 1e2},
		{[]byte{30, 0x1F}, 1},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.f), func(t *testing.T) {
			dict, err := ParseCFFDict(append(tt.b, OpDefaultWidthX))
			test.Error(t, err)
			f, ok := dict.Float(OpDefaultWidthX, 0)
			test.That(t, ok)
			test.Float(t, f, tt.f)
			test.That(t, dict[OpDefaultWidthX][0].IsReal)
		})
	}

	for _, f := range []float64{0.001, -2.25, 1e-10, 123456789, 0.5} {
		b, err := CFFDict{OpNominalWidthX: {{F: f, IsReal: true}}}.Write()
		test.Error(t, err)
		dict, err := ParseCFFDict(b)
		test.Error(t, err)
		g, _ := dict.Float(OpNominalWidthX, 0)
		test.Float(t, g, f)
	}
}

func TestCFFDictLastWriteWins(t *testing.T) {
	dict, err := ParseCFFDict([]byte{139, 17, 140, 17})
	test.Error(t, err)
	v, _ := dict.Int(OpCharStrings, 0)
	test.T(t, v, 1)

	_, ok := dict.Int(OpCharStrings, 1)
	test.That(t, !ok)
	_, ok = dict.Int(OpPrivate, 0)
	test.That(t, !ok)
}

func TestCFFDictErrors(t *testing.T) {
	tooMany := []byte{}
	for i := 0; i < cffDICTMaxOperands+1; i++ {
		tooMany = append(tooMany, 139)
	}
	tooMany = append(tooMany, OpFontBBox)

	var tests = []struct {
		name string
		b    []byte
	}{
		{"operands without operator", []byte{139, 17, 140}},
		{"unterminated real", []byte{30, 0x12, 0x34}},
		{"reserved nibble", []byte{30, 0x1D, 0xFF, 17}},
		{"bad real", []byte{30, 0xAA, 0xFF, 17}},
		{"reserved byte", []byte{22, 17}},
		{"reserved byte 255", []byte{255, 17}},
		{"truncated int16", []byte{28, 0x01}},
		{"truncated int32", []byte{29, 0x01, 0x02}},
		{"truncated two-byte", []byte{247}},
		{"truncated escape", []byte{139, 12}},
		{"too many operands", tooMany},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dict, err := ParseCFFDict(tt.b)
			test.T(t, dict, CFFDict(nil))
			test.That(t, errors.Is(err, ErrInvalidFontData), err)
		})
	}

	_, err := CFFDict{22: {{I: 1}}}.Write()
	test.That(t, err != nil, "bad operator")
}
