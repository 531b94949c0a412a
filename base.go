package incrfont

import (
	"encoding/binary"
	"fmt"
)

// LocaBlockSize is the number of consecutive CharStrings offsets that share a value in a base font.
const LocaBlockSize = 64

// MakeBase returns a base font of a CFF-flavored OpenType font. All glyph data except .notdef is zeroed and the CharStrings offsets are made sparse in blocks of LocaBlockSize, so that every glyph but .notdef is empty or filled with zeros. The side bearings in hmtx and vmtx are zeroed except for .notdef. The length of the CharStrings data is unchanged so that the glyph offsets of the original font remain valid for MergeGlyphs.
func MakeBase(font []byte) ([]byte, error) {
	b := make([]byte, len(font))
	copy(b, font)
	sfnt, err := ParseSFNT(b)
	if err != nil {
		return nil, err
	} else if !sfnt.IsCFF {
		return nil, &NotSupportedError{"TrueType outlines"}
	}
	cff, err := sfnt.CFF()
	if err != nil {
		return nil, err
	}
	charStrings := cff.CharStrings()
	if charStrings.Count == 0 {
		return nil, fmt.Errorf("base: %w", formatError("no glyphs"))
	}
	cffOffset := int(sfnt.Tables["CFF "].Offset)

	// zero the glyph data after .notdef
	offsets := charStrings.Offsets
	notdefEnd := int(offsets[1] - 1)
	if charStrings.DataLen() < notdefEnd {
		return nil, fmt.Errorf("base: %w", formatError("bad .notdef offsets"))
	}
	data := b[cffOffset+charStrings.DataStart():]
	clear(data[notdefEnd:charStrings.DataLen()])

	// offsets of glyphs in a block get the offset of the first glyph in the block, the first and last offsets are kept
	for i := 2; i < charStrings.Count; i++ {
		block := max(i-i%LocaBlockSize, 1)
		putOffset(b[cffOffset+charStrings.OffsetPos(i):], charStrings.OffSize, offsets[block])
	}

	numGlyphs := uint16(charStrings.Count)
	for glyphID := uint16(1); glyphID < numGlyphs; glyphID++ {
		if pos, ok := sfnt.sideBearingPos("hmtx", "hhea", glyphID); ok {
			binary.BigEndian.PutUint16(b[pos:], 0)
		}
		if pos, ok := sfnt.sideBearingPos("vmtx", "vhea", glyphID); ok {
			binary.BigEndian.PutUint16(b[pos:], 0)
		}
	}
	return b, nil
}
