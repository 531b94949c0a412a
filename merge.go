package incrfont

import (
	"encoding/binary"
	"fmt"
)

// CFFMerger splices the glyphs of a glyph bundle into a base font snapshot.
type CFFMerger struct{}

// MergeGlyphs returns a copy of base with the glyph data of bundle written into the CharStrings INDEX and the side bearings written into the hmtx and vmtx tables. Glyph data is written at the same offset as in the original font. The CharStrings data region must already be large enough, which is the case for fonts made by MakeBase.
func (CFFMerger) MergeGlyphs(base []byte, bundle *GlyphBundle) ([]byte, error) {
	if !bundle.IsCFF() {
		return nil, &NotSupportedError{"TrueType glyph bundle"}
	}
	glyphs, err := bundle.Glyphs()
	if err != nil {
		return nil, err
	}

	b := make([]byte, len(base))
	copy(b, base)
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
	cffOffset := int(sfnt.Tables["CFF "].Offset)
	charStrings := cff.CharStrings()
	dataStart := cffOffset + charStrings.DataStart()

	for _, glyph := range glyphs {
		if charStrings.Count <= int(glyph.GlyphID) {
			return nil, fmt.Errorf("merge: glyph %d: %w", glyph.GlyphID, formatError("glyph ID out of range"))
		} else if uint64(charStrings.DataLen()) < uint64(glyph.Offset)+uint64(len(glyph.Data)) {
			return nil, fmt.Errorf("merge: glyph %d: %w", glyph.GlyphID, formatError("data exceeds CharStrings INDEX"))
		}

		copy(b[dataStart+int(glyph.Offset):], glyph.Data)
		offSize := charStrings.OffSize
		end := glyph.Offset + uint32(len(glyph.Data)) + 1
		putOffset(b[cffOffset+charStrings.OffsetPos(int(glyph.GlyphID)):], offSize, glyph.Offset+1)
		putOffset(b[cffOffset+charStrings.OffsetPos(int(glyph.GlyphID)+1):], offSize, end)

		// following glyphs that have not been loaded become empty to keep the offsets non-decreasing
		for i := int(glyph.GlyphID) + 2; i < charStrings.Count; i++ {
			pos := cffOffset + charStrings.OffsetPos(i)
			if end <= getOffset(b[pos:], offSize) {
				break
			}
			putOffset(b[pos:], offSize, end)
		}

		if bundle.Flags&HasHmtx != 0 {
			if pos, ok := sfnt.sideBearingPos("hmtx", "hhea", glyph.GlyphID); ok {
				binary.BigEndian.PutUint16(b[pos:], uint16(glyph.Lsb))
			}
		}
		if bundle.Flags&HasVmtx != 0 {
			if pos, ok := sfnt.sideBearingPos("vmtx", "vhea", glyph.GlyphID); ok {
				binary.BigEndian.PutUint16(b[pos:], uint16(glyph.Tsb))
			}
		}
	}
	return b, nil
}
