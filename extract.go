package incrfont

import (
	"encoding/binary"
	"sort"
)

// ExtractGlyphs returns the glyph records for the glyphs mapped from runes by the font's cmap, in glyph ID order. Runes that are not in the font are skipped. The returned flags describe the records.
func ExtractGlyphs(font []byte, runes []rune) (uint32, []GlyphRecord, error) {
	sfnt, err := ParseSFNT(font)
	if err != nil {
		return 0, nil, err
	} else if !sfnt.IsCFF {
		return 0, nil, &NotSupportedError{"TrueType outlines"}
	}
	cmap, err := sfnt.Cmap()
	if err != nil {
		return 0, nil, err
	}
	cff, err := sfnt.CFF()
	if err != nil {
		return 0, nil, err
	}

	flags := HasCFF
	if _, ok := sfnt.sideBearingPos("hmtx", "hhea", 0); ok {
		flags |= HasHmtx
	}
	if _, ok := sfnt.sideBearingPos("vmtx", "vhea", 0); ok {
		flags |= HasVmtx
	}

	glyphIDs := map[uint16]bool{}
	for _, r := range runes {
		if glyphID := cmap.Get(r); glyphID != 0 && int(glyphID) < cff.NumGlyphs() {
			glyphIDs[glyphID] = true
		}
	}

	charStrings := cff.CharStrings()
	glyphs := make([]GlyphRecord, 0, len(glyphIDs))
	for glyphID := range glyphIDs {
		data, err := cff.CharString(int(glyphID))
		if err != nil {
			return 0, nil, err
		}
		glyph := GlyphRecord{
			GlyphID: glyphID,
			Offset:  charStrings.Offsets[glyphID] - 1,
			Data:    data,
		}
		if pos, ok := sfnt.sideBearingPos("hmtx", "hhea", glyphID); ok {
			glyph.Lsb = int16(binary.BigEndian.Uint16(font[pos:]))
		}
		if pos, ok := sfnt.sideBearingPos("vmtx", "vhea", glyphID); ok {
			glyph.Tsb = int16(binary.BigEndian.Uint16(font[pos:]))
		}
		glyphs = append(glyphs, glyph)
	}
	sort.Slice(glyphs, func(i, j int) bool { return glyphs[i].GlyphID < glyphs[j].GlyphID })
	return flags, glyphs, nil
}

// MakeGlyphBundle extracts the glyphs for runes from font and encodes them as a glyph bundle.
func MakeGlyphBundle(font []byte, runes []rune) ([]byte, error) {
	flags, glyphs, err := ExtractGlyphs(font, runes)
	if err != nil {
		return nil, err
	}
	return WriteGlyphBundle(flags, glyphs)
}
