package incrfont

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"github.com/tdewolff/parse/v2"
)

// MaxCmapSegments is the maximum number of cmap segments that will be accepted.
var MaxCmapSegments = 20000

type cmapSubtable interface {
	Get(rune) (uint16, bool)
}

type cmapFormat0 struct {
	GlyphIdArray [256]uint8
}

func (subtable *cmapFormat0) Get(r rune) (uint16, bool) {
	if r < 0 || 256 <= r {
		return 0, false
	}
	return uint16(subtable.GlyphIdArray[r]), true
}

type cmapFormat4 struct {
	StartCode     []uint16
	EndCode       []uint16
	IdDelta       []int16
	IdRangeOffset []uint16
	GlyphIdArray  []uint16
}

func (subtable *cmapFormat4) Get(r rune) (uint16, bool) {
	if r < 0 || 65536 <= r {
		return 0, false
	}
	n := len(subtable.StartCode)
	i := sort.Search(n, func(i int) bool { return uint16(r) <= subtable.EndCode[i] })
	if i == n || uint16(r) < subtable.StartCode[i] {
		return 0, false
	} else if subtable.IdRangeOffset[i] == 0 {
		// modulo 65536
		return uint16(subtable.IdDelta[i]) + uint16(r), true
	}
	index := int(subtable.IdRangeOffset[i]/2) + int(uint16(r)-subtable.StartCode[i]) - (n - i)
	glyphID := subtable.GlyphIdArray[index] // index is checked while parsing
	if glyphID == 0 {
		return 0, true
	}
	return uint16(subtable.IdDelta[i]) + glyphID, true
}

type cmapFormat6 struct {
	FirstCode    uint16
	GlyphIdArray []uint16
}

func (subtable *cmapFormat6) Get(r rune) (uint16, bool) {
	if r < rune(subtable.FirstCode) || len(subtable.GlyphIdArray) <= int(r)-int(subtable.FirstCode) {
		return 0, false
	}
	return subtable.GlyphIdArray[int(r)-int(subtable.FirstCode)], true
}

type cmapFormat12 struct {
	StartCharCode []uint32
	EndCharCode   []uint32
	StartGlyphID  []uint32
}

func (subtable *cmapFormat12) Get(r rune) (uint16, bool) {
	if r < 0 {
		return 0, false
	}
	n := len(subtable.StartCharCode)
	i := sort.Search(n, func(i int) bool { return uint32(r) <= subtable.EndCharCode[i] })
	if i == n || uint32(r) < subtable.StartCharCode[i] {
		return 0, false
	}
	return uint16(uint32(r) - subtable.StartCharCode[i] + subtable.StartGlyphID[i]), true
}

// Cmap maps codepoints to glyph IDs.
type Cmap struct {
	subtables []cmapSubtable
}

// Get returns the glyph ID for a codepoint from the first subtable that maps it, or 0 (.notdef) otherwise.
func (cmap *Cmap) Get(r rune) uint16 {
	for _, subtable := range cmap.subtables {
		if glyphID, ok := subtable.Get(r); ok {
			return glyphID
		}
	}
	return 0
}

// Cmap parses the cmap table.
func (sfnt *SFNT) Cmap() (*Cmap, error) {
	b, ok := sfnt.Table("cmap")
	if !ok {
		return nil, fmt.Errorf("cmap: missing table")
	}
	numGlyphs, err := sfnt.NumGlyphs()
	if err != nil {
		return nil, err
	}
	return ParseCmap(b, numGlyphs)
}

// ParseCmap parses the subtables of formats 0, 4, 6 and 12 of a cmap table. Subtables of other formats are skipped.
func ParseCmap(b []byte, numGlyphs uint16) (*Cmap, error) {
	if len(b) < 4 || math.MaxUint32 < uint64(len(b)) {
		return nil, fmt.Errorf("cmap: bad table")
	}

	cmap := &Cmap{}
	r := parse.NewBinaryReader(b)
	if r.ReadUint16() != 0 {
		return nil, fmt.Errorf("cmap: bad version")
	}
	numTables := r.ReadUint16()
	if uint32(len(b)) < 4+8*uint32(numTables) {
		return nil, fmt.Errorf("cmap: bad table")
	}

	seen := map[uint32]bool{}
	for j := 0; j < int(numTables); j++ {
		_ = r.ReadUint16() // platformID
		_ = r.ReadUint16() // encodingID
		offset := r.ReadUint32()
		if uint32(len(b))-8 < offset {
			return nil, fmt.Errorf("cmap: bad subtable %d", j)
		} else if seen[offset] {
			continue // encoding records may share subtables
		}
		seen[offset] = true

		hdr := parse.NewBinaryReader(b[offset:])
		format := hdr.ReadUint16()
		var length uint32
		switch format {
		case 0, 2, 4, 6:
			length = uint32(hdr.ReadUint16())
		case 8, 10, 12, 13:
			_ = hdr.ReadUint16() // reserved
			length = hdr.ReadUint32()
		case 14:
			length = hdr.ReadUint32()
		default:
			return nil, fmt.Errorf("cmap: bad format %d for subtable %d", format, j)
		}
		if length < 8 || uint32(len(b))-offset < length {
			return nil, fmt.Errorf("cmap: bad subtable %d", j)
		}
		rs := parse.NewBinaryReader(b[offset : offset+length])
		_ = rs.ReadBytes(hdr.Pos()) // format and length

		var subtable cmapSubtable
		var err error
		switch format {
		case 0:
			subtable, err = parseCmapFormat0(rs, numGlyphs)
		case 4:
			subtable, err = parseCmapFormat4(rs, numGlyphs)
		case 6:
			subtable, err = parseCmapFormat6(rs, numGlyphs)
		case 12:
			subtable, err = parseCmapFormat12(rs, numGlyphs)
		default:
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("cmap: subtable %d: %w", j, err)
		}
		cmap.subtables = append(cmap.subtables, subtable)
	}
	return cmap, nil
}

func parseCmapFormat0(rs *parse.BinaryReader, numGlyphs uint16) (cmapSubtable, error) {
	if rs.Len() < 258 {
		return nil, ErrInvalidFontData
	}
	_ = rs.ReadUint16() // language

	subtable := &cmapFormat0{}
	copy(subtable.GlyphIdArray[:], rs.ReadBytes(256))
	for _, glyphID := range subtable.GlyphIdArray {
		if numGlyphs <= uint16(glyphID) {
			return nil, fmt.Errorf("bad glyphID")
		}
	}
	return subtable, nil
}

func parseCmapFormat4(rs *parse.BinaryReader, numGlyphs uint16) (cmapSubtable, error) {
	if rs.Len() < 10 {
		return nil, ErrInvalidFontData
	}
	_ = rs.ReadUint16() // language

	segCount := rs.ReadUint16()
	if segCount%2 != 0 || segCount == 0 {
		return nil, fmt.Errorf("bad segCount")
	}
	segCount /= 2
	if MaxCmapSegments < int(segCount) {
		return nil, fmt.Errorf("too many segments")
	}
	_ = rs.ReadUint16() // searchRange
	_ = rs.ReadUint16() // entrySelector
	_ = rs.ReadUint16() // rangeShift
	if rs.Len() < 2+8*uint32(segCount) {
		return nil, ErrInvalidFontData
	}

	subtable := &cmapFormat4{
		EndCode:       make([]uint16, segCount),
		StartCode:     make([]uint16, segCount),
		IdDelta:       make([]int16, segCount),
		IdRangeOffset: make([]uint16, segCount),
	}
	for i := range subtable.EndCode {
		subtable.EndCode[i] = rs.ReadUint16()
		if 0 < i && subtable.EndCode[i] <= subtable.EndCode[i-1] {
			return nil, fmt.Errorf("bad endCode")
		}
	}
	_ = rs.ReadUint16() // reservedPad
	for i := range subtable.StartCode {
		subtable.StartCode[i] = rs.ReadUint16()
		if subtable.EndCode[i] < subtable.StartCode[i] || 0 < i && subtable.StartCode[i] <= subtable.EndCode[i-1] {
			return nil, fmt.Errorf("bad startCode")
		}
	}
	if subtable.EndCode[segCount-1] != 0xFFFF {
		return nil, fmt.Errorf("bad last endCode")
	}
	for i := range subtable.IdDelta {
		subtable.IdDelta[i] = rs.ReadInt16()
	}

	glyphIdArrayLength := (rs.Len() - 2*uint32(segCount)) / 2
	for i := range subtable.IdRangeOffset {
		idRangeOffset := rs.ReadUint16()
		if idRangeOffset%2 != 0 {
			return nil, fmt.Errorf("bad idRangeOffset")
		} else if idRangeOffset != 0 {
			first := int(idRangeOffset/2) - (int(segCount) - i)
			last := first + int(subtable.EndCode[i]-subtable.StartCode[i])
			if first < 0 || glyphIdArrayLength <= uint32(last) {
				return nil, fmt.Errorf("bad idRangeOffset")
			}
		}
		subtable.IdRangeOffset[i] = idRangeOffset
	}

	subtable.GlyphIdArray = make([]uint16, glyphIdArrayLength)
	for i := range subtable.GlyphIdArray {
		subtable.GlyphIdArray[i] = rs.ReadUint16()
	}
	return subtable, nil
}

func parseCmapFormat6(rs *parse.BinaryReader, numGlyphs uint16) (cmapSubtable, error) {
	if rs.Len() < 6 {
		return nil, ErrInvalidFontData
	}
	_ = rs.ReadUint16() // language

	subtable := &cmapFormat6{}
	subtable.FirstCode = rs.ReadUint16()
	entryCount := rs.ReadUint16()
	if rs.Len() < 2*uint32(entryCount) {
		return nil, ErrInvalidFontData
	}
	subtable.GlyphIdArray = make([]uint16, entryCount)
	for i := range subtable.GlyphIdArray {
		if subtable.GlyphIdArray[i] = rs.ReadUint16(); numGlyphs <= subtable.GlyphIdArray[i] {
			return nil, fmt.Errorf("bad glyphID")
		}
	}
	return subtable, nil
}

func parseCmapFormat12(rs *parse.BinaryReader, numGlyphs uint16) (cmapSubtable, error) {
	if rs.Len() < 8 {
		return nil, ErrInvalidFontData
	}
	_ = rs.ReadUint32() // language
	numGroups := rs.ReadUint32()
	if uint32(MaxCmapSegments) < numGroups {
		return nil, fmt.Errorf("too many segments")
	} else if rs.Len() < 12*numGroups {
		return nil, ErrInvalidFontData
	}

	subtable := &cmapFormat12{
		StartCharCode: make([]uint32, numGroups),
		EndCharCode:   make([]uint32, numGroups),
		StartGlyphID:  make([]uint32, numGroups),
	}
	for i := 0; i < int(numGroups); i++ {
		startCharCode := rs.ReadUint32()
		endCharCode := rs.ReadUint32()
		startGlyphID := rs.ReadUint32()
		if endCharCode < startCharCode || 0 < i && startCharCode <= subtable.EndCharCode[i-1] {
			return nil, fmt.Errorf("bad character code range")
		} else if uint32(numGlyphs) <= endCharCode-startCharCode || uint32(numGlyphs)-(endCharCode-startCharCode) <= startGlyphID {
			return nil, fmt.Errorf("bad glyphID")
		}
		subtable.StartCharCode[i] = startCharCode
		subtable.EndCharCode[i] = endCharCode
		subtable.StartGlyphID[i] = startGlyphID
	}
	return subtable, nil
}

// WriteCmap encodes a cmap table with a single format 12 subtable, referenced by the Unicode full repertoire encodings.
func WriteCmap(runeMap map[rune]uint16) []byte {
	rs := make([]rune, 0, len(runeMap))
	for r := range runeMap {
		rs = append(rs, r)
	}
	sort.Slice(rs, func(i, j int) bool { return rs[i] < rs[j] })

	w := parse.NewBinaryWriter([]byte{})
	w.WriteUint16(0)  // version
	w.WriteUint16(2)  // numTables
	w.WriteUint16(0)  // platformID
	w.WriteUint16(4)  // encodingID
	w.WriteUint32(20) // subtableOffset
	w.WriteUint16(3)  // platformID
	w.WriteUint16(10) // encodingID
	w.WriteUint32(20) // subtableOffset

	start := w.Len()
	w.WriteUint16(12) // format
	w.WriteUint16(0)  // reserved
	w.WriteUint32(0)  // length (set later)
	w.WriteUint32(0)  // language
	w.WriteUint32(0)  // numGroups (set later)

	numGroups := uint32(0)
	for i := 0; i < len(rs); {
		startCharCode, startGlyphID := uint32(rs[i]), uint32(runeMap[rs[i]])
		n := uint32(1)
		for i+int(n) < len(rs) && uint32(rs[i+int(n)]) == startCharCode+n && uint32(runeMap[rs[i+int(n)]]) == startGlyphID+n {
			n++
		}
		w.WriteUint32(startCharCode)
		w.WriteUint32(startCharCode + n - 1)
		w.WriteUint32(startGlyphID)
		numGroups++
		i += int(n)
	}
	binary.BigEndian.PutUint32(w.Bytes()[start+4:], w.Len()-start) // set length
	binary.BigEndian.PutUint32(w.Bytes()[start+12:], numGroups)    // set numGroups
	return w.Bytes()
}
