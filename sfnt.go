package incrfont

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"github.com/tdewolff/parse/v2"
)

// SFNTTable is the location of a table in the font data.
type SFNTTable struct {
	Offset uint32
	Length uint32
}

// SFNT is the table directory of an OpenType font (TTF or OTF). Table data is not copied.
type SFNT struct {
	Version           string
	IsCFF, IsTrueType bool // only one can be true
	Tables            map[string]SFNTTable

	data []byte
}

// ParseSFNT parses the table directory of an OpenType font.
func ParseSFNT(b []byte) (*SFNT, error) {
	if len(b) < 12 || uint(math.MaxUint32) < uint(len(b)) {
		return nil, ErrInvalidFontData
	}

	r := parse.NewBinaryReader(b)
	sfntVersion := r.ReadString(4)
	if sfntVersion == "ttcf" {
		return nil, &NotSupportedError{"font collection"}
	} else if sfntVersion != "OTTO" && sfntVersion != "true" && binary.BigEndian.Uint32([]byte(sfntVersion)) != 0x00010000 {
		return nil, fmt.Errorf("bad SFNT version")
	}
	numTables := r.ReadUint16()
	_ = r.ReadUint16()                  // searchRange
	_ = r.ReadUint16()                  // entrySelector
	_ = r.ReadUint16()                  // rangeShift
	if r.Len() < 16*uint32(numTables) { // can never exceed uint32 as numTables is uint16
		return nil, ErrInvalidFontData
	}

	tables := make(map[string]SFNTTable, numTables)
	for i := 0; i < int(numTables); i++ {
		tag := r.ReadString(4)
		_ = r.ReadUint32() // checksum
		offset := r.ReadUint32()
		length := r.ReadUint32()
		if uint32(len(b)) < offset || uint32(len(b))-offset < length {
			return nil, fmt.Errorf("%s: %w", tag, ErrInvalidFontData)
		}
		tables[tag] = SFNTTable{offset, length}
	}

	sfnt := &SFNT{
		Version:    sfntVersion,
		IsCFF:      sfntVersion == "OTTO",
		IsTrueType: sfntVersion == "true" || binary.BigEndian.Uint32([]byte(sfntVersion)) == 0x00010000,
		Tables:     tables,
		data:       b,
	}
	if _, ok := tables["maxp"]; !ok {
		return nil, fmt.Errorf("maxp: missing table")
	} else if _, ok := tables["CFF "]; sfnt.IsCFF && !ok {
		if _, ok := tables["CFF2"]; ok {
			return nil, &NotSupportedError{"CFF2"}
		}
		return nil, fmt.Errorf("CFF: missing table")
	}
	return sfnt, nil
}

// Table returns the data of a table.
func (sfnt *SFNT) Table(tag string) ([]byte, bool) {
	table, ok := sfnt.Tables[tag]
	if !ok {
		return nil, false
	}
	end := table.Offset + table.Length
	return sfnt.data[table.Offset:end:end], true
}

// NumGlyphs returns the number of glyphs from the maxp table.
func (sfnt *SFNT) NumGlyphs() (uint16, error) {
	b, _ := sfnt.Table("maxp")
	if len(b) < 6 {
		return 0, fmt.Errorf("maxp: bad table")
	}
	return binary.BigEndian.Uint16(b[4:]), nil
}

// CFF parses the CFF table.
func (sfnt *SFNT) CFF() (*CFFTable, error) {
	b, ok := sfnt.Table("CFF ")
	if !ok {
		return nil, fmt.Errorf("CFF: missing table")
	}
	return ParseCFF(b)
}

// sideBearingPos returns the absolute position of the side bearing of glyphID in the hmtx or vmtx table. The number of long metrics is read from the hhea or vhea table respectively.
func (sfnt *SFNT) sideBearingPos(mtxTag, headerTag string, glyphID uint16) (int, bool) {
	mtx, ok1 := sfnt.Tables[mtxTag]
	header, ok2 := sfnt.Table(headerTag)
	if !ok1 || !ok2 || len(header) < 36 {
		return 0, false
	}
	numMetrics := binary.BigEndian.Uint16(header[34:])
	var pos uint32
	if glyphID < numMetrics {
		pos = 4*uint32(glyphID) + 2
	} else {
		pos = 4*uint32(numMetrics) + 2*uint32(glyphID-numMetrics)
	}
	if mtx.Length < pos+2 {
		return 0, false
	}
	return int(mtx.Offset + pos), true
}

// FileInfo describes a font snapshot. Chars lists the codepoints whose glyphs have been merged into the snapshot, it is not derived from the font data.
type FileInfo struct {
	IsTTF     bool   `json:"isTtf"`
	NumGlyphs int    `json:"numGlyphs"`
	Chars     []rune `json:"chars,omitempty"`
}

// ParseFileInfo derives the file info of a font snapshot.
func ParseFileInfo(b []byte) (FileInfo, error) {
	sfnt, err := ParseSFNT(b)
	if err != nil {
		return FileInfo{}, err
	}
	numGlyphs, err := sfnt.NumGlyphs()
	if err != nil {
		return FileInfo{}, err
	}
	return FileInfo{
		IsTTF:     sfnt.IsTrueType,
		NumGlyphs: int(numGlyphs),
	}, nil
}

// WriteSFNT encodes tables into an OpenType font, with tables in tag order and each table padded to four bytes. The checksum adjustment of the head table is updated if present.
func WriteSFNT(isCFF bool, tables map[string][]byte) []byte {
	tags := make([]string, 0, len(tables))
	for tag := range tables {
		tags = append(tags, tag)
	}
	sort.Strings(tags)

	w := parse.NewBinaryWriter([]byte{})
	if isCFF {
		w.WriteBytes([]byte("OTTO"))
	} else {
		w.WriteUint32(0x00010000)
	}
	numTables := uint16(len(tags))
	entrySelector := uint16(0)
	if 0 < numTables {
		entrySelector = uint16(math.Log2(float64(numTables)))
	}
	searchRange := uint16(1 << (entrySelector + 4))
	w.WriteUint16(numTables)
	w.WriteUint16(searchRange)
	w.WriteUint16(entrySelector)
	w.WriteUint16(numTables<<4 - searchRange)
	w.WriteBytes(make([]byte, 16*int(numTables))) // table records are written below

	checksumAdjustmentPos := -1
	offsets, lengths := make([]uint32, numTables), make([]uint32, numTables)
	for i, tag := range tags {
		offsets[i] = w.Len()
		lengths[i] = uint32(len(tables[tag]))
		if tag == "head" && 12 <= lengths[i] {
			checksumAdjustmentPos = int(offsets[i]) + 8
		}
		w.WriteBytes(tables[tag])
		w.WriteBytes(make([]byte, (4-lengths[i]&3)&3))
	}

	buf := w.Bytes()
	if 0 <= checksumAdjustmentPos {
		binary.BigEndian.PutUint32(buf[checksumAdjustmentPos:], 0)
	}
	for i, tag := range tags {
		pos := 12 + 16*i
		padding := (4 - lengths[i]&3) & 3
		copy(buf[pos:], tag)
		binary.BigEndian.PutUint32(buf[pos+4:], calcChecksum(buf[offsets[i]:offsets[i]+lengths[i]+padding]))
		binary.BigEndian.PutUint32(buf[pos+8:], offsets[i])
		binary.BigEndian.PutUint32(buf[pos+12:], lengths[i])
	}
	if 0 <= checksumAdjustmentPos {
		binary.BigEndian.PutUint32(buf[checksumAdjustmentPos:], 0xB1B0AFBA-calcChecksum(buf))
	}
	return buf
}

func calcChecksum(b []byte) uint32 {
	var sum uint32
	for i := 0; i+4 <= len(b); i += 4 {
		sum += binary.BigEndian.Uint32(b[i:])
	}
	return sum
}
