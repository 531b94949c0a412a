package incrfont

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/andybalholm/brotli"
	"github.com/tdewolff/parse/v2"
)

// Specification:
// https://www.w3.org/TR/WOFF2/

var woff2TableTags = []string{
	"cmap", "head", "hhea", "hmtx",
	"maxp", "name", "OS/2", "post",
	"cvt ", "fpgm", "glyf", "loca",
	"prep", "CFF ", "VORG", "EBDT",
	"EBLC", "gasp", "hdmx", "kern",
	"LTSH", "PCLT", "VDMX", "vhea",
	"vmtx", "BASE", "GDEF", "GPOS",
	"GSUB", "EBSC", "JSTF", "MATH",
	"CBDT", "CBLC", "COLR", "CPAL",
	"SVG ", "sbix", "acnt", "avar",
	"bdat", "bloc", "bsln", "cvar",
	"fdsc", "feat", "fmtx", "fvar",
	"gvar", "hsty", "just", "lcar",
	"mort", "morx", "opbd", "prop",
	"trak", "Zapf", "Silf", "Glat",
	"Gloc", "Feat", "Sill",
}

// ToSFNT returns the OpenType font of a font file, decoding WOFF2 if needed.
func ToSFNT(b []byte) ([]byte, error) {
	if len(b) < 4 {
		return nil, ErrInvalidFontData
	}
	switch string(b[:4]) {
	case "wOF2":
		return ParseWOFF2(b)
	case "wOFF":
		return nil, &NotSupportedError{"WOFF"}
	}
	return b, nil
}

// ParseWOFF2 decodes a WOFF2 font with CFF outlines into an OpenType font. Transformed glyf, loca and hmtx tables are only used by TrueType outlines and are not supported.
func ParseWOFF2(b []byte) ([]byte, error) {
	if len(b) < 48 {
		return nil, ErrInvalidFontData
	}

	r := parse.NewBinaryReader(b)
	signature := r.ReadString(4)
	if signature != "wOF2" {
		return nil, fmt.Errorf("WOFF2: bad signature")
	}
	flavor := r.ReadString(4)
	if flavor == "ttcf" {
		return nil, &NotSupportedError{"font collection"}
	} else if flavor != "OTTO" {
		return nil, &NotSupportedError{"TrueType outlines"}
	}
	length := r.ReadUint32()
	numTables := r.ReadUint16()
	reserved := r.ReadUint16()
	_ = r.ReadUint32() // totalSfntSize
	totalCompressedSize := r.ReadUint32()
	_ = r.ReadBytes(24) // version, metadata and private data
	if length != uint32(len(b)) {
		return nil, fmt.Errorf("WOFF2: length in header must match file size")
	} else if numTables == 0 {
		return nil, fmt.Errorf("WOFF2: numTables in header must not be zero")
	} else if reserved != 0 {
		return nil, fmt.Errorf("WOFF2: reserved in header must be zero")
	}

	tags := make([]string, 0, numTables)
	lengths := map[string]uint32{}
	var uncompressedSize uint32
	for i := 0; i < int(numTables); i++ {
		if r.Len() < 1 {
			return nil, ErrInvalidFontData
		}
		flags := r.ReadUint8()
		tagIndex := int(flags & 0x3F)
		transformVersion := int((flags & 0xC0) >> 6)

		var tag string
		if tagIndex == 63 {
			if r.Len() < 4 {
				return nil, ErrInvalidFontData
			}
			tag = r.ReadString(4)
		} else if tagIndex < len(woff2TableTags) {
			tag = woff2TableTags[tagIndex]
		} else {
			return nil, fmt.Errorf("WOFF2: bad table tag index %d", tagIndex)
		}

		origLength, err := readUintBase128(r)
		if err != nil {
			return nil, err
		}
		if tag == "glyf" || tag == "loca" {
			return nil, &NotSupportedError{"TrueType outlines"}
		} else if transformVersion != 0 {
			return nil, &NotSupportedError{fmt.Sprintf("transformed %s table", tag)}
		} else if _, ok := lengths[tag]; ok {
			return nil, fmt.Errorf("WOFF2: %s: table defined more than once", tag)
		} else if math.MaxUint32-uncompressedSize < origLength {
			return nil, ErrInvalidFontData
		}
		uncompressedSize += origLength
		tags = append(tags, tag)
		lengths[tag] = origLength
	}

	if r.Len() < totalCompressedSize {
		return nil, ErrInvalidFontData
	} else if MaxMemory < uncompressedSize {
		return nil, ErrExceedsMemory
	}
	compData := r.ReadBytes(totalCompressedSize)
	data := bytes.NewBuffer(make([]byte, 0, uncompressedSize))
	if _, err := io.Copy(data, io.LimitReader(brotli.NewReader(bytes.NewReader(compData)), int64(uncompressedSize)+1)); err != nil {
		return nil, fmt.Errorf("WOFF2: %w", err)
	} else if uint32(data.Len()) != uncompressedSize {
		return nil, fmt.Errorf("WOFF2: sum of table lengths must match decompressed font data size")
	}

	tables := make(map[string][]byte, len(tags))
	offset := uint32(0)
	for _, tag := range tags {
		n := lengths[tag]
		tables[tag] = data.Bytes()[offset : offset+n : offset+n]
		offset += n
	}
	if head, ok := tables["head"]; !ok || len(head) < 54 {
		return nil, fmt.Errorf("WOFF2: head: must be present")
	}
	delete(tables, "DSIG")
	return WriteSFNT(true, tables), nil
}

func readUintBase128(r *parse.BinaryReader) (uint32, error) {
	// see https://www.w3.org/TR/WOFF2/#DataTypes
	var accum uint32
	for i := 0; i < 5; i++ {
		if r.Len() < 1 {
			return 0, ErrInvalidFontData
		}
		dataByte := r.ReadUint8()
		if i == 0 && dataByte == 0x80 {
			return 0, fmt.Errorf("WOFF2: UIntBase128 must not start with leading zeros")
		} else if (accum & 0xFE000000) != 0 {
			return 0, fmt.Errorf("WOFF2: UIntBase128 overflow")
		}
		accum = (accum << 7) | uint32(dataByte&0x7F)
		if (dataByte & 0x80) == 0 {
			return accum, nil
		}
	}
	return 0, fmt.Errorf("WOFF2: UIntBase128 exceeds 5 bytes")
}

func writeUintBase128(w *parse.BinaryWriter, accum uint32) {
	size := 1
	for v := accum >> 7; v != 0; v >>= 7 {
		size++
	}
	for i := size - 1; 0 <= i; i-- {
		b := byte(accum>>(7*uint(i))) & 0x7F
		if i != 0 {
			b |= 0x80
		}
		w.WriteUint8(b)
	}
}

// WriteWOFF2 encodes a CFF-flavored OpenType font as WOFF2 without table transformations.
func WriteWOFF2(b []byte) ([]byte, error) {
	sfnt, err := ParseSFNT(b)
	if err != nil {
		return nil, err
	} else if !sfnt.IsCFF {
		return nil, &NotSupportedError{"TrueType outlines"}
	}

	tags := make([]string, 0, len(sfnt.Tables))
	for tag := range sfnt.Tables {
		if tag != "DSIG" {
			tags = append(tags, tag)
		}
	}
	sort.Strings(tags)

	tagIndex := make(map[string]int, len(woff2TableTags))
	for i, tag := range woff2TableTags {
		tagIndex[tag] = i
	}

	var sfntSize uint32 = 12 + 16*uint32(len(tags))
	directory := parse.NewBinaryWriter([]byte{})
	data := &bytes.Buffer{}
	for _, tag := range tags {
		table, _ := sfnt.Table(tag)
		if i, ok := tagIndex[tag]; ok {
			directory.WriteUint8(uint8(i)) // transformVersion 0
		} else {
			directory.WriteUint8(63)
			directory.WriteBytes([]byte(tag))
		}
		writeUintBase128(directory, uint32(len(table)))
		data.Write(table)
		sfntSize += (uint32(len(table)) + 3) &^ 3
	}

	compData := &bytes.Buffer{}
	bw := brotli.NewWriterLevel(compData, brotli.BestCompression)
	if _, err := bw.Write(data.Bytes()); err != nil {
		return nil, err
	} else if err := bw.Close(); err != nil {
		return nil, err
	}

	w := parse.NewBinaryWriter([]byte{})
	w.WriteBytes([]byte("wOF2"))
	w.WriteBytes([]byte(sfnt.Version))
	w.WriteUint32(0) // length
	w.WriteUint16(uint16(len(tags)))
	w.WriteUint16(0) // reserved
	w.WriteUint32(sfntSize)
	w.WriteUint32(uint32(compData.Len()))
	w.WriteUint16(1) // majorVersion
	w.WriteUint16(0) // minorVersion
	w.WriteBytes(make([]byte, 20))
	w.WriteBytes(directory.Bytes())
	w.WriteBytes(compData.Bytes())
	for w.Len()%4 != 0 {
		w.WriteUint8(0)
	}
	out := w.Bytes()
	putOffset(out[8:], 4, uint32(len(out)))
	return out, nil
}
