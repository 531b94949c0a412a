package incrfont

import (
	"fmt"
	"math"

	"github.com/tdewolff/parse/v2"
)

// BundleSignature identifies a glyph bundle.
const BundleSignature = "BSAC"

// glyph bundle header: version (4), signature (4), count (4), flags (4), offsetToGlyphData (4)
const bundleHeaderSize = 20

// Glyph bundle flags.
const (
	HasHmtx uint32 = 1 << iota
	HasVmtx
	HasCFF
)

// GlyphRecord is a single glyph in a glyph bundle. Offset is the position of the glyph's data in the CharStrings data region (CFF) or the glyf table (TrueType).
type GlyphRecord struct {
	GlyphID uint16
	Lsb     int16 // if HasHmtx
	Tsb     int16 // if HasVmtx
	Offset  uint32
	Data    []byte
}

// GlyphBundle is a decoded glyph bundle response. It is immutable and references the buffer it was decoded from.
type GlyphBundle struct {
	Major, Minor      uint16
	Signature         string
	Count             uint32
	Flags             uint32
	OffsetToGlyphData uint32

	data []byte
}

// ParseGlyphBundle decodes the header of a glyph bundle. Glyph records are decoded by Glyphs.
func ParseGlyphBundle(b []byte) (*GlyphBundle, error) {
	if uint(math.MaxUint32) < uint(len(b)) {
		return nil, ErrExceedsMemory
	}
	c := NewCursor(b)
	if c.Len() < bundleHeaderSize {
		return nil, fmt.Errorf("glyph bundle: %w", formatError("header too short: %d bytes", len(b)))
	}
	bundle := &GlyphBundle{data: b}
	bundle.Major, _ = c.ReadUint16()
	bundle.Minor, _ = c.ReadUint16()
	signature, _ := c.ReadBytes(4)
	bundle.Signature = string(signature)
	bundle.Count, _ = c.ReadUint32()
	bundle.Flags, _ = c.ReadUint32()
	bundle.OffsetToGlyphData, _ = c.ReadUint32()

	if bundle.Signature != BundleSignature {
		return nil, fmt.Errorf("glyph bundle: %w", formatError("bad signature %q", bundle.Signature))
	} else if bundle.Major != 1 {
		return nil, fmt.Errorf("glyph bundle: %w", &NotSupportedError{fmt.Sprintf("version %d.%d", bundle.Major, bundle.Minor)})
	} else if bundle.OffsetToGlyphData < bundleHeaderSize || uint32(len(b)) < bundle.OffsetToGlyphData {
		return nil, fmt.Errorf("glyph bundle: %w", formatError("bad offsetToGlyphData %d", bundle.OffsetToGlyphData))
	}
	return bundle, nil
}

// Payload returns a view of the glyph data, starting at OffsetToGlyphData.
func (bundle *GlyphBundle) Payload() []byte {
	return bundle.data[bundle.OffsetToGlyphData:]
}

// DataLength returns the length of the payload.
func (bundle *GlyphBundle) DataLength() int {
	return len(bundle.data) - int(bundle.OffsetToGlyphData)
}

// GlyphCount returns the number of glyph records.
func (bundle *GlyphBundle) GlyphCount() int {
	return int(bundle.Count)
}

// IsCFF returns true if the glyph data are CFF charstrings.
func (bundle *GlyphBundle) IsCFF() bool {
	return bundle.Flags&HasCFF != 0
}

// Glyphs decodes the glyph records from the payload. Record data is not copied.
func (bundle *GlyphBundle) Glyphs() ([]GlyphRecord, error) {
	recordSize := 8
	if bundle.Flags&HasHmtx != 0 {
		recordSize += 2
	}
	if bundle.Flags&HasVmtx != 0 {
		recordSize += 2
	}

	c := NewCursor(bundle.Payload())
	if uint64(c.Len()) < uint64(bundle.Count)*uint64(recordSize) {
		return nil, fmt.Errorf("glyph bundle: %w", formatError("count %d exceeds payload", bundle.Count))
	}
	glyphs := make([]GlyphRecord, bundle.Count)
	for i := range glyphs {
		var err error
		glyph := &glyphs[i]
		if glyph.GlyphID, err = c.ReadUint16(); err != nil {
			return nil, fmt.Errorf("glyph bundle: glyph %d: %w", i, truncated(err))
		}
		if bundle.Flags&HasHmtx != 0 {
			if glyph.Lsb, err = c.ReadInt16(); err != nil {
				return nil, fmt.Errorf("glyph bundle: glyph %d: %w", i, truncated(err))
			}
		}
		if bundle.Flags&HasVmtx != 0 {
			if glyph.Tsb, err = c.ReadInt16(); err != nil {
				return nil, fmt.Errorf("glyph bundle: glyph %d: %w", i, truncated(err))
			}
		}
		if glyph.Offset, err = c.ReadUint32(); err != nil {
			return nil, fmt.Errorf("glyph bundle: glyph %d: %w", i, truncated(err))
		}
		length, err := c.ReadUint16()
		if err != nil {
			return nil, fmt.Errorf("glyph bundle: glyph %d: %w", i, truncated(err))
		}
		if glyph.Data, err = c.ReadBytes(int(length)); err != nil {
			return nil, fmt.Errorf("glyph bundle: glyph %d: %w", i, truncated(err))
		}
	}
	return glyphs, nil
}

// WriteGlyphBundle encodes glyph records as a glyph bundle with version 1.0.
func WriteGlyphBundle(flags uint32, glyphs []GlyphRecord) ([]byte, error) {
	if math.MaxUint32 < uint64(len(glyphs)) {
		return nil, fmt.Errorf("glyph bundle: too many glyphs")
	}

	w := parse.NewBinaryWriter([]byte{})
	w.WriteUint16(1)
	w.WriteUint16(0)
	w.WriteBytes([]byte(BundleSignature))
	w.WriteUint32(uint32(len(glyphs)))
	w.WriteUint32(flags)
	w.WriteUint32(bundleHeaderSize)
	for _, glyph := range glyphs {
		if math.MaxUint16 < len(glyph.Data) {
			return nil, fmt.Errorf("glyph bundle: glyph %d: data too long", glyph.GlyphID)
		}
		w.WriteUint16(glyph.GlyphID)
		if flags&HasHmtx != 0 {
			w.WriteInt16(glyph.Lsb)
		}
		if flags&HasVmtx != 0 {
			w.WriteInt16(glyph.Tsb)
		}
		w.WriteUint32(glyph.Offset)
		w.WriteUint16(uint16(len(glyph.Data)))
		w.WriteBytes(glyph.Data)
	}
	if MaxMemory < w.Len() {
		return nil, ErrExceedsMemory
	}
	return w.Bytes(), nil
}
