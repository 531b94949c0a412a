package incrfont

import (
	"fmt"

	"golang.org/x/text/encoding/charmap"
)

// CFFTable is a decoded CFF table. It is immutable after ParseCFF and references the buffer it was parsed from.
type CFFTable struct {
	data    []byte
	hdrSize int
	offSize int

	name        *CFFIndex
	topINDEX    *CFFIndex
	top         CFFDict
	charStrings *CFFIndex
	fontDICTs   *CFFIndex // nil for non-CID fonts
}

// ParseCFF decodes the header, the Name INDEX, the Top DICT INDEX and its Top DICT, the CharStrings INDEX and for CID-keyed fonts the Font DICT INDEX, in that order.
func ParseCFF(b []byte) (*CFFTable, error) {
	c := NewCursor(b)
	major, err := c.ReadUint8()
	if err != nil {
		return nil, fmt.Errorf("CFF: header: %w", truncated(err))
	} else if major != 1 {
		return nil, fmt.Errorf("CFF: %w", &NotSupportedError{fmt.Sprintf("major version %d", major)})
	}
	_ = c.Skip(1) // minor
	hdrSize, err := c.ReadUint8()
	if err != nil {
		return nil, fmt.Errorf("CFF: header: %w", truncated(err))
	} else if hdrSize < 4 {
		return nil, fmt.Errorf("CFF: header: %w", formatError("bad hdrSize %d", hdrSize))
	}
	offSize, err := c.ReadUint8()
	if err != nil {
		return nil, fmt.Errorf("CFF: header: %w", truncated(err))
	} else if offSize == 0 || 4 < offSize {
		return nil, fmt.Errorf("CFF: header: %w", formatError("bad offSize %d", offSize))
	} else if err := c.Seek(int(hdrSize)); err != nil {
		return nil, fmt.Errorf("CFF: header: %w", truncated(err))
	}

	nameINDEX, err := ParseCFFIndex(c)
	if err != nil {
		return nil, fmt.Errorf("CFF: Name INDEX: %w", err)
	} else if nameINDEX.Count == 0 {
		return nil, fmt.Errorf("CFF: Name INDEX: %w", formatError("bad count"))
	}

	topINDEX, err := ParseCFFIndex(c)
	if err != nil {
		return nil, fmt.Errorf("CFF: Top DICT INDEX: %w", err)
	} else if topINDEX.Count != 1 {
		return nil, fmt.Errorf("CFF: Top DICT INDEX: %w", formatError("bad count %d", topINDEX.Count))
	}

	topDICTData := topINDEX.Get(0)
	if topDICTData == nil {
		return nil, fmt.Errorf("CFF: Top DICT: %w", formatError("bad offsets"))
	}
	topDICT, err := ParseCFFDict(topDICTData)
	if err != nil {
		return nil, fmt.Errorf("CFF: Top DICT: %w", err)
	}

	charStringsOffset, ok := topDICT.Int(OpCharStrings, 0)
	if !ok {
		return nil, fmt.Errorf("CFF: Top DICT: %w", formatError("missing CharStrings operator"))
	} else if err := c.Seek(charStringsOffset); err != nil {
		return nil, fmt.Errorf("CFF: CharStrings INDEX: %w", truncated(err))
	}
	charStringsINDEX, err := ParseCFFIndex(c)
	if err != nil {
		return nil, fmt.Errorf("CFF: CharStrings INDEX: %w", err)
	}

	var fontDICTINDEX *CFFIndex
	if fdArrayOffset, ok := topDICT.Int(OpFDArray, 0); ok {
		if err := c.Seek(fdArrayOffset); err != nil {
			return nil, fmt.Errorf("CFF: Font DICT INDEX: %w", truncated(err))
		}
		if fontDICTINDEX, err = ParseCFFIndex(c); err != nil {
			return nil, fmt.Errorf("CFF: Font DICT INDEX: %w", err)
		}
	}

	return &CFFTable{
		data:        b,
		hdrSize:     int(hdrSize),
		offSize:     int(offSize),
		name:        nameINDEX,
		topINDEX:    topINDEX,
		top:         topDICT,
		charStrings: charStringsINDEX,
		fontDICTs:   fontDICTINDEX,
	}, nil
}

// HdrSize returns the header size.
func (cff *CFFTable) HdrSize() int {
	return cff.hdrSize
}

// OffSize returns the absolute offset size declared in the header.
func (cff *CFFTable) OffSize() int {
	return cff.offSize
}

// NameINDEX returns the Name INDEX.
func (cff *CFFTable) NameINDEX() *CFFIndex {
	return cff.name
}

// TopDICTINDEX returns the Top DICT INDEX.
func (cff *CFFTable) TopDICTINDEX() *CFFIndex {
	return cff.topINDEX
}

// TopDICT returns the Top DICT.
func (cff *CFFTable) TopDICT() CFFDict {
	return cff.top
}

// CharStrings returns the CharStrings INDEX.
func (cff *CFFTable) CharStrings() *CFFIndex {
	return cff.charStrings
}

// FontDICTINDEX returns the Font DICT INDEX, or nil for fonts that are not CID-keyed.
func (cff *CFFTable) FontDICTINDEX() *CFFIndex {
	return cff.fontDICTs
}

// IsCID returns true for CID-keyed fonts.
func (cff *CFFTable) IsCID() bool {
	return cff.top.Has(OpROS) || cff.fontDICTs != nil
}

// NumGlyphs returns the number of glyphs, which is the element count of the CharStrings INDEX.
func (cff *CFFTable) NumGlyphs() int {
	return cff.charStrings.Count
}

// FontName returns the first name of the Name INDEX.
func (cff *CFFTable) FontName() string {
	return decodeLatin1(cff.name.Get(0))
}

// GetData returns a view of length bytes at offset, relative to the start of the CFF table.
func (cff *CFFTable) GetData(offset, length int) ([]byte, error) {
	if offset < 0 || length < 0 || len(cff.data) < offset || len(cff.data)-offset < length {
		return nil, fmt.Errorf("%w: data [%d,%d) in table of %d bytes", ErrOutOfRange, offset, offset+length, len(cff.data))
	}
	return cff.data[offset : offset+length : offset+length], nil
}

// CharString returns the charstring of a glyph.
func (cff *CFFTable) CharString(glyphID int) ([]byte, error) {
	start, end, err := cff.charStrings.Element(glyphID)
	if err != nil {
		return nil, fmt.Errorf("CFF: CharStrings INDEX: %w", err)
	}
	return cff.GetData(start, end-start)
}

// StringINDEX decodes the String INDEX, which directly follows the Top DICT INDEX.
func (cff *CFFTable) StringINDEX() (*CFFIndex, error) {
	c := NewCursor(cff.data)
	if err := c.Seek(cff.topINDEX.End()); err != nil {
		return nil, fmt.Errorf("CFF: String INDEX: %w", truncated(err))
	}
	t, err := ParseCFFIndex(c)
	if err != nil {
		return nil, fmt.Errorf("CFF: String INDEX: %w", err)
	}
	return t, nil
}

// GlobalSubrINDEX decodes the Global Subr INDEX, which directly follows the String INDEX.
func (cff *CFFTable) GlobalSubrINDEX() (*CFFIndex, error) {
	strings, err := cff.StringINDEX()
	if err != nil {
		return nil, err
	}
	c := NewCursor(cff.data)
	if err := c.Seek(strings.End()); err != nil {
		return nil, fmt.Errorf("CFF: Global Subr INDEX: %w", truncated(err))
	}
	t, err := ParseCFFIndex(c)
	if err != nil {
		return nil, fmt.Errorf("CFF: Global Subr INDEX: %w", err)
	}
	return t, nil
}

// String returns the string for a string identifier (SID), which is either a standard string or an entry in the String INDEX.
func (cff *CFFTable) String(sid int) (string, error) {
	if 0 <= sid && sid < len(cffStandardStrings) {
		return cffStandardStrings[sid], nil
	}
	strings, err := cff.StringINDEX()
	if err != nil {
		return "", err
	}
	b := strings.Get(sid - len(cffStandardStrings))
	if b == nil {
		return "", fmt.Errorf("CFF: %w", formatError("bad SID %d", sid))
	}
	return decodeLatin1(b), nil
}

// FontDICT decodes the i-th Font DICT of a CID-keyed font.
func (cff *CFFTable) FontDICT(i int) (CFFDict, error) {
	if cff.fontDICTs == nil {
		return nil, fmt.Errorf("CFF: %w", &NotSupportedError{"Font DICT for non-CID font"})
	}
	b := cff.fontDICTs.Get(i)
	if b == nil {
		return nil, fmt.Errorf("CFF: Font DICT %d: %w", i, formatError("bad element"))
	}
	dict, err := ParseCFFDict(b)
	if err != nil {
		return nil, fmt.Errorf("CFF: Font DICT %d: %w", i, err)
	}
	return dict, nil
}

// HasPrivateDICT returns true if the Private DICT for Font DICT fd can be located. For non-CID fonts fd must be zero and the Private DICT is referenced from the Top DICT.
func (cff *CFFTable) HasPrivateDICT(fd int) bool {
	dict, err := cff.privateOwner(fd)
	if err != nil {
		return false
	}
	operands := dict[OpPrivate]
	return len(operands) == 2
}

func (cff *CFFTable) privateOwner(fd int) (CFFDict, error) {
	if cff.fontDICTs == nil {
		if fd != 0 {
			return nil, fmt.Errorf("CFF: %w", formatError("bad Font DICT %d", fd))
		}
		return cff.top, nil
	}
	return cff.FontDICT(fd)
}

// PrivateDICT decodes the Private DICT for Font DICT fd. Callers should check HasPrivateDICT first.
func (cff *CFFTable) PrivateDICT(fd int) (CFFDict, error) {
	owner, err := cff.privateOwner(fd)
	if err != nil {
		return nil, err
	}
	size, ok1 := owner.Int(OpPrivate, 0)
	offset, ok2 := owner.Int(OpPrivate, 1)
	if !ok1 || !ok2 {
		return nil, fmt.Errorf("CFF: %w", &NotSupportedError{"font without Private DICT"})
	}
	b, err := cff.GetData(offset, size)
	if err != nil {
		return nil, fmt.Errorf("CFF: Private DICT: %w", truncated(err))
	}
	dict, err := ParseCFFDict(b)
	if err != nil {
		return nil, fmt.Errorf("CFF: Private DICT: %w", err)
	}
	return dict, nil
}

// names in CFF are restricted to printable ASCII, but String INDEX entries may use Latin-1
func decodeLatin1(b []byte) string {
	s, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(s)
}
