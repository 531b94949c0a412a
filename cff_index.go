package incrfont

import (
	"fmt"
	"math"

	"github.com/tdewolff/parse/v2"
)

// CFFIndex is a decoded CFF INDEX structure. It references the buffer it was decoded from and does not copy the element data.
type CFFIndex struct {
	Count   int
	OffSize int      // only meaningful when Count > 0
	Offsets []uint32 // Count+1 one-based offsets relative to the data region

	buf       []byte
	start     int
	dataStart int
}

// ParseCFFIndex decodes the INDEX at the cursor's position. On success the cursor is positioned directly after the INDEX.
func ParseCFFIndex(c *Cursor) (*CFFIndex, error) {
	t := &CFFIndex{
		buf:   c.Bytes(),
		start: c.Pos(),
	}
	count, err := c.ReadUint16()
	if err != nil {
		return nil, truncated(err)
	} else if count == 0 {
		t.dataStart = c.Pos()
		return t, nil
	}

	offSize, err := c.ReadUint8()
	if err != nil {
		return nil, truncated(err)
	} else if offSize == 0 || 4 < offSize {
		return nil, formatError("bad offSize %d", offSize)
	} else if c.Len() < int(offSize)*(int(count)+1) {
		return nil, truncated(fmt.Errorf("%w: offset array", ErrOutOfRange))
	}

	offsets := make([]uint32, int(count)+1)
	for i := range offsets {
		if offsets[i], err = c.ReadOffset(int(offSize)); err != nil {
			return nil, truncated(err)
		} else if offsets[i] == 0 {
			return nil, formatError("bad offset %d", i)
		}
	}
	if offsets[0] != 1 {
		return nil, formatError("bad first offset %d", offsets[0])
	}

	dataStart := c.Pos()
	if MaxMemory < offsets[count]-1 {
		return nil, ErrExceedsMemory
	} else if err := c.Skip(int(offsets[count] - 1)); err != nil {
		return nil, truncated(err)
	}

	t.Count = int(count)
	t.OffSize = int(offSize)
	t.Offsets = offsets
	t.dataStart = dataStart
	return t, nil
}

// Len returns the total length in bytes of the encoded INDEX.
func (t *CFFIndex) Len() int {
	if t.Count == 0 {
		return 2
	}
	return 3 + (t.Count+1)*t.OffSize + int(t.Offsets[t.Count]-1)
}

// Start returns the position of the INDEX in its buffer.
func (t *CFFIndex) Start() int {
	return t.start
}

// End returns the position directly after the INDEX.
func (t *CFFIndex) End() int {
	return t.start + t.Len()
}

// DataStart returns the position of the data region in its buffer.
func (t *CFFIndex) DataStart() int {
	return t.dataStart
}

// DataLen returns the length of the data region.
func (t *CFFIndex) DataLen() int {
	if t.Count == 0 {
		return 0
	}
	return int(t.Offsets[t.Count] - 1)
}

// OffsetPos returns the buffer position of the i-th offset, with 0 <= i <= Count.
func (t *CFFIndex) OffsetPos(i int) int {
	return t.start + 3 + i*t.OffSize
}

// Element returns the buffer range [start,end) of element i. Elements whose offsets are out of order or point outside the data region are an error.
func (t *CFFIndex) Element(i int) (int, int, error) {
	if i < 0 || t.Count <= i {
		return 0, 0, fmt.Errorf("%w: element %d of %d", ErrOutOfRange, i, t.Count)
	}
	start, end := t.Offsets[i]-1, t.Offsets[i+1]-1
	if end < start || uint32(t.DataLen()) < end {
		return 0, 0, formatError("bad offsets for element %d", i)
	}
	return t.dataStart + int(start), t.dataStart + int(end), nil
}

// Get returns the data of element i, or nil if it does not exist or is malformed.
func (t *CFFIndex) Get(i int) []byte {
	start, end, err := t.Element(i)
	if err != nil {
		return nil
	}
	return t.buf[start:end:end]
}

// cffINDEXOffSize returns the smallest offSize for offsets up to n.
func cffINDEXOffSize(n int) int {
	if n <= math.MaxUint8 {
		return 1
	} else if n <= math.MaxUint16 {
		return 2
	} else if n <= 1<<24-1 {
		return 3
	}
	return 4
}

// WriteCFFIndex encodes items as a CFF INDEX using the smallest possible offSize.
func WriteCFFIndex(items [][]byte) ([]byte, error) {
	if math.MaxUint16 < len(items) {
		return nil, fmt.Errorf("too many items for CFF INDEX")
	} else if len(items) == 0 {
		return []byte{0, 0}, nil // zero count
	}

	n := 0
	for _, item := range items {
		n += len(item)
	}
	if math.MaxUint32-1 < uint64(n) {
		return nil, fmt.Errorf("too much data for CFF INDEX")
	}
	offSize := cffINDEXOffSize(n + 1)

	w := parse.NewBinaryWriter(make([]byte, 0, 3+(len(items)+1)*offSize+n))
	w.WriteUint16(uint16(len(items)))
	w.WriteUint8(uint8(offSize))
	var offset [4]byte
	pos := uint32(1)
	for i := 0; i <= len(items); i++ {
		putOffset(offset[:], offSize, pos)
		w.WriteBytes(offset[:offSize])
		if i < len(items) {
			pos += uint32(len(items[i]))
		}
	}
	for _, item := range items {
		w.WriteBytes(item)
	}
	return w.Bytes(), nil
}
