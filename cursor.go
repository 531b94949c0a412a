package incrfont

import (
	"encoding/binary"
	"fmt"
)

// Cursor is a bounds-checked big-endian reader over a byte slice. It never copies or modifies the underlying buffer, and any read or seek outside the buffer fails with ErrOutOfRange instead of clamping.
type Cursor struct {
	buf []byte
	pos int
}

// NewCursor returns a cursor positioned at the start of b.
func NewCursor(b []byte) *Cursor {
	return &Cursor{buf: b}
}

// Pos returns the current position.
func (c *Cursor) Pos() int {
	return c.pos
}

// Len returns the number of bytes left to read.
func (c *Cursor) Len() int {
	return len(c.buf) - c.pos
}

// Size returns the length of the underlying buffer.
func (c *Cursor) Size() int {
	return len(c.buf)
}

// Bytes returns the underlying buffer.
func (c *Cursor) Bytes() []byte {
	return c.buf
}

// Seek sets the absolute position. Seeking to the end of the buffer is allowed.
func (c *Cursor) Seek(pos int) error {
	if pos < 0 || len(c.buf) < pos {
		return fmt.Errorf("%w: seek to %d in buffer of %d bytes", ErrOutOfRange, pos, len(c.buf))
	}
	c.pos = pos
	return nil
}

// Skip moves the position by n bytes, which may be negative.
func (c *Cursor) Skip(n int) error {
	return c.Seek(c.pos + n)
}

func (c *Cursor) next(n int) ([]byte, error) {
	if n < 0 || len(c.buf)-c.pos < n {
		return nil, fmt.Errorf("%w: read %d bytes at %d in buffer of %d bytes", ErrOutOfRange, n, c.pos, len(c.buf))
	}
	b := c.buf[c.pos : c.pos+n : c.pos+n]
	c.pos += n
	return b, nil
}

// ReadBytes returns a view of the next n bytes.
func (c *Cursor) ReadBytes(n int) ([]byte, error) {
	return c.next(n)
}

// ReadUint8 reads an 8-bit unsigned integer.
func (c *Cursor) ReadUint8() (uint8, error) {
	b, err := c.next(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadUint16 reads a 16-bit unsigned integer.
func (c *Cursor) ReadUint16() (uint16, error) {
	b, err := c.next(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

// ReadUint24 reads a 24-bit unsigned integer.
func (c *Cursor) ReadUint24() (uint32, error) {
	b, err := c.next(3)
	if err != nil {
		return 0, err
	}
	return uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2]), nil
}

// ReadUint32 reads a 32-bit unsigned integer.
func (c *Cursor) ReadUint32() (uint32, error) {
	b, err := c.next(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

// ReadInt16 reads a 16-bit signed integer.
func (c *Cursor) ReadInt16() (int16, error) {
	v, err := c.ReadUint16()
	return int16(v), err
}

// ReadInt32 reads a 32-bit signed integer.
func (c *Cursor) ReadInt32() (int32, error) {
	v, err := c.ReadUint32()
	return int32(v), err
}

// ReadOffset reads an unsigned integer of offSize bytes (1 to 4).
func (c *Cursor) ReadOffset(offSize int) (uint32, error) {
	switch offSize {
	case 1:
		v, err := c.ReadUint8()
		return uint32(v), err
	case 2:
		v, err := c.ReadUint16()
		return uint32(v), err
	case 3:
		return c.ReadUint24()
	case 4:
		return c.ReadUint32()
	}
	return 0, formatError("bad offSize %d", offSize)
}
