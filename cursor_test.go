package incrfont

import (
	"errors"
	"testing"

	"github.com/tdewolff/test"
)

func TestCursor(t *testing.T) {
	c := NewCursor([]byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0A})

	u8, err := c.ReadUint8()
	test.Error(t, err)
	test.T(t, u8, uint8(0x01))

	u16, err := c.ReadUint16()
	test.Error(t, err)
	test.T(t, u16, uint16(0x0203))

	u24, err := c.ReadUint24()
	test.Error(t, err)
	test.T(t, u24, uint32(0x040506))

	u32, err := c.ReadUint32()
	test.Error(t, err)
	test.T(t, u32, uint32(0x0708090A))
	test.T(t, c.Pos(), 10)
	test.T(t, c.Len(), 0)

	test.Error(t, c.Seek(1))
	b, err := c.ReadBytes(2)
	test.Error(t, err)
	test.Bytes(t, b, []byte{0x02, 0x03})

	test.Error(t, c.Skip(-3))
	test.T(t, c.Pos(), 0)
}

func TestCursorSigned(t *testing.T) {
	c := NewCursor([]byte{0xFF, 0xFE, 0x80, 0x00, 0x00, 0x00})
	i16, err := c.ReadInt16()
	test.Error(t, err)
	test.T(t, i16, int16(-2))
	i32, err := c.ReadInt32()
	test.Error(t, err)
	test.T(t, i32, int32(-2147483648))
}

func TestCursorOutOfRange(t *testing.T) {
	c := NewCursor([]byte{0x01, 0x02, 0x03})

	test.Error(t, c.Skip(2))
	_, err := c.ReadUint16()
	test.That(t, errors.Is(err, ErrOutOfRange), "read past end")
	test.T(t, c.Pos(), 2) // position is unchanged

	_, err = c.ReadUint32()
	test.That(t, errors.Is(err, ErrOutOfRange), "read past end")

	test.That(t, errors.Is(c.Seek(-1), ErrOutOfRange), "seek before start")
	test.That(t, errors.Is(c.Seek(4), ErrOutOfRange), "seek past end")
	test.That(t, errors.Is(c.Skip(-3), ErrOutOfRange), "skip before start")
	test.T(t, c.Pos(), 2)

	test.Error(t, c.Seek(3)) // end of buffer
	_, err = c.ReadUint8()
	test.That(t, errors.Is(err, ErrOutOfRange), "read at end")
	_, err = c.ReadBytes(-1)
	test.That(t, errors.Is(err, ErrOutOfRange), "negative length")
}

func TestCursorReadOffset(t *testing.T) {
	var tests = []struct {
		offSize int
		b       []byte
		v       uint32
	}{
		{1, []byte{0xFE}, 0xFE},
		{2, []byte{0x01, 0x02}, 0x0102},
		{3, []byte{0x01, 0x02, 0x03}, 0x010203},
		{4, []byte{0x01, 0x02, 0x03, 0x04}, 0x01020304},
	}
	for _, tt := range tests {
		t.Run(string(rune('0'+tt.offSize)), func(t *testing.T) {
			v, err := NewCursor(tt.b).ReadOffset(tt.offSize)
			test.Error(t, err)
			test.T(t, v, tt.v)
		})
	}

	_, err := NewCursor([]byte{0, 0, 0, 0, 0}).ReadOffset(5)
	test.That(t, errors.Is(err, ErrInvalidFontData), "bad offSize")
}
