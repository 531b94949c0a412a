package incrfont

import (
	"fmt"
	"math"
	"sort"
	stdstrconv "strconv"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/strconv"
)

// DICT operators, escaped two-byte operators (12 xx) have the key 1200+xx.
const (
	OpVersion        = 0
	OpNotice         = 1
	OpFullName       = 2
	OpFamilyName     = 3
	OpWeight         = 4
	OpFontBBox       = 5
	OpCharset        = 15
	OpEncoding       = 16
	OpCharStrings    = 17
	OpPrivate        = 18
	OpSubrs          = 19
	OpDefaultWidthX  = 20
	OpNominalWidthX  = 21
	OpCopyright      = 1200
	OpCharstringType = 1206
	OpFontMatrix     = 1207
	OpROS            = 1230
	OpCIDCount       = 1234
	OpFDArray        = 1236
	OpFDSelect       = 1237
	OpFontName       = 1238
)

const cffDICTMaxOperands = 48

// Operand is a DICT operand, which is either an integer or a real number.
type Operand struct {
	I      int
	F      float64
	IsReal bool
}

// Int returns the operand as an integer, rounding reals.
func (o Operand) Int() int {
	if o.IsReal {
		return int(math.Round(o.F))
	}
	return o.I
}

// Float returns the operand as a real number.
func (o Operand) Float() float64 {
	if o.IsReal {
		return o.F
	}
	return float64(o.I)
}

func (o Operand) String() string {
	if o.IsReal {
		return stdstrconv.FormatFloat(o.F, 'g', -1, 64)
	}
	return stdstrconv.Itoa(o.I)
}

// CFFDict maps DICT operators to their operands.
type CFFDict map[int][]Operand

// ParseCFFDict decodes a DICT from its data. Operands that are not followed by an operator, unterminated real numbers, and reserved bytes are an error.
func ParseCFFDict(b []byte) (CFFDict, error) {
	dict := CFFDict{}
	c := NewCursor(b)
	var operands []Operand
	for 0 < c.Len() {
		b0, _ := c.ReadUint8()
		if b0 <= 21 {
			op := int(b0)
			if b0 == 12 {
				b1, err := c.ReadUint8()
				if err != nil {
					return nil, truncated(err)
				}
				op = 1200 + int(b1)
			}
			dict[op] = operands
			operands = nil
		} else if b0 <= 27 || b0 == 31 || b0 == 255 {
			return nil, formatError("reserved byte %d in DICT", b0)
		} else {
			if cffDICTMaxOperands <= len(operands) {
				return nil, formatError("too many operands for operator")
			}
			operand, err := parseDICTOperand(b0, c)
			if err != nil {
				return nil, err
			}
			operands = append(operands, operand)
		}
	}
	if len(operands) != 0 {
		return nil, formatError("operands without operator")
	}
	return dict, nil
}

func parseDICTOperand(b0 uint8, c *Cursor) (Operand, error) {
	switch {
	case b0 == 28:
		v, err := c.ReadInt16()
		return Operand{I: int(v)}, truncated(err)
	case b0 == 29:
		v, err := c.ReadInt32()
		return Operand{I: int(v)}, truncated(err)
	case b0 == 30:
		f, err := parseDICTReal(c)
		return Operand{F: f, IsReal: true}, err
	case b0 <= 246:
		return Operand{I: int(b0) - 139}, nil
	case b0 <= 250:
		b1, err := c.ReadUint8()
		return Operand{I: (int(b0)-247)*256 + int(b1) + 108}, truncated(err)
	default:
		b1, err := c.ReadUint8()
		return Operand{I: -(int(b0)-251)*256 - int(b1) - 108}, truncated(err)
	}
}

// parseDICTReal decodes the nibbles of a real number following the 30 byte.
func parseDICTReal(c *Cursor) (float64, error) {
	num := []byte{}
	for {
		b, err := c.ReadUint8()
		if err != nil {
			return 0, formatError("unterminated real number")
		}
		for i := 0; i < 2; i++ {
			switch b >> 4 {
			case 0x0A:
				num = append(num, '.')
			case 0x0B:
				num = append(num, 'E')
			case 0x0C:
				num = append(num, 'E', '-')
			case 0x0D:
				return 0, formatError("reserved nibble in real number")
			case 0x0E:
				num = append(num, '-')
			case 0x0F:
				f, n := strconv.ParseFloat(num)
				if n == 0 || n != len(num) {
					return 0, formatError("bad real number %q", num)
				}
				return f, nil
			default:
				num = append(num, '0'+b>>4)
			}
			b <<= 4
		}
	}
}

// Has returns true if the operator is present.
func (dict CFFDict) Has(op int) bool {
	_, ok := dict[op]
	return ok
}

// Int returns the i-th operand of op as an integer.
func (dict CFFDict) Int(op, i int) (int, bool) {
	operands, ok := dict[op]
	if !ok || i < 0 || len(operands) <= i {
		return 0, false
	}
	return operands[i].Int(), true
}

// Float returns the i-th operand of op as a real number.
func (dict CFFDict) Float(op, i int) (float64, bool) {
	operands, ok := dict[op]
	if !ok || i < 0 || len(operands) <= i {
		return 0, false
	}
	return operands[i].Float(), true
}

// Write encodes the DICT with operators in ascending order, escaped operators last. ROS must be the first operator of a CID-keyed Top DICT.
func (dict CFFDict) Write() ([]byte, error) {
	ops := make([]int, 0, len(dict))
	for op := range dict {
		ops = append(ops, op)
	}
	sort.Slice(ops, func(i, j int) bool {
		if ops[i] == OpROS || ops[j] == OpROS {
			return ops[i] == OpROS
		}
		return ops[i] < ops[j]
	})

	w := parse.NewBinaryWriter([]byte{})
	for _, op := range ops {
		if err := writeDICTEntry(w, op, dict[op]); err != nil {
			return nil, err
		}
	}
	return w.Bytes(), nil
}

func writeDICTEntry(w *parse.BinaryWriter, op int, operands []Operand) error {
	if cffDICTMaxOperands < len(operands) {
		return fmt.Errorf("too many operands")
	}
	for _, operand := range operands {
		if operand.IsReal {
			writeDICTReal(w, operand.F)
		} else {
			writeDICTInt(w, operand.I)
		}
	}

	if op == 12 || op < 0 || 21 < op && op < 1200 || 1200+255 < op {
		return fmt.Errorf("bad operator: %v", op)
	} else if 1200 <= op {
		w.WriteUint8(12)
		op -= 1200
	}
	w.WriteUint8(uint8(op))
	return nil
}

func cffDICTIntegerSize(i int) int {
	if -107 <= i && i <= 107 {
		return 1
	} else if -1131 <= i && i <= -108 || 108 <= i && i <= 1131 {
		return 2
	} else if -32768 <= i && i <= 32767 {
		return 3
	}
	return 5
}

func writeDICTInt(w *parse.BinaryWriter, i int) {
	switch cffDICTIntegerSize(i) {
	case 1:
		w.WriteUint8(uint8(i + 139))
	case 2:
		if 0 < i {
			i -= 108
			w.WriteUint8(uint8(i/256 + 247))
			w.WriteUint8(uint8(i % 256))
		} else {
			i = -i - 108
			w.WriteUint8(uint8(i/256 + 251))
			w.WriteUint8(uint8(i % 256))
		}
	case 3:
		w.WriteUint8(28)
		w.WriteUint16(uint16(int16(i)))
	default:
		w.WriteUint8(29)
		w.WriteUint32(uint32(int32(i)))
	}
}

func writeDICTReal(w *parse.BinaryWriter, f float64) {
	num := stdstrconv.AppendFloat([]byte{}, f, 'G', -1, 64)
	nibbles := make([]byte, 0, len(num)+1)
	for i := 0; i < len(num); i++ {
		switch c := num[i]; c {
		case '.':
			nibbles = append(nibbles, 0x0A)
		case 'E':
			if i+1 < len(num) && num[i+1] == '-' {
				nibbles = append(nibbles, 0x0C)
				i++
			} else {
				if i+1 < len(num) && num[i+1] == '+' {
					i++
				}
				nibbles = append(nibbles, 0x0B)
			}
		case '-':
			nibbles = append(nibbles, 0x0E)
		default:
			nibbles = append(nibbles, c-'0')
		}
	}
	nibbles = append(nibbles, 0x0F)
	if len(nibbles)%2 == 1 {
		nibbles = append(nibbles, 0x0F)
	}

	w.WriteUint8(30)
	for i := 0; i < len(nibbles); i += 2 {
		w.WriteUint8(nibbles[i]<<4 | nibbles[i+1])
	}
}
