package incrfont

import (
	"errors"
	"fmt"
)

// MaxMemory is the maximum memory that can be allocated by a font or glyph bundle.
var MaxMemory uint32 = 30 * 1024 * 1024

// ErrExceedsMemory is returned if the font is too big.
var ErrExceedsMemory = fmt.Errorf("memory limit exceded")

// ErrInvalidFontData is returned if the font is malformed.
var ErrInvalidFontData = fmt.Errorf("invalid font data")

// ErrOutOfRange is returned when reading or seeking outside of a buffer.
var ErrOutOfRange = errors.New("out of range")

// FormatError indicates a malformed font structure. It is fatal for the buffer that was decoded and should not be retried.
type FormatError struct {
	Reason string
	Err    error
}

func formatError(reason string, args ...any) error {
	return &FormatError{Reason: fmt.Sprintf(reason, args...)}
}

// wraps cursor errors, which always mean the structure is truncated
func truncated(err error) error {
	if err == nil {
		return nil
	}
	var ferr *FormatError
	if errors.As(err, &ferr) {
		return err
	}
	return &FormatError{Reason: "truncated data", Err: err}
}

func (err *FormatError) Error() string {
	if err.Err != nil {
		return err.Reason + ": " + err.Err.Error()
	}
	return err.Reason
}

func (err *FormatError) Unwrap() error {
	return err.Err
}

// Is makes FormatError match ErrInvalidFontData.
func (err *FormatError) Is(target error) bool {
	return target == ErrInvalidFontData
}

// NotSupportedError indicates that the data seems valid but uses a feature which is not supported.
type NotSupportedError struct {
	Feature string
}

func (err *NotSupportedError) Error() string {
	return err.Feature + " not supported"
}

// putOffset writes v as a big-endian integer of offSize bytes.
func putOffset(b []byte, offSize int, v uint32) {
	for i := 0; i < offSize; i++ {
		b[i] = byte(v >> (8 * (offSize - i - 1)))
	}
}

// getOffset reads a big-endian integer of offSize bytes.
func getOffset(b []byte, offSize int) uint32 {
	var v uint32
	for i := 0; i < offSize; i++ {
		v = v<<8 | uint32(b[i])
	}
	return v
}
