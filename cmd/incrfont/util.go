package main

import (
	"fmt"
	"io"
	"math"
	"os"
	"unicode"

	"github.com/tdewolff/incrfont"
	"github.com/tdewolff/prompt"
)

func printableRune(r rune) string {
	if unicode.IsGraphic(r) {
		return fmt.Sprintf("%c", r)
	} else if r < 128 {
		return fmt.Sprintf("0x%02X", r)
	}
	return fmt.Sprintf("%U", r)
}

func formatBytes(size uint64) string {
	if size < 10 {
		return fmt.Sprintf("%d B", size)
	}

	units := []string{"B", "kB", "MB", "GB", "TB", "PB", "EB"}
	scale := int(math.Floor((math.Log10(float64(size)) + math.Log10(2.0)) / 3.0))
	value := float64(size) / math.Pow10(scale*3.0)
	format := "%.0f %s"
	if value < 10.0 {
		format = "%.1f %s"
	}
	return fmt.Sprintf(format, value, units[scale])
}

func readFile(filename string) ([]byte, error) {
	if filename == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(filename)
}

// readFont reads an OpenType or WOFF2 font file.
func readFont(filename string) ([]byte, error) {
	b, err := readFile(filename)
	if err != nil {
		return nil, err
	}
	return incrfont.ToSFNT(b)
}

func writeFile(filename string, force bool, b []byte) error {
	var err error
	var w io.WriteCloser
	if filename == "-" {
		w = os.Stdout
	} else {
		if _, err := os.Stat(filename); err == nil {
			if !force && !prompt.YesNo(fmt.Sprintf("%s already exists, overwrite?", filename), false) {
				return fmt.Errorf("file already exists")
			}
		}
		if w, err = os.Create(filename); err != nil {
			return err
		}
	}

	if _, err := w.Write(b); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

// parseChars parses literal characters and ranges such as a-z.
func parseChars(chars []string) []rune {
	rs := []rune{}
	for _, s := range chars {
		runes := []rune(s)
		for i := 0; i < len(runes); i++ {
			if i+2 < len(runes) && runes[i+1] == '-' && runes[i] <= runes[i+2] {
				for r := runes[i]; r <= runes[i+2]; r++ {
					rs = append(rs, r)
				}
				i += 2
			} else {
				rs = append(rs, runes[i])
			}
		}
	}
	return rs
}
