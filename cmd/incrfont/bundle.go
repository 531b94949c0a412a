package main

import (
	"fmt"

	"github.com/tdewolff/incrfont"
)

type Bundle struct {
	Force  bool     `short:"f" desc:"Force overwriting existing files."`
	Chars  []string `short:"c" name:"char" desc:"Create a bundle from the input font with the glyphs of these characters, eg. a-z."`
	Output string   `short:"o" desc:"Output bundle file, used with --char."`
	Input  string   `index:"0" desc:"Input glyph bundle, or font file when creating a bundle."`
}

func (cmd *Bundle) Run() error {
	b, err := readFile(cmd.Input)
	if err != nil {
		return err
	}
	if 0 < len(cmd.Chars) {
		if cmd.Output == "" {
			return fmt.Errorf("output file not set")
		}
		if b, err = incrfont.ToSFNT(b); err != nil {
			return err
		}
		if b, err = incrfont.MakeGlyphBundle(b, parseChars(cmd.Chars)); err != nil {
			return err
		}
		return writeFile(cmd.Output, cmd.Force, b)
	}

	bundle, err := incrfont.ParseGlyphBundle(b)
	if err != nil {
		return err
	}
	fmt.Printf("File: %s\n\n", cmd.Input)
	fmt.Printf("Version: %d.%d\n", bundle.Major, bundle.Minor)
	fmt.Printf("Signature: %s\n", bundle.Signature)
	fmt.Printf("Flags: hmtx=%v  vmtx=%v  CFF=%v\n", bundle.Flags&incrfont.HasHmtx != 0, bundle.Flags&incrfont.HasVmtx != 0, bundle.IsCFF())
	fmt.Printf("Data: offset=%d  length=%d\n", bundle.OffsetToGlyphData, bundle.DataLength())

	glyphs, err := bundle.Glyphs()
	if err != nil {
		return err
	}
	fmt.Printf("\nGlyphs (%d):\n", bundle.GlyphCount())
	for _, glyph := range glyphs {
		fmt.Printf("  glyph=%5d  lsb=%5d  tsb=%5d  offset=%8d  length=%5d\n", glyph.GlyphID, glyph.Lsb, glyph.Tsb, glyph.Offset, len(glyph.Data))
	}
	return nil
}
