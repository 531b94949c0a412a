package main

import (
	"fmt"
	"math"
	"sort"

	"github.com/tdewolff/incrfont"
)

type Info struct {
	Chars []string `short:"c" name:"char" desc:"List of literal characters to look up, eg. a-z."`
	Input string   `index:"0" desc:"Input font file, OTF or WOFF2."`
}

func (cmd *Info) Run() error {
	b, err := readFont(cmd.Input)
	if err != nil {
		return err
	}
	sfnt, err := incrfont.ParseSFNT(b)
	if err != nil {
		return err
	}

	version := "TrueType"
	if sfnt.IsCFF {
		version = "CFF"
	}
	fmt.Printf("File: %s (%s)\n\n", cmd.Input, formatBytes(uint64(len(b))))
	fmt.Printf("sfntVersion: %q (%s)\n", sfnt.Version, version)
	fmt.Printf("\nTable directory:\n")

	tags := make([]string, 0, len(sfnt.Tables))
	for tag := range sfnt.Tables {
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool {
		return sfnt.Tables[tags[i]].Offset < sfnt.Tables[tags[j]].Offset
	})
	nLen := int(math.Log10(float64(len(b))) + 1)
	for i, tag := range tags {
		table := sfnt.Tables[tag]
		fmt.Printf("  %2d  %s  offset=%*d  length=%*d\n", i, tag, nLen, table.Offset, nLen, table.Length)
	}
	if !sfnt.IsCFF {
		return nil
	}

	cff, err := sfnt.CFF()
	if err != nil {
		return err
	}
	fmt.Printf("\nCFF:\n")
	fmt.Printf("  FontName: %s\n", cff.FontName())
	fmt.Printf("  hdrSize=%d  offSize=%d  CID=%v\n", cff.HdrSize(), cff.OffSize(), cff.IsCID())
	charStrings := cff.CharStrings()
	fmt.Printf("  CharStrings: count=%d  offSize=%d  offset=%d  length=%d\n", charStrings.Count, charStrings.OffSize, charStrings.Start(), charStrings.Len())
	if fds := cff.FontDICTINDEX(); fds != nil {
		fmt.Printf("  Font DICTs: count=%d\n", fds.Count)
	}
	fmt.Printf("  Private DICT: %v\n", cff.HasPrivateDICT(0))

	top := cff.TopDICT()
	ops := make([]int, 0, len(top))
	for op := range top {
		ops = append(ops, op)
	}
	sort.Ints(ops)
	fmt.Printf("\nTop DICT:\n")
	for _, op := range ops {
		fmt.Printf("  %4d  %v\n", op, top[op])
	}

	if 0 < len(cmd.Chars) {
		cmap, err := sfnt.Cmap()
		if err != nil {
			return err
		}
		fmt.Printf("\nGlyphs:\n")
		for _, r := range parseChars(cmd.Chars) {
			glyphID := cmap.Get(r)
			if glyphID == 0 {
				Warning.Printf("glyph not found for U+%04X\n", r)
				continue
			}
			start, end, err := charStrings.Element(int(glyphID))
			if err != nil {
				return err
			}
			fmt.Printf("  %s  glyph=%d  offset=%d  length=%d\n", printableRune(r), glyphID, start-charStrings.DataStart(), end-start)
		}
	}
	return nil
}
