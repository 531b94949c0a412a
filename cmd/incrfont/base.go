package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/tdewolff/incrfont"
)

type Base struct {
	Quiet  bool   `short:"q" desc:"Suppress output except for errors."`
	Force  bool   `short:"f" desc:"Force overwriting existing files."`
	Output string `short:"o" desc:"Output base font file, written as WOFF2 if the extension is .woff2."`
	Input  string `index:"0" desc:"Input font file, OTF or WOFF2."`
}

func (cmd *Base) Run() error {
	if cmd.Output == "" {
		return fmt.Errorf("output file not set")
	}
	b, err := readFont(cmd.Input)
	if err != nil {
		return err
	}
	base, err := incrfont.MakeBase(b)
	if err != nil {
		return err
	}
	out := base
	if strings.ToLower(filepath.Ext(cmd.Output)) == ".woff2" {
		if out, err = incrfont.WriteWOFF2(base); err != nil {
			return err
		}
	}
	if err := writeFile(cmd.Output, cmd.Force, out); err != nil {
		return err
	}

	if !cmd.Quiet && cmd.Output != "-" {
		info, err := incrfont.ParseFileInfo(base)
		if err != nil {
			return err
		}
		fmt.Printf("Base font: %d glyphs, %s\n", info.NumGlyphs, formatBytes(uint64(len(out))))
	}
	return nil
}
