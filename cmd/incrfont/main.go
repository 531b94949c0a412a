package main

import (
	"log"
	"os"

	"github.com/tdewolff/argp"
)

var (
	Error   *log.Logger
	Warning *log.Logger
)

func main() {
	Error = log.New(os.Stderr, "ERROR: ", 0)
	Warning = log.New(os.Stderr, "WARNING: ", 0)

	cmd := argp.New("Incremental CFF font delivery toolkit")
	cmd.AddCmd(&Info{}, "info", "Get font info")
	cmd.AddCmd(&Bundle{}, "bundle", "Decode or create glyph bundles")
	cmd.AddCmd(&Base{}, "base", "Create base font")
	cmd.AddCmd(&Serve{}, "serve", "Run glyph service")
	cmd.AddCmd(&Load{}, "load", "Load fonts for the text of an HTML file from a glyph service")
	cmd.Parse()
}
