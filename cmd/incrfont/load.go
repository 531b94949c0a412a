package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tdewolff/incrfont/fontset"
	"github.com/tdewolff/incrfont/htmltext"
	"golang.org/x/image/font/sfnt"
)

type Load struct {
	Verbose bool   `short:"v" desc:"Log font operations."`
	URL     string `short:"u" desc:"URL of the glyph service." default:"http://localhost:8080"`
	Family  string `desc:"Font family of text without a font-family style."`
	Cache   string `short:"d" desc:"Directory that persists font snapshots between runs."`
	Output  string `short:"o" desc:"Directory to write the applied fonts to."`
	Timeout int    `short:"t" desc:"Timeout in seconds for loading the fonts." default:"30"`
	Input   string `index:"0" desc:"Input HTML file."`
}

// fileSink validates snapshots and writes them to a directory.
type fileSink struct {
	dir string

	mu      sync.Mutex
	visible map[string]bool
}

func (sink *fileSink) ApplySnapshot(ctx context.Context, id string, snapshot []byte, isTTF bool) error {
	f, err := sfnt.Parse(snapshot)
	if err != nil {
		return err
	}
	if f.NumGlyphs() == 0 {
		return fmt.Errorf("no glyphs")
	}
	if sink.dir == "" {
		return nil
	}

	ext := ".otf"
	if isTTF {
		ext = ".ttf"
	}
	if err := os.MkdirAll(sink.dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(sink.dir, url.PathEscape(id)+ext), snapshot, 0o644)
}

func (sink *fileSink) SetVisibility(id string, visible bool) {
	sink.mu.Lock()
	defer sink.mu.Unlock()
	sink.visible[id] = visible
}

func (cmd *Load) Run() error {
	if cmd.Family == "" {
		return fmt.Errorf("font family not set")
	}
	log := logrus.New()
	if cmd.Verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	r, err := os.Open(cmd.Input)
	if err != nil {
		return err
	}
	buf := &fontset.TextBuffer{}
	err = htmltext.Fill(buf, r, cmd.Family)
	r.Close()
	if err != nil {
		return err
	}

	weights := []string{}
	seen := map[string]bool{}
	buf.Walk(func(change fontset.TextChange) {
		weight := fontset.WeightNumber(change.Weight)
		if change.Family == cmd.Family && !seen[weight] {
			seen[weight] = true
			weights = append(weights, weight)
		}
	})
	if len(weights) == 0 {
		Warning.Printf("no text in font family %s\n", cmd.Family)
		return nil
	}

	opts := []fontset.Option{fontset.WithLogger(log)}
	if cmd.Cache != "" {
		opts = append(opts, fontset.WithStore(fontset.DirStore{Dir: cmd.Cache}))
	}
	sink := &fileSink{dir: cmd.Output, visible: map[string]bool{}}
	s := fontset.New(cmd.Family, weights, fontset.HTTPFetcher{URL: cmd.URL}, sink, opts...)
	defer s.Close()

	buf.Walk(func(change fontset.TextChange) {
		s.AddText(change)
	})
	buf.Subscribe(s)
	load := s.Load()
	buf.Loaded()

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cmd.Timeout)*time.Second)
	defer cancel()
	if err := load.Wait(ctx); err != nil {
		Warning.Println(err)
	}
	if err := s.Update().Wait(ctx); err != nil {
		Error.Println(err)
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	for _, font := range s.Fonts() {
		snapshot, _ := font.Snapshot()
		fmt.Printf("%s: %d chars loaded, %d chars missing, %s, persisted=%v visible=%v\n", font.ID, len(font.Satisfied()), len(font.Needed()), formatBytes(uint64(len(snapshot))), font.AlreadyPersisted(), sink.visible[font.ID])
	}
	return nil
}
