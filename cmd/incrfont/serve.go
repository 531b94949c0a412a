package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tdewolff/incrfont/fontset"
	"github.com/tdewolff/incrfont/server"
)

type Serve struct {
	Verbose bool     `short:"v" desc:"Log every request."`
	Address string   `short:"a" desc:"Address to listen on." default:":8080"`
	Family  string   `desc:"Font family, defaults to the file name of the first font."`
	Inputs  []string `index:"*" desc:"Input font files, optionally prefixed by their weight as WEIGHT=FILE, eg. bold=NotoSans-Bold.otf."`
}

func (cmd *Serve) Run() error {
	if len(cmd.Inputs) == 0 {
		return fmt.Errorf("no input fonts")
	}
	log := logrus.New()
	if cmd.Verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	h := server.NewHandler(log)
	for _, input := range cmd.Inputs {
		weight, filename := fontset.DefaultWeight, input
		if prefix, rest, ok := strings.Cut(input, "="); ok {
			weight, filename = prefix, rest
		}
		if cmd.Family == "" {
			cmd.Family = strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
		}

		b, err := readFont(filename)
		if err != nil {
			return err
		}
		if err := h.Add(fontset.FontID(cmd.Family, fontset.WeightNumber(weight)), b); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	srv := &http.Server{
		Addr:              cmd.Address,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			Warning.Println(err)
		}
	}()

	log.Infof("serving %s on %s", strings.Join(h.Fonts(), ", "), cmd.Address)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
