package server

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/sirupsen/logrus"
	logrustest "github.com/sirupsen/logrus/hooks/test"
	"github.com/tdewolff/incrfont"
	"github.com/tdewolff/incrfont/fontset"
	"github.com/tdewolff/incrfont/internal/fonttest"
	"github.com/tdewolff/test"
)

func newTestServer(t *testing.T) (*httptest.Server, []byte) {
	t.Helper()
	font, err := fonttest.OTF()
	test.Error(t, err)

	log := logrus.New()
	log.SetLevel(logrus.DebugLevel)
	h := NewHandler(log)
	test.Error(t, h.Add(fontset.FontID("Test", "400"), font))
	test.T(t, h.Fonts(), []string{"Test;400"})

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv, font
}

func TestHandler(t *testing.T) {
	srv, font := newTestServer(t)

	resp, err := http.Get(srv.URL + "/base?font=Test%3B400")
	test.Error(t, err)
	base, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	test.Error(t, err)
	test.T(t, resp.StatusCode, http.StatusOK)
	expected, err := incrfont.MakeBase(font)
	test.Error(t, err)
	test.Bytes(t, base, expected)

	var tests = []struct {
		method string
		path   string
		body   string
		status int
	}{
		{"GET", "/base?font=Other%3B400", "", http.StatusNotFound},
		{"POST", "/glyphs", `{"font":"Other;400","codepoints":[65]}`, http.StatusNotFound},
		{"POST", "/glyphs", `{"font":`, http.StatusBadRequest},
		{"GET", "/glyphs", "", http.StatusMethodNotAllowed},
		{"GET", "/", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, srv.URL+tt.path, strings.NewReader(tt.body))
			test.Error(t, err)
			resp, err := http.DefaultClient.Do(req)
			test.Error(t, err)
			resp.Body.Close()
			test.T(t, resp.StatusCode, tt.status)
		})
	}
}

func TestHandlerBrotli(t *testing.T) {
	srv, font := newTestServer(t)

	req, err := http.NewRequest("POST", srv.URL+"/glyphs", strings.NewReader(`{"font":"Test;400","codepoints":[66,68]}`))
	test.Error(t, err)
	req.Header.Set("Accept-Encoding", "gzip, br;q=0.9")
	resp, err := http.DefaultClient.Do(req)
	test.Error(t, err)
	defer resp.Body.Close()
	test.T(t, resp.StatusCode, http.StatusOK)
	test.T(t, resp.Header.Get("Content-Encoding"), "br")

	b, err := io.ReadAll(brotli.NewReader(resp.Body))
	test.Error(t, err)
	expected, err := incrfont.MakeGlyphBundle(font, []rune{66, 68})
	test.Error(t, err)
	test.Bytes(t, b, expected)

	bundle, err := incrfont.ParseGlyphBundle(b)
	test.Error(t, err)
	test.T(t, bundle.GlyphCount(), 2)
}

type failingWriter struct {
	header http.Header
}

func (w *failingWriter) Header() http.Header {
	return w.header
}

func (w *failingWriter) Write(b []byte) (int, error) {
	return 0, io.ErrClosedPipe
}

func (w *failingWriter) WriteHeader(status int) {}

func TestHandlerWriteError(t *testing.T) {
	font, err := fonttest.OTF()
	test.Error(t, err)
	log, hook := logrustest.NewNullLogger()
	h := NewHandler(log)
	test.Error(t, h.Add("Test;400", font))

	for _, encoding := range []string{"", "br"} {
		t.Run("encoding="+encoding, func(t *testing.T) {
			hook.Reset()
			req := httptest.NewRequest("GET", "/base?font=Test%3B400", nil)
			req.Header.Set("Accept-Encoding", encoding)
			h.ServeHTTP(&failingWriter{header: http.Header{}}, req)

			entry := hook.LastEntry()
			test.That(t, entry != nil, "write error is logged")
			test.T(t, entry.Message, "could not write response")
			test.T(t, entry.Level, logrus.WarnLevel)
		})
	}
}

type memSink struct {
	mu       sync.Mutex
	snapshot []byte
	visible  bool
}

func (sink *memSink) ApplySnapshot(ctx context.Context, id string, snapshot []byte, isTTF bool) error {
	sink.mu.Lock()
	defer sink.mu.Unlock()
	sink.snapshot = snapshot
	return nil
}

func (sink *memSink) SetVisibility(id string, visible bool) {
	sink.mu.Lock()
	defer sink.mu.Unlock()
	sink.visible = visible
}

func TestFetcher(t *testing.T) {
	srv, font := newTestServer(t)
	fetcher := fontset.HTTPFetcher{URL: srv.URL + "/"}
	ctx := context.Background()

	info, base, err := fetcher.FetchBase(ctx, "Test;400")
	test.Error(t, err)
	test.T(t, info.NumGlyphs, len(fonttest.Glyphs))
	test.That(t, !info.IsTTF)
	test.T(t, len(base), len(font))

	_, _, err = fetcher.FetchBase(ctx, "Test;700")
	test.That(t, err != nil)
	test.That(t, strings.Contains(err.Error(), "404"), err)

	b, err := fetcher.FetchGlyphs(ctx, "Test;400", []rune("AE"))
	test.Error(t, err)
	bundle, err := incrfont.ParseGlyphBundle(b)
	test.Error(t, err)
	test.T(t, bundle.GlyphCount(), 2)
}

func TestEndToEnd(t *testing.T) {
	srv, font := newTestServer(t)
	sink := &memSink{}
	s := fontset.New("Test", nil, fontset.HTTPFetcher{URL: srv.URL}, sink,
		fontset.WithStore(fontset.DirStore{Dir: t.TempDir()}),
		fontset.WithDebounce(10*time.Millisecond),
	)
	defer s.Close()

	buf := &fontset.TextBuffer{}
	buf.Subscribe(s)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	test.Error(t, s.Load().Wait(ctx))

	buf.Append(fontset.TextChange{Text: "ABC"})
	buf.Append(fontset.TextChange{Text: "DE"})
	buf.Loaded()
	test.Error(t, s.Update().Wait(ctx))

	fv := s.Font("400")
	test.T(t, fv.Satisfied(), []rune("ABCDE"))
	snapshot, _ := fv.Snapshot()
	test.That(t, bytes.Equal(snapshot, font), "all glyphs are merged")

	sink.mu.Lock()
	defer sink.mu.Unlock()
	test.That(t, sink.visible)
	test.That(t, bytes.Equal(sink.snapshot, font))
}
