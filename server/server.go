// Package server implements the glyph service that serves base snapshots and glyph bundles of CFF-flavored OpenType fonts.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/sirupsen/logrus"
	"github.com/tdewolff/incrfont"
	"github.com/tdewolff/incrfont/fontset"
)

// MaxRequestSize is the maximum size of a glyph request body.
const MaxRequestSize = 1 << 20

type font struct {
	data []byte
	base []byte
}

// Handler serves GET /base?font=ID with the base snapshot and POST /glyphs with the glyph bundle of a fontset.GlyphRequest.
type Handler struct {
	log logrus.FieldLogger
	mux *http.ServeMux

	mu    sync.RWMutex
	fonts map[string]*font
}

// NewHandler returns a handler without fonts. A nil log uses the logrus standard logger.
func NewHandler(log logrus.FieldLogger) *Handler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	h := &Handler{
		log:   log,
		mux:   http.NewServeMux(),
		fonts: map[string]*font{},
	}
	h.mux.HandleFunc("GET /base", h.serveBase)
	h.mux.HandleFunc("POST /glyphs", h.serveGlyphs)
	return h
}

// Add serves a font under the given identity, usually fontset.FontID(family, weight). WOFF2 fonts are decoded first.
func (h *Handler) Add(id string, data []byte) error {
	data, err := incrfont.ToSFNT(data)
	if err != nil {
		return fmt.Errorf("%s: %w", id, err)
	}
	base, err := incrfont.MakeBase(data)
	if err != nil {
		return fmt.Errorf("%s: %w", id, err)
	}

	h.mu.Lock()
	h.fonts[id] = &font{data, base}
	h.mu.Unlock()
	h.log.WithField("font", id).Infof("serving font of %d bytes, base of %d bytes", len(data), len(base))
	return nil
}

// Fonts returns the identities of the served fonts.
func (h *Handler) Fonts() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := make([]string, 0, len(h.fonts))
	for id := range h.fonts {
		ids = append(ids, id)
	}
	return ids
}

func (h *Handler) font(id string) (*font, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	f, ok := h.fonts[id]
	return f, ok
}

type statusWriter struct {
	http.ResponseWriter
	status int
	n      int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.n += n
	return n, err
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	t := time.Now()
	sw := &statusWriter{ResponseWriter: w}
	h.mux.ServeHTTP(sw, r)
	h.log.WithFields(logrus.Fields{
		"method":   r.Method,
		"path":     r.URL.Path,
		"status":   sw.status,
		"bytes":    sw.n,
		"duration": time.Since(t),
	}).Debug("request")
}

func (h *Handler) serveBase(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("font")
	f, ok := h.font(id)
	if !ok {
		http.Error(w, fmt.Sprintf("unknown font %q", id), http.StatusNotFound)
		return
	}
	h.write(w, r, "font/otf", f.base)
}

func (h *Handler) serveGlyphs(w http.ResponseWriter, r *http.Request) {
	req := fontset.GlyphRequest{}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxRequestSize)).Decode(&req); err != nil {
		http.Error(w, "bad glyph request: "+err.Error(), http.StatusBadRequest)
		return
	}
	f, ok := h.font(req.Font)
	if !ok {
		http.Error(w, fmt.Sprintf("unknown font %q", req.Font), http.StatusNotFound)
		return
	}

	bundle, err := incrfont.MakeGlyphBundle(f.data, req.Codepoints)
	if err != nil {
		h.log.WithField("font", req.Font).WithError(err).Error("could not make glyph bundle")
		status := http.StatusInternalServerError
		if errors.Is(err, incrfont.ErrExceedsMemory) {
			status = http.StatusRequestEntityTooLarge
		}
		http.Error(w, err.Error(), status)
		return
	}
	h.write(w, r, "application/octet-stream", bundle)
}

// write writes the response, compressed with brotli if the client accepts it.
func (h *Handler) write(w http.ResponseWriter, r *http.Request, contentType string, b []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Add("Vary", "Accept-Encoding")
	if !acceptsBrotli(r) {
		if _, err := w.Write(b); err != nil {
			h.log.WithError(err).Warn("could not write response")
		}
		return
	}

	w.Header().Set("Content-Encoding", "br")
	bw := brotli.NewWriterLevel(w, brotli.DefaultCompression)
	if _, err := bw.Write(b); err != nil {
		h.log.WithError(err).Warn("could not write response")
	}
	if err := bw.Close(); err != nil {
		h.log.WithError(err).Warn("could not write response")
	}
}

func acceptsBrotli(r *http.Request) bool {
	for _, enc := range strings.Split(r.Header.Get("Accept-Encoding"), ",") {
		if name, _, _ := strings.Cut(strings.TrimSpace(enc), ";"); name == "br" {
			return true
		}
	}
	return false
}
