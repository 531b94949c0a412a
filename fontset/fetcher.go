package fontset

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/tdewolff/incrfont"
)

// GlyphRequest is the body of a glyph request.
type GlyphRequest struct {
	Font       string `json:"font"`
	Codepoints []rune `json:"codepoints"`
}

// HTTPFetcher fetches base snapshots with GET {URL}/base?font=ID and glyph bundles with POST {URL}/glyphs. Brotli compressed responses are decoded.
type HTTPFetcher struct {
	URL    string
	Client *http.Client // nil is http.DefaultClient
}

func (fetcher HTTPFetcher) client() *http.Client {
	if fetcher.Client == nil {
		return http.DefaultClient
	}
	return fetcher.Client
}

// FetchBase fetches the base snapshot of a font.
func (fetcher HTTPFetcher) FetchBase(ctx context.Context, id string) (incrfont.FileInfo, []byte, error) {
	u := strings.TrimSuffix(fetcher.URL, "/") + "/base?font=" + url.QueryEscape(id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return incrfont.FileInfo{}, nil, err
	}
	b, err := fetcher.do(req)
	if err != nil {
		return incrfont.FileInfo{}, nil, err
	}
	info, err := incrfont.ParseFileInfo(b)
	if err != nil {
		return incrfont.FileInfo{}, nil, err
	}
	return info, b, nil
}

// FetchGlyphs fetches the glyph bundle of the codepoints of a font.
func (fetcher HTTPFetcher) FetchGlyphs(ctx context.Context, id string, codepoints []rune) ([]byte, error) {
	body, err := json.Marshal(GlyphRequest{id, codepoints})
	if err != nil {
		return nil, err
	}
	u := strings.TrimSuffix(fetcher.URL, "/") + "/glyphs"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return fetcher.do(req)
}

func (fetcher HTTPFetcher) do(req *http.Request) ([]byte, error) {
	req.Header.Set("Accept-Encoding", "br")
	resp, err := fetcher.client().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%s %s: %s: %s", req.Method, req.URL.Path, resp.Status, strings.TrimSpace(string(msg)))
	}

	var r io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "br" {
		r = brotli.NewReader(r)
	}
	b, err := io.ReadAll(io.LimitReader(r, int64(incrfont.MaxMemory)+1))
	if err != nil {
		return nil, err
	} else if int64(incrfont.MaxMemory) < int64(len(b)) {
		return nil, incrfont.ErrExceedsMemory
	}
	return b, nil
}
