package fontset

import (
	"context"

	"github.com/tdewolff/incrfont"
)

// Store persists font snapshots between sessions.
type Store interface {
	// Get returns the persisted snapshot of a font, ok is false if there is none.
	Get(ctx context.Context, id string) (info incrfont.FileInfo, snapshot []byte, ok bool, err error)
	Put(ctx context.Context, id string, info incrfont.FileInfo, snapshot []byte) error
}

// Fetcher retrieves base fonts and glyph bundles from the glyph service.
type Fetcher interface {
	FetchBase(ctx context.Context, id string) (incrfont.FileInfo, []byte, error)
	FetchGlyphs(ctx context.Context, id string, codepoints []rune) ([]byte, error)
}

// Sink makes snapshots available as renderable fonts.
type Sink interface {
	ApplySnapshot(ctx context.Context, id string, snapshot []byte, isTTF bool) error
	SetVisibility(id string, visible bool)
}

// Merger splices a glyph bundle into a snapshot, returning a new snapshot.
type Merger interface {
	MergeGlyphs(base []byte, bundle *incrfont.GlyphBundle) ([]byte, error)
}

// TextObserver receives the text of a document as it is added or changed, and the signal that the initial content has been parsed.
type TextObserver interface {
	TextChanged(TextChange)
	ContentLoaded()
}

// Observer is notified when queued operations start and finish. Calls are made from the worker goroutine.
type Observer interface {
	OperationStarted(seq uint64, kind OpKind)
	OperationFinished(seq uint64, kind OpKind, err error)
}

type nopObserver struct{}

func (nopObserver) OperationStarted(uint64, OpKind)         {}
func (nopObserver) OperationFinished(uint64, OpKind, error) {}

// NopStore never has a snapshot and discards snapshots that are put.
type NopStore struct{}

func (NopStore) Get(context.Context, string) (incrfont.FileInfo, []byte, bool, error) {
	return incrfont.FileInfo{}, nil, false, nil
}

func (NopStore) Put(context.Context, string, incrfont.FileInfo, []byte) error {
	return nil
}
