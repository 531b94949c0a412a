package fontset

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"

	"github.com/tdewolff/incrfont"
)

// DirStore persists snapshots in a directory, one font file and one JSON file info per font.
type DirStore struct {
	Dir string
}

func (store DirStore) path(id, ext string) string {
	return filepath.Join(store.Dir, url.PathEscape(id)+ext)
}

// Get returns the persisted snapshot of a font. A snapshot without file info, or the reverse, is absent.
func (store DirStore) Get(ctx context.Context, id string) (incrfont.FileInfo, []byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return incrfont.FileInfo{}, nil, false, err
	}

	b, err := os.ReadFile(store.path(id, ".json"))
	if errors.Is(err, fs.ErrNotExist) {
		return incrfont.FileInfo{}, nil, false, nil
	} else if err != nil {
		return incrfont.FileInfo{}, nil, false, err
	}
	info := incrfont.FileInfo{}
	if err := json.Unmarshal(b, &info); err != nil {
		return incrfont.FileInfo{}, nil, false, err
	}

	snapshot, err := os.ReadFile(store.path(id, ".font"))
	if errors.Is(err, fs.ErrNotExist) {
		return incrfont.FileInfo{}, nil, false, nil
	} else if err != nil {
		return incrfont.FileInfo{}, nil, false, err
	}
	return info, snapshot, true, nil
}

// Put persists the snapshot of a font, replacing the previous one. The font file is written before the file info.
func (store DirStore) Put(ctx context.Context, id string, info incrfont.FileInfo, snapshot []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(store.Dir, 0o755); err != nil {
		return err
	}

	b, err := json.Marshal(info)
	if err != nil {
		return err
	}
	if err := writeFileAtomic(store.path(id, ".font"), snapshot); err != nil {
		return err
	}
	return writeFileAtomic(store.path(id, ".json"), b)
}

func writeFileAtomic(filename string, b []byte) error {
	f, err := os.CreateTemp(filepath.Dir(filename), filepath.Base(filename)+".*.tmp")
	if err != nil {
		return err
	}
	if _, err := f.Write(b); err != nil {
		f.Close()
		os.Remove(f.Name())
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return err
	}
	return os.Rename(f.Name(), filename)
}
