package storage

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const localScheme = "file://"

// Local stores documents on the filesystem below a root directory.
type Local struct {
	root string
}

// NewLocal creates root when missing.
func NewLocal(root string) (*Local, error) {
	if root == "" {
		return nil, errors.New("DOCUMENT_DIR is required for the local store")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, err
	}
	return &Local{root: abs}, nil
}

// Put writes data via a temp file and rename so readers never see a
// partial document.
func (l *Local) Put(ctx context.Context, key, _ string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	dst, err := l.resolve(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return "", err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return "", err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return localScheme + filepath.ToSlash(dst), nil
}

// Open returns the document at location.
func (l *Local) Open(_ context.Context, location string) (io.ReadCloser, error) {
	p, err := l.fromLocation(location)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	return f, err
}

// Delete removes the document at location; missing documents are not an error.
func (l *Local) Delete(_ context.Context, location string) error {
	p, err := l.fromLocation(location)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (l *Local) resolve(key string) (string, error) {
	p := filepath.Join(l.root, filepath.FromSlash(key))
	if !within(l.root, p) {
		return "", errors.New("key escapes document root")
	}
	return p, nil
}

func (l *Local) fromLocation(location string) (string, error) {
	rest, ok := strings.CutPrefix(location, localScheme)
	if !ok {
		return "", errors.New("not a local document location: " + location)
	}
	p := filepath.Clean(filepath.FromSlash(rest))
	if !within(l.root, p) {
		return "", errors.New("location outside document root")
	}
	return p, nil
}

func within(root, p string) bool {
	rel, err := filepath.Rel(root, p)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
