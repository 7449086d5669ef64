package tokenstore

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-wodstrat"
)

const fileMode = 0o600

// File persists the token in a single file. A missing file means no token.
type File struct {
	mu   sync.Mutex
	path string
}

var _ wodstrat.TokenStore = (*File)(nil)

func NewFile(path string) *File {
	return &File{path: path}
}

// Path returns the backing file location
func (f *File) Path() string {
	return f.path
}

func (f *File) Get(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	raw, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to read token file").
			WithMetadata(map[string]any{"path": f.path})
	}

	return strings.TrimSpace(string(raw)), nil
}

// Set writes through a temp file and rename so readers never see a partial token
func (f *File) Set(ctx context.Context, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create token directory").
			WithMetadata(map[string]any{"path": dir})
	}

	tmp, err := os.CreateTemp(dir, ".token-*")
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create temp token file")
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(fileMode); err != nil {
		tmp.Close()
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to chmod token file")
	}

	if _, err := tmp.WriteString(token); err != nil {
		tmp.Close()
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to write token file")
	}

	if err := tmp.Close(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to close token file")
	}

	if err := os.Rename(tmpName, f.path); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to store token file").
			WithMetadata(map[string]any{"path": f.path})
	}

	return nil
}

func (f *File) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to remove token file").
			WithMetadata(map[string]any{"path": f.path})
	}
	return nil
}
