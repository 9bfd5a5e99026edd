package uriconv

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/jacoelho/ecore/pkg/uri"
)

// FileScheme is the scheme served by File. URIs without a scheme are
// treated as paths too.
const FileScheme = "file"

// File reads and writes documents on the local file system.
type File struct {
	// Root is joined with relative paths. Empty means the working directory.
	Root string
}

// CanHandle accepts file: URIs and bare paths.
func (f File) CanHandle(u uri.URI) bool {
	s := u.Scheme()
	return s == FileScheme || s == ""
}

func (f File) path(u uri.URI) string {
	p := filepath.FromSlash(u.Path())
	if f.Root != "" && !filepath.IsAbs(p) {
		p = filepath.Join(f.Root, p)
	}
	return p
}

// Open opens the file behind u.
func (f File) Open(_ context.Context, u uri.URI) (io.ReadCloser, error) {
	file, err := os.Open(f.path(u))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("open %s: %w", u, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", u, err)
	}
	return file, nil
}

// Create truncates or creates the file behind u, creating parent
// directories as needed.
func (f File) Create(_ context.Context, u uri.URI) (io.WriteCloser, error) {
	p := f.path(u)
	if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
		return nil, fmt.Errorf("create %s: %w", u, err)
	}
	file, err := os.Create(p)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", u, err)
	}
	return file, nil
}
