// Package storage holds uploaded audio. A Local store stages uploads on
// disk while they are decoded and sweeps anything left behind; an S3Store
// optionally archives the raw uploads in an S3-compatible bucket.
package storage

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"
	"unicode"
)

// FileStore is a minimal interface for file-oriented storage.
//
// Paths are forward-slash separated and relative to the store root.
// Implementations must be safe for concurrent use.
type FileStore interface {
	// Read opens the named file. Missing files yield an error wrapping
	// os.ErrNotExist.
	Read(ctx context.Context, path string) (io.ReadCloser, error)

	// Write creates or truncates the named file. The caller must close the
	// returned writer to flush data.
	Write(ctx context.Context, path string) (io.WriteCloser, error)

	// Delete removes the named file. Missing files are not an error.
	Delete(ctx context.Context, path string) error

	// Exists reports whether the named file exists.
	Exists(ctx context.Context, path string) (bool, error)
}

// Put copies r into path and returns the number of bytes written.
func Put(ctx context.Context, fs FileStore, path string, r io.Reader) (int64, error) {
	w, err := fs.Write(ctx, path)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(w, r)
	if err != nil {
		w.Close()
		return n, fmt.Errorf("storage: put %s: %w", path, err)
	}
	if err := w.Close(); err != nil {
		return n, fmt.Errorf("storage: put %s: %w", path, err)
	}
	return n, nil
}

// StageName returns the staging file name for an upload:
// "<unix-nanos>_<sanitized base name>".
func StageName(now time.Time, name string) string {
	return fmt.Sprintf("%d_%s", now.UnixNano(), SanitizeName(name))
}

// SanitizeName reduces an uploaded file name to a safe base name.
func SanitizeName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.Map(func(r rune) rune {
		switch {
		case r == '.' || r == '-' || r == '_':
			return r
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			return r
		}
		return '_'
	}, name)
	name = strings.TrimLeft(name, ".")
	if name == "" {
		return "upload"
	}
	return name
}
