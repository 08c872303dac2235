// Package inventory builds the publish manifest from a local file or
// directory tree. Only metadata is read; file contents are opened later by
// the uploader.
package inventory

import (
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path"
	"path/filepath"

	"github.com/dmitrijs2005/instanthost/internal/client/models"
	"github.com/dmitrijs2005/instanthost/internal/common"
)

// ErrEmptyManifest is returned when the target holds no regular files.
var ErrEmptyManifest = errors.New("no files found to publish")

type options struct {
	exclude []string
}

type Option func(*options)

// WithExclude skips files and directories whose base name matches any of
// the given path.Match patterns.
func WithExclude(patterns ...string) Option {
	return func(o *options) { o.exclude = append(o.exclude, patterns...) }
}

// Scan returns the manifest for target. A single file yields one entry named
// after its base name; a directory yields every regular file beneath it in
// lexical walk order, with paths relative to target and slash-separated.
func Scan(target string, opts ...Option) ([]models.FileEntry, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	for _, p := range o.exclude {
		if _, err := path.Match(p, ""); err != nil {
			return nil, fmt.Errorf("exclude pattern %q: %w", p, err)
		}
	}

	root, err := filepath.Abs(target)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", common.ErrorInvalidTarget, target, err)
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrorInvalidTarget, err)
	}

	var entries []models.FileEntry
	switch {
	case info.Mode().IsRegular():
		entries = append(entries, newEntry(filepath.Base(root), root, info.Size()))
	case info.IsDir():
		// WalkDir does not descend through a symlinked root.
		root, err = filepath.EvalSymlinks(root)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", common.ErrorInvalidTarget, err)
		}
		entries, err = walk(root, &o)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %s is not a regular file or directory", common.ErrorInvalidTarget, target)
	}

	if len(entries) == 0 {
		return nil, ErrEmptyManifest
	}
	return entries, nil
}

func walk(root string, o *options) ([]models.FileEntry, error) {
	var entries []models.FileEntry

	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p != root && o.excluded(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		entries = append(entries, newEntry(filepath.ToSlash(rel), p, info.Size()))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}

	return entries, nil
}

func (o *options) excluded(name string) bool {
	for _, p := range o.exclude {
		if ok, _ := path.Match(p, name); ok {
			return true
		}
	}
	return false
}

func newEntry(rel, local string, size int64) models.FileEntry {
	return models.FileEntry{
		Path:        rel,
		Size:        size,
		ContentType: DetectContentType(local),
		LocalPath:   local,
	}
}

// DetectContentType guesses a MIME type from the file extension and falls
// back to application/octet-stream.
func DetectContentType(name string) string {
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return common.DefaultContentType
}

// TotalSize sums the sizes of all entries.
func TotalSize(entries []models.FileEntry) int64 {
	var n int64
	for _, e := range entries {
		n += e.Size
	}
	return n
}
