package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/natefinch/atomic"
)

// Local stores images as files in one directory.
type Local struct {
	basePath string
}

// NewLocal creates a store rooted at basePath. The directory is created on
// first write.
func NewLocal(basePath string) *Local {
	return &Local{basePath: basePath}
}

// Write replaces the named file atomically with the contents of r.
func (l *Local) Write(_ context.Context, name string, r io.Reader, _ int64) error {
	name, err := CleanName(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(l.basePath, 0755); err != nil {
		return fmt.Errorf("creating storage directory: %w", err)
	}
	return atomic.WriteFile(filepath.Join(l.basePath, name), r)
}

// Open opens the named file for reading.
func (l *Local) Open(_ context.Context, name string) (io.ReadCloser, error) {
	name, err := CleanName(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(l.basePath, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return f, err
}

// Delete removes the named file.
func (l *Local) Delete(_ context.Context, name string) error {
	name, err := CleanName(name)
	if err != nil {
		return err
	}
	err = os.Remove(filepath.Join(l.basePath, name))
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return err
}

// List returns the stored images sorted by name. A missing directory is empty.
func (l *Local) List(_ context.Context) ([]File, error) {
	entries, err := os.ReadDir(l.basePath)
	if errors.Is(err, os.ErrNotExist) {
		return []File{}, nil
	}
	if err != nil {
		return nil, err
	}

	files := []File{}
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), Ext) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, err
		}
		files = append(files, File{Name: entry.Name(), Size: info.Size(), ModTime: info.ModTime()})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}
