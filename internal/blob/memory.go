package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
)

// Memory keeps images in an in-memory filesystem. Contents are lost when
// the process exits.
type Memory struct {
	mu sync.RWMutex
	fs billy.Filesystem
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{fs: memfs.New()}
}

// Write streams data from r into the named file, replacing it.
func (m *Memory) Write(_ context.Context, name string, r io.Reader, _ int64) error {
	name, err := CleanName(name)
	if err != nil {
		return err
	}
	// Read first so a failing reader leaves the old file in place.
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	file, err := m.fs.Create(name)
	if err != nil {
		return err
	}
	defer file.Close()

	_, err = io.Copy(file, bytes.NewReader(data))
	return err
}

// Open returns a reader over a snapshot of the named file.
func (m *Memory) Open(_ context.Context, name string) (io.ReadCloser, error) {
	name, err := CleanName(name)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	file, err := m.fs.Open(name)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Delete removes the named file.
func (m *Memory) Delete(_ context.Context, name string) error {
	name, err := CleanName(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.fs.Stat(name); errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return m.fs.Remove(name)
}

// List returns the stored images sorted by name.
func (m *Memory) List(_ context.Context) ([]File, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entries, err := m.fs.ReadDir(".")
	if errors.Is(err, os.ErrNotExist) {
		return []File{}, nil
	}
	if err != nil {
		return nil, err
	}

	files := []File{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		files = append(files, File{Name: entry.Name(), Size: entry.Size(), ModTime: entry.ModTime()})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}
