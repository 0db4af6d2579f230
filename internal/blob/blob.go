// Package blob keeps exported database images in a local directory, in
// memory or in an S3 bucket.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"pngdb/internal/config"
)

// ErrNotFound is returned when a named image does not exist.
var ErrNotFound = errors.New("blob not found")

// ErrInvalidName is returned for names that are not a plain file name.
var ErrInvalidName = errors.New("invalid blob name")

// Ext is the extension every stored image carries.
const Ext = ".png"

// File describes a stored image.
type File struct {
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"modified"`
}

// Store persists PNG images by name.
type Store interface {
	Write(ctx context.Context, name string, r io.Reader, size int64) error
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	Delete(ctx context.Context, name string) error
	List(ctx context.Context) ([]File, error)
}

// CleanName checks that name is a single path element and appends the
// .png extension when it is missing.
func CleanName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if !strings.EqualFold(path.Ext(name), Ext) {
		name += Ext
	}
	return name, nil
}

// New creates the store selected by cfg.Mode.
func New(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	switch strings.ToLower(cfg.Mode) {
	case config.StorageLocal, "":
		return NewLocal(cfg.Path), nil
	case config.StorageMemory:
		return NewMemory(), nil
	case config.StorageS3:
		return NewS3(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unsupported storage mode: %s (supported: local, s3, memory)", cfg.Mode)
	}
}

// ReadAll opens name and reads it fully.
func ReadAll(ctx context.Context, s Store, name string) ([]byte, error) {
	rc, err := s.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
