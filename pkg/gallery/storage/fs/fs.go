package fs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/artgrove/gallery/pkg/gallery"
)

// Store is a filesystem implementation of the gallery.MediaStore
// interface, intended for local development.
type Store struct {
	baseDir   string
	urlPrefix string
}

// Config options for the filesystem store
type Config struct {
	BaseDir   string // Base directory for storing media files
	URLPrefix string // URL prefix the files are served under
}

// New creates a new filesystem media store
func New(config Config) (*Store, error) {
	if config.BaseDir == "" {
		return nil, errors.New("base directory is required")
	}
	if err := os.MkdirAll(config.BaseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &Store{
		baseDir:   config.BaseDir,
		urlPrefix: strings.TrimSuffix(config.URLPrefix, "/"),
	}, nil
}

// Upload writes the buffer to a fresh file under the base directory.
// The write goes through a temp file and rename so a crashed upload
// never leaves a half-written object behind.
func (s *Store) Upload(ctx context.Context, data []byte) (gallery.MediaRef, error) {
	if err := ctx.Err(); err != nil {
		return gallery.MediaRef{}, err
	}

	id := uuid.NewString()
	target := filepath.Join(s.baseDir, id)

	tmp, err := os.CreateTemp(s.baseDir, id+".tmp*")
	if err != nil {
		return gallery.MediaRef{}, fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return gallery.MediaRef{}, fmt.Errorf("failed to write media file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return gallery.MediaRef{}, fmt.Errorf("failed to close media file: %w", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		os.Remove(tmp.Name())
		return gallery.MediaRef{}, fmt.Errorf("failed to store media file: %w", err)
	}

	return gallery.MediaRef{ID: id, URL: s.url(id)}, nil
}

// Delete removes the file for the given id.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path := filepath.Join(s.baseDir, filepath.Base(id))
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("object %s not found", id)
		}
		return fmt.Errorf("failed to delete media file: %w", err)
	}
	return nil
}

func (s *Store) url(id string) string {
	if s.urlPrefix == "" {
		return "file://" + filepath.Join(s.baseDir, id)
	}
	return s.urlPrefix + "/" + id
}
