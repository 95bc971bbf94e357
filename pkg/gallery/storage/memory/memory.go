package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/artgrove/gallery/pkg/gallery"
)

// Store is an in-memory implementation of the gallery.MediaStore
// interface. Failure hooks make it the test double for provisioning:
// an injected upload or delete error stands in for a transient or
// permanent media-service failure.
type Store struct {
	mu          sync.RWMutex
	objects     map[string][]byte
	uploadCalls int
	deleteCalls int
	uploadErr   func(data []byte) error
	deleteErr   func(id string) error
}

// New creates a new in-memory media store
func New() *Store {
	return &Store{
		objects: make(map[string][]byte),
	}
}

// Upload stores the buffer and returns a fresh ref.
func (s *Store) Upload(ctx context.Context, data []byte) (gallery.MediaRef, error) {
	if err := ctx.Err(); err != nil {
		return gallery.MediaRef{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.uploadCalls++
	if s.uploadErr != nil {
		if err := s.uploadErr(data); err != nil {
			return gallery.MediaRef{}, err
		}
		// A hook may block past the caller's deadline; nothing is
		// stored for an attempt that has already timed out.
		if err := ctx.Err(); err != nil {
			return gallery.MediaRef{}, err
		}
	}

	id := uuid.NewString()
	s.objects[id] = append([]byte(nil), data...)
	return gallery.MediaRef{ID: id, URL: fmt.Sprintf("memory://%s", id)}, nil
}

// Delete removes a stored object. Deleting an unknown id fails.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.deleteCalls++
	if s.deleteErr != nil {
		if err := s.deleteErr(id); err != nil {
			return err
		}
	}

	if _, exists := s.objects[id]; !exists {
		return fmt.Errorf("object %s not found", id)
	}
	delete(s.objects, id)
	return nil
}

// SetUploadFailure installs a hook consulted on every upload attempt.
// A nil hook clears the failure.
func (s *Store) SetUploadFailure(fn func(data []byte) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploadErr = fn
}

// SetDeleteFailure installs a hook consulted on every delete attempt.
func (s *Store) SetDeleteFailure(fn func(id string) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteErr = fn
}

// Len returns the number of stored objects.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

// Exists reports whether the object is stored.
func (s *Store) Exists(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, exists := s.objects[id]
	return exists
}

// IDs returns the ids of all stored objects, sorted.
func (s *Store) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.objects))
	for id := range s.objects {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// UploadCalls returns the number of upload attempts seen, including
// failed ones.
func (s *Store) UploadCalls() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.uploadCalls
}

// DeleteCalls returns the number of delete attempts seen.
func (s *Store) DeleteCalls() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.deleteCalls
}
