package gallery

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Error types
var (
	// ErrItemNotFound indicates an item was not found
	ErrItemNotFound = errors.New("item not found")

	// ErrAuthorNotFound indicates an author was not found
	ErrAuthorNotFound = errors.New("author not found")

	// ErrValidation indicates a request failed domain validation
	ErrValidation = errors.New("validation failed")

	// ErrSelfRating indicates an author tried to rate their own item
	ErrSelfRating = errors.New("authors cannot rate their own items")

	// ErrDuplicateRating indicates the author already rated the item
	ErrDuplicateRating = errors.New("item already rated by this author")

	// ErrDuplicateUsername indicates the username is already registered
	ErrDuplicateUsername = errors.New("username already taken")

	// ErrDuplicateEmail indicates the email is already registered
	ErrDuplicateEmail = errors.New("email already registered")

	// ErrPartialProvision indicates an all-or-nothing media operation
	// had at least one permanent upload failure
	ErrPartialProvision = errors.New("media provisioning partially failed")

	// ErrStoreUnavailable indicates the metadata store could not be
	// reached after retries
	ErrStoreUnavailable = errors.New("metadata store unavailable")
)

// ItemError represents an error related to item operations
type ItemError struct {
	ItemID uuid.UUID
	Op     string
	Err    error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("item operation %s failed for item %s: %v", e.Op, e.ItemID, e.Err)
}

func (e *ItemError) Unwrap() error {
	return e.Err
}

// AuthorError represents an error related to author operations
type AuthorError struct {
	AuthorID uuid.UUID
	Op       string
	Err      error
}

func (e *AuthorError) Error() string {
	return fmt.Sprintf("author operation %s failed for author %s: %v", e.Op, e.AuthorID, e.Err)
}

func (e *AuthorError) Unwrap() error {
	return e.Err
}

// StorageError represents an error related to media storage operations
type StorageError struct {
	MediaID string
	Op      string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage operation %s failed for media %s: %v", e.Op, e.MediaID, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// ProvisionError reports a violated all-or-nothing media operation.
// Every upload that succeeded before the failure has already been
// compensated by the time the error is returned.
type ProvisionError struct {
	Requested int
	Failed    int
	Cause     error
}

func (e *ProvisionError) Error() string {
	return fmt.Sprintf("provisioning failed for %d of %d uploads: %v", e.Failed, e.Requested, e.Cause)
}

func (e *ProvisionError) Unwrap() []error {
	return []error{ErrPartialProvision, e.Cause}
}

// NewValidationError wraps ErrValidation with field detail.
func NewValidationError(field, msg string) error {
	return fmt.Errorf("%w: %s: %s", ErrValidation, field, msg)
}
