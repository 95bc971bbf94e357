package gallery

import (
	"context"

	"github.com/google/uuid"
)

// MediaStore defines the interface for the external media service.
type MediaStore interface {
	// Upload stores one binary buffer and returns its reference.
	Upload(ctx context.Context, data []byte) (MediaRef, error)

	// Delete removes a stored object by id.
	Delete(ctx context.Context, id string) error
}

// ItemUpdate describes a field-wise item edit. Nil fields are left
// untouched. Media replacement is handled by the service, which
// provisions the new refs before persisting them here.
type ItemUpdate struct {
	Title       *string
	Description *string
	Tags        []string
	Media       []MediaRef
}

// CascadeBatch is the single metadata batch of an author cascade:
// delete the author's own items and strip the ratings they authored
// from everyone else's. Repositories must apply it as one bulk write.
type CascadeBatch struct {
	AuthorID      uuid.UUID
	DeleteItemIDs []uuid.UUID
	StripItemIDs  []uuid.UUID
}

// Repository defines the interface for catalog metadata persistence.
//
// The store is document-model: ratings are embedded in their item, and
// the only atomicity guarantees are single-document conditional writes
// (AppendRating, ClearFeatured, ToggleFeatured) and the ordered bulk
// batch of ApplyCascade. No multi-document transaction is assumed.
type Repository interface {
	// Item operations
	CreateItem(ctx context.Context, item *Item) error
	GetItem(ctx context.Context, id uuid.UUID) (*Item, error)
	UpdateOwnedItem(ctx context.Context, id, ownerID uuid.UUID, upd ItemUpdate) (*Item, error)
	DeleteOwnedItem(ctx context.Context, id, ownerID uuid.UUID) (*Item, error)
	SearchItems(ctx context.Context, q ItemQuery) (ItemPage, error)
	ItemsOwnedBy(ctx context.Context, authorID uuid.UUID) ([]*Item, error)
	ItemsRatedBy(ctx context.Context, authorID uuid.UUID) ([]*Item, error)

	// AppendRating appends r to the item's embedded ratings as a single
	// conditional write: it must fail ErrItemNotFound, ErrSelfRating or
	// ErrDuplicateRating without modifying the document, and two
	// concurrent appends by the same author can never both succeed.
	// On success the updated item is returned.
	AppendRating(ctx context.Context, itemID uuid.UUID, r Rating) (*Item, error)

	// Featured flag operations. ClearFeatured unsets whichever item
	// currently holds the flag and returns it (nil when none does).
	// ToggleFeatured flips the flag on the given item.
	ClearFeatured(ctx context.Context) (*Item, error)
	ToggleFeatured(ctx context.Context, id uuid.UUID) error
	FeaturedItem(ctx context.Context) (*Item, error)

	// ApplyCascade applies the whole batch as one bulk write.
	ApplyCascade(ctx context.Context, batch CascadeBatch) error

	// Author operations
	CreateAuthor(ctx context.Context, author *Author) error
	GetAuthor(ctx context.Context, id uuid.UUID) (*Author, error)
	GetAuthorByUsername(ctx context.Context, username string) (*Author, error)
	AuthorsByIDs(ctx context.Context, ids []uuid.UUID) ([]*Author, error)
	UpdateAuthor(ctx context.Context, author *Author) error
	DeleteAuthor(ctx context.Context, id uuid.UUID) error
	SearchAuthors(ctx context.Context, q AuthorQuery) (AuthorPage, error)

	// Reporting reads
	TagFrequencies(ctx context.Context) (map[string]int, error)
	Counts(ctx context.Context) (CatalogStats, error)
}
