package gallery

import (
	"context"

	"github.com/google/uuid"
)

// Service defines the main interface for the gallery catalog core.
type Service interface {
	// Item operations
	CreateItem(ctx context.Context, req CreateItemRequest) (*Item, error)
	GetItem(ctx context.Context, id uuid.UUID) (*Item, error)
	GetItemWithRatings(ctx context.Context, id uuid.UUID) (*RatedItem, error)
	UpdateItem(ctx context.Context, req UpdateItemRequest) (*Item, error)
	DeleteItem(ctx context.Context, itemID, ownerID uuid.UUID) error
	SearchItems(ctx context.Context, query string, page PageParams) (ItemPage, error)

	// Rating operations
	AddRating(ctx context.Context, req AddRatingRequest) (*Item, error)

	// Featured flag operations
	SetFeatured(ctx context.Context, id uuid.UUID) error
	FeaturedItem(ctx context.Context) (*Item, error)

	// Author operations
	RegisterAuthor(ctx context.Context, req RegisterAuthorRequest) (*Author, error)
	GetAuthor(ctx context.Context, id uuid.UUID) (*Author, error)
	GetAuthorByUsername(ctx context.Context, username string) (*Author, error)
	GetAuthorProfile(ctx context.Context, username string) (*AuthorProfile, error)
	UpdateProfile(ctx context.Context, req UpdateProfileRequest) (*Author, error)
	DeleteAuthor(ctx context.Context, id uuid.UUID) error
	SearchAuthors(ctx context.Context, query string, page PageParams) (AuthorPage, error)

	// Reporting reads (consumed by the reporting subsystem, read-only)
	TagFrequencies(ctx context.Context) (map[string]int, error)
	CatalogStats(ctx context.Context) (CatalogStats, error)
}
