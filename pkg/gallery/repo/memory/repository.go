package memory

import (
	"bytes"
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/artgrove/gallery/pkg/gallery"
)

// Repository implements gallery.Repository using in-memory storage.
// Conditional writes run under one lock, which gives the same
// observable guarantees as the store's single-document atomic updates.
type Repository struct {
	mu      sync.RWMutex
	items   map[uuid.UUID]*gallery.Item
	authors map[uuid.UUID]*gallery.Author
}

// New creates a new in-memory repository
func New() *Repository {
	return &Repository{
		items:   make(map[uuid.UUID]*gallery.Item),
		authors: make(map[uuid.UUID]*gallery.Author),
	}
}

// Item operations

func (r *Repository) CreateItem(ctx context.Context, item *gallery.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Store a copy to avoid external modifications
	itemCopy := copyItem(item)
	r.items[item.ID] = itemCopy
	return nil
}

func (r *Repository) GetItem(ctx context.Context, id uuid.UUID) (*gallery.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, exists := r.items[id]
	if !exists {
		return nil, gallery.ErrItemNotFound
	}
	return copyItem(item), nil
}

func (r *Repository) UpdateOwnedItem(ctx context.Context, id, ownerID uuid.UUID, upd gallery.ItemUpdate) (*gallery.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, exists := r.items[id]
	if !exists || item.OwnerID != ownerID {
		return nil, gallery.ErrItemNotFound
	}

	if upd.Title != nil {
		item.Title = *upd.Title
	}
	if upd.Description != nil {
		item.Description = *upd.Description
	}
	if upd.Tags != nil {
		item.Tags = append([]string(nil), upd.Tags...)
	}
	if upd.Media != nil {
		item.Media = append([]gallery.MediaRef(nil), upd.Media...)
	}
	item.UpdatedAt = time.Now().UTC()

	return copyItem(item), nil
}

func (r *Repository) DeleteOwnedItem(ctx context.Context, id, ownerID uuid.UUID) (*gallery.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, exists := r.items[id]
	if !exists || item.OwnerID != ownerID {
		return nil, gallery.ErrItemNotFound
	}
	delete(r.items, id)
	return copyItem(item), nil
}

func (r *Repository) SearchItems(ctx context.Context, q gallery.ItemQuery) (gallery.ItemPage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*gallery.Item
	for _, item := range r.items {
		if q.Matcher.Match(gallery.ItemSearchFields(item)...) {
			matched = append(matched, item)
		}
	}
	sortByCreation(matched, q.Page.Sort)

	page := gallery.ItemPage{Total: len(matched)}
	for _, item := range paginate(matched, q.Page) {
		page.Docs = append(page.Docs, copyItem(item))
	}
	return page, nil
}

func (r *Repository) ItemsOwnedBy(ctx context.Context, authorID uuid.UUID) ([]*gallery.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var owned []*gallery.Item
	for _, item := range r.items {
		if item.OwnerID == authorID {
			owned = append(owned, copyItem(item))
		}
	}
	return owned, nil
}

func (r *Repository) ItemsRatedBy(ctx context.Context, authorID uuid.UUID) ([]*gallery.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var rated []*gallery.Item
	for _, item := range r.items {
		if item.RatedBy(authorID) {
			rated = append(rated, copyItem(item))
		}
	}
	return rated, nil
}

// AppendRating performs the whole check-then-append under one lock,
// mirroring the store's conditional push: concurrent duplicates can
// never both succeed.
func (r *Repository) AppendRating(ctx context.Context, itemID uuid.UUID, rating gallery.Rating) (*gallery.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, exists := r.items[itemID]
	if !exists {
		return nil, gallery.ErrItemNotFound
	}
	if item.OwnerID == rating.AuthorID {
		return nil, gallery.ErrSelfRating
	}
	if item.RatedBy(rating.AuthorID) {
		return nil, gallery.ErrDuplicateRating
	}

	item.Ratings = append(item.Ratings, rating)
	item.UpdatedAt = time.Now().UTC()
	return copyItem(item), nil
}

// Featured flag operations

func (r *Repository) ClearFeatured(ctx context.Context) (*gallery.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, item := range r.items {
		if item.Featured {
			// Pre-image, matching the document store's find-and-modify.
			previous := copyItem(item)
			item.Featured = false
			return previous, nil
		}
	}
	return nil, nil
}

func (r *Repository) ToggleFeatured(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, exists := r.items[id]
	if !exists {
		return gallery.ErrItemNotFound
	}
	item.Featured = !item.Featured
	return nil
}

func (r *Repository) FeaturedItem(ctx context.Context) (*gallery.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, item := range r.items {
		if item.Featured {
			return copyItem(item), nil
		}
	}
	return nil, gallery.ErrItemNotFound
}

// ApplyCascade applies the whole batch under one lock, the in-memory
// equivalent of a single bulk write.
func (r *Repository) ApplyCascade(ctx context.Context, batch gallery.CascadeBatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range batch.DeleteItemIDs {
		delete(r.items, id)
	}
	for _, id := range batch.StripItemIDs {
		item, exists := r.items[id]
		if !exists {
			continue
		}
		kept := item.Ratings[:0]
		for _, rating := range item.Ratings {
			if rating.AuthorID != batch.AuthorID {
				kept = append(kept, rating)
			}
		}
		item.Ratings = kept
	}
	return nil
}

// Author operations

func (r *Repository) CreateAuthor(ctx context.Context, author *gallery.Author) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.authors {
		if strings.EqualFold(existing.Username, author.Username) {
			return gallery.ErrDuplicateUsername
		}
		if strings.EqualFold(existing.Email, author.Email) {
			return gallery.ErrDuplicateEmail
		}
	}

	authorCopy := *author
	r.authors[author.ID] = &authorCopy
	return nil
}

func (r *Repository) GetAuthor(ctx context.Context, id uuid.UUID) (*gallery.Author, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	author, exists := r.authors[id]
	if !exists {
		return nil, gallery.ErrAuthorNotFound
	}
	authorCopy := *author
	return &authorCopy, nil
}

func (r *Repository) GetAuthorByUsername(ctx context.Context, username string) (*gallery.Author, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, author := range r.authors {
		if strings.EqualFold(author.Username, username) {
			authorCopy := *author
			return &authorCopy, nil
		}
	}
	return nil, gallery.ErrAuthorNotFound
}

func (r *Repository) AuthorsByIDs(ctx context.Context, ids []uuid.UUID) ([]*gallery.Author, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	authors := make([]*gallery.Author, 0, len(ids))
	for _, id := range ids {
		if author, exists := r.authors[id]; exists {
			authorCopy := *author
			authors = append(authors, &authorCopy)
		}
	}
	return authors, nil
}

func (r *Repository) UpdateAuthor(ctx context.Context, author *gallery.Author) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.authors[author.ID]; !exists {
		return gallery.ErrAuthorNotFound
	}
	authorCopy := *author
	r.authors[author.ID] = &authorCopy
	return nil
}

func (r *Repository) DeleteAuthor(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Deleting an already-deleted author is a no-op so a re-run of the
	// cascade stays idempotent.
	delete(r.authors, id)
	return nil
}

func (r *Repository) SearchAuthors(ctx context.Context, q gallery.AuthorQuery) (gallery.AuthorPage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*gallery.Author
	for _, author := range r.authors {
		if q.Matcher.Match(gallery.AuthorSearchFields(author)...) {
			matched = append(matched, author)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			if q.Page.Sort == gallery.SortAsc {
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return a.CreatedAt.After(b.CreatedAt)
		}
		return bytes.Compare(a.ID[:], b.ID[:]) < 0
	})

	page := gallery.AuthorPage{Total: len(matched)}
	start := q.Page.Offset()
	if start > len(matched) {
		start = len(matched)
	}
	end := start + q.Page.PageSize
	if end > len(matched) {
		end = len(matched)
	}
	for _, author := range matched[start:end] {
		authorCopy := *author
		page.Docs = append(page.Docs, &authorCopy)
	}
	return page, nil
}

// Reporting reads

func (r *Repository) TagFrequencies(ctx context.Context) (map[string]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	freq := make(map[string]int)
	for _, item := range r.items {
		for _, tag := range item.Tags {
			freq[tag]++
		}
	}
	return freq, nil
}

func (r *Repository) Counts(ctx context.Context) (gallery.CatalogStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := gallery.CatalogStats{
		Items:   len(r.items),
		Authors: len(r.authors),
	}
	for _, item := range r.items {
		stats.Ratings += len(item.Ratings)
	}
	return stats, nil
}

// helpers

func copyItem(item *gallery.Item) *gallery.Item {
	itemCopy := *item
	itemCopy.Tags = append([]string(nil), item.Tags...)
	itemCopy.Media = append([]gallery.MediaRef(nil), item.Media...)
	itemCopy.Ratings = append([]gallery.Rating(nil), item.Ratings...)
	return &itemCopy
}

func sortByCreation(items []*gallery.Item, dir gallery.SortDir) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			if dir == gallery.SortAsc {
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return a.CreatedAt.After(b.CreatedAt)
		}
		// Stable secondary key for deterministic repeat reads.
		return bytes.Compare(a.ID[:], b.ID[:]) < 0
	})
}

func paginate(items []*gallery.Item, p gallery.PageParams) []*gallery.Item {
	start := p.Offset()
	if start > len(items) {
		start = len(items)
	}
	end := start + p.PageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
