package gallery

import (
	"context"

	"github.com/google/uuid"
)

// SetFeatured moves the catalog-wide featured flag to the given item.
// If the item already holds the flag the call toggles it off instead.
//
// The unset step always runs before the set step, so at most one item
// holds the flag at any observed instant. The two steps are separate
// single-document writes, not one transaction: concurrent calls for
// different items resolve by last-writer-wins on the final set. That
// weaker guarantee is deliberate and load-bearing for callers.
func (s *service) SetFeatured(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repository.GetItem(ctx, id); err != nil {
		// Unknown target: fail before any state change.
		return &ItemError{ItemID: id, Op: "feature", Err: err}
	}

	previous, err := s.repository.ClearFeatured(ctx)
	if err != nil {
		return &ItemError{ItemID: id, Op: "feature", Err: err}
	}

	if previous != nil && previous.ID == id {
		// The target held the flag; clearing it was the toggle-off.
		s.logger.Info("featured cleared", "item_id", id)
		return nil
	}

	if err := s.repository.ToggleFeatured(ctx, id); err != nil {
		return &ItemError{ItemID: id, Op: "feature", Err: err}
	}

	s.logger.Info("featured set", "item_id", id)
	return nil
}

// FeaturedItem returns the current flag holder, or ErrItemNotFound
// when no item is featured.
func (s *service) FeaturedItem(ctx context.Context) (*Item, error) {
	item, err := s.repository.FeaturedItem(ctx)
	if err != nil {
		return nil, err
	}
	return item, nil
}
