package gallery

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// AddRating appends a rating to an item. The uniqueness and self-rating
// invariants are enforced by the repository as a single conditional
// write on the item document, so two concurrent submissions by the same
// author can never both succeed. On success the updated item is
// returned with a server-assigned timestamp on the new rating.
func (s *service) AddRating(ctx context.Context, req AddRatingRequest) (*Item, error) {
	if err := validateRatingValue(req.Value); err != nil {
		return nil, err
	}
	comment := strings.TrimSpace(req.Comment)
	if comment == "" {
		return nil, NewValidationError("comment", "comment is required")
	}
	if len([]rune(comment)) > MaxCommentLen {
		return nil, NewValidationError("comment", fmt.Sprintf("comment exceeds %d characters", MaxCommentLen))
	}

	rating := Rating{
		AuthorID:  req.AuthorID,
		Value:     req.Value,
		Comment:   comment,
		Timestamp: time.Now().UTC(),
	}

	item, err := s.repository.AppendRating(ctx, req.ItemID, rating)
	if err != nil {
		return nil, &ItemError{ItemID: req.ItemID, Op: "rate", Err: err}
	}

	s.logger.Info("rating added", "item_id", req.ItemID, "rater_id", req.AuthorID, "value", req.Value)
	return item, nil
}

// GetItemWithRatings returns the full read view of an item: each
// embedded rating joined with its author's public identity, sorted
// most-recent-first, plus the derived mean (raw and rounded to the
// half step for star display).
func (s *service) GetItemWithRatings(ctx context.Context, id uuid.UUID) (*RatedItem, error) {
	item, err := s.repository.GetItem(ctx, id)
	if err != nil {
		return nil, &ItemError{ItemID: id, Op: "get_rated", Err: err}
	}

	owner, err := s.repository.GetAuthor(ctx, item.OwnerID)
	if err != nil {
		return nil, &ItemError{ItemID: id, Op: "get_rated", Err: err}
	}

	ids := make([]uuid.UUID, 0, len(item.Ratings))
	for _, r := range item.Ratings {
		ids = append(ids, r.AuthorID)
	}
	raters, err := s.repository.AuthorsByIDs(ctx, ids)
	if err != nil {
		return nil, &ItemError{ItemID: id, Op: "get_rated", Err: err}
	}
	byID := make(map[uuid.UUID]*Author, len(raters))
	for _, a := range raters {
		byID[a.ID] = a
	}

	joined := make([]AuthoredRating, 0, len(item.Ratings))
	for _, r := range item.Ratings {
		a, ok := byID[r.AuthorID]
		if !ok {
			// Rater concurrently deleted; its ratings are being
			// stripped by the cascade, skip the stale entry.
			continue
		}
		joined = append(joined, AuthoredRating{
			Author:    a.PublicRef(),
			Value:     r.Value,
			Comment:   r.Comment,
			Timestamp: r.Timestamp,
		})
	}
	sort.SliceStable(joined, func(i, j int) bool {
		return joined[i].Timestamp.After(joined[j].Timestamp)
	})

	avg := item.AverageRating()
	return &RatedItem{
		Item:    *item,
		Owner:   owner.PublicRef(),
		Ratings: joined,
		Average: avg,
		Stars:   RoundHalfStep(avg),
	}, nil
}

// validateRatingValue accepts only half steps in [0.5, 5].
func validateRatingValue(v float64) error {
	if v < MinRatingValue || v > MaxRatingValue {
		return NewValidationError("value", "rating must be between 0.5 and 5")
	}
	steps := v * 2
	if steps != float64(int64(steps)) {
		return NewValidationError("value", "rating must be a half step")
	}
	return nil
}
