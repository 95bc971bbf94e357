package gallery

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// DeleteAuthor removes an author and everything that references them,
// as an ordered saga:
//
//  1. Resolve the author's own items (capturing their media refs) and
//     the items of other authors that embed a rating they wrote.
//  2. Apply one metadata batch: delete the owned items, strip the
//     authored ratings. A batch failure aborts before the author
//     record is touched; re-running is safe because step 1 resolves
//     empty or unaffected sets once the batch has applied.
//  3. Release the captured media refs plus the profile photo,
//     best-effort. Cleanup failures never block the cascade; an
//     orphaned external object is recoverable by a sweep, a dangling
//     metadata reference is not.
//  4. Delete the author record.
func (s *service) DeleteAuthor(ctx context.Context, id uuid.UUID) error {
	author, err := s.repository.GetAuthor(ctx, id)
	if err != nil {
		return &AuthorError{AuthorID: id, Op: "cascade", Err: err}
	}

	owned, err := s.repository.ItemsOwnedBy(ctx, id)
	if err != nil {
		return &AuthorError{AuthorID: id, Op: "cascade", Err: fmt.Errorf("%w: %v", ErrStoreUnavailable, err)}
	}
	rated, err := s.repository.ItemsRatedBy(ctx, id)
	if err != nil {
		return &AuthorError{AuthorID: id, Op: "cascade", Err: fmt.Errorf("%w: %v", ErrStoreUnavailable, err)}
	}

	batch := CascadeBatch{AuthorID: id}
	var refs []MediaRef
	for _, item := range owned {
		batch.DeleteItemIDs = append(batch.DeleteItemIDs, item.ID)
		refs = append(refs, item.Media...)
	}
	for _, item := range rated {
		if item.OwnerID == id {
			// Owned items are deleted outright; no strip needed.
			continue
		}
		batch.StripItemIDs = append(batch.StripItemIDs, item.ID)
	}

	if len(batch.DeleteItemIDs) > 0 || len(batch.StripItemIDs) > 0 {
		if err := s.repository.ApplyCascade(ctx, batch); err != nil {
			return &AuthorError{AuthorID: id, Op: "cascade", Err: fmt.Errorf("%w: %v", ErrStoreUnavailable, err)}
		}
	}

	if author.Photo != nil {
		refs = append(refs, *author.Photo)
	}
	s.media.Release(ctx, refs)

	if err := s.repository.DeleteAuthor(ctx, id); err != nil {
		return &AuthorError{AuthorID: id, Op: "cascade", Err: err}
	}

	s.logger.Info("author deleted",
		"author_id", id,
		"items_deleted", len(batch.DeleteItemIDs),
		"items_stripped", len(batch.StripItemIDs),
		"media_released", len(refs))
	return nil
}
