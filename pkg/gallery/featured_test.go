package gallery_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artgrove/gallery/pkg/gallery"
)

func TestSetFeatured(t *testing.T) {
	svc, _, _ := setupTestService(t)
	ctx := context.Background()

	owner := registerTestAuthor(t, svc, "featured-artist")
	first := createTestItem(t, svc, owner.ID, "First Piece")
	second := createTestItem(t, svc, owner.ID, "Second Piece")

	t.Run("empty catalog has no featured item", func(t *testing.T) {
		_, err := svc.FeaturedItem(ctx)
		assert.ErrorIs(t, err, gallery.ErrItemNotFound)
	})

	t.Run("setting the flag", func(t *testing.T) {
		require.NoError(t, svc.SetFeatured(ctx, first.ID))

		got, err := svc.FeaturedItem(ctx)
		require.NoError(t, err)
		assert.Equal(t, first.ID, got.ID)
	})

	t.Run("moving the flag leaves at most one holder", func(t *testing.T) {
		require.NoError(t, svc.SetFeatured(ctx, second.ID))

		got, err := svc.FeaturedItem(ctx)
		require.NoError(t, err)
		assert.Equal(t, second.ID, got.ID)

		old, err := svc.GetItem(ctx, first.ID)
		require.NoError(t, err)
		assert.False(t, old.Featured)
	})

	t.Run("repeating the holder toggles the flag off", func(t *testing.T) {
		require.NoError(t, svc.SetFeatured(ctx, second.ID))

		_, err := svc.FeaturedItem(ctx)
		assert.ErrorIs(t, err, gallery.ErrItemNotFound)
	})

	t.Run("toggling back on after a toggle off", func(t *testing.T) {
		require.NoError(t, svc.SetFeatured(ctx, second.ID))

		got, err := svc.FeaturedItem(ctx)
		require.NoError(t, err)
		assert.Equal(t, second.ID, got.ID)
	})

	t.Run("unknown item fails without touching the current holder", func(t *testing.T) {
		err := svc.SetFeatured(ctx, uuid.New())
		assert.ErrorIs(t, err, gallery.ErrItemNotFound)

		got, err := svc.FeaturedItem(ctx)
		require.NoError(t, err)
		assert.Equal(t, second.ID, got.ID)
	})
}

func TestSetFeaturedLongSequence(t *testing.T) {
	svc, _, _ := setupTestService(t)
	ctx := context.Background()

	owner := registerTestAuthor(t, svc, "sequence-artist")
	items := make([]*gallery.Item, 4)
	for i := range items {
		items[i] = createTestItem(t, svc, owner.ID, "Piece "+uuid.NewString()[:8])
	}

	// Walk the flag across the catalog; after every step at most one
	// item may hold it.
	sequence := []int{0, 1, 1, 2, 3, 0}
	for _, idx := range sequence {
		require.NoError(t, svc.SetFeatured(ctx, items[idx].ID))

		holders := 0
		for _, it := range items {
			got, err := svc.GetItem(ctx, it.ID)
			require.NoError(t, err)
			if got.Featured {
				holders++
			}
		}
		assert.LessOrEqual(t, holders, 1)
	}
}
