package gallery_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artgrove/gallery/pkg/gallery"
)

func TestAddRating(t *testing.T) {
	svc, _, _ := setupTestService(t)
	ctx := context.Background()

	owner := registerTestAuthor(t, svc, "rated-artist")
	rater := registerTestAuthor(t, svc, "critic")
	item := createTestItem(t, svc, owner.ID, "Night Harbor")

	t.Run("successful rating", func(t *testing.T) {
		before := time.Now().UTC()
		updated, err := svc.AddRating(ctx, gallery.AddRatingRequest{
			ItemID:   item.ID,
			AuthorID: rater.ID,
			Value:    4.5,
			Comment:  "  strong composition  ",
		})
		require.NoError(t, err)

		require.Len(t, updated.Ratings, 1)
		r := updated.Ratings[0]
		assert.Equal(t, rater.ID, r.AuthorID)
		assert.Equal(t, 4.5, r.Value)
		assert.Equal(t, "strong composition", r.Comment)
		assert.False(t, r.Timestamp.Before(before))
	})

	t.Run("second rating by the same author conflicts", func(t *testing.T) {
		_, err := svc.AddRating(ctx, gallery.AddRatingRequest{
			ItemID:   item.ID,
			AuthorID: rater.ID,
			Value:    3,
			Comment:  "changed my mind",
		})
		assert.ErrorIs(t, err, gallery.ErrDuplicateRating)

		got, err := svc.GetItem(ctx, item.ID)
		require.NoError(t, err)
		assert.Len(t, got.Ratings, 1)
	})

	t.Run("owner cannot rate their own item", func(t *testing.T) {
		_, err := svc.AddRating(ctx, gallery.AddRatingRequest{
			ItemID:   item.ID,
			AuthorID: owner.ID,
			Value:    5,
			Comment:  "love it",
		})
		assert.ErrorIs(t, err, gallery.ErrSelfRating)
	})

	t.Run("unknown item", func(t *testing.T) {
		_, err := svc.AddRating(ctx, gallery.AddRatingRequest{
			ItemID:   uuid.New(),
			AuthorID: rater.ID,
			Value:    3,
			Comment:  "ghost",
		})
		assert.ErrorIs(t, err, gallery.ErrItemNotFound)
	})
}

func TestAddRatingValidation(t *testing.T) {
	svc, _, _ := setupTestService(t)
	ctx := context.Background()

	owner := registerTestAuthor(t, svc, "bounds-artist")
	item := createTestItem(t, svc, owner.ID, "Bounds Study")

	longComment := make([]rune, gallery.MaxCommentLen+1)
	for i := range longComment {
		longComment[i] = 'c'
	}

	tests := []struct {
		name    string
		value   float64
		comment string
		wantErr bool
	}{
		{"minimum half star", 0.5, "ok", false},
		{"maximum five stars", 5, "ok", false},
		{"mid half step", 3.5, "ok", false},
		{"zero", 0, "ok", true},
		{"below minimum", 0.25, "ok", true},
		{"above maximum", 5.5, "ok", true},
		{"not a half step", 3.7, "ok", true},
		{"empty comment", 3, "", true},
		{"blank comment", 3, "   ", true},
		{"comment over limit", 3, string(longComment), true},
		{"comment at limit", 3, string(longComment[:gallery.MaxCommentLen]), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Fresh rater per case so the duplicate invariant never interferes.
			r := registerTestAuthor(t, svc, "bounds-"+uuid.NewString())

			_, err := svc.AddRating(ctx, gallery.AddRatingRequest{
				ItemID:   item.ID,
				AuthorID: r.ID,
				Value:    tt.value,
				Comment:  tt.comment,
			})
			if tt.wantErr {
				assert.ErrorIs(t, err, gallery.ErrValidation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestAddRatingConcurrentDuplicate(t *testing.T) {
	svc, _, _ := setupTestService(t)
	ctx := context.Background()

	owner := registerTestAuthor(t, svc, "race-artist")
	rater := registerTestAuthor(t, svc, "race-critic")
	item := createTestItem(t, svc, owner.ID, "Race Study")

	const attempts = 16
	var wg sync.WaitGroup
	errs := make([]error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.AddRating(ctx, gallery.AddRatingRequest{
				ItemID:   item.ID,
				AuthorID: rater.ID,
				Value:    4,
				Comment:  "concurrent",
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, gallery.ErrDuplicateRating)
		}
	}
	assert.Equal(t, 1, succeeded)

	got, err := svc.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Len(t, got.Ratings, 1)
}

func TestGetItemWithRatings(t *testing.T) {
	svc, _, _ := setupTestService(t)
	ctx := context.Background()

	owner := registerTestAuthor(t, svc, "viewed-artist")
	first := registerTestAuthor(t, svc, "first-critic")
	second := registerTestAuthor(t, svc, "second-critic")
	item := createTestItem(t, svc, owner.ID, "Viewed Piece")

	_, err := svc.AddRating(ctx, gallery.AddRatingRequest{
		ItemID: item.ID, AuthorID: first.ID, Value: 4, Comment: "earlier",
	})
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	_, err = svc.AddRating(ctx, gallery.AddRatingRequest{
		ItemID: item.ID, AuthorID: second.ID, Value: 5, Comment: "later",
	})
	require.NoError(t, err)

	view, err := svc.GetItemWithRatings(ctx, item.ID)
	require.NoError(t, err)

	assert.Equal(t, item.ID, view.Item.ID)
	assert.Equal(t, owner.Username, view.Owner.Username)

	require.Len(t, view.Ratings, 2)
	assert.Equal(t, "later", view.Ratings[0].Comment)
	assert.Equal(t, second.Username, view.Ratings[0].Author.Username)
	assert.Equal(t, "earlier", view.Ratings[1].Comment)

	assert.Equal(t, 4.5, view.Average)
	assert.Equal(t, 4.5, view.Stars)

	t.Run("unknown item", func(t *testing.T) {
		_, err := svc.GetItemWithRatings(ctx, uuid.New())
		assert.ErrorIs(t, err, gallery.ErrItemNotFound)
		var itemErr *gallery.ItemError
		assert.True(t, errors.As(err, &itemErr))
	})
}

func TestRoundHalfStep(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{0, 0},
		{0.24, 0},
		{0.25, 0.5},
		{3.2, 3},
		{3.26, 3.5},
		{4.74, 4.5},
		{4.76, 5},
		{5, 5},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, gallery.RoundHalfStep(tt.in), "RoundHalfStep(%v)", tt.in)
	}
}
