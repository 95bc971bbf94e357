package gallery_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artgrove/gallery/pkg/gallery"
)

func TestCompileMatcher(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		fields []string
		want   bool
	}{
		{"empty query matches everything", "", []string{"anything"}, true},
		{"whitespace query matches everything", "   ", []string{"anything"}, true},
		{"single term matches title", "sunset", []string{"Sunset Over the Bay"}, true},
		{"matching is case insensitive", "SUNSET", []string{"sunset over the bay"}, true},
		{"term matches as substring", "sun", []string{"Sunset Over the Bay"}, true},
		{"all terms must match", "sunset mountain", []string{"Sunset Over the Bay"}, false},
		{"terms may match different fields", "sunset ocean", []string{"Sunset Over the Bay", "ocean"}, true},
		{"no term matches", "portrait", []string{"Sunset Over the Bay", "ocean"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := gallery.CompileMatcher(tt.query)
			assert.Equal(t, tt.want, m.Match(tt.fields...))
		})
	}
}

func TestPageParamsNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   gallery.PageParams
		want gallery.PageParams
	}{
		{
			"zero value clamps to defaults",
			gallery.PageParams{},
			gallery.PageParams{Page: 1, PageSize: gallery.DefaultPageSize, Sort: gallery.SortDesc},
		},
		{
			"negative values clamp to defaults",
			gallery.PageParams{Page: -3, PageSize: -1},
			gallery.PageParams{Page: 1, PageSize: gallery.DefaultPageSize, Sort: gallery.SortDesc},
		},
		{
			"valid values pass through",
			gallery.PageParams{Page: 4, PageSize: 7, Sort: gallery.SortAsc},
			gallery.PageParams{Page: 4, PageSize: 7, Sort: gallery.SortAsc},
		},
		{
			"unknown sort clamps to descending",
			gallery.PageParams{Page: 2, PageSize: 5, Sort: gallery.SortDir("sideways")},
			gallery.PageParams{Page: 2, PageSize: 5, Sort: gallery.SortDesc},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.Normalize())
		})
	}

	t.Run("offset", func(t *testing.T) {
		p := gallery.PageParams{Page: 3, PageSize: 20}.Normalize()
		assert.Equal(t, 40, p.Offset())
	})
}

func TestSearchItems(t *testing.T) {
	svc, _, _ := setupTestService(t)
	ctx := context.Background()
	owner := registerTestAuthor(t, svc, "searcher")

	// Creation order matters for the sort assertions below.
	sunset := createTestItem(t, svc, owner.ID, "Sunset Over the Bay", "landscape", "ocean")
	time.Sleep(2 * time.Millisecond)
	market := createTestItem(t, svc, owner.ID, "Bay Market Still Life", "still-life", "bay")
	time.Sleep(2 * time.Millisecond)
	portrait := createTestItem(t, svc, owner.ID, "Portrait in Blue", "portrait")

	t.Run("empty query returns the whole catalog newest first", func(t *testing.T) {
		page, err := svc.SearchItems(ctx, "", gallery.PageParams{})
		require.NoError(t, err)

		assert.Equal(t, 3, page.Total)
		require.Len(t, page.Docs, 3)
		assert.Equal(t, portrait.ID, page.Docs[0].ID)
		assert.Equal(t, market.ID, page.Docs[1].ID)
		assert.Equal(t, sunset.ID, page.Docs[2].ID)
	})

	t.Run("terms match across title and tags", func(t *testing.T) {
		page, err := svc.SearchItems(ctx, "bay", gallery.PageParams{})
		require.NoError(t, err)
		assert.Equal(t, 2, page.Total)

		page, err = svc.SearchItems(ctx, "still-life", gallery.PageParams{})
		require.NoError(t, err)
		require.Len(t, page.Docs, 1)
		assert.Equal(t, market.ID, page.Docs[0].ID)
	})

	t.Run("all terms must match the same item", func(t *testing.T) {
		page, err := svc.SearchItems(ctx, "bay ocean", gallery.PageParams{})
		require.NoError(t, err)
		require.Len(t, page.Docs, 1)
		assert.Equal(t, sunset.ID, page.Docs[0].ID)

		page, err = svc.SearchItems(ctx, "bay portrait", gallery.PageParams{})
		require.NoError(t, err)
		assert.Equal(t, 0, page.Total)
		assert.Empty(t, page.Docs)
	})

	t.Run("pagination reports the full match count", func(t *testing.T) {
		page, err := svc.SearchItems(ctx, "bay", gallery.PageParams{Page: 1, PageSize: 1})
		require.NoError(t, err)

		assert.Equal(t, 2, page.Total)
		require.Len(t, page.Docs, 1)
		assert.Equal(t, market.ID, page.Docs[0].ID)

		page, err = svc.SearchItems(ctx, "bay", gallery.PageParams{Page: 2, PageSize: 1})
		require.NoError(t, err)
		require.Len(t, page.Docs, 1)
		assert.Equal(t, sunset.ID, page.Docs[0].ID)
	})

	t.Run("page past the end is empty but keeps the total", func(t *testing.T) {
		page, err := svc.SearchItems(ctx, "bay", gallery.PageParams{Page: 9, PageSize: 10})
		require.NoError(t, err)
		assert.Equal(t, 2, page.Total)
		assert.Empty(t, page.Docs)
	})

	t.Run("ascending sort is oldest first", func(t *testing.T) {
		page, err := svc.SearchItems(ctx, "bay", gallery.PageParams{Sort: gallery.SortAsc})
		require.NoError(t, err)
		require.Len(t, page.Docs, 2)
		assert.Equal(t, sunset.ID, page.Docs[0].ID)
		assert.Equal(t, market.ID, page.Docs[1].ID)
	})
}

func TestSearchAuthors(t *testing.T) {
	svc, _, _ := setupTestService(t)
	ctx := context.Background()

	ada, err := svc.RegisterAuthor(ctx, gallery.RegisterAuthorRequest{
		Names: "Ada", Lastnames: "Rivera", Username: "ariver", Email: "ada@example.com",
	})
	require.NoError(t, err)
	_, err = svc.RegisterAuthor(ctx, gallery.RegisterAuthorRequest{
		Names: "Bruno", Lastnames: "Stone", Username: "bstone", Email: "bruno@example.com",
	})
	require.NoError(t, err)

	t.Run("matches names lastnames and username", func(t *testing.T) {
		for _, query := range []string{"ada", "rivera", "ariver"} {
			page, err := svc.SearchAuthors(ctx, query, gallery.PageParams{})
			require.NoError(t, err)
			require.Len(t, page.Docs, 1, "query %q", query)
			assert.Equal(t, ada.ID, page.Docs[0].ID)
		}
	})

	t.Run("no match", func(t *testing.T) {
		page, err := svc.SearchAuthors(ctx, "nobody", gallery.PageParams{})
		require.NoError(t, err)
		assert.Equal(t, 0, page.Total)
	})
}
