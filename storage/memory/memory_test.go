package memory

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ecobuddy/locator/apperr"
	"github.com/ecobuddy/locator/models"
	"github.com/ecobuddy/locator/search"
	"github.com/ecobuddy/locator/status"
	"github.com/ecobuddy/locator/storage"
)

func newSeeded(t *testing.T) *Store {
	t.Helper()
	st := New(storage.SeedCategories)
	n, err := storage.SeedDirectory(context.Background(), st)
	require.NoError(t, err)
	require.Equal(t, len(storage.SeedFacilities), n)
	return st
}

func TestSeedDirectoryIsIdempotent(t *testing.T) {
	st := newSeeded(t)
	n, err := storage.SeedDirectory(context.Background(), st)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestCountMatchesUnpagedListing(t *testing.T) {
	ctx := context.Background()
	st := newSeeded(t)
	recycling := int64(1)

	queries := []search.Query{
		{},
		{Keyword: "bin"},
		{Keyword: "glass", CategoryID: &recycling},
		{Town: "Salford"},
		{Keyword: "nothing matches this"},
	}
	for _, q := range queries {
		all, err := st.All(ctx, q)
		require.NoError(t, err)
		count, err := st.Count(ctx, q)
		require.NoError(t, err)
		require.Equal(t, len(all), count, "query %+v", q)

		q.Limit = 2
		page, err := st.Search(ctx, q)
		require.NoError(t, err)
		require.Equal(t, count, page.Total)
	}
}

func TestPagesConcatenateWithoutGapsOrDuplicates(t *testing.T) {
	ctx := context.Background()
	st := New(storage.SeedCategories)
	for i := 0; i < 23; i++ {
		_, err := st.Create(ctx, models.FacilityInput{
			Title: fmt.Sprintf("Bin %02d", i), CategoryID: 1, Description: "bank",
		})
		require.NoError(t, err)
	}

	for _, limit := range []int{1, 4, 10, 23, 50} {
		var ids []int64
		for offset := 0; offset < 23; offset += limit {
			page, err := st.Search(ctx, search.Query{Keyword: "bin", Offset: offset, Limit: limit})
			require.NoError(t, err)
			for _, f := range page.Facilities {
				ids = append(ids, f.ID)
			}
		}
		require.Len(t, ids, 23, "limit %d", limit)
		for i := range ids {
			require.Equal(t, int64(i+1), ids[i])
		}
	}
}

func TestSearchRejectsInvalidPaging(t *testing.T) {
	st := newSeeded(t)
	_, err := st.Search(context.Background(), search.Query{Limit: 0})
	require.ErrorIs(t, err, apperr.ErrValidation)
	_, err = st.Search(context.Background(), search.Query{Offset: -1, Limit: 10})
	require.ErrorIs(t, err, apperr.ErrValidation)
}

func TestSearchScenarios(t *testing.T) {
	ctx := context.Background()
	st := newSeeded(t)

	page, err := st.Search(ctx, search.Query{Keyword: "BOTTLE", Limit: 10})
	require.NoError(t, err)
	require.Len(t, page.Facilities, 1)
	require.Equal(t, "Eccles Bottle Bank", page.Facilities[0].Title)

	page, err = st.Search(ctx, search.Query{Keyword: "recycling", Limit: 10})
	require.NoError(t, err)
	require.Equal(t, 2, page.Total, "category name matches too")

	charger := int64(2)
	page, err = st.Search(ctx, search.Query{Keyword: "charg", CategoryID: &charger, Limit: 10})
	require.NoError(t, err)
	require.Len(t, page.Facilities, 1)
	require.Equal(t, "MediaCity Chargers", page.Facilities[0].Title)

	page, err = st.Search(ctx, search.Query{Town: "Manchester", Limit: 10})
	require.NoError(t, err)
	require.Equal(t, 2, page.Total)
}

func TestCommentRoundTrip(t *testing.T) {
	ctx := context.Background()
	st := newSeeded(t)

	require.NoError(t, st.UpdateComment(ctx, 1, status.BinFull))
	f, err := st.Get(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, f.Comments)
	require.Equal(t, status.BinFull, *f.Comments)

	err = st.UpdateComment(ctx, 1, status.Comment("Totally broken"))
	require.ErrorIs(t, err, apperr.ErrValidation)
	f, err = st.Get(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, status.BinFull, *f.Comments)

	err = st.UpdateComment(ctx, 999, status.NotWorking)
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestCrud(t *testing.T) {
	ctx := context.Background()
	st := newSeeded(t)

	_, err := st.Create(ctx, models.FacilityInput{Title: "x", CategoryID: 42, Description: "y"})
	require.ErrorIs(t, err, apperr.ErrValidation)

	created, err := st.Create(ctx, models.FacilityInput{Title: "Dock", CategoryID: 3, Description: "bikes", Town: "Bolton", Contributor: "admin"})
	require.NoError(t, err)
	require.Equal(t, "Bike Share", created.CategoryName)

	updated, err := st.Update(ctx, created.ID, models.FacilityInput{Title: "Dock 2", CategoryID: 3, Description: "bikes", Contributor: "root"})
	require.NoError(t, err)
	require.Equal(t, "Dock 2", updated.Title)
	require.Equal(t, "admin", updated.Contributor, "edits keep the original contributor")

	require.NoError(t, st.Delete(ctx, created.ID))
	_, err = st.Get(ctx, created.ID)
	require.ErrorIs(t, err, apperr.ErrNotFound)
	require.ErrorIs(t, st.Delete(ctx, created.ID), apperr.ErrNotFound)
	_, err = st.Update(ctx, created.ID, models.FacilityInput{CategoryID: 3})
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestLookups(t *testing.T) {
	ctx := context.Background()
	st := newSeeded(t)

	cats, err := st.Categories(ctx)
	require.NoError(t, err)
	names := make([]string, 0, len(cats))
	for _, c := range cats {
		names = append(names, c.Name)
	}
	require.Equal(t, []string{"Bike Share", "EV Charger", "Phone Charging", "Recycling"}, names)

	towns, err := st.Towns(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"Eccles", "Manchester", "Salford"}, towns)
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	st := New(nil)

	require.NoError(t, st.EnsureUser(ctx, "admin", "hash-1", models.UserTypeManager))
	require.NoError(t, st.EnsureUser(ctx, "admin", "hash-2", models.UserTypeVisitor))

	u, err := st.UserByUsername(ctx, "admin")
	require.NoError(t, err)
	require.Equal(t, "hash-1", u.PasswordHash)
	require.Equal(t, models.UserTypeManager, u.Type)

	_, err = st.UserByUsername(ctx, "ghost")
	require.ErrorIs(t, err, apperr.ErrNotFound)
}
