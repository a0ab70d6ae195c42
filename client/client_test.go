package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/ecobuddy/locator/apperr"
	"github.com/ecobuddy/locator/auth"
	"github.com/ecobuddy/locator/facilities"
	"github.com/ecobuddy/locator/status"
	"github.com/ecobuddy/locator/storage"
	"github.com/ecobuddy/locator/storage/memory"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	store := memory.New(storage.SeedCategories)
	_, err := storage.SeedDirectory(context.Background(), store)
	require.NoError(t, err)
	require.NoError(t, auth.Bootstrap(context.Background(), store, "admin", "pw"))

	sessions, err := auth.NewSessionManager("client-test", time.Hour, false)
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(sessions.Middleware)
	r.Mount("/api/auth", auth.NewHandler(store, sessions).Routes())
	r.Mount("/api/facilities", facilities.NewHandler(store).Routes(nil))

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestClientRoundTrip(t *testing.T) {
	srv := newServer(t)
	ctx := context.Background()

	c, err := New(srv.URL + "/")
	require.NoError(t, err)

	results, err := c.Search(ctx, "bottle", "", "")
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.NotEmpty(t, c.Token(), "search fetched a session first")

	res, err := c.UpdateComment(ctx, results[0].ID, status.BinFull)
	require.NoError(t, err)
	require.Equal(t, status.BinFull, res.Comment)

	f, err := c.Facility(ctx, results[0].ID)
	require.NoError(t, err)
	require.Equal(t, status.BinFull, *f.Comments)

	_, err = c.UpdateComment(ctx, 424242, status.BinFull)
	require.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = c.UpdateComment(ctx, f.ID, "Totally broken")
	require.ErrorIs(t, err, apperr.ErrValidation)

	pins, err := c.Pins(ctx)
	require.NoError(t, err)
	require.Len(t, pins, 4)
}

func TestClientLogin(t *testing.T) {
	srv := newServer(t)
	ctx := context.Background()

	c, err := New(srv.URL)
	require.NoError(t, err)

	guest, err := c.Session(ctx)
	require.NoError(t, err)
	require.False(t, guest.Authenticated)

	s, err := c.Login(ctx, "admin", "pw")
	require.NoError(t, err)
	require.True(t, s.Authenticated)
	require.True(t, s.CanManage)
	require.NotEqual(t, guest.CSRFToken, c.Token())

	_, err = c.Login(ctx, "admin", "wrong")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
}

func TestStaleTokenIsForbidden(t *testing.T) {
	srv := newServer(t)
	c, err := New(srv.URL)
	require.NoError(t, err)
	c.setToken("stale")

	_, err = c.Search(context.Background(), "bin", "", "")
	require.ErrorIs(t, err, apperr.ErrAuthorization)
}

func TestIsTimeout(t *testing.T) {
	require.True(t, IsTimeout(context.DeadlineExceeded))
	require.False(t, IsTimeout(apperr.ErrStore))
}
