package facilities

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"

	"github.com/ecobuddy/locator/auth"
	"github.com/ecobuddy/locator/models"
	"github.com/ecobuddy/locator/rbac"
	"github.com/ecobuddy/locator/status"
	"github.com/ecobuddy/locator/storage"
	"github.com/ecobuddy/locator/storage/memory"
)

const token = "session-token"

var (
	guest   = &auth.RequestContext{SessionID: "g", CSRFToken: token}
	visitor = &auth.RequestContext{SessionID: "v", CSRFToken: token, Principal: &auth.Principal{AccountID: 2, Username: "sam", Roles: []string{"visitor"}}}
	manager = &auth.RequestContext{SessionID: "m", CSRFToken: token, Principal: &auth.Principal{AccountID: 1, Username: "admin", Roles: []string{"manager"}}}
	editor  = &auth.RequestContext{SessionID: "e", CSRFToken: token, Principal: &auth.Principal{AccountID: 3, Username: "root", Roles: []string{"manager"}}}
)

type fixture struct {
	t      *testing.T
	store  *memory.Store
	router http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.New(storage.SeedCategories)
	_, err := storage.SeedDirectory(context.Background(), store)
	require.NoError(t, err)

	h := NewHandler(store)
	r := chi.NewRouter()
	r.Mount("/api/facilities", h.Routes(nil))
	r.Mount("/api/dashboard", h.DashboardRoutes())
	r.Mount("/api/admin/facilities", h.AdminRoutes(rbac.NewEnforcer(auth.RequestRoles)))
	return &fixture{t: t, store: store, router: r}
}

func (f *fixture) do(rc *auth.RequestContext, method, target string, body io.Reader, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if rc != nil {
		req = req.WithContext(auth.WithRequestContext(req.Context(), rc))
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) searchAs(rc *auth.RequestContext, query string, header string) *httptest.ResponseRecorder {
	headers := map[string]string{}
	if header != "" {
		headers[auth.CSRFHeader] = header
	}
	return f.do(rc, http.MethodGet, "/api/facilities/search?"+query, nil, headers)
}

func (f *fixture) postForm(rc *auth.RequestContext, target string, form url.Values) *httptest.ResponseRecorder {
	return f.do(rc, http.MethodPost, target, strings.NewReader(form.Encode()),
		map[string]string{"Content-Type": "application/x-www-form-urlencoded"})
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestSearchRequiresToken(t *testing.T) {
	f := newFixture(t)

	rec := f.searchAs(guest, "q=bin", "")
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.JSONEq(t, `{"error":"Invalid CSRF token"}`, rec.Body.String())

	rec = f.searchAs(guest, "q=bin", "forged")
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.NotContains(t, rec.Body.String(), "Bottle")

	rec = f.searchAs(nil, "q=bin", token)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestSearch(t *testing.T) {
	f := newFixture(t)

	rec := f.searchAs(guest, "q=bottle", token)
	require.Equal(t, http.StatusOK, rec.Code)
	results := decode[[]models.Facility](t, rec)
	require.Len(t, results, 1)
	require.Equal(t, "Eccles Bottle Bank", results[0].Title)
	require.Equal(t, "Church Street", results[0].StreetName)
	require.NotNil(t, results[0].Lat)

	rec = f.searchAs(guest, "q=charg&category=2", token)
	results = decode[[]models.Facility](t, rec)
	require.Len(t, results, 1)
	require.Equal(t, "MediaCity Chargers", results[0].Title)

	rec = f.searchAs(guest, "q=&town=Manchester", token)
	results = decode[[]models.Facility](t, rec)
	require.Len(t, results, 2)

	rec = f.searchAs(guest, "q=zzz", token)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `[]`, rec.Body.String())

	rec = f.searchAs(guest, "q=bin&category=recycling", token)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchCapsResults(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 15; i++ {
		_, err := f.store.Create(context.Background(), models.FacilityInput{
			Title: fmt.Sprintf("Depot %d", i), CategoryID: 1, Description: "compost",
		})
		require.NoError(t, err)
	}

	rec := f.searchAs(guest, "q=compost", token)
	results := decode[[]models.Facility](t, rec)
	require.Len(t, results, 10)
	for i := 1; i < len(results); i++ {
		require.Less(t, results[i-1].ID, results[i].ID)
	}
}

func TestUpdateComment(t *testing.T) {
	f := newFixture(t)

	t.Run("method", func(t *testing.T) {
		rec := f.do(guest, http.MethodGet, "/api/facilities/comments", nil, nil)
		require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
		require.JSONEq(t, `{"success":false,"error":"Invalid request method."}`, rec.Body.String())
	})

	t.Run("token", func(t *testing.T) {
		rec := f.postForm(guest, "/api/facilities/comments", url.Values{
			"facility_id": {"1"}, "comments": {"Bin is full"}, "csrf_token": {"forged"},
		})
		require.Equal(t, http.StatusForbidden, rec.Code)
		require.JSONEq(t, `{"success":false,"error":"CSRF token validation failed."}`, rec.Body.String())
	})

	t.Run("invalid comment leaves value unchanged", func(t *testing.T) {
		require.NoError(t, f.store.UpdateComment(context.Background(), 1, status.OftenBusy))

		rec := f.postForm(guest, "/api/facilities/comments", url.Values{
			"facility_id": {"1"}, "comments": {"Totally broken"}, "csrf_token": {token},
		})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		resp := decode[commentResponse](t, rec)
		require.False(t, resp.Success)
		require.NotEmpty(t, resp.Error)

		got, err := f.store.Get(context.Background(), 1)
		require.NoError(t, err)
		require.Equal(t, status.OftenBusy, *got.Comments)
	})

	t.Run("missing fields", func(t *testing.T) {
		rec := f.postForm(guest, "/api/facilities/comments", url.Values{"csrf_token": {token}})
		require.Equal(t, http.StatusBadRequest, rec.Code)

		rec = f.postForm(guest, "/api/facilities/comments", url.Values{
			"facility_id": {"one"}, "comments": {"Bin is full"}, "csrf_token": {token},
		})
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown facility", func(t *testing.T) {
		rec := f.postForm(guest, "/api/facilities/comments", url.Values{
			"facility_id": {"999999"}, "comments": {"Not working"}, "csrf_token": {token},
		})
		require.Equal(t, http.StatusNotFound, rec.Code)
		resp := decode[commentResponse](t, rec)
		require.False(t, resp.Success)
	})

	t.Run("round trip", func(t *testing.T) {
		rec := f.postForm(guest, "/api/facilities/comments", url.Values{
			"facility_id": {"2"}, "comments": {"Great to charge your phone but bring a cable"}, "csrf_token": {token},
		})
		require.Equal(t, http.StatusOK, rec.Code)
		require.JSONEq(t, `{
			"success": true,
			"message": "Comment updated successfully.",
			"data": {"facility_id": 2, "comment": "Great to charge your phone but bring a cable"}
		}`, rec.Body.String())

		rec = f.do(guest, http.MethodGet, "/api/facilities/2", nil, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		got := decode[models.Facility](t, rec)
		require.Equal(t, status.BringCable, *got.Comments)
	})
}

func TestGetFacility(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, http.StatusNotFound, f.do(guest, http.MethodGet, "/api/facilities/404", nil, nil).Code)
	require.Equal(t, http.StatusBadRequest, f.do(guest, http.MethodGet, "/api/facilities/abc", nil, nil).Code)
}

func TestLookups(t *testing.T) {
	f := newFixture(t)

	rec := f.do(guest, http.MethodGet, "/api/facilities/towns", nil, nil)
	require.JSONEq(t, `["Eccles","Manchester","Salford"]`, rec.Body.String())

	rec = f.do(guest, http.MethodGet, "/api/facilities/categories", nil, nil)
	cats := decode[[]models.Category](t, rec)
	require.Len(t, cats, 4)
	require.Equal(t, "Bike Share", cats[0].Name)

	rec = f.do(guest, http.MethodGet, "/api/facilities/statuses", nil, nil)
	statuses := decode[[]string](t, rec)
	require.Len(t, statuses, 7)
	require.Equal(t, "Bin is full", statuses[0])

	rec = f.do(guest, http.MethodGet, "/api/facilities/pins", nil, nil)
	pins := decode[[]models.Facility](t, rec)
	require.Len(t, pins, 4, "the kiosk has no coordinates")
}

func TestDashboard(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 12; i++ {
		_, err := f.store.Create(context.Background(), models.FacilityInput{
			Title: fmt.Sprintf("Zone %02d", i), CategoryID: 3, Description: "dock",
		})
		require.NoError(t, err)
	}

	rec := f.do(guest, http.MethodGet, "/api/dashboard?page=2&search=dock&sortOrder=DESC", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[dashboardResponse](t, rec)
	require.Equal(t, 2, resp.Page)
	require.Equal(t, 10, resp.PageSize)
	require.Equal(t, 13, resp.Total, "twelve zones plus the seeded bike dock")
	require.Equal(t, 2, resp.TotalPages)
	require.Equal(t, "DESC", resp.SortOrder)
	require.Len(t, resp.Facilities, 3)
	require.Equal(t, "Zone 01", resp.Facilities[0].Title)
	require.Equal(t, "Piccadilly Bike Dock", resp.Facilities[2].Title)
	require.Len(t, resp.Pins, 4)
	require.Len(t, resp.Statuses, 7)

	rec = f.do(guest, http.MethodGet, "/api/dashboard?page=-3&sortOrder=sideways", nil, nil)
	resp = decode[dashboardResponse](t, rec)
	require.Equal(t, 1, resp.Page)
	require.Equal(t, "ASC", resp.SortOrder)
	require.Equal(t, 17, resp.Total)
	require.Equal(t, "Eccles Bottle Bank", resp.Facilities[0].Title)

	rec = f.do(guest, http.MethodGet, "/api/dashboard?page=99", nil, nil)
	resp = decode[dashboardResponse](t, rec)
	require.Empty(t, resp.Facilities)
	require.NotNil(t, resp.Facilities)

	for _, page := range []string{"922337203685477582", "1844674407370955163"} {
		rec = f.do(guest, http.MethodGet, "/api/dashboard?page="+page, nil, nil)
		require.Equal(t, http.StatusOK, rec.Code, page)
		resp = decode[dashboardResponse](t, rec)
		require.Empty(t, resp.Facilities, page)
		require.Equal(t, 17, resp.Total, page)
	}
}

func TestAdminAuthorization(t *testing.T) {
	f := newFixture(t)
	body := `{"title":"Dock","category":3,"description":"bikes"}`
	headers := map[string]string{"Content-Type": "application/json", auth.CSRFHeader: token}

	require.Equal(t, http.StatusUnauthorized, f.do(guest, http.MethodPost, "/api/admin/facilities/", strings.NewReader(body), headers).Code)
	require.Equal(t, http.StatusForbidden, f.do(visitor, http.MethodPost, "/api/admin/facilities/", strings.NewReader(body), headers).Code)

	noToken := map[string]string{"Content-Type": "application/json"}
	require.Equal(t, http.StatusForbidden, f.do(manager, http.MethodPost, "/api/admin/facilities/", strings.NewReader(body), noToken).Code)
}

func TestAdminCrud(t *testing.T) {
	f := newFixture(t)
	jsonHeaders := map[string]string{"Content-Type": "application/json", auth.CSRFHeader: token}

	rec := f.do(manager, http.MethodPost, "/api/admin/facilities/",
		strings.NewReader(`{"title":"  Salford Quays Dock ","category":3,"description":"bikes","town":"Salford","lat":53.47,"lng":-2.29}`), jsonHeaders)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[models.Facility](t, rec)
	require.Equal(t, "Salford Quays Dock", created.Title)
	require.Equal(t, "admin", created.Contributor)
	require.Equal(t, "Bike Share", created.CategoryName)

	cases := map[string]string{
		"missing title":    `{"category":3,"description":"bikes"}`,
		"blank title":      `{"title":"   ","category":3,"description":"bikes"}`,
		"missing category": `{"title":"x","description":"bikes"}`,
		"unknown category": `{"title":"x","category":77,"description":"bikes"}`,
		"bad latitude":     `{"title":"x","category":3,"description":"d","lat":123,"lng":1}`,
		"half coordinates": `{"title":"x","category":3,"description":"d","lat":12}`,
		"unknown field":    `{"title":"x","category":3,"description":"d","rating":5}`,
	}
	for name, body := range cases {
		rec := f.do(manager, http.MethodPost, "/api/admin/facilities/", strings.NewReader(body), jsonHeaders)
		require.Equal(t, http.StatusBadRequest, rec.Code, name)
	}

	form := url.Values{
		"title": {"Form Dock"}, "category": {"3"}, "description": {"bikes"},
		"lat": {"53.5"}, "lng": {"-2.3"}, "csrf_token": {token},
	}
	rec = f.do(editor, http.MethodPut, fmt.Sprintf("/api/admin/facilities/%d", created.ID),
		strings.NewReader(form.Encode()), map[string]string{"Content-Type": "application/x-www-form-urlencoded"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[models.Facility](t, rec)
	require.Equal(t, "Form Dock", updated.Title)
	require.InDelta(t, 53.5, *updated.Lat, 1e-9)
	require.Equal(t, "admin", updated.Contributor, "another manager's edit keeps the original contributor")

	form.Set("lat", "north")
	rec = f.do(manager, http.MethodPut, fmt.Sprintf("/api/admin/facilities/%d", created.ID),
		strings.NewReader(form.Encode()), map[string]string{"Content-Type": "application/x-www-form-urlencoded"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(manager, http.MethodPut, "/api/admin/facilities/999",
		strings.NewReader(`{"title":"x","category":3,"description":"d"}`), jsonHeaders)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(manager, http.MethodDelete, fmt.Sprintf("/api/admin/facilities/%d", created.ID), nil, jsonHeaders)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = f.do(manager, http.MethodDelete, fmt.Sprintf("/api/admin/facilities/%d", created.ID), nil, jsonHeaders)
	require.Equal(t, http.StatusNotFound, rec.Code)
}
