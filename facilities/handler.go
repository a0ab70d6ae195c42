// Package facilities serves the facility directory: live search, the
// dashboard listing, lookups, status comments and admin maintenance.
package facilities

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ecobuddy/locator/apperr"
	"github.com/ecobuddy/locator/auth"
	"github.com/ecobuddy/locator/httpx"
	"github.com/ecobuddy/locator/metrics"
	"github.com/ecobuddy/locator/models"
	"github.com/ecobuddy/locator/search"
	"github.com/ecobuddy/locator/status"
	"github.com/ecobuddy/locator/storage"
)

type Handler struct {
	store storage.FacilityStore
}

func NewHandler(store storage.FacilityStore) *Handler {
	return &Handler{store: store}
}

// Routes exposes the public facility endpoints. searchLimit throttles the
// live search route; pass nil to disable it.
func (h *Handler) Routes(searchLimit func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	if searchLimit != nil {
		r.With(searchLimit).Get("/search", h.search)
	} else {
		r.Get("/search", h.search)
	}
	r.HandleFunc("/comments", h.updateComment)
	r.Get("/categories", h.listCategories)
	r.Get("/towns", h.listTowns)
	r.Get("/statuses", h.listStatuses)
	r.Get("/pins", h.listPins)
	r.Get("/{facilityID}", h.getFacility)
	return r
}

func (h *Handler) search(w http.ResponseWriter, r *http.Request) {
	if err := auth.CheckHeader(r); err != nil {
		httpx.Error(w, http.StatusForbidden, "Invalid CSRF token")
		return
	}

	params := r.URL.Query()
	categoryID, err := parseOptionalID(params.Get("category"))
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, "category must be an integer id")
		return
	}

	page, err := h.store.Search(r.Context(), search.Query{
		Keyword:    params.Get("q"),
		CategoryID: categoryID,
		Town:       params.Get("town"),
		Limit:      search.MaxResults,
	})
	if err != nil {
		httpx.Fail(w, r, err)
		return
	}

	metrics.ObserveSearch("live", len(page.Facilities))
	httpx.WriteJSON(w, http.StatusOK, nonNil(page.Facilities))
}

func (h *Handler) getFacility(w http.ResponseWriter, r *http.Request) {
	id, err := facilityIDParam(r)
	if err != nil {
		httpx.Fail(w, r, err)
		return
	}

	facility, err := h.store.Get(r.Context(), id)
	if err != nil {
		httpx.Fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, facility)
}

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.store.Categories(r.Context())
	if err != nil {
		httpx.Fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, categories)
}

func (h *Handler) listTowns(w http.ResponseWriter, r *http.Request) {
	towns, err := h.store.Towns(r.Context())
	if err != nil {
		httpx.Fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, towns)
}

func (h *Handler) listStatuses(w http.ResponseWriter, _ *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, status.All())
}

func (h *Handler) listPins(w http.ResponseWriter, r *http.Request) {
	pins, err := h.pins(r)
	if err != nil {
		httpx.Fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, pins)
}

// pins returns every facility that can be placed on the map.
func (h *Handler) pins(r *http.Request) ([]models.Facility, error) {
	all, err := h.store.All(r.Context(), search.Query{})
	if err != nil {
		return nil, err
	}
	located := make([]models.Facility, 0, len(all))
	for _, f := range all {
		if f.Located() {
			located = append(located, f)
		}
	}
	return located, nil
}

func facilityIDParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "facilityID"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validation("invalid facility id")
	}
	return id, nil
}

func parseOptionalID(value string) (*int64, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func nonNil(in []models.Facility) []models.Facility {
	if in == nil {
		return []models.Facility{}
	}
	return in
}
