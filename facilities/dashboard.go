package facilities

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ecobuddy/locator/httpx"
	"github.com/ecobuddy/locator/metrics"
	"github.com/ecobuddy/locator/models"
	"github.com/ecobuddy/locator/search"
	"github.com/ecobuddy/locator/status"
)

type dashboardResponse struct {
	Page       int               `json:"page"`
	PageSize   int               `json:"page_size"`
	Total      int               `json:"total"`
	TotalPages int               `json:"total_pages"`
	Search     string            `json:"search"`
	SortOrder  string            `json:"sort_order"`
	Facilities []models.Facility `json:"facilities"`
	Pins       []models.Facility `json:"pins"`
	Categories []models.Category `json:"categories"`
	Towns      []string          `json:"towns"`
	Statuses   []status.Comment  `json:"statuses"`
}

// DashboardRoutes exposes the paged table and map data in one payload.
func (h *Handler) DashboardRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.dashboard)
	return r
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	page := httpx.ParsePositiveInt(params.Get("page"), 1)
	desc := search.ParseDirection(params.Get("sortOrder"))
	keyword := params.Get("search")

	result, err := h.store.Search(r.Context(), search.Query{
		Keyword: keyword,
		Offset:  search.OffsetForPage(page, search.PageSize),
		Limit:   search.PageSize,
		Sort:    search.Sort{Field: search.SortByTitle, Desc: desc},
	})
	if err != nil {
		httpx.Fail(w, r, err)
		return
	}

	pins, err := h.pins(r)
	if err != nil {
		httpx.Fail(w, r, err)
		return
	}
	categories, err := h.store.Categories(r.Context())
	if err != nil {
		httpx.Fail(w, r, err)
		return
	}
	towns, err := h.store.Towns(r.Context())
	if err != nil {
		httpx.Fail(w, r, err)
		return
	}

	sortOrder := "ASC"
	if desc {
		sortOrder = "DESC"
	}

	metrics.ObserveSearch("dashboard", len(result.Facilities))
	httpx.WriteJSON(w, http.StatusOK, dashboardResponse{
		Page:       page,
		PageSize:   search.PageSize,
		Total:      result.Total,
		TotalPages: search.TotalPages(result.Total, search.PageSize),
		Search:     keyword,
		SortOrder:  sortOrder,
		Facilities: nonNil(result.Facilities),
		Pins:       pins,
		Categories: categories,
		Towns:      towns,
		Statuses:   status.All(),
	})
}
