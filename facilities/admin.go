package facilities

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ecobuddy/locator/apperr"
	"github.com/ecobuddy/locator/auth"
	"github.com/ecobuddy/locator/httpx"
	"github.com/ecobuddy/locator/internal/coords"
	"github.com/ecobuddy/locator/logging"
	"github.com/ecobuddy/locator/metrics"
	"github.com/ecobuddy/locator/models"
	"github.com/ecobuddy/locator/rbac"
	"github.com/ecobuddy/locator/validation"
)

type facilityPayload struct {
	Title       string   `json:"title" form:"title" validate:"required,max=255"`
	CategoryID  int64    `json:"category" form:"category" validate:"required,gt=0"`
	Description string   `json:"description" form:"description" validate:"required,max=2000"`
	HouseNumber string   `json:"house_number" form:"house_number" validate:"max=32"`
	StreetName  string   `json:"street_name" form:"street_name" validate:"max=255"`
	Town        string   `json:"town" form:"town" validate:"max=128"`
	County      string   `json:"county" form:"county" validate:"max=128"`
	Postcode    string   `json:"postcode" form:"postcode" validate:"max=16"`
	Lat         *float64 `json:"lat" form:"lat" validate:"omitempty,latitude"`
	Lng         *float64 `json:"lng" form:"lng" validate:"omitempty,longitude"`
}

func (p *facilityPayload) normalize() {
	p.Title = strings.TrimSpace(p.Title)
	p.Description = strings.TrimSpace(p.Description)
	p.HouseNumber = strings.TrimSpace(p.HouseNumber)
	p.StreetName = strings.TrimSpace(p.StreetName)
	p.Town = strings.TrimSpace(p.Town)
	p.County = strings.TrimSpace(p.County)
	p.Postcode = strings.TrimSpace(p.Postcode)
}

func (p facilityPayload) input(contributor string) models.FacilityInput {
	return models.FacilityInput{
		Title:       p.Title,
		CategoryID:  p.CategoryID,
		Description: p.Description,
		HouseNumber: p.HouseNumber,
		StreetName:  p.StreetName,
		Town:        p.Town,
		County:      p.County,
		Postcode:    p.Postcode,
		Lat:         p.Lat,
		Lng:         p.Lng,
		Contributor: contributor,
	}
}

// AdminRoutes exposes facility maintenance to managers.
func (h *Handler) AdminRoutes(enforcer *rbac.Enforcer) chi.Router {
	r := chi.NewRouter()
	r.Use(enforcer.Authorize(rbac.PermissionManageFacilities), auth.RequireCSRF)
	r.Post("/", h.createFacility)
	r.Put("/{facilityID}", h.updateFacility)
	r.Delete("/{facilityID}", h.deleteFacility)
	return r
}

func (h *Handler) createFacility(w http.ResponseWriter, r *http.Request) {
	payload, err := decodeFacility(r)
	if err != nil {
		metrics.AdminWrite("create", "invalid")
		httpx.Fail(w, r, err)
		return
	}

	created, err := h.store.Create(r.Context(), payload.input(contributor(r)))
	if err != nil {
		metrics.AdminWrite("create", outcome(err))
		httpx.Fail(w, r, err)
		return
	}

	metrics.AdminWrite("create", "ok")
	logging.Ctx(r.Context()).Info().Int64("facility_id", created.ID).Str("contributor", created.Contributor).Msg("facility created")
	httpx.WriteJSON(w, http.StatusCreated, created)
}

func (h *Handler) updateFacility(w http.ResponseWriter, r *http.Request) {
	id, err := facilityIDParam(r)
	if err != nil {
		httpx.Fail(w, r, err)
		return
	}

	payload, err := decodeFacility(r)
	if err != nil {
		metrics.AdminWrite("update", "invalid")
		httpx.Fail(w, r, err)
		return
	}

	updated, err := h.store.Update(r.Context(), id, payload.input(""))
	if err != nil {
		metrics.AdminWrite("update", outcome(err))
		httpx.Fail(w, r, err)
		return
	}

	metrics.AdminWrite("update", "ok")
	logging.Ctx(r.Context()).Info().Int64("facility_id", id).Msg("facility updated")
	httpx.WriteJSON(w, http.StatusOK, updated)
}

func (h *Handler) deleteFacility(w http.ResponseWriter, r *http.Request) {
	id, err := facilityIDParam(r)
	if err != nil {
		httpx.Fail(w, r, err)
		return
	}

	if err := h.store.Delete(r.Context(), id); err != nil {
		metrics.AdminWrite("delete", outcome(err))
		httpx.Fail(w, r, err)
		return
	}

	metrics.AdminWrite("delete", "ok")
	logging.Ctx(r.Context()).Info().Int64("facility_id", id).Msg("facility deleted")
	w.WriteHeader(http.StatusNoContent)
}

// decodeFacility reads a JSON body or, for HTML form posts, the form fields.
func decodeFacility(r *http.Request) (facilityPayload, error) {
	var payload facilityPayload
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := httpx.DecodeJSON(r, &payload); err != nil {
			return payload, apperr.Validation("invalid JSON payload")
		}
	} else {
		if err := r.ParseForm(); err != nil {
			return payload, apperr.Validation("invalid form payload")
		}
		if raw := strings.TrimSpace(r.PostForm.Get("category")); raw != "" {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return payload, apperr.Validation("category must be an integer id")
			}
			payload.CategoryID = id
		}
		lat, lng, err := coords.ParseOptionalPair(r.PostForm.Get("lat"), r.PostForm.Get("lng"))
		if err != nil {
			return payload, apperr.Validation("lat/lng: %v", err)
		}
		payload.Title = r.PostForm.Get("title")
		payload.Description = r.PostForm.Get("description")
		payload.HouseNumber = r.PostForm.Get("house_number")
		payload.StreetName = r.PostForm.Get("street_name")
		payload.Town = r.PostForm.Get("town")
		payload.County = r.PostForm.Get("county")
		payload.Postcode = r.PostForm.Get("postcode")
		payload.Lat, payload.Lng = lat, lng
	}

	payload.normalize()
	if err := validation.Struct(payload); err != nil {
		return payload, err
	}
	if (payload.Lat == nil) != (payload.Lng == nil) {
		return payload, apperr.Validation("lat/lng: %v", coords.ErrUnpairedLoc)
	}
	return payload, nil
}

func contributor(r *http.Request) string {
	if rc := auth.FromContext(r.Context()); rc.Authenticated() {
		return rc.Principal.Username
	}
	return ""
}

func outcome(err error) string {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		return "invalid"
	case errors.Is(err, apperr.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}
