package rbac

import (
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"github.com/ecobuddy/locator/httpx"
)

// Handler reports what the caller may do.
type Handler struct {
	enforcer *Enforcer
}

func NewHandler(enforcer *Enforcer) *Handler {
	return &Handler{enforcer: enforcer}
}

// Routes registers the permission lookup. Guests are rejected.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.With(h.enforcer.Authorize(PermissionViewSession)).Get("/permissions", h.listPermissions)
	return r
}

type grants struct {
	Roles       []Role       `json:"roles"`
	Permissions []Permission `json:"permissions"`
}

func (h *Handler) listPermissions(w http.ResponseWriter, r *http.Request) {
	roles := h.enforcer.resolve(r)
	out := grants{Roles: roles, Permissions: []Permission{}}
	for permission := range RoleMatrix {
		if Grants(roles, permission) {
			out.Permissions = append(out.Permissions, permission)
		}
	}
	sort.Slice(out.Permissions, func(i, j int) bool { return out.Permissions[i] < out.Permissions[j] })
	httpx.WriteJSON(w, http.StatusOK, out)
}
