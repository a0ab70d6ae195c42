package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/ecobuddy/locator/apperr"
	"github.com/ecobuddy/locator/httpx"
	"github.com/ecobuddy/locator/logging"
	"github.com/ecobuddy/locator/models"
	"github.com/ecobuddy/locator/rbac"
	"github.com/ecobuddy/locator/storage"
)

// dummyHash keeps the failed-lookup path as slow as a real comparison.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("locator-dummy-password"), bcrypt.DefaultCost)

// Handler manages password login and the session lifecycle.
type Handler struct {
	users    storage.UserStore
	sessions *SessionManager
}

// NewHandler constructs an auth handler.
func NewHandler(users storage.UserStore, sessions *SessionManager) *Handler {
	return &Handler{users: users, sessions: sessions}
}

// Routes exposes the auth endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/login", h.login)
	r.Get("/session", h.sessionInfo)
	r.With(RequireCSRF).Post("/logout", h.logout)
	return r
}

type sessionResponse struct {
	Authenticated bool     `json:"authenticated"`
	Username      string   `json:"username,omitempty"`
	Roles         []string `json:"roles"`
	CanManage     bool     `json:"can_manage"`
	CSRFToken     string   `json:"csrf_token"`
}

func newSessionResponse(rc *RequestContext) sessionResponse {
	resp := sessionResponse{Roles: []string{}, CSRFToken: rc.CSRFToken}
	if rc.Authenticated() {
		resp.Authenticated = true
		resp.Username = rc.Principal.Username
		resp.Roles = rc.Principal.Roles
		resp.CanManage = rbac.Grants(Roles(rc), rbac.PermissionManageFacilities)
	}
	return resp
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	if err := CheckForm(r); err != nil {
		httpx.Error(w, http.StatusForbidden, "Invalid CSRF token")
		return
	}

	username := strings.TrimSpace(r.PostFormValue("username"))
	password := r.PostFormValue("password")
	if username == "" || password == "" {
		httpx.Error(w, http.StatusBadRequest, "username and password are required")
		return
	}
	if r.PostFormValue("human_check") == "" {
		httpx.Error(w, http.StatusBadRequest, "please confirm you are not a robot")
		return
	}

	user, err := h.users.UserByUsername(r.Context(), username)
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		httpx.Fail(w, r, err)
		return
	}

	hash := dummyHash
	if err == nil {
		hash = []byte(user.PasswordHash)
	}
	if cmpErr := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil || cmpErr != nil {
		logging.Ctx(r.Context()).Info().Str("username", username).Msg("login rejected")
		httpx.Error(w, http.StatusUnauthorized, "invalid username or password")
		return
	}

	roles := rbac.RolesFor(user.Type)
	principal := &Principal{AccountID: user.ID, Username: user.Username, Roles: make([]string, 0, len(roles))}
	for _, role := range roles {
		principal.Roles = append(principal.Roles, string(role))
	}

	rc, _, err := h.sessions.Issue(w, principal)
	if err != nil {
		httpx.Fail(w, r, err)
		return
	}

	logging.Ctx(r.Context()).Info().Str("username", user.Username).Strs("roles", principal.Roles).Msg("login succeeded")
	httpx.WriteJSON(w, http.StatusOK, newSessionResponse(rc))
}

func (h *Handler) sessionInfo(w http.ResponseWriter, r *http.Request) {
	rc := FromContext(r.Context())
	if rc == nil {
		httpx.Error(w, http.StatusUnauthorized, "no session")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, newSessionResponse(rc))
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	rc, _, err := h.sessions.Issue(w, nil)
	if err != nil {
		h.sessions.Clear(w)
		httpx.Fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, newSessionResponse(rc))
}

// Roles returns the RBAC roles of the caller described by rc.
func Roles(rc *RequestContext) []rbac.Role {
	if !rc.Authenticated() {
		return nil
	}
	roles := make([]rbac.Role, 0, len(rc.Principal.Roles))
	for _, role := range rc.Principal.Roles {
		roles = append(roles, rbac.Role(role))
	}
	return roles
}

// RequestRoles is an rbac.RoleResolver reading the request's session.
func RequestRoles(r *http.Request) []rbac.Role {
	return Roles(FromContext(r.Context()))
}

// Bootstrap makes sure a manager account exists for username. An existing
// account keeps its password.
func Bootstrap(ctx context.Context, users storage.UserStore, username, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return users.EnsureUser(ctx, username, string(hash), models.UserTypeManager)
}
