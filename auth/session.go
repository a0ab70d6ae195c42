package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ecobuddy/locator/logging"
)

// Principal is a signed-in account.
type Principal struct {
	AccountID int64    `json:"account_id"`
	Username  string   `json:"username"`
	Roles     []string `json:"roles"`
}

// Claims is the signed session payload. Guests carry no principal but still
// hold an anti-forgery token.
type Claims struct {
	jwt.RegisteredClaims
	Principal *Principal `json:"principal,omitempty"`
	CSRFToken string     `json:"csrf"`
}

// RequestContext is what handlers learn about the caller: who they are, if
// anyone, and which anti-forgery token their session holds.
type RequestContext struct {
	SessionID string
	Principal *Principal
	CSRFToken string
}

// Authenticated reports whether a principal is present.
func (rc *RequestContext) Authenticated() bool {
	return rc != nil && rc.Principal != nil
}

type contextKey string

const requestContextKey contextKey = "authRequestContext"

// SessionManager signs and verifies session tokens stored as HTTP cookies or
// bearer tokens.
type SessionManager struct {
	secret     []byte
	cookieName string
	lifetime   time.Duration
	secure     bool
	now        func() time.Time
}

// NewSessionManager constructs a session manager with the provided HMAC
// secret.
func NewSessionManager(secret string, lifetime time.Duration, secure bool) (*SessionManager, error) {
	trimmed := strings.TrimSpace(secret)
	if trimmed == "" {
		return nil, errors.New("session secret must be configured")
	}
	if lifetime <= 0 {
		lifetime = 24 * time.Hour
	}

	return &SessionManager{
		secret:     []byte(trimmed),
		cookieName: "locator_session",
		lifetime:   lifetime,
		secure:     secure,
		now:        time.Now,
	}, nil
}

// Issue starts a new session for principal (nil for a guest) with a fresh
// anti-forgery token, writes the cookie and returns the request context.
func (m *SessionManager) Issue(w http.ResponseWriter, principal *Principal) (*RequestContext, string, error) {
	csrf, err := NewToken()
	if err != nil {
		return nil, "", err
	}

	now := m.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.lifetime)),
		},
		Principal: principal,
		CSRFToken: csrf,
	}
	if principal != nil {
		claims.Subject = principal.Username
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return nil, "", fmt.Errorf("sign session: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  claims.ExpiresAt.Time,
	})

	return &RequestContext{SessionID: claims.ID, Principal: principal, CSRFToken: csrf}, token, nil
}

// Clear removes the session cookie from the response.
func (m *SessionManager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
	})
}

// Middleware resolves the session for every request. Requests without a
// usable session get a fresh guest session so that every caller holds an
// anti-forgery token.
func (m *SessionManager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var rc *RequestContext
		if token := m.extractToken(r); token != "" {
			claims, err := m.verify(token)
			if err == nil {
				rc = &RequestContext{SessionID: claims.ID, Principal: claims.Principal, CSRFToken: claims.CSRFToken}
			} else {
				logging.Ctx(r.Context()).Debug().Err(err).Msg("discarding unusable session")
			}
		}

		if rc == nil {
			issued, _, err := m.Issue(w, nil)
			if err != nil {
				logging.Ctx(r.Context()).Error().Err(err).Msg("failed to issue guest session")
				http.Error(w, "session unavailable", http.StatusInternalServerError)
				return
			}
			rc = issued
		}

		next.ServeHTTP(w, r.WithContext(WithRequestContext(r.Context(), rc)))
	})
}

func (m *SessionManager) extractToken(r *http.Request) string {
	if c, err := r.Cookie(m.cookieName); err == nil && c.Value != "" {
		return c.Value
	}

	authz := strings.TrimSpace(r.Header.Get("Authorization"))
	if authz == "" {
		return ""
	}

	if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
		return ""
	}

	return strings.TrimSpace(authz[len("bearer "):])
}

func (m *SessionManager) verify(raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, err
	}
	if claims.CSRFToken == "" {
		return nil, errors.New("session carries no csrf token")
	}
	return claims, nil
}

// WithRequestContext stores rc in ctx.
func WithRequestContext(ctx context.Context, rc *RequestContext) context.Context {
	return context.WithValue(ctx, requestContextKey, rc)
}

// FromContext retrieves the caller's request context, if any.
func FromContext(ctx context.Context) *RequestContext {
	if ctx == nil {
		return nil
	}
	rc, _ := ctx.Value(requestContextKey).(*RequestContext)
	return rc
}
