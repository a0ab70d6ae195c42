package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/ecobuddy/locator/apperr"
	"github.com/ecobuddy/locator/httpx"
)

const (
	// CSRFHeader carries the token on API calls.
	CSRFHeader = "X-CSRF-Token"
	// CSRFField carries the token in form submissions.
	CSRFField = "csrf_token"
)

// NewToken returns 32 random bytes hex encoded.
func NewToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// VerifyToken compares presented against the session token in constant time.
// A missing session, an empty token or a mismatch is an authorization error.
func VerifyToken(rc *RequestContext, presented string) error {
	if rc == nil || rc.CSRFToken == "" || presented == "" {
		return apperr.Authorization("missing CSRF token")
	}
	if subtle.ConstantTimeCompare([]byte(rc.CSRFToken), []byte(presented)) != 1 {
		return apperr.Authorization("CSRF token mismatch")
	}
	return nil
}

// CheckHeader validates the X-CSRF-Token header.
func CheckHeader(r *http.Request) error {
	return VerifyToken(FromContext(r.Context()), r.Header.Get(CSRFHeader))
}

// CheckForm validates the csrf_token body field. It parses the form.
func CheckForm(r *http.Request) error {
	return VerifyToken(FromContext(r.Context()), r.PostFormValue(CSRFField))
}

// RequireCSRF rejects state-changing requests that present neither a valid
// header token nor a valid form token.
func RequireCSRF(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		presented := r.Header.Get(CSRFHeader)
		if presented == "" && isForm(r) {
			presented = r.PostFormValue(CSRFField)
		}
		if err := VerifyToken(FromContext(r.Context()), presented); err != nil {
			httpx.Error(w, http.StatusForbidden, "Invalid CSRF token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func isForm(r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	return strings.HasPrefix(ct, "application/x-www-form-urlencoded") ||
		strings.HasPrefix(ct, "multipart/form-data")
}
