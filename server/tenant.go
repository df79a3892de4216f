package server

import (
	"net/http"
	"strings"
	"time"
)

// tenantFromRequest identifies the tenant from the X-User-Id header, then the
// userId cookie, then the userId query parameter. An empty result is the
// anonymous tenant.
func tenantFromRequest(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get(HeaderUserID)); id != "" {
		return id
	}
	if c, err := r.Cookie(CookieUserID); err == nil && c.Value != "" {
		return c.Value
	}
	return strings.TrimSpace(r.URL.Query().Get(ParamUserID))
}

func (s *Server) setTenantCookie(w http.ResponseWriter, r *http.Request, tenantID string) {
	if tenantID == "" {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieUserID,
		Value:    tenantID,
		Path:     "/",
		Expires:  time.Now().Add(30 * 24 * time.Hour),
		Secure:   getScheme(r) == "https",
		SameSite: http.SameSiteLaxMode,
	})
}

func clearTenantCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:   CookieUserID,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
}

// Helper function to determine the scheme (http/https)
func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}
