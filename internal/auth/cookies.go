package auth

import (
	"net/http"
	"time"
)

// Cookie names shared with the browser client.
const (
	CookieAccessToken   = "access_token"
	CookieAdmin         = "admin"
	CookieAdminUserinfo = "admin_userinfo"
)

// CookieConfig controls the attributes of every session cookie.
type CookieConfig struct {
	Secure   bool
	SameSite http.SameSite
	MaxAge   time.Duration
}

// Set writes an HttpOnly session cookie.
func (c CookieConfig) Set(w http.ResponseWriter, name, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(c.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: c.SameSite,
	})
}

// Clear expires the named cookie.
func (c CookieConfig) Clear(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: c.SameSite,
	})
}

// ClearAll expires every session cookie.
func (c CookieConfig) ClearAll(w http.ResponseWriter) {
	for _, name := range []string{CookieAccessToken, CookieAdmin, CookieAdminUserinfo} {
		c.Clear(w, name)
	}
}

// ParseSameSite maps a config value to http.SameSite. ok is false for
// unknown values.
func ParseSameSite(s string) (mode http.SameSite, ok bool) {
	switch s {
	case "", "lax", "Lax":
		return http.SameSiteLaxMode, true
	case "strict", "Strict":
		return http.SameSiteStrictMode, true
	case "none", "None":
		return http.SameSiteNoneMode, true
	default:
		return http.SameSiteDefaultMode, false
	}
}
