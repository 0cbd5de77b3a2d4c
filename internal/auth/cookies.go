// ABOUTME: Narrow cookie read/write capabilities with net/http adapters
// ABOUTME: Keeps the session store decoupled from concrete request/response types

package auth

import (
	"net/http"
	"time"
)

// CookieReader reads a named cookie from an inbound request.
type CookieReader interface {
	// Cookie returns the value of the named cookie and whether it was
	// present with a non-empty value.
	Cookie(name string) (string, bool)
}

// CookieWriter sets or clears a named cookie on an outbound response.
type CookieWriter interface {
	SetCookie(name, value string, opts CookieOptions)
	ClearCookie(name string, opts CookieOptions)
}

// CookieOptions carry the attributes shared by set and clear operations.
type CookieOptions struct {
	Path     string
	MaxAge   time.Duration
	HTTPOnly bool
	Secure   bool
}

// RequestCookies adapts an *http.Request to the CookieReader capability.
func RequestCookies(r *http.Request) CookieReader {
	return requestCookies{r: r}
}

type requestCookies struct {
	r *http.Request
}

func (c requestCookies) Cookie(name string) (string, bool) {
	cookie, err := c.r.Cookie(name)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}

// ResponseCookies adapts an http.ResponseWriter to the CookieWriter capability.
func ResponseCookies(w http.ResponseWriter) CookieWriter {
	return responseCookies{w: w}
}

type responseCookies struct {
	w http.ResponseWriter
}

func (c responseCookies) SetCookie(name, value string, opts CookieOptions) {
	http.SetCookie(c.w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     opts.Path,
		MaxAge:   int(opts.MaxAge.Seconds()),
		Expires:  time.Now().Add(opts.MaxAge),
		HttpOnly: opts.HTTPOnly,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (c responseCookies) ClearCookie(name string, opts CookieOptions) {
	http.SetCookie(c.w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     opts.Path,
		MaxAge:   -1,
		HttpOnly: opts.HTTPOnly,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
