// ABOUTME: Trusted-header identity extraction for internal users
// ABOUTME: Reads oauth2-proxy style headers with simplified-header fallbacks

package auth

import (
	"net/http"
	"strings"
)

// Header names injected by the upstream reverse proxy. The primary names are
// the oauth2-proxy defaults; the X-Email/X-User pair is the simplified form
// some nginx setups emit.
const (
	HeaderEmail         = "X-Auth-Request-Email"
	HeaderEmailFallback = "X-Email"
	HeaderUser          = "X-Auth-Request-User"
	HeaderUserFallback  = "X-User"
	HeaderGroups        = "X-Auth-Request-Groups"
	HeaderAccessToken   = "X-Auth-Request-Access-Token"
)

// Identity is the set of trusted fields asserted by the upstream proxy.
// Groups and AccessToken are passed through without validation.
type Identity struct {
	Email       string
	Name        string
	Groups      []string
	AccessToken string
}

// Present reports whether the upstream proxy asserted an identity.
// Email is the deciding field; the rest is display metadata.
func (id Identity) Present() bool {
	return id.Email != ""
}

// ExtractIdentity pulls the trusted identity fields out of inbound request
// headers. It performs no validation beyond the primary/fallback ordering;
// syntax checks belong to the request boundary, not here.
func ExtractIdentity(h http.Header) Identity {
	id := Identity{
		Email:       firstHeader(h, HeaderEmail, HeaderEmailFallback),
		Name:        firstHeader(h, HeaderUser, HeaderUserFallback),
		AccessToken: h.Get(HeaderAccessToken),
	}

	if raw := h.Get(HeaderGroups); raw != "" {
		for _, group := range strings.Split(raw, ",") {
			if group = strings.TrimSpace(group); group != "" {
				id.Groups = append(id.Groups, group)
			}
		}
	}

	return id
}

// firstHeader returns the first non-empty value among the named headers.
func firstHeader(h http.Header, names ...string) string {
	for _, name := range names {
		if v := h.Get(name); v != "" {
			return v
		}
	}
	return ""
}
