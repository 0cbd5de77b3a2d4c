// ABOUTME: Request dispatcher middleware selecting the internal or external auth path
// ABOUTME: Attaches a virtual-key Authorization header for trusted-header identities

package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/orizon-ai/orizon-gateway/internal/authority"
)

// healthPathPrefix marks liveness/readiness endpoints that bypass auth
// entirely and pass straight through to the downstream service.
const healthPathPrefix = "/health"

// UserProvisioner resolves an email to an authority user record and a fresh
// virtual key.
type UserProvisioner interface {
	GetOrCreateUserKey(ctx context.Context, email string) (*authority.User, string, error)
}

// Middleware builds the per-request dispatch decision:
//
//  1. Health paths bypass auth and forward unchanged.
//  2. A trusted identity header marks the internal path: the request is
//     forwarded with an Authorization header carrying a virtual key resolved
//     from the session cookie or freshly provisioned. Resolution failures
//     never abort the request; it forwards unmodified and the downstream
//     authority decides whether the missing credential matters.
//  3. Everything else is the external path and forwards unchanged, bearer
//     token or not; rejecting unauthenticated requests is the authority's
//     job, not the gateway's.
func Middleware(sessions *Sessions, provisioner UserProvisioner, logger *slog.Logger) func(http.Handler) http.Handler {
	logger = logger.With("component", "dispatcher")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasPrefix(r.URL.Path, healthPathPrefix) {
				next.ServeHTTP(w, r)
				return
			}

			identity := ExtractIdentity(r.Header)
			if !identity.Present() {
				next.ServeHTTP(w, r)
				return
			}

			if key, ok := resolveVirtualKey(w, r, identity, sessions, provisioner, logger); ok {
				r.Header.Set("Authorization", "Bearer "+key)
			}

			next.ServeHTTP(w, r)
		})
	}
}

// resolveVirtualKey turns a trusted identity into a virtual key, preferring
// an existing session over a fresh provisioning round-trip. On a session
// miss it provisions, creates a session, and sets the cookie on the
// response. Returns false when no credential could be resolved.
func resolveVirtualKey(w http.ResponseWriter, r *http.Request, identity Identity, sessions *Sessions, provisioner UserProvisioner, logger *slog.Logger) (string, bool) {
	ctx := r.Context()

	// The header is the trusted identity: a session minted for a different
	// email does not count.
	if sess, ok := sessions.GetCurrent(ctx, RequestCookies(r)); ok && sess.Email == identity.Email {
		if token, ok := sessions.ReadCookie(RequestCookies(r)); ok {
			sessions.Refresh(ctx, token)
		}
		return sess.VirtualKey, true
	}

	user, key, err := provisioner.GetOrCreateUserKey(ctx, identity.Email)
	if err != nil {
		logger.Error("provisioning failed, forwarding without credential",
			"email", identity.Email,
			"error", err,
		)
		return "", false
	}

	token, err := sessions.Create(ctx, Session{
		Email:      identity.Email,
		UserID:     user.ID,
		VirtualKey: key,
		Name:       identity.Name,
	})
	if err != nil {
		// The key is still good for this request; only the cached session
		// is lost.
		logger.Warn("session creation failed for internal user",
			"email", identity.Email,
			"error", err,
		)
		return key, true
	}

	sessions.SetCookie(ResponseCookies(w), token)
	return key, true
}
