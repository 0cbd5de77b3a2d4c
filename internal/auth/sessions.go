// ABOUTME: Renewable session store keyed by opaque tokens with cookie binding
// ABOUTME: Sessions snapshot the identity and virtual key resolved at login

package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/orizon-ai/orizon-gateway/internal/store"
)

// sessionKeyPrefix namespaces session tokens in the KV.
const sessionKeyPrefix = "session:"

// Session is the identity and credential snapshot taken when the session is
// created. VirtualKey is the bearer credential attached to downstream
// requests; deleting the session removes only this local state, never the
// key at the credential authority.
type Session struct {
	Email      string
	UserID     string
	VirtualKey string
	Name       string
}

// CookieSettings control how session tokens are bound to browser cookies.
type CookieSettings struct {
	Name   string
	Path   string
	Secure bool
}

// Sessions manages session records and their cookie binding.
type Sessions struct {
	kv     store.KV
	ttl    time.Duration
	cookie CookieSettings
	logger *slog.Logger
}

// NewSessions creates a session store with the given TTL and cookie settings.
func NewSessions(kv store.KV, ttl time.Duration, cookie CookieSettings, logger *slog.Logger) *Sessions {
	return &Sessions{
		kv:     kv,
		ttl:    ttl,
		cookie: cookie,
		logger: logger.With("component", "sessions"),
	}
}

// TTL returns the configured session lifetime.
func (s *Sessions) TTL() time.Duration {
	return s.ttl
}

// Create stores the session snapshot and returns its opaque token. Unlike
// magic-link issuance there is no degraded mode here: a session that was
// never stored would leave the browser holding a dead cookie.
func (s *Sessions) Create(ctx context.Context, sess Session) (string, error) {
	token := newToken()

	fields := map[string]string{
		"email":       sess.Email,
		"user_id":     sess.UserID,
		"virtual_key": sess.VirtualKey,
		"name":        sess.Name,
	}

	if err := s.kv.SetHash(ctx, sessionKeyPrefix+token, fields, s.ttl); err != nil {
		return "", err
	}

	return token, nil
}

// Get returns the session for a token. Unknown, expired, and empty records
// all read as absent, as does a store failure (logged with its reason).
func (s *Sessions) Get(ctx context.Context, token string) (Session, bool) {
	fields, err := s.kv.GetHash(ctx, sessionKeyPrefix+token)
	if err != nil {
		s.logger.Warn("session lookup failed, treating as absent",
			"reason", "store_unavailable",
			"error", err,
		)
		return Session{}, false
	}

	if len(fields) == 0 {
		return Session{}, false
	}

	return Session{
		Email:      fields["email"],
		UserID:     fields["user_id"],
		VirtualKey: fields["virtual_key"],
		Name:       fields["name"],
	}, true
}

// Delete removes the session, reporting whether it existed.
func (s *Sessions) Delete(ctx context.Context, token string) bool {
	existed, err := s.kv.Delete(ctx, sessionKeyPrefix+token)
	if err != nil {
		s.logger.Warn("session delete failed",
			"error", err,
		)
		return false
	}
	return existed
}

// Refresh extends the session TTL without altering the stored snapshot.
// Returns false for unknown tokens and never creates a record.
func (s *Sessions) Refresh(ctx context.Context, token string) bool {
	existed, err := s.kv.Expire(ctx, sessionKeyPrefix+token, s.ttl)
	if err != nil {
		s.logger.Warn("session refresh failed",
			"error", err,
		)
		return false
	}
	return existed
}

// SetCookie binds the session token to the outbound response.
func (s *Sessions) SetCookie(w CookieWriter, token string) {
	w.SetCookie(s.cookie.Name, token, CookieOptions{
		Path:     s.cookie.Path,
		MaxAge:   s.ttl,
		HTTPOnly: true,
		Secure:   s.cookie.Secure,
	})
}

// ClearCookie removes the session cookie from the outbound response.
func (s *Sessions) ClearCookie(w CookieWriter) {
	w.ClearCookie(s.cookie.Name, CookieOptions{
		Path:     s.cookie.Path,
		HTTPOnly: true,
		Secure:   s.cookie.Secure,
	})
}

// ReadCookie returns the session token carried by the request, if any.
func (s *Sessions) ReadCookie(r CookieReader) (string, bool) {
	return r.Cookie(s.cookie.Name)
}

// GetCurrent resolves the inbound cookie to a session. Cookie absence is an
// ordinary miss, never an error.
func (s *Sessions) GetCurrent(ctx context.Context, r CookieReader) (Session, bool) {
	token, ok := s.ReadCookie(r)
	if !ok {
		return Session{}, false
	}
	return s.Get(ctx, token)
}
