// ABOUTME: Single-use magic-link token store with TTL
// ABOUTME: Issue never fails the caller; verify consumes atomically

package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"time"

	"github.com/orizon-ai/orizon-gateway/internal/store"
)

// magicKeyPrefix namespaces magic-link tokens in the KV, keeping them
// distinct from session tokens.
const magicKeyPrefix = "magic:"

// tokenBytes is the entropy of generated tokens (64 hex chars on the wire).
const tokenBytes = 32

// TokenRecord is the state captured when a magic link is requested and
// returned exactly once when it is verified.
type TokenRecord struct {
	Email     string
	Name      string
	Company   string
	Signup    bool
	CreatedAt time.Time
}

// Tokens manages magic-link tokens. Each token verifies at most once:
// verification deletes the record in the same atomic store operation that
// reads it.
type Tokens struct {
	kv     store.KV
	ttl    time.Duration
	logger *slog.Logger
}

// NewTokens creates a token store issuing tokens with the given TTL.
func NewTokens(kv store.KV, ttl time.Duration, logger *slog.Logger) *Tokens {
	return &Tokens{
		kv:     kv,
		ttl:    ttl,
		logger: logger.With("component", "magic_tokens"),
	}
}

// Issue generates a fresh token and stores the record with the configured
// TTL. A storage failure is logged but never surfaced: the caller still gets
// a token (which will simply never verify). Failing the signup/login UX on
// store availability would be worse than handing out a dead link.
func (t *Tokens) Issue(ctx context.Context, rec TokenRecord) string {
	token := newToken()

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	fields := map[string]string{
		"email":      rec.Email,
		"name":       rec.Name,
		"company":    rec.Company,
		"is_signup":  boolField(rec.Signup),
		"created_at": rec.CreatedAt.Format(time.RFC3339),
	}

	if err := t.kv.SetHash(ctx, magicKeyPrefix+token, fields, t.ttl); err != nil {
		t.logger.Error("storing magic-link token failed, issuing unverifiable token",
			"email", rec.Email,
			"error", err,
		)
	}

	return token
}

// Verify consumes the token and returns its record. The read and delete are
// one atomic store operation, so concurrent verifies of the same token see
// at most one success. A storage failure is deliberately indistinguishable
// from not-found: surfacing an error would invite retries of a token whose
// state is unknown.
func (t *Tokens) Verify(ctx context.Context, token string) (TokenRecord, bool) {
	fields, err := t.kv.TakeHash(ctx, magicKeyPrefix+token)
	if err != nil {
		t.logger.Warn("magic-link lookup failed, treating token as absent",
			"reason", "store_unavailable",
			"error", err,
		)
		return TokenRecord{}, false
	}

	if len(fields) == 0 {
		t.logger.Debug("magic-link token not found or already consumed",
			"reason", "not_found",
		)
		return TokenRecord{}, false
	}

	rec := TokenRecord{
		Email:   fields["email"],
		Name:    fields["name"],
		Company: fields["company"],
		Signup:  fields["is_signup"] == "1",
	}
	if createdAt, err := time.Parse(time.RFC3339, fields["created_at"]); err == nil {
		rec.CreatedAt = createdAt
	}

	return rec, true
}

// Invalidate removes a token without verifying it, reporting whether it
// existed. Used for explicit revocation.
func (t *Tokens) Invalidate(ctx context.Context, token string) bool {
	existed, err := t.kv.Delete(ctx, magicKeyPrefix+token)
	if err != nil {
		t.logger.Warn("magic-link invalidation failed",
			"error", err,
		)
		return false
	}
	return existed
}

// newToken returns a fresh high-entropy hex token. crypto/rand.Read never
// returns an error (it crashes the process if the kernel source is broken),
// so the token is always complete.
func newToken() string {
	b := make([]byte, tokenBytes)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// boolField encodes a bool the way the store represents it.
func boolField(v bool) string {
	if v {
		return "1"
	}
	return "0"
}
