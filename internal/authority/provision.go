// ABOUTME: Idempotent user and virtual key provisioning against the authority
// ABOUTME: Derives deterministic user ids from emails and absorbs create races

package authority

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// userIDPrefix marks gateway-provisioned user ids at the authority.
const userIDPrefix = "orizon-"

// DeriveUserID maps an email to a stable user id. The same email always
// yields the same id, across calls and process restarts; the authority's
// uniqueness constraint on user id is what makes concurrent provisioning
// safe.
func DeriveUserID(email string) string {
	canonical := strings.ToLower(strings.TrimSpace(email))
	sum := sha256.Sum256([]byte(canonical))
	return userIDPrefix + hex.EncodeToString(sum[:8])
}

// API is the slice of the authority client the provisioner needs.
type API interface {
	GetUser(ctx context.Context, userID string) (*User, error)
	CreateUser(ctx context.Context, userID, email string) (*User, string, error)
	GenerateKey(ctx context.Context, userID string) (string, error)
}

// Provisioner resolves emails to authority user records and virtual keys.
type Provisioner struct {
	api    API
	logger *slog.Logger
}

// NewProvisioner creates a provisioner backed by the given authority API.
func NewProvisioner(api API, logger *slog.Logger) *Provisioner {
	return &Provisioner{
		api:    api,
		logger: logger.With("component", "provisioner"),
	}
}

// GetOrCreateUserKey resolves the email to a user record and mints a virtual
// key. For a new user the authority's create call returns the initial key;
// for an existing user a separate key-generation call produces a fresh key.
// Every call therefore yields a new, distinct key; callers must not assume
// key stability.
//
// Two concurrent calls for the same new email derive the same user id, so at
// most one create succeeds at the authority; the loser sees ErrUserExists
// and falls back to key generation.
func (p *Provisioner) GetOrCreateUserKey(ctx context.Context, email string) (*User, string, error) {
	userID := DeriveUserID(email)

	user, err := p.api.GetUser(ctx, userID)
	switch {
	case err == nil:
		key, err := p.api.GenerateKey(ctx, userID)
		if err != nil {
			return nil, "", fmt.Errorf("generating key for %s: %w", userID, err)
		}
		return user, key, nil

	case errors.Is(err, ErrUserNotFound):
		user, key, err := p.api.CreateUser(ctx, userID, email)
		if errors.Is(err, ErrUserExists) {
			// Lost a race with a concurrent create; the record exists now.
			p.logger.Debug("user create raced, falling back to key generation",
				"user_id", userID,
			)
			key, err := p.api.GenerateKey(ctx, userID)
			if err != nil {
				return nil, "", fmt.Errorf("generating key for %s after create race: %w", userID, err)
			}
			return &User{ID: userID, Email: email}, key, nil
		}
		if err != nil {
			return nil, "", fmt.Errorf("creating user %s: %w", userID, err)
		}
		return user, key, nil

	default:
		return nil, "", fmt.Errorf("looking up user %s: %w", userID, err)
	}
}
