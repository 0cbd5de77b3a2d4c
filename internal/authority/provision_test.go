// ABOUTME: Tests for user id derivation and get-or-create provisioning
// ABOUTME: Covers determinism, fresh keys per call, and create-race fallback

package authority

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveUserID_Deterministic(t *testing.T) {
	a := DeriveUserID("user@example.com")
	b := DeriveUserID("user@example.com")

	assert.Equal(t, a, b)
	assert.True(t, strings.HasPrefix(a, "orizon-"))
}

func TestDeriveUserID_Canonicalizes(t *testing.T) {
	assert.Equal(t, DeriveUserID("user@example.com"), DeriveUserID("  USER@Example.COM "))
}

func TestDeriveUserID_DistinctEmails(t *testing.T) {
	assert.NotEqual(t, DeriveUserID("a@example.com"), DeriveUserID("b@example.com"))
}

// fakeAPI is a scripted authority for provisioner tests.
type fakeAPI struct {
	users      map[string]*User
	keyCounter int

	getErr    error
	createErr error
	keyErr    error

	createCalls int
	keyCalls    int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{users: map[string]*User{}}
}

func (f *fakeAPI) GetUser(ctx context.Context, userID string) (*User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	user, ok := f.users[userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (f *fakeAPI) CreateUser(ctx context.Context, userID, email string) (*User, string, error) {
	f.createCalls++
	if f.createErr != nil {
		return nil, "", f.createErr
	}
	if _, ok := f.users[userID]; ok {
		return nil, "", ErrUserExists
	}
	user := &User{ID: userID, Email: email}
	f.users[userID] = user
	f.keyCounter++
	return user, fmt.Sprintf("sk-key-%d", f.keyCounter), nil
}

func (f *fakeAPI) GenerateKey(ctx context.Context, userID string) (string, error) {
	f.keyCalls++
	if f.keyErr != nil {
		return "", f.keyErr
	}
	f.keyCounter++
	return fmt.Sprintf("sk-key-%d", f.keyCounter), nil
}

func TestProvisioner_NewUser(t *testing.T) {
	api := newFakeAPI()
	p := NewProvisioner(api, testLogger())

	user, key, err := p.GetOrCreateUserKey(context.Background(), "new@example.com")
	require.NoError(t, err)

	assert.Equal(t, DeriveUserID("new@example.com"), user.ID)
	assert.Equal(t, "new@example.com", user.Email)
	assert.True(t, strings.HasPrefix(key, "sk-"))
	assert.Equal(t, 1, api.createCalls)
	assert.Equal(t, 0, api.keyCalls, "new users get their key from the create call")
}

func TestProvisioner_ExistingUserGetsFreshKey(t *testing.T) {
	api := newFakeAPI()
	p := NewProvisioner(api, testLogger())
	ctx := context.Background()

	user1, key1, err := p.GetOrCreateUserKey(ctx, "user@example.com")
	require.NoError(t, err)

	user2, key2, err := p.GetOrCreateUserKey(ctx, "user@example.com")
	require.NoError(t, err)

	assert.Equal(t, user1.ID, user2.ID, "same email must resolve to the same user")
	assert.NotEqual(t, key1, key2, "every resolution mints a distinct key")
	assert.Equal(t, 1, api.createCalls)
}

func TestProvisioner_CreateRaceFallsBackToKeyGeneration(t *testing.T) {
	api := newFakeAPI()
	// The user appears between GetUser and CreateUser, as if a concurrent
	// request created it first.
	userID := DeriveUserID("raced@example.com")
	api.createErr = ErrUserExists
	p := NewProvisioner(api, testLogger())

	user, key, err := p.GetOrCreateUserKey(context.Background(), "raced@example.com")
	require.NoError(t, err)

	assert.Equal(t, userID, user.ID)
	assert.NotEmpty(t, key)
	assert.Equal(t, 1, api.keyCalls, "loser of the create race generates a key instead")
}

func TestProvisioner_LookupFailure(t *testing.T) {
	api := newFakeAPI()
	api.getErr = errors.New("authority unreachable")
	p := NewProvisioner(api, testLogger())

	_, _, err := p.GetOrCreateUserKey(context.Background(), "user@example.com")
	assert.Error(t, err)
	assert.Equal(t, 0, api.createCalls)
}

func TestProvisioner_CreateFailure(t *testing.T) {
	api := newFakeAPI()
	api.createErr = errors.New("authority rejected create")
	p := NewProvisioner(api, testLogger())

	_, _, err := p.GetOrCreateUserKey(context.Background(), "user@example.com")
	assert.Error(t, err)
}

func TestProvisioner_KeyGenerationFailure(t *testing.T) {
	api := newFakeAPI()
	p := NewProvisioner(api, testLogger())
	ctx := context.Background()

	_, _, err := p.GetOrCreateUserKey(ctx, "user@example.com")
	require.NoError(t, err)

	api.keyErr = errors.New("key quota exceeded")
	_, _, err = p.GetOrCreateUserKey(ctx, "user@example.com")
	assert.Error(t, err)
}
