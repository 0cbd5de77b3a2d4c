// ABOUTME: Tests for the credential authority HTTP client
// ABOUTME: Uses a fake authority server to cover lookup, creation, and key minting

package authority

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "sk-master-test", 5*time.Second, testLogger())
}

func TestClient_GetUser(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/user/info", r.URL.Path)
		require.Equal(t, "orizon-abc", r.URL.Query().Get("user_id"))
		require.Equal(t, "Bearer sk-master-test", r.Header.Get("Authorization"))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"user_id": "orizon-abc",
			"user_info": map[string]any{
				"user_email": "user@example.com",
			},
		})
	}))

	user, err := client.GetUser(context.Background(), "orizon-abc")
	require.NoError(t, err)
	assert.Equal(t, "orizon-abc", user.ID)
	assert.Equal(t, "user@example.com", user.Email)
}

func TestClient_GetUserNotFound(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"user not found"}`, http.StatusNotFound)
	}))

	_, err := client.GetUser(context.Background(), "orizon-missing")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestClient_GetUserEmptyRecord(t *testing.T) {
	// Some authority versions answer 200 with an empty object instead of 404.
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))

	_, err := client.GetUser(context.Background(), "orizon-missing")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestClient_CreateUser(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/user/new", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "orizon-new", body["user_id"])
		assert.Equal(t, "new@example.com", body["user_email"])

		_ = json.NewEncoder(w).Encode(map[string]any{
			"user_id":    "orizon-new",
			"user_email": "new@example.com",
			"key":        "sk-initial-key",
		})
	}))

	user, key, err := client.CreateUser(context.Background(), "orizon-new", "new@example.com")
	require.NoError(t, err)
	assert.Equal(t, "orizon-new", user.ID)
	assert.Equal(t, "new@example.com", user.Email)
	assert.Equal(t, "sk-initial-key", key)
}

func TestClient_CreateUserConflict(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"409 conflict", http.StatusConflict, `{"error":"conflict"}`},
		{"400 with exists message", http.StatusBadRequest, `{"error":"User already exists"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))

			_, _, err := client.CreateUser(context.Background(), "orizon-dup", "dup@example.com")
			assert.ErrorIs(t, err, ErrUserExists)
		})
	}
}

func TestClient_GenerateKey(t *testing.T) {
	var seenAliases []string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/key/generate", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "orizon-abc", body["user_id"])
		assert.NotEmpty(t, body["key_alias"])
		seenAliases = append(seenAliases, body["key_alias"])

		_ = json.NewEncoder(w).Encode(map[string]string{"key": "sk-generated"})
	}))

	key, err := client.GenerateKey(context.Background(), "orizon-abc")
	require.NoError(t, err)
	assert.Equal(t, "sk-generated", key)

	_, err = client.GenerateKey(context.Background(), "orizon-abc")
	require.NoError(t, err)
	assert.NotEqual(t, seenAliases[0], seenAliases[1], "each call uses a fresh alias")
}

func TestClient_GenerateKeyEmptyResponse(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))

	_, err := client.GenerateKey(context.Background(), "orizon-abc")
	assert.Error(t, err)
}

func TestClient_ServerError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))

	_, err := client.GetUser(context.Background(), "orizon-abc")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrUserNotFound)
}

func TestClient_Unreachable(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", "sk-master", time.Second, testLogger())

	_, err := client.GetUser(context.Background(), "orizon-abc")
	assert.Error(t, err)
}
