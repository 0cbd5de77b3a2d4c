// ABOUTME: HTTP client for the credential authority (LiteLLM-compatible API)
// ABOUTME: Covers user lookup/creation and virtual key generation

package authority

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Authority errors
var (
	// ErrUserNotFound is returned when the authority has no record for the
	// requested user id.
	ErrUserNotFound = errors.New("user not found")

	// ErrUserExists is returned by CreateUser when a concurrent create for
	// the same user id won the race.
	ErrUserExists = errors.New("user already exists")
)

// User is the authority-owned user record as referenced by the gateway.
type User struct {
	ID    string `json:"user_id"`
	Email string `json:"user_email"`
}

// Client talks to the credential authority's management API using the
// configured master credential. All calls honor context deadlines and are
// additionally bounded by the configured timeout.
type Client struct {
	baseURL   string
	masterKey string
	http      *http.Client
	logger    *slog.Logger
}

// NewClient creates an authority client. The timeout bounds every request.
func NewClient(baseURL, masterKey string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		masterKey: masterKey,
		http:      &http.Client{Timeout: timeout},
		logger:    logger.With("component", "authority"),
	}
}

// userInfoResponse mirrors the authority's GET /user/info payload.
type userInfoResponse struct {
	UserID   string `json:"user_id"`
	UserInfo struct {
		UserEmail string `json:"user_email"`
	} `json:"user_info"`
}

// newUserResponse mirrors the authority's POST /user/new payload. The
// authority creates the record and mints the initial key in one call.
type newUserResponse struct {
	UserID    string `json:"user_id"`
	UserEmail string `json:"user_email"`
	Key       string `json:"key"`
}

// keyResponse mirrors the authority's POST /key/generate payload.
type keyResponse struct {
	Key string `json:"key"`
}

// GetUser fetches a user record by id. Returns ErrUserNotFound when the
// authority has no such user.
func (c *Client) GetUser(ctx context.Context, userID string) (*User, error) {
	endpoint := c.baseURL + "/user/info?user_id=" + url.QueryEscape(userID)

	body, status, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	switch {
	case status == http.StatusNotFound:
		return nil, ErrUserNotFound
	case status != http.StatusOK:
		return nil, fmt.Errorf("user lookup returned status %d", status)
	}

	var resp userInfoResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decoding user info: %w", err)
	}

	// Some authority versions answer 200 with an empty record instead of 404.
	if resp.UserID == "" {
		return nil, ErrUserNotFound
	}

	return &User{ID: resp.UserID, Email: resp.UserInfo.UserEmail}, nil
}

// CreateUser creates a user record and returns it together with the initial
// virtual key minted by the authority. A conflict from a racing create is
// reported as ErrUserExists so callers can fall back to key generation.
func (c *Client) CreateUser(ctx context.Context, userID, email string) (*User, string, error) {
	payload := map[string]string{
		"user_id":    userID,
		"user_email": email,
	}

	body, status, err := c.do(ctx, http.MethodPost, c.baseURL+"/user/new", payload)
	if err != nil {
		return nil, "", err
	}

	if status == http.StatusConflict ||
		(status == http.StatusBadRequest && strings.Contains(strings.ToLower(string(body)), "exist")) {
		return nil, "", ErrUserExists
	}
	if status != http.StatusOK {
		return nil, "", fmt.Errorf("user creation returned status %d", status)
	}

	var resp newUserResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, "", fmt.Errorf("decoding new user: %w", err)
	}

	return &User{ID: resp.UserID, Email: resp.UserEmail}, resp.Key, nil
}

// GenerateKey mints a fresh virtual key for an existing user. Every call
// yields a new, distinct key; the gateway never reuses keys across sessions.
func (c *Client) GenerateKey(ctx context.Context, userID string) (string, error) {
	payload := map[string]string{
		"user_id":   userID,
		"key_alias": "orizon-session-" + uuid.NewString()[:8],
	}

	body, status, err := c.do(ctx, http.MethodPost, c.baseURL+"/key/generate", payload)
	if err != nil {
		return "", err
	}

	if status != http.StatusOK {
		return "", fmt.Errorf("key generation returned status %d", status)
	}

	var resp keyResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decoding generated key: %w", err)
	}
	if resp.Key == "" {
		return "", fmt.Errorf("key generation returned empty key")
	}

	return resp.Key, nil
}

// do executes one authority request with the master credential attached and
// returns the response body and status.
func (c *Client) do(ctx context.Context, method, endpoint string, payload any) ([]byte, int, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, fmt.Errorf("encoding request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, 0, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.masterKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("calling authority: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("reading authority response: %w", err)
	}

	return body, resp.StatusCode, nil
}
