// ABOUTME: Tests for the magic-link HTTP endpoints
// ABOUTME: Covers signup, login, verify, logout, and session introspection

package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orizon-ai/orizon-gateway/internal/store"
)

// capturingMailer records delivered links instead of sending them.
type capturingMailer struct {
	links []MagicLink
	err   error
}

func (m *capturingMailer) SendMagicLink(_ context.Context, link MagicLink) error {
	if m.err != nil {
		return m.err
	}
	m.links = append(m.links, link)
	return nil
}

type routesFixture struct {
	mux         *http.ServeMux
	tokens      *Tokens
	sessions    *Sessions
	provisioner *fakeProvisioner
	mailer      *capturingMailer
}

func newRoutesFixture(t *testing.T) *routesFixture {
	t.Helper()
	kv := store.NewMemoryKV()
	fx := &routesFixture{
		tokens:      NewTokens(kv, 15*time.Minute, testLogger()),
		sessions:    testSessions(kv),
		provisioner: &fakeProvisioner{},
		mailer:      &capturingMailer{},
	}
	handlers := NewHandlers(fx.tokens, fx.sessions, fx.provisioner, fx.mailer, "https://gw.example.com", testLogger())
	fx.mux = http.NewServeMux()
	handlers.Register(fx.mux)
	return fx
}

func (fx *routesFixture) do(method, path, body string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	fx.mux.ServeHTTP(rec, r)
	return rec
}

func TestSignup_Success(t *testing.T) {
	fx := newRoutesFixture(t)

	rec := fx.do(http.MethodPost, "/api/auth/signup",
		`{"email":"new@example.com","name":"New User","company":"Acme"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), magicLinkSentMessage)
	assert.Equal(t, 1, fx.provisioner.calls, "signup provisions eagerly")

	require.Len(t, fx.mailer.links, 1)
	link := fx.mailer.links[0]
	assert.Equal(t, "new@example.com", link.Email)
	assert.True(t, link.Signup)
	assert.Contains(t, link.VerifyURL, "https://gw.example.com/api/auth/verify?token=")

	tokRec, ok := fx.tokens.Verify(context.Background(), link.Token)
	require.True(t, ok)
	assert.Equal(t, "New User", tokRec.Name)
	assert.Equal(t, "Acme", tokRec.Company)
	assert.True(t, tokRec.Signup)
}

func TestSignup_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"malformed json", `{`, "invalid request body"},
		{"missing name", `{"email":"a@example.com"}`, "name is required"},
		{"bad email", `{"email":"not-an-email","name":"A"}`, "invalid email address"},
		{"display name email", `{"email":"A <a@example.com>","name":"A"}`, "invalid email address"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newRoutesFixture(t)
			rec := fx.do(http.MethodPost, "/api/auth/signup", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.want)
			assert.Empty(t, fx.mailer.links)
		})
	}
}

func TestSignup_ProvisioningFailure(t *testing.T) {
	fx := newRoutesFixture(t)
	fx.provisioner.err = errors.New("authority down")

	rec := fx.do(http.MethodPost, "/api/auth/signup",
		`{"email":"new@example.com","name":"New User"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Empty(t, fx.mailer.links, "no link goes out for a failed signup")
}

func TestLogin_IdenticalResponseForUnknownUser(t *testing.T) {
	fx := newRoutesFixture(t)

	known := fx.do(http.MethodPost, "/api/auth/login", `{"email":"known@example.com"}`)
	unknown := fx.do(http.MethodPost, "/api/auth/login", `{"email":"ghost@example.com"}`)

	require.Equal(t, http.StatusOK, known.Code)
	require.Equal(t, http.StatusOK, unknown.Code)
	assert.Equal(t, known.Body.String(), unknown.Body.String(),
		"login must not reveal whether the account exists")
	assert.Equal(t, 0, fx.provisioner.calls, "login defers provisioning to verify")
	assert.Len(t, fx.mailer.links, 2)
}

func TestLogin_DeliveryFailureStillSucceeds(t *testing.T) {
	fx := newRoutesFixture(t)
	fx.mailer.err = errors.New("smtp down")

	rec := fx.do(http.MethodPost, "/api/auth/login", `{"email":"a@example.com"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), magicLinkSentMessage)
}

func TestVerify_Success(t *testing.T) {
	fx := newRoutesFixture(t)

	fx.do(http.MethodPost, "/api/auth/login", `{"email":"user@example.com"}`)
	require.Len(t, fx.mailer.links, 1)
	token := fx.mailer.links[0].Token

	rec := fx.do(http.MethodGet, "/api/auth/verify?token="+token, "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"user@example.com"`)
	assert.Equal(t, 1, fx.provisioner.calls)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "orizon_session", cookies[0].Name)

	sess, ok := fx.sessions.Get(context.Background(), cookies[0].Value)
	require.True(t, ok)
	assert.Equal(t, "user@example.com", sess.Email)
	assert.Equal(t, "sk-virtual-1", sess.VirtualKey)
}

func TestVerify_TokenSingleUse(t *testing.T) {
	fx := newRoutesFixture(t)

	fx.do(http.MethodPost, "/api/auth/login", `{"email":"user@example.com"}`)
	token := fx.mailer.links[0].Token

	first := fx.do(http.MethodGet, "/api/auth/verify?token="+token, "")
	second := fx.do(http.MethodGet, "/api/auth/verify?token="+token, "")

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusBadRequest, second.Code)
	assert.Contains(t, second.Body.String(), "invalid or expired token")
}

func TestVerify_MissingToken(t *testing.T) {
	fx := newRoutesFixture(t)

	rec := fx.do(http.MethodGet, "/api/auth/verify", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "token parameter required")
}

func TestVerify_UnknownToken(t *testing.T) {
	fx := newRoutesFixture(t)

	rec := fx.do(http.MethodGet, "/api/auth/verify?token=deadbeef", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid or expired token")
}

func TestVerify_ProvisioningFailure(t *testing.T) {
	fx := newRoutesFixture(t)

	fx.do(http.MethodPost, "/api/auth/login", `{"email":"user@example.com"}`)
	token := fx.mailer.links[0].Token
	fx.provisioner.err = errors.New("authority down")

	rec := fx.do(http.MethodGet, "/api/auth/verify?token="+token, "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Empty(t, rec.Result().Cookies())
}

func TestLogout_DeletesSessionAndClearsCookie(t *testing.T) {
	fx := newRoutesFixture(t)

	token, err := fx.sessions.Create(context.Background(), Session{Email: "user@example.com"})
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	r.AddCookie(&http.Cookie{Name: "orizon_session", Value: token})
	rec := httptest.NewRecorder()
	fx.mux.ServeHTTP(rec, r)

	assert.Equal(t, http.StatusOK, rec.Code)

	_, ok := fx.sessions.Get(context.Background(), token)
	assert.False(t, ok, "the session is gone after logout")

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, -1, cookies[0].MaxAge)
}

func TestLogout_WithoutSessionIsIdempotent(t *testing.T) {
	fx := newRoutesFixture(t)

	rec := fx.do(http.MethodPost, "/api/auth/logout", "")

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMe_ReturnsSessionIdentity(t *testing.T) {
	fx := newRoutesFixture(t)

	token, err := fx.sessions.Create(context.Background(), Session{
		Email:  "user@example.com",
		UserID: "orizon-abc123",
		Name:   "Test User",
	})
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	r.AddCookie(&http.Cookie{Name: "orizon_session", Value: token})
	rec := httptest.NewRecorder()
	fx.mux.ServeHTTP(rec, r)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `"user@example.com"`)
	assert.Contains(t, body, `"orizon-abc123"`)
	assert.Contains(t, body, `"Test User"`)
}

func TestMe_Unauthenticated(t *testing.T) {
	fx := newRoutesFixture(t)

	rec := fx.do(http.MethodGet, "/api/auth/me", "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
