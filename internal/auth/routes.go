// ABOUTME: HTTP handlers for the self-service magic-link flow
// ABOUTME: Signup, login, verify, logout, and session introspection endpoints

package auth

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/mail"
	"net/url"
	"strings"
)

// Handlers serves the /api/auth endpoints.
type Handlers struct {
	tokens      *Tokens
	sessions    *Sessions
	provisioner UserProvisioner
	mailer      Mailer
	// baseURL is the gateway's external URL, used to build verify links.
	baseURL string
	logger  *slog.Logger
}

// NewHandlers creates the auth route handlers.
func NewHandlers(tokens *Tokens, sessions *Sessions, provisioner UserProvisioner, mailer Mailer, baseURL string, logger *slog.Logger) *Handlers {
	return &Handlers{
		tokens:      tokens,
		sessions:    sessions,
		provisioner: provisioner,
		mailer:      mailer,
		baseURL:     strings.TrimRight(baseURL, "/"),
		logger:      logger.With("component", "auth_routes"),
	}
}

// Register adds the auth routes to the mux.
func (h *Handlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/auth/signup", h.handleSignup)
	mux.HandleFunc("POST /api/auth/login", h.handleLogin)
	mux.HandleFunc("GET /api/auth/verify", h.handleVerify)
	mux.HandleFunc("POST /api/auth/logout", h.handleLogout)
	mux.HandleFunc("GET /api/auth/me", h.handleMe)
}

// signupRequest is the JSON request body for POST /api/auth/signup.
type signupRequest struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Company string `json:"company,omitempty"`
}

// loginRequest is the JSON request body for POST /api/auth/login.
type loginRequest struct {
	Email string `json:"email"`
}

// magicLinkSentMessage is returned for every accepted signup and login
// request. It is identical whether or not the user exists, so the response
// reveals nothing about account existence.
const magicLinkSentMessage = "Check your email for a sign-in link."

func (h *Handlers) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if !validEmail(req.Email) {
		writeError(w, http.StatusBadRequest, "invalid email address")
		return
	}

	// Signup provisions eagerly so a broken authority surfaces here rather
	// than at verify time.
	if _, _, err := h.provisioner.GetOrCreateUserKey(r.Context(), req.Email); err != nil {
		h.logger.Error("signup provisioning failed",
			"email", req.Email,
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, "failed to create account")
		return
	}

	token := h.tokens.Issue(r.Context(), TokenRecord{
		Email:   req.Email,
		Name:    req.Name,
		Company: req.Company,
		Signup:  true,
	})

	h.deliver(r, MagicLink{
		Email:     req.Email,
		Name:      req.Name,
		Token:     token,
		Signup:    true,
		VerifyURL: h.verifyURL(token),
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": magicLinkSentMessage,
	})
}

func (h *Handlers) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !validEmail(req.Email) {
		writeError(w, http.StatusBadRequest, "invalid email address")
		return
	}

	// A login token is issued whether or not the user exists. The account
	// gets provisioned at verify time, and the response never reveals
	// whether it already did.
	token := h.tokens.Issue(r.Context(), TokenRecord{
		Email:  req.Email,
		Signup: false,
	})

	h.deliver(r, MagicLink{
		Email:     req.Email,
		Token:     token,
		Signup:    false,
		VerifyURL: h.verifyURL(token),
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": magicLinkSentMessage,
	})
}

func (h *Handlers) handleVerify(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeError(w, http.StatusBadRequest, "token parameter required")
		return
	}

	rec, ok := h.tokens.Verify(r.Context(), token)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid or expired token")
		return
	}

	user, key, err := h.provisioner.GetOrCreateUserKey(r.Context(), rec.Email)
	if err != nil {
		h.logger.Error("verify provisioning failed",
			"email", rec.Email,
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, "failed to provision account")
		return
	}

	sessionToken, err := h.sessions.Create(r.Context(), Session{
		Email:      rec.Email,
		UserID:     user.ID,
		VirtualKey: key,
		Name:       rec.Name,
	})
	if err != nil {
		h.logger.Error("session creation failed",
			"email", rec.Email,
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	h.sessions.SetCookie(ResponseCookies(w), sessionToken)
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"email":   rec.Email,
	})
}

func (h *Handlers) handleLogout(w http.ResponseWriter, r *http.Request) {
	if token, ok := h.sessions.ReadCookie(RequestCookies(r)); ok {
		h.sessions.Delete(r.Context(), token)
	}

	// Clearing the cookie and answering success is right even without a
	// session: logout is idempotent.
	h.sessions.ClearCookie(ResponseCookies(w))
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handlers) handleMe(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.sessions.GetCurrent(r.Context(), RequestCookies(r))
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	if token, ok := h.sessions.ReadCookie(RequestCookies(r)); ok {
		h.sessions.Refresh(r.Context(), token)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"email":   sess.Email,
		"name":    sess.Name,
		"user_id": sess.UserID,
	})
}

// deliver hands the link to the mailer. Delivery failure is logged and
// otherwise absorbed; the caller already committed to the generic success
// response.
func (h *Handlers) deliver(r *http.Request, link MagicLink) {
	if err := h.mailer.SendMagicLink(r.Context(), link); err != nil {
		h.logger.Error("magic link delivery failed",
			"email", link.Email,
			"error", err,
		)
	}
}

func (h *Handlers) verifyURL(token string) string {
	return h.baseURL + "/api/auth/verify?token=" + url.QueryEscape(token)
}

// validEmail checks address syntax at the request boundary. ParseAddress
// also accepts "Name <a@b>" forms, which are not bare addresses, so the
// round-trip must be exact.
func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
