// ABOUTME: Magic-link delivery boundary
// ABOUTME: Delivery itself is an external collaborator; the dev mailer just logs

package auth

import (
	"context"
	"log/slog"
)

// MagicLink is everything a delivery backend needs to send a sign-in email.
type MagicLink struct {
	Email     string
	Name      string
	Token     string
	Signup    bool
	VerifyURL string
}

// Mailer delivers magic links out-of-band. Implementations live outside this
// subsystem; handlers treat delivery failure like token-store failure (log
// and keep the generic success response).
type Mailer interface {
	SendMagicLink(ctx context.Context, link MagicLink) error
}

// LogMailer is the development Mailer: it logs the link instead of sending
// it, so the flow can be exercised without an email provider.
type LogMailer struct {
	logger *slog.Logger
}

// NewLogMailer creates a Mailer that writes links to the log.
func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger.With("component", "mailer")}
}

// SendMagicLink logs the link. Never fails.
func (m *LogMailer) SendMagicLink(ctx context.Context, link MagicLink) error {
	m.logger.Info("magic link issued",
		"email", link.Email,
		"signup", link.Signup,
		"url", link.VerifyURL,
	)
	return nil
}
