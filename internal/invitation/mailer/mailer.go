// Package mailer delivers invitation emails.
package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"schoolbridge/pkg/platform/privacy"
)

// Message is a plain-text email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer sends one message. Implementations must honour ctx cancellation.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// Links builds the activation URLs embedded in invitation emails.
type Links struct {
	DeepLinkBase string
	WebBaseURL   string
}

func (l Links) DeepLink(token string) string {
	return l.DeepLinkBase + "?token=" + url.QueryEscape(token)
}

func (l Links) WebLink(token string) string {
	return strings.TrimRight(l.WebBaseURL, "/") + "/activate?token=" + url.QueryEscape(token)
}

// InvitationMessage renders the activation email for a freshly minted token.
func InvitationMessage(links Links, to, role, token string, expiresAt time.Time) Message {
	var b strings.Builder
	fmt.Fprintf(&b, "You have been invited to SchoolBridge as a %s.\n\n", role)
	fmt.Fprintf(&b, "Open the app to activate your account:\n%s\n\n", links.DeepLink(token))
	fmt.Fprintf(&b, "Or continue in your browser:\n%s\n\n", links.WebLink(token))
	fmt.Fprintf(&b, "This link expires on %s.\n", expiresAt.UTC().Format(time.RFC1123))
	return Message{
		To:      to,
		Subject: "Your SchoolBridge invitation",
		Body:    b.String(),
	}
}

// LogMailer writes messages to the log instead of sending them. Used when SMTP is not configured.
type LogMailer struct {
	logger *slog.Logger
}

func NewLogMailer(logger *slog.Logger) *LogMailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.logger.InfoContext(ctx, "email not sent: smtp not configured",
		"to", privacy.MaskEmail(msg.To),
		"subject", msg.Subject,
	)
	return nil
}
