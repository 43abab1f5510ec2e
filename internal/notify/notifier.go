// Package notify delivers best-effort user-facing messages. Delivery
// failures are logged with the recipient address and never alter the
// outcome of the operation that triggered them.
package notify

import (
	"context"
	"log"
	"strings"

	"github.com/iliyamo/auth-service/internal/model"
)

// Notifier is the outbound notification contract consumed by the auth
// engine. Implementations must be safe for concurrent use; every method is
// fire-and-forget from the engine's perspective.
type Notifier interface {
	SendWelcome(ctx context.Context, u model.User) error
	SendPasswordChange(ctx context.Context, u model.User) error
	SendPasswordReset(ctx context.Context, u model.User, temporaryPassword string) error
	SendLoginAlert(ctx context.Context, u model.User, ipAddress, userAgent string) error
	SendSecurityAlert(ctx context.Context, u model.User, alertType, details string) error
	SendAccountStatus(ctx context.Context, u model.User, status string) error
}

// Template is a subject/body pair with {placeholder} markers.
type Template struct {
	Subject string
	Body    string
}

// Templates holds one template per message kind. Empty fields fall back to
// the defaults at render time.
type Templates struct {
	Welcome        Template
	PasswordChange Template
	PasswordReset  Template
	Login          Template
	SecurityAlert  Template
	AccountStatus  Template
}

// DefaultTemplates returns the built-in message texts.
func DefaultTemplates() Templates {
	return Templates{
		Welcome: Template{
			Subject: "Welcome to our platform!",
			Body:    "Hello {displayName},\n\nWelcome to our platform! Your account has been created successfully.\n\nRegards,\nThe Team",
		},
		PasswordChange: Template{
			Subject: "Your password has been changed",
			Body:    "Hello {displayName},\n\nYour password has been changed successfully. If you did not make this change, please contact support immediately.\n\nRegards,\nThe Team",
		},
		PasswordReset: Template{
			Subject: "Password Reset Request",
			Body:    "Hello {displayName},\n\nYou have requested a password reset. Use the following temporary password to reset your password:\n\n{temporaryPassword}\n\nIf you did not request this reset, please ignore this email.\n\nRegards,\nThe Team",
		},
		Login: Template{
			Subject: "New Login Detected",
			Body:    "Hello {displayName},\n\nA new login to your account has been detected.\n\nIP Address: {ipAddress}\nBrowser/Device: {userAgent}\n\nIf this was not you, please contact support immediately.\n\nRegards,\nThe Team",
		},
		SecurityAlert: Template{
			Subject: "Security Alert",
			Body:    "Hello {displayName},\n\nA security alert has been triggered for your account.\n\nAlert Type: {alertType}\nDetails: {details}\n\nIf you did not perform this action, please contact support immediately.\n\nRegards,\nThe Team",
		},
		AccountStatus: Template{
			Subject: "Account Status Update",
			Body:    "Hello {displayName},\n\nYour account status has been updated to: {status}.\n\nIf you have any questions, please contact support.\n\nRegards,\nThe Team",
		},
	}
}

// merged overlays t over the defaults field by field.
func (t Templates) merged() Templates {
	def := DefaultTemplates()
	pick := func(got, fallback Template) Template {
		if got.Subject == "" {
			got.Subject = fallback.Subject
		}
		if got.Body == "" {
			got.Body = fallback.Body
		}
		return got
	}
	return Templates{
		Welcome:        pick(t.Welcome, def.Welcome),
		PasswordChange: pick(t.PasswordChange, def.PasswordChange),
		PasswordReset:  pick(t.PasswordReset, def.PasswordReset),
		Login:          pick(t.Login, def.Login),
		SecurityAlert:  pick(t.SecurityAlert, def.SecurityAlert),
		AccountStatus:  pick(t.AccountStatus, def.AccountStatus),
	}
}

// Render expands user placeholders plus any extra pairs into the template.
func Render(t Template, u model.User, extra map[string]string) (subject, body string) {
	pairs := map[string]string{
		"displayName": u.EffectiveDisplayName(),
		"username":    u.Username,
		"email":       u.Email,
	}
	for k, v := range extra {
		pairs[k] = v
	}
	body = t.Body
	subject = t.Subject
	for k, v := range pairs {
		marker := "{" + k + "}"
		body = strings.ReplaceAll(body, marker, v)
		subject = strings.ReplaceAll(subject, marker, v)
	}
	return subject, body
}

// LogNotifier writes every message to the process log instead of delivering
// it. It is the default sink when email delivery is disabled.
type LogNotifier struct {
	Templates Templates
}

// NewLogNotifier returns a log-only sink.
func NewLogNotifier(t Templates) *LogNotifier {
	return &LogNotifier{Templates: t.merged()}
}

func (n *LogNotifier) deliver(kind string, t Template, u model.User, extra map[string]string) error {
	subject, _ := Render(t, u, extra)
	log.Printf("notify: [%s] to=%s subject=%q (email delivery disabled)", kind, u.Email, subject)
	return nil
}

func (n *LogNotifier) SendWelcome(ctx context.Context, u model.User) error {
	return n.deliver("welcome", n.Templates.Welcome, u, nil)
}

func (n *LogNotifier) SendPasswordChange(ctx context.Context, u model.User) error {
	return n.deliver("password-change", n.Templates.PasswordChange, u, nil)
}

func (n *LogNotifier) SendPasswordReset(ctx context.Context, u model.User, temporaryPassword string) error {
	return n.deliver("password-reset", n.Templates.PasswordReset, u,
		map[string]string{"temporaryPassword": temporaryPassword})
}

func (n *LogNotifier) SendLoginAlert(ctx context.Context, u model.User, ipAddress, userAgent string) error {
	return n.deliver("login", n.Templates.Login, u,
		map[string]string{"ipAddress": ipAddress, "userAgent": userAgent})
}

func (n *LogNotifier) SendSecurityAlert(ctx context.Context, u model.User, alertType, details string) error {
	return n.deliver("security-alert", n.Templates.SecurityAlert, u,
		map[string]string{"alertType": alertType, "details": details})
}

func (n *LogNotifier) SendAccountStatus(ctx context.Context, u model.User, status string) error {
	return n.deliver("account-status", n.Templates.AccountStatus, u,
		map[string]string{"status": status})
}
