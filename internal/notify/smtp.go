package notify

import (
	"context"
	"fmt"
	"log"
	"net/smtp"

	"github.com/iliyamo/auth-service/internal/model"
)

// SMTPConfig holds the mail relay settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPNotifier delivers messages through a plain SMTP relay with optional
// AUTH. Delivery errors are returned to the caller, which logs and drops
// them; they never reach the user.
type SMTPNotifier struct {
	cfg       SMTPConfig
	templates Templates
	// send is swappable for tests.
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPNotifier builds an SMTP-backed sink.
func NewSMTPNotifier(cfg SMTPConfig, t Templates) *SMTPNotifier {
	return &SMTPNotifier{cfg: cfg, templates: t.merged(), send: smtp.SendMail}
}

func (n *SMTPNotifier) deliver(t Template, u model.User, extra map[string]string) error {
	subject, body := Render(t, u, extra)
	return n.DeliverRendered(context.Background(), u.Email, subject, body)
}

// DeliverRendered sends an already-rendered message to the recipient. The
// queue consumer uses it directly since events arrive fully rendered.
func (n *SMTPNotifier) DeliverRendered(ctx context.Context, recipient, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s",
		n.cfg.From, recipient, subject, body)

	var auth smtp.Auth
	if n.cfg.Username != "" {
		auth = smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
	}
	addr := fmt.Sprintf("%s:%d", n.cfg.Host, n.cfg.Port)
	if err := n.send(addr, auth, n.cfg.From, []string{recipient}, []byte(msg)); err != nil {
		log.Printf("notify: smtp delivery to %s failed: %v", recipient, err)
		return err
	}
	log.Printf("notify: email sent to %s subject=%q", recipient, subject)
	return nil
}

func (n *SMTPNotifier) SendWelcome(ctx context.Context, u model.User) error {
	return n.deliver(n.templates.Welcome, u, nil)
}

func (n *SMTPNotifier) SendPasswordChange(ctx context.Context, u model.User) error {
	return n.deliver(n.templates.PasswordChange, u, nil)
}

func (n *SMTPNotifier) SendPasswordReset(ctx context.Context, u model.User, temporaryPassword string) error {
	return n.deliver(n.templates.PasswordReset, u,
		map[string]string{"temporaryPassword": temporaryPassword})
}

func (n *SMTPNotifier) SendLoginAlert(ctx context.Context, u model.User, ipAddress, userAgent string) error {
	return n.deliver(n.templates.Login, u,
		map[string]string{"ipAddress": ipAddress, "userAgent": userAgent})
}

func (n *SMTPNotifier) SendSecurityAlert(ctx context.Context, u model.User, alertType, details string) error {
	return n.deliver(n.templates.SecurityAlert, u,
		map[string]string{"alertType": alertType, "details": details})
}

func (n *SMTPNotifier) SendAccountStatus(ctx context.Context, u model.User, status string) error {
	return n.deliver(n.templates.AccountStatus, u,
		map[string]string{"status": status})
}
