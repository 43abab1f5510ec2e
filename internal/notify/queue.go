package notify

import (
	"context"
	"log"
	"time"

	"github.com/iliyamo/auth-service/internal/model"
	"github.com/iliyamo/auth-service/internal/queue"
)

// Publish hands a rendered event to the broker; swappable for tests.
type Publish func(ctx context.Context, event queue.NotificationEvent) error

// QueueNotifier renders templates and publishes the resulting messages to
// RabbitMQ. A separate consumer (see queue.StartNotificationConsumer)
// performs the actual delivery, keeping slow SMTP round-trips out of the
// request path. Publish failures are logged and reported to the caller,
// which drops them.
type QueueNotifier struct {
	templates Templates
	publish   Publish
}

// NewQueueNotifier builds a broker-backed sink.
func NewQueueNotifier(t Templates, publish Publish) *QueueNotifier {
	return &QueueNotifier{templates: t.merged(), publish: publish}
}

func (n *QueueNotifier) deliver(ctx context.Context, kind string, t Template, u model.User, extra map[string]string) error {
	subject, body := Render(t, u, extra)
	event := queue.NotificationEvent{
		Kind:      kind,
		UserID:    u.ID,
		Recipient: u.Email,
		Subject:   subject,
		Body:      body,
		QueuedAt:  time.Now().UTC().Format(time.RFC3339),
	}
	if err := n.publish(ctx, event); err != nil {
		log.Printf("notify: queueing %s notification for %s failed: %v", kind, u.Email, err)
		return err
	}
	return nil
}

func (n *QueueNotifier) SendWelcome(ctx context.Context, u model.User) error {
	return n.deliver(ctx, "welcome", n.templates.Welcome, u, nil)
}

func (n *QueueNotifier) SendPasswordChange(ctx context.Context, u model.User) error {
	return n.deliver(ctx, "password-change", n.templates.PasswordChange, u, nil)
}

func (n *QueueNotifier) SendPasswordReset(ctx context.Context, u model.User, temporaryPassword string) error {
	return n.deliver(ctx, "password-reset", n.templates.PasswordReset, u,
		map[string]string{"temporaryPassword": temporaryPassword})
}

func (n *QueueNotifier) SendLoginAlert(ctx context.Context, u model.User, ipAddress, userAgent string) error {
	return n.deliver(ctx, "login", n.templates.Login, u,
		map[string]string{"ipAddress": ipAddress, "userAgent": userAgent})
}

func (n *QueueNotifier) SendSecurityAlert(ctx context.Context, u model.User, alertType, details string) error {
	return n.deliver(ctx, "security-alert", n.templates.SecurityAlert, u,
		map[string]string{"alertType": alertType, "details": details})
}

func (n *QueueNotifier) SendAccountStatus(ctx context.Context, u model.User, status string) error {
	return n.deliver(ctx, "account-status", n.templates.AccountStatus, u,
		map[string]string{"status": status})
}
