package config

// Notification settings: delivery toggles, SMTP relay parameters, and
// per-template subject/body overrides. Template bodies support the
// placeholders {displayName}, {username}, {email}, {ipAddress},
// {userAgent}, {alertType}, {details}, {status} and {temporaryPassword};
// unset variables keep the built-in texts.

import (
	"strings"

	"github.com/iliyamo/auth-service/internal/notify"
)

// NotificationConfig selects the delivery path and carries the rendered
// template set.
type NotificationConfig struct {
	EmailEnabled bool // deliver via SMTP; otherwise messages go to the log
	UseQueue     bool // publish through RabbitMQ instead of sending inline
	SMTP         notify.SMTPConfig
	Templates    notify.Templates
}

// LoadNotificationConfig reads the notification environment variables.
func LoadNotificationConfig() NotificationConfig {
	return NotificationConfig{
		EmailEnabled: boolenv("NOTIFY_EMAIL_ENABLED"),
		UseQueue:     boolenv("NOTIFY_USE_QUEUE"),
		SMTP: notify.SMTPConfig{
			Host:     getenv("SMTP_HOST", "localhost"),
			Port:     intenv("SMTP_PORT", 587),
			Username: getenv("SMTP_USERNAME", ""),
			Password: getenv("SMTP_PASSWORD", ""),
			From:     getenv("NOTIFY_EMAIL_FROM", "noreply@example.com"),
		},
		Templates: notify.Templates{
			Welcome: notify.Template{
				Subject: getenv("NOTIFY_WELCOME_SUBJECT", ""),
				Body:    getenv("NOTIFY_WELCOME_BODY", ""),
			},
			PasswordChange: notify.Template{
				Subject: getenv("NOTIFY_PASSWORD_CHANGE_SUBJECT", ""),
				Body:    getenv("NOTIFY_PASSWORD_CHANGE_BODY", ""),
			},
			PasswordReset: notify.Template{
				Subject: getenv("NOTIFY_PASSWORD_RESET_SUBJECT", ""),
				Body:    getenv("NOTIFY_PASSWORD_RESET_BODY", ""),
			},
			Login: notify.Template{
				Subject: getenv("NOTIFY_LOGIN_SUBJECT", ""),
				Body:    getenv("NOTIFY_LOGIN_BODY", ""),
			},
			SecurityAlert: notify.Template{
				Subject: getenv("NOTIFY_SECURITY_ALERT_SUBJECT", ""),
				Body:    getenv("NOTIFY_SECURITY_ALERT_BODY", ""),
			},
			AccountStatus: notify.Template{
				Subject: getenv("NOTIFY_ACCOUNT_STATUS_SUBJECT", ""),
				Body:    getenv("NOTIFY_ACCOUNT_STATUS_BODY", ""),
			},
		},
	}
}

func boolenv(key string) bool {
	v := getenv(key, "false")
	return strings.EqualFold(v, "true") || v == "1"
}
