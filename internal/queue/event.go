// Package queue defines message payloads exchanged over the message broker
// and the background consumer that delivers them.
package queue

// NotificationQueueName is the durable queue carrying outbound user
// notifications.
const NotificationQueueName = "auth.notifications"

// NotificationEvent is published whenever the engine wants a message
// delivered to a user. The subject and body are fully rendered by the
// publisher so consumers need no template knowledge.
type NotificationEvent struct {
	Kind      string `json:"kind"` // welcome | password-change | password-reset | login | security-alert | account-status
	UserID    string `json:"user_id"`
	Recipient string `json:"recipient"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
	QueuedAt  string `json:"queued_at"` // RFC 3339 UTC
}
