// internal/payments/domain.go
package payments

import "errors"

var (
	ErrInvalidAmount    = errors.New("amount must be greater than zero")
	ErrInvalidSignature = errors.New("webhook signature verification failed")
)

// Intent is the provider-side authorization-to-charge. The client confirms
// it with the clientSecret; the ID correlates webhook notifications back to
// the order.
type Intent struct {
	ID           string `json:"intentId"`
	ClientSecret string `json:"clientSecret"`
}

// NotificationKind is the closed set of provider notifications the system
// acts on. Everything else is acknowledged and ignored.
type NotificationKind string

const (
	KindSucceeded NotificationKind = "succeeded"
	KindFailed    NotificationKind = "failed"
	KindCanceled  NotificationKind = "canceled"
	KindIgnored   NotificationKind = "ignored"
)

// KindForEventType maps a provider event type onto the closed notification
// set.
func KindForEventType(eventType string) NotificationKind {
	switch eventType {
	case "payment_intent.succeeded":
		return KindSucceeded
	case "payment_intent.payment_failed":
		return KindFailed
	case "payment_intent.canceled":
		return KindCanceled
	default:
		return KindIgnored
	}
}

// Notification is a verified, classified provider callback.
type Notification struct {
	Kind     NotificationKind `json:"kind"`
	IntentID string           `json:"intent_id"`
	OrderID  string           `json:"order_id"`
}
