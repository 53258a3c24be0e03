// internal/orders/domain.go
package orders

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrOrderNotFound    = errors.New("order not found")
	ErrEmptyCart        = errors.New("cart is empty")
	ErrInvalidQuantity  = errors.New("quantity must be at least 1")
	ErrNotOwner         = errors.New("order belongs to another customer")
	ErrCancelNotAllowed = errors.New("order can no longer be cancelled")
	ErrIntentNotAllowed = errors.New("order is not awaiting payment")
	ErrUnknownStatus    = errors.New("unknown order status")
)

// Status is the fulfilment state of an order.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// PaymentStatus tracks the provider-reported state of the order's payment.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentSucceeded PaymentStatus = "succeeded"
	PaymentFailed    PaymentStatus = "failed"
	PaymentCanceled  PaymentStatus = "canceled"
)

// Outcome is the closed set of provider notifications the orchestrator acts
// on. Anything else coming off the wire is acknowledged and ignored.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
	OutcomeCanceled  Outcome = "canceled"
)

// Order is one checkout attempt with its financial and shipping record.
type Order struct {
	ID                 uuid.UUID     `json:"id"`
	UserID             uuid.UUID     `json:"user_id"`
	TotalAmount        int64         `json:"total_amount"`
	Status             Status        `json:"status"`
	PaymentStatus      PaymentStatus `json:"payment_status"`
	PaymentIntentID    string        `json:"payment_intent_id,omitempty"`
	ShippingAddress    string        `json:"shipping_address"`
	ShippingCity       string        `json:"shipping_city"`
	ShippingCountry    string        `json:"shipping_country"`
	ShippingPostalCode string        `json:"shipping_postal_code"`
	Items              []OrderItem   `json:"items,omitempty"`
	Version            int           `json:"version"`
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`
}

// OrderItem is one purchased line. Price is the per-copy price snapshotted at
// order time; it never re-reads the catalog.
type OrderItem struct {
	ID       uuid.UUID `json:"id"`
	OrderID  uuid.UUID `json:"order_id"`
	BookID   uuid.UUID `json:"book_id"`
	Quantity int       `json:"quantity"`
	Price    int64     `json:"price"`
}

// CartLine is one entry of the client-held cart, serialized only at the
// order-creation boundary.
type CartLine struct {
	BookID   uuid.UUID `json:"book_id"`
	Quantity int       `json:"quantity"`
}

// ShippingDetails is the destination captured at checkout.
type ShippingDetails struct {
	Address    string `json:"shipping_address"`
	City       string `json:"shipping_city"`
	Country    string `json:"shipping_country"`
	PostalCode string `json:"shipping_postal_code"`
}

// ApplyOutcome computes the order state after a provider notification.
// Notifications are at-least-once and may arrive out of order, so the
// function is a pure guard: success is sticky once reached, terminal states
// never regress, and re-applying a notification changes nothing.
func ApplyOutcome(status Status, payment PaymentStatus, outcome Outcome) (Status, PaymentStatus, bool) {
	switch outcome {
	case OutcomeSucceeded:
		if payment == PaymentSucceeded {
			return status, payment, false
		}
		if status == StatusCancelled || status == StatusCompleted {
			return status, payment, false
		}
		return StatusProcessing, PaymentSucceeded, true

	case OutcomeFailed:
		// A late failure never downgrades a payment that already succeeded.
		if payment == PaymentSucceeded || payment == PaymentFailed {
			return status, payment, false
		}
		return status, PaymentFailed, true

	case OutcomeCanceled:
		if payment == PaymentSucceeded || payment == PaymentCanceled {
			return status, payment, false
		}
		return StatusCancelled, PaymentCanceled, true
	}

	return status, payment, false
}

// CanCancel reports whether a customer may still cancel the order.
func CanCancel(status Status) bool {
	return status == StatusPending || status == StatusProcessing
}

// ValidStatus reports whether s is one of the four order statuses.
func ValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// OrderPlacedEvent is recorded when checkout materializes an order.
type OrderPlacedEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	UserID      uuid.UUID `json:"user_id"`
	TotalAmount int64     `json:"total_amount"`
	Lines       int       `json:"lines"`
}

// PaymentIntentAttachedEvent is recorded when a payment intent is obtained
// for the order.
type PaymentIntentAttachedEvent struct {
	OrderID  uuid.UUID `json:"order_id"`
	IntentID string    `json:"intent_id"`
}

// PaymentOutcomeEvent is recorded when a provider notification actually
// transitions the order.
type PaymentOutcomeEvent struct {
	OrderID  uuid.UUID `json:"order_id"`
	IntentID string    `json:"intent_id"`
	Outcome  Outcome   `json:"outcome"`
}

// OrderCancelledEvent is recorded when the customer cancels.
type OrderCancelledEvent struct {
	OrderID uuid.UUID `json:"order_id"`
}

// StatusOverriddenEvent is recorded when an admin forces a status.
type StatusOverriddenEvent struct {
	OrderID uuid.UUID `json:"order_id"`
	Status  Status    `json:"status"`
}
