// internal/accounts/domain.go
package accounts

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrProfileNotFound    = errors.New("profile not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("email already registered")
)

// Profile is a customer account. The shipping fields are denormalized
// defaults used to prefill checkout.
type Profile struct {
	ID                 uuid.UUID `json:"id"`
	Email              string    `json:"email"`
	FullName           string    `json:"full_name"`
	IsAdmin            bool      `json:"is_admin"`
	ShippingAddress    string    `json:"shipping_address,omitempty"`
	ShippingCity       string    `json:"shipping_city,omitempty"`
	ShippingCountry    string    `json:"shipping_country,omitempty"`
	ShippingPostalCode string    `json:"shipping_postal_code,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Credential holds a profile's login secret, never serialized.
type Credential struct {
	ProfileID    uuid.UUID `json:"-"`
	PasswordHash string    `json:"-"`
	Salt         string    `json:"-"`
}

// ProfileRegisteredEvent is published when a new customer registers.
type ProfileRegisteredEvent struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
}

// ProfileUpdatedEvent is published when a customer edits their details.
type ProfileUpdatedEvent struct {
	ID uuid.UUID `json:"id"`
}
