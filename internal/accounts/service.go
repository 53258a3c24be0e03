// internal/accounts/service.go
package accounts

import (
	"context"

	"github.com/google/uuid"
)

// ProfileUpdate carries the customer-editable fields of a profile.
type ProfileUpdate struct {
	FullName           string `json:"full_name"`
	ShippingAddress    string `json:"shipping_address"`
	ShippingCity       string `json:"shipping_city"`
	ShippingCountry    string `json:"shipping_country"`
	ShippingPostalCode string `json:"shipping_postal_code"`
}

// Service defines the interface for the accounts service.
type Service interface {
	Register(ctx context.Context, email, fullName, password string) (*Profile, error)
	Login(ctx context.Context, email, password string) (*Profile, string, error)
	GetProfile(ctx context.Context, id uuid.UUID) (*Profile, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, update ProfileUpdate) error
	ListProfiles(ctx context.Context) ([]*Profile, error)
}
