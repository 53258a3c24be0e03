// internal/catalog/domain.go
package catalog

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrBookNotFound      = errors.New("book not found")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// Book is a title sold by the store. Price is in minor currency units (RWF).
type Book struct {
	ID               uuid.UUID `json:"id"`
	Title            string    `json:"title"`
	ShortDescription string    `json:"short_description"`
	Description      string    `json:"description"`
	Price            int64     `json:"price"`
	CoverImage       string    `json:"cover_image,omitempty"`
	Year             int       `json:"year"`
	Pages            int       `json:"pages,omitempty"`
	Language         string    `json:"language,omitempty"`
	Stock            int       `json:"stock"`
	Version          int       `json:"version"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// BookAddedEvent is published when a title enters the catalog.
type BookAddedEvent struct {
	ID    uuid.UUID `json:"id"`
	Title string    `json:"title"`
	Price int64     `json:"price"`
	Stock int       `json:"stock"`
}

// BookUpdatedEvent is published when an admin edits a title.
type BookUpdatedEvent struct {
	ID    uuid.UUID `json:"id"`
	Title string    `json:"title"`
	Price int64     `json:"price"`
	Stock int       `json:"stock"`
}

// BookRemovedEvent is published when a title is retired from sale.
type BookRemovedEvent struct {
	ID uuid.UUID `json:"id"`
}

// StockReservedEvent is published when checkout reserves copies.
type StockReservedEvent struct {
	ID       uuid.UUID `json:"id"`
	Quantity int       `json:"quantity"`
}

// StockReleasedEvent is published when a failed checkout returns copies.
type StockReleasedEvent struct {
	ID       uuid.UUID `json:"id"`
	Quantity int       `json:"quantity"`
}
