// internal/catalog/service.go
package catalog

import (
	"context"

	"github.com/google/uuid"
)

// BookInput carries the admin-editable fields of a title.
type BookInput struct {
	Title            string `json:"title"`
	ShortDescription string `json:"short_description"`
	Description      string `json:"description"`
	Price            int64  `json:"price"`
	CoverImage       string `json:"cover_image"`
	Year             int    `json:"year"`
	Pages            int    `json:"pages"`
	Language         string `json:"language"`
	Stock            int    `json:"stock"`
}

// Service defines the interface for the catalog service.
type Service interface {
	AddBook(ctx context.Context, in BookInput) (*Book, error)
	GetBook(ctx context.Context, id uuid.UUID) (*Book, error)
	UpdateBook(ctx context.Context, id uuid.UUID, in BookInput) error
	RemoveBook(ctx context.Context, id uuid.UUID) error
	ListInStock(ctx context.Context) ([]*Book, error)
	Search(ctx context.Context, query string) ([]*Book, error)
	ReserveStock(ctx context.Context, id uuid.UUID, quantity int) error
	ReleaseStock(ctx context.Context, id uuid.UUID, quantity int) error
}
