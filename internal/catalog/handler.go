// internal/catalog/handler.go
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"ikirezi/internal/accounts"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type Handler struct {
	service Service
	tokens  *accounts.TokenIssuer
}

func NewHandler(service Service, tokens *accounts.TokenIssuer) *Handler {
	return &Handler{service: service, tokens: tokens}
}

// Routes mounts the catalog endpoints. Writes are admin-only; reserve/release
// are called by the orders service during checkout and live under /internal,
// which the gateway never proxies.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/books", h.handleListInStock)
	r.Get("/books/{id}", h.handleGetBook)
	r.Get("/search", h.handleSearch)

	r.Group(func(r chi.Router) {
		r.Use(h.tokens.RequireAdmin)
		r.Post("/books", h.handleAddBook)
		r.Put("/books/{id}", h.handleUpdateBook)
		r.Delete("/books/{id}", h.handleRemoveBook)
	})

	r.Post("/internal/books/{id}/reserve", h.handleReserveStock)
	r.Post("/internal/books/{id}/release", h.handleReleaseStock)
	return r
}

func (h *Handler) handleListInStock(w http.ResponseWriter, r *http.Request) {
	books, err := h.service.ListInStock(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(books)
}

func (h *Handler) handleAddBook(w http.ResponseWriter, r *http.Request) {
	var in BookInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if in.Title == "" || in.Price <= 0 || in.Stock < 0 {
		http.Error(w, "title, positive price and non-negative stock are required", http.StatusBadRequest)
		return
	}

	book, err := h.service.AddBook(r.Context(), in)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(book)
}

func (h *Handler) handleGetBook(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid book ID", http.StatusBadRequest)
		return
	}

	book, err := h.service.GetBook(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrBookNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(book)
}

func (h *Handler) handleUpdateBook(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid book ID", http.StatusBadRequest)
		return
	}

	var in BookInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.service.UpdateBook(r.Context(), id, in); err != nil {
		if errors.Is(err, ErrBookNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) handleRemoveBook(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid book ID", http.StatusBadRequest)
		return
	}

	if err := h.service.RemoveBook(r.Context(), id); err != nil {
		if errors.Is(err, ErrBookNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		http.Error(w, "missing search query", http.StatusBadRequest)
		return
	}

	books, err := h.service.Search(r.Context(), query)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(books)
}

func (h *Handler) handleReserveStock(w http.ResponseWriter, r *http.Request) {
	h.handleStockChange(w, r, h.service.ReserveStock)
}

func (h *Handler) handleReleaseStock(w http.ResponseWriter, r *http.Request) {
	h.handleStockChange(w, r, h.service.ReleaseStock)
}

func (h *Handler) handleStockChange(w http.ResponseWriter, r *http.Request, apply func(ctx context.Context, id uuid.UUID, quantity int) error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid book ID", http.StatusBadRequest)
		return
	}

	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Quantity < 1 {
		http.Error(w, "quantity must be at least 1", http.StatusBadRequest)
		return
	}

	if err := apply(r.Context(), id, req.Quantity); err != nil {
		switch {
		case errors.Is(err, ErrBookNotFound):
			http.Error(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, ErrInsufficientStock):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}
	w.WriteHeader(http.StatusOK)
}
