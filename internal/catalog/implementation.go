// internal/catalog/implementation.go
package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"

	"ikirezi/pkg/eventstore"

	"github.com/google/uuid"
	"github.com/meilisearch/meilisearch-go"
)

const searchIndex = "books"

// service implements the Service interface.
type service struct {
	eventStore *eventstore.EventStore
	db         *sql.DB
	search     meilisearch.ServiceManager
}

// NewService creates a new catalog service instance. search may be nil, in
// which case Search falls back to the Postgres full-text index.
func NewService(es *eventstore.EventStore, db *sql.DB, search meilisearch.ServiceManager) Service {
	return &service{
		eventStore: es,
		db:         db,
		search:     search,
	}
}

// AddBook creates a new title in the catalog.
func (s *service) AddBook(ctx context.Context, in BookInput) (*Book, error) {
	id := uuid.New()
	eventData := BookAddedEvent{
		ID:    id,
		Title: in.Title,
		Price: in.Price,
		Stock: in.Stock,
	}

	jsonData, err := json.Marshal(eventData)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event data: %w", err)
	}

	event := eventstore.Event{
		EventType: "BookAdded",
		EventData: jsonData,
	}

	if err := s.eventStore.AppendEvents(ctx, id, "book", 0, []eventstore.Event{event}); err != nil {
		return nil, fmt.Errorf("failed to append event: %w", err)
	}

	book := &Book{
		ID:               id,
		Title:            in.Title,
		ShortDescription: in.ShortDescription,
		Description:      in.Description,
		Price:            in.Price,
		CoverImage:       in.CoverImage,
		Year:             in.Year,
		Pages:            in.Pages,
		Language:         in.Language,
		Stock:            in.Stock,
		Version:          1,
	}
	if err := s.insertBookIntoReadModel(ctx, book); err != nil {
		return nil, fmt.Errorf("failed to update read model: %w", err)
	}

	s.syncSearchIndex(book)
	return book, nil
}

func (s *service) insertBookIntoReadModel(ctx context.Context, book *Book) error {
	query := `
		INSERT INTO books (id, title, short_description, description, price, cover_image, year, pages, language, stock, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := s.db.ExecContext(ctx, query,
		book.ID, book.Title, book.ShortDescription, book.Description, book.Price,
		book.CoverImage, book.Year, book.Pages, book.Language, book.Stock, book.Version)
	return err
}

// GetBook retrieves a title by its ID.
func (s *service) GetBook(ctx context.Context, id uuid.UUID) (*Book, error) {
	query := `
		SELECT id, title, short_description, description, price, cover_image, year, pages, language, stock, version, created_at, updated_at
		FROM books
		WHERE id = $1
	`
	book := &Book{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&book.ID,
		&book.Title,
		&book.ShortDescription,
		&book.Description,
		&book.Price,
		&book.CoverImage,
		&book.Year,
		&book.Pages,
		&book.Language,
		&book.Stock,
		&book.Version,
		&book.CreatedAt,
		&book.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrBookNotFound
		}
		return nil, fmt.Errorf("failed to get book from read model: %w", err)
	}

	return book, nil
}

// UpdateBook replaces the admin-editable fields of a title.
func (s *service) UpdateBook(ctx context.Context, id uuid.UUID, in BookInput) error {
	book, err := s.GetBook(ctx, id)
	if err != nil {
		return err
	}

	eventData := BookUpdatedEvent{
		ID:    id,
		Title: in.Title,
		Price: in.Price,
		Stock: in.Stock,
	}

	jsonData, err := json.Marshal(eventData)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	event := eventstore.Event{
		EventType: "BookUpdated",
		EventData: jsonData,
	}

	if err := s.eventStore.AppendEvents(ctx, id, "book", book.Version, []eventstore.Event{event}); err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}

	query := `
		UPDATE books
		SET title = $1, short_description = $2, description = $3, price = $4, cover_image = $5,
		    year = $6, pages = $7, language = $8, stock = $9, version = version + 1, updated_at = NOW()
		WHERE id = $10 AND version = $11
	`
	_, err = s.db.ExecContext(ctx, query,
		in.Title, in.ShortDescription, in.Description, in.Price, in.CoverImage,
		in.Year, in.Pages, in.Language, in.Stock, id, book.Version)
	if err != nil {
		return err
	}

	book.Title = in.Title
	book.ShortDescription = in.ShortDescription
	book.Price = in.Price
	book.Stock = in.Stock
	s.syncSearchIndex(book)
	return nil
}

// RemoveBook deletes a title from sale.
func (s *service) RemoveBook(ctx context.Context, id uuid.UUID) error {
	book, err := s.GetBook(ctx, id)
	if err != nil {
		return err
	}

	eventData := BookRemovedEvent{ID: id}
	jsonData, err := json.Marshal(eventData)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	event := eventstore.Event{
		EventType: "BookRemoved",
		EventData: jsonData,
	}

	if err := s.eventStore.AppendEvents(ctx, id, "book", book.Version, []eventstore.Event{event}); err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}

	query := `DELETE FROM books WHERE id = $1`
	if _, err := s.db.ExecContext(ctx, query, id); err != nil {
		return err
	}

	if s.search != nil {
		if _, err := s.search.Index(searchIndex).DeleteDocument(id.String()); err != nil {
			log.Printf("catalog: failed to remove book %s from search index: %v", id, err)
		}
	}
	return nil
}

// ListInStock returns every title with copies available, newest first.
func (s *service) ListInStock(ctx context.Context) ([]*Book, error) {
	query := `
		SELECT id, title, short_description, description, price, cover_image, year, pages, language, stock, version, created_at, updated_at
		FROM books
		WHERE stock > 0
		ORDER BY created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	defer rows.Close()

	var books []*Book
	for rows.Next() {
		book := &Book{}
		err := rows.Scan(
			&book.ID, &book.Title, &book.ShortDescription, &book.Description, &book.Price,
			&book.CoverImage, &book.Year, &book.Pages, &book.Language, &book.Stock,
			&book.Version, &book.CreatedAt, &book.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan book: %w", err)
		}
		books = append(books, book)
	}

	return books, rows.Err()
}

// ReserveStock atomically takes quantity copies off the shelf. The conditional
// update is the guard against overselling under concurrent checkouts.
func (s *service) ReserveStock(ctx context.Context, id uuid.UUID, quantity int) error {
	if quantity < 1 {
		return fmt.Errorf("quantity must be at least 1")
	}

	query := `
		UPDATE books
		SET stock = stock - $1, version = version + 1, updated_at = NOW()
		WHERE id = $2 AND stock >= $1
		RETURNING version
	`
	var version int
	err := s.db.QueryRowContext(ctx, query, quantity, id).Scan(&version)
	if err == sql.ErrNoRows {
		if _, getErr := s.GetBook(ctx, id); getErr != nil {
			return getErr
		}
		return ErrInsufficientStock
	}
	if err != nil {
		return fmt.Errorf("failed to reserve stock: %w", err)
	}

	s.appendStockEvent(ctx, id, "StockReserved", StockReservedEvent{ID: id, Quantity: quantity}, version)
	return nil
}

// ReleaseStock returns quantity copies to the shelf after a failed checkout.
func (s *service) ReleaseStock(ctx context.Context, id uuid.UUID, quantity int) error {
	if quantity < 1 {
		return fmt.Errorf("quantity must be at least 1")
	}

	query := `
		UPDATE books
		SET stock = stock + $1, version = version + 1, updated_at = NOW()
		WHERE id = $2
		RETURNING version
	`
	var version int
	err := s.db.QueryRowContext(ctx, query, quantity, id).Scan(&version)
	if err == sql.ErrNoRows {
		return ErrBookNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to release stock: %w", err)
	}

	s.appendStockEvent(ctx, id, "StockReleased", StockReleasedEvent{ID: id, Quantity: quantity}, version)
	return nil
}

// appendStockEvent records a stock movement in the event log. The books table
// is the ledger of record for stock, so a conflict here is logged, not fatal.
func (s *service) appendStockEvent(ctx context.Context, id uuid.UUID, eventType string, data interface{}, version int) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		log.Printf("catalog: failed to marshal %s event: %v", eventType, err)
		return
	}
	event := eventstore.Event{EventType: eventType, EventData: jsonData}
	if err := s.eventStore.AppendEvents(ctx, id, "book", version-1, []eventstore.Event{event}); err != nil {
		log.Printf("catalog: failed to append %s event for book %s: %v", eventType, id, err)
	}
}

// Search finds titles, preferring the Meilisearch index and falling back to
// the database when the index is unavailable.
func (s *service) Search(ctx context.Context, query string) ([]*Book, error) {
	if s.search != nil {
		books, err := s.searchMeilisearch(ctx, query)
		if err == nil {
			return books, nil
		}
		log.Printf("catalog: search index unavailable, falling back to database: %v", err)
	}
	return s.searchDatabase(ctx, query)
}

func (s *service) searchMeilisearch(ctx context.Context, query string) ([]*Book, error) {
	res, err := s.search.Index(searchIndex).SearchWithContext(ctx, query, &meilisearch.SearchRequest{
		Limit: 10,
	})
	if err != nil {
		return nil, fmt.Errorf("meilisearch query failed: %w", err)
	}

	books := make([]*Book, 0, len(res.Hits))
	for _, hit := range res.Hits {
		raw, err := json.Marshal(hit)
		if err != nil {
			continue
		}
		book := &Book{}
		if err := json.Unmarshal(raw, book); err != nil {
			continue
		}
		books = append(books, book)
	}
	return books, nil
}

func (s *service) searchDatabase(ctx context.Context, query string) ([]*Book, error) {
	dbQuery := `
		SELECT id, title, short_description, price, stock
		FROM books
		WHERE to_tsvector('english', title) @@ plainto_tsquery('english', $1)
		OR to_tsvector('english', description) @@ plainto_tsquery('english', $1)
		LIMIT 10
	`
	rows, err := s.db.QueryContext(ctx, dbQuery, query)
	if err != nil {
		return nil, fmt.Errorf("database search failed: %w", err)
	}
	defer rows.Close()

	var books []*Book
	for rows.Next() {
		book := &Book{}
		if err := rows.Scan(&book.ID, &book.Title, &book.ShortDescription, &book.Price, &book.Stock); err != nil {
			return nil, fmt.Errorf("failed to scan book: %w", err)
		}
		books = append(books, book)
	}

	return books, rows.Err()
}

func (s *service) syncSearchIndex(book *Book) {
	if s.search == nil {
		return
	}
	if _, err := s.search.Index(searchIndex).AddDocuments([]*Book{book}, nil); err != nil {
		log.Printf("catalog: failed to index book %s: %v", book.ID, err)
	}
}
