// internal/clients/catalog_client.go
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"ikirezi/internal/catalog"

	"github.com/google/uuid"
)

// CatalogClient is the orders service's view of the catalog service.
type CatalogClient struct {
	baseURL string
	http    *http.Client
}

func NewCatalogClient(baseURL string) *CatalogClient {
	return &CatalogClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 5 * time.Second},
	}
}

func (c *CatalogClient) GetBook(ctx context.Context, id uuid.UUID) (*catalog.Book, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/books/%s", c.baseURL, id), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, catalog.ErrBookNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var book catalog.Book
	if err := json.NewDecoder(resp.Body).Decode(&book); err != nil {
		return nil, err
	}

	return &book, nil
}

// ReserveStock takes copies off the shelf for a checkout in progress.
func (c *CatalogClient) ReserveStock(ctx context.Context, id uuid.UUID, quantity int) error {
	return c.postStockChange(ctx, id, "reserve", quantity)
}

// ReleaseStock compensates a reservation after a failed checkout step.
func (c *CatalogClient) ReleaseStock(ctx context.Context, id uuid.UUID, quantity int) error {
	return c.postStockChange(ctx, id, "release", quantity)
}

func (c *CatalogClient) postStockChange(ctx context.Context, id uuid.UUID, action string, quantity int) error {
	body, err := json.Marshal(struct {
		Quantity int `json:"quantity"`
	}{Quantity: quantity})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/internal/books/%s/%s", c.baseURL, id, action)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
		return catalog.ErrBookNotFound
	case http.StatusConflict:
		return catalog.ErrInsufficientStock
	default:
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
}
