package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// InventoryAdjuster adjusts per-item stock in the inventory service. The
// remote endpoint is atomic per item; calls for different items are
// independent. Callers treat failures as best-effort, the same way payment
// callers treat the order notifier.
type InventoryAdjuster interface {
	Increase(ctx context.Context, productID string, quantity int) error
	Decrease(ctx context.Context, productID string, quantity int) error
}

// InventoryClient talks to the inventory service's stock update endpoint.
type InventoryClient struct {
	baseURL      string
	serviceToken string
	httpClient   *http.Client
}

// NewInventoryClient builds an InventoryClient with the given request timeout.
func NewInventoryClient(baseURL, serviceToken string, timeout time.Duration) *InventoryClient {
	return &InventoryClient{
		baseURL:      strings.TrimRight(baseURL, "/"),
		serviceToken: serviceToken,
		httpClient:   &http.Client{Timeout: timeout},
	}
}

type stockUpdate struct {
	Update int `json:"update"`
}

// Increase adds quantity units of stock for the given product.
func (c *InventoryClient) Increase(ctx context.Context, productID string, quantity int) error {
	return c.adjust(ctx, productID, "increase", quantity)
}

// Decrease removes quantity units of stock for the given product.
func (c *InventoryClient) Decrease(ctx context.Context, productID string, quantity int) error {
	return c.adjust(ctx, productID, "decrease", quantity)
}

func (c *InventoryClient) adjust(ctx context.Context, productID, mode string, quantity int) error {
	body, err := json.Marshal(stockUpdate{Update: quantity})
	if err != nil {
		return fmt.Errorf("marshal stock update payload: %w", err)
	}

	url := fmt.Sprintf("%s/inventory/update/%s/%s", c.baseURL, productID, mode)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create stock update request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.serviceToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.serviceToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("stock update request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("inventory service returned status %d: %s", resp.StatusCode, string(respBody))
	}

	return nil
}
