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

	"github.com/example/tienda/internal/models"
)

// OrderNotifier informs the orders service of a payment outcome. The call is
// best-effort at every call site: callers log failures and never retry or
// queue them.
type OrderNotifier interface {
	NotifyPayment(ctx context.Context, orderRef, state string) error
}

// DefaultOrderStatusMap translates payment states into the vocabulary the
// orders service expects. The mapping is configuration, never inferred.
func DefaultOrderStatusMap() map[string]string {
	return map[string]string{
		models.PaymentStatePending:   "PENDIENTE",
		models.PaymentStateCompleted: "PAGADO",
		models.PaymentStateFailed:    "FALLIDO",
	}
}

// OrdersClient is a thin HTTP client for the orders service status callback.
type OrdersClient struct {
	baseURL      string
	serviceToken string
	statusMap    map[string]string
	httpClient   *http.Client
}

// NewOrdersClient builds an OrdersClient. serviceToken may be empty, in which
// case no Authorization header is sent.
func NewOrdersClient(baseURL, serviceToken string, timeout time.Duration, statusMap map[string]string) *OrdersClient {
	if statusMap == nil {
		statusMap = DefaultOrderStatusMap()
	}
	return &OrdersClient{
		baseURL:      strings.TrimRight(baseURL, "/"),
		serviceToken: serviceToken,
		statusMap:    statusMap,
		httpClient:   &http.Client{Timeout: timeout},
	}
}

type orderStatusUpdate struct {
	Status string `json:"status"`
}

// NotifyPayment sends the mapped payment state to the orders service via
// PUT {base}/orders/{ref}/status. Non-2xx responses and transport failures
// are returned as errors.
func (c *OrdersClient) NotifyPayment(ctx context.Context, orderRef, state string) error {
	mapped, ok := c.statusMap[state]
	if !ok {
		mapped = strings.ToUpper(state)
	}

	body, err := json.Marshal(orderStatusUpdate{Status: mapped})
	if err != nil {
		return fmt.Errorf("marshal order status payload: %w", err)
	}

	url := fmt.Sprintf("%s/orders/%s/status", c.baseURL, orderRef)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create order status request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.serviceToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.serviceToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("order status request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("orders service returned status %d: %s", resp.StatusCode, string(respBody))
	}

	return nil
}
