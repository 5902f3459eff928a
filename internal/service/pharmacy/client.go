package pharmacy

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// maxResponseBytes caps how much of a partner response is stored.
const maxResponseBytes = 64 * 1024

// OrderPayload is the body POSTed to a partner's /orders endpoint.
type OrderPayload struct {
	ClientOrderID string      `json:"client_order_id"`
	Recipient     Recipient   `json:"recipient"`
	Items         []OrderItem `json:"items"`
	Doses         int         `json:"doses"`
	Notes         string      `json:"notes"`
}

type Recipient struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

type OrderItem struct {
	SKU      string  `json:"sku"`
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit"`
}

// SendResult is the partner's raw answer.
type SendResult struct {
	StatusCode int
	Body       []byte
}

// Client delivers dispensing orders to partner pharmacies.
type Client interface {
	SendOrder(ctx context.Context, endpoint, apiKey string, payload *OrderPayload) (*SendResult, error)
}

type httpClient struct {
	rc *retryablehttp.Client
}

// NewHTTPClient builds a client that retries transient failures.
// Partners dedupe on client_order_id, so retried POSTs cannot create
// duplicate orders.
func NewHTTPClient(timeout time.Duration) Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 3
	rc.RetryWaitMin = 500 * time.Millisecond
	rc.RetryWaitMax = 5 * time.Second
	rc.HTTPClient.Timeout = timeout
	rc.Logger = nil
	return &httpClient{rc: rc}
}

func (c *httpClient) SendOrder(ctx context.Context, endpoint, apiKey string, payload *OrderPayload) (*SendResult, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode order payload: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, endpoint+"/orders", body)
	if err != nil {
		return nil, fmt.Errorf("failed to build order request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := c.rc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read pharmacy response: %w", err)
	}
	return &SendResult{StatusCode: resp.StatusCode, Body: respBody}, nil
}
