// Package client is the typed HTTP client for the checkout API. The flow
// engine and the demo driver go through it; it owns error decoding, so a
// failed request always surfaces as an *APIError carrying the server's
// message/code pair (or the generic pair when the body is unreadable).
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"time"

	"github.com/jejumarket/checkout-service/internal/models"
	resp "github.com/jejumarket/checkout-service/lib/api/response"
	"github.com/jejumarket/checkout-service/lib/logger/sl"
)

// APIError is a non-2xx answer from the checkout API.
type APIError struct {
	Message string
	Code    string
	Status  int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s (%s)", e.Status, e.Message, e.Code)
}

type Client struct {
	baseURL string
	http    *http.Client
	log     *slog.Logger
}

// New creates a client for the API rooted at baseURL (".../api", no
// trailing slash). The client keeps a cookie jar so the session cookie
// set by ActivateSession rides along on later requests.
func New(baseURL string, log *slog.Logger) *Client {
	jar, _ := cookiejar.New(nil)

	return &Client{
		baseURL: baseURL,
		http: &http.Client{
			Timeout: 15 * time.Second,
			Jar:     jar,
		},
		log: log,
	}
}

// ListItems fetches the product catalog.
func (c *Client) ListItems(ctx context.Context) ([]models.Product, error) {
	var body struct {
		Items []models.Product `json:"items"`
	}

	if err := c.do(ctx, http.MethodGet, "/items", nil, &body); err != nil {
		return nil, err
	}

	return body.Items, nil
}

// CreateOrderItem is one submitted line; the wire name for the product
// identifier is "id" on this endpoint.
type CreateOrderItem struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Price    int    `json:"price"`
}

type CreateOrderRequest struct {
	Customer    models.Customer   `json:"customer"`
	Items       []CreateOrderItem `json:"items"`
	TotalAmount int               `json:"totalAmount"`
	OrderName   string            `json:"orderName"`
}

// CreateOrder submits a new order and returns its id.
func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (string, error) {
	var body struct {
		OrderID string `json:"orderId"`
	}

	if err := c.do(ctx, http.MethodPost, "/orders", req, &body); err != nil {
		return "", err
	}

	return body.OrderID, nil
}

// GetOrder fetches the full order record by id.
func (c *Client) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	order := &models.Order{}

	if err := c.do(ctx, http.MethodGet, "/orders/"+orderID, nil, order); err != nil {
		return nil, err
	}

	return order, nil
}

// ApprovePayment finalizes the charge for an order.
func (c *Client) ApprovePayment(ctx context.Context, orderID string, amount int64, paymentKey string) error {
	req := struct {
		TotalAmount int64  `json:"totalAmount"`
		PaymentKey  string `json:"paymentKey"`
	}{
		TotalAmount: amount,
		PaymentKey:  paymentKey,
	}

	return c.do(ctx, http.MethodPost, "/orders/"+orderID+"/payments", req, nil)
}

// ActivateSession establishes the server session. Fire-and-forget: any
// failure is logged and swallowed, the checkout never blocks on it.
func (c *Client) ActivateSession(ctx context.Context) {
	if err := c.do(ctx, http.MethodPost, "/sessions", nil, nil); err != nil {
		c.log.Warn("session activation failed", sl.Err(err))
	}
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var reqBody *bytes.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("can't marshal request: %v", err)
		}

		reqBody = bytes.NewReader(b)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("can't build request: %v", err)
	}

	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.http.Do(req)
	if err != nil {
		// Deliberate cancellation must stay recognizable to the caller, so
		// the transport error is returned as-is (it wraps ctx.Err()).
		return err
	}
	defer res.Body.Close()

	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		return decodeAPIError(res)
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("can't decode response: %v", err)
	}

	return nil
}

func decodeAPIError(res *http.Response) error {
	apiErr := &APIError{
		Message: resp.MsgUnknown,
		Code:    resp.CodeUnknown,
		Status:  res.StatusCode,
	}

	var payload resp.Err
	if err := json.NewDecoder(res.Body).Decode(&payload); err == nil {
		if payload.Message != "" {
			apiErr.Message = payload.Message
		}
		if payload.Code != "" {
			apiErr.Code = payload.Code
		}
	}

	return apiErr
}
