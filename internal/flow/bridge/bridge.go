// Package bridge implements the payment page: it loads the order named in
// the URL, checks the record's shape, and drives the payment widget. The
// widget itself is opaque; the bridge only feeds it the amount and the
// customer identity and releases it on teardown.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jejumarket/checkout-service/internal/flow"
	"github.com/jejumarket/checkout-service/internal/models"
	"github.com/jejumarket/checkout-service/internal/payment"
	resp "github.com/jejumarket/checkout-service/lib/api/response"
)

var (
	// ErrInvalidOrder covers a missing id, a failed fetch and a malformed
	// record; all three redirect to the failure page the same way.
	ErrInvalidOrder = errors.New("invalid order")
	// ErrNotReady rejects a payment request before both widget surfaces
	// have rendered.
	ErrNotReady = errors.New("widget is not ready")
)

// Client is the slice of the API the bridge needs.
type Client interface {
	GetOrder(ctx context.Context, orderID string) (*models.Order, error)
}

// Bridge is the payment-page state for one checkout.
type Bridge struct {
	client   Client
	provider payment.Provider
	nav      flow.Navigator
	origin   string

	order *models.Order
	ready bool
}

func New(c Client, provider payment.Provider, nav flow.Navigator, origin string) *Bridge {
	return &Bridge{
		client:   c,
		provider: provider,
		nav:      nav,
		origin:   origin,
	}
}

// Load fetches and validates the order, then boots the widget: amount
// first, then both UI surfaces. The page is ready for interaction only
// after every surface has rendered. Any order problem redirects to the
// failure page instead of surfacing locally; a canceled context returns
// without navigating.
func (b *Bridge) Load(ctx context.Context, orderID string) error {
	if orderID == "" {
		b.failInvalidOrder()

		return ErrInvalidOrder
	}

	order, err := b.client.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}

		b.failInvalidOrder()

		return ErrInvalidOrder
	}

	if err := ValidateOrder(order); err != nil {
		b.failInvalidOrder()

		return ErrInvalidOrder
	}

	b.order = order

	if err := b.provider.SetAmount(ctx, payment.Amount{
		Currency: "KRW",
		Value:    int64(order.TotalAmount),
	}); err != nil {
		return fmt.Errorf("can't set amount: %w", err)
	}

	if err := b.provider.RenderUI(ctx); err != nil {
		return fmt.Errorf("can't render widget: %w", err)
	}

	b.ready = true

	return nil
}

// Ready reports whether the widget finished rendering.
func (b *Bridge) Ready() bool {
	return b.ready
}

// Order returns the loaded order record.
func (b *Bridge) Order() *models.Order {
	return b.order
}

// Pay triggers the widget's payment request with the redirect URLs rooted
// at the shop origin, then follows the redirect the provider issued.
func (b *Bridge) Pay(ctx context.Context) error {
	if !b.ready {
		return ErrNotReady
	}

	redirectURL, err := b.provider.RequestPayment(ctx, payment.Request{
		OrderID:             b.order.OrderID,
		OrderName:           b.order.OrderName,
		SuccessURL:          b.origin + "/success",
		FailURL:             b.origin + "/fail",
		CustomerName:        b.order.Customer.Name,
		CustomerEmail:       "customer@example.com",
		CustomerMobilePhone: digitsOnly(b.order.Customer.Phone),
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}

		return fmt.Errorf("payment request failed: %w", err)
	}

	b.nav.Assign(redirectURL)

	return nil
}

// Close releases everything the widget allocated. Safe to call without a
// prior successful Load.
func (b *Bridge) Close() error {
	b.ready = false

	return b.provider.Dispose()
}

// HandleRestore reacts to the page being restored from a history snapshot.
// Re-binding the widget to a restored DOM duplicates its instances, so the
// bridge forces a full reload instead.
func (b *Bridge) HandleRestore() {
	b.nav.Reload()
}

// ValidateOrder checks the fetched record's shape before it reaches the
// widget: a non-empty item list, a customer with name, phone and address,
// a positive total and an order id.
func ValidateOrder(order *models.Order) error {
	if order == nil {
		return fmt.Errorf("order is nil")
	}

	if len(order.Items) == 0 {
		return fmt.Errorf("order has no items")
	}

	customer := order.Customer
	for field, value := range map[string]string{
		"name":    customer.Name,
		"phone":   customer.Phone,
		"address": customer.Address,
	} {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("customer %s is empty", field)
		}
	}

	if order.TotalAmount <= 0 {
		return fmt.Errorf("total amount is not positive")
	}

	if order.OrderID == "" {
		return fmt.Errorf("order id is empty")
	}

	return nil
}

func (b *Bridge) failInvalidOrder() {
	b.nav.Assign(flow.FailURL(resp.MsgInvalidOrder, resp.CodeInvalidOrder))
}

func digitsOnly(s string) string {
	var sb strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			sb.WriteRune(r)
		}
	}

	return sb.String()
}
