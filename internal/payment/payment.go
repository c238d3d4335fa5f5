// Package payment defines the capability interface around the third-party
// payment widget. The widget's imperative lifecycle (init → render →
// request → dispose) hides behind Provider so the checkout flow can be
// driven and tested without the real SDK; Gateway is the server-side
// counterpart that finalizes the charge.
package payment

import (
	"context"
	"fmt"
	"time"
)

// Amount is the payment amount handed to the widget.
type Amount struct {
	Currency string `json:"currency"`
	Value    int64  `json:"value"`
}

// Request carries everything the widget needs to issue the charge
// redirect. SuccessURL and FailURL must be rooted at the shop origin.
type Request struct {
	OrderID             string `json:"orderId"`
	OrderName           string `json:"orderName"`
	SuccessURL          string `json:"successUrl"`
	FailURL             string `json:"failUrl"`
	CustomerName        string `json:"customerName"`
	CustomerEmail       string `json:"customerEmail"`
	CustomerMobilePhone string `json:"customerMobilePhone"`
}

// Provider is the client-side widget capability.
//
// RenderUI prepares both widget surfaces (payment methods and agreement)
// and returns only when every surface is ready. RequestPayment issues the
// charge and returns the redirect URL the provider chose: the success URL
// with orderId/amount/paymentKey appended, or the fail URL with
// code/message. Dispose releases whatever the renders allocated.
type Provider interface {
	SetAmount(ctx context.Context, amount Amount) error
	RenderUI(ctx context.Context) error
	RequestPayment(ctx context.Context, req Request) (redirectURL string, err error)
	Dispose() error
}

// ConfirmRequest is the server-side charge finalization input.
type ConfirmRequest struct {
	PaymentKey string `json:"paymentKey"`
	OrderID    string `json:"orderId"`
	Amount     int64  `json:"amount"`
}

// ConfirmResult is the provider's view of an approved payment.
type ConfirmResult struct {
	PaymentKey string    `json:"paymentKey"`
	Status     string    `json:"status"`
	ApprovedAt time.Time `json:"approvedAt"`
}

// Gateway finalizes charges against the provider's REST API.
type Gateway interface {
	Confirm(ctx context.Context, req ConfirmRequest) (ConfirmResult, error)
}

// ProviderError is a rejection issued by the payment provider itself. It
// keeps the provider's code/message pair so the failure page can show it.
type ProviderError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("payment provider: %s (%s)", e.Message, e.Code)
}
