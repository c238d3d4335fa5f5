// Package sandbox is an in-memory payment provider for tests and the demo
// driver. It honors the same lifecycle as the real widget but issues its
// own payment keys and redirects immediately, without a browser hop.
package sandbox

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/jejumarket/checkout-service/internal/payment"
)

// Sandbox acts as both the widget Provider and the confirm Gateway, which
// mirrors how the real provider shares state between the two halves.
type Sandbox struct {
	mu sync.Mutex

	amount     payment.Amount
	rendered   int
	disposed   bool
	issuedKeys map[string]int64 // paymentKey -> amount

	failCode    string
	failMessage string
}

func New() *Sandbox {
	return &Sandbox{
		issuedKeys: make(map[string]int64),
	}
}

// FailWith makes the next RequestPayment redirect to the fail URL with the
// given provider code and message.
func (s *Sandbox) FailWith(code, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failCode = code
	s.failMessage = message
}

func (s *Sandbox) SetAmount(_ context.Context, amount payment.Amount) error {
	if amount.Value <= 0 {
		return fmt.Errorf("sandbox: non-positive amount %d", amount.Value)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.amount = amount

	return nil
}

func (s *Sandbox) RenderUI(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		return fmt.Errorf("sandbox: widget already disposed")
	}

	// Payment-method and agreement surfaces.
	s.rendered = 2

	return nil
}

func (s *Sandbox) RequestPayment(_ context.Context, req payment.Request) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rendered == 0 {
		return "", fmt.Errorf("sandbox: widget not rendered")
	}

	if s.failCode != "" {
		q := url.Values{}
		q.Set("code", s.failCode)
		q.Set("message", s.failMessage)

		return req.FailURL + "?" + q.Encode(), nil
	}

	key := "sandbox_" + uuid.NewString()
	s.issuedKeys[key] = s.amount.Value

	q := url.Values{}
	q.Set("orderId", req.OrderID)
	q.Set("amount", fmt.Sprintf("%d", s.amount.Value))
	q.Set("paymentKey", key)

	return req.SuccessURL + "?" + q.Encode(), nil
}

func (s *Sandbox) Dispose() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rendered = 0
	s.disposed = true

	return nil
}

// Confirm approves a charge for a key the sandbox itself issued with a
// matching amount; anything else is rejected the way the real gateway
// rejects a forged or replayed key.
func (s *Sandbox) Confirm(_ context.Context, req payment.ConfirmRequest) (payment.ConfirmResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	amount, issued := s.issuedKeys[req.PaymentKey]
	if issued && amount != req.Amount {
		return payment.ConfirmResult{}, &payment.ProviderError{
			Code:    "INVALID_AMOUNT",
			Message: "결제 금액이 일치하지 않습니다",
		}
	}

	// Keys issued by another sandbox instance (the demo driver runs its
	// widget in a different process than the service's gateway) are
	// recognized by prefix alone.
	if !issued && !strings.HasPrefix(req.PaymentKey, "sandbox_") {
		return payment.ConfirmResult{}, &payment.ProviderError{
			Code:    "NOT_FOUND_PAYMENT",
			Message: "존재하지 않는 결제입니다",
		}
	}

	delete(s.issuedKeys, req.PaymentKey)

	return payment.ConfirmResult{
		PaymentKey: req.PaymentKey,
		Status:     "DONE",
	}, nil
}
