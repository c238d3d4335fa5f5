// Package runner drives a complete checkout the way a browser session
// would: fill the order form, submit, follow the navigation to the payment
// page, pay, follow the provider redirect, confirm. The demo driver runs
// it in bulk; the flow packages stay unaware they are being driven.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/jejumarket/checkout-service/internal/flow"
	"github.com/jejumarket/checkout-service/internal/flow/bridge"
	"github.com/jejumarket/checkout-service/internal/flow/confirm"
	"github.com/jejumarket/checkout-service/internal/flow/failview"
	"github.com/jejumarket/checkout-service/internal/flow/intake"
	"github.com/jejumarket/checkout-service/internal/payment"
	"github.com/jejumarket/checkout-service/lib/api/client"
	checkoutGen "github.com/jejumarket/checkout-service/lib/generator/checkout"
)

// Runner executes checkouts against a running service.
type Runner struct {
	api         *client.Client
	newProvider func() payment.Provider
	origin      string
	log         *slog.Logger
}

func New(api *client.Client, newProvider func() payment.Provider, origin string, log *slog.Logger) *Runner {
	return &Runner{
		api:         api,
		newProvider: newProvider,
		origin:      origin,
		log:         log,
	}
}

// session is the runner's stand-in for the browser location.
type session struct {
	location string
	replaced bool
}

func (s *session) Assign(url string)  { s.location = url }
func (s *session) Replace(url string) { s.location = url; s.replaced = true }
func (s *session) Reload()            {}

// Run pushes one generated selection through the whole flow. It returns an
// error when any page lands on the failure view.
func (r *Runner) Run(ctx context.Context, sel checkoutGen.Selection) error {
	nav := &session{}

	form := intake.New(r.api, nav)
	if err := form.Load(ctx); err != nil {
		return fmt.Errorf("intake load: %w", err)
	}

	for productID, quantity := range sel.Quantities {
		if err := form.SetQuantity(productID, quantity); err != nil {
			return fmt.Errorf("set quantity for product %d: %w", productID, err)
		}
	}

	if err := form.SetField(intake.FieldName, sel.Customer.Name); err != nil {
		return fmt.Errorf("set name: %w", err)
	}
	form.SetSameAsOrderer(true)
	if err := form.SetField(intake.FieldPhone, sel.Customer.Phone); err != nil {
		return fmt.Errorf("set phone: %w", err)
	}
	if err := form.ApplyAddress(sel.Customer.PostalCode, sel.Customer.Address); err != nil {
		return fmt.Errorf("apply address: %w", err)
	}
	if err := form.SetField(intake.FieldDetailAddress, sel.Customer.DetailAddress); err != nil {
		return fmt.Errorf("set detail address: %w", err)
	}
	form.SetConsent(true)

	if err := form.Submit(ctx); err != nil {
		return fmt.Errorf("submit: %w", err)
	}

	target, err := url.Parse(nav.location)
	if err != nil || target.Path != "/payment" {
		return fmt.Errorf("unexpected post-submit location %q", nav.location)
	}

	orderID := target.Query().Get("orderId")
	r.log.Info("order created", slog.String("order_id", orderID))

	b := bridge.New(r.api, r.newProvider(), nav, r.origin)
	defer b.Close()

	if err := b.Load(ctx, orderID); err != nil {
		return fmt.Errorf("payment page: %w", err)
	}

	if err := b.Pay(ctx); err != nil {
		return fmt.Errorf("payment request: %w", err)
	}

	redirect, err := url.Parse(nav.location)
	if err != nil {
		return fmt.Errorf("unexpected provider redirect %q", nav.location)
	}

	if strings.HasSuffix(redirect.Path, "/fail") {
		page := failview.Load(redirect.Query())

		return fmt.Errorf("payment failed: %s (%s)", page.Message, page.Code)
	}

	o := confirm.New(r.api, nav)
	if err := o.Run(ctx, redirect.Query()); err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}

		page := failview.Load(mustQuery(nav.location))

		return fmt.Errorf("confirmation failed: %s (%s)", page.Message, page.Code)
	}

	order := o.Order()
	r.log.Info("checkout completed",
		slog.String("order_id", order.OrderID),
		slog.String("status", string(order.Status)),
		slog.Int("total_amount", order.TotalAmount),
	)

	o.BackToIntake()

	if !nav.replaced {
		return fmt.Errorf("display exit did not replace history")
	}

	return nil
}

func mustQuery(location string) url.Values {
	u, err := url.Parse(location)
	if err != nil {
		return url.Values{}
	}

	return u.Query()
}

var _ flow.Navigator = (*session)(nil)
