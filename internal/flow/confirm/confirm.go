// Package confirm implements the success-redirect page as a small state
// machine: parse the redirect parameters, finalize the charge through the
// approval endpoint, re-fetch the order for display. Every failure exits
// through the failure page; a teardown cancellation exits through nothing
// at all.
package confirm

import (
	"context"
	"errors"
	"net/url"
	"strconv"

	"github.com/jejumarket/checkout-service/internal/flow"
	"github.com/jejumarket/checkout-service/internal/models"
	"github.com/jejumarket/checkout-service/lib/api/client"
	resp "github.com/jejumarket/checkout-service/lib/api/response"
)

// State is the orchestrator's position in the confirmation flow.
type State string

const (
	StateInitial    State = "initial"
	StateConfirming State = "confirming"
	StateFetching   State = "fetching"
	StateDisplayed  State = "displayed"
	StateFailed     State = "failed"
)

// ErrInvalidParams reports missing or malformed redirect parameters.
var ErrInvalidParams = errors.New("invalid confirmation params")

// Params are the values the payment provider appended to the success
// redirect. They exist only in the URL and in the single approval request.
type Params struct {
	OrderID    string
	Amount     int64
	PaymentKey string
}

// ParseParams extracts orderId, amount and paymentKey from the redirect
// query. The amount must parse as a base-10 integer; a non-numeric amount
// is rejected, never coerced.
func ParseParams(query url.Values) (Params, error) {
	orderID := query.Get("orderId")
	amountRaw := query.Get("amount")
	paymentKey := query.Get("paymentKey")

	if orderID == "" || amountRaw == "" || paymentKey == "" {
		return Params{}, ErrInvalidParams
	}

	amount, err := strconv.ParseInt(amountRaw, 10, 64)
	if err != nil || amount <= 0 {
		return Params{}, ErrInvalidParams
	}

	return Params{
		OrderID:    orderID,
		Amount:     amount,
		PaymentKey: paymentKey,
	}, nil
}

// Client is the slice of the API the orchestrator needs.
type Client interface {
	ApprovePayment(ctx context.Context, orderID string, amount int64, paymentKey string) error
	GetOrder(ctx context.Context, orderID string) (*models.Order, error)
}

// Orchestrator runs the confirmation flow for one redirect.
type Orchestrator struct {
	client Client
	nav    flow.Navigator

	state State
	order *models.Order
}

func New(c Client, nav flow.Navigator) *Orchestrator {
	return &Orchestrator{
		client: c,
		nav:    nav,
		state:  StateInitial,
	}
}

// State returns the current flow state.
func (o *Orchestrator) State() State {
	return o.state
}

// Order returns the record being displayed; nil before StateDisplayed.
func (o *Orchestrator) Order() *models.Order {
	return o.order
}

// Run executes the whole confirmation: params → approval → re-fetch. On
// success the order is held for display and nil is returned. Every failure
// navigates to the failure page and reports which step failed — except a
// deliberate cancellation, which returns the context error with no
// navigation and no state change to Failed.
func (o *Orchestrator) Run(ctx context.Context, query url.Values) error {
	params, err := ParseParams(query)
	if err != nil {
		// No approval call is made on bad params.
		o.fail("", resp.CodeInvalidParams)

		return err
	}

	o.state = StateConfirming

	err = o.client.ApprovePayment(ctx, params.OrderID, params.Amount, params.PaymentKey)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}

		var apiErr *client.APIError
		if errors.As(err, &apiErr) {
			o.fail(apiErr.Message, apiErr.Code)
		} else {
			o.fail(resp.MsgUnknown, resp.CodeUnknown)
		}

		return err
	}

	o.state = StateFetching

	order, err := o.client.GetOrder(ctx, params.OrderID)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}

		// The approval already went through; reuse the response's
		// message/code instead of substituting a generic pair.
		var apiErr *client.APIError
		if errors.As(err, &apiErr) {
			o.fail(apiErr.Message, apiErr.Code)
		} else {
			o.fail(resp.MsgUnknown, resp.CodeUnknown)
		}

		return err
	}

	o.order = order
	o.state = StateDisplayed

	return nil
}

// BackToIntake leaves the terminal display state for the order form,
// replacing the history entry so back-navigation can't return here.
func (o *Orchestrator) BackToIntake() {
	o.nav.Replace("/")
}

func (o *Orchestrator) fail(message, code string) {
	o.state = StateFailed
	o.nav.Assign(flow.FailURL(message, code))
}
