// Package tosspay implements the payment capability against the Toss
// Payments REST API. The widget half talks to the hosted widget endpoints
// with the public client key; the gateway half confirms charges with the
// secret key over basic auth.
package tosspay

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jejumarket/checkout-service/internal/config"
	"github.com/jejumarket/checkout-service/internal/payment"
)

const anonymousCustomerKey = "ANONYMOUS"

// Widget drives the hosted payment widget for one checkout. Create one per
// payment page; it is not safe for reuse after Dispose.
type Widget struct {
	baseURL   string
	clientKey string
	client    *http.Client

	amount   payment.Amount
	rendered []string // surface ids to release on Dispose
}

func NewWidget(cfg config.Payment) *Widget {
	return &Widget{
		baseURL:   cfg.BaseURL,
		clientKey: cfg.ClientKey,
		client:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (w *Widget) SetAmount(ctx context.Context, amount payment.Amount) error {
	if amount.Value <= 0 {
		return fmt.Errorf("tosspay: non-positive amount %d", amount.Value)
	}

	w.amount = amount

	return nil
}

// RenderUI boots both widget surfaces. The payment-method and agreement
// renders are independent network calls, so they run in parallel and the
// method returns only after both complete.
func (w *Widget) RenderUI(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	surfaces := []struct {
		selector   string
		variantKey string
	}{
		{"#payment-method", "DEFAULT"},
		{"#agreement", "AGREEMENT"},
	}

	ids := make([]string, len(surfaces))

	for i, s := range surfaces {
		g.Go(func() error {
			id, err := w.renderSurface(ctx, s.selector, s.variantKey)
			if err != nil {
				return err
			}

			ids[i] = id

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("tosspay: can't render widget: %v", err)
	}

	w.rendered = append(w.rendered, ids...)

	return nil
}

func (w *Widget) renderSurface(ctx context.Context, selector, variantKey string) (string, error) {
	q := url.Values{}
	q.Set("clientKey", w.clientKey)
	q.Set("customerKey", anonymousCustomerKey)
	q.Set("variantKey", variantKey)
	q.Set("selector", selector)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		w.baseURL+"/v2/widget/render?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}

	res, err := w.client.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return "", decodeProviderError(res)
	}

	var body struct {
		WidgetID string `json:"widgetId"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return "", err
	}

	return body.WidgetID, nil
}

// RequestPayment submits the charge request and returns the redirect URL
// issued by the provider.
func (w *Widget) RequestPayment(ctx context.Context, payReq payment.Request) (string, error) {
	body, err := json.Marshal(struct {
		payment.Request
		Amount      payment.Amount `json:"amount"`
		CustomerKey string         `json:"customerKey"`
	}{
		Request:     payReq,
		Amount:      w.amount,
		CustomerKey: anonymousCustomerKey,
	})
	if err != nil {
		return "", fmt.Errorf("tosspay: can't marshal payment request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		w.baseURL+"/v2/widget/payments", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := w.client.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return "", decodeProviderError(res)
	}

	var resBody struct {
		RedirectURL string `json:"redirectUrl"`
	}
	if err := json.NewDecoder(res.Body).Decode(&resBody); err != nil {
		return "", fmt.Errorf("tosspay: can't decode payment response: %v", err)
	}

	return resBody.RedirectURL, nil
}

// Dispose forgets the rendered surfaces. The hosted widget keeps no
// server-side session per render, so releasing is purely local.
func (w *Widget) Dispose() error {
	w.rendered = nil

	return nil
}

// Gateway confirms charges with the provider's secret key.
type Gateway struct {
	baseURL   string
	secretKey string
	client    *http.Client
}

func NewGateway(cfg config.Payment) *Gateway {
	return &Gateway{
		baseURL:   cfg.BaseURL,
		secretKey: cfg.SecretKey,
		client:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Confirm finalizes a charge. A rejection from the provider comes back as
// *payment.ProviderError with the provider's code/message pair.
func (g *Gateway) Confirm(ctx context.Context, confirmReq payment.ConfirmRequest) (payment.ConfirmResult, error) {
	body, err := json.Marshal(confirmReq)
	if err != nil {
		return payment.ConfirmResult{}, fmt.Errorf("tosspay: can't marshal confirm request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		g.baseURL+"/v1/payments/confirm", bytes.NewReader(body))
	if err != nil {
		return payment.ConfirmResult{}, err
	}

	req.Header.Set("Content-Type", "application/json")
	// Toss auth scheme: base64("<secretKey>:") as Basic credentials.
	req.Header.Set("Authorization", "Basic "+
		base64.StdEncoding.EncodeToString([]byte(g.secretKey+":")))

	res, err := g.client.Do(req)
	if err != nil {
		return payment.ConfirmResult{}, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return payment.ConfirmResult{}, decodeProviderError(res)
	}

	var result payment.ConfirmResult
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return payment.ConfirmResult{}, fmt.Errorf("tosspay: can't decode confirm response: %v", err)
	}

	return result, nil
}

func decodeProviderError(res *http.Response) error {
	provErr := &payment.ProviderError{}
	if err := json.NewDecoder(res.Body).Decode(provErr); err != nil || provErr.Code == "" {
		return fmt.Errorf("tosspay: unexpected status %d", res.StatusCode)
	}

	return provErr
}
