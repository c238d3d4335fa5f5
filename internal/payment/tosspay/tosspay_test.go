package tosspay

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/jejumarket/checkout-service/internal/config"
	"github.com/jejumarket/checkout-service/internal/payment"
)

func paymentConfig(baseURL string) config.Payment {
	return config.Payment{
		BaseURL:   baseURL,
		ClientKey: "test_ck",
		SecretKey: "test_sk",
	}
}

func paymentRequest() payment.Request {
	return payment.Request{
		OrderID:    "ord-1",
		OrderName:  "제주 노지 감귤 (10~15개입) x2",
		SuccessURL: "http://localhost:3000/success",
		FailURL:    "http://localhost:3000/fail",
	}
}

// RenderUI issues one render call per surface and returns only after both
// have completed.
func TestRenderUIRendersBothSurfaces(t *testing.T) {
	t.Parallel()

	var (
		mu       sync.Mutex
		variants []string
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/widget/render" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}

		q := r.URL.Query()
		if q.Get("clientKey") != "test_ck" {
			t.Errorf("wrong client key: %q", q.Get("clientKey"))
		}

		mu.Lock()
		variants = append(variants, q.Get("variantKey"))
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"widgetId":"wid-` + q.Get("variantKey") + `"}`))
	}))
	defer srv.Close()

	w := NewWidget(paymentConfig(srv.URL))

	if err := w.SetAmount(context.Background(), payment.Amount{Currency: "KRW", Value: 24000}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := w.RenderUI(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()

	if len(variants) != 2 {
		t.Fatalf("expected 2 render calls, got %d", len(variants))
	}

	seen := map[string]bool{}
	for _, v := range variants {
		seen[v] = true
	}
	if !seen["DEFAULT"] || !seen["AGREEMENT"] {
		t.Fatalf("expected DEFAULT and AGREEMENT surfaces, got %v", variants)
	}
}

func TestRenderUISurfaceFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// One surface renders, the other is rejected.
		if r.URL.Query().Get("variantKey") == "AGREEMENT" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"code":"INVALID_CLIENT_KEY","message":"유효하지 않은 클라이언트 키입니다"}`))

			return
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"widgetId":"wid-1"}`))
	}))
	defer srv.Close()

	w := NewWidget(paymentConfig(srv.URL))

	if err := w.RenderUI(context.Background()); err == nil {
		t.Fatal("expected an error when a surface fails to render")
	}
}

func TestRequestPaymentRedirect(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/widget/payments" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}

		var body struct {
			OrderID string         `json:"orderId"`
			Amount  payment.Amount `json:"amount"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("can't decode request: %v", err)
		}
		if body.OrderID != "ord-1" || body.Amount.Value != 24000 {
			t.Errorf("wrong payment payload: %+v", body)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"redirectUrl":"http://localhost:3000/success?orderId=ord-1&amount=24000&paymentKey=pay_abc"}`))
	}))
	defer srv.Close()

	w := NewWidget(paymentConfig(srv.URL))

	if err := w.SetAmount(context.Background(), payment.Amount{Currency: "KRW", Value: 24000}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	redirect, err := w.RequestPayment(context.Background(), paymentRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "http://localhost:3000/success?orderId=ord-1&amount=24000&paymentKey=pay_abc"
	if redirect != want {
		t.Fatalf("expected %q, got %q", want, redirect)
	}
}

// A rejection from the provider keeps its code/message pair.
func TestRequestPaymentProviderError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":"INVALID_CARD_COMPANY","message":"유효하지 않은 결제 수단입니다"}`))
	}))
	defer srv.Close()

	w := NewWidget(paymentConfig(srv.URL))

	_, err := w.RequestPayment(context.Background(), paymentRequest())

	var provErr *payment.ProviderError
	if !errors.As(err, &provErr) {
		t.Fatalf("expected *payment.ProviderError, got %v", err)
	}
	if provErr.Code != "INVALID_CARD_COMPANY" || provErr.Message != "유효하지 않은 결제 수단입니다" {
		t.Fatalf("wrong provider pair: %+v", provErr)
	}
}

func TestConfirm(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/payments/confirm" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}

		wantAuth := "Basic " + base64.StdEncoding.EncodeToString([]byte("test_sk:"))
		if got := r.Header.Get("Authorization"); got != wantAuth {
			t.Errorf("wrong authorization header: %q", got)
		}

		var req payment.ConfirmRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("can't decode request: %v", err)
		}
		if req.PaymentKey != "pay_abc" || req.OrderID != "ord-1" || req.Amount != 24000 {
			t.Errorf("wrong confirm payload: %+v", req)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"paymentKey":"pay_abc","status":"DONE"}`))
	}))
	defer srv.Close()

	g := NewGateway(paymentConfig(srv.URL))

	result, err := g.Confirm(context.Background(), payment.ConfirmRequest{
		PaymentKey: "pay_abc",
		OrderID:    "ord-1",
		Amount:     24000,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Status != "DONE" || result.PaymentKey != "pay_abc" {
		t.Fatalf("wrong result: %+v", result)
	}
}

func TestConfirmProviderRejection(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":"NOT_ENOUGH_BALANCE","message":"잔액이 부족하여 결제에 실패했습니다"}`))
	}))
	defer srv.Close()

	g := NewGateway(paymentConfig(srv.URL))

	_, err := g.Confirm(context.Background(), payment.ConfirmRequest{
		PaymentKey: "pay_abc",
		OrderID:    "ord-1",
		Amount:     24000,
	})

	var provErr *payment.ProviderError
	if !errors.As(err, &provErr) || provErr.Code != "NOT_ENOUGH_BALANCE" {
		t.Fatalf("expected NOT_ENOUGH_BALANCE, got %v", err)
	}
}

func TestConfirmMalformedErrorBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`<html>bad gateway</html>`))
	}))
	defer srv.Close()

	g := NewGateway(paymentConfig(srv.URL))

	_, err := g.Confirm(context.Background(), payment.ConfirmRequest{
		PaymentKey: "pay_abc",
		OrderID:    "ord-1",
		Amount:     24000,
	})
	if err == nil {
		t.Fatal("expected an error")
	}

	var provErr *payment.ProviderError
	if errors.As(err, &provErr) {
		t.Fatal("an unreadable body must not decode as a provider rejection")
	}
}
