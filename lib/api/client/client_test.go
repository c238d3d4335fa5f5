package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestListItems(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/items" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items":[{"id":1,"name":"제주 노지 감귤 (10~15개입)","weight":"10kg","price":12000,"stock":50}]}`))
	}))
	defer srv.Close()

	c := New(srv.URL+"/api", discardLogger())

	items, err := c.ListItems(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(items) != 1 || items[0].Price != 12000 {
		t.Fatalf("wrong catalog: %+v", items)
	}
}

func TestCreateOrder(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/orders" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}

		var req CreateOrderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("can't decode request: %v", err)
		}
		if len(req.Items) != 1 || req.Items[0].ID != 1 {
			t.Errorf("wrong items payload: %+v", req.Items)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"orderId":"ord-1"}`))
	}))
	defer srv.Close()

	c := New(srv.URL+"/api", discardLogger())

	orderID, err := c.CreateOrder(context.Background(), CreateOrderRequest{
		Items:       []CreateOrderItem{{ID: 1, Name: "제주 노지 감귤 (10~15개입)", Quantity: 2, Price: 12000}},
		TotalAmount: 24000,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if orderID != "ord-1" {
		t.Fatalf("expected ord-1, got %q", orderID)
	}
}

func TestAPIErrorDecoding(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		status   int
		body     string
		wantMsg  string
		wantCode string
	}{
		{
			name:     "server_pair_passes_through",
			status:   http.StatusBadRequest,
			body:     `{"message":"재고 부족","code":"OUT_OF_STOCK"}`,
			wantMsg:  "재고 부족",
			wantCode: "OUT_OF_STOCK",
		},
		{
			name:     "malformed_body_falls_back",
			status:   http.StatusInternalServerError,
			body:     `<html>bad gateway</html>`,
			wantMsg:  "알 수 없는 오류가 발생했습니다",
			wantCode: "UNKNOWN_ERROR",
		},
		{
			name:     "empty_fields_fall_back",
			status:   http.StatusBadRequest,
			body:     `{}`,
			wantMsg:  "알 수 없는 오류가 발생했습니다",
			wantCode: "UNKNOWN_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := New(srv.URL+"/api", discardLogger())

			_, err := c.GetOrder(context.Background(), "ord-1")
			if err == nil {
				t.Fatal("expected an error")
			}

			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected *APIError, got %T", err)
			}

			if apiErr.Message != tt.wantMsg || apiErr.Code != tt.wantCode || apiErr.Status != tt.status {
				t.Fatalf("wrong error: %+v", apiErr)
			}
		})
	}
}

func TestCanceledContext(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(srv.URL+"/api", discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.GetOrder(ctx, "ord-1")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		t.Fatal("a canceled request must not decode as an API error")
	}
}

func TestApprovePayment(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/orders/ord-1/payments" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}

		var req struct {
			TotalAmount int64  `json:"totalAmount"`
			PaymentKey  string `json:"paymentKey"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("can't decode request: %v", err)
		}
		if req.TotalAmount != 24000 || req.PaymentKey != "pay_abc" {
			t.Errorf("wrong payload: %+v", req)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"orderId":"ord-1","status":"PAID"}`))
	}))
	defer srv.Close()

	c := New(srv.URL+"/api", discardLogger())

	if err := c.ApprovePayment(context.Background(), "ord-1", 24000, "pay_abc"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestActivateSessionKeepsCookie(t *testing.T) {
	t.Parallel()

	var sawCookie bool

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/sessions":
			http.SetCookie(w, &http.Cookie{Name: "checkout_session", Value: "s-1", Path: "/"})
			w.WriteHeader(http.StatusNoContent)
		case "/api/items":
			if _, err := r.Cookie("checkout_session"); err == nil {
				sawCookie = true
			}

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"items":[]}`))
		}
	}))
	defer srv.Close()

	c := New(srv.URL+"/api", discardLogger())

	c.ActivateSession(context.Background())

	if _, err := c.ListItems(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !sawCookie {
		t.Fatal("session cookie did not ride along")
	}
}
