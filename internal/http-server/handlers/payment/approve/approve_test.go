package approve

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/jejumarket/checkout-service/internal/models"
	"github.com/jejumarket/checkout-service/internal/payment"
	strg "github.com/jejumarket/checkout-service/internal/storage"
	resp "github.com/jejumarket/checkout-service/lib/api/response"
)

type stubStorage struct {
	order  *models.Order
	getErr error

	markedPaid bool
	markErr    error
}

func (s *stubStorage) GetOrder(_ context.Context, _ string) (*models.Order, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}

	return s.order, nil
}

func (s *stubStorage) MarkPaid(_ context.Context, _ string) (*models.Order, error) {
	if s.markErr != nil {
		return nil, s.markErr
	}

	s.markedPaid = true

	paid := *s.order
	paid.Status = models.StatusPaid

	return &paid, nil
}

type stubCache struct {
	saved *models.Order
}

func (s *stubCache) SaveOrder(_ context.Context, order *models.Order) error {
	s.saved = order

	return nil
}

type stubGateway struct {
	req *payment.ConfirmRequest
	err error
}

func (s *stubGateway) Confirm(_ context.Context, req payment.ConfirmRequest) (payment.ConfirmResult, error) {
	s.req = &req

	if s.err != nil {
		return payment.ConfirmResult{}, s.err
	}

	return payment.ConfirmResult{PaymentKey: req.PaymentKey, Status: "DONE"}, nil
}

type stubEvents struct {
	captured []string
}

func (s *stubEvents) PublishPaymentCaptured(_ *models.Order, paymentKey string) {
	s.captured = append(s.captured, paymentKey)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func pendingOrder() *models.Order {
	return &models.Order{
		OrderID:     "ord-1",
		TotalAmount: 24000,
		Status:      models.StatusPending,
		Customer:    models.Customer{Name: "홍길동", Phone: "010-1234-5678"},
		Items: []models.OrderItem{
			{ProductID: 1, Name: "제주 노지 감귤 (10~15개입)", Quantity: 2, Price: 12000},
		},
	}
}

func post(t *testing.T, handler http.HandlerFunc, orderID string, body Request) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		t.Fatalf("can't encode request: %v", err)
	}

	router := chi.NewRouter()
	router.Post("/api/orders/{orderId}/payments", handler)

	req := httptest.NewRequest(http.MethodPost, "/api/orders/"+orderID+"/payments", &buf)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	return rec
}

func decodeErr(t *testing.T, rec *httptest.ResponseRecorder) resp.Err {
	t.Helper()

	var e resp.Err
	if err := json.NewDecoder(rec.Body).Decode(&e); err != nil {
		t.Fatalf("can't decode error body: %v", err)
	}

	return e
}

func TestApprove(t *testing.T) {
	t.Parallel()

	storage := &stubStorage{order: pendingOrder()}
	cache := &stubCache{}
	gateway := &stubGateway{}
	events := &stubEvents{}
	handler := New(discardLogger(), storage, cache, gateway, events)

	rec := post(t, handler, "ord-1", Request{TotalAmount: 24000, PaymentKey: "pay_abc"})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var body Response
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("can't decode response: %v", err)
	}
	if body.OrderID != "ord-1" || body.Status != models.StatusPaid {
		t.Fatalf("wrong response: %+v", body)
	}

	if gateway.req == nil || gateway.req.PaymentKey != "pay_abc" || gateway.req.Amount != 24000 {
		t.Fatalf("wrong confirm request: %+v", gateway.req)
	}
	if !storage.markedPaid {
		t.Fatal("order was not marked paid")
	}
	if cache.saved == nil || cache.saved.Status != models.StatusPaid {
		t.Fatal("cache was not refreshed with the paid order")
	}
	if len(events.captured) != 1 || events.captured[0] != "pay_abc" {
		t.Fatalf("wrong captured events: %v", events.captured)
	}
}

// A replayed approval answers 200 without touching the gateway again.
func TestApproveAlreadyPaidIsIdempotent(t *testing.T) {
	t.Parallel()

	paid := pendingOrder()
	paid.Status = models.StatusPaid

	storage := &stubStorage{order: paid}
	gateway := &stubGateway{}
	events := &stubEvents{}
	handler := New(discardLogger(), storage, &stubCache{}, gateway, events)

	rec := post(t, handler, "ord-1", Request{TotalAmount: 24000, PaymentKey: "pay_abc"})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var body Response
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("can't decode response: %v", err)
	}
	if body.OrderID != "ord-1" || body.Status != models.StatusPaid {
		t.Fatalf("wrong response: %+v", body)
	}

	if gateway.req != nil {
		t.Fatal("gateway must not be called for a paid order")
	}
	if storage.markedPaid {
		t.Fatal("order must not be marked paid twice")
	}
	if len(events.captured) != 0 {
		t.Fatalf("no second capture event may be emitted, got %v", events.captured)
	}
}

func TestApproveOrderNotFound(t *testing.T) {
	t.Parallel()

	storage := &stubStorage{getErr: strg.ErrNoOrder}
	handler := New(discardLogger(), storage, &stubCache{}, &stubGateway{}, &stubEvents{})

	rec := post(t, handler, "missing", Request{TotalAmount: 24000, PaymentKey: "pay_abc"})

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}

	e := decodeErr(t, rec)
	if e.Code != resp.CodeOrderNotFound || e.Message != resp.MsgOrderNotFound {
		t.Fatalf("wrong error pair: %+v", e)
	}
}

// The amount check runs before the provider is ever asked to capture.
func TestApproveAmountMismatch(t *testing.T) {
	t.Parallel()

	storage := &stubStorage{order: pendingOrder()}
	gateway := &stubGateway{}
	handler := New(discardLogger(), storage, &stubCache{}, gateway, &stubEvents{})

	rec := post(t, handler, "ord-1", Request{TotalAmount: 1000, PaymentKey: "pay_abc"})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	if e := decodeErr(t, rec); e.Code != resp.CodeAmountMismatch {
		t.Fatalf("expected %s, got %s", resp.CodeAmountMismatch, e.Code)
	}

	if gateway.req != nil {
		t.Fatal("gateway must not be called on a mismatched amount")
	}
	if storage.markedPaid {
		t.Fatal("order must not be marked paid")
	}
}

func TestApproveProviderRejection(t *testing.T) {
	t.Parallel()

	gateway := &stubGateway{
		err: &payment.ProviderError{Code: "NOT_ENOUGH_BALANCE", Message: "잔액이 부족하여 결제에 실패했습니다"},
	}
	storage := &stubStorage{order: pendingOrder()}
	handler := New(discardLogger(), storage, &stubCache{}, gateway, &stubEvents{})

	rec := post(t, handler, "ord-1", Request{TotalAmount: 24000, PaymentKey: "pay_abc"})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	e := decodeErr(t, rec)
	if e.Code != "NOT_ENOUGH_BALANCE" || e.Message != "잔액이 부족하여 결제에 실패했습니다" {
		t.Fatalf("provider pair must pass through, got %+v", e)
	}

	if storage.markedPaid {
		t.Fatal("order must not be marked paid")
	}
}

func TestApproveGatewayOutage(t *testing.T) {
	t.Parallel()

	gateway := &stubGateway{err: fmt.Errorf("connection refused")}
	handler := New(discardLogger(), &stubStorage{order: pendingOrder()}, &stubCache{}, gateway, &stubEvents{})

	rec := post(t, handler, "ord-1", Request{TotalAmount: 24000, PaymentKey: "pay_abc"})

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}

	if e := decodeErr(t, rec); e.Code != resp.CodeUnknown {
		t.Fatalf("expected %s, got %s", resp.CodeUnknown, e.Code)
	}
}

func TestApproveMissingPaymentKey(t *testing.T) {
	t.Parallel()

	gateway := &stubGateway{}
	handler := New(discardLogger(), &stubStorage{order: pendingOrder()}, &stubCache{}, gateway, &stubEvents{})

	rec := post(t, handler, "ord-1", Request{TotalAmount: 24000})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if gateway.req != nil {
		t.Fatal("gateway must not be called")
	}
}
