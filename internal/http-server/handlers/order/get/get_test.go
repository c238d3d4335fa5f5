package get

import (
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
	strg "github.com/jejumarket/checkout-service/internal/storage"
	resp "github.com/jejumarket/checkout-service/lib/api/response"
)

type stubGetter struct {
	order *models.Order
	err   error
	calls int
}

func (s *stubGetter) GetOrder(_ context.Context, _ string) (*models.Order, error) {
	s.calls++

	if s.err != nil {
		return nil, s.err
	}

	return s.order, nil
}

type stubCacher struct {
	saved *models.Order
}

func (s *stubCacher) SaveOrder(_ context.Context, order *models.Order) error {
	s.saved = order

	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func order() *models.Order {
	return &models.Order{
		OrderID:     "ord-1",
		TotalAmount: 24000,
		Status:      models.StatusPending,
	}
}

func get(t *testing.T, handler http.HandlerFunc, orderID string) *httptest.ResponseRecorder {
	t.Helper()

	router := chi.NewRouter()
	router.Get("/api/orders/{orderId}", handler)

	req := httptest.NewRequest(http.MethodGet, "/api/orders/"+orderID, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	return rec
}

func TestGetOrderFromCache(t *testing.T) {
	t.Parallel()

	cache := &stubGetter{order: order()}
	storage := &stubGetter{}
	handler := New(discardLogger(), cache, storage, &stubCacher{})

	rec := get(t, handler, "ord-1")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body models.Order
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("can't decode response: %v", err)
	}
	if body.OrderID != "ord-1" {
		t.Fatalf("wrong order: %+v", body)
	}

	if storage.calls != 0 {
		t.Fatal("storage must not be hit on a cache hit")
	}
}

func TestGetOrderCacheMissBackfills(t *testing.T) {
	t.Parallel()

	cache := &stubGetter{err: strg.ErrNoOrder}
	storage := &stubGetter{order: order()}
	cacher := &stubCacher{}
	handler := New(discardLogger(), cache, storage, cacher)

	rec := get(t, handler, "ord-1")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	if storage.calls != 1 {
		t.Fatalf("expected one storage read, got %d", storage.calls)
	}
	if cacher.saved == nil || cacher.saved.OrderID != "ord-1" {
		t.Fatal("cache was not backfilled")
	}
}

// A broken cache must not hide an order that is durable in storage.
func TestGetOrderCacheOutageFallsThrough(t *testing.T) {
	t.Parallel()

	cache := &stubGetter{err: fmt.Errorf("redis: connection refused")}
	storage := &stubGetter{order: order()}
	cacher := &stubCacher{}
	handler := New(discardLogger(), cache, storage, cacher)

	rec := get(t, handler, "ord-1")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	if storage.calls != 1 {
		t.Fatalf("expected one storage read, got %d", storage.calls)
	}
	if cacher.saved == nil {
		t.Fatal("cache was not backfilled after the outage")
	}
}

func TestGetOrderNotFound(t *testing.T) {
	t.Parallel()

	cache := &stubGetter{err: strg.ErrNoOrder}
	storage := &stubGetter{err: strg.ErrNoOrder}
	handler := New(discardLogger(), cache, storage, &stubCacher{})

	rec := get(t, handler, "missing")

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}

	var e resp.Err
	if err := json.NewDecoder(rec.Body).Decode(&e); err != nil {
		t.Fatalf("can't decode error body: %v", err)
	}
	if e.Code != resp.CodeOrderNotFound || e.Message != resp.MsgOrderNotFound {
		t.Fatalf("wrong error pair: %+v", e)
	}
}

func TestGetOrderStorageFailure(t *testing.T) {
	t.Parallel()

	cache := &stubGetter{err: strg.ErrNoOrder}
	storage := &stubGetter{err: fmt.Errorf("connection lost")}
	handler := New(discardLogger(), cache, storage, &stubCacher{})

	rec := get(t, handler, "ord-1")

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}
