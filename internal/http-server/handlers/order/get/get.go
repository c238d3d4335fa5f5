package get

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/jejumarket/checkout-service/internal/models"
	strg "github.com/jejumarket/checkout-service/internal/storage"
	resp "github.com/jejumarket/checkout-service/lib/api/response"
	"github.com/jejumarket/checkout-service/lib/logger/sl"
)

type OrderGetter interface {
	GetOrder(ctx context.Context, orderID string) (*models.Order, error)
}

type OrderCacher interface {
	SaveOrder(ctx context.Context, order *models.Order) error
}

// New returns the GET /api/orders/{orderId} handler. Reads go through the
// cache first and fall back to the database, backfilling the cache on a
// miss.
func New(log *slog.Logger, cache OrderGetter, storage OrderGetter, cacher OrderCacher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const fn = "handlers.order.get.New"

		log := log.With(
			slog.String("fn", fn),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		orderID := chi.URLParam(r, "orderId")
		if orderID == "" {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("orderId is required", resp.CodeValidation))

			return
		}

		order, err := cache.GetOrder(r.Context(), orderID)
		if err != nil {
			// The record is durable in Postgres, so any cache problem is
			// treated as a miss and the read falls through.
			if !errors.Is(err, strg.ErrNoOrder) {
				log.Warn("cache read failed, falling back to storage", sl.Err(err))
			}

			order, err = storage.GetOrder(r.Context(), orderID)
			if errors.Is(err, strg.ErrNoOrder) {
				log.Info("order not found", slog.String("order_id", orderID))

				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, resp.Error(resp.MsgOrderNotFound, resp.CodeOrderNotFound))

				return
			}

			if err == nil {
				if cacheErr := cacher.SaveOrder(r.Context(), order); cacheErr != nil {
					log.Error("failed to backfill cache", sl.Err(cacheErr))
				}
			}
		}

		if err != nil {
			log.Error("failed to get order", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Unknown())

			return
		}

		log.Info("got order successfully", slog.String("order_id", orderID))

		render.JSON(w, r, order)
	}
}
