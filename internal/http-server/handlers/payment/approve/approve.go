package approve

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"github.com/jejumarket/checkout-service/internal/models"
	"github.com/jejumarket/checkout-service/internal/payment"
	strg "github.com/jejumarket/checkout-service/internal/storage"
	resp "github.com/jejumarket/checkout-service/lib/api/response"
	"github.com/jejumarket/checkout-service/lib/logger/sl"
)

type Request struct {
	TotalAmount int64  `json:"totalAmount" validate:"required,gt=0"`
	PaymentKey  string `json:"paymentKey" validate:"required"`
}

type Response struct {
	OrderID string             `json:"orderId"`
	Status  models.OrderStatus `json:"status"`
}

type OrderStorage interface {
	GetOrder(ctx context.Context, orderID string) (*models.Order, error)
	MarkPaid(ctx context.Context, orderID string) (*models.Order, error)
}

type OrderCacher interface {
	SaveOrder(ctx context.Context, order *models.Order) error
}

type EventPublisher interface {
	PublishPaymentCaptured(order *models.Order, paymentKey string)
}

// New returns the POST /api/orders/{orderId}/payments handler: the
// server-side half of the confirmation step. The amount from the redirect
// is checked against the stored order before the provider is asked to
// capture anything, so a tampered redirect can never approve a cheaper
// charge.
func New(
	log *slog.Logger,
	storage OrderStorage,
	cache OrderCacher,
	gateway payment.Gateway,
	events EventPublisher,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const fn = "handlers.payment.approve.New"

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

		var req Request

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			log.Error("failed to decode json body", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("failed to decode request", resp.CodeValidation))

			return
		}

		if err := validator.New().Struct(req); err != nil {
			validateErr := err.(validator.ValidationErrors)

			log.Error("invalid request", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.ValidationError(validateErr))

			return
		}

		order, err := storage.GetOrder(r.Context(), orderID)
		if errors.Is(err, strg.ErrNoOrder) {
			log.Info("order not found", slog.String("order_id", orderID))

			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, resp.Error(resp.MsgOrderNotFound, resp.CodeOrderNotFound))

			return
		}
		if err != nil {
			log.Error("failed to get order", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Unknown())

			return
		}

		// A replayed approval (double-submit, redirect refresh) must not
		// re-confirm the charge or emit a second capture event.
		if order.Status == models.StatusPaid {
			log.Info("order already paid", slog.String("order_id", orderID))

			render.JSON(w, r, Response{
				OrderID: orderID,
				Status:  order.Status,
			})

			return
		}

		if int64(order.TotalAmount) != req.TotalAmount {
			log.Info("rejected amount mismatch",
				slog.Int("order_amount", order.TotalAmount),
				slog.Int64("request_amount", req.TotalAmount),
			)

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error(resp.MsgAmountMismatch, resp.CodeAmountMismatch))

			return
		}

		_, err = gateway.Confirm(r.Context(), payment.ConfirmRequest{
			PaymentKey: req.PaymentKey,
			OrderID:    orderID,
			Amount:     req.TotalAmount,
		})
		if err != nil {
			var provErr *payment.ProviderError
			if errors.As(err, &provErr) {
				log.Info("payment rejected by provider",
					slog.String("code", provErr.Code),
					slog.String("order_id", orderID),
				)

				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, resp.Error(provErr.Message, provErr.Code))

				return
			}

			log.Error("failed to confirm payment", sl.Err(err))

			render.Status(r, http.StatusBadGateway)
			render.JSON(w, r, resp.Unknown())

			return
		}

		order, err = storage.MarkPaid(r.Context(), orderID)
		if err != nil {
			log.Error("failed to mark order paid", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Unknown())

			return
		}

		if cacheErr := cache.SaveOrder(r.Context(), order); cacheErr != nil {
			log.Error("failed to refresh cached order", sl.Err(cacheErr))
		}

		events.PublishPaymentCaptured(order, req.PaymentKey)

		log.Info("payment approved",
			slog.String("order_id", orderID),
			slog.Int64("amount", req.TotalAmount),
		)

		render.JSON(w, r, Response{
			OrderID: orderID,
			Status:  order.Status,
		})
	}
}
