package create

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"regexp"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/jejumarket/checkout-service/internal/models"
	strg "github.com/jejumarket/checkout-service/internal/storage"
	resp "github.com/jejumarket/checkout-service/lib/api/response"
	"github.com/jejumarket/checkout-service/lib/logger/sl"
)

// phoneRe is the only accepted phone shape; the client reformats input to
// it, the server refuses anything else.
var phoneRe = regexp.MustCompile(`^010-\d{4}-\d{4}$`)

type Request struct {
	Customer    CustomerPayload `json:"customer" validate:"required"`
	Items       []ItemPayload   `json:"items" validate:"required,min=1,dive"`
	TotalAmount int             `json:"totalAmount" validate:"required,gt=0"`
	OrderName   string          `json:"orderName" validate:"max=120"`
}

type CustomerPayload struct {
	Name          string `json:"name" validate:"required,max=80"`
	Recipient     string `json:"recipient" validate:"required,max=80"`
	Phone         string `json:"phone" validate:"required"`
	PostalCode    string `json:"postalCode" validate:"required,max=80"`
	Address       string `json:"address" validate:"required,max=80"`
	DetailAddress string `json:"detailAddress" validate:"max=80"`
}

type ItemPayload struct {
	ProductID int    `json:"id" validate:"required"`
	Name      string `json:"name" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
	Price     int    `json:"price" validate:"required,gt=0"`
}

type Response struct {
	OrderID string `json:"orderId"`
}

type OrderSaver interface {
	CreateOrder(ctx context.Context, order *models.Order) error
}

type OrderCacher interface {
	SaveOrder(ctx context.Context, order *models.Order) error
}

type EventPublisher interface {
	PublishOrderCreated(order *models.Order)
}

// New returns the POST /api/orders handler. It revalidates everything the
// client already checked: the client-side checks exist for UX, these are
// the ones that count.
func New(
	log *slog.Logger,
	storage OrderSaver,
	cache OrderCacher,
	events EventPublisher,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const fn = "handlers.order.create.New"

		log := log.With(
			slog.String("fn", fn),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

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

		if !phoneRe.MatchString(req.Customer.Phone) {
			log.Info("rejected malformed phone")

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("field phone is not valid", resp.CodeValidation))

			return
		}

		items := make([]models.OrderItem, 0, len(req.Items))
		for _, item := range req.Items {
			items = append(items, models.OrderItem{
				ProductID: item.ProductID,
				Name:      item.Name,
				Quantity:  item.Quantity,
				Price:     item.Price,
			})
		}

		// The client-declared total is advisory; the stored total is always
		// recomputed from the line items.
		total := models.TotalAmount(items)
		if total != req.TotalAmount {
			log.Info("rejected total mismatch",
				slog.Int("declared", req.TotalAmount),
				slog.Int("computed", total),
			)

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error(resp.MsgAmountMismatch, resp.CodeAmountMismatch))

			return
		}

		orderName := req.OrderName
		if orderName == "" {
			orderName = models.OrderName(items)
		}

		order := &models.Order{
			OrderID: uuid.NewString(),
			Customer: models.Customer{
				Name:          req.Customer.Name,
				Recipient:     req.Customer.Recipient,
				Phone:         req.Customer.Phone,
				PostalCode:    req.Customer.PostalCode,
				Address:       req.Customer.Address,
				DetailAddress: req.Customer.DetailAddress,
			},
			Items:       items,
			TotalAmount: total,
			OrderName:   orderName,
			Status:      models.StatusPending,
		}

		if err := storage.CreateOrder(r.Context(), order); err != nil {
			if errors.Is(err, strg.ErrOutOfStock) {
				log.Info("rejected order, out of stock", slog.String("order_id", order.OrderID))

				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, resp.Error(resp.MsgOutOfStock, resp.CodeOutOfStock))

				return
			}

			log.Error("failed to create order", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Unknown())

			return
		}

		// Cache and events are best-effort; the order is already durable.
		if err := cache.SaveOrder(r.Context(), order); err != nil {
			log.Error("failed to cache order", sl.Err(err))
		}

		events.PublishOrderCreated(order)

		log.Info("order created",
			slog.String("order_id", order.OrderID),
			slog.Int("total_amount", order.TotalAmount),
		)

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, Response{OrderID: order.OrderID})
	}
}
