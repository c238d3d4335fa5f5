package list

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/jejumarket/checkout-service/internal/models"
	resp "github.com/jejumarket/checkout-service/lib/api/response"
	"github.com/jejumarket/checkout-service/lib/logger/sl"
)

type Response struct {
	Items []models.Product `json:"items"`
}

type ProductLister interface {
	ListProducts(ctx context.Context) ([]models.Product, error)
}

// New returns the GET /api/items handler serving the product catalog.
func New(log *slog.Logger, storage ProductLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const fn = "handlers.items.list.New"

		log := log.With(
			slog.String("fn", fn),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		products, err := storage.ListProducts(r.Context())
		if err != nil {
			log.Error("failed to list products", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Unknown())

			return
		}

		log.Info("catalog served", slog.Int("count", len(products)))

		render.JSON(w, r, Response{Items: products})
	}
}
