// Package checkoutGen generates random but structurally valid checkout
// input for the demo driver: a customer the order form would accept and a
// selection over the live catalog. gofakeit provides the fake data.
package checkoutGen

import (
	"fmt"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/jejumarket/checkout-service/internal/models"
)

// Selection is one generated checkout: who is buying and how much of what.
type Selection struct {
	Customer   models.Customer
	Quantities map[int]int
}

// GenerateSelection picks 1 to 3 products with in-stock quantities and
// fabricates a matching customer. Products without stock are skipped; if
// nothing is in stock the selection comes back empty and the caller should
// give up on this run.
func GenerateSelection(products []models.Product) Selection {
	inStock := make([]models.Product, 0, len(products))
	for _, p := range products {
		if p.Stock > 0 {
			inStock = append(inStock, p)
		}
	}

	quantities := make(map[int]int)
	if len(inStock) > 0 {
		count := gofakeit.Number(1, min(3, len(inStock)))

		// Shuffle so repeated runs don't always buy the same products.
		gofakeit.ShuffleAnySlice(inStock)

		for _, p := range inStock[:count] {
			quantities[p.ID] = gofakeit.Number(1, min(3, p.Stock))
		}
	}

	name := gofakeit.Name()

	return Selection{
		Customer: models.Customer{
			Name:          name,
			Recipient:     name,
			Phone:         generatePhone(),
			PostalCode:    gofakeit.Zip(),
			Address:       gofakeit.Address().Address,
			DetailAddress: fmt.Sprintf("%d호", gofakeit.Number(101, 2504)),
		},
		Quantities: quantities,
	}
}

// generatePhone builds a number the order form's pattern accepts.
func generatePhone() string {
	return fmt.Sprintf("010-%04d-%04d",
		gofakeit.Number(0, 9999),
		gofakeit.Number(0, 9999),
	)
}
