package models

import (
	"fmt"
	"time"
)

// OrderStatus tracks the server-side lifecycle of an order. An order is
// created PENDING and becomes PAID once the payment approval succeeds.
type OrderStatus string

const (
	StatusPending OrderStatus = "PENDING"
	StatusPaid    OrderStatus = "PAID"
)

// Customer holds the orderer and shipping fields collected by the order form.
// Phone is stored in the dashed 010-XXXX-XXXX form.
type Customer struct {
	Name          string `json:"name" db:"name"`
	Recipient     string `json:"recipient" db:"recipient"`
	Phone         string `json:"phone" db:"phone"`
	PostalCode    string `json:"postalCode" db:"postal_code"`
	Address       string `json:"address" db:"address"`
	DetailAddress string `json:"detailAddress" db:"detail_address"`
}

// OrderItem is one ordered line. Name and Price are snapshots taken at
// order creation so later catalog edits don't rewrite history.
type OrderItem struct {
	ProductID int    `json:"productId" db:"product_id"`
	Name      string `json:"name" db:"name"`
	Quantity  int    `json:"quantity" db:"quantity"`
	Price     int    `json:"price" db:"price"`
}

// Order is the server-owned order record, referenced everywhere by its
// opaque OrderID.
type Order struct {
	OrderID     string      `json:"orderId" db:"order_id"`
	Customer    Customer    `json:"customer"`
	Items       []OrderItem `json:"items"`
	TotalAmount int         `json:"totalAmount" db:"total_amount"`
	OrderName   string      `json:"orderName" db:"order_name"`
	Status      OrderStatus `json:"status" db:"status"`
	CreatedAt   time.Time   `json:"createdAt" db:"created_at"`
}

// TotalAmount sums price*quantity over the given items. Lines with
// quantity <= 0 don't contribute; they must not be part of an order at all.
func TotalAmount(items []OrderItem) int {
	var total int
	for _, item := range items {
		if item.Quantity > 0 {
			total += item.Price * item.Quantity
		}
	}

	return total
}

// OrderName builds the human-readable order title: the first item's name
// and quantity, plus a count of the remaining distinct items.
func OrderName(items []OrderItem) string {
	if len(items) == 0 {
		return ""
	}

	name := fmt.Sprintf("%s x%d", items[0].Name, items[0].Quantity)
	if len(items) > 1 {
		name = fmt.Sprintf("%s 외 %d건", name, len(items)-1)
	}

	return name
}
