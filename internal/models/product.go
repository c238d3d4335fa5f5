package models

// Product is a single catalog row. Prices are whole KRW, no minor units.
// The catalog is read-only from the client's point of view; stock only
// changes when an order is created.
type Product struct {
	ID     int    `json:"id" db:"id"`
	Name   string `json:"name" db:"name"`
	Weight string `json:"weight" db:"weight"`
	Price  int    `json:"price" db:"price"`
	Stock  int    `json:"stock" db:"stock"`
}
