package storage

import "errors"

var (
	ErrNoOrder    = errors.New("no order found")
	ErrNoProduct  = errors.New("no product found")
	ErrEmptyOrder = errors.New("no items in order")
	ErrOutOfStock = errors.New("not enough stock")
)
