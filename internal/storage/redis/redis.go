// Package redis implements the order cache. It sits in front of PostgreSQL
// for the order-detail endpoint: the payment page and the confirmation page
// both re-read the order record, and neither read should hit the database
// twice for the same checkout.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"

	"github.com/redis/go-redis/v9"

	"github.com/jejumarket/checkout-service/internal/config"
	"github.com/jejumarket/checkout-service/internal/models"
	"github.com/jejumarket/checkout-service/internal/storage"
)

// Client wraps the go-redis client so the package API can grow without
// leaking the library type.
type Client struct {
	*redis.Client
}

// Storage is the source the cache is warmed from. Declared here so the
// cache doesn't depend on the postgres package directly.
type Storage interface {
	GetOrders(ctx context.Context) ([]*models.Order, error)
}

// New creates a Redis client and verifies the connection with PING.
func New(ctx context.Context, cfg config.Redis) (*Client, error) {
	address := net.JoinHostPort(cfg.Host, cfg.Port)

	client := redis.NewClient(&redis.Options{
		Addr:     address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("can't ping redis: %v", err)
	}

	return &Client{client}, nil
}

// SaveOrder stores one order as JSON keyed by its OrderID, without a TTL.
// Called after order creation and again after payment approval so the
// cached status never lags behind the database.
func (c *Client) SaveOrder(ctx context.Context, order *models.Order) error {
	const fn = "storage.redis.SaveOrder"

	orderBytes, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("%s: can't marshal order: %v", fn, err)
	}

	if err := c.Set(ctx, order.OrderID, orderBytes, 0).Err(); err != nil {
		return fmt.Errorf("%s: can't set order: %v", fn, err)
	}

	return nil
}

// GetOrder reads an order from the cache. A missing key is reported as
// storage.ErrNoOrder so the caller knows to fall back to the database.
func (c *Client) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	const fn = "storage.redis.GetOrder"

	orderJSON, err := c.Get(ctx, orderID).Result()
	if errors.Is(err, redis.Nil) {
		return nil, storage.ErrNoOrder
	}
	if err != nil {
		return nil, fmt.Errorf("%s: can't get order: %v", fn, err)
	}

	order := &models.Order{}
	if err := json.Unmarshal([]byte(orderJSON), order); err != nil {
		return nil, fmt.Errorf("%s: can't unmarshal order json: %v", fn, err)
	}

	return order, nil
}

// Warm loads every order from the primary storage into the cache. Called
// once at startup.
func (c *Client) Warm(ctx context.Context, storage Storage) error {
	const fn = "storage.redis.Warm"

	orders, err := storage.GetOrders(ctx)
	if err != nil {
		return fmt.Errorf("can't get orders: %v", err)
	}

	for _, order := range orders {
		orderJSON, err := json.Marshal(order)
		if err != nil {
			return fmt.Errorf("%s: can't marshal order: %v", fn, err)
		}

		if err := c.Set(ctx, order.OrderID, orderJSON, 0).Err(); err != nil {
			return fmt.Errorf("%s: can't set order: %v", fn, err)
		}
	}

	return nil
}
