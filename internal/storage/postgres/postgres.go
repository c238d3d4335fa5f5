// Package postgres implements the primary order storage on PostgreSQL.
// Queries are built with squirrel and executed through sqlx. Order creation
// decrements product stock in the same transaction as the insert, so a
// concurrent order can never oversell a product.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/jejumarket/checkout-service/internal/config"
	"github.com/jejumarket/checkout-service/internal/models"
	"github.com/jejumarket/checkout-service/internal/storage"
)

type Storage struct {
	db *sqlx.DB
	sb sq.StatementBuilderType
}

func New(cfg config.Postgres, log *slog.Logger) (*Storage, error) {
	const fn = "storage.postgres.New"
	log = log.With("fn", fn)

	log.Info("starting storage initialization...")

	connStr := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		cfg.Username,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.Database,
	)

	db, err := sqlx.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("%s: can't open database: %v", fn, err)
	}

	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("%s: can't connect to database: %v", fn, err)
	}

	return &Storage{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}, nil
}

// ListProducts returns the full catalog ordered by id.
func (s *Storage) ListProducts(ctx context.Context) ([]models.Product, error) {
	const fn = "storage.postgres.ListProducts"

	query, args, err := s.sb.
		Select("id", "name", "weight", "price", "stock").
		From("products").
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: can't build query: %v", fn, err)
	}

	products := []models.Product{}
	if err := s.db.SelectContext(ctx, &products, query, args...); err != nil {
		return nil, fmt.Errorf("%s: can't select products: %v", fn, err)
	}

	return products, nil
}

// CreateOrder persists the order and its line items and decrements stock
// for every ordered product, all in one transaction. It returns
// storage.ErrOutOfStock when any product has less stock than requested
// and storage.ErrEmptyOrder when the order carries no items.
func (s *Storage) CreateOrder(ctx context.Context, order *models.Order) error {
	const fn = "storage.postgres.CreateOrder"

	if len(order.Items) == 0 {
		return storage.ErrEmptyOrder
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: can't begin transaction: %v", fn, err)
	}
	defer tx.Rollback()

	for _, item := range order.Items {
		query, args, err := s.sb.
			Update("products").
			Set("stock", sq.Expr("stock - ?", item.Quantity)).
			Where(sq.Eq{"id": item.ProductID}).
			Where(sq.GtOrEq{"stock": item.Quantity}).
			ToSql()
		if err != nil {
			return fmt.Errorf("%s: can't build stock update: %v", fn, err)
		}

		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("%s: can't update stock: %v", fn, err)
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("%s: can't get affected rows: %v", fn, err)
		}
		if affected == 0 {
			return storage.ErrOutOfStock
		}
	}

	query, args, err := s.sb.
		Insert("orders").
		Columns("order_id", "name", "recipient", "phone", "postal_code",
			"address", "detail_address", "total_amount", "order_name", "status").
		Values(order.OrderID, order.Customer.Name, order.Customer.Recipient,
			order.Customer.Phone, order.Customer.PostalCode, order.Customer.Address,
			order.Customer.DetailAddress, order.TotalAmount, order.OrderName,
			order.Status).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: can't build order insert: %v", fn, err)
	}

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%s: can't insert order: %v", fn, err)
	}

	for _, item := range order.Items {
		query, args, err := s.sb.
			Insert("order_items").
			Columns("order_id", "product_id", "name", "quantity", "price").
			Values(order.OrderID, item.ProductID, item.Name, item.Quantity, item.Price).
			ToSql()
		if err != nil {
			return fmt.Errorf("%s: can't build item insert: %v", fn, err)
		}

		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("%s: can't insert order item: %v", fn, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: can't commit transaction: %v", fn, err)
	}

	return nil
}

// GetOrder loads one order with its items. Returns storage.ErrNoOrder when
// the id is unknown.
func (s *Storage) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	const fn = "storage.postgres.GetOrder"

	query, args, err := s.sb.
		Select("order_id", "name", "recipient", "phone", "postal_code",
			"address", "detail_address", "total_amount", "order_name", "status", "created_at").
		From("orders").
		Where(sq.Eq{"order_id": orderID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: can't build query: %v", fn, err)
	}

	var row orderRow
	if err := s.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNoOrder
		}

		return nil, fmt.Errorf("%s: can't select order: %v", fn, err)
	}

	order := row.toOrder()

	if err := s.loadItems(ctx, order); err != nil {
		return nil, fmt.Errorf("%s: %v", fn, err)
	}

	return order, nil
}

// GetOrders loads every order with items. Used to warm the cache at startup.
func (s *Storage) GetOrders(ctx context.Context) ([]*models.Order, error) {
	const fn = "storage.postgres.GetOrders"

	query, args, err := s.sb.
		Select("order_id", "name", "recipient", "phone", "postal_code",
			"address", "detail_address", "total_amount", "order_name", "status", "created_at").
		From("orders").
		OrderBy("created_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: can't build query: %v", fn, err)
	}

	rows := []orderRow{}
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("%s: can't select orders: %v", fn, err)
	}

	orders := make([]*models.Order, 0, len(rows))
	for _, row := range rows {
		order := row.toOrder()

		if err := s.loadItems(ctx, order); err != nil {
			return nil, fmt.Errorf("%s: %v", fn, err)
		}

		orders = append(orders, order)
	}

	return orders, nil
}

// MarkPaid flips the order status to PAID and returns the updated record.
func (s *Storage) MarkPaid(ctx context.Context, orderID string) (*models.Order, error) {
	const fn = "storage.postgres.MarkPaid"

	query, args, err := s.sb.
		Update("orders").
		Set("status", models.StatusPaid).
		Where(sq.Eq{"order_id": orderID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: can't build query: %v", fn, err)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: can't update order: %v", fn, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("%s: can't get affected rows: %v", fn, err)
	}
	if affected == 0 {
		return nil, storage.ErrNoOrder
	}

	return s.GetOrder(ctx, orderID)
}

func (s *Storage) loadItems(ctx context.Context, order *models.Order) error {
	query, args, err := s.sb.
		Select("product_id", "name", "quantity", "price").
		From("order_items").
		Where(sq.Eq{"order_id": order.OrderID}).
		OrderBy("product_id").
		ToSql()
	if err != nil {
		return fmt.Errorf("can't build items query: %v", err)
	}

	items := []models.OrderItem{}
	if err := s.db.SelectContext(ctx, &items, query, args...); err != nil {
		return fmt.Errorf("can't select order items: %v", err)
	}

	order.Items = items

	return nil
}

// orderRow flattens the customer columns of the orders table; sqlx can't
// scan into the nested Customer struct directly.
type orderRow struct {
	OrderID       string             `db:"order_id"`
	Name          string             `db:"name"`
	Recipient     string             `db:"recipient"`
	Phone         string             `db:"phone"`
	PostalCode    string             `db:"postal_code"`
	Address       string             `db:"address"`
	DetailAddress string             `db:"detail_address"`
	TotalAmount   int                `db:"total_amount"`
	OrderName     string             `db:"order_name"`
	Status        models.OrderStatus `db:"status"`
	CreatedAt     sql.NullTime       `db:"created_at"`
}

func (r orderRow) toOrder() *models.Order {
	return &models.Order{
		OrderID: r.OrderID,
		Customer: models.Customer{
			Name:          r.Name,
			Recipient:     r.Recipient,
			Phone:         r.Phone,
			PostalCode:    r.PostalCode,
			Address:       r.Address,
			DetailAddress: r.DetailAddress,
		},
		TotalAmount: r.TotalAmount,
		OrderName:   r.OrderName,
		Status:      r.Status,
		CreatedAt:   r.CreatedAt.Time,
	}
}
