package repository

import (
	"alpaca-tools/internal/model"
	"database/sql"
	"errors"
	"fmt"
)

// OrderRepository is the journal of orders accepted by the trading API.
type OrderRepository interface {
	// EnsureSchema creates the submitted_orders table if it does not exist.
	EnsureSchema() error
	// InsertOrder records an accepted order.
	InsertOrder(order *model.SubmittedOrder) error
	// FindOrderByClientOrderID loads the record of one client order ID.
	FindOrderByClientOrderID(clientOrderID string) (*model.SubmittedOrder, error)
}

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository returns a Postgres-backed journal over db.
func NewOrderRepository(db *sql.DB) OrderRepository {
	return &orderRepository{
		db: db,
	}
}

const schema = `
	CREATE TABLE IF NOT EXISTS submitted_orders (
		client_order_id TEXT PRIMARY KEY,
		order_id        TEXT NOT NULL,
		symbol          TEXT NOT NULL,
		side            TEXT NOT NULL,
		order_type      TEXT NOT NULL,
		qty             NUMERIC NOT NULL,
		limit_price     NUMERIC,
		stop_price      NUMERIC,
		trail_price     NUMERIC,
		trail_percent   NUMERIC,
		status          TEXT NOT NULL,
		submitted_at    TIMESTAMPTZ NOT NULL,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)
`

const selectColumns = `
	SELECT client_order_id, order_id, symbol, side, order_type, qty,
	       limit_price, stop_price, trail_price, trail_percent, status, submitted_at
	FROM submitted_orders
`

// EnsureSchema creates the journal table on first use.
func (r *orderRepository) EnsureSchema() error {
	if _, err := r.db.Exec(schema); err != nil {
		return fmt.Errorf("EnsureSchema: %w", err)
	}
	return nil
}

// InsertOrder records an accepted order. Recording the same client order ID
// twice is a no-op.
func (r *orderRepository) InsertOrder(order *model.SubmittedOrder) error {
	query := `
		INSERT INTO submitted_orders
		(client_order_id, order_id, symbol, side, order_type, qty,
		 limit_price, stop_price, trail_price, trail_percent, status, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (client_order_id) DO NOTHING
	`
	_, err := r.db.Exec(query, order.ClientOrderID, order.OrderID, order.Symbol, order.Side, order.OrderType,
		order.Qty, order.LimitPrice, order.StopPrice, order.TrailPrice, order.TrailPercent, order.Status, order.SubmittedAt)
	if err != nil {
		return fmt.Errorf("InsertOrder: %w", err)
	}
	return nil
}

// FindOrderByClientOrderID returns nil without error when nothing is recorded.
func (r *orderRepository) FindOrderByClientOrderID(clientOrderID string) (*model.SubmittedOrder, error) {
	row := r.db.QueryRow(selectColumns+` WHERE client_order_id = $1`, clientOrderID)

	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("FindOrderByClientOrderID: %w", err)
	}
	return order, nil
}

func scanOrder(s *sql.Row) (*model.SubmittedOrder, error) {
	var order model.SubmittedOrder
	err := s.Scan(&order.ClientOrderID, &order.OrderID, &order.Symbol, &order.Side, &order.OrderType, &order.Qty,
		&order.LimitPrice, &order.StopPrice, &order.TrailPrice, &order.TrailPercent, &order.Status, &order.SubmittedAt)
	if err != nil {
		return nil, err
	}
	return &order, nil
}
