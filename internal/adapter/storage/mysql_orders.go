package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/vitashop/checkout/internal/core/domain"
)

// MySQLOrders implements port.OrderRepository. Orders are never deleted;
// they only move between statuses.
type MySQLOrders struct {
	db *sqlx.DB
}

func NewMySQLOrders(db *sqlx.DB) *MySQLOrders {
	return &MySQLOrders{db: db}
}

func (m *MySQLOrders) Create(ctx context.Context, order *domain.Order) error {
	items, err := json.Marshal(order.LineItems)
	if err != nil {
		return fmt.Errorf("marshal line items: %w", err)
	}

	_, err = m.db.ExecContext(ctx, `
		INSERT INTO orders
			(id, user_id, status, total_cents, line_items,
			 payment_provider, payment_transaction_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		order.ID, order.UserID, order.Status, order.TotalCents, items,
		order.PaymentProvider, order.PaymentTransactionID,
		order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (m *MySQLOrders) Get(ctx context.Context, id string) (*domain.Order, error) {
	var (
		order domain.Order
		items []byte
	)
	err := m.db.QueryRowxContext(ctx, `
		SELECT id, user_id, status, total_cents, line_items,
		       payment_provider, payment_transaction_id, created_at, updated_at
		FROM orders WHERE id = ?`, id,
	).Scan(
		&order.ID, &order.UserID, &order.Status, &order.TotalCents, &items,
		&order.PaymentProvider, &order.PaymentTransactionID,
		&order.CreatedAt, &order.UpdatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query order: %w", err)
	}

	if err := json.Unmarshal(items, &order.LineItems); err != nil {
		return nil, fmt.Errorf("unmarshal line items: %w", err)
	}
	return &order, nil
}

func (m *MySQLOrders) UpdateStatus(ctx context.Context, id string, from, to domain.OrderStatus) (bool, error) {
	result, err := m.db.ExecContext(ctx, `
		UPDATE orders
		SET status = ?, updated_at = NOW()
		WHERE id = ? AND status = ?`,
		to, id, from,
	)
	if err != nil {
		return false, fmt.Errorf("update order status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update order status rows: %w", err)
	}
	return rows > 0, nil
}

func (m *MySQLOrders) SetPaymentReference(ctx context.Context, id, provider, transactionID string) error {
	_, err := m.db.ExecContext(ctx, `
		UPDATE orders
		SET payment_provider = ?, payment_transaction_id = ?, updated_at = NOW()
		WHERE id = ?`,
		provider, transactionID, id,
	)
	if err != nil {
		return fmt.Errorf("set payment reference: %w", err)
	}
	return nil
}
