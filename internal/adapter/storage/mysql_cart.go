package storage

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/vitashop/checkout/internal/core/domain"
)

// MySQLCart implements port.CartRepository.
type MySQLCart struct {
	db *sqlx.DB
}

func NewMySQLCart(db *sqlx.DB) *MySQLCart {
	return &MySQLCart{db: db}
}

// ListItems returns the cart in insertion order; the coordinator depends on
// this ordering being deterministic for its compensation arithmetic.
func (m *MySQLCart) ListItems(ctx context.Context, userID string) ([]domain.CartItem, error) {
	rows, err := m.db.QueryxContext(ctx, `
		SELECT user_id, product_id, quantity, unit_price_cents, created_at
		FROM cart_items
		WHERE user_id = ?
		ORDER BY created_at, product_id`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query cart: %w", err)
	}
	defer rows.Close()

	var items []domain.CartItem
	for rows.Next() {
		var item domain.CartItem
		if err := rows.Scan(&item.UserID, &item.ProductID, &item.Quantity,
			&item.UnitPriceCents, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (m *MySQLCart) AddItem(ctx context.Context, item domain.CartItem) error {
	if item.Quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive", domain.ErrValidation)
	}

	_, err := m.db.ExecContext(ctx, `
		INSERT INTO cart_items (user_id, product_id, quantity, unit_price_cents, created_at)
		VALUES (?, ?, ?, ?, NOW())
		ON DUPLICATE KEY UPDATE quantity = quantity + VALUES(quantity)`,
		item.UserID, item.ProductID, item.Quantity, item.UnitPriceCents,
	)
	if err != nil {
		return fmt.Errorf("add cart item: %w", err)
	}
	return nil
}

func (m *MySQLCart) UpdateQuantity(ctx context.Context, userID, productID string, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive", domain.ErrValidation)
	}

	result, err := m.db.ExecContext(ctx, `
		UPDATE cart_items SET quantity = ?
		WHERE user_id = ? AND product_id = ?`,
		quantity, userID, productID,
	)
	if err != nil {
		return fmt.Errorf("update cart quantity: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update cart quantity rows: %w", err)
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (m *MySQLCart) RemoveItem(ctx context.Context, userID, productID string) error {
	_, err := m.db.ExecContext(ctx, `
		DELETE FROM cart_items WHERE user_id = ? AND product_id = ?`,
		userID, productID,
	)
	if err != nil {
		return fmt.Errorf("remove cart item: %w", err)
	}
	return nil
}

func (m *MySQLCart) Clear(ctx context.Context, userID string) error {
	_, err := m.db.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}
