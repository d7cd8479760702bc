package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/vitashop/checkout/internal/core/domain"
)

// MySQLInventory implements port.InventoryRepository. The decrement is a
// single conditional UPDATE; MySQL's row lock serializes racing callers per
// product, which keeps the design correct across server instances.
type MySQLInventory struct {
	db *sqlx.DB
}

func NewMySQLInventory(db *sqlx.DB) *MySQLInventory {
	return &MySQLInventory{db: db}
}

func (m *MySQLInventory) DecrementStock(ctx context.Context, productID string, quantity int) (bool, error) {
	result, err := m.db.ExecContext(ctx, `
		UPDATE inventory
		SET stock_quantity = stock_quantity - ?, updated_at = NOW()
		WHERE product_id = ? AND stock_quantity >= ?`,
		quantity, productID, quantity,
	)
	if err != nil {
		return false, fmt.Errorf("decrement stock: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("decrement stock rows: %w", err)
	}
	return rows > 0, nil
}

func (m *MySQLInventory) IncrementStock(ctx context.Context, productID string, quantity int) error {
	// Upsert so compensation and restock succeed for unseen products too.
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO inventory (product_id, stock_quantity, updated_at)
		VALUES (?, ?, NOW())
		ON DUPLICATE KEY UPDATE
			stock_quantity = stock_quantity + VALUES(stock_quantity),
			updated_at = NOW()`,
		productID, quantity,
	)
	if err != nil {
		return fmt.Errorf("increment stock: %w", err)
	}
	return nil
}

func (m *MySQLInventory) GetRecord(ctx context.Context, productID string) (*domain.InventoryRecord, error) {
	var rec domain.InventoryRecord
	err := m.db.QueryRowxContext(ctx, `
		SELECT product_id, stock_quantity, updated_at
		FROM inventory WHERE product_id = ?`, productID,
	).Scan(&rec.ProductID, &rec.StockQuantity, &rec.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query inventory: %w", err)
	}
	return &rec, nil
}
