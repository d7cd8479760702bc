package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/vitashop/checkout/internal/core/domain"
	"github.com/vitashop/checkout/internal/port"
)

// MySQLCatalog is a read-only port.CatalogService over the products table.
type MySQLCatalog struct {
	db *sqlx.DB
}

func NewMySQLCatalog(db *sqlx.DB) *MySQLCatalog {
	return &MySQLCatalog{db: db}
}

func (m *MySQLCatalog) GetProduct(ctx context.Context, id string) (*port.Product, error) {
	var p port.Product
	err := m.db.QueryRowxContext(ctx, `
		SELECT id, name, price_cents, is_active
		FROM products WHERE id = ?`, id,
	).Scan(&p.ID, &p.Name, &p.PriceCents, &p.IsActive)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query product: %w", err)
	}
	return &p, nil
}
