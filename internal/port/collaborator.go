package port

import (
	"context"

	"github.com/vitashop/checkout/internal/core/domain"
)

// Product is the read-only catalog view used to validate line items.
type Product struct {
	ID         string
	Name       string
	PriceCents int64
	IsActive   bool
}

type CatalogService interface {
	GetProduct(ctx context.Context, id string) (*Product, error)
}

// NotificationService is fire-and-forget; delivery failures are logged,
// never propagated into settlement.
type NotificationService interface {
	NotifyOrderPaid(ctx context.Context, order *domain.Order) error
}
