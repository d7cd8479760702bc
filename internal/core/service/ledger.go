package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/vitashop/checkout/internal/core/domain"
	"github.com/vitashop/checkout/internal/metrics"
	"github.com/vitashop/checkout/internal/port"
)

// InventoryLedger is the only way stock moves. Both primitives delegate to a
// single atomic storage operation; there is no read-then-write pair here, so
// racing callers are serialized by the database row, not by this process.
type InventoryLedger struct {
	repo   port.InventoryRepository
	logger *zap.Logger
}

func NewInventoryLedger(repo port.InventoryRepository, logger *zap.Logger) *InventoryLedger {
	return &InventoryLedger{repo: repo, logger: logger}
}

// ConditionalDecrement subtracts amount only if the resulting stock stays
// non-negative. Zero is a no-op success; negative amounts are rejected.
func (l *InventoryLedger) ConditionalDecrement(ctx context.Context, productID string, amount int) error {
	if amount < 0 {
		return fmt.Errorf("%w: decrement amount must not be negative, got %d", domain.ErrValidation, amount)
	}
	if amount == 0 {
		return nil
	}

	ok, err := l.repo.DecrementStock(ctx, productID, amount)
	if err != nil {
		return fmt.Errorf("%w: decrement stock for %s: %v", domain.ErrInternal, productID, err)
	}
	if !ok {
		metrics.StockRejections.Inc()
		l.logger.Info("stock reservation rejected",
			zap.String("product_id", productID),
			zap.Int("requested", amount),
		)
		return &domain.InsufficientStockError{ProductID: productID, Requested: amount}
	}
	return nil
}

// Increment is unconditional and monotonic; used for restock and for
// compensation after a failed placement.
func (l *InventoryLedger) Increment(ctx context.Context, productID string, amount int) error {
	if amount < 0 {
		return fmt.Errorf("%w: increment amount must not be negative, got %d", domain.ErrValidation, amount)
	}
	if amount == 0 {
		return nil
	}

	if err := l.repo.IncrementStock(ctx, productID, amount); err != nil {
		return fmt.Errorf("%w: increment stock for %s: %v", domain.ErrInternal, productID, err)
	}
	return nil
}
