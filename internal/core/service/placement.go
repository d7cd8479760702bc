package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/vitashop/checkout/internal/core/domain"
	"github.com/vitashop/checkout/internal/metrics"
	"github.com/vitashop/checkout/internal/port"
)

// PlacementCoordinator runs the checkout saga:
// cart snapshot -> reserve stock per line -> persist order -> clear cart.
// Any reservation or persistence failure compensates every reservation made
// so far, in exact reverse order; a partial order is never created. The
// coordinator is not re-entrant on a stale cart snapshot: a timed-out
// caller must re-read order and cart state before retrying.
type PlacementCoordinator struct {
	carts   port.CartRepository
	catalog port.CatalogService
	ledger  *InventoryLedger
	orders  *OrderStore
	logger  *zap.Logger
}

func NewPlacementCoordinator(
	carts port.CartRepository,
	catalog port.CatalogService,
	ledger *InventoryLedger,
	orders *OrderStore,
	logger *zap.Logger,
) *PlacementCoordinator {
	return &PlacementCoordinator{
		carts:   carts,
		catalog: catalog,
		ledger:  ledger,
		orders:  orders,
		logger:  logger,
	}
}

// PlaceOrder converts the user's cart into a durable pending order.
func (c *PlacementCoordinator) PlaceOrder(ctx context.Context, userID string) (*domain.Order, error) {
	cart, err := c.carts.ListItems(ctx, userID)
	if err != nil {
		metrics.CheckoutFailures.WithLabelValues("internal").Inc()
		return nil, fmt.Errorf("%w: read cart for user %s: %v", domain.ErrInternal, userID, err)
	}
	if len(cart) == 0 {
		metrics.CheckoutFailures.WithLabelValues("empty_cart").Inc()
		return nil, domain.ErrEmptyCart
	}

	items, err := c.snapshotLineItems(ctx, cart)
	if err != nil {
		metrics.CheckoutFailures.WithLabelValues("validation").Inc()
		return nil, err
	}

	// Reserve in cart insertion order; compensate in reverse on failure.
	// Per-line compensation nets out correctly even when the same product
	// appears on two lines.
	reserved := make([]domain.LineItem, 0, len(items))
	for _, item := range items {
		if err := c.ledger.ConditionalDecrement(ctx, item.ProductID, item.Quantity); err != nil {
			c.compensate(ctx, reserved)
			metrics.CheckoutFailures.WithLabelValues("insufficient_stock").Inc()
			return nil, err
		}
		reserved = append(reserved, item)
	}

	order, err := c.orders.Create(ctx, userID, items)
	if err != nil {
		c.compensate(ctx, reserved)
		metrics.CheckoutFailures.WithLabelValues("internal").Inc()
		return nil, err
	}

	// Cart-clear failure is non-fatal: the order row is the source of
	// truth, never rolled back over cart cleanup.
	if err := c.carts.Clear(ctx, userID); err != nil {
		c.logger.Warn("failed to clear cart after placement",
			zap.String("user_id", userID),
			zap.String("order_id", order.ID),
			zap.Error(err),
		)
	}

	metrics.OrdersPlaced.Inc()
	c.logger.Info("order placed",
		zap.String("order_id", order.ID),
		zap.String("user_id", userID),
		zap.Int64("total_cents", order.TotalCents),
		zap.Int("line_items", len(order.LineItems)),
	)
	return order, nil
}

// snapshotLineItems validates each cart line against the catalog and fixes
// unit prices: a price held in the cart wins, otherwise the live catalog
// price is frozen into the snapshot.
func (c *PlacementCoordinator) snapshotLineItems(ctx context.Context, cart []domain.CartItem) ([]domain.LineItem, error) {
	items := make([]domain.LineItem, 0, len(cart))
	for _, ci := range cart {
		if ci.Quantity <= 0 {
			return nil, fmt.Errorf("%w: cart line for product %s has quantity %d", domain.ErrValidation, ci.ProductID, ci.Quantity)
		}

		product, err := c.catalog.GetProduct(ctx, ci.ProductID)
		if err != nil {
			return nil, fmt.Errorf("%w: look up product %s: %v", domain.ErrInternal, ci.ProductID, err)
		}
		if product == nil || !product.IsActive {
			return nil, fmt.Errorf("%w: product %s is not available", domain.ErrValidation, ci.ProductID)
		}

		price := ci.UnitPriceCents
		if price == 0 {
			price = product.PriceCents
		}
		items = append(items, domain.LineItem{
			ProductID:      ci.ProductID,
			Quantity:       ci.Quantity,
			UnitPriceCents: price,
		})
	}
	return items, nil
}

// compensate returns every reserved quantity in exact reverse order. A
// failed increment is critical: stock stays understated until restock.
func (c *PlacementCoordinator) compensate(ctx context.Context, reserved []domain.LineItem) {
	for i := len(reserved) - 1; i >= 0; i-- {
		item := reserved[i]
		if err := c.ledger.Increment(ctx, item.ProductID, item.Quantity); err != nil {
			c.logger.Error("compensation failed, stock understated",
				zap.String("product_id", item.ProductID),
				zap.Int("quantity", item.Quantity),
				zap.Error(err),
			)
		}
	}
}
