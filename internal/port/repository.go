package port

import (
	"context"
	"time"

	"github.com/vitashop/checkout/internal/core/domain"
)

type InventoryRepository interface {
	// DecrementStock atomically decreases stock with a conditional update,
	// returns false if the predicate (stock >= quantity) did not hold.
	DecrementStock(ctx context.Context, productID string, quantity int) (bool, error)

	// IncrementStock restores or restocks; succeeds even for unseen products.
	IncrementStock(ctx context.Context, productID string, quantity int) error

	GetRecord(ctx context.Context, productID string) (*domain.InventoryRecord, error)
}

type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	Get(ctx context.Context, id string) (*domain.Order, error)

	// UpdateStatus is a compare-and-swap on the current status; returns
	// false when the row was not in `from` anymore.
	UpdateStatus(ctx context.Context, id string, from, to domain.OrderStatus) (bool, error)

	SetPaymentReference(ctx context.Context, id, provider, transactionID string) error
}

type CartRepository interface {
	// ListItems returns the cart snapshot in insertion order.
	ListItems(ctx context.Context, userID string) ([]domain.CartItem, error)
	AddItem(ctx context.Context, item domain.CartItem) error
	UpdateQuantity(ctx context.Context, userID, productID string, quantity int) error
	RemoveItem(ctx context.Context, userID, productID string) error
	Clear(ctx context.Context, userID string) error
}

// KeyValueStore is a TTL-capable shared keystore. SetIfAbsent is the single
// atomic primitive the idempotency contract rests on: exactly one of N
// racing callers observes stored=true.
type KeyValueStore interface {
	SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (stored bool, existing string, err error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
