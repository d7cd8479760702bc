package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vitashop/checkout/internal/core/domain"
	"github.com/vitashop/checkout/internal/port"
)

func newPlacementFixture(
	stock map[string]int,
	products map[string]*port.Product,
	cart []domain.CartItem,
) (*PlacementCoordinator, *memInventory, *memOrders, *memCarts) {
	inv := newMemInventory(stock)
	orders := newMemOrders()
	carts := newMemCarts(map[string][]domain.CartItem{"u1": cart})
	catalog := &memCatalog{products: products}

	logger := zap.NewNop()
	coordinator := NewPlacementCoordinator(
		carts, catalog,
		NewInventoryLedger(inv, logger),
		NewOrderStore(orders, logger),
		logger,
	)
	return coordinator, inv, orders, carts
}

func activeProduct(id string, price int64) *port.Product {
	return &port.Product{ID: id, Name: id, PriceCents: price, IsActive: true}
}

func TestPlaceOrder_Success(t *testing.T) {
	coordinator, inv, orders, carts := newPlacementFixture(
		map[string]int{"P1": 5},
		map[string]*port.Product{"P1": activeProduct("P1", 1000)},
		[]domain.CartItem{{UserID: "u1", ProductID: "P1", Quantity: 2}},
	)

	order, err := coordinator.PlaceOrder(context.Background(), "u1")
	require.NoError(t, err)

	assert.Equal(t, domain.OrderStatusPending, order.Status)
	assert.Equal(t, int64(2000), order.TotalCents)
	assert.Equal(t, 3, inv.stockOf("P1"))
	assert.Equal(t, 1, orders.count())
	assert.True(t, carts.cleared)
}

func TestPlaceOrder_EmptyCart(t *testing.T) {
	coordinator, _, orders, _ := newPlacementFixture(nil, nil, nil)

	_, err := coordinator.PlaceOrder(context.Background(), "u1")
	assert.ErrorIs(t, err, domain.ErrEmptyCart)
	assert.Equal(t, 0, orders.count())
}

func TestPlaceOrder_InsufficientStockPreservesEverything(t *testing.T) {
	coordinator, inv, orders, carts := newPlacementFixture(
		map[string]int{"P2": 5},
		map[string]*port.Product{"P2": activeProduct("P2", 700)},
		[]domain.CartItem{{UserID: "u1", ProductID: "P2", Quantity: 20}},
	)

	_, err := coordinator.PlaceOrder(context.Background(), "u1")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	var insufficient *domain.InsufficientStockError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, "P2", insufficient.ProductID)

	assert.Equal(t, 5, inv.stockOf("P2"))
	assert.Equal(t, 0, orders.count())
	assert.False(t, carts.cleared)
}

// Failure at line k compensates lines 1..k-1 in exact reverse order and
// creates no order.
func TestPlaceOrder_CompensatesReservedLinesInReverseOrder(t *testing.T) {
	coordinator, inv, orders, _ := newPlacementFixture(
		map[string]int{"A": 10, "B": 10, "C": 1},
		map[string]*port.Product{
			"A": activeProduct("A", 100),
			"B": activeProduct("B", 200),
			"C": activeProduct("C", 300),
		},
		[]domain.CartItem{
			{UserID: "u1", ProductID: "A", Quantity: 1},
			{UserID: "u1", ProductID: "B", Quantity: 2},
			{UserID: "u1", ProductID: "C", Quantity: 5},
		},
	)

	_, err := coordinator.PlaceOrder(context.Background(), "u1")
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	assert.Equal(t, 10, inv.stockOf("A"))
	assert.Equal(t, 10, inv.stockOf("B"))
	assert.Equal(t, 1, inv.stockOf("C"))
	assert.Equal(t, []string{"B", "A"}, inv.increments)
	assert.Equal(t, 0, orders.count())
}

// The same product on two cart lines must net out to the pre-attempt stock
// after compensation.
func TestPlaceOrder_DuplicateProductLinesNetOut(t *testing.T) {
	coordinator, inv, orders, _ := newPlacementFixture(
		map[string]int{"A": 4},
		map[string]*port.Product{"A": activeProduct("A", 100)},
		[]domain.CartItem{
			{UserID: "u1", ProductID: "A", Quantity: 2},
			{UserID: "u1", ProductID: "A", Quantity: 3},
		},
	)

	_, err := coordinator.PlaceOrder(context.Background(), "u1")
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Equal(t, 4, inv.stockOf("A"))
	assert.Equal(t, 0, orders.count())
}

// A failed compensation never masks the original rejection; the stock stays
// understated and is logged for operators.
func TestPlaceOrder_CompensationFailureKeepsOriginalError(t *testing.T) {
	coordinator, inv, orders, _ := newPlacementFixture(
		map[string]int{"A": 10, "C": 0},
		map[string]*port.Product{
			"A": activeProduct("A", 100),
			"C": activeProduct("C", 300),
		},
		[]domain.CartItem{
			{UserID: "u1", ProductID: "A", Quantity: 1},
			{UserID: "u1", ProductID: "C", Quantity: 1},
		},
	)
	inv.failIncrement = true

	_, err := coordinator.PlaceOrder(context.Background(), "u1")
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Equal(t, 0, orders.count())
	assert.Equal(t, 9, inv.stockOf("A"))
}

func TestPlaceOrder_PersistFailureCompensates(t *testing.T) {
	coordinator, inv, orders, carts := newPlacementFixture(
		map[string]int{"P1": 5},
		map[string]*port.Product{"P1": activeProduct("P1", 1000)},
		[]domain.CartItem{{UserID: "u1", ProductID: "P1", Quantity: 2}},
	)
	orders.failCreate = true

	_, err := coordinator.PlaceOrder(context.Background(), "u1")
	assert.ErrorIs(t, err, domain.ErrInternal)
	assert.Equal(t, 5, inv.stockOf("P1"))
	assert.False(t, carts.cleared)
}

// An already-persisted order is never rolled back over cart cleanup.
func TestPlaceOrder_CartClearFailureIsNonFatal(t *testing.T) {
	coordinator, inv, orders, carts := newPlacementFixture(
		map[string]int{"P1": 5},
		map[string]*port.Product{"P1": activeProduct("P1", 1000)},
		[]domain.CartItem{{UserID: "u1", ProductID: "P1", Quantity: 1}},
	)
	carts.failClear = true

	order, err := coordinator.PlaceOrder(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, orders.count())
	assert.Equal(t, 4, inv.stockOf("P1"))
	assert.NotEmpty(t, order.ID)
}

func TestPlaceOrder_InactiveProductRejected(t *testing.T) {
	coordinator, inv, orders, _ := newPlacementFixture(
		map[string]int{"P1": 5},
		map[string]*port.Product{"P1": {ID: "P1", PriceCents: 1000, IsActive: false}},
		[]domain.CartItem{{UserID: "u1", ProductID: "P1", Quantity: 1}},
	)

	_, err := coordinator.PlaceOrder(context.Background(), "u1")
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, 5, inv.stockOf("P1"))
	assert.Equal(t, 0, orders.count())
}

// A price snapshot held in the cart wins over the live catalog price, and
// the total is fixed from the snapshot at creation.
func TestPlaceOrder_PriceSnapshot(t *testing.T) {
	coordinator, _, orders, _ := newPlacementFixture(
		map[string]int{"P1": 5, "P2": 5},
		map[string]*port.Product{
			"P1": activeProduct("P1", 1000),
			"P2": activeProduct("P2", 250),
		},
		[]domain.CartItem{
			{UserID: "u1", ProductID: "P1", Quantity: 1, UnitPriceCents: 800},
			{UserID: "u1", ProductID: "P2", Quantity: 2},
		},
	)

	order, err := coordinator.PlaceOrder(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(800+2*250), order.TotalCents)
	assert.Equal(t, order.TotalCents, domain.Total(order.LineItems))
	assert.Equal(t, 1, orders.count())
}
