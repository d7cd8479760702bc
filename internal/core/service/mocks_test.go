package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/vitashop/checkout/internal/core/domain"
	"github.com/vitashop/checkout/internal/port"
)

// In-memory fakes with the same serialization the real adapters get from
// MySQL row locks and the Redis script.

type memInventory struct {
	mu            sync.Mutex
	stock         map[string]int
	failIncrement bool
	increments    []string // product ids, in call order
}

func newMemInventory(stock map[string]int) *memInventory {
	return &memInventory{stock: stock}
}

func (m *memInventory) DecrementStock(ctx context.Context, productID string, quantity int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stock[productID] < quantity {
		return false, nil
	}
	m.stock[productID] -= quantity
	return true, nil
}

func (m *memInventory) IncrementStock(ctx context.Context, productID string, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failIncrement {
		return errors.New("inventory unavailable")
	}
	m.stock[productID] += quantity
	m.increments = append(m.increments, productID)
	return nil
}

func (m *memInventory) GetRecord(ctx context.Context, productID string) (*domain.InventoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	qty, ok := m.stock[productID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &domain.InventoryRecord{ProductID: productID, StockQuantity: qty}, nil
}

func (m *memInventory) stockOf(productID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stock[productID]
}

type memOrders struct {
	mu         sync.Mutex
	orders     map[string]*domain.Order
	failCreate bool
	getErr     error
}

func newMemOrders() *memOrders {
	return &memOrders{orders: map[string]*domain.Order{}}
}

func (m *memOrders) Create(ctx context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCreate {
		return errors.New("database unavailable")
	}
	clone := *order
	m.orders[order.ID] = &clone
	return nil
}

func (m *memOrders) Get(ctx context.Context, id string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	order, ok := m.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *order
	return &clone, nil
}

func (m *memOrders) UpdateStatus(ctx context.Context, id string, from, to domain.OrderStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[id]
	if !ok || order.Status != from {
		return false, nil
	}
	order.Status = to
	return true, nil
}

func (m *memOrders) SetPaymentReference(ctx context.Context, id, provider, transactionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if order, ok := m.orders[id]; ok {
		order.PaymentProvider = provider
		order.PaymentTransactionID = transactionID
	}
	return nil
}

func (m *memOrders) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

func (m *memOrders) put(order *domain.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[order.ID] = order
}

type memCarts struct {
	mu        sync.Mutex
	items     map[string][]domain.CartItem
	failClear bool
	cleared   bool
}

func newMemCarts(items map[string][]domain.CartItem) *memCarts {
	if items == nil {
		items = map[string][]domain.CartItem{}
	}
	return &memCarts{items: items}
}

func (m *memCarts) ListItems(ctx context.Context, userID string) ([]domain.CartItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.CartItem(nil), m.items[userID]...), nil
}

func (m *memCarts) AddItem(ctx context.Context, item domain.CartItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[item.UserID] = append(m.items[item.UserID], item)
	return nil
}

func (m *memCarts) UpdateQuantity(ctx context.Context, userID, productID string, quantity int) error {
	return nil
}

func (m *memCarts) RemoveItem(ctx context.Context, userID, productID string) error {
	return nil
}

func (m *memCarts) Clear(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failClear {
		return errors.New("cart store unavailable")
	}
	delete(m.items, userID)
	m.cleared = true
	return nil
}

type memCatalog struct {
	products map[string]*port.Product
}

func (m *memCatalog) GetProduct(ctx context.Context, id string) (*port.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

type memKeyStore struct {
	mu      sync.Mutex
	vals    map[string]string
	failing bool
}

func newMemKeyStore() *memKeyStore {
	return &memKeyStore{vals: map[string]string{}}
}

func (m *memKeyStore) SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return false, "", errors.New("keystore unreachable")
	}
	if existing, ok := m.vals[key]; ok {
		return false, existing, nil
	}
	m.vals[key] = value
	return true, "", nil
}

func (m *memKeyStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return errors.New("keystore unreachable")
	}
	m.vals[key] = value
	return nil
}

func (m *memKeyStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.vals, key)
	return nil
}

func (m *memKeyStore) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.vals)
}

type memNotifier struct {
	mu       sync.Mutex
	notified []string
}

func (m *memNotifier) NotifyOrderPaid(ctx context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notified = append(m.notified, order.ID)
	return nil
}

func (m *memNotifier) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.notified)
}
