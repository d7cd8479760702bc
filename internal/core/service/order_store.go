package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vitashop/checkout/internal/core/domain"
	"github.com/vitashop/checkout/internal/port"
)

// OrderStore owns the order aggregate and its status state machine. Other
// components hold order ids, never the rows.
type OrderStore struct {
	repo   port.OrderRepository
	logger *zap.Logger
}

func NewOrderStore(repo port.OrderRepository, logger *zap.Logger) *OrderStore {
	return &OrderStore{repo: repo, logger: logger}
}

// Create persists a new order with a generated id and initial pending
// status. The total is fixed here from the line-item snapshot.
func (s *OrderStore) Create(ctx context.Context, userID string, items []domain.LineItem) (*domain.Order, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: order needs at least one line item", domain.ErrValidation)
	}

	now := time.Now().UTC()
	order := &domain.Order{
		ID:         uuid.NewString(),
		UserID:     userID,
		Status:     domain.OrderStatusPending,
		LineItems:  items,
		TotalCents: domain.Total(items),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.repo.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("%w: create order: %v", domain.ErrInternal, err)
	}
	return order, nil
}

func (s *OrderStore) Get(ctx context.Context, id string) (*domain.Order, error) {
	order, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: get order %s: %v", domain.ErrInternal, id, err)
	}
	return order, nil
}

// TransitionStatus moves an order along the state machine. The write is a
// compare-and-swap on the current status so two concurrent transitions
// cannot both apply.
func (s *OrderStore) TransitionStatus(ctx context.Context, id string, next domain.OrderStatus) (*domain.Order, error) {
	order, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if !domain.CanTransition(order.Status, next) {
		return nil, fmt.Errorf("%w: %s -> %s for order %s", domain.ErrInvalidTransition, order.Status, next, id)
	}

	ok, err := s.repo.UpdateStatus(ctx, id, order.Status, next)
	if err != nil {
		return nil, fmt.Errorf("%w: update status of order %s: %v", domain.ErrInternal, id, err)
	}
	if !ok {
		// Lost the CAS race; the order moved underneath us.
		return nil, fmt.Errorf("%w: order %s is no longer %s", domain.ErrInvalidTransition, id, order.Status)
	}

	order.Status = next
	order.UpdatedAt = time.Now().UTC()
	s.logger.Info("order status changed",
		zap.String("order_id", id),
		zap.String("status", string(next)),
	)
	return order, nil
}

// SetPaymentReference records which provider transaction settled the order.
func (s *OrderStore) SetPaymentReference(ctx context.Context, id, provider, transactionID string) error {
	if err := s.repo.SetPaymentReference(ctx, id, provider, transactionID); err != nil {
		return fmt.Errorf("%w: set payment reference on order %s: %v", domain.ErrInternal, id, err)
	}
	return nil
}
