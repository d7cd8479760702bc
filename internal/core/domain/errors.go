package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation covers malformed input such as a negative quantity.
	ErrValidation = errors.New("validation failed")

	// ErrEmptyCart is returned when checkout is attempted on an empty cart.
	ErrEmptyCart = errors.New("cart is empty")

	// ErrInsufficientStock is a business rejection; the cart is preserved.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrInvalidTransition is returned for any status edge not in the table.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrNotFound is returned when a referenced record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInternal marks storage or infrastructure failures; callers may
	// retry with backoff.
	ErrInternal = errors.New("internal error")
)

// InsufficientStockError names the product that could not be reserved so the
// client can adjust the cart and retry.
type InsufficientStockError struct {
	ProductID string
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s (requested %d)", e.ProductID, e.Requested)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }
