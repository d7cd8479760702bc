package domain

import "time"

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusPaid       OrderStatus = "paid"
	OrderStatusFailed     OrderStatus = "failed"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusRefunded   OrderStatus = "refunded"
	OrderStatusDelivered  OrderStatus = "delivered"
)

// allowedTransitions is the full order lifecycle. Any edge not listed is
// rejected; cancellation is only reachable from pending and processing.
var allowedTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusPaid, OrderStatusFailed, OrderStatusCancelled},
	OrderStatusPaid:       {OrderStatusShipped, OrderStatusRefunded},
	OrderStatusShipped:    {OrderStatusDelivered},
}

// CanTransition reports whether from -> to is a legal edge.
func CanTransition(from, to OrderStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is defined from s.
func IsTerminal(s OrderStatus) bool {
	return len(allowedTransitions[s]) == 0
}

// LineItem is the immutable snapshot of one cart line at checkout time.
// UnitPriceCents is frozen here; later catalog price changes never touch it.
type LineItem struct {
	ProductID      string `json:"product_id"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
}

type Order struct {
	ID                   string
	UserID               string
	Status               OrderStatus
	LineItems            []LineItem
	TotalCents           int64
	PaymentProvider      string
	PaymentTransactionID string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// Total sums the snapshotted line items. Order.TotalCents is set from this
// once at creation and is never recomputed from live catalog prices.
func Total(items []LineItem) int64 {
	var total int64
	for _, it := range items {
		total += it.UnitPriceCents * int64(it.Quantity)
	}
	return total
}
