package domain

// PaymentEvent is an inbound payment-provider notification, already parsed
// off the wire. The same event may be delivered more than once.
type PaymentEvent struct {
	Provider      string
	EventID       string
	Type          string
	OrderRef      string
	Status        string
	TransactionID string
}

// statusByEvent maps provider status strings onto the order lifecycle.
var statusByEvent = map[string]OrderStatus{
	"processing": OrderStatusProcessing,
	"paid":       OrderStatusPaid,
	"succeeded":  OrderStatusPaid,
	"failed":     OrderStatusFailed,
	"cancelled":  OrderStatusCancelled,
	"refunded":   OrderStatusRefunded,
}

// TargetStatus resolves the order status a payment event asks for.
func (e PaymentEvent) TargetStatus() (OrderStatus, bool) {
	s, ok := statusByEvent[e.Status]
	return s, ok
}
