package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersPlaced = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "checkout",
		Name:      "orders_placed_total",
		Help:      "Orders successfully created at checkout.",
	})

	CheckoutFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "checkout",
		Name:      "failures_total",
		Help:      "Checkout attempts rejected or failed, by reason.",
	}, []string{"reason"})

	StockRejections = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "checkout",
		Name:      "stock_rejections_total",
		Help:      "Conditional decrements rejected for insufficient stock.",
	})

	WebhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "checkout",
		Subsystem: "webhook",
		Name:      "events_total",
		Help:      "Inbound payment events, by outcome (applied, duplicate, degraded, unapplied).",
	}, []string{"outcome"})

	GuardDegraded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "checkout",
		Subsystem: "idempotency",
		Name:      "degraded_total",
		Help:      "Idempotency checks that failed open because the keystore was unreachable.",
	})
)
