package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/vitashop/checkout/internal/core/domain"
	"github.com/vitashop/checkout/internal/metrics"
	"github.com/vitashop/checkout/internal/port"
)

// webhookKeyTTL bounds the dedupe window for provider events. Providers
// stop redelivering well inside seven days.
const webhookKeyTTL = 7 * 24 * time.Hour

// processedMarker is stored under the event key once it has been claimed.
const processedMarker = "processed"

// SettlementResult is the webhook response body: always success for any
// outcome that should suppress provider-side retry.
type SettlementResult struct {
	Success          bool `json:"success"`
	AlreadyProcessed bool `json:"already_processed"`
}

// SettlementHandler applies inbound payment notifications to orders exactly
// once logically, no matter how often the provider delivers them.
type SettlementHandler struct {
	guard      *IdempotencyGuard
	orders     *OrderStore
	notifier   port.NotificationService
	dispatcher *Dispatcher
	logger     *zap.Logger
}

func NewSettlementHandler(
	guard *IdempotencyGuard,
	orders *OrderStore,
	notifier port.NotificationService,
	dispatcher *Dispatcher,
	logger *zap.Logger,
) *SettlementHandler {
	return &SettlementHandler{
		guard:      guard,
		orders:     orders,
		notifier:   notifier,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Handle deduplicates and applies one provider event. Errors returned here
// are transient infrastructure failures only; the HTTP layer maps them to a
// non-2xx status so the provider's retry policy governs redelivery. Every
// other outcome reports success.
func (h *SettlementHandler) Handle(ctx context.Context, evt domain.PaymentEvent) (SettlementResult, error) {
	if evt.Provider == "" || evt.EventID == "" {
		// Dedup is impossible without an event identity; process
		// unconditionally rather than drop a settlement.
		metrics.WebhookEvents.WithLabelValues("degraded").Inc()
		h.logger.Warn("payment event without identity, processing without dedupe",
			zap.String("order_ref", evt.OrderRef),
			zap.String("type", evt.Type),
		)
		return h.apply(ctx, evt, "")
	}

	key := Fingerprint("webhook", map[string]any{
		"provider": evt.Provider,
		"event_id": evt.EventID,
	})

	dup, _ := h.guard.CheckAndStore(ctx, key, processedMarker, webhookKeyTTL)
	if dup {
		metrics.WebhookEvents.WithLabelValues("duplicate").Inc()
		h.logger.Info("duplicate payment event ignored",
			zap.String("provider", evt.Provider),
			zap.String("event_id", evt.EventID),
		)
		return SettlementResult{Success: true, AlreadyProcessed: true}, nil
	}

	return h.apply(ctx, evt, key)
}

// apply resolves the order and drives the state machine. key is empty when
// the event could not be deduplicated.
func (h *SettlementHandler) apply(ctx context.Context, evt domain.PaymentEvent, key string) (SettlementResult, error) {
	target, ok := evt.TargetStatus()
	if !ok {
		return h.unapplied(evt, key, fmt.Errorf("%w: unknown payment status %q", domain.ErrValidation, evt.Status))
	}

	if target == domain.OrderStatusPaid && evt.TransactionID != "" {
		if err := h.orders.SetPaymentReference(ctx, evt.OrderRef, evt.Provider, evt.TransactionID); err != nil {
			return h.transientFailure(ctx, evt, key, err)
		}
	}

	order, err := h.orders.TransitionStatus(ctx, evt.OrderRef, target)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrInternal):
		return h.transientFailure(ctx, evt, key, err)
	default:
		// Unknown order or an edge the state machine rejects: permanent.
		return h.unapplied(evt, key, err)
	}

	if target == domain.OrderStatusPaid {
		paid := order
		h.dispatcher.Enqueue(func(taskCtx context.Context) {
			if err := h.notifier.NotifyOrderPaid(taskCtx, paid); err != nil {
				h.logger.Warn("order-paid notification failed",
					zap.String("order_id", paid.ID),
					zap.Error(err),
				)
			}
		})
	}

	metrics.WebhookEvents.WithLabelValues("applied").Inc()
	h.logger.Info("payment event applied",
		zap.String("provider", evt.Provider),
		zap.String("event_id", evt.EventID),
		zap.String("order_id", evt.OrderRef),
		zap.String("status", string(target)),
	)
	return SettlementResult{Success: true}, nil
}

// transientFailure releases the idempotency key so the provider's retry can
// land on a clean slate, then surfaces the error for a non-2xx response.
func (h *SettlementHandler) transientFailure(ctx context.Context, evt domain.PaymentEvent, key string, err error) (SettlementResult, error) {
	if key != "" {
		if delErr := h.guard.Invalidate(ctx, key); delErr != nil {
			h.logger.Error("failed to release event key after transient failure",
				zap.String("event_id", evt.EventID),
				zap.Error(delErr),
			)
		}
	}
	return SettlementResult{}, err
}

// unapplied records a processed-but-unapplied event: the key stays so a
// poison event is not redelivered forever, and the case is flagged for
// reconciliation instead of crash-looping.
func (h *SettlementHandler) unapplied(evt domain.PaymentEvent, key string, err error) (SettlementResult, error) {
	metrics.WebhookEvents.WithLabelValues("unapplied").Inc()
	h.logger.Error("payment event processed but not applied",
		zap.String("provider", evt.Provider),
		zap.String("event_id", evt.EventID),
		zap.String("order_ref", evt.OrderRef),
		zap.String("key", key),
		zap.Bool("reconciliation_required", true),
		zap.Error(err),
	)
	return SettlementResult{Success: true}, nil
}
