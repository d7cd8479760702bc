package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vitashop/checkout/internal/metrics"
	"github.com/vitashop/checkout/internal/port"
)

// pendingMarker reserves a key while its operation is still running. A key
// holding this value means "claimed but not yet confirmed".
const pendingMarker = "__pending__"

// IdempotencyGuard makes an operation at-most-once per logical key within a
// TTL window. When the backing store is unreachable it fails open: the
// operation runs anyway and the degraded mode is logged, trading perfect
// dedupe for checkout/payment availability.
type IdempotencyGuard struct {
	store  port.KeyValueStore
	logger *zap.Logger
}

func NewIdempotencyGuard(store port.KeyValueStore, logger *zap.Logger) *IdempotencyGuard {
	return &IdempotencyGuard{store: store, logger: logger}
}

// Fingerprint derives a deterministic key from the operation name and its
// parameters. Params are key-sorted before hashing so argument order never
// changes the fingerprint.
func Fingerprint(operation string, params map[string]any) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(operation)
	for _, k := range keys {
		v, _ := json.Marshal(params[k])
		fmt.Fprintf(&b, "|%s=%s", k, v)
	}

	sum := sha256.Sum256([]byte(b.String()))
	return "idem:" + hex.EncodeToString(sum[:])
}

// CheckAndStore is a single atomic check-and-set-if-absent. Of N callers
// racing on an absent key exactly one gets isDuplicate=false; the rest see
// the stored value. A store outage fails open and reports not-duplicate.
func (g *IdempotencyGuard) CheckAndStore(ctx context.Context, key, value string, ttl time.Duration) (isDuplicate bool, stored string) {
	ok, existing, err := g.store.SetIfAbsent(ctx, key, value, ttl)
	if err != nil {
		metrics.GuardDegraded.Inc()
		g.logger.Warn("idempotency store unreachable, failing open",
			zap.String("key", key),
			zap.Error(err),
		)
		return false, value
	}
	if ok {
		return false, value
	}
	return true, existing
}

// Invalidate forcibly removes a key so a later delivery is treated as new.
func (g *IdempotencyGuard) Invalidate(ctx context.Context, key string) error {
	return g.store.Delete(ctx, key)
}

// ExecuteResult carries an operation result plus whether it was replayed
// from the keystore instead of executed.
type ExecuteResult struct {
	Value     string
	FromCache bool
}

// Execute runs fn at most once per (operation, params) fingerprint. A
// duplicate call returns the stored result without invoking fn. A failing
// fn leaves no stored result, so a genuinely failed attempt stays
// retryable.
func (g *IdempotencyGuard) Execute(
	ctx context.Context,
	operation string,
	params map[string]any,
	fn func(context.Context) (string, error),
	ttl time.Duration,
) (ExecuteResult, error) {
	key := Fingerprint(operation, params)

	dup, stored := g.CheckAndStore(ctx, key, pendingMarker, ttl)
	if dup {
		if stored == pendingMarker {
			// First execution is still in flight; report the replay
			// without a value rather than blocking on it.
			stored = ""
		}
		return ExecuteResult{Value: stored, FromCache: true}, nil
	}

	value, err := fn(ctx)
	if err != nil {
		if delErr := g.store.Delete(ctx, key); delErr != nil {
			g.logger.Warn("failed to release idempotency key after error",
				zap.String("key", key),
				zap.Error(delErr),
			)
		}
		return ExecuteResult{}, err
	}

	if setErr := g.store.Set(ctx, key, value, ttl); setErr != nil {
		// The result is computed; a failed confirm only weakens dedupe.
		g.logger.Warn("failed to confirm idempotency key",
			zap.String("key", key),
			zap.Error(setErr),
		)
	}
	return ExecuteResult{Value: value, FromCache: false}, nil
}
