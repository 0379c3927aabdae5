package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/adpulse/adpulse/pkg/cache"
)

// healthTTL bounds how long sync health counters survive; a silent account
// decays back to an unknown state instead of reporting stale health.
const healthTTL = 24 * time.Hour

// HealthCounters tracks per-account sync outcomes in an injected cache.
// Adjacent services (tenant health scoring) read these counters; the sync
// service only writes them.
type HealthCounters struct {
	cache cache.Cache
}

// NewHealthCounters creates health counters over the given cache.
func NewHealthCounters(c cache.Cache) *HealthCounters {
	return &HealthCounters{cache: c}
}

func healthKey(accountID uuid.UUID, outcome string) string {
	return fmt.Sprintf("sync:health:%s:%s", accountID, outcome)
}

// RecordSuccess increments the account's success counter. Counter errors
// are swallowed; health accounting never fails a sync.
func (h *HealthCounters) RecordSuccess(ctx context.Context, accountID uuid.UUID) {
	if h == nil || h.cache == nil {
		return
	}
	_, _ = h.cache.Increment(ctx, healthKey(accountID, "success"), 1, healthTTL)
}

// RecordFailure increments the account's failure counter.
func (h *HealthCounters) RecordFailure(ctx context.Context, accountID uuid.UUID) {
	if h == nil || h.cache == nil {
		return
	}
	_, _ = h.cache.Increment(ctx, healthKey(accountID, "failure"), 1, healthTTL)
}

// Snapshot returns the current success/failure counts for an account.
func (h *HealthCounters) Snapshot(ctx context.Context, accountID uuid.UUID) (successes, failures int64, err error) {
	if h == nil || h.cache == nil {
		return 0, 0, nil
	}
	successes, err = h.cache.GetCounter(ctx, healthKey(accountID, "success"))
	if err != nil {
		return 0, 0, err
	}
	failures, err = h.cache.GetCounter(ctx, healthKey(accountID, "failure"))
	if err != nil {
		return 0, 0, err
	}
	return successes, failures, nil
}
