// Package reaper bounds the growth of the transfer ledgers by evicting
// records that were observed but never confirmed. Only the reaper may delete
// unverified records outside direct operator action; verified records are
// never touched.
package reaper

import (
	"context"
	"log/slog"
	"time"

	"bridgeledger/ledger"
	"bridgeledger/observability"
)

// UnverifiedTTL is how long an unverified record may linger before a sweep
// evicts it.
const UnverifiedTTL = time.Hour

// DefaultInterval is the sweep schedule used when the configuration does not
// override it.
const DefaultInterval = 10 * time.Minute

// Reaper periodically sweeps both directional ledgers for stale unverified
// entries.
type Reaper struct {
	store    *ledger.Store
	guard    *Guard
	interval time.Duration
	logger   *slog.Logger
	metrics  *observability.ReaperMetrics
	now      func() time.Time
}

// New constructs a reaper over the store. A nil guard gets a private one;
// passing a shared guard lets several schedulers contend for the same task
// kind.
func New(store *ledger.Store, guard *Guard, interval time.Duration, logger *slog.Logger) *Reaper {
	if guard == nil {
		guard = NewGuard()
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reaper{
		store:    store,
		guard:    guard,
		interval: interval,
		logger:   logger.With(slog.String("component", "reaper")),
		metrics:  observability.Reaper(),
		now:      time.Now,
	}
}

// SetClock overrides the time source (primarily for deterministic testing).
func (r *Reaper) SetClock(now func() time.Time) {
	if r == nil || now == nil {
		return
	}
	r.now = now
}

// Run sweeps on the configured interval until the context is cancelled.
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

// Sweep runs one eviction pass. If a sweep is already in flight the invocation
// is abandoned immediately with no side effects.
func (r *Reaper) Sweep() {
	release, ok := r.guard.TryAcquire(TaskReapUnverified)
	if !ok {
		r.metrics.ObserveSkip()
		r.logger.Debug("sweep already in progress, skipping")
		return
	}
	defer release()

	started := r.now()
	cutoff := uint64(started.UnixNano())
	ttl := uint64(UnverifiedTTL.Nanoseconds())
	if cutoff <= ttl {
		r.metrics.ObserveSweep(r.now().Sub(started))
		return
	}
	staleBefore := cutoff - ttl

	deposits, err := r.store.UnverifiedDeposits()
	if err != nil {
		r.logger.Error("listing unverified deposits failed", slog.Any("error", err))
		return
	}
	evictedDeposits := 0
	for _, entry := range deposits {
		if entry.Time >= staleBefore {
			continue
		}
		// the removal re-checks the verified flag under the store lock, so a
		// record confirmed since the listing is left alone
		removed, err := r.store.RemoveDepositIfUnverified(entry.ID, staleBefore)
		if err != nil {
			r.logger.Error("evicting deposit failed",
				slog.String("tx_hash", entry.ID.TxHash),
				slog.Uint64("chain_id", uint64(entry.ID.ChainID)),
				slog.Any("error", err))
			continue
		}
		if removed {
			evictedDeposits++
		}
	}

	withdrawals, err := r.store.UnverifiedWithdrawals()
	if err != nil {
		r.logger.Error("listing unverified withdrawals failed", slog.Any("error", err))
		return
	}
	evictedWithdrawals := 0
	for _, entry := range withdrawals {
		if entry.Time >= staleBefore {
			continue
		}
		removed, err := r.store.RemoveWithdrawalIfUnverified(entry.ID, staleBefore)
		if err != nil {
			r.logger.Error("evicting withdrawal failed",
				slog.Uint64("burn_index", entry.ID.BurnIndex),
				slog.Uint64("chain_id", uint64(entry.ID.ChainID)),
				slog.Any("error", err))
			continue
		}
		if removed {
			evictedWithdrawals++
		}
	}

	r.metrics.ObserveEviction("deposit", evictedDeposits)
	r.metrics.ObserveEviction("withdrawal", evictedWithdrawals)
	r.metrics.ObserveSweep(r.now().Sub(started))
	if evictedDeposits > 0 || evictedWithdrawals > 0 {
		r.logger.Info("evicted stale unverified transfers",
			slog.Int("deposits", evictedDeposits),
			slog.Int("withdrawals", evictedWithdrawals))
	}
}
