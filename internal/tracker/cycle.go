package tracker

import (
	"context"
	"time"

	"pricewatch/internal/coin"
	"pricewatch/internal/metrics"
	"pricewatch/internal/quote"

	"go.uber.org/zap"
)

// CycleReport summarises one fetch cycle.
type CycleReport struct {
	Requested    int
	Updated      int
	Stale        int
	TotalFailure bool
	Duration     time.Duration
}

// RunCycle prices every coin in the list, waiting for any cycle already in
// flight. It returns quote.ErrTotalFailure when nothing could be priced; the
// failure has already been applied to the list by then.
func (t *Tracker) RunCycle(ctx context.Context) (CycleReport, error) {
	t.cycleMu.Lock()
	defer t.cycleMu.Unlock()
	return t.runCycle(ctx)
}

// Refresh is the manual "refresh now" entry point.
func (t *Tracker) Refresh(ctx context.Context) error {
	report, err := t.RunCycle(ctx)
	if err != nil {
		return err
	}
	t.log.Info("manual refresh finished",
		zap.Int("updated", report.Updated), zap.Int("stale", report.Stale), zap.Duration("took", report.Duration))
	return nil
}

// TryRunCycle runs a cycle unless one is in flight, in which case it returns
// false without waiting.
func (t *Tracker) TryRunCycle(ctx context.Context) (CycleReport, bool, error) {
	if !t.cycleMu.TryLock() {
		metrics.RecordCycle(metrics.CycleSkipped, t.now())
		t.log.Debug("cycle already in flight, skipping tick")
		return CycleReport{}, false, nil
	}
	defer t.cycleMu.Unlock()

	report, err := t.runCycle(ctx)
	return report, true, err
}

// runCycle must be called with cycleMu held.
func (t *Tracker) runCycle(ctx context.Context) (CycleReport, error) {
	start := t.now()

	t.mu.RLock()
	ids := coin.IDs(t.coins)
	t.mu.RUnlock()

	report := CycleReport{Requested: len(ids)}
	if len(ids) == 0 {
		return report, nil
	}

	result, err := t.client.GetPrices(ctx, ids)
	at := t.now()

	requested := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		requested[id] = struct{}{}
	}

	t.mu.Lock()
	for i := range t.coins {
		c := &t.coins[i]
		if _, ok := requested[c.ID]; !ok {
			// added while the request was in flight
			continue
		}
		switch price, ok := result[c.ID]; {
		case err != nil:
			c.MarkFailed(coin.StatusError)
		case ok:
			c.SetPrice(price, at)
			report.Updated++
		default:
			c.MarkFailed(coin.StatusStale)
			report.Stale++
		}
	}
	t.mu.Unlock()

	t.persist(ctx)
	t.publish(EventPricesUpdated)

	report.Duration = t.now().Sub(start)
	if err != nil {
		report.TotalFailure = true
		metrics.RecordCycle(metrics.CycleFailure, start)
		t.log.Warn("fetch cycle failed for every coin", zap.Int("coins", len(ids)), zap.Error(err))
		return report, quote.ErrTotalFailure
	}

	outcome := metrics.CycleSuccess
	if report.Stale > 0 {
		outcome = metrics.CyclePartial
	}
	metrics.RecordCycle(outcome, start)
	t.log.Info("fetch cycle finished",
		zap.Int("updated", report.Updated), zap.Int("stale", report.Stale), zap.Duration("took", report.Duration))
	return report, nil
}
