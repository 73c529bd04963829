package observer

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// LatencyResult is the time until a matching response arrived.
type LatencyResult struct {
	URL          string
	ResponseTime time.Duration
	MaxTime      time.Duration
	WithinLimit  bool
}

// MeasureResponseLatency blocks until the next response matching m is
// recorded and reports how long that took against budget. Without a ctx
// deadline the observer wait timeout applies. Responses recorded before the
// call are not considered.
func (o *Observer) MeasureResponseLatency(ctx context.Context, m Matcher, budget time.Duration) (LatencyResult, error) {
	return o.MeasureResponseLatencyAfter(ctx, m, budget, nil)
}

// MeasureResponseLatencyAfter is MeasureResponseLatency with a trigger, such
// as a navigation or form submit, run once the clock has started. A trigger
// error aborts the measurement.
func (o *Observer) MeasureResponseLatencyAfter(ctx context.Context, m Matcher, budget time.Duration, trigger func(context.Context) error) (LatencyResult, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.opts.waitTimeout)
		defer cancel()
	}

	w := &latencyWaiter{match: m, ch: make(chan ResponseRecord, 1)}
	o.mu.Lock()
	if o.isDetached() {
		o.mu.Unlock()
		return LatencyResult{}, ErrDetached
	}
	start := o.opts.now()
	o.waiters = append(o.waiters, w)
	o.mu.Unlock()

	if trigger != nil {
		if err := trigger(ctx); err != nil {
			o.removeWaiter(w)
			return LatencyResult{}, fmt.Errorf("running latency trigger: %w", err)
		}
	}

	select {
	case rec := <-w.ch:
		elapsed := rec.ObservedAt.Sub(start)
		res := LatencyResult{
			URL:          rec.URL,
			ResponseTime: elapsed,
			MaxTime:      budget,
			WithinLimit:  elapsed <= budget,
		}
		if !res.WithinLimit {
			slog.Warn("response slower than budget",
				slog.String("url", rec.URL),
				slog.Duration("elapsed", elapsed),
				slog.Duration("budget", budget),
			)
		}
		return res, nil
	case <-ctx.Done():
		o.removeWaiter(w)
		return LatencyResult{}, fmt.Errorf("waiting for matching response: %w", ctx.Err())
	case <-o.detached:
		o.removeWaiter(w)
		return LatencyResult{}, ErrDetached
	}
}

func (o *Observer) removeWaiter(w *latencyWaiter) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i, cur := range o.waiters {
		if cur == w {
			o.waiters = append(o.waiters[:i], o.waiters[i+1:]...)
			return
		}
	}
}
