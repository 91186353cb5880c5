// Package refresh orchestrates one instrument refresh: fetch a quote,
// apply the fallback policy, persist, and trigger downstream recompute.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"portfoliotracker/internal/domain"
	"portfoliotracker/internal/ledger"
	"portfoliotracker/internal/quote"
)

// Outcome is the terminal state of one refresh:
// Idle -> Fetching -> {Applied | Skipped | Failed}.
type Outcome int

const (
	Idle Outcome = iota
	Fetching
	Applied
	Skipped
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Idle:
		return "idle"
	case Fetching:
		return "fetching"
	case Applied:
		return "applied"
	case Skipped:
		return "skipped"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Result reports one refresh with the instrument's identity attached; a
// failure is never dropped silently.
type Result struct {
	InstrumentID uuid.UUID
	Code         string
	Outcome      Outcome
	Err          error

	// RecomputeErrs collects per-holding aggregation failures from the
	// downstream recompute.
	RecomputeErrs []error
}

var hundred = decimal.NewFromInt(100)

// Refresher applies quotes to instruments. The keep-old-value-on-failure
// policy lives here, in one place, instead of being scattered across
// call sites: a failed fetch never touches the previously good price.
type Refresher struct {
	Source      quote.Source
	Instruments domain.InstrumentRepository
	Holdings    domain.HoldingRepository
	Aggregator  *ledger.Aggregator

	// Prices, when set, receives one history row per applied price.
	Prices domain.PriceRepository

	// PartialPerformance persists each horizon independently instead of
	// aborting on the first extraction failure. Strict is the default:
	// for financial figures, all-or-nothing is the safer reading.
	PartialPerformance bool

	Logger *slog.Logger
	Now    func() time.Time
}

func (r *Refresher) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

func (r *Refresher) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now().UTC()
}

// RefreshPrice refreshes one instrument's price. Inactive instruments and
// instruments without an upstream code are skipped. Holdings referencing
// the instrument are recomputed even when the fetch fails: a stale price
// still warrants a recomputed valuation rather than a stuck one.
func (r *Refresher) RefreshPrice(ctx context.Context, inst *domain.Instrument) Result {
	res := Result{InstrumentID: inst.ID, Code: inst.Code}
	if !inst.Active || inst.Code == "" {
		res.Outcome = Skipped
		return res
	}

	q, err := r.Source.Price(ctx, inst)
	switch {
	case err != nil:
		res.Outcome = Failed
		res.Err = err
		r.logger().Warn("price refresh failed", "instrument", inst.Code, "err", err)
	case !q.Price.IsPositive():
		res.Outcome = Failed
		res.Err = fmt.Errorf("refusing non-positive price %s for %s", q.Price, inst.Code)
	default:
		price := q.Price
		if inst.Currency == domain.CurrencyGBX {
			// Pence to pounds.
			price = price.Div(hundred)
		}
		ts := r.now()
		prevPrice, prevAt := inst.Price, inst.PriceUpdatedAt
		inst.Price = &price
		inst.PriceUpdatedAt = &ts
		if err := r.persistPrice(ctx, inst, price, ts); err != nil {
			// Keep the in-memory instrument consistent with the store so
			// the recompute below values holdings at the retained price.
			inst.Price, inst.PriceUpdatedAt = prevPrice, prevAt
			res.Outcome = Failed
			res.Err = err
		} else {
			res.Outcome = Applied
		}
	}

	res.RecomputeErrs = r.recomputeHoldings(ctx, inst)
	return res
}

// persistPrice writes the current price and appends the history row.
func (r *Refresher) persistPrice(ctx context.Context, inst *domain.Instrument, price decimal.Decimal, ts time.Time) error {
	if err := r.Instruments.SavePrice(ctx, inst); err != nil {
		return fmt.Errorf("save price for %s: %w", inst.Code, err)
	}
	if r.Prices == nil {
		return nil
	}
	p := &domain.Price{ID: uuid.New(), InstrumentID: inst.ID, Price: price, RecordedAt: ts}
	if err := r.Prices.Append(ctx, p); err != nil {
		return fmt.Errorf("record price for %s: %w", inst.Code, err)
	}
	return nil
}

// RefreshPerformance refreshes the performance horizons for instruments
// whose kind carries them. In strict mode any extraction failure discards
// the whole fetch; in partial mode every horizon that extracted cleanly
// is persisted and the failures are reported.
func (r *Refresher) RefreshPerformance(ctx context.Context, inst *domain.Instrument) Result {
	res := Result{InstrumentID: inst.ID, Code: inst.Code}
	if !inst.Active || inst.Code == "" || !inst.HasPerformance() {
		res.Outcome = Skipped
		return res
	}

	perf, err := r.Source.Performance(ctx, inst)
	if err != nil {
		if errors.Is(err, quote.ErrUnsupported) {
			res.Outcome = Skipped
			return res
		}
		res.Outcome = Failed
		res.Err = err
		r.logger().Warn("performance refresh failed", "instrument", inst.Code, "err", err)
		return res
	}

	if !r.PartialPerformance && len(perf.Failures) > 0 {
		res.Outcome = Failed
		res.Err = errors.Join(perf.Failures...)
		return res
	}
	if len(perf.Horizons) == 0 {
		if len(perf.Failures) > 0 {
			res.Outcome = Failed
			res.Err = errors.Join(perf.Failures...)
			return res
		}
		// Upstream legitimately has no figures yet.
		res.Outcome = Skipped
		return res
	}

	if inst.Performance == nil {
		inst.Performance = make(map[domain.Horizon]decimal.Decimal, len(perf.Horizons))
	}
	for h, v := range perf.Horizons {
		inst.Performance[h] = v
	}
	if err := r.Instruments.SavePerformance(ctx, inst); err != nil {
		res.Outcome = Failed
		res.Err = fmt.Errorf("save performance for %s: %w", inst.Code, err)
		return res
	}
	res.Outcome = Applied
	if len(perf.Failures) > 0 {
		res.Err = errors.Join(perf.Failures...)
		r.logger().Warn("performance partially refreshed",
			"instrument", inst.Code, "err", res.Err)
	}
	return res
}

func (r *Refresher) recomputeHoldings(ctx context.Context, inst *domain.Instrument) []error {
	holdings, err := r.Holdings.ListByInstrument(ctx, inst.ID)
	if err != nil {
		return []error{fmt.Errorf("list holdings for %s: %w", inst.Code, err)}
	}
	var errs []error
	for _, h := range holdings {
		if _, err := r.Aggregator.Recompute(ctx, inst, h.AccountID); err != nil {
			r.logger().Error("holding recompute failed",
				"instrument", inst.Code, "account", h.AccountID, "err", err)
			errs = append(errs, err)
		}
	}
	return errs
}
