// Package batch drives refresh cycles over all instruments, holdings and
// accounts, collecting a per-item success/failure summary. Nothing a
// single item does can abort the run; the summary is the one user-visible
// error report.
package batch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"portfoliotracker/internal/domain"
	"portfoliotracker/internal/ledger"
	"portfoliotracker/internal/refresh"
)

// DefaultConcurrency bounds simultaneous upstream fetches. Small and
// fixed on purpose: an unbounded fan-out gets the scraper blocked.
const DefaultConcurrency = 4

// Failure is one failed item with its identity and reason.
type Failure struct {
	ID     uuid.UUID
	Name   string
	Reason string
}

// Summary is the outcome of one batch run. Warnings are items that
// updated but not completely, such as a partial performance refresh.
type Summary struct {
	Succeeded []uuid.UUID
	Failed    []Failure
	Warnings  []Failure
}

func (s *Summary) add(id uuid.UUID, name string, err error) {
	if err != nil {
		s.Failed = append(s.Failed, Failure{ID: id, Name: name, Reason: err.Error()})
		return
	}
	s.Succeeded = append(s.Succeeded, id)
}

func (s *Summary) warn(id uuid.UUID, name string, err error) {
	s.Warnings = append(s.Warnings, Failure{ID: id, Name: name, Reason: err.Error()})
}

// String renders the run report in the banner style of the original
// management commands.
func (s *Summary) String() string {
	total := len(s.Succeeded) + len(s.Failed)
	var b strings.Builder
	b.WriteString(strings.Repeat("=", 70) + "\n")
	fmt.Fprintf(&b, "updated: %d/%d\n", len(s.Succeeded), total)
	if len(s.Failed) > 0 {
		fmt.Fprintf(&b, "failed:  %d/%d\n", len(s.Failed), total)
		for _, f := range s.Failed {
			fmt.Fprintf(&b, "  - %s: %s\n", f.Name, f.Reason)
		}
	}
	if len(s.Warnings) > 0 {
		fmt.Fprintf(&b, "partial: %d/%d\n", len(s.Warnings), total)
		for _, f := range s.Warnings {
			fmt.Fprintf(&b, "  - %s: %s\n", f.Name, f.Reason)
		}
	}
	b.WriteString(strings.Repeat("=", 70))
	return b.String()
}

// Runner iterates the active instruments and the holdings. Each
// instrument refresh is an independent unit of work.
type Runner struct {
	Refresher   *refresh.Refresher
	Aggregator  *ledger.Aggregator
	Instruments domain.InstrumentRepository
	Holdings    domain.HoldingRepository
	Accounts    domain.AccountRepository

	// Concurrency caps in-flight refreshes; DefaultConcurrency when <= 0.
	Concurrency int64
	Logger      *slog.Logger

	// flight serializes overlapping refreshes of the same instrument;
	// refreshes of different instruments share no mutable state.
	flight singleflight.Group
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

// RefreshAllInstruments refreshes price (and, where the kind carries
// them, performance figures) for every active instrument through a
// bounded worker pool. Canceling ctx stops admission and propagates into
// in-flight fetches.
func (r *Runner) RefreshAllInstruments(ctx context.Context) (*Summary, error) {
	insts, err := r.Instruments.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active instruments: %w", err)
	}

	conc := r.Concurrency
	if conc <= 0 {
		conc = DefaultConcurrency
	}
	sem := semaphore.NewWeighted(conc)

	summary := &Summary{}
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	total := len(insts)
	for i, inst := range insts {
		if err := sem.Acquire(ctx, 1); err != nil {
			// Run canceled; report the items that never started.
			mu.Lock()
			for _, rest := range insts[i:] {
				summary.add(rest.ID, rest.Nickname, err)
			}
			mu.Unlock()
			break
		}
		wg.Add(1)
		go func(i int, inst *domain.Instrument) {
			defer wg.Done()
			defer sem.Release(1)
			r.logger().Info("refreshing instrument",
				"n", i+1, "of", total, "instrument", inst.Nickname)
			v, err, _ := r.flight.Do(inst.ID.String(), func() (any, error) {
				return r.refreshOne(ctx, inst)
			})
			mu.Lock()
			summary.add(inst.ID, inst.Nickname, err)
			if warn, ok := v.(error); ok && warn != nil {
				summary.warn(inst.ID, inst.Nickname, warn)
			}
			mu.Unlock()
		}(i, inst)
	}
	wg.Wait()
	return summary, nil
}

// refreshOne runs the price refresh and, for funds and ETFs, the
// performance refresh. A skipped refresh is not a failure. The returned
// warning carries failures of an applied-but-partial refresh so they
// still reach the summary.
func (r *Runner) refreshOne(ctx context.Context, inst *domain.Instrument) (warn error, err error) {
	res := r.Refresher.RefreshPrice(ctx, inst)
	if res.Outcome == refresh.Failed {
		return nil, res.Err
	}
	if len(res.RecomputeErrs) > 0 {
		return nil, res.RecomputeErrs[0]
	}
	if inst.HasPerformance() {
		pres := r.Refresher.RefreshPerformance(ctx, inst)
		if pres.Outcome == refresh.Failed {
			return nil, pres.Err
		}
		if pres.Err != nil {
			return pres.Err, nil
		}
	}
	return nil, nil
}

// RefreshAllHoldings recomputes every holding, or only the ones of one
// account when accountFilter is set. Aggregation never touches the
// network, so this runs sequentially.
func (r *Runner) RefreshAllHoldings(ctx context.Context, accountFilter *uuid.UUID) (*Summary, error) {
	var (
		holdings []*domain.Holding
		err      error
	)
	if accountFilter != nil {
		holdings, err = r.Holdings.ListByAccount(ctx, *accountFilter)
	} else {
		holdings, err = r.Holdings.ListAll(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("list holdings: %w", err)
	}

	summary := &Summary{}
	for _, h := range holdings {
		if ctx.Err() != nil {
			summary.add(h.ID, h.InstrumentID.String(), ctx.Err())
			continue
		}
		inst, err := r.Instruments.GetByID(ctx, h.InstrumentID)
		if err != nil {
			summary.add(h.ID, h.InstrumentID.String(), err)
			continue
		}
		_, err = r.Aggregator.Recompute(ctx, inst, h.AccountID)
		summary.add(h.ID, inst.Nickname, err)
	}
	return summary, nil
}

// RefreshAccountValues sets every account's value to the sum of its
// holding valuations.
func (r *Runner) RefreshAccountValues(ctx context.Context) (*Summary, error) {
	accounts, err := r.Accounts.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}

	summary := &Summary{}
	for _, a := range accounts {
		holdings, err := r.Holdings.ListByAccount(ctx, a.ID)
		if err != nil {
			summary.add(a.ID, a.Name, err)
			continue
		}
		value := decimal.Zero
		for _, h := range holdings {
			value = value.Add(h.Valuation)
		}
		a.Value = value
		summary.add(a.ID, a.Name, r.Accounts.SaveValue(ctx, a))
	}
	return summary, nil
}
