// Package ledger derives holding positions from the append-only
// transaction log.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"portfoliotracker/internal/domain"
)

// AggregationError reports a ledger inconsistency such as a negative
// derived volume. It is surfaced, never clamped: it points at a
// data-entry defect upstream of this system.
type AggregationError struct {
	InstrumentID uuid.UUID
	AccountID    uuid.UUID
	Net          int64
}

func (e *AggregationError) Error() string {
	return fmt.Sprintf("negative net volume %d for instrument %s in account %s",
		e.Net, e.InstrumentID, e.AccountID)
}

// Aggregator recomputes holdings. It performs no network I/O and is pure
// over its inputs: an unchanged ledger and price yield an identical
// holding.
type Aggregator struct {
	Transactions domain.TransactionRepository
	Holdings     domain.HoldingRepository

	// Now is overridable for tests; defaults to time.Now.
	Now func() time.Time
}

func (a *Aggregator) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now().UTC()
}

// Recompute derives net volume and valuation for one (instrument,
// account) pair in a single pass over its transactions and persists the
// holding. An absent direction counts as zero. Valuation is exact
// decimal arithmetic; when the instrument has no price yet it is zero.
func (a *Aggregator) Recompute(ctx context.Context, inst *domain.Instrument, accountID uuid.UUID) (*domain.Holding, error) {
	txs, err := a.Transactions.ListFor(ctx, inst.ID, accountID)
	if err != nil {
		return nil, fmt.Errorf("list transactions for %s/%s: %w", inst.ID, accountID, err)
	}

	var bought, sold int64
	for _, t := range txs {
		switch t.Direction {
		case domain.Buy:
			bought += t.Volume
		case domain.Sell:
			sold += t.Volume
		}
	}
	net := bought - sold
	if net < 0 {
		return nil, &AggregationError{InstrumentID: inst.ID, AccountID: accountID, Net: net}
	}

	valuation := decimal.Zero
	if inst.Price != nil {
		valuation = decimal.NewFromInt(net).Mul(*inst.Price)
	}

	h := &domain.Holding{
		InstrumentID:       inst.ID,
		AccountID:          accountID,
		Volume:             net,
		Valuation:          valuation,
		ValuationUpdatedAt: a.now(),
	}
	// Book cost is user-entered, not derived from the ledger; carry the
	// existing value through the recompute.
	prev, err := a.Holdings.GetFor(ctx, inst.ID, accountID)
	if err != nil {
		return nil, fmt.Errorf("get holding for %s/%s: %w", inst.ID, accountID, err)
	}
	if prev != nil {
		h.ID = prev.ID
		h.BookCost = prev.BookCost
	}
	if err := a.Holdings.Save(ctx, h); err != nil {
		return nil, fmt.Errorf("save holding for %s/%s: %w", inst.ID, accountID, err)
	}
	return h, nil
}
