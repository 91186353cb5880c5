package domain

import (
	"context"

	"github.com/google/uuid"
)

// InstrumentRepository is the persistence collaborator for instruments.
// The core only ever writes back price and performance fields.
type InstrumentRepository interface {
	// ListActive returns all instruments flagged active.
	ListActive(ctx context.Context) ([]*Instrument, error)

	// GetByID retrieves a single instrument.
	GetByID(ctx context.Context, id uuid.UUID) (*Instrument, error)

	// SavePrice persists Price and PriceUpdatedAt.
	SavePrice(ctx context.Context, inst *Instrument) error

	// SavePerformance persists the performance figures.
	SavePerformance(ctx context.Context, inst *Instrument) error
}

// TransactionRepository reads the append-only ledger. There is
// deliberately no write or delete operation here.
type TransactionRepository interface {
	// ListFor returns every transaction for one (instrument, account) pair.
	ListFor(ctx context.Context, instrumentID, accountID uuid.UUID) ([]*Transaction, error)
}

// PriceRepository appends to the price history. History rows are never
// updated or deleted.
type PriceRepository interface {
	Append(ctx context.Context, p *Price) error
}

// HoldingRepository persists the derived positions.
type HoldingRepository interface {
	ListAll(ctx context.Context) ([]*Holding, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*Holding, error)
	ListByInstrument(ctx context.Context, instrumentID uuid.UUID) ([]*Holding, error)

	// GetFor returns the holding of one (instrument, account) pair, or
	// nil when none exists yet.
	GetFor(ctx context.Context, instrumentID, accountID uuid.UUID) (*Holding, error)

	// Save upserts a holding keyed by (instrument, account).
	Save(ctx context.Context, h *Holding) error
}

// AccountRepository persists accounts and their derived values.
type AccountRepository interface {
	List(ctx context.Context) ([]*Account, error)
	SaveValue(ctx context.Context, a *Account) error
}
