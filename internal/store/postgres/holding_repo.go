package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"portfoliotracker/internal/domain"
)

// holdingRepository implements domain.HoldingRepository.
type holdingRepository struct {
	db *DB
}

func NewHoldingRepository(db *DB) domain.HoldingRepository {
	return &holdingRepository{db: db}
}

const holdingColumns = `id, instrument_id, account_id, volume, book_cost, valuation, valuation_updated_at`

func (r *holdingRepository) ListAll(ctx context.Context) ([]*domain.Holding, error) {
	query := `SELECT ` + holdingColumns + ` FROM holdings ORDER BY instrument_id`
	return r.list(ctx, query)
}

func (r *holdingRepository) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*domain.Holding, error) {
	query := `SELECT ` + holdingColumns + ` FROM holdings WHERE account_id = $1 ORDER BY instrument_id`
	return r.list(ctx, query, accountID)
}

func (r *holdingRepository) ListByInstrument(ctx context.Context, instrumentID uuid.UUID) ([]*domain.Holding, error) {
	query := `SELECT ` + holdingColumns + ` FROM holdings WHERE instrument_id = $1 ORDER BY account_id`
	return r.list(ctx, query, instrumentID)
}

func (r *holdingRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Holding, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list holdings: %w", err)
	}
	defer rows.Close()

	var out []*domain.Holding
	for rows.Next() {
		var h domain.Holding
		if err := rows.Scan(&h.ID, &h.InstrumentID, &h.AccountID,
			&h.Volume, &h.BookCost, &h.Valuation, &h.ValuationUpdatedAt); err != nil {
			return nil, fmt.Errorf("scan holding: %w", err)
		}
		out = append(out, &h)
	}
	return out, rows.Err()
}

func (r *holdingRepository) GetFor(ctx context.Context, instrumentID, accountID uuid.UUID) (*domain.Holding, error) {
	query := `SELECT ` + holdingColumns + ` FROM holdings WHERE instrument_id = $1 AND account_id = $2`
	var h domain.Holding
	err := r.db.QueryRowContext(ctx, query, instrumentID, accountID).Scan(
		&h.ID, &h.InstrumentID, &h.AccountID,
		&h.Volume, &h.BookCost, &h.Valuation, &h.ValuationUpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get holding %s/%s: %w", instrumentID, accountID, err)
	}
	return &h, nil
}

// Save upserts the holding keyed by (instrument, account) and fills in
// the row's id.
func (r *holdingRepository) Save(ctx context.Context, h *domain.Holding) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	query := `
		INSERT INTO holdings (id, instrument_id, account_id, volume, book_cost, valuation, valuation_updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (instrument_id, account_id) DO UPDATE
		SET volume = EXCLUDED.volume,
		    book_cost = EXCLUDED.book_cost,
		    valuation = EXCLUDED.valuation,
		    valuation_updated_at = EXCLUDED.valuation_updated_at
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, query,
		h.ID, h.InstrumentID, h.AccountID, h.Volume, h.BookCost, h.Valuation, h.ValuationUpdatedAt,
	).Scan(&h.ID)
	if err != nil {
		return fmt.Errorf("save holding %s/%s: %w", h.InstrumentID, h.AccountID, err)
	}
	return nil
}
