package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"portfoliotracker/internal/domain"
)

// priceRepository implements domain.PriceRepository. The history is
// append-only; rows are never updated or deleted.
type priceRepository struct {
	db *DB
}

func NewPriceRepository(db *DB) domain.PriceRepository {
	return &priceRepository{db: db}
}

func (r *priceRepository) Append(ctx context.Context, p *domain.Price) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	query := `
		INSERT INTO prices (id, instrument_id, price, recorded_at)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := r.db.ExecContext(ctx, query, p.ID, p.InstrumentID, p.Price, p.RecordedAt); err != nil {
		return fmt.Errorf("append price for instrument %s: %w", p.InstrumentID, err)
	}
	return nil
}
