package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"portfoliotracker/internal/domain"
)

// instrumentRepository implements domain.InstrumentRepository.
type instrumentRepository struct {
	db *DB
}

func NewInstrumentRepository(db *DB) domain.InstrumentRepository {
	return &instrumentRepository{db: db}
}

const instrumentColumns = `
	id, name, nickname, code, kind, currency, active,
	price, price_updated_at,
	perf_5y, perf_3y, perf_1y, perf_6m, perf_3m, perf_1m
`

func (r *instrumentRepository) ListActive(ctx context.Context) ([]*domain.Instrument, error) {
	query := `SELECT ` + instrumentColumns + ` FROM instruments WHERE active ORDER BY name`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list active instruments: %w", err)
	}
	defer rows.Close()

	var out []*domain.Instrument
	for rows.Next() {
		inst, err := scanInstrument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inst)
	}
	return out, rows.Err()
}

func (r *instrumentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Instrument, error) {
	query := `SELECT ` + instrumentColumns + ` FROM instruments WHERE id = $1`
	inst, err := scanInstrument(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("get instrument %s: %w", id, err)
	}
	return inst, nil
}

func (r *instrumentRepository) SavePrice(ctx context.Context, inst *domain.Instrument) error {
	query := `UPDATE instruments SET price = $2, price_updated_at = $3 WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, inst.ID, nullDecimal(inst.Price), inst.PriceUpdatedAt)
	if err != nil {
		return fmt.Errorf("save price for instrument %s: %w", inst.ID, err)
	}
	return nil
}

func (r *instrumentRepository) SavePerformance(ctx context.Context, inst *domain.Instrument) error {
	query := `
		UPDATE instruments
		SET perf_5y = $2, perf_3y = $3, perf_1y = $4,
		    perf_6m = $5, perf_3m = $6, perf_1m = $7
		WHERE id = $1
	`
	args := []any{inst.ID}
	for _, h := range domain.Horizons() {
		if v, ok := inst.Performance[h]; ok {
			args = append(args, decimal.NullDecimal{Decimal: v, Valid: true})
		} else {
			args = append(args, decimal.NullDecimal{})
		}
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save performance for instrument %s: %w", inst.ID, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInstrument(row rowScanner) (*domain.Instrument, error) {
	var (
		inst      domain.Instrument
		price     decimal.NullDecimal
		updatedAt sql.NullTime
		perf      [6]decimal.NullDecimal
	)
	err := row.Scan(
		&inst.ID, &inst.Name, &inst.Nickname, &inst.Code,
		&inst.Kind, &inst.Currency, &inst.Active,
		&price, &updatedAt,
		&perf[0], &perf[1], &perf[2], &perf[3], &perf[4], &perf[5],
	)
	if err != nil {
		return nil, fmt.Errorf("scan instrument: %w", err)
	}
	if price.Valid {
		inst.Price = &price.Decimal
	}
	if updatedAt.Valid {
		inst.PriceUpdatedAt = &updatedAt.Time
	}
	for i, h := range domain.Horizons() {
		if perf[i].Valid {
			if inst.Performance == nil {
				inst.Performance = make(map[domain.Horizon]decimal.Decimal, 6)
			}
			inst.Performance[h] = perf[i].Decimal
		}
	}
	return &inst, nil
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}
