package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"portfoliotracker/internal/domain"
)

// transactionRepository implements domain.TransactionRepository. The
// ledger is append-only; this repository only reads it.
type transactionRepository struct {
	db *DB
}

func NewTransactionRepository(db *DB) domain.TransactionRepository {
	return &transactionRepository{db: db}
}

func (r *transactionRepository) ListFor(ctx context.Context, instrumentID, accountID uuid.UUID) ([]*domain.Transaction, error) {
	query := `
		SELECT id, instrument_id, account_id, direction, volume, date, price, cost
		FROM transactions
		WHERE instrument_id = $1 AND account_id = $2
		ORDER BY date
	`
	rows, err := r.db.QueryContext(ctx, query, instrumentID, accountID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []*domain.Transaction
	for rows.Next() {
		var t domain.Transaction
		if err := rows.Scan(&t.ID, &t.InstrumentID, &t.AccountID,
			&t.Direction, &t.Volume, &t.Date, &t.Price, &t.Cost); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}
