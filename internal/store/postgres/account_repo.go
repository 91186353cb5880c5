package postgres

import (
	"context"
	"fmt"

	"portfoliotracker/internal/domain"
)

// accountRepository implements domain.AccountRepository.
type accountRepository struct {
	db *DB
}

func NewAccountRepository(db *DB) domain.AccountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) List(ctx context.Context) ([]*domain.Account, error) {
	query := `SELECT id, name, kind, value FROM accounts ORDER BY name`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var out []*domain.Account
	for rows.Next() {
		var a domain.Account
		if err := rows.Scan(&a.ID, &a.Name, &a.Kind, &a.Value); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

func (r *accountRepository) SaveValue(ctx context.Context, a *domain.Account) error {
	query := `UPDATE accounts SET value = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, a.ID, a.Value); err != nil {
		return fmt.Errorf("save value for account %s: %w", a.ID, err)
	}
	return nil
}
