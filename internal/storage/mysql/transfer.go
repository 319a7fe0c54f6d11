package mysql

import (
	"context"
	"errors"

	driver "github.com/go-sql-driver/mysql"

	"github.com/vendahub/ledger/internal/domain"
	"github.com/vendahub/ledger/internal/port"
)

type transferRepo struct{ s *Store }

func (r *transferRepo) Create(ctx context.Context, t *domain.TransferRecord) error {
	query := `INSERT INTO transfer_records (id, from_account_id, to_account_id,
		amount_cents, description, created_at) VALUES (?, ?, ?, ?, ?, ?)`
	_, err := r.s.q(ctx).ExecContext(ctx, query,
		t.ID, t.FromAccountID, t.ToAccountID, t.AmountCents, t.Description, t.CreatedAt)
	var mysqlErr *driver.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
		return port.ErrConflict
	}
	return err
}

func (r *transferRepo) ListByAccount(ctx context.Context, accountID string) ([]*domain.TransferRecord, error) {
	query := `SELECT id, from_account_id, to_account_id, amount_cents, description, created_at
		FROM transfer_records
		WHERE from_account_id = ? OR to_account_id = ?
		ORDER BY created_at`
	rows, err := r.s.q(ctx).QueryContext(ctx, query, accountID, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.TransferRecord
	for rows.Next() {
		var t domain.TransferRecord
		err := rows.Scan(&t.ID, &t.FromAccountID, &t.ToAccountID, &t.AmountCents, &t.Description, &t.CreatedAt)
		if err != nil {
			return nil, err
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}
