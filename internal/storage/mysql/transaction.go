package mysql

import (
	"context"

	"github.com/vendahub/ledger/internal/domain"
	"github.com/vendahub/ledger/internal/port"
)

type transactionRepo struct{ s *Store }

// Append writes one immutable ledger row. The per-account sequence is
// assigned here; callers hold the account lock, so the max(seq) read and
// the insert cannot race another writer of the same account.
func (r *transactionRepo) Append(ctx context.Context, t *domain.Transaction) error {
	q := r.s.q(ctx)

	var next int64
	err := q.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(seq), 0) + 1 FROM transactions WHERE account_id = ?",
		t.AccountID,
	).Scan(&next)
	if err != nil {
		return err
	}
	t.Seq = next

	query := `INSERT INTO transactions (id, account_id, seq, type, amount_cents,
		description, status, related_order_id, transfer_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = q.ExecContext(ctx, query,
		t.ID, t.AccountID, t.Seq, t.Type, t.AmountCents,
		t.Description, t.Status, t.RelatedOrderID, t.TransferID, t.CreatedAt,
	)
	return err
}

func (r *transactionRepo) ListByAccount(ctx context.Context, accountID string, f port.TransactionFilter) ([]*domain.Transaction, error) {
	query := `SELECT id, account_id, seq, type, amount_cents, description, status,
		related_order_id, transfer_id, created_at
		FROM transactions WHERE account_id = ?`
	args := []any{accountID}

	if f.BeforeSeq > 0 {
		query += " AND seq < ?"
		args = append(args, f.BeforeSeq)
	}
	if f.Type != "" {
		query += " AND type = ?"
		args = append(args, f.Type)
	}
	if f.RelatedOrderID != "" {
		query += " AND related_order_id = ?"
		args = append(args, f.RelatedOrderID)
	}
	query += " ORDER BY seq DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := r.s.q(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Transaction
	for rows.Next() {
		var t domain.Transaction
		err := rows.Scan(&t.ID, &t.AccountID, &t.Seq, &t.Type, &t.AmountCents,
			&t.Description, &t.Status, &t.RelatedOrderID, &t.TransferID, &t.CreatedAt)
		if err != nil {
			return nil, err
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}

func (r *transactionRepo) FoldBalance(ctx context.Context, accountID string) (int64, error) {
	var sum int64
	err := r.s.q(ctx).QueryRowContext(ctx,
		"SELECT COALESCE(SUM(amount_cents), 0) FROM transactions WHERE account_id = ?",
		accountID,
	).Scan(&sum)
	return sum, err
}
