package mysql

import (
	"context"
	"database/sql"
	"errors"

	driver "github.com/go-sql-driver/mysql"

	"github.com/vendahub/ledger/internal/domain"
	"github.com/vendahub/ledger/internal/port"
)

type withdrawalRepo struct{ s *Store }

const withdrawalColumns = `id, account_id, amount_cents, status, method,
	pix_key, pix_key_type, bank_name, bank_agency, bank_account, bank_account_type,
	admin_note, rejection_reason, failure_reason, external_transaction_id,
	requested_at, processed_at, updated_at`

func scanWithdrawal(row interface{ Scan(...any) error }) (*domain.WithdrawalRequest, error) {
	var w domain.WithdrawalRequest
	var processedAt sql.NullTime
	err := row.Scan(
		&w.ID, &w.AccountID, &w.AmountCents, &w.Status, &w.Method,
		&w.Destination.PIXKey, &w.Destination.PIXKeyType,
		&w.Destination.BankName, &w.Destination.BankAgency,
		&w.Destination.BankAccount, &w.Destination.BankAccountType,
		&w.AdminNote, &w.RejectionReason, &w.FailureReason, &w.ExternalTransactionID,
		&w.RequestedAt, &processedAt, &w.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	w.Destination.Method = w.Method
	if processedAt.Valid {
		w.ProcessedAt = &processedAt.Time
	}
	return &w, nil
}

func (r *withdrawalRepo) Create(ctx context.Context, w *domain.WithdrawalRequest) error {
	query := `INSERT INTO withdrawal_requests (id, account_id, amount_cents, status, method,
		pix_key, pix_key_type, bank_name, bank_agency, bank_account, bank_account_type,
		admin_note, rejection_reason, failure_reason, external_transaction_id,
		requested_at, processed_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.s.q(ctx).ExecContext(ctx, query,
		w.ID, w.AccountID, w.AmountCents, w.Status, w.Method,
		w.Destination.PIXKey, w.Destination.PIXKeyType,
		w.Destination.BankName, w.Destination.BankAgency,
		w.Destination.BankAccount, w.Destination.BankAccountType,
		w.AdminNote, w.RejectionReason, w.FailureReason, w.ExternalTransactionID,
		w.RequestedAt, w.ProcessedAt, w.UpdatedAt,
	)
	var mysqlErr *driver.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
		return port.ErrConflict
	}
	return err
}

func (r *withdrawalRepo) GetByID(ctx context.Context, id string) (*domain.WithdrawalRequest, error) {
	query := "SELECT " + withdrawalColumns + " FROM withdrawal_requests WHERE id = ?"
	if inTx(ctx) {
		query += " FOR UPDATE"
	}
	w, err := scanWithdrawal(r.s.q(ctx).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrWithdrawalNotFound
	}
	return w, err
}

func (r *withdrawalRepo) Update(ctx context.Context, w *domain.WithdrawalRequest) error {
	query := `UPDATE withdrawal_requests SET status = ?,
		admin_note = ?, rejection_reason = ?, failure_reason = ?, external_transaction_id = ?,
		processed_at = ?, updated_at = NOW()
		WHERE id = ?`
	res, err := r.s.q(ctx).ExecContext(ctx, query,
		w.Status, w.AdminNote, w.RejectionReason, w.FailureReason, w.ExternalTransactionID,
		w.ProcessedAt, w.ID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, gerr := r.GetByID(ctx, w.ID); gerr != nil {
			return gerr
		}
	}
	return nil
}

func (r *withdrawalRepo) GetActiveByAccount(ctx context.Context, accountID string) (*domain.WithdrawalRequest, error) {
	query := "SELECT " + withdrawalColumns + ` FROM withdrawal_requests
		WHERE account_id = ? AND status IN ('pending', 'approved', 'processing')
		ORDER BY requested_at LIMIT 1`
	if inTx(ctx) {
		query += " FOR UPDATE"
	}
	w, err := scanWithdrawal(r.s.q(ctx).QueryRowContext(ctx, query, accountID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return w, err
}

func (r *withdrawalRepo) List(ctx context.Context, status domain.WithdrawalStatus, accountID string) ([]*domain.WithdrawalRequest, error) {
	query := "SELECT " + withdrawalColumns + " FROM withdrawal_requests WHERE 1 = 1"
	var args []any
	if status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}
	if accountID != "" {
		query += " AND account_id = ?"
		args = append(args, accountID)
	}
	query += " ORDER BY requested_at"

	rows, err := r.s.q(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.WithdrawalRequest
	for rows.Next() {
		w, err := scanWithdrawal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}
