package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	driver "github.com/go-sql-driver/mysql"

	"github.com/vendahub/ledger/internal/domain"
	"github.com/vendahub/ledger/internal/port"
)

type accountRepo struct{ s *Store }

const accountColumns = `id, number, seller_id, holder_name, status, kyc_status,
	available_cents, blocked_cents, total_received_cents, total_withdrawn_cents,
	pix_key, pix_key_type, bank_name, bank_agency, bank_account, bank_account_type,
	min_withdrawal_cents, auto_withdrawal, version, created_at, updated_at`

func scanAccount(row interface{ Scan(...any) error }) (*domain.Account, error) {
	var a domain.Account
	err := row.Scan(
		&a.ID, &a.Number, &a.SellerID, &a.HolderName, &a.Status, &a.KYCStatus,
		&a.AvailableCents, &a.BlockedCents, &a.TotalReceivedCents, &a.TotalWithdrawnCents,
		&a.PIXKey, &a.PIXKeyType, &a.BankName, &a.BankAgency, &a.BankAccount, &a.BankAccountType,
		&a.MinWithdrawalCents, &a.AutoWithdrawal, &a.Version, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *accountRepo) Create(ctx context.Context, a *domain.Account) error {
	query := `INSERT INTO accounts (id, number, seller_id, holder_name, status, kyc_status,
		available_cents, blocked_cents, total_received_cents, total_withdrawn_cents,
		pix_key, pix_key_type, bank_name, bank_agency, bank_account, bank_account_type,
		min_withdrawal_cents, auto_withdrawal, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.s.q(ctx).ExecContext(ctx, query,
		a.ID, a.Number, a.SellerID, a.HolderName, a.Status, a.KYCStatus,
		a.AvailableCents, a.BlockedCents, a.TotalReceivedCents, a.TotalWithdrawnCents,
		a.PIXKey, a.PIXKeyType, a.BankName, a.BankAgency, a.BankAccount, a.BankAccountType,
		a.MinWithdrawalCents, a.AutoWithdrawal, a.Version, a.CreatedAt, a.UpdatedAt,
	)
	var mysqlErr *driver.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
		return port.ErrConflict
	}
	return err
}

func (r *accountRepo) getBy(ctx context.Context, column, value string) (*domain.Account, error) {
	// Inside WithAccountLock reads must see (and extend) the row locks.
	query := fmt.Sprintf("SELECT %s FROM accounts WHERE %s = ?", accountColumns, column)
	if inTx(ctx) {
		query += " FOR UPDATE"
	}
	a, err := scanAccount(r.s.q(ctx).QueryRowContext(ctx, query, value))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrAccountNotFound
	}
	return a, err
}

func (r *accountRepo) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	return r.getBy(ctx, "id", id)
}

func (r *accountRepo) GetBySellerID(ctx context.Context, sellerID string) (*domain.Account, error) {
	return r.getBy(ctx, "seller_id", sellerID)
}

func (r *accountRepo) GetByNumber(ctx context.Context, number string) (*domain.Account, error) {
	return r.getBy(ctx, "number", number)
}

func (r *accountRepo) Update(ctx context.Context, a *domain.Account) error {
	query := `UPDATE accounts SET status = ?, kyc_status = ?,
		available_cents = ?, blocked_cents = ?, total_received_cents = ?, total_withdrawn_cents = ?,
		pix_key = ?, pix_key_type = ?, bank_name = ?, bank_agency = ?, bank_account = ?, bank_account_type = ?,
		min_withdrawal_cents = ?, auto_withdrawal = ?, version = version + 1, updated_at = NOW()
		WHERE id = ? AND version = ?`
	res, err := r.s.q(ctx).ExecContext(ctx, query,
		a.Status, a.KYCStatus,
		a.AvailableCents, a.BlockedCents, a.TotalReceivedCents, a.TotalWithdrawnCents,
		a.PIXKey, a.PIXKeyType, a.BankName, a.BankAgency, a.BankAccount, a.BankAccountType,
		a.MinWithdrawalCents, a.AutoWithdrawal,
		a.ID, a.Version,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Either the row is gone or somebody raced the version.
		if _, gerr := r.GetByID(ctx, a.ID); gerr != nil {
			return gerr
		}
		return port.ErrConflict
	}
	a.Version++
	return nil
}

func (r *accountRepo) List(ctx context.Context) ([]*domain.Account, error) {
	query := fmt.Sprintf("SELECT %s FROM accounts ORDER BY id", accountColumns)
	rows, err := r.s.q(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// WithAccountLock runs fn inside one transaction holding FOR UPDATE locks
// on every given account. Ids are locked in sorted order so opposing
// transfers cannot deadlock. Re-entrant calls join the outer transaction.
func (r *accountRepo) WithAccountLock(ctx context.Context, accountIDs []string, fn func(ctx context.Context) error) error {
	if inTx(ctx) {
		return fn(ctx)
	}

	ids := make([]string, 0, len(accountIDs))
	seen := make(map[string]bool, len(accountIDs))
	for _, id := range accountIDs {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	tx, err := r.s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, id := range ids {
		var locked string
		err := tx.QueryRowContext(ctx, "SELECT id FROM accounts WHERE id = ? FOR UPDATE", id).Scan(&locked)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("locking account %s: %w", id, err)
		}
	}

	if err := fn(withTx(ctx, tx)); err != nil {
		return err
	}
	return tx.Commit()
}
