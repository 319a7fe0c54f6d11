// Package mysql implements the port repositories on MySQL with plain
// database/sql. WithAccountLock opens one transaction, takes FOR UPDATE
// row locks on the accounts in sorted id order, and carries the
// transaction through the context so every repository call inside the
// callback joins it.
package mysql

import (
	"context"
	"database/sql"

	"github.com/vendahub/ledger/internal/port"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Accounts() port.AccountRepository         { return &accountRepo{s} }
func (s *Store) Transactions() port.TransactionRepository { return &transactionRepo{s} }
func (s *Store) Withdrawals() port.WithdrawalRepository   { return &withdrawalRepo{s} }
func (s *Store) Transfers() port.TransferRepository       { return &transferRepo{s} }
func (s *Store) Orders() port.OrderSource                 { return &orderSource{s} }
func (s *Store) Costs() port.CostHistory                  { return &costHistory{s} }

type txKey struct{}

// querier is the subset of database/sql shared by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// q returns the transaction carried by the context when inside
// WithAccountLock, and the pool otherwise.
func (s *Store) q(ctx context.Context) querier {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return s.db
}

func withTx(ctx context.Context, tx *sql.Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

func inTx(ctx context.Context) bool {
	_, ok := ctx.Value(txKey{}).(*sql.Tx)
	return ok
}
