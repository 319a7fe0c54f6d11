package port

import (
	"context"
	"errors"

	"github.com/vendahub/ledger/internal/domain"
)

// ErrConflict is returned by Create operations that hit a uniqueness
// constraint (seller already has an account, duplicate transfer id).
var ErrConflict = errors.New("conflict")

// TransactionFilter narrows a ledger history listing. BeforeSeq is a cursor:
// only entries with a lower per-account sequence are returned, which makes
// reverse-chronological pagination restartable.
type TransactionFilter struct {
	Type           domain.TransactionType
	RelatedOrderID string
	BeforeSeq      int64
	Limit          int
}

// AccountRepository persists accounts and provides per-account
// serialization. WithAccountLock runs fn while holding the locks for every
// given account id; implementations must acquire the locks in a fixed global
// order (sorted id) so that opposing transfers cannot deadlock. The SQL
// implementation additionally runs fn inside one database transaction
// carried through the context.
type AccountRepository interface {
	Create(ctx context.Context, a *domain.Account) error
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	GetBySellerID(ctx context.Context, sellerID string) (*domain.Account, error)
	GetByNumber(ctx context.Context, number string) (*domain.Account, error)
	Update(ctx context.Context, a *domain.Account) error
	List(ctx context.Context) ([]*domain.Account, error)
	WithAccountLock(ctx context.Context, accountIDs []string, fn func(ctx context.Context) error) error
}

// TransactionRepository is the append-only ledger. Append assigns the
// per-account sequence number; rows are never updated or deleted.
type TransactionRepository interface {
	Append(ctx context.Context, t *domain.Transaction) error
	ListByAccount(ctx context.Context, accountID string, f TransactionFilter) ([]*domain.Transaction, error)
	FoldBalance(ctx context.Context, accountID string) (int64, error)
}

// WithdrawalRepository persists withdrawal requests. GetActiveByAccount
// returns (nil, nil) when the account has no non-terminal request.
type WithdrawalRepository interface {
	Create(ctx context.Context, w *domain.WithdrawalRequest) error
	GetByID(ctx context.Context, id string) (*domain.WithdrawalRequest, error)
	Update(ctx context.Context, w *domain.WithdrawalRequest) error
	GetActiveByAccount(ctx context.Context, accountID string) (*domain.WithdrawalRequest, error)
	List(ctx context.Context, status domain.WithdrawalStatus, accountID string) ([]*domain.WithdrawalRequest, error)
}

// TransferRepository persists transfer audit rows.
type TransferRepository interface {
	Create(ctx context.Context, t *domain.TransferRecord) error
	ListByAccount(ctx context.Context, accountID string) ([]*domain.TransferRecord, error)
}
