// Package ledger owns the append-only transaction log and the cached
// balance projection on each account. Every balance mutation in the system
// goes through Record; nothing else writes transaction rows.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vendahub/ledger/internal/domain"
	"github.com/vendahub/ledger/internal/port"
)

// Store appends ledger entries and maintains the available/blocked
// projection. The projection must always match the fold of the log plus
// active withdrawal reservations; Reconcile checks that.
type Store struct {
	accounts port.AccountRepository
	txs      port.TransactionRepository
	log      zerolog.Logger
}

func New(accounts port.AccountRepository, txs port.TransactionRepository, log zerolog.Logger) *Store {
	return &Store{
		accounts: accounts,
		txs:      txs,
		log:      log.With().Str("component", "ledger").Logger(),
	}
}

// AppendInput describes one ledger entry. AmountCents is signed: credits
// positive, debits negative.
type AppendInput struct {
	AccountID      string
	Type           domain.TransactionType
	AmountCents    int64
	Description    string
	RelatedOrderID string
	TransferID     string
}

// Record appends one entry and updates the account projection.
// It MUST be called while holding the account lock (WithAccountLock);
// callers that are not already inside a locked section use Append instead.
func (s *Store) Record(ctx context.Context, in AppendInput) (*domain.Transaction, error) {
	if in.AmountCents == 0 {
		return nil, domain.ErrInvalidAmount
	}

	acc, err := s.accounts.GetByID(ctx, in.AccountID)
	if err != nil {
		return nil, err
	}

	switch in.Type {
	case domain.TxWithdrawalDebit:
		// Withdrawal debits release previously reserved funds, so they
		// come out of the blocked bucket, not the available one.
		if in.AmountCents > 0 || acc.BlockedCents+in.AmountCents < 0 {
			return nil, &domain.ConsistencyError{
				AccountID:      acc.ID,
				AvailableCents: acc.AvailableCents,
				BlockedCents:   acc.BlockedCents,
			}
		}
		acc.BlockedCents += in.AmountCents
		acc.TotalWithdrawnCents += -in.AmountCents
	default:
		if acc.AvailableCents+in.AmountCents < 0 {
			return nil, domain.ErrInsufficientBalance
		}
		acc.AvailableCents += in.AmountCents
		if in.AmountCents > 0 {
			acc.TotalReceivedCents += in.AmountCents
		}
	}

	tx := &domain.Transaction{
		ID:             uuid.NewString(),
		AccountID:      in.AccountID,
		Type:           in.Type,
		AmountCents:    in.AmountCents,
		Description:    in.Description,
		Status:         "completed",
		RelatedOrderID: in.RelatedOrderID,
		TransferID:     in.TransferID,
		CreatedAt:      time.Now(),
	}
	if err := s.txs.Append(ctx, tx); err != nil {
		return nil, fmt.Errorf("append transaction: %w", err)
	}
	if err := s.accounts.Update(ctx, acc); err != nil {
		return nil, fmt.Errorf("update balance projection: %w", err)
	}

	s.log.Debug().
		Str("account", in.AccountID).
		Str("type", string(in.Type)).
		Int64("amountCents", in.AmountCents).
		Msg("ledger entry recorded")
	return tx, nil
}

// Append acquires the account lock and records one entry. This is the
// entry point for standalone credits and adjustments.
func (s *Store) Append(ctx context.Context, in AppendInput) (*domain.Transaction, error) {
	var tx *domain.Transaction
	err := s.accounts.WithAccountLock(ctx, []string{in.AccountID}, func(ctx context.Context) error {
		var err error
		tx, err = s.Record(ctx, in)
		return err
	})
	return tx, err
}

// Reserve moves funds from available to blocked for an in-flight
// withdrawal. No ledger row is written; the reservation lives on the
// projection until the request resolves. Must be called under the account
// lock.
func (s *Store) Reserve(ctx context.Context, accountID string, amountCents int64) error {
	if amountCents <= 0 {
		return domain.ErrInvalidAmount
	}
	acc, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return err
	}
	if acc.AvailableCents < amountCents {
		return domain.ErrInsufficientBalance
	}
	acc.AvailableCents -= amountCents
	acc.BlockedCents += amountCents
	return s.accounts.Update(ctx, acc)
}

// Release returns a reservation to the available bucket, for rejected or
// cancelled withdrawals. Must be called under the account lock.
func (s *Store) Release(ctx context.Context, accountID string, amountCents int64) error {
	if amountCents <= 0 {
		return domain.ErrInvalidAmount
	}
	acc, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return err
	}
	if acc.BlockedCents < amountCents {
		return &domain.ConsistencyError{
			AccountID:      acc.ID,
			AvailableCents: acc.AvailableCents,
			BlockedCents:   acc.BlockedCents,
		}
	}
	acc.BlockedCents -= amountCents
	acc.AvailableCents += amountCents
	return s.accounts.Update(ctx, acc)
}

// Balance returns the cached projection for an account.
func (s *Store) Balance(ctx context.Context, accountID string) (available, blocked int64, err error) {
	acc, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return 0, 0, err
	}
	return acc.AvailableCents, acc.BlockedCents, nil
}

// History lists ledger entries for an account, newest first. The filter's
// BeforeSeq cursor makes the listing restartable from any point.
func (s *Store) History(ctx context.Context, accountID string, f port.TransactionFilter) ([]*domain.Transaction, error) {
	if _, err := s.accounts.GetByID(ctx, accountID); err != nil {
		return nil, err
	}
	if f.Limit <= 0 {
		f.Limit = 50
	}
	return s.txs.ListByAccount(ctx, accountID, f)
}

// Reconcile folds the account's ledger and compares it against the
// projection. available + blocked must equal the fold: reservations move
// money between the two buckets without ledger rows, and every resolved
// withdrawal has its debit row. A mismatch is a ConsistencyError: fatal
// for the account, never silently corrected.
func (s *Store) Reconcile(ctx context.Context, accountID string) error {
	return s.accounts.WithAccountLock(ctx, []string{accountID}, func(ctx context.Context) error {
		acc, err := s.accounts.GetByID(ctx, accountID)
		if err != nil {
			return err
		}
		fold, err := s.txs.FoldBalance(ctx, accountID)
		if err != nil {
			return err
		}
		if acc.AvailableCents < 0 || acc.BlockedCents < 0 || acc.AvailableCents+acc.BlockedCents != fold {
			return &domain.ConsistencyError{
				AccountID:      accountID,
				AvailableCents: acc.AvailableCents,
				BlockedCents:   acc.BlockedCents,
				FoldCents:      fold,
			}
		}
		return nil
	})
}
