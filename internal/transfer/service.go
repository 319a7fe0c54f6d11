// Package transfer moves funds between two wallet accounts as one atomic
// operation: either both the debit and the credit are recorded, or neither.
package transfer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vendahub/ledger/internal/account"
	"github.com/vendahub/ledger/internal/domain"
	"github.com/vendahub/ledger/internal/ledger"
	"github.com/vendahub/ledger/internal/port"
)

type Service struct {
	registry  *account.Registry
	ledger    *ledger.Store
	accounts  port.AccountRepository
	transfers port.TransferRepository
	log       zerolog.Logger
}

func NewService(registry *account.Registry, led *ledger.Store, accounts port.AccountRepository, transfers port.TransferRepository, log zerolog.Logger) *Service {
	return &Service{
		registry:  registry,
		ledger:    led,
		accounts:  accounts,
		transfers: transfers,
		log:       log.With().Str("component", "transfers").Logger(),
	}
}

// Transfer debits the source account and credits the account identified by
// the public destination number. Both accounts are locked for the duration
// (in fixed global order, inside the repository) so that two concurrent
// transfers can never both spend the same available balance. The two ledger
// rows share the transfer id.
func (s *Service) Transfer(ctx context.Context, fromAccountID, toNumber string, amountCents int64, description string) (*domain.TransferRecord, error) {
	if amountCents <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	// Resolve the destination before reserving or locking anything; an
	// unmatched number must not leave any trace.
	dest, err := s.accounts.GetByNumber(ctx, toNumber)
	if err != nil {
		return nil, err
	}
	if dest.ID == fromAccountID {
		return nil, domain.ErrSameAccount
	}

	var record *domain.TransferRecord
	err = s.accounts.WithAccountLock(ctx, []string{fromAccountID, dest.ID}, func(ctx context.Context) error {
		from, err := s.accounts.GetByID(ctx, fromAccountID)
		if err != nil {
			return err
		}
		to, err := s.accounts.GetByID(ctx, dest.ID)
		if err != nil {
			return err
		}
		if err := s.registry.AssertUsable(from, false); err != nil {
			return fmt.Errorf("source account: %w", err)
		}
		if err := s.registry.AssertUsable(to, false); err != nil {
			return fmt.Errorf("destination account: %w", err)
		}
		if from.AvailableCents < amountCents {
			return domain.ErrInsufficientBalance
		}

		record = &domain.TransferRecord{
			ID:            uuid.NewString(),
			FromAccountID: from.ID,
			ToAccountID:   to.ID,
			AmountCents:   amountCents,
			Description:   description,
			CreatedAt:     time.Now(),
		}

		if _, err := s.ledger.Record(ctx, ledger.AppendInput{
			AccountID:   from.ID,
			Type:        domain.TxTransferOut,
			AmountCents: -amountCents,
			Description: description,
			TransferID:  record.ID,
		}); err != nil {
			return err
		}
		if _, err := s.ledger.Record(ctx, ledger.AppendInput{
			AccountID:   to.ID,
			Type:        domain.TxTransferIn,
			AmountCents: amountCents,
			Description: description,
			TransferID:  record.ID,
		}); err != nil {
			return err
		}
		return s.transfers.Create(ctx, record)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("transfer", record.ID).
		Str("from", record.FromAccountID).
		Str("to", record.ToAccountID).
		Int64("amountCents", amountCents).
		Msg("transfer completed")
	return record, nil
}

// History lists the transfer records touching an account.
func (s *Service) History(ctx context.Context, accountID string) ([]*domain.TransferRecord, error) {
	if _, err := s.accounts.GetByID(ctx, accountID); err != nil {
		return nil, err
	}
	return s.transfers.ListByAccount(ctx, accountID)
}
