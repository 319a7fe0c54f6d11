// Package withdrawal drives the cash-out state machine. The requested
// amount is reserved (available -> blocked) the moment a request is
// created, so pending approval can never be double-spent, and released
// whenever the request exits without being paid.
package withdrawal

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vendahub/ledger/internal/account"
	"github.com/vendahub/ledger/internal/domain"
	"github.com/vendahub/ledger/internal/ledger"
	"github.com/vendahub/ledger/internal/port"
)

type Workflow struct {
	registry    *account.Registry
	ledger      *ledger.Store
	accounts    port.AccountRepository
	withdrawals port.WithdrawalRepository
	log         zerolog.Logger
}

func NewWorkflow(registry *account.Registry, led *ledger.Store, accounts port.AccountRepository, withdrawals port.WithdrawalRepository, log zerolog.Logger) *Workflow {
	return &Workflow{
		registry:    registry,
		ledger:      led,
		accounts:    accounts,
		withdrawals: withdrawals,
		log:         log.With().Str("component", "withdrawals").Logger(),
	}
}

// Request opens a withdrawal. The destination snapshot is taken here: when
// dest is nil the account's configured data for the method is copied in,
// and later edits to the account never touch the in-flight request. At most
// one non-terminal request may exist per account.
func (w *Workflow) Request(ctx context.Context, accountID string, amountCents int64, method domain.PayoutMethod, dest *domain.PayoutDestination) (*domain.WithdrawalRequest, error) {
	if amountCents <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	var req *domain.WithdrawalRequest
	err := w.accounts.WithAccountLock(ctx, []string{accountID}, func(ctx context.Context) error {
		acc, err := w.accounts.GetByID(ctx, accountID)
		if err != nil {
			return err
		}
		if err := w.registry.AssertUsable(acc, true); err != nil {
			return err
		}
		if amountCents < acc.MinWithdrawalCents {
			return domain.ErrBelowMinimum
		}
		if amountCents > acc.AvailableCents {
			return domain.ErrInsufficientBalance
		}

		var snapshot domain.PayoutDestination
		if dest != nil && dest.Configured() {
			snapshot = *dest
			snapshot.Method = method
		} else {
			var ok bool
			snapshot, ok = acc.DestinationFor(method)
			if !ok {
				return domain.ErrMissingPayoutDestination
			}
		}

		active, err := w.withdrawals.GetActiveByAccount(ctx, accountID)
		if err != nil {
			return err
		}
		if active != nil {
			return domain.ErrActiveRequestExists
		}

		if err := w.ledger.Reserve(ctx, accountID, amountCents); err != nil {
			return err
		}

		now := time.Now()
		req = &domain.WithdrawalRequest{
			ID:          uuid.NewString(),
			AccountID:   accountID,
			AmountCents: amountCents,
			Status:      domain.WithdrawalPending,
			Method:      method,
			Destination: snapshot,
			RequestedAt: now,
			UpdatedAt:   now,
		}
		return w.withdrawals.Create(ctx, req)
	})
	if err != nil {
		return nil, err
	}

	w.log.Info().Str("request", req.ID).Str("account", accountID).Int64("amountCents", amountCents).Msg("withdrawal requested, funds reserved")
	return req, nil
}

// Approve moves a pending request to approved. Any other starting state is
// an invalid transition.
func (w *Workflow) Approve(ctx context.Context, requestID, adminNote string) (*domain.WithdrawalRequest, error) {
	return w.transition(ctx, requestID, func(ctx context.Context, req *domain.WithdrawalRequest) error {
		if req.Status != domain.WithdrawalPending {
			return domain.ErrInvalidTransition
		}
		req.Status = domain.WithdrawalApproved
		req.AdminNote = adminNote
		return nil
	})
}

// Reject closes a pending request and returns the reserved amount to the
// available balance. The reason is mandatory.
func (w *Workflow) Reject(ctx context.Context, requestID, reason string) (*domain.WithdrawalRequest, error) {
	if reason == "" {
		return nil, domain.ErrReasonRequired
	}
	return w.transition(ctx, requestID, func(ctx context.Context, req *domain.WithdrawalRequest) error {
		if req.Status != domain.WithdrawalPending {
			return domain.ErrInvalidTransition
		}
		if err := w.ledger.Release(ctx, req.AccountID, req.AmountCents); err != nil {
			return err
		}
		now := time.Now()
		req.Status = domain.WithdrawalRejected
		req.RejectionReason = reason
		req.ProcessedAt = &now
		return nil
	})
}

// Complete finalizes a paid withdrawal: the reserved amount leaves the
// blocked bucket through a withdrawal_debit ledger row and the lifetime
// withdrawn total grows. Valid from approved or processing; completing a
// completed request is a duplicate action, not a transition error.
func (w *Workflow) Complete(ctx context.Context, requestID, externalTransactionID string) (*domain.WithdrawalRequest, error) {
	return w.transition(ctx, requestID, func(ctx context.Context, req *domain.WithdrawalRequest) error {
		switch req.Status {
		case domain.WithdrawalApproved, domain.WithdrawalProcessing:
		case domain.WithdrawalCompleted:
			return domain.ErrDuplicateAction
		default:
			return domain.ErrInvalidTransition
		}
		if _, err := w.ledger.Record(ctx, ledger.AppendInput{
			AccountID:   req.AccountID,
			Type:        domain.TxWithdrawalDebit,
			AmountCents: -req.AmountCents,
			Description: "Withdrawal payout (request " + req.ID + ")",
		}); err != nil {
			return err
		}
		now := time.Now()
		req.Status = domain.WithdrawalCompleted
		req.ExternalTransactionID = externalTransactionID
		req.ProcessedAt = &now
		return nil
	})
}

// Cancel exits any non-terminal state and releases the reservation.
func (w *Workflow) Cancel(ctx context.Context, requestID string) (*domain.WithdrawalRequest, error) {
	return w.transition(ctx, requestID, func(ctx context.Context, req *domain.WithdrawalRequest) error {
		if req.Status.Terminal() {
			return domain.ErrInvalidTransition
		}
		if err := w.ledger.Release(ctx, req.AccountID, req.AmountCents); err != nil {
			return err
		}
		now := time.Now()
		req.Status = domain.WithdrawalCancelled
		req.ProcessedAt = &now
		return nil
	})
}

// MarkProcessing is entered by the payout executor when it begins an
// attempt. A request already in processing stays there: re-running the
// executor on it is the reconciliation path for ambiguous rail outcomes.
func (w *Workflow) MarkProcessing(ctx context.Context, requestID string) (*domain.WithdrawalRequest, error) {
	return w.transition(ctx, requestID, func(ctx context.Context, req *domain.WithdrawalRequest) error {
		switch req.Status {
		case domain.WithdrawalApproved:
			req.Status = domain.WithdrawalProcessing
			return nil
		case domain.WithdrawalProcessing:
			return nil
		case domain.WithdrawalCompleted:
			return domain.ErrDuplicateAction
		default:
			return domain.ErrInvalidTransition
		}
	})
}

// RevertToApproved returns a processing request to approved after a
// definitive rail failure, recording the reason for the operator.
func (w *Workflow) RevertToApproved(ctx context.Context, requestID, failureReason string) (*domain.WithdrawalRequest, error) {
	return w.transition(ctx, requestID, func(ctx context.Context, req *domain.WithdrawalRequest) error {
		if req.Status != domain.WithdrawalProcessing {
			return domain.ErrInvalidTransition
		}
		req.Status = domain.WithdrawalApproved
		req.FailureReason = failureReason
		return nil
	})
}

func (w *Workflow) Get(ctx context.Context, requestID string) (*domain.WithdrawalRequest, error) {
	return w.withdrawals.GetByID(ctx, requestID)
}

// List filters requests by status and/or account; empty values match all.
func (w *Workflow) List(ctx context.Context, status domain.WithdrawalStatus, accountID string) ([]*domain.WithdrawalRequest, error) {
	return w.withdrawals.List(ctx, status, accountID)
}

// transition runs a state change under the owning account's lock so that
// concurrent transitions (and the balance mutations some of them carry)
// are serialized with every other mutation of that account.
func (w *Workflow) transition(ctx context.Context, requestID string, fn func(ctx context.Context, req *domain.WithdrawalRequest) error) (*domain.WithdrawalRequest, error) {
	req, err := w.withdrawals.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	err = w.accounts.WithAccountLock(ctx, []string{req.AccountID}, func(ctx context.Context) error {
		// Re-read inside the lock; the request may have moved.
		req, err = w.withdrawals.GetByID(ctx, requestID)
		if err != nil {
			return err
		}
		if err := fn(ctx, req); err != nil {
			return err
		}
		return w.withdrawals.Update(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	w.log.Info().Str("request", req.ID).Str("status", string(req.Status)).Msg("withdrawal transition")
	return req, nil
}
