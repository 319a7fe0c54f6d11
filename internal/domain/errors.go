package domain

import (
	"errors"
	"fmt"
)

var (
	ErrAccountNotFound          = errors.New("account not found")
	ErrAccountBlocked           = errors.New("account is not active")
	ErrKYCRequired              = errors.New("kyc approval required")
	ErrInvalidAmount            = errors.New("amount must be greater than zero")
	ErrInsufficientBalance      = errors.New("insufficient available balance")
	ErrBelowMinimum             = errors.New("amount is below the minimum withdrawal")
	ErrMissingPayoutDestination = errors.New("no payout destination configured for the chosen method")
	ErrActiveRequestExists      = errors.New("an active withdrawal request already exists for this account")
	ErrReasonRequired           = errors.New("a rejection reason is required")
	ErrInvalidTransition        = errors.New("invalid withdrawal status transition")
	ErrDuplicateAction          = errors.New("request was already processed")
	ErrWithdrawalNotFound       = errors.New("withdrawal request not found")
	ErrSameAccount              = errors.New("source and destination accounts are the same")
	ErrOrderNotFound            = errors.New("order not found")
)

// ErrConsistency marks a divergence between an account's cached balance and
// the fold of its ledger. It is fatal for the affected account: mutation is
// halted and an operator has to intervene. It is never silently repaired.
var ErrConsistency = errors.New("ledger consistency violation")

// ConsistencyError carries the divergence details for the operator.
type ConsistencyError struct {
	AccountID      string
	AvailableCents int64
	BlockedCents   int64
	FoldCents      int64
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("ledger consistency violation on account %s: available=%d blocked=%d ledger fold=%d",
		e.AccountID, e.AvailableCents, e.BlockedCents, e.FoldCents)
}

func (e *ConsistencyError) Unwrap() error { return ErrConsistency }

// ExternalPaymentError is a definitive failure reported by the payment rail.
// Retryable failures may be re-attempted with the same idempotency token;
// non-retryable ones surface to an operator.
type ExternalPaymentError struct {
	Code      string
	Message   string
	Retryable bool
}

func (e *ExternalPaymentError) Error() string {
	return fmt.Sprintf("external payment failure (%s): %s", e.Code, e.Message)
}
