package domain

import "time"

// WithdrawalStatus is the state of a cash-out request.
//
//	pending -> approved -> processing -> completed
//	pending -> rejected
//	any non-terminal -> cancelled
//
// processing may revert to approved when the payment rail reports a
// definitive, retryable failure.
type WithdrawalStatus string

const (
	WithdrawalPending    WithdrawalStatus = "pending"
	WithdrawalApproved   WithdrawalStatus = "approved"
	WithdrawalProcessing WithdrawalStatus = "processing"
	WithdrawalCompleted  WithdrawalStatus = "completed"
	WithdrawalRejected   WithdrawalStatus = "rejected"
	WithdrawalCancelled  WithdrawalStatus = "cancelled"
)

// Terminal reports whether no further transitions are allowed.
func (s WithdrawalStatus) Terminal() bool {
	return s == WithdrawalCompleted || s == WithdrawalRejected || s == WithdrawalCancelled
}

// WithdrawalRequest tracks one cash-out from request to payout. The
// destination is snapshotted at request time so later edits to the account's
// payout metadata never retroactively change an in-flight request. The
// requested amount is reserved (available -> blocked) for the lifetime of
// the request.
type WithdrawalRequest struct {
	ID          string            `json:"id" db:"id"`
	AccountID   string            `json:"accountId" db:"account_id"`
	AmountCents int64             `json:"amountCents" db:"amount_cents"`
	Status      WithdrawalStatus  `json:"status" db:"status"`
	Method      PayoutMethod      `json:"method" db:"method"`
	Destination PayoutDestination `json:"destination" db:"destination"`

	AdminNote             string `json:"adminNote,omitempty" db:"admin_note"`
	RejectionReason       string `json:"rejectionReason,omitempty" db:"rejection_reason"`
	FailureReason         string `json:"failureReason,omitempty" db:"failure_reason"`
	ExternalTransactionID string `json:"externalTransactionId,omitempty" db:"external_transaction_id"`

	RequestedAt time.Time  `json:"requestedAt" db:"requested_at"`
	ProcessedAt *time.Time `json:"processedAt,omitempty" db:"processed_at"`
	UpdatedAt   time.Time  `json:"updatedAt" db:"updated_at"`
}
