package domain

import "time"

// TransferRecord is the audit row for an account-to-account transfer. It is
// always backed by exactly two ledger entries (one transfer_out, one
// transfer_in) sharing its ID, written in the same atomic operation.
type TransferRecord struct {
	ID            string    `json:"id" db:"id"`
	FromAccountID string    `json:"fromAccountId" db:"from_account_id"`
	ToAccountID   string    `json:"toAccountId" db:"to_account_id"`
	AmountCents   int64     `json:"amountCents" db:"amount_cents"`
	Description   string    `json:"description" db:"description"`
	CreatedAt     time.Time `json:"createdAt" db:"created_at"`
}
