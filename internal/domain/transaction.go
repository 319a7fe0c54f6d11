package domain

import "time"

// TransactionType classifies a ledger entry.
type TransactionType string

const (
	TxSaleCredit      TransactionType = "sale_credit"
	TxTransferIn      TransactionType = "transfer_in"
	TxTransferOut     TransactionType = "transfer_out"
	TxWithdrawalDebit TransactionType = "withdrawal_debit"
	TxAdjustment      TransactionType = "adjustment"
)

// Transaction is an immutable, append-only ledger entry. Amounts are signed
// cents: credits positive, debits negative. Rows are never updated or
// deleted; an account's balance is always derivable from its rows.
type Transaction struct {
	ID             string          `json:"id" db:"id"`
	AccountID      string          `json:"accountId" db:"account_id"`
	Seq            int64           `json:"seq" db:"seq"`
	Type           TransactionType `json:"type" db:"type"`
	AmountCents    int64           `json:"amountCents" db:"amount_cents"`
	Description    string          `json:"description" db:"description"`
	Status         string          `json:"status" db:"status"`
	RelatedOrderID string          `json:"relatedOrderId,omitempty" db:"related_order_id"`
	TransferID     string          `json:"transferId,omitempty" db:"transfer_id"`
	CreatedAt      time.Time       `json:"createdAt" db:"created_at"`
}
