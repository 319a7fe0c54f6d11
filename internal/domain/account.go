package domain

import "time"

// AccountStatus is the lifecycle status of a seller wallet.
// Accounts are never hard-deleted; closing an account sets StatusClosed.
type AccountStatus string

const (
	AccountPending   AccountStatus = "pending"
	AccountActive    AccountStatus = "active"
	AccountBlocked   AccountStatus = "blocked"
	AccountSuspended AccountStatus = "suspended"
	AccountClosed    AccountStatus = "closed"
)

// KYCStatus mirrors the external onboarding/verification state.
// Fund-moving operations that require verification demand KYCApproved.
type KYCStatus string

const (
	KYCPending     KYCStatus = "pending"
	KYCSubmitted   KYCStatus = "submitted"
	KYCReviewing   KYCStatus = "reviewing"
	KYCApproved    KYCStatus = "approved"
	KYCRejected    KYCStatus = "rejected"
	KYCNeedsUpdate KYCStatus = "needs_update"
)

// PayoutMethod selects how a withdrawal leaves the platform.
type PayoutMethod string

const (
	MethodPIX  PayoutMethod = "pix"
	MethodBank PayoutMethod = "bank_transfer"
)

// PIXKeyType is the kind of PIX key registered as a payout destination.
type PIXKeyType string

const (
	PIXKeyCPF    PIXKeyType = "cpf"
	PIXKeyCNPJ   PIXKeyType = "cnpj"
	PIXKeyEmail  PIXKeyType = "email"
	PIXKeyPhone  PIXKeyType = "phone"
	PIXKeyRandom PIXKeyType = "random"
)

// PayoutDestination is where a payout lands. Exactly one of the PIX or
// bank field groups is populated, depending on Method.
type PayoutDestination struct {
	Method          PayoutMethod `json:"method"`
	PIXKey          string       `json:"pixKey,omitempty"`
	PIXKeyType      PIXKeyType   `json:"pixKeyType,omitempty"`
	BankName        string       `json:"bankName,omitempty"`
	BankAgency      string       `json:"bankAgency,omitempty"`
	BankAccount     string       `json:"bankAccount,omitempty"`
	BankAccountType string       `json:"bankAccountType,omitempty"`
}

// Configured reports whether the destination carries enough data for its
// method to actually be paid.
func (d PayoutDestination) Configured() bool {
	switch d.Method {
	case MethodPIX:
		return d.PIXKey != ""
	case MethodBank:
		return d.BankName != "" && d.BankAgency != "" && d.BankAccount != ""
	}
	return false
}

// Account is a seller's wallet. Balances are cached projections of the
// transaction log plus active withdrawal reservations; the ledger fold is
// the source of truth and the two are reconciled periodically.
type Account struct {
	ID         string        `json:"id" db:"id"`
	Number     string        `json:"number" db:"number"`
	SellerID   string        `json:"sellerId" db:"seller_id"`
	HolderName string        `json:"holderName" db:"holder_name"`
	Status     AccountStatus `json:"status" db:"status"`
	KYCStatus  KYCStatus     `json:"kycStatus" db:"kyc_status"`

	AvailableCents int64 `json:"availableCents" db:"available_cents"`
	BlockedCents   int64 `json:"blockedCents" db:"blocked_cents"`

	TotalReceivedCents  int64 `json:"totalReceivedCents" db:"total_received_cents"`
	TotalWithdrawnCents int64 `json:"totalWithdrawnCents" db:"total_withdrawn_cents"`

	// Payout destination metadata; either group may be empty.
	PIXKey          string     `json:"pixKey,omitempty" db:"pix_key"`
	PIXKeyType      PIXKeyType `json:"pixKeyType,omitempty" db:"pix_key_type"`
	BankName        string     `json:"bankName,omitempty" db:"bank_name"`
	BankAgency      string     `json:"bankAgency,omitempty" db:"bank_agency"`
	BankAccount     string     `json:"bankAccount,omitempty" db:"bank_account"`
	BankAccountType string     `json:"bankAccountType,omitempty" db:"bank_account_type"`

	MinWithdrawalCents int64 `json:"minWithdrawalCents" db:"min_withdrawal_cents"`
	AutoWithdrawal     bool  `json:"autoWithdrawal" db:"auto_withdrawal"`

	Version   int64     `json:"-" db:"version"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// DestinationFor returns the account's configured destination for the given
// method. ok is false when the method has no usable data on file.
func (a *Account) DestinationFor(method PayoutMethod) (PayoutDestination, bool) {
	d := PayoutDestination{Method: method}
	switch method {
	case MethodPIX:
		d.PIXKey = a.PIXKey
		d.PIXKeyType = a.PIXKeyType
	case MethodBank:
		d.BankName = a.BankName
		d.BankAgency = a.BankAgency
		d.BankAccount = a.BankAccount
		d.BankAccountType = a.BankAccountType
	}
	return d, d.Configured()
}
