package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vendahub/ledger/internal/domain"
	"github.com/vendahub/ledger/internal/port"
)

//
// --- Seller: Account Handlers ---
//

// CreateAccountInput defines the JSON for opening a wallet.
type CreateAccountInput struct {
	HolderName string `json:"holderName" binding:"required"`
}

// CreateAccount is the handler for POST /v1/seller/account.
// Opening is idempotent: a seller who already has a wallet gets it back.
func (h *Handlers) CreateAccount(c *gin.Context) {
	var input CreateAccountInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sellerID := c.GetString("sellerID")
	acc, err := h.Accounts.Create(c.Request.Context(), sellerID, input.HolderName)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"account": acc})
}

// GetMyAccount is the handler for GET /v1/seller/account.
// It returns the account with its current balance projection.
func (h *Handlers) GetMyAccount(c *gin.Context) {
	acc, ok := h.callerAccount(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"account": acc})
}

// GetMyTransactions is the handler for GET /v1/seller/account/transactions.
// Cursor pagination: pass beforeSeq from the last page to continue.
func (h *Handlers) GetMyTransactions(c *gin.Context) {
	acc, ok := h.callerAccount(c)
	if !ok {
		return
	}

	var query struct {
		Type      string `form:"type"`
		BeforeSeq int64  `form:"beforeSeq"`
		Limit     int    `form:"limit"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	txs, err := h.Ledger.History(c.Request.Context(), acc.ID, port.TransactionFilter{
		Type:      domain.TransactionType(query.Type),
		BeforeSeq: query.BeforeSeq,
		Limit:     query.Limit,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	if txs == nil {
		txs = []*domain.Transaction{}
	}

	var nextCursor int64
	if len(txs) > 0 {
		nextCursor = txs[len(txs)-1].Seq
	}
	c.JSON(http.StatusOK, gin.H{"transactions": txs, "nextBeforeSeq": nextCursor})
}

// UpdatePayoutDestinationInput carries either PIX or bank data.
type UpdatePayoutDestinationInput struct {
	Method          domain.PayoutMethod `json:"method" binding:"required,oneof=pix bank_transfer"`
	PIXKey          string              `json:"pixKey"`
	PIXKeyType      domain.PIXKeyType   `json:"pixKeyType"`
	BankName        string              `json:"bankName"`
	BankAgency      string              `json:"bankAgency"`
	BankAccount     string              `json:"bankAccount"`
	BankAccountType string              `json:"bankAccountType"`
}

// UpdatePayoutDestination is the handler for PUT /v1/seller/account/payout-destination.
// In-flight withdrawal requests keep their snapshot; this only affects new ones.
func (h *Handlers) UpdatePayoutDestination(c *gin.Context) {
	acc, ok := h.callerAccount(c)
	if !ok {
		return
	}

	var input UpdatePayoutDestinationInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updated, err := h.Accounts.SetPayoutDestination(c.Request.Context(), acc.ID, domain.PayoutDestination{
		Method:          input.Method,
		PIXKey:          input.PIXKey,
		PIXKeyType:      input.PIXKeyType,
		BankName:        input.BankName,
		BankAgency:      input.BankAgency,
		BankAccount:     input.BankAccount,
		BankAccountType: input.BankAccountType,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"account": updated})
}

// LookupAccount is the handler for GET /v1/accounts/:number.
// Public transfer-destination lookup: returns the display name only.
func (h *Handlers) LookupAccount(c *gin.Context) {
	number, holderName, err := h.Accounts.Lookup(c.Request.Context(), c.Param("number"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"number": number, "holderName": holderName})
}

//
// --- Admin: Account Handlers ---
//

// SetAccountStatusInput defines the JSON for the administrative
// block/suspend/close action.
type SetAccountStatusInput struct {
	Status domain.AccountStatus `json:"status" binding:"required,oneof=active blocked suspended closed"`
}

// SetAccountStatus is the handler for PATCH /v1/admin/accounts/:id/status.
func (h *Handlers) SetAccountStatus(c *gin.Context) {
	var input SetAccountStatusInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	acc, err := h.Accounts.SetStatus(c.Request.Context(), c.Param("id"), input.Status)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"account": acc})
}

// SetWithdrawalPolicyInput adjusts the per-account cash-out policy.
type SetWithdrawalPolicyInput struct {
	MinWithdrawalCents *int64 `json:"minWithdrawalCents" binding:"required,gte=0"`
	AutoWithdrawal     bool   `json:"autoWithdrawal"`
}

// SetWithdrawalPolicy is the handler for PATCH /v1/admin/accounts/:id/withdrawal-policy.
func (h *Handlers) SetWithdrawalPolicy(c *gin.Context) {
	var input SetWithdrawalPolicyInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	acc, err := h.Accounts.SetWithdrawalPolicy(c.Request.Context(), c.Param("id"), *input.MinWithdrawalCents, input.AutoWithdrawal)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"account": acc})
}

// SetAccountKYCInput mirrors the onboarding system's verification state.
type SetAccountKYCInput struct {
	Status domain.KYCStatus `json:"status" binding:"required,oneof=pending submitted reviewing approved rejected needs_update"`
}

// SetAccountKYC is the handler for PATCH /v1/admin/accounts/:id/kyc.
func (h *Handlers) SetAccountKYC(c *gin.Context) {
	var input SetAccountKYCInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	acc, err := h.Accounts.SetKYCStatus(c.Request.Context(), c.Param("id"), input.Status)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"account": acc})
}
