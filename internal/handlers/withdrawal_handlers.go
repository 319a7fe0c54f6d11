package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vendahub/ledger/internal/domain"
)

//
// --- Seller: Withdrawal Handlers ---
//

// RequestWithdrawalInput defines the JSON for a withdrawal request. The
// destination fields are optional; when absent the account's configured
// payout data for the method is snapshotted.
type RequestWithdrawalInput struct {
	AmountCents int64               `json:"amountCents" binding:"required,gt=0"`
	Method      domain.PayoutMethod `json:"method" binding:"required,oneof=pix bank_transfer"`

	PIXKey          string            `json:"pixKey"`
	PIXKeyType      domain.PIXKeyType `json:"pixKeyType"`
	BankName        string            `json:"bankName"`
	BankAgency      string            `json:"bankAgency"`
	BankAccount     string            `json:"bankAccount"`
	BankAccountType string            `json:"bankAccountType"`
}

// RequestWithdrawal is the handler for POST /v1/seller/withdrawals.
// On success the amount is already reserved: available drops, blocked rises.
func (h *Handlers) RequestWithdrawal(c *gin.Context) {
	acc, ok := h.callerAccount(c)
	if !ok {
		return
	}

	var input RequestWithdrawalInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var dest *domain.PayoutDestination
	override := domain.PayoutDestination{
		Method:          input.Method,
		PIXKey:          input.PIXKey,
		PIXKeyType:      input.PIXKeyType,
		BankName:        input.BankName,
		BankAgency:      input.BankAgency,
		BankAccount:     input.BankAccount,
		BankAccountType: input.BankAccountType,
	}
	if override.Configured() {
		dest = &override
	}

	req, err := h.Withdrawals.Request(c.Request.Context(), acc.ID, input.AmountCents, input.Method, dest)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "Withdrawal request submitted. The amount has been reserved from your available balance pending review.",
		"request": req,
	})
}

// GetMyWithdrawals is the handler for GET /v1/seller/withdrawals.
func (h *Handlers) GetMyWithdrawals(c *gin.Context) {
	acc, ok := h.callerAccount(c)
	if !ok {
		return
	}

	requests, err := h.Withdrawals.List(c.Request.Context(), domain.WithdrawalStatus(c.Query("status")), acc.ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	if requests == nil {
		requests = []*domain.WithdrawalRequest{}
	}
	c.JSON(http.StatusOK, gin.H{"requests": requests})
}

// CancelMyWithdrawal is the handler for POST /v1/seller/withdrawals/:id/cancel.
// Sellers may only cancel their own requests.
func (h *Handlers) CancelMyWithdrawal(c *gin.Context) {
	acc, ok := h.callerAccount(c)
	if !ok {
		return
	}

	req, err := h.Withdrawals.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if req.AccountID != acc.ID {
		c.JSON(http.StatusNotFound, gin.H{"error": domain.ErrWithdrawalNotFound.Error()})
		return
	}

	cancelled, err := h.Withdrawals.Cancel(c.Request.Context(), req.ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"request": cancelled})
}

//
// --- Admin: Withdrawal Handlers ---
//

// GetWithdrawalRequests is the handler for GET /v1/admin/withdrawals.
// Defaults to the pending review queue; ?status= filters explicitly.
func (h *Handlers) GetWithdrawalRequests(c *gin.Context) {
	status := domain.WithdrawalStatus(c.DefaultQuery("status", string(domain.WithdrawalPending)))
	if c.Query("status") == "all" {
		status = ""
	}

	requests, err := h.Withdrawals.List(c.Request.Context(), status, c.Query("accountId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if requests == nil {
		requests = []*domain.WithdrawalRequest{}
	}
	c.JSON(http.StatusOK, gin.H{"requests": requests})
}

// ProcessWithdrawalInput defines the JSON for approving/rejecting a request.
type ProcessWithdrawalInput struct {
	Action          string `json:"action" binding:"required,oneof=approve reject"`
	AdminNote       string `json:"adminNote,omitempty"`
	RejectionReason string `json:"rejectionReason,omitempty"`
}

// ProcessWithdrawalRequest is the handler for PATCH /v1/admin/withdrawals/:id.
func (h *Handlers) ProcessWithdrawalRequest(c *gin.Context) {
	var input ProcessWithdrawalInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var (
		req *domain.WithdrawalRequest
		err error
	)
	if input.Action == "approve" {
		req, err = h.Withdrawals.Approve(c.Request.Context(), c.Param("id"), input.AdminNote)
	} else {
		req, err = h.Withdrawals.Reject(c.Request.Context(), c.Param("id"), input.RejectionReason)
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"request": req})
}

// CompleteWithdrawalInput records the external transaction id of a payout
// executed outside the batch flow (manual bank transfer).
type CompleteWithdrawalInput struct {
	ExternalTransactionID string `json:"externalTransactionId" binding:"required"`
}

// CompleteWithdrawal is the handler for POST /v1/admin/withdrawals/:id/complete.
func (h *Handlers) CompleteWithdrawal(c *gin.Context) {
	var input CompleteWithdrawalInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	req, err := h.Withdrawals.Complete(c.Request.Context(), c.Param("id"), input.ExternalTransactionID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"request": req})
}
