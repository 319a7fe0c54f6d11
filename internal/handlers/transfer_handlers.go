package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vendahub/ledger/internal/domain"
)

//
// --- Seller: Transfer Handlers ---
//

// CreateTransferInput defines the JSON for an account-to-account transfer.
// The destination is a public account number, resolved server-side.
type CreateTransferInput struct {
	ToNumber    string `json:"toNumber" binding:"required"`
	AmountCents int64  `json:"amountCents" binding:"required,gt=0"`
	Description string `json:"description"`
}

// CreateTransfer is the handler for POST /v1/seller/transfers.
func (h *Handlers) CreateTransfer(c *gin.Context) {
	acc, ok := h.callerAccount(c)
	if !ok {
		return
	}

	var input CreateTransferInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	record, err := h.Transfers.Transfer(c.Request.Context(), acc.ID, input.ToNumber, input.AmountCents, input.Description)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"transfer": record})
}

// GetMyTransfers is the handler for GET /v1/seller/transfers.
func (h *Handlers) GetMyTransfers(c *gin.Context) {
	acc, ok := h.callerAccount(c)
	if !ok {
		return
	}

	records, err := h.Transfers.History(c.Request.Context(), acc.ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	if records == nil {
		records = []*domain.TransferRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"transfers": records})
}
