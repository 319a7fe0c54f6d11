package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

//
// --- Admin: Payout Handlers ---
//

// BatchPayoutInput lists the withdrawal requests to execute.
type BatchPayoutInput struct {
	RequestIDs []string `json:"requestIds" binding:"required,min=1"`
}

// ExecuteBatchPayout is the handler for POST /v1/admin/payouts.
// Items are independent: per-item outcomes are reported and one failure
// never rolls back the others.
func (h *Handlers) ExecuteBatchPayout(c *gin.Context) {
	var input BatchPayoutInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	results := h.Payouts.PayBatch(c.Request.Context(), input.RequestIDs)

	var failed int
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"results":   results,
		"total":     len(results),
		"failed":    failed,
		"succeeded": len(results) - failed,
	})
}

// ExecuteSinglePayout is the handler for POST /v1/admin/payouts/:requestId.
// Also the reconciliation path for requests stuck in processing.
func (h *Handlers) ExecuteSinglePayout(c *gin.Context) {
	result := h.Payouts.PayOne(c.Request.Context(), c.Param("requestId"))
	status := http.StatusOK
	if result.Err != nil {
		status = http.StatusBadGateway
	}
	c.JSON(status, gin.H{"result": result})
}
