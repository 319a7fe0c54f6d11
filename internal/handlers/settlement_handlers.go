package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

//
// --- Admin: Settlement Handlers ---
//

// GetOrderSettlement is the handler for GET /v1/admin/orders/:id/settlement.
// Read-only: computes the split without touching any ledger.
func (h *Handlers) GetOrderSettlement(c *gin.Context) {
	s, err := h.Settlements.Breakdown(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"settlement": s})
}

// SettleOrder is the handler for POST /v1/admin/orders/:id/settle.
// Credits each dropship seller's wallet with their commission; safe to
// call twice for the same order.
func (h *Handlers) SettleOrder(c *gin.Context) {
	s, err := h.Settlements.Settle(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"settlement": s})
}
