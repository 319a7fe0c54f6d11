package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vendahub/ledger/internal/account"
	"github.com/vendahub/ledger/internal/domain"
	"github.com/vendahub/ledger/internal/ledger"
	"github.com/vendahub/ledger/internal/payout"
	"github.com/vendahub/ledger/internal/settlement"
	"github.com/vendahub/ledger/internal/transfer"
	"github.com/vendahub/ledger/internal/withdrawal"
)

// Handlers holds all dependencies for the HTTP surface.
type Handlers struct {
	Accounts    *account.Registry
	Ledger      *ledger.Store
	Transfers   *transfer.Service
	Withdrawals *withdrawal.Workflow
	Payouts     *payout.Executor
	Settlements *settlement.Calculator
	Log         zerolog.Logger
}

// fail maps a domain error onto an HTTP status with the error's own
// message, so every rejected operation tells the caller which
// precondition failed. Errors outside the domain taxonomy surface as 500
// and get logged; expected rejections do not.
func (h *Handlers) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.Log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrAccountNotFound),
		errors.Is(err, domain.ErrWithdrawalNotFound),
		errors.Is(err, domain.ErrOrderNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInsufficientBalance),
		errors.Is(err, domain.ErrActiveRequestExists),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrDuplicateAction),
		errors.Is(err, domain.ErrSameAccount):
		return http.StatusConflict
	case errors.Is(err, domain.ErrBelowMinimum),
		errors.Is(err, domain.ErrMissingPayoutDestination),
		errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrReasonRequired):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrAccountBlocked),
		errors.Is(err, domain.ErrKYCRequired):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// callerAccount resolves the authenticated seller's wallet account.
func (h *Handlers) callerAccount(c *gin.Context) (*domain.Account, bool) {
	sellerID := c.GetString("sellerID")
	acc, err := h.Accounts.GetBySeller(c.Request.Context(), sellerID)
	if err != nil {
		h.fail(c, err)
		return nil, false
	}
	return acc, true
}
