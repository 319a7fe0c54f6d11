package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vendahub/ledger/internal/auth"
	"github.com/vendahub/ledger/internal/handlers"
	"github.com/vendahub/ledger/internal/middleware"
)

func SetupRouter(h *handlers.Handlers, authManager *auth.Manager, corsAllowOrigin string) *gin.Engine {
	router := gin.Default()

	router.Use(middleware.CORS(corsAllowOrigin))

	v1 := router.Group("/v1")
	{
		v1.GET("/ping", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"message": "pong!"})
		})

		authed := v1.Group("/")
		authed.Use(middleware.Auth(authManager))
		{
			// Destination lookup for transfers (display name only).
			authed.GET("/accounts/:number", h.LookupAccount)

			seller := authed.Group("/seller")
			{
				seller.POST("/account", h.CreateAccount)
				seller.GET("/account", h.GetMyAccount)
				seller.GET("/account/transactions", h.GetMyTransactions)
				seller.PUT("/account/payout-destination", h.UpdatePayoutDestination)

				seller.POST("/transfers", h.CreateTransfer)
				seller.GET("/transfers", h.GetMyTransfers)

				seller.POST("/withdrawals", h.RequestWithdrawal)
				seller.GET("/withdrawals", h.GetMyWithdrawals)
				seller.POST("/withdrawals/:id/cancel", h.CancelMyWithdrawal)
			}

			admin := authed.Group("/admin")
			admin.Use(middleware.AdminOnly())
			{
				admin.GET("/withdrawals", h.GetWithdrawalRequests)
				admin.PATCH("/withdrawals/:id", h.ProcessWithdrawalRequest)
				admin.POST("/withdrawals/:id/complete", h.CompleteWithdrawal)

				admin.POST("/payouts", h.ExecuteBatchPayout)
				admin.POST("/payouts/:requestId", h.ExecuteSinglePayout)

				admin.GET("/orders/:id/settlement", h.GetOrderSettlement)
				admin.POST("/orders/:id/settle", h.SettleOrder)

				admin.PATCH("/accounts/:id/status", h.SetAccountStatus)
				admin.PATCH("/accounts/:id/kyc", h.SetAccountKYC)
				admin.PATCH("/accounts/:id/withdrawal-policy", h.SetWithdrawalPolicy)
			}
		}
	}

	return router
}
