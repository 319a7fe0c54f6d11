package port

import (
	"context"

	"github.com/vendahub/ledger/internal/domain"
)

// RailStatus is the outcome of one payment-rail execution.
type RailStatus string

const (
	RailSuccess RailStatus = "success"
	RailFailure RailStatus = "failure"
	// RailPending is an ambiguous outcome: the rail accepted the call but
	// has not confirmed the payment. The withdrawal stays in processing
	// until a later attempt with the same idempotency token resolves it.
	RailPending RailStatus = "pending"
)

// RailResult is the payment rail's response to an execution.
type RailResult struct {
	Status      RailStatus
	ExternalID  string
	Retryable   bool
	Message     string
	RawResponse string
}

// PaymentRail is the opaque external payout capability. Execute must be
// idempotent on the token: retrying the same logical payout with the same
// token never pays twice.
type PaymentRail interface {
	Execute(ctx context.Context, dest domain.PayoutDestination, amountCents int64, idempotencyToken string) (*RailResult, error)
}

// OrderSource is read-only access to orders and their line items.
type OrderSource interface {
	GetOrder(ctx context.Context, orderID string) (*domain.Order, error)
}

// CostHistory looks up the last recorded supplier cost for a product, used
// as the second step of the settlement cost fallback chain. ok is false
// when no snapshot exists.
type CostHistory interface {
	LastKnownUnitCost(ctx context.Context, productID string) (costCents int64, ok bool, err error)
}
