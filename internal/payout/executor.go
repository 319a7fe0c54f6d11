// Package payout executes approved withdrawals against the external
// payment rail. Every call carries an idempotency token derived from the
// withdrawal request id, so network-level retries of the same logical
// payout can never pay twice.
package payout

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/vendahub/ledger/internal/domain"
	"github.com/vendahub/ledger/internal/port"
	"github.com/vendahub/ledger/internal/withdrawal"
)

// tokenNamespace scopes payout idempotency tokens; the token for a request
// is stable across retries and process restarts.
var tokenNamespace = uuid.MustParse("9a1c5e87-4b6f-4f3e-8f0a-2d7c94d1b3aa")

// Token returns the idempotency token for a withdrawal request id.
func Token(requestID string) string {
	return uuid.NewSHA1(tokenNamespace, []byte(requestID)).String()
}

// Result is the per-request outcome of a payout attempt. Status is the
// request's state after the attempt; Err is set when the attempt did not
// complete the request.
type Result struct {
	RequestID  string                  `json:"requestId"`
	Status     domain.WithdrawalStatus `json:"status"`
	ExternalID string                  `json:"externalId,omitempty"`
	Err        error                   `json:"-"`
	ErrMessage string                  `json:"error,omitempty"`
}

type Executor struct {
	workflow    *withdrawal.Workflow
	rail        port.PaymentRail
	workers     int
	maxAttempts int
	callTimeout time.Duration
	log         zerolog.Logger
}

func NewExecutor(wf *withdrawal.Workflow, rail port.PaymentRail, workers, maxAttempts int, callTimeout time.Duration, log zerolog.Logger) *Executor {
	if workers <= 0 {
		workers = 4
	}
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if callTimeout <= 0 {
		callTimeout = 30 * time.Second
	}
	return &Executor{
		workflow:    wf,
		rail:        rail,
		workers:     workers,
		maxAttempts: maxAttempts,
		callTimeout: callTimeout,
		log:         log.With().Str("component", "payouts").Logger(),
	}
}

// PayOne executes a single approved (or stuck-in-processing) withdrawal.
//
// Definitive success completes the request; definitive failure reverts it
// to approved with the rail's reason recorded. An ambiguous outcome (rail
// says pending, transport error, timeout) leaves it in processing for a
// later reconciliation run, never a blind retry with a fresh token.
func (e *Executor) PayOne(ctx context.Context, requestID string) Result {
	req, err := e.workflow.MarkProcessing(ctx, requestID)
	if err != nil {
		return e.fail(requestID, statusOrUnknown(err), err)
	}

	token := Token(requestID)
	for attempt := 1; ; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, e.callTimeout)
		res, err := e.rail.Execute(callCtx, req.Destination, req.AmountCents, token)
		cancel()

		if err != nil {
			// Transport failure or timeout: the rail may or may not have
			// paid. The request stays in processing pending reconciliation.
			e.log.Warn().Err(err).Str("request", requestID).Msg("payment rail call did not resolve; leaving request in processing")
			return e.fail(requestID, domain.WithdrawalProcessing, err)
		}

		switch res.Status {
		case port.RailSuccess:
			completed, err := e.workflow.Complete(ctx, requestID, res.ExternalID)
			if err != nil {
				if errors.Is(err, domain.ErrDuplicateAction) {
					// Already completed by a concurrent reconciliation.
					return Result{RequestID: requestID, Status: domain.WithdrawalCompleted, ExternalID: res.ExternalID}
				}
				return e.fail(requestID, domain.WithdrawalProcessing, err)
			}
			e.log.Info().Str("request", requestID).Str("externalId", res.ExternalID).Msg("payout completed")
			return Result{RequestID: requestID, Status: completed.Status, ExternalID: res.ExternalID}

		case port.RailFailure:
			payErr := &domain.ExternalPaymentError{Code: res.ExternalID, Message: res.Message, Retryable: res.Retryable}
			if res.Retryable && attempt < e.maxAttempts {
				// Same token: it is still the same logical payout.
				e.log.Warn().Str("request", requestID).Int("attempt", attempt).Msg("retryable rail failure, retrying")
				continue
			}
			if _, err := e.workflow.RevertToApproved(ctx, requestID, res.Message); err != nil {
				return e.fail(requestID, domain.WithdrawalProcessing, err)
			}
			return e.fail(requestID, domain.WithdrawalApproved, payErr)

		default: // port.RailPending
			e.log.Info().Str("request", requestID).Msg("rail outcome pending; request stays in processing")
			return e.fail(requestID, domain.WithdrawalProcessing, &domain.ExternalPaymentError{
				Code: "pending", Message: "payment rail outcome pending reconciliation", Retryable: false,
			})
		}
	}
}

// PayBatch processes the requests independently on a bounded worker pool.
// One request's failure neither aborts nor rolls back any other: failures
// are reported per item and successes stand.
func (e *Executor) PayBatch(ctx context.Context, requestIDs []string) []Result {
	results := make([]Result, len(requestIDs))
	g := &errgroup.Group{}
	g.SetLimit(e.workers)
	for i, id := range requestIDs {
		i, id := i, id
		g.Go(func() error {
			results[i] = e.PayOne(ctx, id)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (e *Executor) fail(requestID string, status domain.WithdrawalStatus, err error) Result {
	return Result{RequestID: requestID, Status: status, Err: err, ErrMessage: err.Error()}
}

// statusOrUnknown reports the state a request is left in when it could not
// even enter processing.
func statusOrUnknown(err error) domain.WithdrawalStatus {
	switch {
	case errors.Is(err, domain.ErrDuplicateAction):
		return domain.WithdrawalCompleted
	default:
		return ""
	}
}
