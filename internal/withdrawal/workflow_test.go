package withdrawal_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vendahub/ledger/internal/account"
	"github.com/vendahub/ledger/internal/domain"
	"github.com/vendahub/ledger/internal/ledger"
	"github.com/vendahub/ledger/internal/storage/memory"
	"github.com/vendahub/ledger/internal/withdrawal"
)

type fixture struct {
	store *memory.Store
	led   *ledger.Store
	reg   *account.Registry
	wf    *withdrawal.Workflow
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()
	led := ledger.New(store.Accounts(), store.Transactions(), zerolog.Nop())
	reg := account.NewRegistry(store.Accounts(), led, zerolog.Nop())
	wf := withdrawal.NewWorkflow(reg, led, store.Accounts(), store.Withdrawals(), zerolog.Nop())
	return &fixture{store: store, led: led, reg: reg, wf: wf}
}

// verifiedSeller creates a seller with approved KYC, a PIX destination and
// a funded balance.
func (f *fixture) verifiedSeller(t *testing.T, sellerID string, balanceCents int64) *domain.Account {
	t.Helper()
	ctx := context.Background()
	acc, err := f.reg.Create(ctx, sellerID, "Loja "+sellerID)
	require.NoError(t, err)
	_, err = f.reg.SetKYCStatus(ctx, acc.ID, domain.KYCApproved)
	require.NoError(t, err)
	acc, err = f.reg.SetPayoutDestination(ctx, acc.ID, domain.PayoutDestination{
		Method:     domain.MethodPIX,
		PIXKey:     sellerID + "@example.com",
		PIXKeyType: domain.PIXKeyEmail,
	})
	require.NoError(t, err)
	if balanceCents > 0 {
		_, err = f.led.Append(ctx, ledger.AppendInput{AccountID: acc.ID, Type: domain.TxSaleCredit, AmountCents: balanceCents})
		require.NoError(t, err)
	}
	return acc
}

func (f *fixture) balance(t *testing.T, accountID string) (available, blocked int64) {
	t.Helper()
	available, blocked, err := f.led.Balance(context.Background(), accountID)
	require.NoError(t, err)
	return available, blocked
}

func TestRequestReservesFunds(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	acc := f.verifiedSeller(t, "seller-1", 10000)

	req, err := f.wf.Request(ctx, acc.ID, 6000, domain.MethodPIX, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.WithdrawalPending, req.Status)
	assert.Equal(t, "seller-1@example.com", req.Destination.PIXKey)

	available, blocked := f.balance(t, acc.ID)
	assert.Equal(t, int64(4000), available)
	assert.Equal(t, int64(6000), blocked)

	// The reservation is projection-only; the ledger still folds to 10000.
	fold, err := f.store.Transactions().FoldBalance(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10000), fold)
	require.NoError(t, f.led.Reconcile(ctx, acc.ID))
}

func TestRejectReleasesReservation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	acc := f.verifiedSeller(t, "seller-1", 10000)

	req, err := f.wf.Request(ctx, acc.ID, 6000, domain.MethodPIX, nil)
	require.NoError(t, err)

	_, err = f.wf.Reject(ctx, req.ID, "")
	assert.ErrorIs(t, err, domain.ErrReasonRequired)

	rejected, err := f.wf.Reject(ctx, req.ID, "destination does not match account holder")
	require.NoError(t, err)
	assert.Equal(t, domain.WithdrawalRejected, rejected.Status)
	assert.Equal(t, "destination does not match account holder", rejected.RejectionReason)
	assert.NotNil(t, rejected.ProcessedAt)

	available, blocked := f.balance(t, acc.ID)
	assert.Equal(t, int64(10000), available)
	assert.Equal(t, int64(0), blocked)
}

func TestRequestPreconditions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	acc := f.verifiedSeller(t, "seller-1", 10000)

	_, err := f.wf.Request(ctx, acc.ID, 0, domain.MethodPIX, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = f.wf.Request(ctx, acc.ID, 4999, domain.MethodPIX, nil)
	assert.ErrorIs(t, err, domain.ErrBelowMinimum)

	_, err = f.wf.Request(ctx, acc.ID, 10001, domain.MethodPIX, nil)
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)

	// No bank data on file and no override supplied.
	_, err = f.wf.Request(ctx, acc.ID, 6000, domain.MethodBank, nil)
	assert.ErrorIs(t, err, domain.ErrMissingPayoutDestination)

	// Nothing above left a reservation behind.
	available, blocked := f.balance(t, acc.ID)
	assert.Equal(t, int64(10000), available)
	assert.Equal(t, int64(0), blocked)
}

func TestRequestRequiresApprovedKYC(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	acc, err := f.reg.Create(ctx, "seller-1", "Loja da Ana")
	require.NoError(t, err)
	_, err = f.led.Append(ctx, ledger.AppendInput{AccountID: acc.ID, Type: domain.TxSaleCredit, AmountCents: 10000})
	require.NoError(t, err)

	_, err = f.wf.Request(ctx, acc.ID, 6000, domain.MethodPIX, nil)
	assert.ErrorIs(t, err, domain.ErrKYCRequired)
}

func TestSingleActiveRequestPerAccount(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	acc := f.verifiedSeller(t, "seller-1", 20000)

	first, err := f.wf.Request(ctx, acc.ID, 6000, domain.MethodPIX, nil)
	require.NoError(t, err)

	_, err = f.wf.Request(ctx, acc.ID, 5000, domain.MethodPIX, nil)
	assert.ErrorIs(t, err, domain.ErrActiveRequestExists)

	// A resolved request unblocks the next one.
	_, err = f.wf.Cancel(ctx, first.ID)
	require.NoError(t, err)
	_, err = f.wf.Request(ctx, acc.ID, 5000, domain.MethodPIX, nil)
	require.NoError(t, err)
}

func TestApproveCompleteFlow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	acc := f.verifiedSeller(t, "seller-1", 10000)

	req, err := f.wf.Request(ctx, acc.ID, 6000, domain.MethodPIX, nil)
	require.NoError(t, err)

	approved, err := f.wf.Approve(ctx, req.ID, "documents verified")
	require.NoError(t, err)
	assert.Equal(t, domain.WithdrawalApproved, approved.Status)
	assert.Equal(t, "documents verified", approved.AdminNote)

	completed, err := f.wf.Complete(ctx, req.ID, "bank-tx-42")
	require.NoError(t, err)
	assert.Equal(t, domain.WithdrawalCompleted, completed.Status)
	assert.Equal(t, "bank-tx-42", completed.ExternalTransactionID)

	available, blocked := f.balance(t, acc.ID)
	assert.Equal(t, int64(4000), available)
	assert.Equal(t, int64(0), blocked)

	got, err := f.store.Accounts().GetByID(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(6000), got.TotalWithdrawnCents)

	// The debit row brings the fold in line with the projection.
	require.NoError(t, f.led.Reconcile(ctx, acc.ID))

	// Completing again must not debit twice.
	_, err = f.wf.Complete(ctx, req.ID, "bank-tx-42")
	assert.ErrorIs(t, err, domain.ErrDuplicateAction)
	available, _ = f.balance(t, acc.ID)
	assert.Equal(t, int64(4000), available)
}

func TestCancelFromAnyNonTerminalState(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	acc := f.verifiedSeller(t, "seller-1", 10000)

	req, err := f.wf.Request(ctx, acc.ID, 6000, domain.MethodPIX, nil)
	require.NoError(t, err)
	_, err = f.wf.Approve(ctx, req.ID, "")
	require.NoError(t, err)

	cancelled, err := f.wf.Cancel(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.WithdrawalCancelled, cancelled.Status)

	available, blocked := f.balance(t, acc.ID)
	assert.Equal(t, int64(10000), available)
	assert.Equal(t, int64(0), blocked)

	_, err = f.wf.Cancel(ctx, req.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestTransitionMatrix(t *testing.T) {
	ctx := context.Background()

	// Each case drives a fresh request into a starting state, applies one
	// transition and checks the outcome.
	cases := []struct {
		name    string
		prepare func(t *testing.T, f *fixture, id string)
		act     func(t *testing.T, f *fixture, id string) error
		wantErr error
	}{
		{
			name:    "approve pending",
			prepare: func(t *testing.T, f *fixture, id string) {},
			act: func(t *testing.T, f *fixture, id string) error {
				_, err := f.wf.Approve(ctx, id, "")
				return err
			},
		},
		{
			name: "approve twice",
			prepare: func(t *testing.T, f *fixture, id string) {
				_, err := f.wf.Approve(ctx, id, "")
				require.NoError(t, err)
			},
			act: func(t *testing.T, f *fixture, id string) error {
				_, err := f.wf.Approve(ctx, id, "")
				return err
			},
			wantErr: domain.ErrInvalidTransition,
		},
		{
			name: "reject approved",
			prepare: func(t *testing.T, f *fixture, id string) {
				_, err := f.wf.Approve(ctx, id, "")
				require.NoError(t, err)
			},
			act: func(t *testing.T, f *fixture, id string) error {
				_, err := f.wf.Reject(ctx, id, "too late")
				return err
			},
			wantErr: domain.ErrInvalidTransition,
		},
		{
			name:    "mark processing from pending",
			prepare: func(t *testing.T, f *fixture, id string) {},
			act: func(t *testing.T, f *fixture, id string) error {
				_, err := f.wf.MarkProcessing(ctx, id)
				return err
			},
			wantErr: domain.ErrInvalidTransition,
		},
		{
			name: "mark processing twice is a no-op",
			prepare: func(t *testing.T, f *fixture, id string) {
				_, err := f.wf.Approve(ctx, id, "")
				require.NoError(t, err)
				_, err = f.wf.MarkProcessing(ctx, id)
				require.NoError(t, err)
			},
			act: func(t *testing.T, f *fixture, id string) error {
				req, err := f.wf.MarkProcessing(ctx, id)
				if err == nil {
					assert.Equal(t, domain.WithdrawalProcessing, req.Status)
				}
				return err
			},
		},
		{
			name:    "complete pending",
			prepare: func(t *testing.T, f *fixture, id string) {},
			act: func(t *testing.T, f *fixture, id string) error {
				_, err := f.wf.Complete(ctx, id, "x")
				return err
			},
			wantErr: domain.ErrInvalidTransition,
		},
		{
			name: "revert processing to approved",
			prepare: func(t *testing.T, f *fixture, id string) {
				_, err := f.wf.Approve(ctx, id, "")
				require.NoError(t, err)
				_, err = f.wf.MarkProcessing(ctx, id)
				require.NoError(t, err)
			},
			act: func(t *testing.T, f *fixture, id string) error {
				req, err := f.wf.RevertToApproved(ctx, id, "rail rejected the key")
				if err == nil {
					assert.Equal(t, domain.WithdrawalApproved, req.Status)
					assert.Equal(t, "rail rejected the key", req.FailureReason)
				}
				return err
			},
		},
		{
			name:    "revert approved",
			prepare: func(t *testing.T, f *fixture, id string) {},
			act: func(t *testing.T, f *fixture, id string) error {
				_, err := f.wf.RevertToApproved(ctx, id, "x")
				return err
			},
			wantErr: domain.ErrInvalidTransition,
		},
		{
			name: "mark processing after completion",
			prepare: func(t *testing.T, f *fixture, id string) {
				_, err := f.wf.Approve(ctx, id, "")
				require.NoError(t, err)
				_, err = f.wf.Complete(ctx, id, "x")
				require.NoError(t, err)
			},
			act: func(t *testing.T, f *fixture, id string) error {
				_, err := f.wf.MarkProcessing(ctx, id)
				return err
			},
			wantErr: domain.ErrDuplicateAction,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			acc := f.verifiedSeller(t, "seller-1", 10000)
			req, err := f.wf.Request(ctx, acc.ID, 6000, domain.MethodPIX, nil)
			require.NoError(t, err)

			tc.prepare(t, f, req.ID)
			err = tc.act(t, f, req.ID)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDestinationIsSnapshottedAtRequestTime(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	acc := f.verifiedSeller(t, "seller-1", 10000)

	req, err := f.wf.Request(ctx, acc.ID, 6000, domain.MethodPIX, nil)
	require.NoError(t, err)

	// Changing the account's live destination never touches the in-flight
	// request.
	_, err = f.reg.SetPayoutDestination(ctx, acc.ID, domain.PayoutDestination{
		Method:     domain.MethodPIX,
		PIXKey:     "new-key@example.com",
		PIXKeyType: domain.PIXKeyEmail,
	})
	require.NoError(t, err)

	got, err := f.wf.Get(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, "seller-1@example.com", got.Destination.PIXKey)
}

func TestRequestWithDestinationOverride(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	acc := f.verifiedSeller(t, "seller-1", 10000)

	req, err := f.wf.Request(ctx, acc.ID, 6000, domain.MethodBank, &domain.PayoutDestination{
		Method:      domain.MethodBank,
		BankName:    "Banco Azul",
		BankAgency:  "0001",
		BankAccount: "12345-6",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.MethodBank, req.Destination.Method)
	assert.Equal(t, "Banco Azul", req.Destination.BankName)
}

func TestListFiltersByStatusAndAccount(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.verifiedSeller(t, "seller-1", 20000)
	b := f.verifiedSeller(t, "seller-2", 20000)

	reqA, err := f.wf.Request(ctx, a.ID, 6000, domain.MethodPIX, nil)
	require.NoError(t, err)
	reqB, err := f.wf.Request(ctx, b.ID, 7000, domain.MethodPIX, nil)
	require.NoError(t, err)
	_, err = f.wf.Approve(ctx, reqB.ID, "")
	require.NoError(t, err)

	pending, err := f.wf.List(ctx, domain.WithdrawalPending, "")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, reqA.ID, pending[0].ID)

	mine, err := f.wf.List(ctx, "", b.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, reqB.ID, mine[0].ID)

	all, err := f.wf.List(ctx, "", "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
