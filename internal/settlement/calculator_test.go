package settlement_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vendahub/ledger/internal/account"
	"github.com/vendahub/ledger/internal/domain"
	"github.com/vendahub/ledger/internal/ledger"
	"github.com/vendahub/ledger/internal/port"
	"github.com/vendahub/ledger/internal/settlement"
	"github.com/vendahub/ledger/internal/storage/memory"
)

type fixture struct {
	store *memory.Store
	led   *ledger.Store
	reg   *account.Registry
	calc  *settlement.Calculator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()
	led := ledger.New(store.Accounts(), store.Transactions(), zerolog.Nop())
	reg := account.NewRegistry(store.Accounts(), led, zerolog.Nop())
	calc := settlement.NewCalculator(store.Orders(), store.Costs(), reg, led, store.Transactions(), store.Accounts(), 70, zerolog.Nop())
	return &fixture{store: store, led: led, reg: reg, calc: calc}
}

func cents(v int64) *int64 { return &v }

func checkIdentity(t *testing.T, s *domain.OrderSettlement) {
	t.Helper()
	assert.Equal(t,
		s.OrderTotalCents-s.FreightCents,
		s.ItemCostCents+s.PackagingCostCents+s.CommissionTotalCents()+s.PlatformRevenueCents,
		"settlement identity must hold")
}

func TestBreakdownSplitsOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	// R$ 149,90 order: one platform item, one dropship item with a 10%
	// commission on its R$ 50,00 sale value.
	f.store.PutOrder(&domain.Order{
		ID:                 "order-1",
		TotalCents:         14990,
		FreightCents:       1500,
		PackagingCostCents: 500,
		Items: []domain.OrderItem{
			{ProductID: "p-platform", Quantity: 1, UnitPriceCents: 9990, UnitSupplierCostCents: cents(5000), Owner: domain.OwnerPlatform},
			{ProductID: "p-dropship", Quantity: 1, UnitPriceCents: 5000, UnitSupplierCostCents: cents(2000), Owner: domain.OwnerSellerDropship, SellerID: "seller-1", CommissionBps: 1000},
		},
	})

	s, err := f.calc.Breakdown(ctx, "order-1")
	require.NoError(t, err)

	assert.Equal(t, int64(7000), s.ItemCostCents)
	assert.Equal(t, int64(500), s.PackagingCostCents)
	require.Len(t, s.Commissions, 1)
	assert.Equal(t, "seller-1", s.Commissions[0].SellerID)
	assert.Equal(t, int64(500), s.Commissions[0].CommissionCents)
	assert.Equal(t, int64(5490), s.PlatformRevenueCents)
	assert.False(t, s.HasEstimatedCosts)
	checkIdentity(t, s)
}

func TestBreakdownUnknownOrder(t *testing.T) {
	f := newFixture(t)
	_, err := f.calc.Breakdown(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestUnitCostFallbackChain(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	// p-snapshot has a recorded cost; p-unknown has nothing and falls back
	// to 70% of the sale price, flagged as an estimate.
	f.store.PutUnitCost("p-snapshot", 3000)
	f.store.PutOrder(&domain.Order{
		ID:         "order-1",
		TotalCents: 20000,
		Items: []domain.OrderItem{
			{ProductID: "p-snapshot", Quantity: 1, UnitPriceCents: 8000, Owner: domain.OwnerPlatform},
			{ProductID: "p-unknown", Quantity: 1, UnitPriceCents: 12000, Owner: domain.OwnerPlatform},
		},
	})

	s, err := f.calc.Breakdown(ctx, "order-1")
	require.NoError(t, err)
	require.Len(t, s.Lines, 2)

	assert.Equal(t, int64(3000), s.Lines[0].UnitCostCents)
	assert.False(t, s.Lines[0].CostEstimated)

	assert.Equal(t, int64(8400), s.Lines[1].UnitCostCents) // 70% of 12000
	assert.True(t, s.Lines[1].CostEstimated)
	assert.True(t, s.HasEstimatedCosts)
	checkIdentity(t, s)
}

func TestCommissionTruncationStaysWithPlatform(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	// 3.33% of 9999 = 332.96...: the fractional cent is truncated from the
	// commission and therefore remains inside platform revenue.
	f.store.PutOrder(&domain.Order{
		ID:         "order-1",
		TotalCents: 9999,
		Items: []domain.OrderItem{
			{ProductID: "p-1", Quantity: 1, UnitPriceCents: 9999, UnitSupplierCostCents: cents(4000), Owner: domain.OwnerSellerDropship, SellerID: "seller-1", CommissionBps: 333},
		},
	})

	s, err := f.calc.Breakdown(ctx, "order-1")
	require.NoError(t, err)
	assert.Equal(t, int64(332), s.Commissions[0].CommissionCents)
	checkIdentity(t, s)
}

func TestSellerOwnEarnsNoCommission(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.store.PutOrder(&domain.Order{
		ID:         "order-1",
		TotalCents: 10000,
		Items: []domain.OrderItem{
			{ProductID: "p-1", Quantity: 2, UnitPriceCents: 5000, UnitSupplierCostCents: cents(3000), Owner: domain.OwnerSellerOwn, SellerID: "seller-1", CommissionBps: 1000},
		},
	})

	s, err := f.calc.Breakdown(ctx, "order-1")
	require.NoError(t, err)
	assert.Empty(t, s.Commissions)
	checkIdentity(t, s)
}

func TestSettleCreditsDropshipSellers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	acc, err := f.reg.Create(ctx, "seller-1", "Loja da Ana")
	require.NoError(t, err)

	f.store.PutOrder(&domain.Order{
		ID:         "order-1",
		TotalCents: 14990,
		Items: []domain.OrderItem{
			{ProductID: "p-1", Quantity: 2, UnitPriceCents: 5000, UnitSupplierCostCents: cents(2000), Owner: domain.OwnerSellerDropship, SellerID: "seller-1", CommissionBps: 1000},
		},
	})

	s, err := f.calc.Settle(ctx, "order-1")
	require.NoError(t, err)
	require.Len(t, s.Commissions, 1)
	assert.Equal(t, int64(1000), s.Commissions[0].CommissionCents)

	available, _, err := f.led.Balance(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), available)

	rows, err := f.led.History(ctx, acc.ID, port.TransactionFilter{Type: domain.TxSaleCredit, RelatedOrderID: "order-1"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Contains(t, rows[0].Description, "order-1")
}

func TestSettleIsIdempotentPerOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	acc, err := f.reg.Create(ctx, "seller-1", "Loja da Ana")
	require.NoError(t, err)

	f.store.PutOrder(&domain.Order{
		ID:         "order-1",
		TotalCents: 10000,
		Items: []domain.OrderItem{
			{ProductID: "p-1", Quantity: 1, UnitPriceCents: 10000, UnitSupplierCostCents: cents(4000), Owner: domain.OwnerSellerDropship, SellerID: "seller-1", CommissionBps: 1500},
		},
	})

	_, err = f.calc.Settle(ctx, "order-1")
	require.NoError(t, err)
	_, err = f.calc.Settle(ctx, "order-1")
	require.NoError(t, err)

	available, _, err := f.led.Balance(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1500), available)

	rows, err := f.led.History(ctx, acc.ID, port.TransactionFilter{Type: domain.TxSaleCredit, RelatedOrderID: "order-1"})
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	// A different order credits again.
	f.store.PutOrder(&domain.Order{
		ID:         "order-2",
		TotalCents: 10000,
		Items: []domain.OrderItem{
			{ProductID: "p-1", Quantity: 1, UnitPriceCents: 10000, UnitSupplierCostCents: cents(4000), Owner: domain.OwnerSellerDropship, SellerID: "seller-1", CommissionBps: 1500},
		},
	})
	_, err = f.calc.Settle(ctx, "order-2")
	require.NoError(t, err)
	available, _, err = f.led.Balance(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3000), available)
}

func TestSettleFailsBeforeAnyCreditOnUnknownSeller(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	known, err := f.reg.Create(ctx, "seller-1", "Loja da Ana")
	require.NoError(t, err)

	f.store.PutOrder(&domain.Order{
		ID:         "order-1",
		TotalCents: 20000,
		Items: []domain.OrderItem{
			{ProductID: "p-1", Quantity: 1, UnitPriceCents: 10000, UnitSupplierCostCents: cents(4000), Owner: domain.OwnerSellerDropship, SellerID: "seller-1", CommissionBps: 1000},
			{ProductID: "p-2", Quantity: 1, UnitPriceCents: 10000, UnitSupplierCostCents: cents(4000), Owner: domain.OwnerSellerDropship, SellerID: "seller-ghost", CommissionBps: 1000},
		},
	})

	_, err = f.calc.Settle(ctx, "order-1")
	require.ErrorIs(t, err, domain.ErrAccountNotFound)

	// The known seller was not credited either: accounts are resolved
	// before any ledger write.
	available, _, err := f.led.Balance(ctx, known.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), available)
}

func TestSettleRefusesNonActiveAccount(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	acc, err := f.reg.Create(ctx, "seller-1", "Loja da Ana")
	require.NoError(t, err)
	_, err = f.led.Append(ctx, ledger.AppendInput{
		AccountID: acc.ID, Type: domain.TxSaleCredit, AmountCents: 1000, Description: "previous sale",
	})
	require.NoError(t, err)

	f.store.PutOrder(&domain.Order{
		ID:         "order-1",
		TotalCents: 10000,
		Items: []domain.OrderItem{
			{ProductID: "p-1", Quantity: 1, UnitPriceCents: 10000, UnitSupplierCostCents: cents(4000), Owner: domain.OwnerSellerDropship, SellerID: "seller-1", CommissionBps: 1000},
		},
	})

	for _, status := range []domain.AccountStatus{domain.AccountSuspended, domain.AccountBlocked} {
		t.Run(string(status), func(t *testing.T) {
			_, err := f.reg.SetStatus(ctx, acc.ID, status)
			require.NoError(t, err)

			_, err = f.calc.Settle(ctx, "order-1")
			require.ErrorIs(t, err, domain.ErrAccountBlocked)

			available, _, err := f.led.Balance(ctx, acc.ID)
			require.NoError(t, err)
			assert.Equal(t, int64(1000), available, "status gate must stop the credit")
		})
	}

	// Reactivating the account lets the same order settle.
	_, err = f.reg.SetStatus(ctx, acc.ID, domain.AccountActive)
	require.NoError(t, err)
	_, err = f.calc.Settle(ctx, "order-1")
	require.NoError(t, err)
	available, _, err := f.led.Balance(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), available)
}

func TestSettleWithEstimatedCostsStillCredits(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	acc, err := f.reg.Create(ctx, "seller-1", "Loja da Ana")
	require.NoError(t, err)

	// No supplier cost anywhere: the cost side is estimated, but the
	// commission comes from the sale price alone and settles normally.
	f.store.PutOrder(&domain.Order{
		ID:         "order-1",
		TotalCents: 10000,
		Items: []domain.OrderItem{
			{ProductID: "p-1", Quantity: 1, UnitPriceCents: 10000, Owner: domain.OwnerSellerDropship, SellerID: "seller-1", CommissionBps: 1000},
		},
	})

	s, err := f.calc.Settle(ctx, "order-1")
	require.NoError(t, err)
	assert.True(t, s.HasEstimatedCosts)

	available, _, err := f.led.Balance(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), available)
	checkIdentity(t, s)
}
