// Package settlement splits one customer payment across the platform,
// sellers and supplier costs, and drives the resulting seller commission
// credits through the ledger.
package settlement

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/vendahub/ledger/internal/account"
	"github.com/vendahub/ledger/internal/domain"
	"github.com/vendahub/ledger/internal/ledger"
	"github.com/vendahub/ledger/internal/port"
)

// DefaultEstimatePercent is the documented fallback for unknown supplier
// costs: 70% of the sale price. Lines priced this way are flagged as
// estimates and never presented as authoritative.
const DefaultEstimatePercent = 70

type Calculator struct {
	orders          port.OrderSource
	costs           port.CostHistory // may be nil
	registry        *account.Registry
	ledger          *ledger.Store
	txs             port.TransactionRepository
	accounts        port.AccountRepository
	estimatePercent int64
	log             zerolog.Logger
}

func NewCalculator(
	orders port.OrderSource,
	costs port.CostHistory,
	registry *account.Registry,
	led *ledger.Store,
	txs port.TransactionRepository,
	accounts port.AccountRepository,
	estimatePercent int64,
	log zerolog.Logger,
) *Calculator {
	if estimatePercent <= 0 || estimatePercent > 100 {
		estimatePercent = DefaultEstimatePercent
	}
	return &Calculator{
		orders:          orders,
		costs:           costs,
		registry:        registry,
		ledger:          led,
		txs:             txs,
		accounts:        accounts,
		estimatePercent: estimatePercent,
		log:             log.With().Str("component", "settlement").Logger(),
	}
}

// Breakdown computes the settlement split for an order:
//
//	itemCost + packaging + sum(commissions) + platformRevenue
//	    == orderTotal - freight
//
// Freight charged to the customer is revenue, not a cost, so it is
// excluded from the cost side. Platform revenue is computed as the
// remainder, which makes the identity exact by construction; fractional
// commission cents lost to integer truncation stay with the platform.
func (c *Calculator) Breakdown(ctx context.Context, orderID string) (*domain.OrderSettlement, error) {
	order, err := c.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	s := &domain.OrderSettlement{
		OrderID:            order.ID,
		OrderTotalCents:    order.TotalCents,
		FreightCents:       order.FreightCents,
		PackagingCostCents: order.PackagingCostCents,
		ComputedAt:         time.Now(),
	}

	perSeller := make(map[string]int64)
	for _, item := range order.Items {
		unitCost, estimated, err := c.unitCost(ctx, item)
		if err != nil {
			return nil, err
		}
		line := domain.SettlementLine{
			ProductID:      item.ProductID,
			Owner:          item.Owner,
			SellerID:       item.SellerID,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
			UnitCostCents:  unitCost,
			CostEstimated:  estimated,
		}
		s.ItemCostCents += unitCost * int64(item.Quantity)
		if estimated {
			s.HasEstimatedCosts = true
		}

		if item.Owner == domain.OwnerSellerDropship && item.SellerID != "" {
			line.CommissionCents = item.UnitPriceCents * int64(item.Quantity) * item.CommissionBps / 10000
			perSeller[item.SellerID] += line.CommissionCents
		}
		s.Lines = append(s.Lines, line)
	}

	sellers := make([]string, 0, len(perSeller))
	for id := range perSeller {
		sellers = append(sellers, id)
	}
	sort.Strings(sellers)
	for _, id := range sellers {
		s.Commissions = append(s.Commissions, domain.SellerCommission{SellerID: id, CommissionCents: perSeller[id]})
	}

	s.PlatformRevenueCents = s.OrderTotalCents - s.FreightCents - s.ItemCostCents - s.PackagingCostCents - s.CommissionTotalCents()
	return s, nil
}

// unitCost resolves a line's unit cost: the order's supplier cost when
// known, else the last recorded cost snapshot, else the configured
// percentage of the sale price flagged as an estimate.
func (c *Calculator) unitCost(ctx context.Context, item domain.OrderItem) (int64, bool, error) {
	if item.UnitSupplierCostCents != nil {
		return *item.UnitSupplierCostCents, false, nil
	}
	if c.costs != nil {
		cost, ok, err := c.costs.LastKnownUnitCost(ctx, item.ProductID)
		if err != nil {
			return 0, false, fmt.Errorf("cost history lookup for %s: %w", item.ProductID, err)
		}
		if ok {
			return cost, false, nil
		}
	}
	return item.UnitPriceCents * c.estimatePercent / 100, true, nil
}

// Settle computes the breakdown and credits each dropship seller's wallet
// with their commission. Credits are idempotent per account and order: a
// second Settle for the same order finds the existing sale_credit rows and
// does not credit again. Estimated item costs never block settlement;
// they only shade the reported platform revenue, while commissions are
// computed from the sale price alone. Credits honor the account status
// gate: a blocked or suspended seller account fails the settlement
// before anything is written.
func (c *Calculator) Settle(ctx context.Context, orderID string) (*domain.OrderSettlement, error) {
	s, err := c.Breakdown(ctx, orderID)
	if err != nil {
		return nil, err
	}

	// Resolve every seller account up front so a missing account surfaces
	// before any credit is written.
	accounts := make(map[string]*domain.Account, len(s.Commissions))
	for _, com := range s.Commissions {
		acc, err := c.registry.GetBySeller(ctx, com.SellerID)
		if err != nil {
			return nil, fmt.Errorf("seller %s: %w", com.SellerID, err)
		}
		accounts[com.SellerID] = acc
	}

	for _, com := range s.Commissions {
		if com.CommissionCents <= 0 {
			continue
		}
		acc := accounts[com.SellerID]
		err := c.accounts.WithAccountLock(ctx, []string{acc.ID}, func(ctx context.Context) error {
			cur, err := c.accounts.GetByID(ctx, acc.ID)
			if err != nil {
				return err
			}
			if err := c.registry.AssertUsable(cur, false); err != nil {
				return err
			}
			existing, err := c.txs.ListByAccount(ctx, acc.ID, port.TransactionFilter{
				Type:           domain.TxSaleCredit,
				RelatedOrderID: orderID,
				Limit:          1,
			})
			if err != nil {
				return err
			}
			if len(existing) > 0 {
				c.log.Info().Str("order", orderID).Str("account", acc.ID).Msg("order already settled for account, skipping credit")
				return nil
			}
			_, err = c.ledger.Record(ctx, ledger.AppendInput{
				AccountID:      acc.ID,
				Type:           domain.TxSaleCredit,
				AmountCents:    com.CommissionCents,
				Description:    fmt.Sprintf("Dropshipping commission for order %s", orderID),
				RelatedOrderID: orderID,
			})
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("credit seller %s: %w", com.SellerID, err)
		}
	}

	c.log.Info().
		Str("order", orderID).
		Int64("platformRevenueCents", s.PlatformRevenueCents).
		Int("sellers", len(s.Commissions)).
		Bool("estimatedCosts", s.HasEstimatedCosts).
		Msg("order settled")
	return s, nil
}
