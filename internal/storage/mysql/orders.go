package mysql

import (
	"context"
	"database/sql"
	"errors"

	"github.com/vendahub/ledger/internal/domain"
)

// orderSource reads orders and their line items from the marketplace
// tables. The ledger never writes them.
type orderSource struct{ s *Store }

func (r *orderSource) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	var o domain.Order
	err := r.s.q(ctx).QueryRowContext(ctx,
		`SELECT id, total_cents, freight_cents, discount_cents, packaging_cost_cents
		 FROM orders WHERE id = ?`, orderID,
	).Scan(&o.ID, &o.TotalCents, &o.FreightCents, &o.DiscountCents, &o.PackagingCostCents)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.s.q(ctx).QueryContext(ctx,
		`SELECT product_id, quantity, unit_price_cents, unit_supplier_cost_cents,
			owner, seller_id, commission_bps
		 FROM order_items WHERE order_id = ? ORDER BY product_id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var it domain.OrderItem
		var cost sql.NullInt64
		err := rows.Scan(&it.ProductID, &it.Quantity, &it.UnitPriceCents, &cost,
			&it.Owner, &it.SellerID, &it.CommissionBps)
		if err != nil {
			return nil, err
		}
		if cost.Valid {
			it.UnitSupplierCostCents = &cost.Int64
		}
		o.Items = append(o.Items, it)
	}
	return &o, rows.Err()
}

// costHistory reads the most recent supplier cost snapshot for a product.
type costHistory struct{ s *Store }

func (r *costHistory) LastKnownUnitCost(ctx context.Context, productID string) (int64, bool, error) {
	var cost int64
	err := r.s.q(ctx).QueryRowContext(ctx,
		`SELECT unit_cost_cents FROM product_cost_snapshots
		 WHERE product_id = ? ORDER BY recorded_at DESC LIMIT 1`, productID,
	).Scan(&cost)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return cost, true, nil
}
