package domain

import "time"

// OwnerTag marks the economic owner of an order line item.
type OwnerTag string

const (
	// OwnerPlatform is platform-owned stock; the full margin stays with
	// the platform.
	OwnerPlatform OwnerTag = "platform"
	// OwnerSellerOwn is a seller's own stock; no dropshipping commission.
	OwnerSellerOwn OwnerTag = "seller_own"
	// OwnerSellerDropship is fulfilled via a seller-sourced supplier; the
	// seller earns a commission on the item's sale value.
	OwnerSellerDropship OwnerTag = "seller_dropship"
)

// Order is the read-only view of an order consumed from the order source.
type Order struct {
	ID                 string      `json:"id"`
	TotalCents         int64       `json:"totalCents"`
	FreightCents       int64       `json:"freightCents"`
	DiscountCents      int64       `json:"discountCents"`
	PackagingCostCents int64       `json:"packagingCostCents"`
	Items              []OrderItem `json:"items"`
}

// OrderItem is one order line. UnitSupplierCostCents is nil when the real
// supplier cost is unknown. CommissionBps is the dropshipping commission in
// basis points (10% = 1000) and only applies to seller_dropship lines.
type OrderItem struct {
	ProductID             string   `json:"productId"`
	Quantity              int      `json:"quantity"`
	UnitPriceCents        int64    `json:"unitPriceCents"`
	UnitSupplierCostCents *int64   `json:"unitSupplierCostCents,omitempty"`
	Owner                 OwnerTag `json:"owner"`
	SellerID              string   `json:"sellerId,omitempty"`
	CommissionBps         int64    `json:"commissionBps,omitempty"`
}

// SettlementLine is the per-item result of a settlement computation.
type SettlementLine struct {
	ProductID       string   `json:"productId"`
	Owner           OwnerTag `json:"owner"`
	SellerID        string   `json:"sellerId,omitempty"`
	Quantity        int      `json:"quantity"`
	UnitPriceCents  int64    `json:"unitPriceCents"`
	UnitCostCents   int64    `json:"unitCostCents"`
	CostEstimated   bool     `json:"costEstimated"`
	CommissionCents int64    `json:"commissionCents"`
}

// SellerCommission is the total dropshipping commission owed to one seller
// for one order.
type SellerCommission struct {
	SellerID        string `json:"sellerId"`
	CommissionCents int64  `json:"commissionCents"`
}

// OrderSettlement is the derived split of one order's payment. It is not a
// persisted entity; it is recomputed on demand from the order's line items.
//
// Invariant: ItemCostCents + PackagingCostCents + sum(Commissions) +
// PlatformRevenueCents == OrderTotalCents - FreightCents. Freight charged to
// the customer is revenue, never a cost.
type OrderSettlement struct {
	OrderID              string             `json:"orderId"`
	OrderTotalCents      int64              `json:"orderTotalCents"`
	FreightCents         int64              `json:"freightCents"`
	ItemCostCents        int64              `json:"itemCostCents"`
	PackagingCostCents   int64              `json:"packagingCostCents"`
	Commissions          []SellerCommission `json:"commissions"`
	PlatformRevenueCents int64              `json:"platformRevenueCents"`
	HasEstimatedCosts    bool               `json:"hasEstimatedCosts"`
	Lines                []SettlementLine   `json:"lines"`
	ComputedAt           time.Time          `json:"computedAt"`
}

// CommissionTotalCents sums all seller commissions in the breakdown.
func (s *OrderSettlement) CommissionTotalCents() int64 {
	var total int64
	for _, c := range s.Commissions {
		total += c.CommissionCents
	}
	return total
}
