package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	// StatusPending marks the placeholder row created before items are
	// attached. It is only ever visible inside the commit transaction.
	StatusPending OrderStatus = "PENDING"

	// StatusCompleted is the terminal success state.
	StatusCompleted OrderStatus = "COMPLETED"
)

// Order is the aggregate root for a sale. Totals are always recomputed from
// the item rows, never patched incrementally.
type Order struct {
	ID         int64           `json:"id" db:"id"`
	SellerID   int64           `json:"sellerId" db:"seller_id"`
	Subtotal   decimal.Decimal `json:"subtotal" db:"subtotal"`
	TaxTotal   decimal.Decimal `json:"taxTotal" db:"tax_total"`
	GrandTotal decimal.Decimal `json:"grandTotal" db:"grand_total"`
	Status     OrderStatus     `json:"status" db:"status"`
	CreatedAt  time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt  time.Time       `json:"updatedAt" db:"updated_at"`
}

// OrderItem is one committed line of an order. Price and tax rate are
// snapshots taken from the locked stock unit at commit time and are immutable
// afterwards; item rows are deleted and re-created, not mutated, when an
// order is updated.
type OrderItem struct {
	ID             int64           `json:"-" db:"id"`
	OrderID        int64           `json:"-" db:"order_id"`
	ProductID      int64           `json:"productId" db:"product_id"`
	StockUnitID    int64           `json:"stockUnitId" db:"stock_unit_id"`
	Quantity       int             `json:"quantity" db:"quantity"`
	UnitPrice      decimal.Decimal `json:"unitPrice" db:"unit_price"`
	TaxRatePercent decimal.Decimal `json:"taxRatePercent" db:"tax_rate_percent"`
	TaxAmount      decimal.Decimal `json:"taxAmount" db:"tax_amount"`
	LineTotal      decimal.Decimal `json:"lineTotal" db:"line_total"`
}

// OrderLineRequest is a single (stock unit, quantity) pair submitted by the
// caller. It is validated and translated into committed items; nothing in it
// is trusted for pricing.
type OrderLineRequest struct {
	StockUnitID int64 `json:"stockUnitId"`
	Quantity    int   `json:"quantity"`
}

// OrderRequest is the payload for committing a new order.
type OrderRequest struct {
	SellerID int64              `json:"sellerId"`
	Items    []OrderLineRequest `json:"items"`
}

// OrderResponse is the payload returned for commit, update and read.
type OrderResponse struct {
	OrderID    int64           `json:"orderId"`
	SellerID   int64           `json:"sellerId"`
	Status     OrderStatus     `json:"status"`
	Subtotal   decimal.Decimal `json:"subtotal"`
	TaxTotal   decimal.Decimal `json:"taxTotal"`
	GrandTotal decimal.Decimal `json:"grandTotal"`
	Items      []OrderItem     `json:"items"`
}
