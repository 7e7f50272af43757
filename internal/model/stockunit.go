package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockUnit is one sellable product+variation pairing with its own price,
// tax rate and stock count. Rows are mutated only through the ledger's
// reserve/release operations while the row lock is held.
type StockUnit struct {
	ID             int64           `json:"id" db:"id"`
	ProductID      int64           `json:"productId" db:"product_id"`
	ProductName    string          `json:"productName" db:"product_name"`
	VariationName  string          `json:"variationName" db:"variation_name"`
	UnitPrice      decimal.Decimal `json:"unitPrice" db:"unit_price"`
	TaxRatePercent decimal.Decimal `json:"taxRatePercent" db:"tax_rate_percent"`
	StockOnHand    int             `json:"stockOnHand" db:"stock_on_hand"`
	CreatedAt      time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time       `json:"updatedAt" db:"updated_at"`
}
