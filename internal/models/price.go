package models

import (
	"github.com/shopspring/decimal"
)

// MaxDiscountPercent is the largest discount a price-bearing record may carry.
const MaxDiscountPercent = 80

var hundred = decimal.NewFromInt(100)

// Price is embedded into every price-bearing record. EndUserPrice and Profit
// are derived and recalculated on every save.
type Price struct {
	CostPrice       decimal.Decimal `json:"cost_price" gorm:"type:decimal(10,2);not null"`
	SellingPrice    decimal.Decimal `json:"selling_price" gorm:"type:decimal(10,2);not null"`
	DiscountPercent int             `json:"discount_percent" gorm:"not null"`
	EndUserPrice    decimal.Decimal `json:"end_user_price" gorm:"type:decimal(10,2);not null"`
	Profit          decimal.Decimal `json:"profit" gorm:"type:decimal(10,2);not null"`
}

// EndUserPrice applies a percent discount and rounds half-up to cents.
func EndUserPrice(selling decimal.Decimal, discountPercent int) decimal.Decimal {
	return selling.Mul(decimal.NewFromInt(int64(100 - discountPercent))).Div(hundred).Round(2)
}

// Recalculate refreshes the derived fields from the stored inputs.
func (p *Price) Recalculate() {
	p.EndUserPrice = EndUserPrice(p.SellingPrice, p.DiscountPercent)
	p.Profit = p.EndUserPrice.Sub(p.CostPrice)
}

// Validate returns field-level messages keyed by json field name.
func (p *Price) Validate() map[string]string {
	errs := make(map[string]string)
	if p.CostPrice.IsNegative() {
		errs["cost_price"] = "Ensure this value is greater than or equal to 0."
	}
	if p.SellingPrice.IsNegative() {
		errs["selling_price"] = "Ensure this value is greater than or equal to 0."
	}
	if p.DiscountPercent < 0 {
		errs["discount_percent"] = "Ensure this value is greater than or equal to 0."
	} else if p.DiscountPercent > MaxDiscountPercent {
		errs["discount_percent"] = "Ensure this value is less than or equal to 80."
	}
	return errs
}

// Scaled returns a copy with cost and selling price multiplied by quantity.
// The discount percent is carried over unchanged.
func (p Price) Scaled(quantity int) Price {
	q := decimal.NewFromInt(int64(quantity))
	scaled := Price{
		CostPrice:       p.CostPrice.Mul(q),
		SellingPrice:    p.SellingPrice.Mul(q),
		DiscountPercent: p.DiscountPercent,
	}
	scaled.Recalculate()
	return scaled
}

// Totals is the aggregate price shape of Order and Check: sums over lines,
// no discount of its own.
type Totals struct {
	CostPrice    decimal.Decimal `json:"cost_price" gorm:"type:decimal(12,2);not null"`
	SellingPrice decimal.Decimal `json:"selling_price" gorm:"type:decimal(12,2);not null"`
	EndUserPrice decimal.Decimal `json:"end_user_price" gorm:"type:decimal(12,2);not null"`
	Profit       decimal.Decimal `json:"profit" gorm:"type:decimal(12,2);not null"`
	ItemsTotal   int             `json:"items_total" gorm:"not null"`
}

// SumLines rebuilds the totals from the given line prices and quantities.
func SumLines(prices []Price, quantities []int) Totals {
	t := Totals{
		CostPrice:    decimal.Zero,
		SellingPrice: decimal.Zero,
		EndUserPrice: decimal.Zero,
	}
	for _, p := range prices {
		t.CostPrice = t.CostPrice.Add(p.CostPrice)
		t.SellingPrice = t.SellingPrice.Add(p.SellingPrice)
		t.EndUserPrice = t.EndUserPrice.Add(p.EndUserPrice)
	}
	for _, q := range quantities {
		t.ItemsTotal += q
	}
	t.CostPrice = t.CostPrice.Round(2)
	t.SellingPrice = t.SellingPrice.Round(2)
	t.EndUserPrice = t.EndUserPrice.Round(2)
	t.Profit = t.EndUserPrice.Sub(t.CostPrice)
	return t
}
