package workflow

import (
	"github.com/mmdatafocus/vendor_credits/models"
	"github.com/shopspring/decimal"
)

type TaxBreakdown struct {
	Cgst decimal.Decimal `json:"cgst"`
	Sgst decimal.Decimal `json:"sgst"`
	Igst decimal.Decimal `json:"igst"`
}

var decimalOneHundred = decimal.NewFromInt(100)

// ComputeTax derives tax from the items' tags. The taxable base is rate × quantity;
// item discounts do not reduce it. An intra-state bracket is split evenly between
// CGST and SGST, an IGST bracket goes to IGST whole. Untagged lines carry no tax.
func ComputeTax(items []models.VendorCreditItem) TaxBreakdown {
	tb := TaxBreakdown{Cgst: decimal.Zero, Sgst: decimal.Zero, Igst: decimal.Zero}
	for _, item := range items {
		rate, ok := item.Tax.Rate()
		if !ok || rate.IsZero() {
			continue
		}
		base := item.Rate.Mul(item.Quantity)
		switch {
		case item.Tax.IsIntraState():
			half := base.Mul(rate).Div(decimalOneHundred).Div(decimal.NewFromInt(2))
			tb.Cgst = tb.Cgst.Add(half)
			tb.Sgst = tb.Sgst.Add(half)
		case item.Tax.IsInterState():
			tb.Igst = tb.Igst.Add(base.Mul(rate).Div(decimalOneHundred))
		}
	}
	return tb
}
