package models

import (
	"context"
	"slices"
	"time"

	"github.com/mmdatafocus/vendor_credits/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Bill struct {
	ID             int                `gorm:"primary_key" json:"id"`
	BusinessId     string             `gorm:"index;not null" json:"business_id"`
	VendorId       int                `gorm:"index;not null" json:"vendor_id"`
	BillNumber     string             `gorm:"size:255;not null" json:"bill_number"`
	BillDate       time.Time          `gorm:"not null" json:"bill_date"`
	Total          decimal.Decimal    `gorm:"type:decimal(20,4);default:0" json:"total"`
	AmountPaid     decimal.Decimal    `gorm:"type:decimal(20,4);default:0" json:"amount_paid"`
	BalanceDue     decimal.Decimal    `gorm:"type:decimal(20,4);default:0" json:"balance_due"`
	CurrentStatus  BillStatus         `gorm:"size:20;not null" json:"current_status"`
	CreditsApplied []VendorCreditBill `gorm:"foreignKey:BillId" json:"credits_applied"`
	CreatedAt      time.Time          `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time          `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsEligibleForCredit is true for bills that still owe money and are neither paid nor void.
func (b Bill) IsEligibleForCredit() bool {
	if b.CurrentStatus == BillStatusPaid || b.CurrentStatus == BillStatusVoid {
		return false
	}
	return b.BalanceDue.IsPositive()
}

func (b Bill) CreditsAppliedTotal() decimal.Decimal {
	total := decimal.Zero
	for _, c := range b.CreditsApplied {
		total = total.Add(c.Amount)
	}
	return total
}

// ExpectedBalanceDue recomputes the balance from total, payments and applied credits.
// A stored BalanceDue that disagrees with it points at a write that skipped the credit path.
func (b Bill) ExpectedBalanceDue() decimal.Decimal {
	return decimal.Max(b.Total.Sub(b.AmountPaid).Sub(b.CreditsAppliedTotal()), decimal.Zero)
}

func (b *Bill) applyCredit(record VendorCreditBill) {
	b.BalanceDue = decimal.Max(b.BalanceDue.Sub(record.Amount), decimal.Zero)
	b.CreditsApplied = append(slices.Clone(b.CreditsApplied), record)
	if utils.IsZeroCurrency(b.BalanceDue) {
		b.CurrentStatus = BillStatusPaid
	}
}

// FetchVendorBills lists a vendor's bills, oldest first.
func FetchVendorBills(ctx context.Context, db *gorm.DB, businessId string, vendorId int) ([]Bill, error) {
	var bills []Bill
	err := db.WithContext(ctx).
		Where("business_id = ? AND vendor_id = ?", businessId, vendorId).
		Preload("CreditsApplied").
		Order("bill_date").Order("id").
		Find(&bills).Error
	if err != nil {
		return nil, err
	}
	return bills, nil
}

func FetchBillsForUpdate(ctx context.Context, tx *gorm.DB, businessId string, ids []int) ([]Bill, error) {
	var bills []Bill
	if len(ids) == 0 {
		return bills, nil
	}
	err := tx.WithContext(ctx).
		Clauses(utils.LockingForUpdate()).
		Where("business_id = ? AND id IN ?", businessId, ids).
		Preload("CreditsApplied").
		Order("id").
		Find(&bills).Error
	if err != nil {
		return nil, err
	}
	return bills, nil
}
