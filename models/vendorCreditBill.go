package models

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// VendorCreditBill records one application of a vendor credit against one bill.
type VendorCreditBill struct {
	ID                 int             `gorm:"primary_key" json:"id"`
	BusinessId         string          `gorm:"index;not null" json:"business_id"`
	VendorCreditId     int             `gorm:"index;not null" json:"vendor_credit_id"`
	VendorCreditNumber string          `gorm:"size:255;default:null" json:"vendor_credit_number"`
	BillId             int             `gorm:"index;not null" json:"bill_id"`
	BillNumber         string          `gorm:"size:255;default:null" json:"bill_number"`
	VendorId           int             `gorm:"not null" json:"vendor_id"`
	AppliedDate        time.Time       `gorm:"not null" json:"applied_date"`
	Amount             decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount"`
	RequestKey         string          `gorm:"size:64;index;default:null" json:"request_key"`
	CreatedAt          time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func FetchAppliedByRequestKey(ctx context.Context, db *gorm.DB, businessId string, creditId int, requestKey string) ([]VendorCreditBill, error) {
	var records []VendorCreditBill
	if requestKey == "" {
		return records, nil
	}
	err := db.WithContext(ctx).
		Where("business_id = ? AND vendor_credit_id = ? AND request_key = ?", businessId, creditId, requestKey).
		Order("bill_id").
		Find(&records).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	return records, nil
}
