package models

import (
	"context"
	"slices"
	"time"

	"github.com/mmdatafocus/vendor_credits/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type VendorCredit struct {
	ID                 int                `gorm:"primary_key" json:"id"`
	BusinessId         string             `gorm:"index;not null" json:"business_id"`
	VendorId           int                `gorm:"index;not null" json:"vendor_id" validate:"required"`
	VendorName         string             `gorm:"size:255" json:"vendor_name"`
	VendorCreditNumber string             `gorm:"size:255;index" json:"vendor_credit_number"`
	ReferenceNumber    string             `gorm:"size:255;default:null" json:"reference_number"`
	OrderNumber        string             `gorm:"size:255;default:null" json:"order_number"`
	VendorCreditDate   time.Time          `gorm:"not null" json:"vendor_credit_date"`
	Subject            string             `gorm:"size:255;default:null" json:"subject"`
	Notes              string             `gorm:"type:text;default:null" json:"notes"`
	Details            []VendorCreditItem `gorm:"foreignKey:VendorCreditId" json:"items" validate:"dive"`
	SubTotal           decimal.Decimal    `gorm:"type:decimal(20,4);default:0" json:"sub_total" validate:"gte=0"`
	DiscountAmount     decimal.Decimal    `gorm:"type:decimal(20,4);default:0" json:"discount_amount" validate:"gte=0"`
	Cgst               decimal.Decimal    `gorm:"type:decimal(20,4);default:0" json:"cgst"`
	Sgst               decimal.Decimal    `gorm:"type:decimal(20,4);default:0" json:"sgst"`
	Igst               decimal.Decimal    `gorm:"type:decimal(20,4);default:0" json:"igst"`
	TdsTcsAmount       decimal.Decimal    `gorm:"type:decimal(20,4);default:0" json:"tds_tcs_amount"`
	Adjustment         decimal.Decimal    `gorm:"type:decimal(20,4);default:0" json:"adjustment"`
	Amount             decimal.Decimal    `gorm:"type:decimal(20,4);default:0" json:"amount" validate:"gte=0"`
	Balance            decimal.Decimal    `gorm:"type:decimal(20,4);default:0" json:"balance" validate:"gte=0"`
	UsedAmount         decimal.Decimal    `gorm:"type:decimal(20,4);default:0" json:"used_amount"`
	RefundedAmount     decimal.Decimal    `gorm:"type:decimal(20,4);default:0" json:"refunded_amount"`
	CurrentStatus      VendorCreditStatus `gorm:"size:20;not null" json:"current_status" validate:"required"`
	CreatedAt          time.Time          `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time          `gorm:"autoUpdateTime" json:"updated_at"`
}

type VendorCreditItem struct {
	ID             int             `gorm:"primary_key" json:"id"`
	VendorCreditId int             `gorm:"index;not null" json:"vendor_credit_id"`
	ItemId         int             `gorm:"index" json:"item_id"`
	ItemName       string          `gorm:"size:255" json:"item_name"`
	Description    string          `gorm:"size:255;default:null" json:"description"`
	HsnSac         string          `gorm:"size:20;default:null" json:"hsn_sac"`
	Account        string          `gorm:"size:100" json:"account"`
	Quantity       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"quantity" validate:"gte=0"`
	Rate           decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"rate" validate:"gte=0"`
	Tax            TaxTag          `gorm:"size:20" json:"tax"`
	Discount       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"discount" validate:"gte=0"`
}

// Amount is the line amount: quantity × rate less the item discount.
func (item VendorCreditItem) Amount() decimal.Decimal {
	return item.Quantity.Mul(item.Rate).Sub(item.Discount)
}

func (vc VendorCredit) Validate() error {
	return utils.ValidateStruct(vc)
}

// CheckAllocatable reports whether the remaining balance may still be applied or refunded.
func (vc VendorCredit) CheckAllocatable() error {
	switch vc.CurrentStatus {
	case VendorCreditStatusOpen:
		return nil
	case VendorCreditStatusVoid:
		return ErrCreditVoided
	case VendorCreditStatusClosed:
		return ErrCreditClosed
	case VendorCreditStatusRefunded:
		return ErrCreditRefunded
	default:
		return ErrCreditNotOpen
	}
}

func (vc *VendorCredit) useAmount(amount decimal.Decimal) error {
	if err := vc.CheckAllocatable(); err != nil {
		return err
	}
	if vc.Balance.LessThan(amount) {
		return ErrAllocationExceedsBalance
	}

	vc.UsedAmount = vc.UsedAmount.Add(amount)
	vc.Balance = vc.Balance.Sub(amount)
	if utils.IsZeroCurrency(vc.Balance) {
		vc.CurrentStatus = VendorCreditStatusClosed
	}
	return nil
}

// Refund pays part or all of the remaining balance back outside the bill path.
// The credit becomes REFUNDED once nothing is left.
func (vc *VendorCredit) Refund(amount decimal.Decimal) error {
	if err := vc.CheckAllocatable(); err != nil {
		return err
	}
	if !amount.IsPositive() || amount.GreaterThan(vc.Balance) {
		return ErrInvalidRefundAmount
	}

	vc.RefundedAmount = vc.RefundedAmount.Add(amount)
	vc.Balance = vc.Balance.Sub(amount)
	if utils.IsZeroCurrency(vc.Balance) {
		vc.CurrentStatus = VendorCreditStatusRefunded
	}
	return nil
}

// Void freezes the credit with whatever balance it has left.
func (vc *VendorCredit) Void() error {
	switch vc.CurrentStatus {
	case VendorCreditStatusDraft, VendorCreditStatusPendingApproval, VendorCreditStatusOpen:
	case VendorCreditStatusVoid:
		return ErrCreditVoided
	default:
		return ErrInvalidStatusTransition
	}
	vc.CurrentStatus = VendorCreditStatusVoid
	return nil
}

// CloneAsDraft copies vendor, lines and totals into a new unsaved DRAFT dated date.
func (vc VendorCredit) CloneAsDraft(date time.Time) VendorCredit {
	clone := vc
	clone.ID = 0
	clone.VendorCreditNumber = ""
	clone.VendorCreditDate = date
	clone.CurrentStatus = VendorCreditStatusDraft
	clone.Balance = vc.Amount
	clone.UsedAmount = decimal.Zero
	clone.RefundedAmount = decimal.Zero
	clone.CreatedAt = time.Time{}
	clone.UpdatedAt = time.Time{}

	clone.Details = make([]VendorCreditItem, len(vc.Details))
	for i, item := range vc.Details {
		item.ID = 0
		item.VendorCreditId = 0
		clone.Details[i] = item
	}
	return clone
}

func (vc VendorCredit) clone() VendorCredit {
	c := vc
	c.Details = slices.Clone(vc.Details)
	return c
}

func FetchVendorCredit(ctx context.Context, db *gorm.DB, businessId string, id int) (*VendorCredit, error) {
	return utils.FetchModel[VendorCredit](ctx, db, businessId, id, "Details")
}

func FetchVendorCreditForUpdate(ctx context.Context, tx *gorm.DB, businessId string, id int) (*VendorCredit, error) {
	return utils.FetchModelForUpdate[VendorCredit](ctx, tx, businessId, id, "Details")
}
