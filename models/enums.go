package models

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

type VendorCreditStatus string

const (
	VendorCreditStatusDraft           VendorCreditStatus = "DRAFT"
	VendorCreditStatusPendingApproval VendorCreditStatus = "PENDING_APPROVAL"
	VendorCreditStatusOpen            VendorCreditStatus = "OPEN"
	VendorCreditStatusClosed          VendorCreditStatus = "CLOSED"
	VendorCreditStatusVoid            VendorCreditStatus = "VOID"
	VendorCreditStatusRefunded        VendorCreditStatus = "REFUNDED"
)

var vendorCreditStatuses = map[string]VendorCreditStatus{
	"DRAFT":            VendorCreditStatusDraft,
	"PENDING_APPROVAL": VendorCreditStatusPendingApproval,
	"OPEN":             VendorCreditStatusOpen,
	"CLOSED":           VendorCreditStatusClosed,
	"VOID":             VendorCreditStatusVoid,
	"REFUNDED":         VendorCreditStatusRefunded,
}

// ParseVendorCreditStatus accepts any casing; "VOIDED" is read as VOID.
func ParseVendorCreditStatus(s string) (VendorCreditStatus, error) {
	key := strings.ToUpper(strings.TrimSpace(s))
	if key == "VOIDED" {
		key = "VOID"
	}
	status, ok := vendorCreditStatuses[key]
	if !ok {
		return "", errors.New("invalid vendor credit status")
	}
	return status, nil
}

type BillStatus string

const (
	BillStatusDraft   BillStatus = "DRAFT"
	BillStatusOpen    BillStatus = "OPEN"
	BillStatusPartial BillStatus = "PARTIAL"
	BillStatusOverdue BillStatus = "OVERDUE"
	BillStatusPaid    BillStatus = "PAID"
	BillStatusVoid    BillStatus = "VOID"
)

var billStatuses = map[string]BillStatus{
	"DRAFT":   BillStatusDraft,
	"OPEN":    BillStatusOpen,
	"PARTIAL": BillStatusPartial,
	"OVERDUE": BillStatusOverdue,
	"PAID":    BillStatusPaid,
	"VOID":    BillStatusVoid,
}

func ParseBillStatus(s string) (BillStatus, error) {
	status, ok := billStatuses[strings.ToUpper(strings.TrimSpace(s))]
	if !ok {
		return "", errors.New("invalid bill status")
	}
	return status, nil
}

// TaxTag is the tax selection on a credit line, e.g. "gst_18".
type TaxTag string

const (
	TaxTagNone   TaxTag = ""
	TaxTagGst0   TaxTag = "gst_0"
	TaxTagGst5   TaxTag = "gst_5"
	TaxTagGst12  TaxTag = "gst_12"
	TaxTagGst18  TaxTag = "gst_18"
	TaxTagGst28  TaxTag = "gst_28"
	TaxTagIgst5  TaxTag = "igst_5"
	TaxTagIgst12 TaxTag = "igst_12"
	TaxTagIgst18 TaxTag = "igst_18"
	TaxTagIgst28 TaxTag = "igst_28"
)

// nominal percentage of each bracket
var taxTagRates = map[TaxTag]decimal.Decimal{
	TaxTagGst0:   decimal.Zero,
	TaxTagGst5:   decimal.NewFromInt(5),
	TaxTagGst12:  decimal.NewFromInt(12),
	TaxTagGst18:  decimal.NewFromInt(18),
	TaxTagGst28:  decimal.NewFromInt(28),
	TaxTagIgst5:  decimal.NewFromInt(5),
	TaxTagIgst12: decimal.NewFromInt(12),
	TaxTagIgst18: decimal.NewFromInt(18),
	TaxTagIgst28: decimal.NewFromInt(28),
}

// Rate returns the bracket's nominal percentage and whether the tag is recognized.
func (t TaxTag) Rate() (decimal.Decimal, bool) {
	rate, ok := taxTagRates[t]
	return rate, ok
}

// IsIntraState is true for brackets split into CGST and SGST.
func (t TaxTag) IsIntraState() bool {
	return strings.HasPrefix(string(t), "gst_")
}

// IsInterState is true for IGST brackets.
func (t TaxTag) IsInterState() bool {
	return strings.HasPrefix(string(t), "igst_")
}

type OutboxAction string

const (
	OutboxActionCreate OutboxAction = "C"
	OutboxActionUpdate OutboxAction = "U"
	OutboxActionDelete OutboxAction = "D"
)

type OutboxReferenceType string

const (
	OutboxReferenceTypeVendorCreditApplied  OutboxReferenceType = "VCA"
	OutboxReferenceTypeVendorCreditVoided   OutboxReferenceType = "VCV"
	OutboxReferenceTypeVendorCreditRefunded OutboxReferenceType = "VCR"
	OutboxReferenceTypeVendorCreditCloned   OutboxReferenceType = "VCC"
)

func ParseOutboxReferenceType(s string) (OutboxReferenceType, error) {
	switch t := OutboxReferenceType(strings.ToUpper(strings.TrimSpace(s))); t {
	case OutboxReferenceTypeVendorCreditApplied, OutboxReferenceTypeVendorCreditVoided,
		OutboxReferenceTypeVendorCreditRefunded, OutboxReferenceTypeVendorCreditCloned:
		return t, nil
	}
	return "", errors.New("invalid outbox reference type")
}

const (
	OutboxPublishStatusPending    = "PENDING"
	OutboxPublishStatusProcessing = "PROCESSING"
	OutboxPublishStatusSent       = "SENT"
	OutboxPublishStatusFailed     = "FAILED"
	OutboxPublishStatusDead       = "DEAD"
)

const (
	AccountNameAccountsPayable = "Accounts Payable"
	AccountNameInputSgst       = "Input SGST"
	AccountNameInputCgst       = "Input CGST"
	AccountNameCostOfGoodsSold = "Cost of Goods Sold"
)
