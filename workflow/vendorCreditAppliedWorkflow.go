package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/mmdatafocus/vendor_credits/config"
	"github.com/mmdatafocus/vendor_credits/models"
	"github.com/mmdatafocus/vendor_credits/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type NewVendorCreditApplyToBills struct {
	VendorCreditId  int                        `json:"vendor_credit_id" validate:"required,gt=0"`
	ApplyBills      []NewVendorCreditApplyBill `json:"bills" validate:"required,min=1,unique=BillId,dive"`
	AutoAppliedDate bool                       `json:"auto_applied_date"`
	RequestKey      string                     `json:"request_key" validate:"omitempty,max=64"`
}

// NewVendorCreditApplyBill carries the amount as typed; it goes through the same
// parsing and bounds checks as an interactive edit.
type NewVendorCreditApplyBill struct {
	BillId int    `json:"bill_id" validate:"required,gt=0"`
	Amount string `json:"amount" validate:"required"`
}

func (input NewVendorCreditApplyToBills) billIds() []int {
	ids := make([]int, 0, len(input.ApplyBills))
	for _, b := range input.ApplyBills {
		ids = append(ids, b.BillId)
	}
	return utils.UniqueSlice(ids)
}

// ApplyVendorCreditToBills commits credit to bills. A repeated RequestKey returns the
// records written by the first call without applying anything again.
func (s *VendorCreditService) ApplyVendorCreditToBills(ctx context.Context, input NewVendorCreditApplyToBills) (result *models.AllocationResult, err error) {
	ctx, span := s.startSpan(ctx, "ApplyVendorCreditToBills", input.VendorCreditId)
	defer func() { endSpan(span, err) }()

	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err = utils.ValidateStruct(input); err != nil {
		return nil, err
	}

	unlock, err := s.Locker.Lock(ctx, commitLockKeys(businessId, input.VendorCreditId, input.billIds()), s.LockTTL)
	if err != nil {
		config.LogError(s.Logger, "VendorCreditAppliedWorkflow.go", "ApplyVendorCreditToBills", "Lock", input.VendorCreditId, err)
		return nil, err
	}
	defer unlock()

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if input.RequestKey != "" {
			replayed, err := replayApplied(ctx, tx, businessId, input)
			if err != nil {
				return err
			}
			if replayed != nil {
				result = replayed
				return nil
			}
		}

		credit, err := models.FetchVendorCreditForUpdate(ctx, tx, businessId, input.VendorCreditId)
		if err != nil {
			config.LogError(s.Logger, "VendorCreditAppliedWorkflow.go", "ApplyVendorCreditToBills", "FetchVendorCreditForUpdate", input.VendorCreditId, err)
			return err
		}
		bills, err := models.FetchBillsForUpdate(ctx, tx, businessId, input.billIds())
		if err != nil {
			config.LogError(s.Logger, "VendorCreditAppliedWorkflow.go", "ApplyVendorCreditToBills", "FetchBillsForUpdate", input.billIds(), err)
			return err
		}

		proposal := models.AllocationProposal{}
		for _, applyBill := range input.ApplyBills {
			proposal, err = models.SetProposedAmount(*credit, proposal, applyBill.BillId, applyBill.Amount, bills)
			if err != nil {
				return err
			}
		}

		appliedDate := models.AppliedDateFor(input.AutoAppliedDate, *credit, s.now())
		committed, err := models.CommitAllocation(*credit, proposal, bills, appliedDate)
		if err != nil {
			config.LogError(s.Logger, "VendorCreditAppliedWorkflow.go", "ApplyVendorCreditToBills", "CommitAllocation", proposal, err)
			return err
		}

		if err := saveAllocation(ctx, tx, committed, input.RequestKey); err != nil {
			config.LogError(s.Logger, "VendorCreditAppliedWorkflow.go", "ApplyVendorCreditToBills", "saveAllocation", committed.AppliedCredits, err)
			return err
		}

		if err := models.PublishToOutbox(ctx, tx, businessId, appliedDate, credit.ID, models.OutboxReferenceTypeVendorCreditApplied, committed, nil, models.OutboxActionCreate); err != nil {
			config.LogError(s.Logger, "VendorCreditAppliedWorkflow.go", "ApplyVendorCreditToBills", "PublishToOutbox", credit.ID, err)
			return err
		}
		result = committed
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.Logger != nil {
		s.Logger.WithFields(logrus.Fields{
			"field":            "ApplyVendorCreditToBills",
			"business_id":      businessId,
			"vendor_credit_id": input.VendorCreditId,
			"total_applied":    result.TotalApplied.String(),
			"credit_status":    result.Credit.CurrentStatus,
		}).Info("vendor credit applied")
	}
	return result, nil
}

func saveAllocation(ctx context.Context, tx *gorm.DB, result *models.AllocationResult, requestKey string) error {
	db := tx.WithContext(ctx)

	created := make(map[int]models.VendorCreditBill, len(result.AppliedCredits))
	for i := range result.AppliedCredits {
		result.AppliedCredits[i].RequestKey = requestKey
		if err := db.Create(&result.AppliedCredits[i]).Error; err != nil {
			return err
		}
		created[result.AppliedCredits[i].BillId] = result.AppliedCredits[i]
	}

	for i, bill := range result.Bills {
		if n := len(bill.CreditsApplied); n > 0 {
			result.Bills[i].CreditsApplied[n-1] = created[bill.ID]
		}
		err := db.Model(&models.Bill{}).
			Where("business_id = ? AND id = ?", bill.BusinessId, bill.ID).
			Updates(map[string]interface{}{
				"balance_due":    bill.BalanceDue,
				"current_status": bill.CurrentStatus,
			}).Error
		if err != nil {
			return fmt.Errorf("update bill %d: %w", bill.ID, err)
		}
	}

	credit := result.Credit
	return db.Model(&models.VendorCredit{}).
		Where("business_id = ? AND id = ?", credit.BusinessId, credit.ID).
		Updates(map[string]interface{}{
			"balance":        credit.Balance,
			"used_amount":    credit.UsedAmount,
			"current_status": credit.CurrentStatus,
		}).Error
}

func replayApplied(ctx context.Context, tx *gorm.DB, businessId string, input NewVendorCreditApplyToBills) (*models.AllocationResult, error) {
	records, err := models.FetchAppliedByRequestKey(ctx, tx, businessId, input.VendorCreditId, input.RequestKey)
	if err != nil || len(records) == 0 {
		return nil, err
	}

	credit, err := models.FetchVendorCredit(ctx, tx, businessId, input.VendorCreditId)
	if err != nil {
		return nil, err
	}
	billIds := make([]int, 0, len(records))
	total := decimal.Zero
	for _, r := range records {
		billIds = append(billIds, r.BillId)
		total = total.Add(r.Amount)
	}
	var bills []models.Bill
	if err := tx.WithContext(ctx).Where("business_id = ? AND id IN ?", businessId, billIds).Preload("CreditsApplied").Order("id").Find(&bills).Error; err != nil {
		return nil, err
	}

	return &models.AllocationResult{
		Credit:         *credit,
		Bills:          bills,
		AppliedCredits: records,
		TotalApplied:   total,
	}, nil
}

// ListCandidateBills returns the credit vendor's bills that can still take credit.
// Bills whose stored balance disagrees with their payments and applied credits are logged.
func (s *VendorCreditService) ListCandidateBills(ctx context.Context, creditId int) ([]models.Bill, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	credit, err := models.FetchVendorCredit(ctx, s.DB, businessId, creditId)
	if err != nil {
		config.LogError(s.Logger, "VendorCreditAppliedWorkflow.go", "ListCandidateBills", "FetchVendorCredit", creditId, err)
		return nil, err
	}
	bills, err := models.FetchVendorBills(ctx, s.DB, businessId, credit.VendorId)
	if err != nil {
		config.LogError(s.Logger, "VendorCreditAppliedWorkflow.go", "ListCandidateBills", "FetchVendorBills", credit.VendorId, err)
		return nil, err
	}

	for _, b := range bills {
		if expected := b.ExpectedBalanceDue(); !utils.RoundCurrency(expected).Equal(utils.RoundCurrency(b.BalanceDue)) && s.Logger != nil {
			s.Logger.WithFields(logrus.Fields{
				"field":        "ListCandidateBills",
				"business_id":  businessId,
				"bill_id":      b.ID,
				"balance_due":  b.BalanceDue.String(),
				"expected_due": expected.String(),
			}).Warn("bill balance due does not match its payments and applied credits")
		}
	}

	candidates, err := models.ProposeCandidateBills(credit.VendorId, bills)
	if err != nil && !errors.Is(err, models.ErrNoEligibleBills) {
		return nil, err
	}
	return candidates, err
}
