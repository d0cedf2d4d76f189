package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mmdatafocus/vendor_credits/config"
	"github.com/mmdatafocus/vendor_credits/models"
	"github.com/mmdatafocus/vendor_credits/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type NewVendorCreditRefund struct {
	VendorCreditId int             `json:"vendor_credit_id" validate:"required,gt=0"`
	Amount         decimal.Decimal `json:"amount" validate:"gt=0"`
	RefundDate     time.Time       `json:"refund_date" validate:"required"`
}

func (s *VendorCreditService) VoidVendorCredit(ctx context.Context, creditId int) (credit *models.VendorCredit, err error) {
	ctx, span := s.startSpan(ctx, "VoidVendorCredit", creditId)
	defer func() { endSpan(span, err) }()

	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	unlock, err := s.Locker.Lock(ctx, commitLockKeys(businessId, creditId, nil), s.LockTTL)
	if err != nil {
		return nil, err
	}
	defer unlock()

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := models.FetchVendorCreditForUpdate(ctx, tx, businessId, creditId)
		if err != nil {
			config.LogError(s.Logger, "VendorCreditActions.go", "VoidVendorCredit", "FetchVendorCreditForUpdate", creditId, err)
			return err
		}
		oldCredit := *existing
		if err := existing.Void(); err != nil {
			return err
		}
		if err := tx.Model(&models.VendorCredit{}).Where("business_id = ? AND id = ?", businessId, creditId).
			Update("current_status", existing.CurrentStatus).Error; err != nil {
			config.LogError(s.Logger, "VendorCreditActions.go", "VoidVendorCredit", "Update current_status", creditId, err)
			return err
		}
		if err := models.PublishToOutbox(ctx, tx, businessId, s.now(), creditId, models.OutboxReferenceTypeVendorCreditVoided, existing, oldCredit, models.OutboxActionUpdate); err != nil {
			config.LogError(s.Logger, "VendorCreditActions.go", "VoidVendorCredit", "PublishToOutbox", creditId, err)
			return err
		}
		credit = existing
		return nil
	})
	if err != nil {
		return nil, err
	}
	return credit, nil
}

func (s *VendorCreditService) RefundVendorCredit(ctx context.Context, input NewVendorCreditRefund) (credit *models.VendorCredit, err error) {
	ctx, span := s.startSpan(ctx, "RefundVendorCredit", input.VendorCreditId)
	defer func() { endSpan(span, err) }()

	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err = utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	unlock, err := s.Locker.Lock(ctx, commitLockKeys(businessId, input.VendorCreditId, nil), s.LockTTL)
	if err != nil {
		return nil, err
	}
	defer unlock()

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := models.FetchVendorCreditForUpdate(ctx, tx, businessId, input.VendorCreditId)
		if err != nil {
			config.LogError(s.Logger, "VendorCreditActions.go", "RefundVendorCredit", "FetchVendorCreditForUpdate", input.VendorCreditId, err)
			return err
		}
		oldCredit := *existing
		if err := existing.Refund(input.Amount); err != nil {
			return err
		}
		if err := tx.Model(&models.VendorCredit{}).Where("business_id = ? AND id = ?", businessId, existing.ID).
			Updates(map[string]interface{}{
				"balance":         existing.Balance,
				"refunded_amount": existing.RefundedAmount,
				"current_status":  existing.CurrentStatus,
			}).Error; err != nil {
			config.LogError(s.Logger, "VendorCreditActions.go", "RefundVendorCredit", "Update balance", input, err)
			return err
		}
		if err := models.PublishToOutbox(ctx, tx, businessId, input.RefundDate, existing.ID, models.OutboxReferenceTypeVendorCreditRefunded, existing, oldCredit, models.OutboxActionUpdate); err != nil {
			config.LogError(s.Logger, "VendorCreditActions.go", "RefundVendorCredit", "PublishToOutbox", existing.ID, err)
			return err
		}
		credit = existing
		return nil
	})
	if err != nil {
		return nil, err
	}
	return credit, nil
}

// CloneVendorCredit saves a DRAFT copy of a credit dated date under a fresh number.
func (s *VendorCreditService) CloneVendorCredit(ctx context.Context, creditId int, date time.Time) (clone *models.VendorCredit, err error) {
	ctx, span := s.startSpan(ctx, "CloneVendorCredit", creditId)
	defer func() { endSpan(span, err) }()

	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		source, err := models.FetchVendorCredit(ctx, tx, businessId, creditId)
		if err != nil {
			config.LogError(s.Logger, "VendorCreditActions.go", "CloneVendorCredit", "FetchVendorCredit", creditId, err)
			return err
		}
		draft := source.CloneAsDraft(date)
		draft.VendorCreditNumber = fmt.Sprintf("%s-%s", source.VendorCreditNumber, uuid.NewString()[:8])
		if err := draft.Validate(); err != nil {
			return err
		}
		if err := tx.Create(&draft).Error; err != nil {
			config.LogError(s.Logger, "VendorCreditActions.go", "CloneVendorCredit", "Create", draft.VendorCreditNumber, err)
			return err
		}
		if err := models.PublishToOutbox(ctx, tx, businessId, date, draft.ID, models.OutboxReferenceTypeVendorCreditCloned, draft, nil, models.OutboxActionCreate); err != nil {
			config.LogError(s.Logger, "VendorCreditActions.go", "CloneVendorCredit", "PublishToOutbox", draft.ID, err)
			return err
		}
		clone = &draft
		return nil
	})
	if err != nil {
		return nil, err
	}
	return clone, nil
}
