package workflow

import (
	"context"

	"github.com/mmdatafocus/vendor_credits/config"
	"github.com/mmdatafocus/vendor_credits/models"
	"github.com/mmdatafocus/vendor_credits/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// BuildJournalEntries derives the credit's four journal lines from its items:
// Accounts Payable is debited the credit amount, Input SGST, Input CGST and
// Cost of Goods Sold are credited. Totals that do not balance are reported as is.
func BuildJournalEntries(credit models.VendorCredit) models.JournalEntries {
	tax := ComputeTax(credit.Details)
	cogs := credit.SubTotal.Sub(credit.DiscountAmount)

	return models.NewJournalEntries([]models.JournalEntry{
		{Account: models.AccountNameAccountsPayable, Debit: credit.Amount, Credit: decimal.Zero},
		{Account: models.AccountNameInputSgst, Debit: decimal.Zero, Credit: tax.Sgst},
		{Account: models.AccountNameInputCgst, Debit: decimal.Zero, Credit: tax.Cgst},
		{Account: models.AccountNameCostOfGoodsSold, Debit: decimal.Zero, Credit: cogs},
	})
}

func (s *VendorCreditService) GetVendorCreditJournal(ctx context.Context, creditId int) (*models.JournalEntries, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	credit, err := models.FetchVendorCredit(ctx, s.DB, businessId, creditId)
	if err != nil {
		config.LogError(s.Logger, "VendorCreditJournal.go", "GetVendorCreditJournal", "FetchVendorCredit", creditId, err)
		return nil, err
	}

	entries := BuildJournalEntries(*credit)
	if !entries.IsBalanced() && s.Logger != nil {
		s.Logger.WithFields(logrus.Fields{
			"field":            "GetVendorCreditJournal",
			"business_id":      businessId,
			"vendor_credit_id": creditId,
			"total_debit":      utils.RoundCurrency(entries.TotalDebit).String(),
			"total_credit":     utils.RoundCurrency(entries.TotalCredit).String(),
		}).Warn("vendor credit journal is not balanced")
	}
	return &entries, nil
}
