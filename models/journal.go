package models

import (
	"github.com/mmdatafocus/vendor_credits/utils"
	"github.com/shopspring/decimal"
)

// JournalEntry is one derived ledger line. Exactly one of Debit and Credit is non-zero
// for a meaningful line; zero lines are still reported.
type JournalEntry struct {
	Account string          `json:"account"`
	Debit   decimal.Decimal `json:"debit"`
	Credit  decimal.Decimal `json:"credit"`
}

type JournalEntries struct {
	Entries     []JournalEntry  `json:"entries"`
	TotalDebit  decimal.Decimal `json:"total_debit"`
	TotalCredit decimal.Decimal `json:"total_credit"`
}

func NewJournalEntries(entries []JournalEntry) JournalEntries {
	je := JournalEntries{Entries: entries, TotalDebit: decimal.Zero, TotalCredit: decimal.Zero}
	for _, e := range entries {
		je.TotalDebit = je.TotalDebit.Add(e.Debit)
		je.TotalCredit = je.TotalCredit.Add(e.Credit)
	}
	return je
}

// IsBalanced compares the totals at currency precision.
func (je JournalEntries) IsBalanced() bool {
	return utils.RoundCurrency(je.TotalDebit).Equal(utils.RoundCurrency(je.TotalCredit))
}

// Difference is debit minus credit.
func (je JournalEntries) Difference() decimal.Decimal {
	return je.TotalDebit.Sub(je.TotalCredit)
}
