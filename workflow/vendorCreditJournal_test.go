package workflow

import (
	"testing"

	"github.com/mmdatafocus/vendor_credits/models"
)

func TestBuildJournalEntries_ReportsMismatch(t *testing.T) {
	credit := models.VendorCredit{
		Amount:         d("1180"),
		SubTotal:       d("1000"),
		DiscountAmount: d("0"),
		Details:        []models.VendorCreditItem{{Rate: d("1000"), Quantity: d("2"), Tax: models.TaxTagGst18}},
	}

	je := BuildJournalEntries(credit)

	want := []struct {
		account       string
		debit, credit string
	}{
		{models.AccountNameAccountsPayable, "1180", "0"},
		{models.AccountNameInputSgst, "0", "180"},
		{models.AccountNameInputCgst, "0", "180"},
		{models.AccountNameCostOfGoodsSold, "0", "1000"},
	}
	if len(je.Entries) != len(want) {
		t.Fatalf("got %d entries, want %d", len(je.Entries), len(want))
	}
	for i, w := range want {
		e := je.Entries[i]
		if e.Account != w.account || !e.Debit.Equal(d(w.debit)) || !e.Credit.Equal(d(w.credit)) {
			t.Fatalf("entry %d: got %s %s/%s, want %s %s/%s", i, e.Account, e.Debit, e.Credit, w.account, w.debit, w.credit)
		}
	}
	if !je.TotalDebit.Equal(d("1180")) || !je.TotalCredit.Equal(d("1360")) {
		t.Fatalf("totals: debit=%s credit=%s", je.TotalDebit, je.TotalCredit)
	}
	if je.IsBalanced() {
		t.Fatalf("1180 vs 1360 must be reported as unbalanced")
	}
	if !je.Difference().Equal(d("-180")) {
		t.Fatalf("difference: got %s", je.Difference())
	}
}

func TestBuildJournalEntries_Balanced(t *testing.T) {
	credit := models.VendorCredit{
		Amount:         d("1000"),
		SubTotal:       d("900"),
		DiscountAmount: d("50"),
		Details:        []models.VendorCreditItem{{Rate: d("500"), Quantity: d("1"), Tax: models.TaxTagGst18}},
	}

	je := BuildJournalEntries(credit)
	if !je.Entries[3].Credit.Equal(d("850")) {
		t.Fatalf("cogs: got %s, want 850", je.Entries[3].Credit)
	}
	if !je.TotalCredit.Equal(d("940")) || je.IsBalanced() {
		t.Fatalf("total credit: got %s", je.TotalCredit)
	}

	credit.Amount = d("940")
	if !BuildJournalEntries(credit).IsBalanced() {
		t.Fatalf("expected balanced journal")
	}
}

func TestBuildJournalEntries_NoItems(t *testing.T) {
	je := BuildJournalEntries(models.VendorCredit{})
	if len(je.Entries) != 4 {
		t.Fatalf("got %d entries, want 4", len(je.Entries))
	}
	if !je.TotalDebit.IsZero() || !je.TotalCredit.IsZero() || !je.IsBalanced() {
		t.Fatalf("empty credit: debit=%s credit=%s", je.TotalDebit, je.TotalCredit)
	}
}
