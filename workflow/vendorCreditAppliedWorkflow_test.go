package workflow

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mmdatafocus/vendor_credits/models"
)

func TestApplyVendorCreditToBills_Walkthrough(t *testing.T) {
	db := newTestDB(t)
	s := newTestService(t, db)
	ctx := testContext()

	credit := seedCredit(t, db, "500", models.VendorCreditStatusOpen)
	billA := seedBill(t, db, 1, "BL-A", "300", models.BillStatusOpen)
	billB := seedBill(t, db, 1, "BL-B", "400", models.BillStatusOverdue)

	input := NewVendorCreditApplyToBills{
		VendorCreditId: credit.ID,
		ApplyBills: []NewVendorCreditApplyBill{
			{BillId: billA.ID, Amount: "300"},
			{BillId: billB.ID, Amount: "200"},
		},
		RequestKey: "req-1",
	}
	result, err := s.ApplyVendorCreditToBills(ctx, input)
	if err != nil {
		t.Fatalf("ApplyVendorCreditToBills: %v", err)
	}
	if !result.TotalApplied.Equal(d("500")) || result.Credit.CurrentStatus != models.VendorCreditStatusClosed {
		t.Fatalf("result: total=%s status=%s", result.TotalApplied, result.Credit.CurrentStatus)
	}

	storedCredit := loadCredit(t, db, credit.ID)
	if !storedCredit.Balance.IsZero() || !storedCredit.UsedAmount.Equal(d("500")) || storedCredit.CurrentStatus != models.VendorCreditStatusClosed {
		t.Fatalf("stored credit: balance=%s used=%s status=%s", storedCredit.Balance, storedCredit.UsedAmount, storedCredit.CurrentStatus)
	}
	storedA, storedB := loadBill(t, db, billA.ID), loadBill(t, db, billB.ID)
	if !storedA.BalanceDue.IsZero() || storedA.CurrentStatus != models.BillStatusPaid {
		t.Fatalf("bill A: balance=%s status=%s", storedA.BalanceDue, storedA.CurrentStatus)
	}
	if !storedB.BalanceDue.Equal(d("200")) || storedB.CurrentStatus != models.BillStatusOverdue {
		t.Fatalf("bill B: balance=%s status=%s", storedB.BalanceDue, storedB.CurrentStatus)
	}

	var records []models.VendorCreditBill
	if err := db.Order("bill_id").Find(&records).Error; err != nil {
		t.Fatalf("load records: %v", err)
	}
	if len(records) != 2 || records[0].RequestKey != "req-1" || !records[0].Amount.Equal(d("300")) {
		t.Fatalf("applied records: %#v", records)
	}
	if got := records[0].AppliedDate.Format("2006-01-02"); got != "2025-03-01" {
		t.Fatalf("applied date: got %s, want the credit date", got)
	}

	var outbox []models.OutboxMessage
	if err := db.Find(&outbox).Error; err != nil {
		t.Fatalf("load outbox: %v", err)
	}
	if len(outbox) != 1 {
		t.Fatalf("got %d outbox rows, want 1", len(outbox))
	}
	if outbox[0].ReferenceType != models.OutboxReferenceTypeVendorCreditApplied || outbox[0].PublishStatus != models.OutboxPublishStatusPending || outbox[0].CorrelationId != "corr-1" {
		t.Fatalf("outbox row: %#v", outbox[0])
	}
}

func TestApplyVendorCreditToBills_RepeatedRequestKeyAppliesOnce(t *testing.T) {
	db := newTestDB(t)
	s := newTestService(t, db)
	ctx := testContext()

	credit := seedCredit(t, db, "500", models.VendorCreditStatusOpen)
	bill := seedBill(t, db, 1, "BL-A", "300", models.BillStatusOpen)
	input := NewVendorCreditApplyToBills{
		VendorCreditId: credit.ID,
		ApplyBills:     []NewVendorCreditApplyBill{{BillId: bill.ID, Amount: "100"}},
		RequestKey:     "req-dup",
	}

	if _, err := s.ApplyVendorCreditToBills(ctx, input); err != nil {
		t.Fatalf("first apply: %v", err)
	}
	replayed, err := s.ApplyVendorCreditToBills(ctx, input)
	if err != nil {
		t.Fatalf("second apply: %v", err)
	}
	if !replayed.TotalApplied.Equal(d("100")) || len(replayed.AppliedCredits) != 1 {
		t.Fatalf("replayed result: %#v", replayed)
	}

	if got := loadCredit(t, db, credit.ID).Balance; !got.Equal(d("400")) {
		t.Fatalf("credit balance: got %s, want 400", got)
	}
	if n := countRows(t, db, &models.VendorCreditBill{}); n != 1 {
		t.Fatalf("got %d applied records, want 1", n)
	}
	if n := countRows(t, db, &models.OutboxMessage{}); n != 1 {
		t.Fatalf("got %d outbox rows, want 1", n)
	}
}

func TestApplyVendorCreditToBills_RejectionPersistsNothing(t *testing.T) {
	db := newTestDB(t)
	s := newTestService(t, db)
	ctx := testContext()

	credit := seedCredit(t, db, "500", models.VendorCreditStatusOpen)
	billA := seedBill(t, db, 1, "BL-A", "300", models.BillStatusOpen)
	billB := seedBill(t, db, 1, "BL-B", "400", models.BillStatusOpen)

	_, err := s.ApplyVendorCreditToBills(ctx, NewVendorCreditApplyToBills{
		VendorCreditId: credit.ID,
		ApplyBills: []NewVendorCreditApplyBill{
			{BillId: billA.ID, Amount: "300"},
			{BillId: billB.ID, Amount: "250"},
		},
	})
	var rejected *models.ValidationRejectedError
	if !errors.As(err, &rejected) || rejected.BillId != billB.ID {
		t.Fatalf("expected rejection for bill B, got %v", err)
	}

	if got := loadCredit(t, db, credit.ID); !got.Balance.Equal(d("500")) || got.CurrentStatus != models.VendorCreditStatusOpen {
		t.Fatalf("credit changed: balance=%s status=%s", got.Balance, got.CurrentStatus)
	}
	if got := loadBill(t, db, billA.ID); !got.BalanceDue.Equal(d("300")) {
		t.Fatalf("bill A changed: %s", got.BalanceDue)
	}
	if n := countRows(t, db, &models.VendorCreditBill{}); n != 0 {
		t.Fatalf("got %d applied records, want 0", n)
	}
	if n := countRows(t, db, &models.OutboxMessage{}); n != 0 {
		t.Fatalf("got %d outbox rows, want 0", n)
	}
}

func TestApplyVendorCreditToBills_Preconditions(t *testing.T) {
	db := newTestDB(t)
	s := newTestService(t, db)

	voided := seedCredit(t, db, "500", models.VendorCreditStatusVoid)
	bill := seedBill(t, db, 1, "BL-A", "300", models.BillStatusOpen)

	valid := NewVendorCreditApplyToBills{
		VendorCreditId: voided.ID,
		ApplyBills:     []NewVendorCreditApplyBill{{BillId: bill.ID, Amount: "10"}},
	}
	if _, err := s.ApplyVendorCreditToBills(testContext(), valid); !errors.Is(err, models.ErrCreditVoided) {
		t.Fatalf("void credit: got %v, want ErrCreditVoided", err)
	}

	if _, err := s.ApplyVendorCreditToBills(context.Background(), valid); err == nil {
		t.Fatalf("expected error without business id")
	}

	empty := NewVendorCreditApplyToBills{VendorCreditId: voided.ID}
	if _, err := s.ApplyVendorCreditToBills(testContext(), empty); err == nil {
		t.Fatalf("expected validation error for empty bills")
	}
}

func TestApplyVendorCreditToBills_RejectsRepeatedBill(t *testing.T) {
	db := newTestDB(t)
	s := newTestService(t, db)

	credit := seedCredit(t, db, "500", models.VendorCreditStatusOpen)
	bill := seedBill(t, db, 1, "BL-A", "300", models.BillStatusOpen)

	_, err := s.ApplyVendorCreditToBills(testContext(), NewVendorCreditApplyToBills{
		VendorCreditId: credit.ID,
		ApplyBills: []NewVendorCreditApplyBill{
			{BillId: bill.ID, Amount: "100"},
			{BillId: bill.ID, Amount: "50"},
		},
	})
	if err == nil || !strings.Contains(err.Error(), "unique") {
		t.Fatalf("expected unique validation error, got %v", err)
	}
	if got := loadBill(t, db, bill.ID); !got.BalanceDue.Equal(d("300")) {
		t.Fatalf("bill changed: %s", got.BalanceDue)
	}
	if n := countRows(t, db, &models.VendorCreditBill{}); n != 0 {
		t.Fatalf("got %d applied records, want 0", n)
	}
}

func TestApplyVendorCreditToBills_KeepsEarlierCreditsOnBill(t *testing.T) {
	db := newTestDB(t)
	s := newTestService(t, db)
	ctx := testContext()

	credit := seedCredit(t, db, "500", models.VendorCreditStatusOpen)
	bill := seedBill(t, db, 1, "BL-A", "400", models.BillStatusOpen)

	for i, amount := range []string{"100", "150"} {
		result, err := s.ApplyVendorCreditToBills(ctx, NewVendorCreditApplyToBills{
			VendorCreditId: credit.ID,
			ApplyBills:     []NewVendorCreditApplyBill{{BillId: bill.ID, Amount: amount}},
		})
		if err != nil {
			t.Fatalf("apply %d: %v", i, err)
		}
		applied := result.Bills[0]
		if len(applied.CreditsApplied) != i+1 {
			t.Fatalf("apply %d: got %d credits on bill, want %d", i, len(applied.CreditsApplied), i+1)
		}
		if !applied.ExpectedBalanceDue().Equal(applied.BalanceDue) {
			t.Fatalf("apply %d: expected due %s, balance due %s", i, applied.ExpectedBalanceDue(), applied.BalanceDue)
		}
	}
	if got := loadBill(t, db, bill.ID); !got.BalanceDue.Equal(d("150")) {
		t.Fatalf("stored balance due: %s", got.BalanceDue)
	}
}

func TestListCandidateBills(t *testing.T) {
	db := newTestDB(t)
	s := newTestService(t, db)
	ctx := testContext()

	credit := seedCredit(t, db, "500", models.VendorCreditStatusOpen)
	open := seedBill(t, db, 1, "BL-A", "300", models.BillStatusOpen)
	seedBill(t, db, 1, "BL-PAID", "0", models.BillStatusPaid)
	seedBill(t, db, 1, "BL-VOID", "50", models.BillStatusVoid)
	seedBill(t, db, 2, "BL-OTHER", "70", models.BillStatusOpen)

	bills, err := s.ListCandidateBills(ctx, credit.ID)
	if err != nil {
		t.Fatalf("ListCandidateBills: %v", err)
	}
	if len(bills) != 1 || bills[0].ID != open.ID {
		t.Fatalf("candidates: %#v", bills)
	}

	lonely := seedCredit(t, db, "10", models.VendorCreditStatusOpen)
	if err := db.Model(&models.VendorCredit{}).Where("id = ?", lonely.ID).Update("vendor_id", 3).Error; err != nil {
		t.Fatalf("update vendor: %v", err)
	}
	bills, err = s.ListCandidateBills(ctx, lonely.ID)
	if !errors.Is(err, models.ErrNoEligibleBills) || len(bills) != 0 {
		t.Fatalf("expected no eligible bills, got %v %v", bills, err)
	}
}

func TestGetVendorCreditJournal(t *testing.T) {
	db := newTestDB(t)
	s := newTestService(t, db)

	credit := models.VendorCredit{
		BusinessId:         testBusinessId,
		VendorId:           1,
		VendorCreditNumber: "VC-0002",
		VendorCreditDate:   time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		SubTotal:           d("1000"),
		Amount:             d("1180"),
		Balance:            d("1180"),
		CurrentStatus:      models.VendorCreditStatusOpen,
		Details: []models.VendorCreditItem{
			{ItemName: "Widget", Quantity: d("2"), Rate: d("1000"), Tax: models.TaxTagGst18},
		},
	}
	if err := db.Create(&credit).Error; err != nil {
		t.Fatalf("seed credit: %v", err)
	}
	entries, err := s.GetVendorCreditJournal(testContext(), credit.ID)
	if err != nil {
		t.Fatalf("GetVendorCreditJournal: %v", err)
	}
	if !entries.TotalDebit.Equal(d("1180")) || !entries.TotalCredit.Equal(d("1360")) || entries.IsBalanced() {
		t.Fatalf("journal totals: debit=%s credit=%s", entries.TotalDebit, entries.TotalCredit)
	}
}
