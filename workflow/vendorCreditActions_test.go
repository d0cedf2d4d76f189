package workflow

import (
	"errors"
	"testing"
	"time"

	"github.com/mmdatafocus/vendor_credits/models"
)

func TestVoidVendorCredit(t *testing.T) {
	db := newTestDB(t)
	s := newTestService(t, db)
	ctx := testContext()

	credit := seedCredit(t, db, "500", models.VendorCreditStatusOpen)
	voided, err := s.VoidVendorCredit(ctx, credit.ID)
	if err != nil {
		t.Fatalf("VoidVendorCredit: %v", err)
	}
	if voided.CurrentStatus != models.VendorCreditStatusVoid || !voided.Balance.Equal(d("500")) {
		t.Fatalf("voided: status=%s balance=%s", voided.CurrentStatus, voided.Balance)
	}
	if got := loadCredit(t, db, credit.ID).CurrentStatus; got != models.VendorCreditStatusVoid {
		t.Fatalf("stored status: %s", got)
	}

	if _, err := s.VoidVendorCredit(ctx, credit.ID); !errors.Is(err, models.ErrCreditVoided) {
		t.Fatalf("second void: got %v", err)
	}
	if n := countRows(t, db, &models.OutboxMessage{}); n != 1 {
		t.Fatalf("got %d outbox rows, want 1", n)
	}
}

func TestVoidVendorCredit_PartlyApplied(t *testing.T) {
	db := newTestDB(t)
	s := newTestService(t, db)
	ctx := testContext()

	credit := seedCredit(t, db, "500", models.VendorCreditStatusOpen)
	bill := seedBill(t, db, 1, "BL-A", "300", models.BillStatusOpen)
	_, err := s.ApplyVendorCreditToBills(ctx, NewVendorCreditApplyToBills{
		VendorCreditId: credit.ID,
		ApplyBills:     []NewVendorCreditApplyBill{{BillId: bill.ID, Amount: "100"}},
	})
	if err != nil {
		t.Fatalf("ApplyVendorCreditToBills: %v", err)
	}

	voided, err := s.VoidVendorCredit(ctx, credit.ID)
	if err != nil {
		t.Fatalf("VoidVendorCredit: %v", err)
	}
	if voided.CurrentStatus != models.VendorCreditStatusVoid || !voided.Balance.Equal(d("400")) || !voided.UsedAmount.Equal(d("100")) {
		t.Fatalf("voided: status=%s balance=%s used=%s", voided.CurrentStatus, voided.Balance, voided.UsedAmount)
	}
	if got := loadBill(t, db, bill.ID); !got.BalanceDue.Equal(d("200")) {
		t.Fatalf("bill balance due: %s", got.BalanceDue)
	}

	_, err = s.ApplyVendorCreditToBills(ctx, NewVendorCreditApplyToBills{
		VendorCreditId: credit.ID,
		ApplyBills:     []NewVendorCreditApplyBill{{BillId: bill.ID, Amount: "10"}},
	})
	if !errors.Is(err, models.ErrCreditVoided) {
		t.Fatalf("apply after void: got %v", err)
	}
}

func TestRefundVendorCredit(t *testing.T) {
	db := newTestDB(t)
	s := newTestService(t, db)
	ctx := testContext()

	credit := seedCredit(t, db, "500", models.VendorCreditStatusOpen)
	refundDate := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)

	if _, err := s.RefundVendorCredit(ctx, NewVendorCreditRefund{VendorCreditId: credit.ID, Amount: d("0"), RefundDate: refundDate}); err == nil {
		t.Fatalf("expected validation error for zero refund")
	}
	if _, err := s.RefundVendorCredit(ctx, NewVendorCreditRefund{VendorCreditId: credit.ID, Amount: d("600"), RefundDate: refundDate}); !errors.Is(err, models.ErrInvalidRefundAmount) {
		t.Fatalf("over-refund: got %v", err)
	}

	refunded, err := s.RefundVendorCredit(ctx, NewVendorCreditRefund{VendorCreditId: credit.ID, Amount: d("500"), RefundDate: refundDate})
	if err != nil {
		t.Fatalf("RefundVendorCredit: %v", err)
	}
	if refunded.CurrentStatus != models.VendorCreditStatusRefunded {
		t.Fatalf("status: got %s", refunded.CurrentStatus)
	}
	stored := loadCredit(t, db, credit.ID)
	if !stored.Balance.IsZero() || !stored.RefundedAmount.Equal(d("500")) || stored.CurrentStatus != models.VendorCreditStatusRefunded {
		t.Fatalf("stored credit: balance=%s refunded=%s status=%s", stored.Balance, stored.RefundedAmount, stored.CurrentStatus)
	}

	var outbox models.OutboxMessage
	if err := db.First(&outbox).Error; err != nil {
		t.Fatalf("load outbox: %v", err)
	}
	if outbox.ReferenceType != models.OutboxReferenceTypeVendorCreditRefunded || outbox.Action != models.OutboxActionUpdate || len(outbox.OldObj) == 0 {
		t.Fatalf("outbox row: %#v", outbox)
	}
}

func TestCloneVendorCredit(t *testing.T) {
	db := newTestDB(t)
	s := newTestService(t, db)
	ctx := testContext()

	credit := seedCredit(t, db, "1180", models.VendorCreditStatusClosed)
	date := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)

	clone, err := s.CloneVendorCredit(ctx, credit.ID, date)
	if err != nil {
		t.Fatalf("CloneVendorCredit: %v", err)
	}
	if clone.ID == 0 || clone.ID == credit.ID || clone.CurrentStatus != models.VendorCreditStatusDraft {
		t.Fatalf("clone: id=%d status=%s", clone.ID, clone.CurrentStatus)
	}
	if clone.VendorCreditNumber == credit.VendorCreditNumber || clone.VendorCreditNumber == "" {
		t.Fatalf("clone number: %q", clone.VendorCreditNumber)
	}

	stored, err := models.FetchVendorCredit(ctx, db, testBusinessId, clone.ID)
	if err != nil {
		t.Fatalf("FetchVendorCredit: %v", err)
	}
	if len(stored.Details) != 1 || stored.Details[0].ItemName != "Widget" || !stored.Balance.Equal(d("1180")) {
		t.Fatalf("stored clone: %#v", stored)
	}
	if n := countRows(t, db, &models.VendorCreditItem{}); n != 2 {
		t.Fatalf("got %d item rows, want 2", n)
	}
}
