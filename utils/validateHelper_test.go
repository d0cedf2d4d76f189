package utils

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

type refundInput struct {
	CreditId int             `validate:"required,gt=0"`
	Amount   decimal.Decimal `validate:"gt=0"`
}

func TestValidateStruct(t *testing.T) {
	if err := ValidateStruct(refundInput{CreditId: 1, Amount: decimal.NewFromInt(5)}); err != nil {
		t.Fatalf("valid input: %v", err)
	}

	err := ValidateStruct(refundInput{CreditId: 0, Amount: decimal.NewFromInt(-5)})
	if err == nil {
		t.Fatalf("expected validation error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "refundInput.Amount: gt") || !strings.Contains(msg, "refundInput.CreditId: required") {
		t.Fatalf("unexpected message %q", msg)
	}
	if strings.Index(msg, "Amount") > strings.Index(msg, "CreditId") {
		t.Fatalf("fields should be sorted: %q", msg)
	}
}
