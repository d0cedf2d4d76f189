package models

import (
	"errors"
	"fmt"
)

var (
	// ErrValidationRejected marks a proposed amount that was not accepted.
	// The proposal is returned unchanged; callers re-render and carry on.
	ErrValidationRejected = errors.New("amount rejected")

	ErrEmptyAllocation = errors.New("no credits to apply")

	ErrCreditVoided   = errors.New("vendor credit is void")
	ErrCreditClosed   = errors.New("vendor credit is closed")
	ErrCreditRefunded = errors.New("vendor credit is refunded")
	ErrCreditNotOpen  = errors.New("vendor credit must be open")

	// ErrNoEligibleBills is informational: an empty candidate list is still a valid result.
	ErrNoEligibleBills = errors.New("no eligible bills for this vendor")

	ErrBillNotEligible          = errors.New("bill is not eligible for credit")
	ErrAllocationExceedsBalance = errors.New("allocation exceeds available balance")

	ErrInvalidRefundAmount     = errors.New("invalid refund amount")
	ErrInvalidStatusTransition = errors.New("invalid status transition")

	ErrOutboxNotClaimed = errors.New("outbox row is not held by this claim")
)

// ValidationRejectedError describes why one proposed amount was not accepted.
type ValidationRejectedError struct {
	BillId int
	Raw    string
	Reason string
}

func (e *ValidationRejectedError) Error() string {
	return fmt.Sprintf("amount %q for bill %d rejected: %s", e.Raw, e.BillId, e.Reason)
}

func (e *ValidationRejectedError) Unwrap() error {
	return ErrValidationRejected
}

// AllocationError is a commit failure. Nothing was applied.
type AllocationError struct {
	Op     string
	BillId int
	Err    error
}

func (e *AllocationError) Error() string {
	if e.BillId != 0 {
		return fmt.Sprintf("%s: bill %d: %v", e.Op, e.BillId, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *AllocationError) Unwrap() error {
	return e.Err
}
