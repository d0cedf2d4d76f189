package models

import (
	"maps"
	"slices"
	"time"

	"github.com/mmdatafocus/vendor_credits/utils"
	"github.com/shopspring/decimal"
)

// AllocationProposal maps bill id to the amount of credit proposed for it.
// It is a draft: nothing touches a credit or bill until CommitAllocation.
type AllocationProposal map[int]decimal.Decimal

func (p AllocationProposal) Amount(billId int) decimal.Decimal {
	amount, ok := p[billId]
	if !ok {
		return decimal.Zero
	}
	return amount
}

// BillIds returns the proposed bill ids in ascending order.
func (p AllocationProposal) BillIds() []int {
	return slices.Sorted(maps.Keys(p))
}

// Total sums the proposed amounts in bill id order.
func (p AllocationProposal) Total() decimal.Decimal {
	total := decimal.Zero
	for _, id := range p.BillIds() {
		total = total.Add(p[id])
	}
	return total
}

func (p AllocationProposal) totalExcluding(billId int) decimal.Decimal {
	return p.Total().Sub(p.Amount(billId))
}

func (p AllocationProposal) with(billId int, amount decimal.Decimal) AllocationProposal {
	next := make(AllocationProposal, len(p)+1)
	maps.Copy(next, p)
	next[billId] = amount
	return next
}

// RemainingCredit is the balance left after the proposal. It goes negative only
// for proposals that bypassed SetProposedAmount.
func RemainingCredit(p AllocationProposal, creditBalance decimal.Decimal) decimal.Decimal {
	return creditBalance.Sub(p.Total())
}

// ProposeCandidateBills keeps the vendor's bills that can still take credit, in input order.
// An empty result comes with ErrNoEligibleBills.
func ProposeCandidateBills(vendorId int, bills []Bill) ([]Bill, error) {
	candidates := make([]Bill, 0, len(bills))
	for _, b := range bills {
		if b.VendorId != vendorId || !b.IsEligibleForCredit() {
			continue
		}
		candidates = append(candidates, b)
	}
	if len(candidates) == 0 {
		return candidates, ErrNoEligibleBills
	}
	return candidates, nil
}

// SetProposedAmount validates rawAmount for one bill and returns a new proposal holding it.
// The amount may not exceed the bill's balance due nor the credit left once every other
// proposed bill is accounted for. A rejection returns the original proposal and a
// *ValidationRejectedError.
func SetProposedAmount(credit VendorCredit, proposal AllocationProposal, billId int, rawAmount string, bills []Bill) (AllocationProposal, error) {
	if err := credit.CheckAllocatable(); err != nil {
		return proposal, err
	}

	reject := func(reason string) (AllocationProposal, error) {
		return proposal, &ValidationRejectedError{BillId: billId, Raw: rawAmount, Reason: reason}
	}

	bill, ok := findBill(bills, billId)
	if !ok {
		return reject("bill not found")
	}
	if bill.VendorId != credit.VendorId {
		return reject("bill belongs to another vendor")
	}
	if !bill.IsEligibleForCredit() {
		return reject("bill is not eligible for credit")
	}

	amount, err := utils.ParseAmount(rawAmount)
	if err != nil {
		return reject("not a number")
	}
	if amount.IsNegative() {
		return reject("amount cannot be negative")
	}

	available := credit.Balance.Sub(proposal.totalExcluding(billId))
	ceiling := decimal.Min(bill.BalanceDue, available)
	if amount.GreaterThan(ceiling) {
		return reject("exceeds the maximum of " + utils.RoundCurrency(decimal.Max(ceiling, decimal.Zero)).StringFixed(utils.CurrencyPlaces))
	}

	return proposal.with(billId, amount), nil
}

type AllocationResult struct {
	Credit         VendorCredit       `json:"credit"`
	Bills          []Bill             `json:"bills"`
	AppliedCredits []VendorCreditBill `json:"applied_credits"`
	TotalApplied   decimal.Decimal    `json:"total_applied"`
}

// CommitAllocation applies a proposal atomically. Every amount is checked again
// against the current credit and bills before anything changes; on error nothing is
// applied. The inputs are not modified: the result carries the updated copies of the
// credit and of each bill that received credit, in the order the bills were given.
func CommitAllocation(credit VendorCredit, proposal AllocationProposal, bills []Bill, appliedDate time.Time) (*AllocationResult, error) {
	const op = "CommitAllocation"

	if err := credit.CheckAllocatable(); err != nil {
		return nil, err
	}

	total := proposal.Total()
	if !total.IsPositive() {
		return nil, ErrEmptyAllocation
	}
	if total.GreaterThan(credit.Balance) {
		return nil, &AllocationError{Op: op, Err: ErrAllocationExceedsBalance}
	}

	for _, billId := range proposal.BillIds() {
		amount := proposal[billId]
		if amount.IsNegative() {
			return nil, &AllocationError{Op: op, BillId: billId, Err: ErrValidationRejected}
		}
		if amount.IsZero() {
			continue
		}
		bill, ok := findBill(bills, billId)
		if !ok {
			return nil, &AllocationError{Op: op, BillId: billId, Err: utils.ErrorRecordNotFound}
		}
		if bill.VendorId != credit.VendorId || !bill.IsEligibleForCredit() {
			return nil, &AllocationError{Op: op, BillId: billId, Err: ErrBillNotEligible}
		}
		if amount.GreaterThan(bill.BalanceDue) {
			return nil, &AllocationError{Op: op, BillId: billId, Err: ErrAllocationExceedsBalance}
		}
	}

	result := &AllocationResult{
		Credit:       credit.clone(),
		TotalApplied: total,
	}
	applied := make(map[int]bool, len(proposal))
	for _, bill := range bills {
		amount := proposal.Amount(bill.ID)
		if !amount.IsPositive() || applied[bill.ID] {
			continue
		}
		applied[bill.ID] = true
		record := VendorCreditBill{
			BusinessId:         credit.BusinessId,
			VendorCreditId:     credit.ID,
			VendorCreditNumber: credit.VendorCreditNumber,
			BillId:             bill.ID,
			BillNumber:         bill.BillNumber,
			VendorId:           credit.VendorId,
			AppliedDate:        appliedDate,
			Amount:             amount,
		}
		bill.applyCredit(record)
		result.Bills = append(result.Bills, bill)
		result.AppliedCredits = append(result.AppliedCredits, record)
	}
	if err := result.Credit.useAmount(total); err != nil {
		return nil, &AllocationError{Op: op, Err: err}
	}

	return result, nil
}

// AppliedDateFor picks the date recorded on applied credits: today when autoDate is
// on, otherwise the credit's own date.
func AppliedDateFor(autoDate bool, credit VendorCredit, today time.Time) time.Time {
	if autoDate {
		return utils.DateOnly(today)
	}
	return credit.VendorCreditDate
}

func findBill(bills []Bill, billId int) (Bill, bool) {
	for _, b := range bills {
		if b.ID == billId {
			return b, true
		}
	}
	return Bill{}, false
}
