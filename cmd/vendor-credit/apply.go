package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mmdatafocus/vendor_credits/config"
	"github.com/mmdatafocus/vendor_credits/models"
	"github.com/mmdatafocus/vendor_credits/workflow"
	"github.com/spf13/cobra"
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply a vendor credit to one or more bills",
	Example: `  # Apply 300 to bill 31 and 1,200.50 to bill 32, dated today
  vendor-credit --business-id b1 apply --credit 12 --bill 31=300 --bill 32=1,200.50

  # Date the applied credits with the credit's own date
  vendor-credit --business-id b1 apply --credit 12 --bill 31=300 --auto-date=false`,
	RunE: runApply,
}

var candidatesCmd = &cobra.Command{
	Use:   "candidates",
	Short: "List the bills a vendor credit can be applied to",
	RunE:  runCandidates,
}

func init() {
	rootCmd.AddCommand(applyCmd, candidatesCmd)

	applyCmd.Flags().Int("credit", 0, "vendor credit id")
	applyCmd.Flags().StringArray("bill", nil, "bill id and amount as ID=AMOUNT, repeatable")
	applyCmd.Flags().Bool("auto-date", config.AutoAppliedDateDefault(), "date applied credits today instead of the credit date")
	applyCmd.Flags().String("request-key", "", "idempotency key; a repeated key applies nothing")
	_ = applyCmd.MarkFlagRequired("credit")
	_ = applyCmd.MarkFlagRequired("bill")

	candidatesCmd.Flags().Int("credit", 0, "vendor credit id")
	_ = candidatesCmd.MarkFlagRequired("credit")
}

func parseBillAmounts(pairs []string) ([]workflow.NewVendorCreditApplyBill, error) {
	bills := make([]workflow.NewVendorCreditApplyBill, 0, len(pairs))
	for _, pair := range pairs {
		idPart, amount, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --bill %q, want ID=AMOUNT", pair)
		}
		id, err := strconv.Atoi(strings.TrimSpace(idPart))
		if err != nil {
			return nil, fmt.Errorf("invalid bill id in %q: %w", pair, err)
		}
		bills = append(bills, workflow.NewVendorCreditApplyBill{BillId: id, Amount: amount})
	}
	return bills, nil
}

func runApply(cmd *cobra.Command, args []string) error {
	ctx, err := commandContext(cmd)
	if err != nil {
		return err
	}
	creditId, _ := cmd.Flags().GetInt("credit")
	pairs, _ := cmd.Flags().GetStringArray("bill")
	autoDate, _ := cmd.Flags().GetBool("auto-date")
	requestKey, _ := cmd.Flags().GetString("request-key")

	bills, err := parseBillAmounts(pairs)
	if err != nil {
		return err
	}

	result, err := service.ApplyVendorCreditToBills(ctx, workflow.NewVendorCreditApplyToBills{
		VendorCreditId:  creditId,
		ApplyBills:      bills,
		AutoAppliedDate: autoDate,
		RequestKey:      requestKey,
	})
	if err != nil {
		return err
	}
	return printJSON(cmd, result)
}

func runCandidates(cmd *cobra.Command, args []string) error {
	ctx, err := commandContext(cmd)
	if err != nil {
		return err
	}
	creditId, _ := cmd.Flags().GetInt("credit")

	bills, err := service.ListCandidateBills(ctx, creditId)
	if errors.Is(err, models.ErrNoEligibleBills) {
		fmt.Fprintln(cmd.ErrOrStderr(), "There are no bills to apply this credit to.")
		return nil
	}
	if err != nil {
		return err
	}
	return printJSON(cmd, bills)
}
