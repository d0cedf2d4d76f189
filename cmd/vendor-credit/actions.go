package main

import (
	"github.com/mmdatafocus/vendor_credits/utils"
	"github.com/mmdatafocus/vendor_credits/workflow"
	"github.com/spf13/cobra"
)

var voidCmd = &cobra.Command{
	Use:   "void",
	Short: "Void a vendor credit that has not been applied or refunded",
	RunE:  runVoid,
}

var refundCmd = &cobra.Command{
	Use:     "refund",
	Short:   "Refund part or all of a vendor credit's balance",
	Example: `  vendor-credit --business-id b1 refund --credit 12 --amount 150 --date 2025-06-30`,
	RunE:    runRefund,
}

var cloneCmd = &cobra.Command{
	Use:   "clone",
	Short: "Copy a vendor credit into a new draft",
	RunE:  runClone,
}

func init() {
	rootCmd.AddCommand(voidCmd, refundCmd, cloneCmd)

	for _, c := range []*cobra.Command{voidCmd, refundCmd, cloneCmd} {
		c.Flags().Int("credit", 0, "vendor credit id")
		_ = c.MarkFlagRequired("credit")
	}
	refundCmd.Flags().String("amount", "", "amount to refund")
	refundCmd.Flags().String("date", "", "refund date (format: YYYY-MM-DD, default: today)")
	_ = refundCmd.MarkFlagRequired("amount")
	cloneCmd.Flags().String("date", "", "date of the new draft (format: YYYY-MM-DD, default: today)")
}

func runVoid(cmd *cobra.Command, args []string) error {
	ctx, err := commandContext(cmd)
	if err != nil {
		return err
	}
	creditId, _ := cmd.Flags().GetInt("credit")

	credit, err := service.VoidVendorCredit(ctx, creditId)
	if err != nil {
		return err
	}
	return printJSON(cmd, credit)
}

func runRefund(cmd *cobra.Command, args []string) error {
	ctx, err := commandContext(cmd)
	if err != nil {
		return err
	}
	creditId, _ := cmd.Flags().GetInt("credit")
	rawAmount, _ := cmd.Flags().GetString("amount")
	rawDate, _ := cmd.Flags().GetString("date")

	amount, err := utils.ParseAmount(rawAmount)
	if err != nil {
		return err
	}
	date, err := parseDate(rawDate)
	if err != nil {
		return err
	}

	credit, err := service.RefundVendorCredit(ctx, workflow.NewVendorCreditRefund{
		VendorCreditId: creditId,
		Amount:         amount,
		RefundDate:     date,
	})
	if err != nil {
		return err
	}
	return printJSON(cmd, credit)
}

func runClone(cmd *cobra.Command, args []string) error {
	ctx, err := commandContext(cmd)
	if err != nil {
		return err
	}
	creditId, _ := cmd.Flags().GetInt("credit")
	rawDate, _ := cmd.Flags().GetString("date")

	date, err := parseDate(rawDate)
	if err != nil {
		return err
	}
	clone, err := service.CloneVendorCredit(ctx, creditId, date)
	if err != nil {
		return err
	}
	return printJSON(cmd, clone)
}
