package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Show the journal derived from a vendor credit's items",
	RunE:  runJournal,
}

func init() {
	rootCmd.AddCommand(journalCmd)

	journalCmd.Flags().Int("credit", 0, "vendor credit id")
	_ = journalCmd.MarkFlagRequired("credit")
}

func runJournal(cmd *cobra.Command, args []string) error {
	ctx, err := commandContext(cmd)
	if err != nil {
		return err
	}
	creditId, _ := cmd.Flags().GetInt("credit")

	entries, err := service.GetVendorCreditJournal(ctx, creditId)
	if err != nil {
		return err
	}
	if !entries.IsBalanced() {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: journal is not balanced (difference %s)\n", entries.Difference().StringFixed(2))
	}
	return printJSON(cmd, entries)
}
