package main

import (
	"os/signal"
	"syscall"

	"github.com/mmdatafocus/vendor_credits/config"
	"github.com/mmdatafocus/vendor_credits/models"
	"github.com/mmdatafocus/vendor_credits/workflow"
	"github.com/spf13/cobra"
)

var dispatchCmd = &cobra.Command{
	Use:   "dispatch-outbox",
	Short: "Publish pending vendor credit events to Pub/Sub until interrupted",
	RunE:  runDispatch,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the vendor credit tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		return models.MigrateTable(config.GetDB())
	},
}

var outboxStatusCmd = &cobra.Command{
	Use:   "outbox-status",
	Short: "Show the publish state of a document's latest event",
	RunE:  runOutboxStatus,
}

var outboxRequeueCmd = &cobra.Command{
	Use:   "outbox-requeue",
	Short: "Queue a document's failed or dead events for publishing again",
	RunE:  runOutboxRequeue,
}

func init() {
	rootCmd.AddCommand(dispatchCmd, migrateCmd, outboxStatusCmd, outboxRequeueCmd)

	for _, c := range []*cobra.Command{outboxStatusCmd, outboxRequeueCmd} {
		c.Flags().String("type", string(models.OutboxReferenceTypeVendorCreditApplied), "event type: VCA, VCV, VCR or VCC")
		c.Flags().Int("id", 0, "vendor credit id")
		_ = c.MarkFlagRequired("id")
	}

	dispatchCmd.Flags().Bool("once", false, "publish a single batch and exit")
	dispatchCmd.Flags().Int("batch-size", 50, "rows claimed per batch")
	dispatchCmd.Flags().StringSlice("type", nil, "only publish these event types (VCA, VCV, VCR, VCC)")
}

func runDispatch(cmd *cobra.Command, args []string) error {
	once, _ := cmd.Flags().GetBool("once")
	batchSize, _ := cmd.Flags().GetInt("batch-size")
	rawTypes, _ := cmd.Flags().GetStringSlice("type")
	refTypes := make([]models.OutboxReferenceType, 0, len(rawTypes))
	for _, raw := range rawTypes {
		refType, err := models.ParseOutboxReferenceType(raw)
		if err != nil {
			return err
		}
		refTypes = append(refTypes, refType)
	}

	publisher, err := config.NewPubSubPublisher()
	if err != nil {
		return err
	}
	dispatcher := workflow.NewOutboxDispatcher(config.GetDB(), config.GetLogger(), publisher)
	if batchSize > 0 {
		dispatcher.BatchSize = batchSize
	}
	dispatcher.ReferenceTypes = refTypes

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if once {
		report, err := dispatcher.DispatchOnce(ctx)
		if err != nil {
			return err
		}
		return printJSON(cmd, report)
	}
	dispatcher.Run(ctx)
	return nil
}

func outboxFlags(cmd *cobra.Command) (models.OutboxReferenceType, int, error) {
	rawType, _ := cmd.Flags().GetString("type")
	refId, _ := cmd.Flags().GetInt("id")
	refType, err := models.ParseOutboxReferenceType(rawType)
	return refType, refId, err
}

func runOutboxStatus(cmd *cobra.Command, args []string) error {
	ctx, err := commandContext(cmd)
	if err != nil {
		return err
	}
	refType, refId, err := outboxFlags(cmd)
	if err != nil {
		return err
	}
	status, err := models.GetOutboxStatus(ctx, config.GetDB(), businessId, refType, refId)
	if err != nil {
		return err
	}
	return printJSON(cmd, status)
}

func runOutboxRequeue(cmd *cobra.Command, args []string) error {
	ctx, err := commandContext(cmd)
	if err != nil {
		return err
	}
	refType, refId, err := outboxFlags(cmd)
	if err != nil {
		return err
	}
	status, err := models.RequeueOutbox(ctx, config.GetDB(), businessId, refType, refId)
	if err != nil {
		return err
	}
	return printJSON(cmd, status)
}
