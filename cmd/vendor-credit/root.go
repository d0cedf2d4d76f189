package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/mmdatafocus/vendor_credits/config"
	"github.com/mmdatafocus/vendor_credits/utils"
	"github.com/mmdatafocus/vendor_credits/workflow"
	"github.com/spf13/cobra"
)

var (
	businessId string
	useRedis   bool

	service *workflow.VendorCreditService
)

var rootCmd = &cobra.Command{
	Use:   "vendor-credit",
	Short: "Apply vendor credits to bills and inspect their journal",
	Long: `vendor-credit works on one business at a time.

Required environment variables:
  DB_USER, DB_PASSWORD, DB_HOST, DB_PORT, DB_NAME - MySQL connection
Optional:
  REDIS_ADDRESS - serialize commits across instances (with --redis)
  PUBSUB_TOPIC, PUBSUB_PROJECT_ID - outbox publishing (dispatch-outbox)
  VENDOR_CREDIT_AUTO_APPLIED_DATE - default of apply --auto-date`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" {
			return nil
		}
		config.ConnectDatabaseWithRetry()
		if config.GetDB() == nil {
			return errors.New("database not initialized, set DB_* env vars")
		}

		var locker workflow.Locker
		if useRedis {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			config.ConnectRedisWithRetry(ctx)
			if config.GetRedisLock() == nil {
				return errors.New("redis not reachable, check REDIS_ADDRESS")
			}
			locker = workflow.NewRedisLocker(config.GetRedisLock())
		}
		service = workflow.NewVendorCreditService(config.GetDB(), config.GetLogger(), locker)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if rdb := config.GetRedisDB(); rdb != nil {
			_ = rdb.Close()
		}
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		config.LogError(config.GetLogger(), "vendor-credit", "Execute", "rootCmd.Execute", os.Args[1:], err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&businessId, "business-id", os.Getenv("BUSINESS_ID"), "business the command acts on")
	rootCmd.PersistentFlags().BoolVar(&useRedis, "redis", false, "lock through Redis instead of in-process")
}

// commandContext carries the business id and a fresh correlation id.
func commandContext(cmd *cobra.Command) (context.Context, error) {
	if businessId == "" {
		return nil, errors.New("--business-id is required")
	}
	ctx := utils.SetBusinessIdInContext(cmd.Context(), businessId)
	ctx = utils.SetCorrelationIdInContext(ctx, uuid.NewString())
	return ctx, nil
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return utils.DateOnly(time.Now()), nil
	}
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date format, use YYYY-MM-DD: %w", err)
	}
	return d, nil
}
